package ledger

import "errors"

var (
	ErrGroupNotFound          = errors.New("chit group not found")
	ErrGroupFull              = errors.New("chit group is at max members")
	ErrMemberNotFound         = errors.New("member not found")
	ErrMembershipNotFound     = errors.New("membership not found")
	ErrAllotmentNotFound      = errors.New("allotment not found")
	ErrTokenTaken             = errors.New("token number already taken in group")
	ErrMonthAllotted          = errors.New("month already has an active allotment")
	ErrPaymentRequestNotFound = errors.New("payment request not found")
	ErrPaymentRequestClosed   = errors.New("payment request already reviewed")
)
