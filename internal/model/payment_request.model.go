package model

// PaymentRequestStatus is the review state of a member-submitted request.
type PaymentRequestStatus string

const (
	PaymentRequestPending  PaymentRequestStatus = "pending"
	PaymentRequestApproved PaymentRequestStatus = "approved"
	PaymentRequestRejected PaymentRequestStatus = "rejected"
)

// PaymentRequest is a member-submitted claim of payment awaiting operator
// review. Approval records the actual Payment; the request row itself only
// flips status.
type PaymentRequest struct {
	PaymentRequestID string               `json:"paymentRequestId"`
	ChitGroupID      string               `json:"chitGroupId"`
	MemberID         string               `json:"memberId"`
	MonthNo          int                  `json:"monthNo"`
	Amount           float64              `json:"amount"`
	RequestedOn      string               `json:"requestedOn"` // YYYY-MM-DD
	Status           PaymentRequestStatus `json:"status"`
	ReferenceNo      string               `json:"referenceNo,omitempty"`
	Note             string               `json:"note,omitempty"`
}
