package model

import "errors"

// PaymentMode is how an installment payment was collected.
type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "cash"
	PaymentModeUPI    PaymentMode = "upi"
	PaymentModeBank   PaymentMode = "bank"
	PaymentModeOnline PaymentMode = "online"
)

// Payment is an append-only collection record. Payments are never mutated;
// their sum is aggregated into the matching schedule row's paidAmount.
type Payment struct {
	PaymentID   string      `json:"paymentId"`
	ChitGroupID string      `json:"chitGroupId"`
	MemberID    string      `json:"memberId"`
	MonthNo     int         `json:"monthNo"`
	PaidAmount  float64     `json:"paidAmount"`
	PaymentDate string      `json:"paymentDate"` // YYYY-MM-DD
	PaymentMode PaymentMode `json:"paymentMode"`
	ReferenceNo string      `json:"referenceNo,omitempty"`
	CollectedBy string      `json:"collectedBy,omitempty"`
}

type PaymentCreateRequest struct {
	ChitGroupID string
	MemberID    string
	MonthNo     int
	Amount      float64
	Mode        PaymentMode
	ReferenceNo string
	CollectedBy string
}

func (p PaymentCreateRequest) Validate() error {
	if p.ChitGroupID == "" {
		return errors.New("chitGroupId is required")
	}
	if p.MemberID == "" {
		return errors.New("memberId is required")
	}
	if p.MonthNo <= 0 {
		return errors.New("monthNo must be positive")
	}
	if p.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	return nil
}
