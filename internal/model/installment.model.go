package model

// PaymentStatus is the derived state of an installment schedule row.
// It is never hand-set; DeriveStatus is the single source of truth.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// DeriveStatus computes the schedule status from the amounts.
func DeriveStatus(paidAmount, dueAmount float64) PaymentStatus {
	switch {
	case paidAmount >= dueAmount:
		return PaymentStatusPaid
	case paidAmount > 0:
		return PaymentStatusPartial
	default:
		return PaymentStatusPending
	}
}

// InstallmentSchedule is the per-member, per-month ledger row. Exactly one
// row exists per (chitGroupId, memberId, monthNo) for 1..totalMonths.
type InstallmentSchedule struct {
	ScheduleID   string        `json:"scheduleId"`
	ChitGroupID  string        `json:"chitGroupId"`
	MemberID     string        `json:"memberId"`
	MonthNo      int           `json:"monthNo"`
	DueDate      string        `json:"dueDate"` // YYYY-MM-DD
	DueAmount    float64       `json:"dueAmount"`
	PaidAmount   float64       `json:"paidAmount"`
	PaidDate     string        `json:"paidDate,omitempty"`
	Status       PaymentStatus `json:"status"`
	IsPrizeMonth bool          `json:"isPrizeMonth"`
}
