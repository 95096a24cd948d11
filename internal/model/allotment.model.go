package model

// Allotment records which member won the pooled payout for a month.
// Allotments are soft-deleted via Revoked; the row itself is never removed,
// preserving history while deactivating the financial effect.
type Allotment struct {
	AllotmentID   string  `json:"allotmentId"`
	ChitGroupID   string  `json:"chitGroupId"`
	MemberID      string  `json:"memberId"`
	MonthNo       int     `json:"monthNo"`
	AllottedAmount float64 `json:"allottedAmount"`
	IsConfirmed   bool    `json:"isConfirmed"`
	Revoked       bool    `json:"revoked"`
	AllottedOn    string  `json:"allottedOn,omitempty"` // YYYY-MM-DD
}

// Active reports whether the allotment still carries financial effect.
func (a Allotment) Active() bool {
	return a.IsConfirmed && !a.Revoked
}

// AllotmentUpdate carries partial allotment changes. Nil fields are left
// untouched. Editing month or amount re-runs the full schedule cascade.
type AllotmentUpdate struct {
	MonthNo        *int
	AllottedAmount *float64
}
