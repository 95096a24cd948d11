package model

import (
	"errors"
	"strings"
	"time"
)

// ChitStatus is the lifecycle state of a chit group.
type ChitStatus string

const (
	ChitStatusActive    ChitStatus = "active"
	ChitStatusCompleted ChitStatus = "completed"
	ChitStatusClosed    ChitStatus = "closed"
)

type ChitGroup struct {
	ChitGroupID               string     `json:"chitGroupId"`
	Name                      string     `json:"name"`
	TotalMonths               int        `json:"totalMonths"`
	StartMonth                string     `json:"startMonth"` // YYYY-MM-DD, first installment due date
	MonthlyInstallmentRegular float64    `json:"monthlyInstallmentRegular"`
	MonthlyInstallmentAllotted float64   `json:"monthlyInstallmentAllotted"`
	MaxMembers                int        `json:"maxMembers"` // 0 means unbounded
	Status                    ChitStatus `json:"status"`
	UpiID                     string     `json:"upiId,omitempty"`
	WhatsappGroupLink         string     `json:"whatsappGroupLink,omitempty"`
}

// DueDate returns the due date for the given 1-based month number,
// startMonth plus (monthNo-1) calendar months.
func (g ChitGroup) DueDate(monthNo int) string {
	start, err := time.Parse("2006-01-02", g.StartMonth)
	if err != nil {
		return g.StartMonth
	}
	return start.AddDate(0, monthNo-1, 0).Format("2006-01-02")
}

type ChitGroupCreateRequest struct {
	Name                       string
	TotalMonths                int
	StartMonth                 string
	MonthlyInstallmentRegular  float64
	MonthlyInstallmentAllotted float64
	MaxMembers                 int
	UpiID                      string
	WhatsappGroupLink          string
}

func (p ChitGroupCreateRequest) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if p.TotalMonths <= 0 {
		return errors.New("totalMonths must be positive")
	}
	if _, err := time.Parse("2006-01-02", p.StartMonth); err != nil {
		return errors.New("startMonth must be YYYY-MM-DD")
	}
	if p.MonthlyInstallmentRegular <= 0 {
		return errors.New("monthlyInstallmentRegular must be positive")
	}
	return nil
}

// ChitGroupUpdate carries partial group changes. Nil fields are left untouched.
// TotalMonths and StartMonth are deliberately not updatable; changing them
// would invalidate every generated schedule row.
type ChitGroupUpdate struct {
	Name                       *string
	MonthlyInstallmentRegular  *float64
	MonthlyInstallmentAllotted *float64
	MaxMembers                 *int
	Status                     *ChitStatus
	UpiID                      *string
	WhatsappGroupLink          *string
}
