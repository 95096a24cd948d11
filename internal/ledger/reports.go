package ledger

import (
	"sort"

	"github.com/bhadrakali/chit-ledger/internal/model"
)

// InstallmentStatus is the settled view of one (group, member, month) cell.
type InstallmentStatus struct {
	Due     float64             `json:"due"`
	Paid    float64             `json:"paid"`
	Balance float64             `json:"balance"`
	Status  model.PaymentStatus `json:"status"`
}

// CollectionSummary aggregates one group's month across its members.
type CollectionSummary struct {
	ChitGroupID string  `json:"chitGroupId"`
	MonthNo     int     `json:"monthNo"`
	Members     int     `json:"members"`
	PaidCount   int     `json:"paidCount"`
	Collected   float64 `json:"collected"`
	Outstanding float64 `json:"outstanding"`
}

// DashboardSummary is the fund-wide headline view.
type DashboardSummary struct {
	Collected     float64 `json:"collected"`
	Outstanding   float64 `json:"outstanding"`
	Allotted      float64 `json:"allotted"`
	NetBalance    float64 `json:"netBalance"`
	ActiveMembers int     `json:"activeMembers"`
	ActiveGroups  int     `json:"activeGroups"`
}

// GroupWinner pairs an active allotment with its member for display.
type GroupWinner struct {
	MemberID       string  `json:"memberId"`
	MemberName     string  `json:"memberName"`
	MonthNo        int     `json:"monthNo"`
	AllottedAmount float64 `json:"allottedAmount"`
	AllottedOn     string  `json:"allottedOn"`
}

// InstallmentStatusFor reports the settled status of one schedule cell. A
// missing row reads as a zero-due pending cell rather than an error.
func (l *Ledger) InstallmentStatusFor(groupID, memberID string, monthNo int) InstallmentStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	row := l.scheduleRowLocked(groupID, memberID, monthNo)
	if row == nil {
		return InstallmentStatus{Status: model.PaymentStatusPending}
	}
	return InstallmentStatus{
		Due:     row.DueAmount,
		Paid:    row.PaidAmount,
		Balance: row.DueAmount - row.PaidAmount,
		Status:  row.Status,
	}
}

// CollectionSummaryFor aggregates one month of one group.
func (l *Ledger) CollectionSummaryFor(groupID string, monthNo int) CollectionSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := CollectionSummary{ChitGroupID: groupID, MonthNo: monthNo}
	for i := range l.data.Installments {
		row := &l.data.Installments[i]
		if row.ChitGroupID != groupID || row.MonthNo != monthNo {
			continue
		}
		s.Members++
		s.Collected += row.PaidAmount
		if row.Status == model.PaymentStatusPaid {
			s.PaidCount++
		}
		if bal := row.DueAmount - row.PaidAmount; bal > 0 {
			s.Outstanding += bal
		}
	}
	return s
}

// Dashboard aggregates the whole fund. Outstanding counts only shortfalls;
// overpaid cells do not offset other members' dues.
func (l *Ledger) Dashboard() DashboardSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	var d DashboardSummary
	for i := range l.data.Installments {
		row := &l.data.Installments[i]
		d.Collected += row.PaidAmount
		if bal := row.DueAmount - row.PaidAmount; bal > 0 {
			d.Outstanding += bal
		}
	}
	for i := range l.data.Allotments {
		if l.data.Allotments[i].Active() {
			d.Allotted += l.data.Allotments[i].AllottedAmount
		}
	}
	d.NetBalance = d.Collected - d.Allotted
	for i := range l.data.Members {
		if l.data.Members[i].IsActive {
			d.ActiveMembers++
		}
	}
	for i := range l.data.Chits {
		if l.data.Chits[i].Status == model.ChitStatusActive {
			d.ActiveGroups++
		}
	}
	return d
}

// GroupWinners lists the active allotments of a group in month order, with
// member names resolved. Revoked allotments are history, not winners.
func (l *Ledger) GroupWinners(groupID string) []GroupWinner {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []GroupWinner
	for i := range l.data.Allotments {
		a := &l.data.Allotments[i]
		if a.ChitGroupID != groupID || !a.Active() {
			continue
		}
		w := GroupWinner{
			MemberID:       a.MemberID,
			MonthNo:        a.MonthNo,
			AllottedAmount: a.AllottedAmount,
			AllottedOn:     a.AllottedOn,
		}
		if m, ok := l.memberLocked(a.MemberID); ok {
			w.MemberName = m.Name
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthNo < out[j].MonthNo })
	return out
}
