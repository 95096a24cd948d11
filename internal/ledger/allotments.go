package ledger

import "github.com/bhadrakali/chit-ledger/internal/model"

// GrantAllotment records that the member won the pooled payout for monthNo
// and cascades the schedule: the matching row becomes the prize month and
// every later month's dueAmount switches to the group's allotted
// installment, for that member only.
func (l *Ledger) GrantAllotment(groupID, memberID string, monthNo int, amount float64) (*model.Allotment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	g, ok := l.chitLocked(groupID)
	if !ok {
		return nil, ErrGroupNotFound
	}
	for i := range l.data.Allotments {
		ex := &l.data.Allotments[i]
		if ex.ChitGroupID == groupID && ex.MonthNo == monthNo && ex.Active() {
			return nil, ErrMonthAllotted
		}
	}

	a := model.Allotment{
		AllotmentID:    l.newID(),
		ChitGroupID:    groupID,
		MemberID:       memberID,
		MonthNo:        monthNo,
		AllottedAmount: amount,
		IsConfirmed:    true,
		AllottedOn:     l.date(),
	}
	l.data.Allotments = append(l.data.Allotments, a)
	l.applyAllotmentCascadeLocked(*g, memberID, monthNo)
	l.commitLocked()
	return &a, nil
}

// EditAllotment changes an allotment's month and/or amount. The cascade for
// the old month is reverted in full before the new one is applied, even
// when the month is unchanged, which makes the operation idempotent.
func (l *Ledger) EditAllotment(allotmentID string, upd model.AllotmentUpdate) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.allotmentLocked(allotmentID)
	if !ok {
		return ErrAllotmentNotFound
	}
	g, ok := l.chitLocked(a.ChitGroupID)
	if !ok {
		return ErrGroupNotFound
	}

	l.revertAllotmentCascadeLocked(*g, a.MemberID, a.MonthNo)
	if upd.MonthNo != nil {
		a.MonthNo = *upd.MonthNo
	}
	if upd.AllottedAmount != nil {
		a.AllottedAmount = *upd.AllottedAmount
	}
	l.applyAllotmentCascadeLocked(*g, a.MemberID, a.MonthNo)
	l.commitLocked()
	return nil
}

// RevokeAllotment soft-deletes the allotment and reverts its schedule
// effect. The row is retained for history.
func (l *Ledger) RevokeAllotment(allotmentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.allotmentLocked(allotmentID)
	if !ok {
		return ErrAllotmentNotFound
	}
	a.Revoked = true
	a.IsConfirmed = false

	g, ok := l.chitLocked(a.ChitGroupID)
	if ok {
		l.revertAllotmentCascadeLocked(*g, a.MemberID, a.MonthNo)
	}
	l.commitLocked()
	return nil
}

func (l *Ledger) allotmentLocked(allotmentID string) (*model.Allotment, bool) {
	for i := range l.data.Allotments {
		if l.data.Allotments[i].AllotmentID == allotmentID {
			return &l.data.Allotments[i], true
		}
	}
	return nil, false
}

// applyAllotmentCascadeLocked marks the prize month and raises later
// months' dueAmount to the allotted installment. Rows at or before the
// allotment month are untouched. Status is re-derived wherever dueAmount
// moved, keeping the status/paidAmount invariant intact.
func (l *Ledger) applyAllotmentCascadeLocked(g model.ChitGroup, memberID string, monthNo int) {
	for i := range l.data.Installments {
		row := &l.data.Installments[i]
		if row.ChitGroupID != g.ChitGroupID || row.MemberID != memberID {
			continue
		}
		if row.MonthNo == monthNo {
			row.IsPrizeMonth = true
		}
		if row.MonthNo > monthNo {
			row.DueAmount = g.MonthlyInstallmentAllotted
			row.Status = model.DeriveStatus(row.PaidAmount, row.DueAmount)
		}
	}
}

// revertAllotmentCascadeLocked is the exact inverse of the apply cascade.
func (l *Ledger) revertAllotmentCascadeLocked(g model.ChitGroup, memberID string, monthNo int) {
	for i := range l.data.Installments {
		row := &l.data.Installments[i]
		if row.ChitGroupID != g.ChitGroupID || row.MemberID != memberID {
			continue
		}
		if row.MonthNo == monthNo {
			row.IsPrizeMonth = false
		}
		if row.MonthNo > monthNo {
			row.DueAmount = g.MonthlyInstallmentRegular
			row.Status = model.DeriveStatus(row.PaidAmount, row.DueAmount)
		}
	}
}
