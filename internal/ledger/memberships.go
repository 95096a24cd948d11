package ledger

import "github.com/bhadrakali/chit-ledger/internal/model"

// CreateMembership joins an existing member to a group and generates the
// full installment schedule. tokenNo 0 auto-assigns the next free token.
// Joining a group the member already belongs to returns the existing
// membership untouched.
func (l *Ledger) CreateMembership(memberID, groupID string, tokenNo int) (*model.GroupMembership, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ms, err := l.createMembershipLocked(memberID, groupID, tokenNo)
	if err != nil {
		return nil, err
	}
	l.commitLocked()
	out := *ms
	return &out, nil
}

func (l *Ledger) createMembershipLocked(memberID, groupID string, tokenNo int) (*model.GroupMembership, error) {
	g, ok := l.chitLocked(groupID)
	if !ok {
		return nil, ErrGroupNotFound
	}
	if _, ok := l.memberLocked(memberID); !ok {
		return nil, ErrMemberNotFound
	}
	for i := range l.data.Memberships {
		ms := &l.data.Memberships[i]
		if ms.ChitGroupID == groupID && ms.MemberID == memberID {
			return ms, nil
		}
	}
	if g.MaxMembers > 0 && l.membershipCountLocked(groupID) >= g.MaxMembers {
		return nil, ErrGroupFull
	}

	if tokenNo == 0 {
		tokenNo = l.nextTokenNoLocked(groupID)
	} else if l.tokenTakenLocked(groupID, tokenNo) {
		return nil, ErrTokenTaken
	}

	ms := model.GroupMembership{
		GroupMembershipID: l.newID(),
		ChitGroupID:       groupID,
		MemberID:          memberID,
		TokenNo:           tokenNo,
		JoinedOn:          l.date(),
	}
	l.data.Memberships = append(l.data.Memberships, ms)
	l.generateScheduleLocked(*g, memberID)
	return &l.data.Memberships[len(l.data.Memberships)-1], nil
}

// TransferMembership moves a member to another group: the old group's
// schedule rows are deleted wholesale and a fresh schedule is generated for
// the new group. Payments recorded under the old group stay where they are;
// payment history survives the transfer by design.
func (l *Ledger) TransferMembership(memberID, newGroupID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.transferMembershipLocked(memberID, newGroupID); err != nil {
		return err
	}
	l.commitLocked()
	return nil
}

func (l *Ledger) transferMembershipLocked(memberID, newGroupID string) error {
	var ms *model.GroupMembership
	for i := range l.data.Memberships {
		if l.data.Memberships[i].MemberID == memberID {
			ms = &l.data.Memberships[i]
			break
		}
	}
	if ms == nil {
		return ErrMembershipNotFound
	}
	if ms.ChitGroupID == newGroupID {
		return nil
	}
	g, ok := l.chitLocked(newGroupID)
	if !ok {
		return ErrGroupNotFound
	}
	if g.MaxMembers > 0 && l.membershipCountLocked(newGroupID) >= g.MaxMembers {
		return ErrGroupFull
	}

	oldGroupID := ms.ChitGroupID
	l.deleteScheduleLocked(oldGroupID, memberID)
	ms.ChitGroupID = newGroupID
	// Token numbers are unique per group, so the old token cannot carry over.
	ms.TokenNo = l.nextTokenNoLocked(newGroupID)
	l.generateScheduleLocked(*g, memberID)
	return nil
}

// generateScheduleLocked creates one pending row per month of the group's
// tenure, due on startMonth + (monthNo-1) months at the regular installment.
func (l *Ledger) generateScheduleLocked(g model.ChitGroup, memberID string) {
	for monthNo := 1; monthNo <= g.TotalMonths; monthNo++ {
		l.data.Installments = append(l.data.Installments, model.InstallmentSchedule{
			ScheduleID:  l.newID(),
			ChitGroupID: g.ChitGroupID,
			MemberID:    memberID,
			MonthNo:     monthNo,
			DueDate:     g.DueDate(monthNo),
			DueAmount:   g.MonthlyInstallmentRegular,
			PaidAmount:  0,
			Status:      model.PaymentStatusPending,
		})
	}
}

func (l *Ledger) deleteScheduleLocked(groupID, memberID string) {
	kept := l.data.Installments[:0]
	for _, row := range l.data.Installments {
		if row.ChitGroupID == groupID && row.MemberID == memberID {
			continue
		}
		kept = append(kept, row)
	}
	l.data.Installments = kept
}

func (l *Ledger) nextTokenNoLocked(groupID string) int {
	max := 0
	for i := range l.data.Memberships {
		ms := &l.data.Memberships[i]
		if ms.ChitGroupID == groupID && ms.TokenNo > max {
			max = ms.TokenNo
		}
	}
	return max + 1
}

func (l *Ledger) tokenTakenLocked(groupID string, tokenNo int) bool {
	for i := range l.data.Memberships {
		ms := &l.data.Memberships[i]
		if ms.ChitGroupID == groupID && ms.TokenNo == tokenNo {
			return true
		}
	}
	return false
}
