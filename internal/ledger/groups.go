package ledger

import "github.com/bhadrakali/chit-ledger/internal/model"

// AddChitGroup creates a chit group.
func (l *Ledger) AddChitGroup(p model.ChitGroupCreateRequest) (*model.ChitGroup, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	g := model.ChitGroup{
		ChitGroupID:                l.newID(),
		Name:                       p.Name,
		TotalMonths:                p.TotalMonths,
		StartMonth:                 p.StartMonth,
		MonthlyInstallmentRegular:  p.MonthlyInstallmentRegular,
		MonthlyInstallmentAllotted: p.MonthlyInstallmentAllotted,
		MaxMembers:                 p.MaxMembers,
		Status:                     model.ChitStatusActive,
		UpiID:                      p.UpiID,
		WhatsappGroupLink:          p.WhatsappGroupLink,
	}
	if g.MonthlyInstallmentAllotted == 0 {
		g.MonthlyInstallmentAllotted = g.MonthlyInstallmentRegular
	}
	l.data.Chits = append(l.data.Chits, g)
	l.commitLocked()
	return &g, nil
}

// UpdateChitGroup applies partial changes to a chit group.
func (l *Ledger) UpdateChitGroup(groupID string, upd model.ChitGroupUpdate) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	g, ok := l.chitLocked(groupID)
	if !ok {
		return ErrGroupNotFound
	}
	if upd.Name != nil {
		g.Name = *upd.Name
	}
	if upd.MonthlyInstallmentRegular != nil {
		g.MonthlyInstallmentRegular = *upd.MonthlyInstallmentRegular
	}
	if upd.MonthlyInstallmentAllotted != nil {
		g.MonthlyInstallmentAllotted = *upd.MonthlyInstallmentAllotted
	}
	if upd.MaxMembers != nil {
		g.MaxMembers = *upd.MaxMembers
	}
	if upd.Status != nil {
		g.Status = *upd.Status
	}
	if upd.UpiID != nil {
		g.UpiID = *upd.UpiID
	}
	if upd.WhatsappGroupLink != nil {
		g.WhatsappGroupLink = *upd.WhatsappGroupLink
	}
	l.commitLocked()
	return nil
}
