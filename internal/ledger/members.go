package ledger

import "github.com/bhadrakali/chit-ledger/internal/model"

// AddMember creates a member and, when a group is given, joins them to it
// with a freshly generated installment schedule. A full target group
// rejects the whole call; no member is created either.
func (l *Ledger) AddMember(p model.MemberCreateRequest) (*model.Member, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if p.ChitGroupID != "" {
		g, ok := l.chitLocked(p.ChitGroupID)
		if !ok {
			return nil, ErrGroupNotFound
		}
		if g.MaxMembers > 0 && l.membershipCountLocked(p.ChitGroupID) >= g.MaxMembers {
			return nil, ErrGroupFull
		}
	}

	m := model.Member{
		MemberID: l.newID(),
		Name:     p.Name,
		Mobile:   p.Mobile,
		IsActive: true,
	}
	l.data.Members = append(l.data.Members, m)

	if p.ChitGroupID != "" {
		if _, err := l.createMembershipLocked(m.MemberID, p.ChitGroupID, p.TokenNo); err != nil {
			// Capacity was checked above; anything here is a token conflict.
			l.data.Members = l.data.Members[:len(l.data.Members)-1]
			return nil, err
		}
	}
	l.commitLocked()
	return &m, nil
}

// UpdateMember applies partial changes and optionally transfers the member
// to targetGroupID. A transfer that cannot proceed leaves the field changes
// unapplied too; the operation is atomic.
func (l *Ledger) UpdateMember(memberID string, upd model.MemberUpdate, targetGroupID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.memberLocked(memberID)
	if !ok {
		return ErrMemberNotFound
	}

	if targetGroupID != "" {
		if err := l.transferMembershipLocked(memberID, targetGroupID); err != nil {
			return err
		}
	}

	if upd.Name != nil {
		m.Name = *upd.Name
	}
	if upd.Mobile != nil {
		m.Mobile = *upd.Mobile
	}
	if upd.IsActive != nil {
		m.IsActive = *upd.IsActive
	}
	l.commitLocked()
	return nil
}

// BulkAddMembers processes items in input order. Each item is independently
// subject to the capacity check, counting memberships created earlier in the
// same batch, and token assignment stays unique within the batch. Items that
// cannot be placed are skipped; the rest still land. Returns how many
// members were created.
func (l *Ledger) BulkAddMembers(items []model.MemberCreateRequest) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	added := 0
	for _, p := range items {
		if p.Validate() != nil {
			continue
		}
		if p.ChitGroupID != "" {
			g, ok := l.chitLocked(p.ChitGroupID)
			if !ok {
				continue
			}
			if g.MaxMembers > 0 && l.membershipCountLocked(p.ChitGroupID) >= g.MaxMembers {
				continue
			}
		}
		m := model.Member{
			MemberID: l.newID(),
			Name:     p.Name,
			Mobile:   p.Mobile,
			IsActive: true,
		}
		l.data.Members = append(l.data.Members, m)
		if p.ChitGroupID != "" {
			if _, err := l.createMembershipLocked(m.MemberID, p.ChitGroupID, 0); err != nil {
				l.data.Members = l.data.Members[:len(l.data.Members)-1]
				continue
			}
		}
		added++
	}
	if added > 0 {
		l.commitLocked()
	}
	return added
}
