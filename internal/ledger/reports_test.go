package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhadrakali/chit-ledger/internal/model"
)

func TestInstallmentStatusFor(t *testing.T) {
	l, _, _ := newTestLedger(t)
	g := mustGroup(t, l, "Vault A", 6, 1000, 1100, 0)
	m := mustMember(t, l, "Asha", g.ChitGroupID)

	_, err := l.RecordPayment(model.PaymentCreateRequest{
		ChitGroupID: g.ChitGroupID, MemberID: m.MemberID, MonthNo: 1,
		Amount: 400, Mode: model.PaymentModeCash,
	})
	require.NoError(t, err)

	st := l.InstallmentStatusFor(g.ChitGroupID, m.MemberID, 1)
	assert.Equal(t, InstallmentStatus{Due: 1000, Paid: 400, Balance: 600, Status: model.PaymentStatusPartial}, st)

	// A cell with no schedule row reads as zero pending.
	st = l.InstallmentStatusFor(g.ChitGroupID, m.MemberID, 99)
	assert.Equal(t, InstallmentStatus{Status: model.PaymentStatusPending}, st)
}

func TestCollectionSummaryFor(t *testing.T) {
	l, _, _ := newTestLedger(t)
	g := mustGroup(t, l, "Vault A", 6, 1000, 1100, 0)
	a := mustMember(t, l, "Asha", g.ChitGroupID)
	b := mustMember(t, l, "Bina", g.ChitGroupID)
	mustMember(t, l, "Chitra", g.ChitGroupID)

	_, err := l.RecordPayment(model.PaymentCreateRequest{
		ChitGroupID: g.ChitGroupID, MemberID: a.MemberID, MonthNo: 1,
		Amount: 1000, Mode: model.PaymentModeCash,
	})
	require.NoError(t, err)
	_, err = l.RecordPayment(model.PaymentCreateRequest{
		ChitGroupID: g.ChitGroupID, MemberID: b.MemberID, MonthNo: 1,
		Amount: 300, Mode: model.PaymentModeUPI,
	})
	require.NoError(t, err)

	s := l.CollectionSummaryFor(g.ChitGroupID, 1)
	assert.Equal(t, 3, s.Members)
	assert.Equal(t, 1, s.PaidCount)
	assert.Equal(t, 1300.0, s.Collected)
	assert.Equal(t, 1700.0, s.Outstanding)
}

func TestDashboard(t *testing.T) {
	l, _, _ := newTestLedger(t)
	g := mustGroup(t, l, "Vault A", 2, 1000, 1100, 0)
	a := mustMember(t, l, "Asha", g.ChitGroupID)
	b := mustMember(t, l, "Bina", g.ChitGroupID)

	_, err := l.RecordPayment(model.PaymentCreateRequest{
		ChitGroupID: g.ChitGroupID, MemberID: a.MemberID, MonthNo: 1,
		Amount: 1000, Mode: model.PaymentModeCash,
	})
	require.NoError(t, err)
	_, err = l.GrantAllotment(g.ChitGroupID, a.MemberID, 1, 1500)
	require.NoError(t, err)

	inactive := false
	require.NoError(t, l.UpdateMember(b.MemberID, model.MemberUpdate{IsActive: &inactive}, ""))

	d := l.Dashboard()
	assert.Equal(t, 1000.0, d.Collected)
	// Asha month 2 now dues 1100, Bina dues 1000 + 1000.
	assert.Equal(t, 3100.0, d.Outstanding)
	assert.Equal(t, 1500.0, d.Allotted)
	assert.Equal(t, -500.0, d.NetBalance)
	assert.Equal(t, 1, d.ActiveMembers)
	assert.Equal(t, 1, d.ActiveGroups)
}

func TestGroupWinners(t *testing.T) {
	l, _, _ := newTestLedger(t)
	g := mustGroup(t, l, "Vault A", 6, 1000, 1100, 0)
	a := mustMember(t, l, "Asha", g.ChitGroupID)
	b := mustMember(t, l, "Bina", g.ChitGroupID)
	c := mustMember(t, l, "Chitra", g.ChitGroupID)

	_, err := l.GrantAllotment(g.ChitGroupID, b.MemberID, 3, 48000)
	require.NoError(t, err)
	_, err = l.GrantAllotment(g.ChitGroupID, a.MemberID, 1, 45000)
	require.NoError(t, err)
	revoked, err := l.GrantAllotment(g.ChitGroupID, c.MemberID, 5, 52000)
	require.NoError(t, err)
	require.NoError(t, l.RevokeAllotment(revoked.AllotmentID))

	winners := l.GroupWinners(g.ChitGroupID)
	require.Len(t, winners, 2, "revoked allotments are not winners")
	assert.Equal(t, []int{1, 3}, []int{winners[0].MonthNo, winners[1].MonthNo})
	assert.Equal(t, "Asha", winners[0].MemberName)
	assert.Equal(t, "Bina", winners[1].MemberName)
}
