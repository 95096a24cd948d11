package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhadrakali/chit-ledger/internal/model"
)

type recordingNotifier struct {
	mu       sync.Mutex
	payments []model.Payment
}

func (n *recordingNotifier) PaymentRecorded(p model.Payment) {
	n.mu.Lock()
	n.payments = append(n.payments, p)
	n.mu.Unlock()
}

func TestRecordPaymentAggregatesIntoSchedule(t *testing.T) {
	l, _, _ := newTestLedger(t)
	g := mustGroup(t, l, "Vault A", 6, 1000, 1100, 0)
	m := mustMember(t, l, "Asha", g.ChitGroupID)

	_, err := l.RecordPayment(model.PaymentCreateRequest{
		ChitGroupID: g.ChitGroupID, MemberID: m.MemberID, MonthNo: 1,
		Amount: 400, Mode: model.PaymentModeCash,
	})
	require.NoError(t, err)

	row := scheduleFor(l, g.ChitGroupID, m.MemberID)[0]
	assert.Equal(t, 400.0, row.PaidAmount)
	assert.Equal(t, model.PaymentStatusPartial, row.Status)
	assert.Equal(t, "2025-04-10", row.PaidDate)

	// A second payment for the same month tops the row up to paid.
	_, err = l.RecordPayment(model.PaymentCreateRequest{
		ChitGroupID: g.ChitGroupID, MemberID: m.MemberID, MonthNo: 1,
		Amount: 600, Mode: model.PaymentModeUPI,
	})
	require.NoError(t, err)

	row = scheduleFor(l, g.ChitGroupID, m.MemberID)[0]
	assert.Equal(t, 1000.0, row.PaidAmount)
	assert.Equal(t, model.PaymentStatusPaid, row.Status)
	assert.Len(t, l.Payments(), 2, "payments stay append-only")
}

func TestRecordPaymentValidatesInput(t *testing.T) {
	l, _, sig := newTestLedger(t)

	_, err := l.RecordPayment(model.PaymentCreateRequest{
		ChitGroupID: "g1", MemberID: "m1", MonthNo: 1, Amount: -5,
	})
	require.Error(t, err)
	assert.Empty(t, l.Payments())
	assert.Equal(t, 0, sig.count())
}

func TestOrphanPaymentIsRetained(t *testing.T) {
	l, _, _ := newTestLedger(t)
	g := mustGroup(t, l, "Vault A", 6, 1000, 1100, 0)
	m := mustMember(t, l, "Asha", g.ChitGroupID)

	// Month 9 has no schedule row in a 6-month group.
	_, err := l.RecordPayment(model.PaymentCreateRequest{
		ChitGroupID: g.ChitGroupID, MemberID: m.MemberID, MonthNo: 9,
		Amount: 1000, Mode: model.PaymentModeCash,
	})
	require.NoError(t, err)
	assert.Len(t, l.Payments(), 1)
	for _, row := range scheduleFor(l, g.ChitGroupID, m.MemberID) {
		assert.Zero(t, row.PaidAmount)
	}
}

func TestRecordPaymentNotifiesAfterCommit(t *testing.T) {
	store := &memStore{}
	notifier := &recordingNotifier{}
	l, err := New(store, WithNotifier(notifier))
	require.NoError(t, err)

	g := mustGroup(t, l, "Vault A", 6, 1000, 1100, 0)
	m := mustMember(t, l, "Asha", g.ChitGroupID)

	p, err := l.RecordPayment(model.PaymentCreateRequest{
		ChitGroupID: g.ChitGroupID, MemberID: m.MemberID, MonthNo: 1,
		Amount: 1000, Mode: model.PaymentModeUPI, ReferenceNo: "UTR123",
	})
	require.NoError(t, err)

	require.Len(t, notifier.payments, 1)
	assert.Equal(t, p.PaymentID, notifier.payments[0].PaymentID)
	assert.Equal(t, "UTR123", notifier.payments[0].ReferenceNo)
}

func TestPaymentRequestLifecycle(t *testing.T) {
	l, _, _ := newTestLedger(t)
	g := mustGroup(t, l, "Vault A", 6, 1000, 1100, 0)
	m := mustMember(t, l, "Asha", g.ChitGroupID)

	pr, err := l.CreatePaymentRequest(model.PaymentCreateRequest{
		ChitGroupID: g.ChitGroupID, MemberID: m.MemberID, MonthNo: 2,
		Amount: 1000, ReferenceNo: "UTR999",
	}, "paid via gpay")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRequestPending, pr.Status)

	pay, err := l.ApprovePaymentRequest(pr.PaymentRequestID, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, pay.PaidAmount)
	assert.Equal(t, "UTR999", pay.ReferenceNo)

	// Approval aggregated the claimed amount.
	row := scheduleFor(l, g.ChitGroupID, m.MemberID)[1]
	assert.Equal(t, model.PaymentStatusPaid, row.Status)

	got := l.PaymentRequests()[0]
	assert.Equal(t, model.PaymentRequestApproved, got.Status)

	// A reviewed request cannot be reviewed again.
	_, err = l.ApprovePaymentRequest(pr.PaymentRequestID, "admin")
	assert.ErrorIs(t, err, ErrPaymentRequestClosed)
	assert.ErrorIs(t, l.RejectPaymentRequest(pr.PaymentRequestID), ErrPaymentRequestClosed)
}

func TestRejectPaymentRequestRecordsNothing(t *testing.T) {
	l, _, _ := newTestLedger(t)
	g := mustGroup(t, l, "Vault A", 6, 1000, 1100, 0)
	m := mustMember(t, l, "Asha", g.ChitGroupID)

	pr, err := l.CreatePaymentRequest(model.PaymentCreateRequest{
		ChitGroupID: g.ChitGroupID, MemberID: m.MemberID, MonthNo: 1, Amount: 1000,
	}, "")
	require.NoError(t, err)

	require.NoError(t, l.RejectPaymentRequest(pr.PaymentRequestID))
	assert.Empty(t, l.Payments())
	assert.Equal(t, model.PaymentRequestRejected, l.PaymentRequests()[0].Status)
}
