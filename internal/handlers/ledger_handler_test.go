package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/bhadrakali/chit-ledger/internal/ledger"
	"github.com/bhadrakali/chit-ledger/internal/model"
	"github.com/bhadrakali/chit-ledger/internal/repository"
	xhttp "github.com/bhadrakali/chit-ledger/pkg/http"
)

type nullStore struct{}

func (nullStore) Load() (*model.Dataset, error) { return nil, repository.ErrNoSnapshot }
func (nullStore) Save(*model.Dataset) error     { return nil }

type stubReminders struct {
	queued int
	err    error
	calls  int
}

func (s *stubReminders) SendReminders(_ context.Context, _ string, _ int) (int, error) {
	s.calls++
	return s.queued, s.err
}

func newTestHandler(t *testing.T) (*LedgerHandler, *ledger.Ledger, *stubReminders) {
	t.Helper()
	l, err := ledger.New(nullStore{})
	require.NoError(t, err)
	reminders := &stubReminders{}
	return NewLedgerHandler(l, reminders), l, reminders
}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

func seedChit(t *testing.T, l *ledger.Ledger) *model.ChitGroup {
	t.Helper()
	g, err := l.AddChitGroup(model.ChitGroupCreateRequest{
		Name:                      "Vault A",
		TotalMonths:               10,
		StartMonth:                "2025-04-01",
		MonthlyInstallmentRegular: 1000,
		MaxMembers:                10,
	})
	require.NoError(t, err)
	return g
}

func seedChitMember(t *testing.T, l *ledger.Ledger, groupID, name string) *model.Member {
	t.Helper()
	m, err := l.AddMember(model.MemberCreateRequest{Name: name, Mobile: "9876543210", ChitGroupID: groupID})
	require.NoError(t, err)
	return m
}

func TestCreateChit(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		h, _, _ := newTestHandler(t)
		body, _ := json.Marshal(createChitRequest{
			Name:                      "Vault A",
			TotalMonths:               10,
			StartMonth:                "2025-04-01",
			MonthlyInstallmentRegular: 1000,
		})
		ctx := setupTestContext("POST", "/chits", body)
		h.CreateChit(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		var g model.ChitGroup
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &g))
		assert.NotEmpty(t, g.ChitGroupID)
		assert.Equal(t, model.ChitStatusActive, g.Status)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		h, _, _ := newTestHandler(t)
		ctx := setupTestContext("POST", "/chits", []byte("not json"))
		h.CreateChit(ctx)
		assert.Equal(t, 400, ctx.Response.StatusCode())
	})

	t.Run("validation failure", func(t *testing.T) {
		h, _, _ := newTestHandler(t)
		body, _ := json.Marshal(createChitRequest{Name: "", TotalMonths: 10})
		ctx := setupTestContext("POST", "/chits", body)
		h.CreateChit(ctx)
		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}

func TestUpdateChitNotFound(t *testing.T) {
	h, _, _ := newTestHandler(t)
	ctx := setupTestContext("PATCH", "/chits/missing", []byte("{}"))
	ctx.SetUserValue("id", "missing")
	h.UpdateChit(ctx)
	assert.Equal(t, 404, ctx.Response.StatusCode())
}

func TestCreateMembershipTokenConflict(t *testing.T) {
	h, l, _ := newTestHandler(t)
	g := seedChit(t, l)
	seedChitMember(t, l, g.ChitGroupID, "Asha")
	loner, err := l.AddMember(model.MemberCreateRequest{Name: "Bina", Mobile: "9876500000"})
	require.NoError(t, err)

	body, _ := json.Marshal(createMembershipRequest{
		MemberID:    loner.MemberID,
		ChitGroupID: g.ChitGroupID,
		TokenNo:     1, // already held by Asha
	})
	ctx := setupTestContext("POST", "/memberships", body)
	h.CreateMembership(ctx)
	assert.Equal(t, 409, ctx.Response.StatusCode())
}

func TestGrantAllotmentConflict(t *testing.T) {
	h, l, _ := newTestHandler(t)
	g := seedChit(t, l)
	asha := seedChitMember(t, l, g.ChitGroupID, "Asha")
	bina := seedChitMember(t, l, g.ChitGroupID, "Bina")

	body, _ := json.Marshal(grantAllotmentRequest{
		ChitGroupID: g.ChitGroupID, MemberID: asha.MemberID, MonthNo: 3, AllottedAmount: 9000,
	})
	ctx := setupTestContext("POST", "/allotments", body)
	h.GrantAllotment(ctx)
	require.Equal(t, 201, ctx.Response.StatusCode())

	body, _ = json.Marshal(grantAllotmentRequest{
		ChitGroupID: g.ChitGroupID, MemberID: bina.MemberID, MonthNo: 3, AllottedAmount: 9000,
	})
	ctx = setupTestContext("POST", "/allotments", body)
	h.GrantAllotment(ctx)
	assert.Equal(t, 409, ctx.Response.StatusCode())
}

func TestRecordPaymentAndInstallmentStatus(t *testing.T) {
	h, l, _ := newTestHandler(t)
	g := seedChit(t, l)
	asha := seedChitMember(t, l, g.ChitGroupID, "Asha")

	body, _ := json.Marshal(recordPaymentRequest{
		ChitGroupID: g.ChitGroupID, MemberID: asha.MemberID, MonthNo: 1, Amount: 400, Mode: "upi",
	})
	ctx := setupTestContext("POST", "/payments", body)
	h.RecordPayment(ctx)
	require.Equal(t, 201, ctx.Response.StatusCode())

	ctx = setupTestContext("GET", "/installments?chitGroupId="+g.ChitGroupID+"&memberId="+asha.MemberID+"&month=1", nil)
	h.InstallmentStatus(ctx)
	require.Equal(t, 200, ctx.Response.StatusCode())

	var st ledger.InstallmentStatus
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &st))
	assert.Equal(t, float64(400), st.Paid)
	assert.Equal(t, float64(600), st.Balance)
	assert.Equal(t, model.PaymentStatusPartial, st.Status)
}

func TestApprovePaymentRequestTwice(t *testing.T) {
	h, l, _ := newTestHandler(t)
	g := seedChit(t, l)
	asha := seedChitMember(t, l, g.ChitGroupID, "Asha")

	pr, err := l.CreatePaymentRequest(model.PaymentCreateRequest{
		ChitGroupID: g.ChitGroupID, MemberID: asha.MemberID, MonthNo: 1, Amount: 1000, Mode: model.PaymentModeUPI,
	}, "screenshot attached")
	require.NoError(t, err)

	body, _ := json.Marshal(reviewPaymentRequest{ReviewedBy: "admin"})
	ctx := setupTestContext("POST", "/payment-requests/"+pr.PaymentRequestID+"/approve", body)
	ctx.SetUserValue("id", pr.PaymentRequestID)
	h.ApprovePaymentRequest(ctx)
	require.Equal(t, 200, ctx.Response.StatusCode())

	ctx = setupTestContext("POST", "/payment-requests/"+pr.PaymentRequestID+"/approve", body)
	ctx.SetUserValue("id", pr.PaymentRequestID)
	h.ApprovePaymentRequest(ctx)
	assert.Equal(t, 409, ctx.Response.StatusCode())
}

func TestSendReminders(t *testing.T) {
	t.Run("queued", func(t *testing.T) {
		h, l, reminders := newTestHandler(t)
		g := seedChit(t, l)
		reminders.queued = 3

		ctx := setupTestContext("POST", "/chits/"+g.ChitGroupID+"/reminders?month=2", nil)
		ctx.SetUserValue("id", g.ChitGroupID)
		h.SendReminders(ctx)

		assert.Equal(t, 202, ctx.Response.StatusCode())
		var resp remindersResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
		assert.Equal(t, 3, resp.Queued)
		assert.Equal(t, 1, reminders.calls)
	})

	t.Run("unknown group", func(t *testing.T) {
		h, _, reminders := newTestHandler(t)
		reminders.err = ledger.ErrGroupNotFound

		ctx := setupTestContext("POST", "/chits/missing/reminders?month=2", nil)
		ctx.SetUserValue("id", "missing")
		h.SendReminders(ctx)
		assert.Equal(t, 404, ctx.Response.StatusCode())
	})

	t.Run("bad month", func(t *testing.T) {
		h, _, reminders := newTestHandler(t)
		ctx := setupTestContext("POST", "/chits/g1/reminders?month=zero", nil)
		ctx.SetUserValue("id", "g1")
		h.SendReminders(ctx)
		assert.Equal(t, 400, ctx.Response.StatusCode())
		assert.Equal(t, 0, reminders.calls)
	})

	t.Run("not configured", func(t *testing.T) {
		l, err := ledger.New(nullStore{})
		require.NoError(t, err)
		h := NewLedgerHandler(l, nil)
		ctx := setupTestContext("POST", "/chits/g1/reminders?month=1", nil)
		ctx.SetUserValue("id", "g1")
		h.SendReminders(ctx)
		assert.Equal(t, 503, ctx.Response.StatusCode())
	})
}

func TestBulkCreateMembers(t *testing.T) {
	h, l, _ := newTestHandler(t)
	g := seedChit(t, l)

	body, _ := json.Marshal([]createMemberRequest{
		{Name: "Asha", Mobile: "9876543210", ChitGroupID: g.ChitGroupID},
		{Name: "", Mobile: "9876543211", ChitGroupID: g.ChitGroupID},
		{Name: "Chitra", Mobile: "9876543212", ChitGroupID: g.ChitGroupID},
	})
	ctx := setupTestContext("POST", "/members/bulk", body)
	h.BulkCreateMembers(ctx)

	require.Equal(t, 200, ctx.Response.StatusCode())
	var resp map[string]int
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.Equal(t, 2, resp["added"])
	assert.Equal(t, 1, resp["skipped"])
}

func TestUpdateSettings(t *testing.T) {
	h, l, _ := newTestHandler(t)

	appURL := "https://chit.example.in"
	body, _ := json.Marshal(updateSettingsRequest{AppURL: &appURL})
	ctx := setupTestContext("PATCH", "/settings", body)
	h.UpdateSettings(ctx)

	require.Equal(t, 200, ctx.Response.StatusCode())
	assert.Equal(t, appURL, l.Settings().AppURL)

	ctx = setupTestContext("GET", "/settings", nil)
	h.GetSettings(ctx)
	var s model.MasterSettings
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &s))
	assert.Equal(t, appURL, s.AppURL)
}
