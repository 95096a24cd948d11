package handlers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhadrakali/chit-ledger/internal/ledger"
	"github.com/bhadrakali/chit-ledger/internal/model"
)

type stubSync struct {
	dirty    bool
	syncing  bool
	syncNows int
}

func (s *stubSync) Dirty() bool   { return s.dirty }
func (s *stubSync) Syncing() bool { return s.syncing }
func (s *stubSync) SyncNow()      { s.syncNows++ }

func newSyncHandler(t *testing.T) (*SyncHandler, *ledger.Ledger, *stubSync) {
	t.Helper()
	l, err := ledger.New(nullStore{})
	require.NoError(t, err)
	sync := &stubSync{}
	return NewSyncHandler(sync, l), l, sync
}

func TestSyncStatus(t *testing.T) {
	h, _, sync := newSyncHandler(t)
	sync.dirty = true

	ctx := setupTestContext("GET", "/sync/status", nil)
	h.Status(ctx)

	require.Equal(t, 200, ctx.Response.StatusCode())
	var resp syncStatusResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.True(t, resp.Dirty)
	assert.False(t, resp.Syncing)
}

func TestSyncTrigger(t *testing.T) {
	h, _, sync := newSyncHandler(t)

	ctx := setupTestContext("POST", "/sync/trigger", nil)
	h.Trigger(ctx)

	assert.Equal(t, 202, ctx.Response.StatusCode())
	assert.Equal(t, 1, sync.syncNows)
}

func TestSyncTriggerUnconfigured(t *testing.T) {
	l, err := ledger.New(nullStore{})
	require.NoError(t, err)
	h := NewSyncHandler(nil, l)

	ctx := setupTestContext("POST", "/sync/trigger", nil)
	h.Trigger(ctx)
	assert.Equal(t, 503, ctx.Response.StatusCode())
}

func TestBackupAndRestore(t *testing.T) {
	h, l, _ := newSyncHandler(t)
	g, err := l.AddChitGroup(model.ChitGroupCreateRequest{
		Name: "Vault A", TotalMonths: 6, StartMonth: "2025-04-01", MonthlyInstallmentRegular: 1000,
	})
	require.NoError(t, err)

	ctx := setupTestContext("GET", "/backup", nil)
	h.Backup(ctx)
	require.Equal(t, 200, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Header.Peek("Content-Disposition")), "attachment")
	blob := append([]byte(nil), ctx.Response.Body()...)

	// Restore into a fresh ledger brings the group back.
	other, err := ledger.New(nullStore{})
	require.NoError(t, err)
	h2 := NewSyncHandler(&stubSync{}, other)

	ctx = setupTestContext("POST", "/restore", blob)
	h2.Restore(ctx)
	require.Equal(t, 200, ctx.Response.StatusCode())

	chits := other.Chits()
	require.Len(t, chits, 1)
	assert.Equal(t, g.ChitGroupID, chits[0].ChitGroupID)
}

func TestRestoreRejectsGarbage(t *testing.T) {
	h, _, _ := newSyncHandler(t)

	ctx := setupTestContext("POST", "/restore", []byte("not a dataset"))
	h.Restore(ctx)
	assert.Equal(t, 400, ctx.Response.StatusCode())

	ctx = setupTestContext("POST", "/restore", nil)
	h.Restore(ctx)
	assert.Equal(t, 400, ctx.Response.StatusCode())
}

func TestHealth(t *testing.T) {
	h := NewHealthHandler(nil)
	ctx := setupTestContext("GET", "/health", nil)
	h.GetHealth(ctx)
	assert.Equal(t, "success", string(ctx.Response.Body()))
}
