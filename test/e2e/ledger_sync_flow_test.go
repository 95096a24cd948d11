package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhadrakali/chit-ledger/internal/ledger"
	"github.com/bhadrakali/chit-ledger/internal/model"
	"github.com/bhadrakali/chit-ledger/internal/notify"
	"github.com/bhadrakali/chit-ledger/internal/queue"
	"github.com/bhadrakali/chit-ledger/internal/reconcile"
	"github.com/bhadrakali/chit-ledger/internal/remote"
	"github.com/bhadrakali/chit-ledger/test/fixtures"
	"github.com/bhadrakali/chit-ledger/test/helpers"
)

// fakeSnapshotHost is an in-memory single-row PostgREST endpoint, the
// contract the REST remote store speaks in production.
type fakeSnapshotHost struct {
	mu  sync.Mutex
	row *hostRow
}

type hostRow struct {
	ID        int             `json:"id"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (h *fakeSnapshotHost) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		defer h.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			if h.row == nil {
				w.Write([]byte("[]"))
				return
			}
			json.NewEncoder(w).Encode([]hostRow{*h.row})
		case http.MethodPatch:
			if h.row == nil {
				w.Write([]byte("[]"))
				return
			}
			var incoming hostRow
			json.NewDecoder(r.Body).Decode(&incoming)
			h.row.Data = incoming.Data
			h.row.UpdatedAt = incoming.UpdatedAt
			json.NewEncoder(w).Encode([]hostRow{*h.row})
		case http.MethodPost:
			var incoming hostRow
			json.NewDecoder(r.Body).Decode(&incoming)
			h.row = &incoming
			w.WriteHeader(http.StatusCreated)
		}
	}
}

func (h *fakeSnapshotHost) stored(t *testing.T) *model.Dataset {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.row == nil {
		return nil
	}
	ds := &model.Dataset{}
	require.NoError(t, json.Unmarshal(h.row.Data, ds))
	return ds
}

type device struct {
	book      *ledger.Ledger
	scheduler *reconcile.Scheduler
}

// newDevice wires a full local stack the way cmd/api does: sqlite-backed
// snapshot repo, ledger, REST remote store, engine and scheduler with a
// short debounce.
func newDevice(t *testing.T, hostURL string) *device {
	t.Helper()

	repo := helpers.SetupSnapshotRepo(t)
	book, err := ledger.New(repo)
	require.NoError(t, err)

	store, err := remote.NewRESTStore(remote.RESTConfig{
		BaseURL: hostURL,
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
	})
	require.NoError(t, err)

	engine := reconcile.NewEngine(book, store)
	scheduler := reconcile.NewScheduler(engine, reconcile.SchedulerConfig{
		Debounce:    20 * time.Millisecond,
		SyncTimeout: 2 * time.Second,
	})
	book.SetDirtySignal(scheduler)
	t.Cleanup(scheduler.Close)

	return &device{book: book, scheduler: scheduler}
}

func TestMutationsFlowToRemoteAndBack(t *testing.T) {
	host := &fakeSnapshotHost{}
	srv := httptest.NewServer(host.handler())
	defer srv.Close()

	// Device A records a month of activity.
	a := newDevice(t, srv.URL)
	g, err := a.book.AddChitGroup(fixtures.TestGroupSmall)
	require.NoError(t, err)
	asha, err := a.book.AddMember(fixtures.NewTestMember("Asha", "9876543210", g.ChitGroupID))
	require.NoError(t, err)
	_, err = a.book.RecordPayment(fixtures.NewTestPayment(g.ChitGroupID, asha.MemberID, 1, 1000))
	require.NoError(t, err)

	// The debounced push lands the whole snapshot on the host.
	helpers.AssertEventually(t, 3*time.Second, func() bool {
		ds := host.stored(t)
		return ds != nil && len(ds.Payments) == 1
	}, "snapshot never reached the remote")
	assert.False(t, a.scheduler.Dirty())

	// Device B starts empty and adopts the remote copy wholesale.
	b := newDevice(t, srv.URL)
	require.True(t, b.book.Snapshot().Empty())

	b.scheduler.SyncNow()
	helpers.AssertEventually(t, 3*time.Second, func() bool {
		return !b.book.Snapshot().Empty()
	}, "device B never adopted the remote snapshot")

	chits := b.book.Chits()
	require.Len(t, chits, 1)
	assert.Equal(t, g.ChitGroupID, chits[0].ChitGroupID)
	st := b.book.InstallmentStatusFor(g.ChitGroupID, asha.MemberID, 1)
	assert.Equal(t, model.PaymentStatusPaid, st.Status)
}

func TestEmptyLocalNeverOverwritesRemote(t *testing.T) {
	host := &fakeSnapshotHost{}
	srv := httptest.NewServer(host.handler())
	defer srv.Close()

	// Seed the host with an older, non-empty snapshot.
	seeded := fixtures.SeededDataset(time.Now().UTC().Add(-time.Hour))
	blob, err := seeded.Encode()
	require.NoError(t, err)
	host.row = &hostRow{ID: 1, Data: blob, UpdatedAt: seeded.LastUpdated}

	// A fresh device has an empty dataset with a NEWER stamp (first-run
	// admin seeding bumps lastUpdated). It must still adopt, not push.
	c := newDevice(t, srv.URL)
	require.True(t, c.book.Snapshot().Empty())
	require.True(t, c.book.LastUpdated().After(seeded.LastUpdated))

	c.scheduler.SyncNow()
	helpers.AssertEventually(t, 3*time.Second, func() bool {
		return !c.book.Snapshot().Empty()
	}, "empty device never adopted the remote snapshot")

	remoteDS := host.stored(t)
	assert.Len(t, remoteDS.Chits, 1, "remote snapshot must survive untouched")
	assert.Len(t, c.book.Members(), 2)
}

func TestPaymentReceiptReachesSender(t *testing.T) {
	mr, adapter := helpers.SetupTestRedis(t)
	defer mr.Close()

	q, err := queue.NewQueue(adapter, queue.Config{
		Name:          "outbox:" + t.Name(),
		ConsumerGroup: "notify",
		PollInterval:  50 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { q.Stop(time.Second) })

	repo := helpers.SetupSnapshotRepo(t)
	book, err := ledger.New(repo)
	require.NoError(t, err)

	outbox := notify.NewOutbox(book, q, adapter, notify.OutboxConfig{DedupTTL: time.Hour})
	book.SetNotifier(outbox)

	var (
		mu   sync.Mutex
		sent []notify.OutboundMessage
	)
	dispatcher := notify.NewDispatcher(q, senderFunc(func(_ context.Context, msg *notify.OutboundMessage) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, *msg)
		return nil
	}), notify.DispatcherConfig{Workers: 2})
	require.NoError(t, dispatcher.Start())
	t.Cleanup(func() { dispatcher.Stop(time.Second) })

	g, err := book.AddChitGroup(fixtures.TestGroupSmall)
	require.NoError(t, err)
	asha, err := book.AddMember(fixtures.NewTestMember("Asha", "9876543210", g.ChitGroupID))
	require.NoError(t, err)
	_, err = book.RecordPayment(fixtures.NewTestPayment(g.ChitGroupID, asha.MemberID, 1, 400))
	require.NoError(t, err)

	helpers.AssertEventually(t, 3*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sent) == 1
	}, "receipt never reached the sender")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, notify.KindReceipt, sent[0].Kind)
	assert.Equal(t, asha.MemberID, sent[0].MemberID)
	assert.Contains(t, sent[0].Text, "400")
}

type senderFunc func(ctx context.Context, msg *notify.OutboundMessage) error

func (f senderFunc) Send(ctx context.Context, msg *notify.OutboundMessage) error {
	return f(ctx, msg)
}
