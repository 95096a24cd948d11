package ledger

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/bhadrakali/chit-ledger/internal/model"
	"github.com/bhadrakali/chit-ledger/internal/repository"
	"github.com/bhadrakali/chit-ledger/pkg/logger"
	"github.com/google/uuid"
)

// SnapshotStore is the durable local home of the dataset blob.
type SnapshotStore interface {
	Load() (*model.Dataset, error)
	Save(ds *model.Dataset) error
}

// DirtySignal is raised after every successful mutation; the reconcile
// scheduler owns the debounce window behind it.
type DirtySignal interface {
	MarkDirty()
}

// Notifier receives fire-and-forget messaging hooks. The ledger never
// consumes a return value from it.
type Notifier interface {
	PaymentRecorded(payment model.Payment)
}

// Ledger owns the in-memory dataset and applies every mutation with its
// cascade, so the cross-entity invariants hold the moment a call returns.
// One Ledger is constructed per process with injected collaborators; there
// is no package-level instance.
type Ledger struct {
	mu     sync.Mutex
	data   *model.Dataset
	store  SnapshotStore
	signal DirtySignal

	notifier  Notifier
	now       func() time.Time
	newID     func() string
	seedUser  string
	seedHash  string
}

type Option func(*Ledger)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator overrides entity ID minting, mainly for tests.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

// WithNotifier attaches the messaging collaborator.
func WithNotifier(n Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

// WithAdminSeed sets the operator account created on first run when the
// loaded snapshot has no users.
func WithAdminSeed(username, passwordHash string) Option {
	return func(l *Ledger) {
		l.seedUser = username
		l.seedHash = passwordHash
	}
}

// New loads the snapshot from the store and returns a ready ledger. A
// missing or corrupt snapshot degrades to defaults; it never fails
// initialization for shape reasons.
func New(store SnapshotStore, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		store:    store,
		now:      time.Now,
		newID:    uuid.NewString,
		seedUser: "admin",
	}
	for _, opt := range opts {
		opt(l)
	}

	ds, err := store.Load()
	switch {
	case errors.Is(err, repository.ErrNoSnapshot):
		ds = model.NewDataset()
	case err != nil:
		return nil, err
	}
	l.data = ds

	if len(l.data.Users) == 0 {
		l.data.Users = append(l.data.Users, model.User{
			UserID:       l.newID(),
			Name:         "Admin User",
			Role:         model.UserRoleAdmin,
			Username:     l.seedUser,
			PasswordHash: l.seedHash,
			IsActive:     true,
		})
		l.persistLocked()
	}
	return l, nil
}

// SetDirtySignal wires the scheduler in after construction; the scheduler
// itself needs the ledger, so the dependency cannot go through New.
func (l *Ledger) SetDirtySignal(sig DirtySignal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.signal = sig
}

// SetNotifier wires the outbox in after construction, for the same reason
// as SetDirtySignal: the outbox reads the ledger to compose messages.
func (l *Ledger) SetNotifier(n Notifier) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notifier = n
}

// persistLocked stamps a strictly-increasing lastUpdated and writes the
// snapshot. A write failure is logged, not raised: in-memory state stays
// authoritative for the session and durability resumes on the next write.
func (l *Ledger) persistLocked() {
	stamp := l.now().UTC()
	if !stamp.After(l.data.LastUpdated) {
		stamp = l.data.LastUpdated.Add(time.Millisecond)
	}
	l.data.LastUpdated = stamp
	if err := l.store.Save(l.data); err != nil {
		logger.Error("local snapshot write failed, in-memory state remains authoritative", "error", err)
	}
}

// commitLocked persists the mutation and raises the dirty signal. Called as
// the final step of every successful mutating operation.
func (l *Ledger) commitLocked() {
	l.persistLocked()
	if l.signal != nil {
		l.signal.MarkDirty()
	}
}

func (l *Ledger) date() string {
	return l.now().Format("2006-01-02")
}

/* --------------------------------- Getters -------------------------------- */

func (l *Ledger) Users() []model.User {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.User(nil), l.data.Users...)
}

func (l *Ledger) Chits() []model.ChitGroup {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.ChitGroup(nil), l.data.Chits...)
}

func (l *Ledger) Members() []model.Member {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Member(nil), l.data.Members...)
}

func (l *Ledger) Memberships() []model.GroupMembership {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.GroupMembership(nil), l.data.Memberships...)
}

func (l *Ledger) Installments() []model.InstallmentSchedule {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.InstallmentSchedule(nil), l.data.Installments...)
}

func (l *Ledger) Allotments() []model.Allotment {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Allotment(nil), l.data.Allotments...)
}

func (l *Ledger) Payments() []model.Payment {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Payment(nil), l.data.Payments...)
}

func (l *Ledger) PaymentRequests() []model.PaymentRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.PaymentRequest(nil), l.data.PaymentRequests...)
}

func (l *Ledger) Settings() model.MasterSettings {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data.Settings
}

// Snapshot returns a deep copy of the dataset for the reconcile engine.
func (l *Ledger) Snapshot() *model.Dataset {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data.Clone()
}

func (l *Ledger) LastUpdated() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data.LastUpdated
}

/* ----------------------------- Snapshot surface ---------------------------- */

// Adopt replaces the dataset with the given snapshot and persists it.
// Used when reconciliation decides the remote copy wins; it does not raise
// the dirty signal since the adopted state is, by definition, converged.
func (l *Ledger) Adopt(ds *model.Dataset) {
	l.mu.Lock()
	defer l.mu.Unlock()
	adopted := ds.Clone()
	adopted.Normalize()
	l.data = adopted
	l.persistLocked()
}

// Restore accepts an operator-supplied backup blob and treats it like a
// local mutation: replace state, persist, mark dirty so the next sync cycle
// pushes it outward. Unlike Load, a blob that does not parse is an error.
func (l *Ledger) Restore(blob []byte) error {
	ds := &model.Dataset{}
	if err := json.Unmarshal(blob, ds); err != nil {
		return err
	}
	ds.Normalize()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.data = ds
	l.commitLocked()
	return nil
}

// Export serializes the full snapshot for operator backup.
func (l *Ledger) Export() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return json.MarshalIndent(l.data, "", "  ")
}

// UpdateSettings applies partial settings changes.
func (l *Ledger) UpdateSettings(upd model.SettingsUpdate) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if upd.MastersPasswordHash != nil {
		l.data.Settings.MastersPasswordHash = *upd.MastersPasswordHash
	}
	if upd.LateFeeRules != nil {
		l.data.Settings.LateFeeRules = *upd.LateFeeRules
	}
	if upd.AppURL != nil {
		l.data.Settings.AppURL = *upd.AppURL
	}
	if upd.WhatsappConfig != nil {
		l.data.Settings.WhatsappConfig = *upd.WhatsappConfig
	}
	l.commitLocked()
}

/* --------------------------------- Lookups -------------------------------- */

func (l *Ledger) chitLocked(groupID string) (*model.ChitGroup, bool) {
	for i := range l.data.Chits {
		if l.data.Chits[i].ChitGroupID == groupID {
			return &l.data.Chits[i], true
		}
	}
	return nil, false
}

func (l *Ledger) memberLocked(memberID string) (*model.Member, bool) {
	for i := range l.data.Members {
		if l.data.Members[i].MemberID == memberID {
			return &l.data.Members[i], true
		}
	}
	return nil, false
}

func (l *Ledger) membershipCountLocked(groupID string) int {
	n := 0
	for i := range l.data.Memberships {
		if l.data.Memberships[i].ChitGroupID == groupID {
			n++
		}
	}
	return n
}
