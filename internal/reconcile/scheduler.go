package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/bhadrakali/chit-ledger/pkg/logger"
)

// SchedulerConfig tunes the debounce window and the per-cycle deadline.
type SchedulerConfig struct {
	Debounce    time.Duration
	SyncTimeout time.Duration
}

// Scheduler owns the dirty/syncing state machine. Mutations arrive through
// MarkDirty; a debounce window coalesces bursts into one cycle, and at most
// one cycle is in flight. Mutations landing mid-cycle coalesce into exactly
// one follow-up cycle.
type Scheduler struct {
	engine *Engine
	config SchedulerConfig

	mu      sync.Mutex
	timer   *time.Timer
	dirty   bool
	syncing bool
	pending bool
	mutSeq  uint64
	closed  bool
	wg      sync.WaitGroup

	onDirty func(bool)
	onSync  func(bool)
}

func NewScheduler(engine *Engine, config SchedulerConfig) *Scheduler {
	if config.Debounce == 0 {
		config.Debounce = 3 * time.Second
	}
	if config.SyncTimeout == 0 {
		config.SyncTimeout = 30 * time.Second
	}
	return &Scheduler{engine: engine, config: config}
}

// SetDirtyListener and SetSyncListener observe state flips, for the status
// endpoint and anything surfacing an indicator. Set before first use.
func (s *Scheduler) SetDirtyListener(fn func(dirty bool)) {
	s.mu.Lock()
	s.onDirty = fn
	s.mu.Unlock()
}

func (s *Scheduler) SetSyncListener(fn func(syncing bool)) {
	s.mu.Lock()
	s.onSync = fn
	s.mu.Unlock()
}

// MarkDirty records that local state moved and (re)arms the debounce timer.
// Persistence already happened by the time this is called; only the push
// outward is deferred.
func (s *Scheduler) MarkDirty() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mutSeq++
	wasDirty := s.dirty
	s.dirty = true
	if s.timer == nil {
		s.timer = time.AfterFunc(s.config.Debounce, s.fire)
	} else {
		s.timer.Reset(s.config.Debounce)
	}
	notify := s.onDirty
	s.mu.Unlock()

	if !wasDirty && notify != nil {
		notify(true)
	}
}

// SyncNow skips the debounce window and fires a cycle immediately. The
// single-flight rule still applies.
func (s *Scheduler) SyncNow() {
	s.mu.Lock()
	if !s.closed && s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.fire()
}

func (s *Scheduler) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Scheduler) Syncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncing
}

// Close stops the timer and waits for an in-flight cycle to finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// fire starts a cycle unless one is already running, in which case the
// request is parked and replayed when the running cycle ends.
func (s *Scheduler) fire() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.syncing {
		s.pending = true
		s.mu.Unlock()
		return
	}
	s.syncing = true
	seq := s.mutSeq
	notify := s.onSync
	s.wg.Add(1)
	s.mu.Unlock()

	if notify != nil {
		notify(true)
	}
	go s.runCycle(seq)
}

func (s *Scheduler) runCycle(seq uint64) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.SyncTimeout)
	outcome, err := s.engine.Sync(ctx)
	cancel()
	if err != nil {
		logger.Warn("sync cycle failed, staying dirty for retry", "error", err)
	} else {
		logger.Debug("sync cycle finished", "outcome", string(outcome))
	}

	s.mu.Lock()
	s.syncing = false
	// The cycle pushed the state it captured at seq. Later mutations mean
	// the dirty flag must survive this cycle.
	cleared := err == nil && s.mutSeq == seq && s.dirty
	if cleared {
		s.dirty = false
	}
	// A failure retries after another debounce window; so does any
	// mutation that arrived while the cycle ran.
	followUp := !s.closed && (s.pending || s.mutSeq != seq || err != nil)
	s.pending = false
	if followUp {
		if s.timer == nil {
			s.timer = time.AfterFunc(s.config.Debounce, s.fire)
		} else {
			s.timer.Reset(s.config.Debounce)
		}
	}
	notifySync := s.onSync
	notifyDirty := s.onDirty
	s.mu.Unlock()

	if notifySync != nil {
		notifySync(false)
	}
	if cleared && notifyDirty != nil {
		notifyDirty(false)
	}
}
