package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/bhadrakali/chit-ledger/internal/model"
	"github.com/bhadrakali/chit-ledger/internal/remote"
	"github.com/bhadrakali/chit-ledger/pkg/logger"
	"github.com/bhadrakali/chit-ledger/pkg/prom"
)

// Outcome is what a sync cycle did.
type Outcome string

const (
	OutcomeNoop    Outcome = "noop"
	OutcomeAdopted Outcome = "adopted_remote"
	OutcomePushed  Outcome = "pushed_local"
)

// Local is the ledger surface the engine reconciles against.
type Local interface {
	Snapshot() *model.Dataset
	LastUpdated() time.Time
	Adopt(ds *model.Dataset)
}

// Engine runs one whole-snapshot reconciliation pass at a time. The newer
// side wins on lastUpdated, with one guard: a non-empty remote never loses
// to an empty local, whatever the stamps say. That is the data-loss guard
// for a fresh install pointed at a live backend.
type Engine struct {
	local  Local
	remote remote.Store
}

func NewEngine(local Local, store remote.Store) *Engine {
	if store == nil {
		store = remote.Disabled{}
	}
	return &Engine{local: local, remote: store}
}

// Sync runs one reconciliation cycle. An unconfigured remote is a silent
// no-op; a fetch or push failure abandons the cycle with local state
// untouched, leaving retry to the caller's next cycle.
func (e *Engine) Sync(ctx context.Context) (Outcome, error) {
	start := time.Now()
	outcome, err := e.sync(ctx)
	if err != nil {
		prom.ObserveSyncCycle("failed", time.Since(start).Seconds())
		return outcome, err
	}
	prom.ObserveSyncCycle(string(outcome), time.Since(start).Seconds())
	return outcome, nil
}

func (e *Engine) sync(ctx context.Context) (Outcome, error) {
	theirs, err := e.remote.Fetch(ctx)
	switch {
	case errors.Is(err, remote.ErrUnconfigured):
		return OutcomeNoop, nil
	case errors.Is(err, remote.ErrNoSnapshot):
		theirs = nil
	case err != nil:
		return OutcomeNoop, err
	}

	ours := e.local.Snapshot()

	if theirs != nil {
		if !theirs.Empty() && ours.Empty() {
			logger.Info("adopting remote snapshot, local has no data",
				"remoteUpdated", theirs.LastUpdated)
			e.local.Adopt(theirs)
			return OutcomeAdopted, nil
		}
		if theirs.LastUpdated.After(ours.LastUpdated) {
			logger.Info("adopting newer remote snapshot",
				"remoteUpdated", theirs.LastUpdated, "localUpdated", ours.LastUpdated)
			e.local.Adopt(theirs)
			return OutcomeAdopted, nil
		}
	}

	if err := e.remote.Upsert(ctx, ours); err != nil {
		return OutcomeNoop, err
	}
	return OutcomePushed, nil
}
