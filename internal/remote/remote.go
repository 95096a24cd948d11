package remote

import (
	"context"
	"errors"

	"github.com/bhadrakali/chit-ledger/internal/model"
)

var (
	// ErrUnconfigured means no remote backend was set up; sync cycles
	// against it are silent no-ops.
	ErrUnconfigured = errors.New("remote store not configured")

	// ErrNoSnapshot means the remote row does not exist yet.
	ErrNoSnapshot = errors.New("remote has no snapshot row")
)

// Store is the single-row remote home of the dataset blob. Exactly one
// snapshot row exists per deployment; Upsert creates it on first push.
type Store interface {
	Fetch(ctx context.Context) (*model.Dataset, error)
	Upsert(ctx context.Context, ds *model.Dataset) error
}

// Disabled satisfies Store for deployments that run purely local.
type Disabled struct{}

func (Disabled) Fetch(context.Context) (*model.Dataset, error)       { return nil, ErrUnconfigured }
func (Disabled) Upsert(context.Context, *model.Dataset) error        { return ErrUnconfigured }
