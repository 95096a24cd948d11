package remote

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bhadrakali/chit-ledger/internal/model"
	"github.com/bhadrakali/chit-ledger/pkg/pg"
)

// snapshotRecord mirrors the goose-managed ledger_snapshots table on the
// self-hosted Postgres remote.
type snapshotRecord struct {
	ID        int    `gorm:"primaryKey"`
	Data      []byte `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

func (snapshotRecord) TableName() string {
	return "ledger_snapshots"
}

// PostgresStore keeps the remote snapshot row in a self-hosted Postgres,
// for deployments that do not want a hosted REST backend.
type PostgresStore struct {
	db    *pg.DB
	rowID int
}

func NewPostgresStore(db *pg.DB, rowID int) *PostgresStore {
	if rowID == 0 {
		rowID = 1
	}
	return &PostgresStore{db: db, rowID: rowID}
}

func (s *PostgresStore) Fetch(ctx context.Context) (*model.Dataset, error) {
	var rec snapshotRecord
	err := s.db.Read(ctx).First(&rec, "id = ?", s.rowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}

	ds := model.DecodeDataset(rec.Data)
	if ds.LastUpdated.IsZero() {
		ds.LastUpdated = rec.UpdatedAt
	}
	return ds, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, ds *model.Dataset) error {
	blob, err := ds.Encode()
	if err != nil {
		return err
	}
	rec := snapshotRecord{ID: s.rowID, Data: blob, UpdatedAt: ds.LastUpdated}
	return s.db.Write(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&rec).Error
}
