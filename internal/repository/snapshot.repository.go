package repository

import (
	"errors"

	"github.com/bhadrakali/chit-ledger/internal/model"
	"github.com/bhadrakali/chit-ledger/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNoSnapshot is returned when the snapshot row has never been written.
	ErrNoSnapshot = errors.New("snapshot not found")
)

// SnapshotRepository stores the single-row dataset blob. The same
// repository works over the local sqlite file and over a self-hosted
// Postgres remote copy; only the *gorm.DB handed in differs.
type SnapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Migrate creates the snapshot table if it does not exist. The Postgres
// remote copy is migrated with goose instead (see migrations/).
func (r *SnapshotRepository) Migrate() error {
	return r.db.AutoMigrate(&SnapshotEntity{})
}

// Load reads and decodes the snapshot row. A missing row yields
// ErrNoSnapshot; a corrupt blob degrades to defaults rather than failing.
func (r *SnapshotRepository) Load() (*model.Dataset, error) {
	var entity SnapshotEntity
	err := r.db.First(&entity, "id = ?", SnapshotRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return model.DecodeDataset(entity.Data), nil
}

// Save upserts the snapshot row with the dataset's own lastUpdated stamp.
func (r *SnapshotRepository) Save(ds *model.Dataset) error {
	data, err := ds.Encode()
	if err != nil {
		return err
	}
	entity := SnapshotEntity{
		ID:        SnapshotRowID,
		Data:      data,
		UpdatedAt: ds.LastUpdated,
	}
	err = r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&entity).Error
	if err != nil {
		logger.Error("snapshot save failed", "error", err)
		return err
	}
	return nil
}
