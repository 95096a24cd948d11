package repository

import "time"

// SnapshotRowID is the fixed key of the single-row storage pattern: the
// whole dataset lives in exactly one row, locally and remotely.
const SnapshotRowID int64 = 1

type SnapshotEntity struct {
	ID        int64     `db:"id"         gorm:"primaryKey;column:id"`
	Data      []byte    `db:"data"       gorm:"column:data;not null"`
	UpdatedAt time.Time `db:"updated_at" gorm:"column:updated_at;not null"`
}

func (SnapshotEntity) TableName() string { return "ledger_snapshots" }
