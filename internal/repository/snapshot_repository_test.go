package repository

import (
	"testing"
	"time"

	"github.com/bhadrakali/chit-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestRepo(t *testing.T) *SnapshotRepository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	repo := NewSnapshotRepository(db)
	require.NoError(t, repo.Migrate())
	return repo
}

func TestSnapshotRepository_LoadMissing(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.Load()
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSnapshotRepository_SaveAndLoad(t *testing.T) {
	repo := setupTestRepo(t)

	ds := model.NewDataset()
	ds.Members = append(ds.Members, model.Member{MemberID: "m1", Name: "Lakshmi", Mobile: "9876543210", IsActive: true})
	ds.LastUpdated = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ds))

	loaded, err := repo.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Members, 1)
	assert.Equal(t, "Lakshmi", loaded.Members[0].Name)
	assert.True(t, loaded.LastUpdated.Equal(ds.LastUpdated))
}

func TestSnapshotRepository_SaveOverwritesSingleRow(t *testing.T) {
	repo := setupTestRepo(t)

	first := model.NewDataset()
	first.Members = append(first.Members, model.Member{MemberID: "m1", Name: "A"})
	first.LastUpdated = time.Now().UTC()
	require.NoError(t, repo.Save(first))

	second := model.NewDataset()
	second.Members = append(second.Members, model.Member{MemberID: "m2", Name: "B"})
	second.LastUpdated = first.LastUpdated.Add(time.Second)
	require.NoError(t, repo.Save(second))

	loaded, err := repo.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Members, 1)
	assert.Equal(t, "m2", loaded.Members[0].MemberID)
}

func TestSnapshotRepository_CorruptBlobDegradesToDefaults(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	repo := NewSnapshotRepository(db)
	require.NoError(t, repo.Migrate())

	corrupt := SnapshotEntity{ID: SnapshotRowID, Data: []byte("{not json"), UpdatedAt: time.Now()}
	require.NoError(t, db.Create(&corrupt).Error)

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded.Members)
	assert.Empty(t, loaded.Chits)
	assert.NotEmpty(t, loaded.Settings.WhatsappConfig.ReminderTemplate)
}
