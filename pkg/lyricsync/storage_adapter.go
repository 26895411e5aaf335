package lyricsync

import (
	"errors"

	"github.com/himanishpuri/LyricSync/pkg/lyricsync/storage"
	"github.com/himanishpuri/LyricSync/pkg/models"
	"gorm.io/gorm"
)

// storageAdapter adapts storage.DBClient to the Storage interface and maps
// gorm's not-found error to ErrSyncNotFound.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage creates a new SQLite storage backend.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func (s *storageAdapter) CreateSync(sync *models.Sync) (string, error) {
	return s.db.CreateSync(sync)
}

func (s *storageAdapter) GetSync(id string) (*models.Sync, error) {
	sync, err := s.db.GetSync(id)
	return sync, mapNotFound(err)
}

func (s *storageAdapter) ListSyncs(limit int) ([]models.Sync, error) {
	return s.db.ListSyncs(limit)
}

func (s *storageAdapter) DeleteSync(id string) error {
	return mapNotFound(s.db.DeleteSync(id))
}

func (s *storageAdapter) Counts() (int64, int64, error) {
	return s.db.Counts()
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSyncNotFound
	}
	return err
}
