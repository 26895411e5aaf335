//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/himanishpuri/LyricSync/pkg/models"
	"github.com/himanishpuri/LyricSync/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "lyricsync.sqlite3"
const errDBClientNil = "db client is nil"

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type SyncRecord struct {
	ID                 string    `gorm:"primaryKey;type:varchar(36)"`
	Source             string    `gorm:"index:idx_sync_source" json:"source"`
	SourceURL          string    `json:"source_url"`
	Engine             string    `json:"engine"`
	Lyrics             string    `json:"lyrics"`
	TranscriptSegments int       `json:"transcript_segments"`
	MatchedLines       int       `json:"matched_lines"`
	FallbackLines      int       `json:"fallback_lines"`
	DurationSec        float64   `json:"duration_sec"`
	CreatedAt          time.Time `gorm:"index:idx_sync_created"`

	Lines []SyncedLineRecord `gorm:"foreignKey:SyncID;constraint:OnDelete:CASCADE"`
}

func (SyncRecord) TableName() string { return "syncs" }

type SyncedLineRecord struct {
	ID           uint    `gorm:"primaryKey;autoIncrement"`
	SyncID       string  `gorm:"type:varchar(36);index:idx_line_sync,priority:1" json:"sync_id"`
	Position     int     `gorm:"index:idx_line_sync,priority:2" json:"position"`
	StartSec     float64 `json:"start_sec"`
	EndSec       float64 `json:"end_sec"`
	Text         string  `json:"text"`
	SegmentIndex int     `json:"segment_index"`
	Ratio        float64 `json:"ratio"`
}

func (SyncedLineRecord) TableName() string { return "synced_lines" }

// NewDBClient opens the database named by LYRICSYNC_DB_PATH, or DefaultDBFile.
func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("LYRICSYNC_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&SyncRecord{}, &SyncedLineRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// CreateSync stores s and its lines in one transaction. An empty s.ID is
// replaced by a new UUID; a zero CreatedAt by the current time. The stored
// ID is returned.
func (c *DBClient) CreateSync(s *models.Sync) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}
	if s.ID == "" {
		s.ID = utils.NewID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	rec := toRecord(s)
	err := c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Create(&rec).Error; err != nil {
			return fmt.Errorf("creating sync: %w", err)
		}
		if len(rec.Lines) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rec.Lines, 500).Error; err != nil {
			return fmt.Errorf("inserting synced lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return s.ID, nil
}

// GetSync loads a sync with its lines in output order. A missing ID yields
// gorm.ErrRecordNotFound.
func (c *DBClient) GetSync(id string) (*models.Sync, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rec SyncRecord
	err := c.DB.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	s := fromRecord(rec)
	return &s, nil
}

// ListSyncs returns syncs newest first without their lines. limit <= 0 means no limit.
func (c *DBClient) ListSyncs(limit int) ([]models.Sync, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	q := c.DB.Order("created_at DESC").Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []SyncRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing syncs: %w", err)
	}
	out := make([]models.Sync, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRecord(r))
	}
	return out, nil
}

// DeleteSync removes a sync and its lines. Deleting an unknown ID yields
// gorm.ErrRecordNotFound.
func (c *DBClient) DeleteSync(id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sync_id = ?", id).Delete(&SyncedLineRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&SyncRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// Counts returns the number of stored syncs and lines.
func (c *DBClient) Counts() (syncs, lines int64, err error) {
	if c == nil || c.DB == nil {
		return 0, 0, errors.New(errDBClientNil)
	}
	if err := c.DB.Model(&SyncRecord{}).Count(&syncs).Error; err != nil {
		return 0, 0, fmt.Errorf("counting syncs: %w", err)
	}
	if err := c.DB.Model(&SyncedLineRecord{}).Count(&lines).Error; err != nil {
		return 0, 0, fmt.Errorf("counting lines: %w", err)
	}
	return syncs, lines, nil
}

func toRecord(s *models.Sync) SyncRecord {
	rec := SyncRecord{
		ID:                 s.ID,
		Source:             s.Source,
		SourceURL:          s.SourceURL,
		Engine:             s.Engine,
		Lyrics:             s.Lyrics,
		TranscriptSegments: s.TranscriptSegments,
		MatchedLines:       s.MatchedLines,
		FallbackLines:      s.FallbackLines,
		DurationSec:        s.DurationSec,
		CreatedAt:          s.CreatedAt,
		Lines:              make([]SyncedLineRecord, 0, len(s.Lines)),
	}
	for i, l := range s.Lines {
		rec.Lines = append(rec.Lines, SyncedLineRecord{
			SyncID:       s.ID,
			Position:     i,
			StartSec:     l.Start,
			EndSec:       l.End,
			Text:         l.Text,
			SegmentIndex: l.SegmentIndex,
			Ratio:        l.Ratio,
		})
	}
	return rec
}

func fromRecord(r SyncRecord) models.Sync {
	s := models.Sync{
		ID:                 r.ID,
		Source:             r.Source,
		SourceURL:          r.SourceURL,
		Engine:             r.Engine,
		Lyrics:             r.Lyrics,
		TranscriptSegments: r.TranscriptSegments,
		MatchedLines:       r.MatchedLines,
		FallbackLines:      r.FallbackLines,
		DurationSec:        r.DurationSec,
		CreatedAt:          r.CreatedAt,
	}
	if len(r.Lines) > 0 {
		s.Lines = make([]models.SyncedLine, 0, len(r.Lines))
		for _, l := range r.Lines {
			s.Lines = append(s.Lines, models.SyncedLine{
				AlignedLine:  models.AlignedLine{Start: l.StartSec, End: l.EndSec, Text: l.Text},
				SegmentIndex: l.SegmentIndex,
				Ratio:        l.Ratio,
			})
		}
	}
	return s
}
