package lyricsync

import (
	"context"

	"github.com/himanishpuri/LyricSync/pkg/lyricsync/transcribe"
	"github.com/himanishpuri/LyricSync/pkg/models"
)

type Service interface {
	Transcribe(ctx context.Context, audioPath string) (*transcribe.Transcript, error)
	SyncLyrics(ctx context.Context, audioPath, lyrics string, src Source) (*SyncResult, error)
	SyncLyricsFromURL(ctx context.Context, audioURL, lyrics string) (*SyncResult, error)
	Align(segments []models.TranscriptSegment, lyrics string) []models.AlignedLine
	GetSync(id string) (*models.Sync, error)
	ListSyncs(limit int) ([]models.Sync, error)
	DeleteSync(id string) error
	Stats() (*Stats, error)
	EngineName() string
	Close() error
}

type Storage interface {
	CreateSync(s *models.Sync) (string, error)
	GetSync(id string) (*models.Sync, error)
	ListSyncs(limit int) ([]models.Sync, error)
	DeleteSync(id string) error
	Counts() (syncs, lines int64, err error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
