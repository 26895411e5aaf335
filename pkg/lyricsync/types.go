package lyricsync

import (
	"errors"
	"time"

	"github.com/himanishpuri/LyricSync/pkg/models"
)

var (
	ErrMissingAudio  = errors.New("audio is required")
	ErrMissingLyrics = errors.New("lyrics are required")
	ErrSyncNotFound  = errors.New("sync not found")
	// ErrPersistenceDisabled is returned by lookups on a service built with WithPersist(false).
	ErrPersistenceDisabled = errors.New("persistence is disabled")
)

// Where the audio of a sync came from.
const (
	SourceUpload  = "upload"
	SourceURL     = "url"
	SourceYouTube = "youtube"
)

// Source describes the origin of the audio passed to SyncLyrics.
type Source struct {
	Kind string // SourceUpload, SourceURL or SourceYouTube
	URL  string // original location, empty for uploads
	Name string // title or file name if known
}

// SyncResult is the outcome of one transcribe-and-align run.
type SyncResult struct {
	ID                 string                     `json:"id,omitempty"` // empty when not persisted
	Lines              []models.AlignedLine       `json:"syncedLyrics"`
	Segments           []models.TranscriptSegment `json:"segments"`
	TranscriptSegments int                        `json:"whisperSegments"`
	AlignedSegments    int                        `json:"alignedSegments"`
	MatchedLines       int                        `json:"matchedLines"`
	FallbackLines      int                        `json:"fallbackLines"`
	OverrunLines       int                        `json:"overrunLines"` // lines ending after the audio does
	DurationSec        float64                    `json:"durationSec"`
	Engine             string                     `json:"engine"`
	CreatedAt          time.Time                  `json:"createdAt"`
}

// Stats summarises stored data.
type Stats struct {
	Syncs  int64  `json:"syncs"`
	Lines  int64  `json:"lines"`
	Engine string `json:"engine"`
}
