package main

import (
	"fmt"
	"time"

	"github.com/himanishpuri/LyricSync/pkg/models"
)

// MaxAlignSegments bounds the transcript accepted by POST /api/align.
const MaxAlignSegments = 20000

// SyncLyricsRequest is the request body for POST /sync-lyrics
type SyncLyricsRequest struct {
	AudioURL string `json:"audioUrl"`
	Lyrics   string `json:"lyrics"`
}

// Validate checks if the request is valid
func (r *SyncLyricsRequest) Validate() error {
	if r.AudioURL == "" || r.Lyrics == "" {
		return fmt.Errorf("audioUrl and lyrics are required")
	}
	return nil
}

// SyncLyricsResponse keeps the field names existing web clients read.
type SyncLyricsResponse struct {
	Success         bool                 `json:"success"`
	SyncedLyrics    []models.AlignedLine `json:"syncedLyrics"`
	WhisperSegments int                  `json:"whisperSegments"`
	AlignedSegments int                  `json:"alignedSegments"`
	ID              string               `json:"id,omitempty"`
}

// TranscribeResponse is the response for POST /transcribe
type TranscribeResponse struct {
	Success       bool                       `json:"success"`
	Transcription string                     `json:"transcription"`
	Language      string                     `json:"language,omitempty"`
	Segments      []models.TranscriptSegment `json:"segments"`
}

// AlignRequest is the request body for POST /api/align
type AlignRequest struct {
	Segments []models.TranscriptSegment `json:"segments"`
	Lyrics   string                     `json:"lyrics"`
}

func (r *AlignRequest) Validate() error {
	if r.Lyrics == "" {
		return fmt.Errorf("lyrics are required")
	}
	if len(r.Segments) > MaxAlignSegments {
		return fmt.Errorf("too many segments: %d (maximum: %d)", len(r.Segments), MaxAlignSegments)
	}
	return nil
}

type AlignResponse struct {
	SyncedLyrics []models.AlignedLine `json:"syncedLyrics"`
	Count        int                  `json:"count"`
}

// SyncDTO represents a stored sync in API responses. Lines is omitted in listings.
type SyncDTO struct {
	ID                 string    `json:"id"`
	Source             string    `json:"source"`
	SourceURL          string    `json:"source_url,omitempty"`
	Engine             string    `json:"engine"`
	TranscriptSegments int       `json:"transcript_segments"`
	MatchedLines       int       `json:"matched_lines"`
	FallbackLines      int       `json:"fallback_lines"`
	DurationSec        float64   `json:"duration_sec"`
	CreatedAt          string    `json:"created_at"`
	Lyrics             string    `json:"lyrics,omitempty"`
	Lines              []LineDTO `json:"lines,omitempty"`
}

type LineDTO struct {
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Text         string  `json:"text"`
	Matched      bool    `json:"matched"`
	SegmentIndex int     `json:"segment_index"`
	Ratio        float64 `json:"ratio"`
}

// ListSyncsResponse is the response for GET /api/syncs
type ListSyncsResponse struct {
	Syncs []SyncDTO `json:"syncs"`
	Count int       `json:"count"`
}

// DeleteSyncResponse is the response for DELETE /api/syncs/{id}
type DeleteSyncResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// MetricsResponse provides server health and database metrics
type MetricsResponse struct {
	Status       string `json:"status"`
	DatabasePath string `json:"database_path,omitempty"`
	Persist      bool   `json:"persist"`
	SyncCount    int64  `json:"sync_count"`
	LineCount    int64  `json:"line_count"`
	SampleRate   int    `json:"sample_rate"`
	Engine       string `json:"engine"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func toSyncDTO(s *models.Sync, withLines bool) SyncDTO {
	dto := SyncDTO{
		ID:                 s.ID,
		Source:             s.Source,
		SourceURL:          s.SourceURL,
		Engine:             s.Engine,
		TranscriptSegments: s.TranscriptSegments,
		MatchedLines:       s.MatchedLines,
		FallbackLines:      s.FallbackLines,
		DurationSec:        s.DurationSec,
		CreatedAt:          s.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !withLines {
		return dto
	}
	dto.Lyrics = s.Lyrics
	dto.Lines = make([]LineDTO, len(s.Lines))
	for i, l := range s.Lines {
		dto.Lines[i] = LineDTO{
			Start:        l.Start,
			End:          l.End,
			Text:         l.Text,
			Matched:      l.Matched(),
			SegmentIndex: l.SegmentIndex,
			Ratio:        l.Ratio,
		}
	}
	return dto
}
