package models

import "time"

// Sync represents a stored lyric synchronization run.
type Sync struct {
	ID                 string       // Database ID (UUID)
	Source             string       // "upload", "url", "youtube" or "align"
	SourceURL          string       // Audio URL (if downloaded)
	Engine             string       // Transcription engine name
	Lyrics             string       // Raw lyric text as submitted
	TranscriptSegments int          // Segments returned by the engine
	MatchedLines       int          // Lines anchored to a transcript segment
	FallbackLines      int          // Lines with synthetic timing
	DurationSec        float64      // Audio duration in seconds (0 if unknown)
	Lines              []SyncedLine // Aligned lines in output order
	CreatedAt          time.Time    // Creation time
}

// SyncedLine is a stored aligned line together with the segment it was
// anchored to. SegmentIndex is -1 for fallback lines.
type SyncedLine struct {
	AlignedLine
	SegmentIndex int
	Ratio        float64
}

// Matched reports whether the line was anchored to a transcript segment.
func (l SyncedLine) Matched() bool {
	return l.SegmentIndex >= 0
}
