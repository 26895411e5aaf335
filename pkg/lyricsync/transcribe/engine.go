package transcribe

import (
	"context"
	"strings"

	"github.com/himanishpuri/LyricSync/pkg/models"
)

// Transcript is the output of one engine run.
type Transcript struct {
	Text     string                     `json:"text"`
	Language string                     `json:"language,omitempty"`
	Duration float64                    `json:"duration,omitempty"` // seconds, 0 if the engine did not report it
	Segments []models.TranscriptSegment `json:"segments"`
}

// Engine turns an audio file into timestamped transcript segments.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string) (*Transcript, error)
	// Name identifies the engine and model, e.g. "whisper-python:base".
	Name() string
}

// rawSegment is the segment shape shared by whisper's verbose JSON and the
// helper script.
type rawSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type rawTranscript struct {
	Text     string       `json:"text"`
	Language string       `json:"language"`
	Duration float64      `json:"duration"`
	Segments []rawSegment `json:"segments"`
}

func (r rawTranscript) toTranscript() *Transcript {
	tr := &Transcript{
		Text:     strings.TrimSpace(r.Text),
		Language: r.Language,
		Duration: r.Duration,
		Segments: make([]models.TranscriptSegment, 0, len(r.Segments)),
	}
	for _, s := range r.Segments {
		tr.Segments = append(tr.Segments, models.TranscriptSegment{
			Text:  strings.TrimSpace(s.Text),
			Start: s.Start,
			End:   s.End,
		})
	}
	if tr.Duration == 0 && len(tr.Segments) > 0 {
		tr.Duration = tr.Segments[len(tr.Segments)-1].End
	}
	return tr
}
