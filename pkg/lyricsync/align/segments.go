package align

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/himanishpuri/LyricSync/pkg/models"
)

// ErrNoSegments is returned by DecodeSegments for input that is neither a
// segment array nor an object with a "segments" array.
var ErrNoSegments = errors.New("no transcript segments found")

// DecodeSegments reads transcript segments from JSON. It accepts a bare
// array of {text,start,end} objects or a whisper verbose_json document,
// whose "segments" field is used.
func DecodeSegments(data []byte) ([]models.TranscriptSegment, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNoSegments
	}

	var segments []models.TranscriptSegment
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &segments); err != nil {
			return nil, fmt.Errorf("decode segments: %w", err)
		}
	case '{':
		var doc struct {
			Segments *[]models.TranscriptSegment `json:"segments"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
		if doc.Segments == nil {
			return nil, ErrNoSegments
		}
		segments = *doc.Segments
	default:
		return nil, ErrNoSegments
	}

	if segments == nil {
		segments = []models.TranscriptSegment{}
	}
	return segments, nil
}
