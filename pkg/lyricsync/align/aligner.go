// Package align assigns timestamps to lyric lines using the segments of a
// speech transcript.
//
// Every lyric line is matched greedily, in lyric order, against the transcript
// segments that are still unused. The most similar segment wins if its
// similarity ratio is above the threshold; the line then takes the segment's
// time span and the segment is consumed. Lines without a match get a fixed
// length span chained after the previously emitted line. The result is sorted
// by start time.
package align

import (
	"context"
	"sort"
	"strings"

	"github.com/himanishpuri/LyricSync/pkg/models"
)

const (
	// DefaultThreshold is the similarity a segment must exceed to anchor a line.
	DefaultThreshold = 0.30

	// DefaultFallbackDuration is the length in seconds of a synthesized span.
	DefaultFallbackDuration = 3.0
)

// Assignment is an aligned line together with how it was timed.
type Assignment struct {
	models.AlignedLine
	SegmentIndex int     // index into the transcript segments, -1 for fallback timing
	Ratio        float64 // similarity of the chosen segment, 0 for fallback timing
}

// Matched reports whether the line was anchored to a transcript segment.
func (a Assignment) Matched() bool {
	return a.SegmentIndex >= 0
}

// Option configures an Aligner.
type Option func(*Aligner)

// WithThreshold sets the similarity a segment must strictly exceed to be
// accepted as a match.
func WithThreshold(threshold float64) Option {
	return func(a *Aligner) {
		a.threshold = threshold
	}
}

// WithFallbackDuration sets the length in seconds of synthesized spans.
func WithFallbackDuration(seconds float64) Option {
	return func(a *Aligner) {
		a.fallbackDuration = seconds
	}
}

// Aligner holds the matching parameters. It has no mutable state and is safe
// for concurrent use.
type Aligner struct {
	threshold        float64
	fallbackDuration float64
}

// New returns an Aligner using DefaultThreshold and DefaultFallbackDuration
// unless overridden by opts.
func New(opts ...Option) *Aligner {
	a := &Aligner{
		threshold:        DefaultThreshold,
		fallbackDuration: DefaultFallbackDuration,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultAligner = New()

// Align times lyrics against segments with the default parameters.
func Align(segments []models.TranscriptSegment, lyrics string) []models.AlignedLine {
	return defaultAligner.Align(segments, lyrics)
}

// AlignDetailed is Align but also reports which segment each line used.
func AlignDetailed(segments []models.TranscriptSegment, lyrics string) []Assignment {
	return defaultAligner.AlignDetailed(segments, lyrics)
}

// AlignContext is AlignDetailed with cancellation between lyric lines.
func AlignContext(ctx context.Context, segments []models.TranscriptSegment, lyrics string) ([]Assignment, error) {
	return defaultAligner.AlignContext(ctx, segments, lyrics)
}

// Align returns one AlignedLine per non-blank lyric line, sorted by start.
// Lines that contain nothing but punctuation are dropped.
func (a *Aligner) Align(segments []models.TranscriptSegment, lyrics string) []models.AlignedLine {
	assignments := a.AlignDetailed(segments, lyrics)
	lines := make([]models.AlignedLine, len(assignments))
	for i, as := range assignments {
		lines[i] = as.AlignedLine
	}
	return lines
}

// AlignDetailed returns the assignments in the same order Align returns lines.
func (a *Aligner) AlignDetailed(segments []models.TranscriptSegment, lyrics string) []Assignment {
	// A background context is never cancelled, so run cannot fail here.
	out, _ := a.run(context.Background(), segments, lyrics)
	return out
}

// AlignContext checks ctx before each lyric line and returns ctx.Err() without
// a partial result once it is done.
func (a *Aligner) AlignContext(ctx context.Context, segments []models.TranscriptSegment, lyrics string) ([]Assignment, error) {
	return a.run(ctx, segments, lyrics)
}

func (a *Aligner) run(ctx context.Context, segments []models.TranscriptSegment, lyrics string) ([]Assignment, error) {
	lines := SplitLyrics(lyrics)

	segmentTexts := make([]string, len(segments))
	for i, seg := range segments {
		segmentTexts[i] = Normalize(seg.Text)
	}

	used := make(map[int]struct{}, len(segments))
	result := make([]Assignment, 0, len(lines))

	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		normalized := Normalize(line)
		if normalized == "" {
			continue
		}

		bestIdx := -1
		bestRatio := 0.0
		for j, text := range segmentTexts {
			if _, taken := used[j]; taken {
				continue
			}
			ratio := Ratio(normalized, text)
			if ratio > bestRatio && ratio > a.threshold {
				bestRatio = ratio
				bestIdx = j
			}
		}

		if bestIdx >= 0 {
			seg := segments[bestIdx]
			result = append(result, Assignment{
				AlignedLine:  models.AlignedLine{Start: seg.Start, End: seg.End, Text: line},
				SegmentIndex: bestIdx,
				Ratio:        bestRatio,
			})
			used[bestIdx] = struct{}{}
			continue
		}

		start := 0.0
		if len(result) > 0 {
			start = result[len(result)-1].End
		}
		result = append(result, Assignment{
			AlignedLine:  models.AlignedLine{Start: start, End: start + a.fallbackDuration, Text: line},
			SegmentIndex: -1,
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Start < result[j].Start
	})

	return result, nil
}

// SplitLyrics splits raw lyric text on line feeds and returns the trimmed,
// non-blank lines in document order.
func SplitLyrics(lyrics string) []string {
	raw := strings.Split(lyrics, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimFunc(line, isSpace)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
