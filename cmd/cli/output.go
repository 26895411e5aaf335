package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync/align"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync/transcribe"
	"github.com/himanishpuri/LyricSync/pkg/models"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func linesOf(assignments []align.Assignment) []models.AlignedLine {
	lines := make([]models.AlignedLine, len(assignments))
	for i, a := range assignments {
		lines[i] = a.AlignedLine
	}
	return lines
}

// span renders a line's time range as "[mm:ss.xx → mm:ss.xx]".
func span(start, end float64) string {
	return fmt.Sprintf("[%s → %s]", lyricsync.FormatTimestamp(start), lyricsync.FormatTimestamp(end))
}

func printAssignments(w io.Writer, assignments []align.Assignment, segments int) {
	matched := 0
	for _, a := range assignments {
		if a.Matched() {
			matched++
		}
	}
	fmt.Fprintf(w, "\n✅ Aligned %d line(s) against %d segment(s) (%d matched, %d fallback)\n\n",
		len(assignments), segments, matched, len(assignments)-matched)

	for _, a := range assignments {
		marker := "  "
		if !a.Matched() {
			marker = "~ "
		}
		fmt.Fprintf(w, "%s%s %s\n", marker, span(a.Start, a.End), a.Text)
	}
	if matched < len(assignments) {
		fmt.Fprintln(w, "\n   ~ = no matching segment, timing estimated")
	}
}

func printSyncResult(w io.Writer, r *lyricsync.SyncResult) {
	fmt.Fprintf(w, "\n✅ Synced %d line(s) from %d transcript segment(s)\n", r.AlignedSegments, r.TranscriptSegments)
	fmt.Fprintf(w, "   Matched:  %d\n", r.MatchedLines)
	fmt.Fprintf(w, "   Fallback: %d\n", r.FallbackLines)
	if r.DurationSec > 0 {
		fmt.Fprintf(w, "   Duration: %s\n", lyricsync.FormatTimestamp(r.DurationSec))
	}
	if r.OverrunLines > 0 {
		fmt.Fprintf(w, "   ⚠️  %d line(s) end after the audio\n", r.OverrunLines)
	}
	if r.ID != "" {
		fmt.Fprintf(w, "   ID:       %s\n", r.ID)
	}
	fmt.Fprintln(w)
	for _, l := range r.Lines {
		fmt.Fprintf(w, "%s %s\n", span(l.Start, l.End), l.Text)
	}
}

func printTranscript(w io.Writer, tr *transcribe.Transcript) {
	fmt.Fprintf(w, "\n✅ %d segment(s)", len(tr.Segments))
	if tr.Language != "" {
		fmt.Fprintf(w, ", language %s", tr.Language)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)
	for _, s := range tr.Segments {
		fmt.Fprintf(w, "%s %s\n", span(s.Start, s.End), s.Text)
	}
}

func printSyncList(w io.Writer, syncs []models.Sync, now time.Time) {
	if len(syncs) == 0 {
		fmt.Fprintln(w, "\n📭 No syncs in database")
		return
	}

	fmt.Fprintf(w, "\n📚 Found %s sync(s):\n\n", humanize.Comma(int64(len(syncs))))
	for i, s := range syncs {
		fmt.Fprintf(w, "%d. %s (%s, %s)\n", i+1, s.ID, s.Source, humanize.RelTime(s.CreatedAt, now, "ago", "from now"))
		fmt.Fprintf(w, "   Lines: %d matched, %d fallback | Engine: %s\n", s.MatchedLines, s.FallbackLines, s.Engine)
		if s.SourceURL != "" {
			fmt.Fprintf(w, "   URL: %s\n", s.SourceURL)
		}
		fmt.Fprintln(w)
	}
}

func printSync(w io.Writer, s *models.Sync, now time.Time) {
	fmt.Fprintf(w, "\n🎵 Sync %s\n", s.ID)
	fmt.Fprintf(w, "   Source:   %s\n", s.Source)
	if s.SourceURL != "" {
		fmt.Fprintf(w, "   URL:      %s\n", s.SourceURL)
	}
	fmt.Fprintf(w, "   Engine:   %s\n", s.Engine)
	fmt.Fprintf(w, "   Created:  %s (%s)\n", s.CreatedAt.Local().Format(time.DateTime), humanize.RelTime(s.CreatedAt, now, "ago", "from now"))
	if s.DurationSec > 0 {
		fmt.Fprintf(w, "   Duration: %s\n", lyricsync.FormatTimestamp(s.DurationSec))
	}
	fmt.Fprintln(w)
	for _, l := range s.Lines {
		marker := "  "
		if !l.Matched() {
			marker = "~ "
		}
		fmt.Fprintf(w, "%s%s %s\n", marker, span(l.Start, l.End), l.Text)
	}
}
