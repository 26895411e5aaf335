package main

import (
	"bytes"
	"flag"
	"io"
	"testing"
	"time"

	"github.com/himanishpuri/LyricSync/pkg/lyricsync"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync/align"
	"github.com/himanishpuri/LyricSync/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInterspersed(t *testing.T) {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	lyrics := fs.String("lyrics", "", "")
	noSave := fs.Bool("no-save", false, "")

	pos, err := parseInterspersed(fs, []string{"song.mp3", "--lyrics", "l.txt", "extra", "--no-save"})
	require.NoError(t, err)
	assert.Equal(t, []string{"song.mp3", "extra"}, pos)
	assert.Equal(t, "l.txt", *lyrics)
	assert.True(t, *noSave)

	_, err = parseInterspersed(fs, []string{"--bogus"})
	assert.Error(t, err)
}

func TestPrintAssignments(t *testing.T) {
	segs := []models.TranscriptSegment{{Text: "hello world", Start: 1, End: 2.5}}
	assignments := align.AlignDetailed(segs, "Hello world\nnever heard")

	var buf bytes.Buffer
	printAssignments(&buf, assignments, len(segs))
	out := buf.String()

	assert.Contains(t, out, "Aligned 2 line(s) against 1 segment(s) (1 matched, 1 fallback)")
	assert.Contains(t, out, "  [00:01.00 → 00:02.50] Hello world\n")
	assert.Contains(t, out, "~ [00:02.50 → 00:05.50] never heard\n")
}

func TestPrintSyncList(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	printSyncList(&buf, nil, now)
	assert.Contains(t, buf.String(), "No syncs")

	buf.Reset()
	printSyncList(&buf, []models.Sync{{
		ID:           "abc",
		Source:       lyricsync.SourceYouTube,
		SourceURL:    "https://youtu.be/x",
		Engine:       "whisper-python:base",
		MatchedLines: 3,
		CreatedAt:    now.Add(-2 * time.Hour),
	}}, now)
	out := buf.String()
	assert.Contains(t, out, "1. abc (youtube, 2 hours ago)")
	assert.Contains(t, out, "3 matched, 0 fallback")
	assert.Contains(t, out, "https://youtu.be/x")
}

func TestPrintSyncResult(t *testing.T) {
	var buf bytes.Buffer
	printSyncResult(&buf, &lyricsync.SyncResult{
		ID:                 "id-1",
		Lines:              []models.AlignedLine{{Start: 0, End: 3.2, Text: "Is this the real life"}},
		TranscriptSegments: 2,
		AlignedSegments:    1,
		MatchedLines:       1,
		OverrunLines:       1,
		DurationSec:        125,
	})
	out := buf.String()
	assert.Contains(t, out, "Synced 1 line(s) from 2 transcript segment(s)")
	assert.Contains(t, out, "Duration: 02:05.00")
	assert.Contains(t, out, "1 line(s) end after the audio")
	assert.Contains(t, out, "[00:00.00 → 00:03.20] Is this the real life")
}
