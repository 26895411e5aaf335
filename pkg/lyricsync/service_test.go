package lyricsync

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/himanishpuri/LyricSync/pkg/logger"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync/align"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync/transcribe"
	"github.com/himanishpuri/LyricSync/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	segments []models.TranscriptSegment
	err      error
	calls    atomic.Int32
	lastPath string
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Transcribe(ctx context.Context, audioPath string) (*transcribe.Transcript, error) {
	f.calls.Add(1)
	f.lastPath = audioPath
	if f.err != nil {
		return nil, f.err
	}
	return &transcribe.Transcript{Text: "transcript", Segments: f.segments}, nil
}

// ffmpegStub stands in for ffmpeg by writing seconds of silence to the
// output path, which is always the last argument.
func ffmpegStub(seconds float64) func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		out := args[len(args)-1]
		f, err := os.Create(out)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		enc := wav.NewEncoder(f, 16000, 16, 1, 1)
		buf := &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: 1, SampleRate: 16000},
			Data:           make([]int, int(16000*seconds)),
			SourceBitDepth: 16,
		}
		if err := enc.Write(buf); err != nil {
			return nil, err
		}
		return nil, enc.Close()
	}
}

func quietLogger() Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})
}

var queenSegments = []models.TranscriptSegment{
	{Text: "Is this the real life?", Start: 0.0, End: 3.2},
	{Text: "Is this just fantasy?", Start: 3.2, End: 6.1},
}

const queenLyrics = "Is this the real life\nIs this just fantasy\nCaught in a landslide"

func newTestService(t *testing.T, eng transcribe.Engine, seconds float64, opts ...Option) (Service, string) {
	t.Helper()
	dir := t.TempDir()
	base := []Option{
		WithDBPath(filepath.Join(dir, "test.sqlite3")),
		WithTempDir(filepath.Join(dir, "tmp")),
		WithEngine(eng),
		WithLogger(quietLogger()),
		WithRunner(ffmpegStub(seconds)),
	}
	svc, err := NewService(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc, dir
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "song.mp3")
	require.NoError(t, os.WriteFile(path, []byte("mp3"), 0o644))
	return path
}

func TestSyncLyrics(t *testing.T) {
	eng := &fakeEngine{segments: queenSegments}
	svc, dir := newTestService(t, eng, 8.0)

	res, err := svc.SyncLyrics(context.Background(), writeInput(t), queenLyrics, Source{})
	require.NoError(t, err)

	want := []models.AlignedLine{
		{Start: 0.0, End: 3.2, Text: "Is this the real life"},
		{Start: 3.2, End: 6.1, Text: "Is this just fantasy"},
		{Start: 6.1, End: 9.1, Text: "Caught in a landslide"},
	}
	require.Len(t, res.Lines, 3)
	for i := range want {
		assert.Equal(t, want[i].Text, res.Lines[i].Text)
		assert.InDelta(t, want[i].Start, res.Lines[i].Start, 1e-9)
		assert.InDelta(t, want[i].End, res.Lines[i].End, 1e-9)
	}
	assert.Equal(t, 2, res.TranscriptSegments)
	assert.Equal(t, 3, res.AlignedSegments)
	assert.Equal(t, 2, res.MatchedLines)
	assert.Equal(t, 1, res.FallbackLines)
	assert.Equal(t, 1, res.OverrunLines) // 9.1 > 8.0
	assert.InDelta(t, 8.0, res.DurationSec, 0.01)
	assert.Equal(t, "fake", res.Engine)
	require.NotEmpty(t, res.ID)

	// The converted WAV is removed once the run is over.
	_, err = os.Stat(eng.lastPath)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, filepath.Join(dir, "tmp"), filepath.Dir(eng.lastPath))

	stored, err := svc.GetSync(res.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceUpload, stored.Source)
	assert.Equal(t, queenLyrics, stored.Lyrics)
	require.Len(t, stored.Lines, 3)
	assert.Equal(t, 0, stored.Lines[0].SegmentIndex)
	assert.Equal(t, -1, stored.Lines[2].SegmentIndex)

	list, err := svc.ListSyncs(10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	st, err := svc.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 1, st.Syncs)
	assert.EqualValues(t, 3, st.Lines)

	require.NoError(t, svc.DeleteSync(res.ID))
	_, err = svc.GetSync(res.ID)
	assert.ErrorIs(t, err, ErrSyncNotFound)
	assert.ErrorIs(t, svc.DeleteSync(res.ID), ErrSyncNotFound)
}

func TestSyncLyricsValidation(t *testing.T) {
	eng := &fakeEngine{}
	svc, _ := newTestService(t, eng, 1)

	_, err := svc.SyncLyrics(context.Background(), "", "la la", Source{})
	assert.ErrorIs(t, err, ErrMissingAudio)

	_, err = svc.SyncLyrics(context.Background(), writeInput(t), "", Source{})
	assert.ErrorIs(t, err, ErrMissingLyrics)

	_, err = svc.SyncLyricsFromURL(context.Background(), "", "la la")
	assert.ErrorIs(t, err, ErrMissingAudio)

	_, err = svc.SyncLyricsFromURL(context.Background(), "http://example.com/a.mp3", "")
	assert.ErrorIs(t, err, ErrMissingLyrics)

	assert.Zero(t, eng.calls.Load())
}

func TestSyncLyricsBlankLyrics(t *testing.T) {
	eng := &fakeEngine{segments: queenSegments}
	svc, _ := newTestService(t, eng, 8.0)

	res, err := svc.SyncLyrics(context.Background(), writeInput(t), "\n\n   \n", Source{})
	require.NoError(t, err)
	assert.Empty(t, res.Lines)
	assert.NotNil(t, res.Lines)
	assert.Equal(t, 0, res.AlignedSegments)
	assert.Equal(t, 2, res.TranscriptSegments)
	assert.EqualValues(t, 1, eng.calls.Load())
}

func TestSyncLyricsEngineError(t *testing.T) {
	boom := errors.New("model exploded")
	svc, _ := newTestService(t, &fakeEngine{err: boom}, 1)

	_, err := svc.SyncLyrics(context.Background(), writeInput(t), queenLyrics, Source{})
	assert.ErrorIs(t, err, boom)

	list, err := svc.ListSyncs(0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSyncLyricsWithoutPersistence(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewService(
		WithPersist(false),
		WithDBPath(filepath.Join(dir, "never.sqlite3")),
		WithTempDir(dir),
		WithEngine(&fakeEngine{segments: queenSegments}),
		WithLogger(quietLogger()),
		WithRunner(ffmpegStub(10)),
	)
	require.NoError(t, err)
	defer svc.Close()

	res, err := svc.SyncLyrics(context.Background(), writeInput(t), queenLyrics, Source{})
	require.NoError(t, err)
	assert.Empty(t, res.ID)
	assert.Zero(t, res.OverrunLines)

	_, err = os.Stat(filepath.Join(dir, "never.sqlite3"))
	assert.True(t, os.IsNotExist(err))

	_, err = svc.ListSyncs(0)
	assert.ErrorIs(t, err, ErrPersistenceDisabled)

	st, err := svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, "fake", st.Engine)
}

func TestSyncLyricsFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/song.mp3" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ID3"))
	}))
	defer srv.Close()

	eng := &fakeEngine{segments: queenSegments}
	svc, _ := newTestService(t, eng, 10, WithHTTPClient(srv.Client()))

	res, err := svc.SyncLyricsFromURL(context.Background(), srv.URL+"/song.mp3", queenLyrics)
	require.NoError(t, err)
	assert.Equal(t, 3, res.AlignedSegments)

	stored, err := svc.GetSync(res.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceURL, stored.Source)
	assert.Equal(t, srv.URL+"/song.mp3", stored.SourceURL)

	_, err = svc.SyncLyricsFromURL(context.Background(), srv.URL+"/missing.mp3", queenLyrics)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to download audio file")
	assert.EqualValues(t, 1, eng.calls.Load())
}

func TestTranscribe(t *testing.T) {
	svc, _ := newTestService(t, &fakeEngine{segments: queenSegments}, 2)

	tr, err := svc.Transcribe(context.Background(), writeInput(t))
	require.NoError(t, err)
	assert.Equal(t, "transcript", tr.Text)
	assert.Len(t, tr.Segments, 2)

	_, err = svc.Transcribe(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingAudio)
}

func TestAlignUsesOptions(t *testing.T) {
	svc, _ := newTestService(t, &fakeEngine{}, 1, WithAlignOptions(align.WithFallbackDuration(5)))

	got := svc.Align(nil, "one\ntwo")
	require.Len(t, got, 2)
	assert.Equal(t, models.AlignedLine{Start: 0, End: 5, Text: "one"}, got[0])
	assert.Equal(t, models.AlignedLine{Start: 5, End: 10, Text: "two"}, got[1])
}

func TestSyncLyricsCancelled(t *testing.T) {
	svc, _ := newTestService(t, &fakeEngine{segments: queenSegments}, 1, WithAlignTimeout(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.SyncLyrics(ctx, writeInput(t), queenLyrics, Source{})
	assert.ErrorIs(t, err, context.Canceled)
}
