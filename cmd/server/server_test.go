//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/himanishpuri/LyricSync/pkg/logger"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync/align"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync/audio"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync/transcribe"
	"github.com/himanishpuri/LyricSync/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSyncID = "3f2b8c1e-6a7d-4e0f-9b21-5c4d3e2f1a00"

// fakeService records calls and returns canned results.
type fakeService struct {
	syncs      map[string]*models.Sync
	urlErr     error
	uploadPath string
	lyrics     string
}

func newFakeService() *fakeService {
	return &fakeService{syncs: map[string]*models.Sync{
		testSyncID: {
			ID:     testSyncID,
			Source: lyricsync.SourceUpload,
			Engine: "fake",
			Lyrics: "one\ntwo",
			Lines: []models.SyncedLine{
				{AlignedLine: models.AlignedLine{Start: 0, End: 1, Text: "one"}, SegmentIndex: 0, Ratio: 1},
				{AlignedLine: models.AlignedLine{Start: 1, End: 4, Text: "two"}, SegmentIndex: -1},
			},
			CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}}
}

func (f *fakeService) EngineName() string { return "fake-engine" }

func (f *fakeService) Transcribe(ctx context.Context, audioPath string) (*transcribe.Transcript, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, err
	}
	return &transcribe.Transcript{
		Text:     "heard " + string(data),
		Segments: []models.TranscriptSegment{{Text: "heard", Start: 0, End: 1}},
	}, nil
}

func (f *fakeService) SyncLyrics(ctx context.Context, audioPath, lyrics string, src lyricsync.Source) (*lyricsync.SyncResult, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, err
	}
	f.uploadPath, f.lyrics = audioPath, lyrics
	lines := align.Align(nil, lyrics)
	return &lyricsync.SyncResult{
		ID:              testSyncID,
		Lines:           lines,
		AlignedSegments: len(lines),
		FallbackLines:   len(lines),
		Engine:          "fake-engine",
	}, nil
}

func (f *fakeService) SyncLyricsFromURL(ctx context.Context, audioURL, lyrics string) (*lyricsync.SyncResult, error) {
	if f.urlErr != nil {
		return nil, f.urlErr
	}
	segs := []models.TranscriptSegment{{Text: "Is this the real life?", Start: 0, End: 3.2}}
	lines := align.Align(segs, lyrics)
	return &lyricsync.SyncResult{
		ID:                 testSyncID,
		Lines:              lines,
		TranscriptSegments: len(segs),
		AlignedSegments:    len(lines),
	}, nil
}

func (f *fakeService) Align(segments []models.TranscriptSegment, lyrics string) []models.AlignedLine {
	return align.Align(segments, lyrics)
}

func (f *fakeService) GetSync(id string) (*models.Sync, error) {
	s, ok := f.syncs[id]
	if !ok {
		return nil, lyricsync.ErrSyncNotFound
	}
	return s, nil
}

func (f *fakeService) ListSyncs(limit int) ([]models.Sync, error) {
	out := []models.Sync{}
	for _, s := range f.syncs {
		out = append(out, *s)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeService) DeleteSync(id string) error {
	if _, ok := f.syncs[id]; !ok {
		return lyricsync.ErrSyncNotFound
	}
	delete(f.syncs, id)
	return nil
}

func (f *fakeService) Stats() (*lyricsync.Stats, error) {
	return &lyricsync.Stats{Syncs: int64(len(f.syncs)), Lines: 2, Engine: "fake-engine"}, nil
}

func (f *fakeService) Close() error { return nil }

func newTestServer(t *testing.T, svc lyricsync.Service) (http.Handler, *ServerConfig) {
	t.Helper()
	cfg := defaultServerConfig()
	cfg.TempDir = t.TempDir()
	cfg.DBPath = filepath.Join(cfg.TempDir, "db.sqlite3")
	log := logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})
	return NewServer(svc, cfg, log).setupRoutes(), cfg
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		part, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t, newFakeService())

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "fake-engine", body["model"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRootAndNotFound(t *testing.T) {
	h, _ := newTestServer(t, newFakeService())

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "LyricSync API")

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics(t *testing.T) {
	h, cfg := newTestServer(t, newFakeService())

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/health/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode[MetricsResponse](t, rec)
	assert.EqualValues(t, 1, m.SyncCount)
	assert.Equal(t, cfg.DBPath, m.DatabasePath)
	assert.Equal(t, 16000, m.SampleRate)
}

func TestSyncLyricsEndpoint(t *testing.T) {
	h, _ := newTestServer(t, newFakeService())

	body := `{"audioUrl":"http://example.com/song.mp3","lyrics":"Is this the real life\nCaught in a landslide"}`
	rec := do(t, h, httptest.NewRequest(http.MethodPost, "/sync-lyrics", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[SyncLyricsResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.WhisperSegments)
	assert.Equal(t, 2, resp.AlignedSegments)
	require.Len(t, resp.SyncedLyrics, 2)
	assert.Equal(t, models.AlignedLine{Start: 0, End: 3.2, Text: "Is this the real life"}, resp.SyncedLyrics[0])
	assert.InDelta(t, 6.2, resp.SyncedLyrics[1].End, 1e-9)

	// Raw JSON keeps the field names web clients read.
	assert.Contains(t, rec.Body.String(), `"syncedLyrics"`)
	assert.Contains(t, rec.Body.String(), `"whisperSegments"`)
}

func TestSyncLyricsEndpointBlankLyrics(t *testing.T) {
	h, _ := newTestServer(t, newFakeService())

	body := `{"audioUrl":"http://example.com/song.mp3","lyrics":"\n\n   \n"}`
	rec := do(t, h, httptest.NewRequest(http.MethodPost, "/sync-lyrics", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[SyncLyricsResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.SyncedLyrics)
	assert.Equal(t, 0, resp.AlignedSegments)
	assert.Contains(t, rec.Body.String(), `"syncedLyrics":[]`)
}

func TestSyncLyricsEndpointErrors(t *testing.T) {
	svc := newFakeService()
	h, _ := newTestServer(t, svc)

	tests := []struct {
		name   string
		body   string
		urlErr error
		code   int
		msg    string
	}{
		{"missing lyrics", `{"audioUrl":"http://x/a.mp3"}`, nil, http.StatusBadRequest, "audioUrl and lyrics are required"},
		{"missing url", `{"lyrics":"la"}`, nil, http.StatusBadRequest, "audioUrl and lyrics are required"},
		{"bad json", `{`, nil, http.StatusBadRequest, "Invalid request body"},
		{"download failed", `{"audioUrl":"http://x/a.mp3","lyrics":"la"}`, fmt.Errorf("wrap: %w", audio.ErrDownloadFailed), http.StatusBadRequest, "Failed to download audio file"},
		{"engine failed", `{"audioUrl":"http://x/a.mp3","lyrics":"la"}`, fmt.Errorf("transcription failed: boom"), http.StatusInternalServerError, "boom"},
		{"timeout", `{"audioUrl":"http://x/a.mp3","lyrics":"la"}`, fmt.Errorf("x: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "timed out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc.urlErr = tt.urlErr
			rec := do(t, h, httptest.NewRequest(http.MethodPost, "/sync-lyrics", strings.NewReader(tt.body)))
			assert.Equal(t, tt.code, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Contains(t, resp.Message, tt.msg)
			assert.Equal(t, tt.code, resp.Code)
		})
	}

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/sync-lyrics", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTranscribeEndpoint(t *testing.T) {
	h, _ := newTestServer(t, newFakeService())

	body, ct := multipartBody(t, nil, "audio", "clip.wav", "abc")
	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", ct)
	rec := do(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[TranscribeResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "heard abc", resp.Transcription)

	body, ct = multipartBody(t, map[string]string{"x": "y"}, "", "", "")
	req = httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", ct)
	rec = do(t, h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No audio file provided")
}

func TestCreateSyncEndpoint(t *testing.T) {
	svc := newFakeService()
	h, cfg := newTestServer(t, svc)

	body, ct := multipartBody(t, map[string]string{"lyrics": "one\ntwo"}, "audio", "../../evil name.mp3", "mp3")
	req := httptest.NewRequest(http.MethodPost, "/api/syncs", body)
	req.Header.Set("Content-Type", ct)
	rec := do(t, h, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	res := decode[lyricsync.SyncResult](t, rec)
	assert.Equal(t, testSyncID, res.ID)
	assert.Len(t, res.Lines, 2)
	assert.Equal(t, "one\ntwo", svc.lyrics)

	// Upload lands inside the temp dir and is removed afterwards.
	assert.Equal(t, cfg.TempDir, filepath.Dir(svc.uploadPath))
	_, err := os.Stat(svc.uploadPath)
	assert.True(t, os.IsNotExist(err))

	body, ct = multipartBody(t, nil, "audio", "a.mp3", "mp3")
	req = httptest.NewRequest(http.MethodPost, "/api/syncs", body)
	req.Header.Set("Content-Type", ct)
	rec = do(t, h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "lyrics are required")

	body, ct = multipartBody(t, map[string]string{"lyrics": "la"}, "", "", "")
	req = httptest.NewRequest(http.MethodPost, "/api/syncs", body)
	req.Header.Set("Content-Type", ct)
	rec = do(t, h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "audio file is required")
}

func TestAlignEndpoint(t *testing.T) {
	h, _ := newTestServer(t, newFakeService())

	body := `{"segments":[{"text":"hello world","start":1,"end":2}],"lyrics":"Hello, world!\nbye"}`
	rec := do(t, h, httptest.NewRequest(http.MethodPost, "/api/align", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[AlignResponse](t, rec)
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, models.AlignedLine{Start: 1, End: 2, Text: "Hello, world!"}, resp.SyncedLyrics[0])
	assert.Equal(t, models.AlignedLine{Start: 2, End: 5, Text: "bye"}, resp.SyncedLyrics[1])

	rec = do(t, h, httptest.NewRequest(http.MethodPost, "/api/align", strings.NewReader(`{"segments":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncCRUD(t *testing.T) {
	h, _ := newTestServer(t, newFakeService())

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/syncs?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[ListSyncsResponse](t, rec)
	require.Equal(t, 1, list.Count)
	assert.Empty(t, list.Syncs[0].Lines)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/syncs?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/syncs/"+testSyncID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[SyncDTO](t, rec)
	require.Len(t, dto.Lines, 2)
	assert.True(t, dto.Lines[0].Matched)
	assert.False(t, dto.Lines[1].Matched)
	assert.Equal(t, "2024-01-02T03:04:05Z", dto.CreatedAt)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/syncs/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodDelete, "/api/syncs/"+testSyncID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/syncs/"+testSyncID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodDelete, "/api/syncs/"+testSyncID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodPut, "/api/syncs", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	svc := newFakeService()
	cfg := defaultServerConfig()
	cfg.AllowedOrigins = []string{"https://studio.example.com"}
	log := logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})
	h := NewServer(svc, cfg, log).setupRoutes()

	req := httptest.NewRequest(http.MethodOptions, "/sync-lyrics", nil)
	req.Header.Set("Origin", "https://studio.example.com")
	rec := do(t, h, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://studio.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = do(t, h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", getClientIP(req))

	req.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.3")
	assert.Equal(t, "1.2.3.4", getClientIP(req))
}
