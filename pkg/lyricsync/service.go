// Package lyricsync transcribes songs and aligns user supplied lyrics to the
// transcript, producing timed lyric lines.
package lyricsync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/himanishpuri/LyricSync/pkg/logger"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync/align"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync/audio"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync/transcribe"
	"github.com/himanishpuri/LyricSync/pkg/models"
	"github.com/himanishpuri/LyricSync/pkg/utils"
)

// syncService is the default implementation of the Service interface.
type syncService struct {
	storage Storage
	engine  transcribe.Engine
	aligner *align.Aligner
	log     Logger
	config  *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.Engine == nil {
		cfg.Engine = transcribe.NewPythonEngine(transcribe.WithScriptDir(cfg.TempDir))
	}

	var stor Storage
	var err error
	switch {
	case cfg.Storage != nil:
		stor = cfg.Storage
	case cfg.Persist:
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &syncService{
		storage: stor,
		engine:  cfg.Engine,
		aligner: align.New(cfg.AlignOptions...),
		log:     cfg.Logger,
		config:  cfg,
	}, nil
}

func (s *syncService) EngineName() string {
	return s.engine.Name()
}

// Transcribe converts audioPath to whisper's input format and returns the raw transcript.
func (s *syncService) Transcribe(ctx context.Context, audioPath string) (*transcribe.Transcript, error) {
	if audioPath == "" {
		return nil, ErrMissingAudio
	}

	wavPath, err := s.convert(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	defer utils.RemoveFile(wavPath)

	tr, err := s.engine.Transcribe(ctx, wavPath)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	s.log.Infof("Transcription complete. Length: %d characters, %d segments", len(tr.Text), len(tr.Segments))
	return tr, nil
}

// SyncLyrics transcribes audioPath and aligns lyrics to the transcript. The
// result is stored unless persistence is disabled.
func (s *syncService) SyncLyrics(ctx context.Context, audioPath, lyrics string, src Source) (*SyncResult, error) {
	if audioPath == "" {
		return nil, ErrMissingAudio
	}
	if lyrics == "" {
		return nil, ErrMissingLyrics
	}
	if src.Kind == "" {
		src.Kind = SourceUpload
	}
	s.log.Infof("Syncing %s audio %s (lyrics: %d characters)", src.Kind, audioPath, len(lyrics))
	if src.Name != "" {
		s.log.Debugf("Source title: %s", src.Name)
	}

	// 1. Convert to mono WAV
	wavPath, err := s.convert(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	defer utils.RemoveFile(wavPath)

	// 2. Duration, used only to flag lines running past the end
	duration, err := audio.WAVDuration(wavPath)
	if err != nil {
		s.log.Warnf("Could not read duration of %s: %v", wavPath, err)
		duration = 0
		if d, perr := audio.ProbeDuration(ctx, s.config.Runner, audioPath); perr == nil {
			duration = d
		}
	}

	// 3. Transcribe
	tr, err := s.engine.Transcribe(ctx, wavPath)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	s.log.Infof("%s found %d segments", s.engine.Name(), len(tr.Segments))
	if duration == 0 {
		duration = tr.Duration
	}

	// 4. Align
	assignments, err := s.align(ctx, tr.Segments, lyrics)
	if err != nil {
		return nil, err
	}

	result := buildResult(assignments, tr.Segments, duration, s.engine.Name())
	s.log.Infof("Created %d synced lines (%d matched, %d fallback)",
		result.AlignedSegments, result.MatchedLines, result.FallbackLines)
	if result.OverrunLines > 0 {
		s.log.Warnf("%d lines end after the audio (%.1fs)", result.OverrunLines, duration)
	}

	// 5. Persist
	if s.storage != nil {
		rec := &models.Sync{
			Source:             src.Kind,
			SourceURL:          src.URL,
			Engine:             result.Engine,
			Lyrics:             lyrics,
			TranscriptSegments: result.TranscriptSegments,
			MatchedLines:       result.MatchedLines,
			FallbackLines:      result.FallbackLines,
			DurationSec:        duration,
			Lines:              toSyncedLines(assignments),
			CreatedAt:          result.CreatedAt,
		}
		id, err := s.storage.CreateSync(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to store sync: %w", err)
		}
		result.ID = id
		s.log.Infof("Stored sync ID=%s", id)
	}

	return result, nil
}

// SyncLyricsFromURL downloads audioURL (with yt-dlp for YouTube links) and
// runs SyncLyrics on it. The download is removed afterwards.
func (s *syncService) SyncLyricsFromURL(ctx context.Context, audioURL, lyrics string) (*SyncResult, error) {
	audioURL = strings.TrimSpace(audioURL)
	if audioURL == "" {
		return nil, ErrMissingAudio
	}
	if lyrics == "" {
		return nil, ErrMissingLyrics
	}

	s.log.Infof("Processing audio from: %s", audioURL)

	src := Source{Kind: SourceURL, URL: audioURL}
	var path string
	var err error
	if utils.IsYouTubeURL(audioURL) {
		var meta *audio.YTMetadata
		path, meta, err = audio.DownloadYouTubeAudio(ctx, s.config.Runner, audioURL, s.config.TempDir)
		if err == nil {
			src.Kind = SourceYouTube
			src.Name = meta.Title
		}
	} else {
		path, err = audio.DownloadURL(ctx, s.config.HTTPClient, audioURL, s.config.TempDir)
	}
	if err != nil {
		return nil, err
	}
	defer utils.RemoveFile(path)

	return s.SyncLyrics(ctx, path, lyrics, src)
}

// Align runs the aligner on an existing transcript. Nothing is stored.
func (s *syncService) Align(segments []models.TranscriptSegment, lyrics string) []models.AlignedLine {
	return s.aligner.Align(segments, lyrics)
}

func (s *syncService) GetSync(id string) (*models.Sync, error) {
	if s.storage == nil {
		return nil, ErrPersistenceDisabled
	}
	return s.storage.GetSync(id)
}

func (s *syncService) ListSyncs(limit int) ([]models.Sync, error) {
	if s.storage == nil {
		return nil, ErrPersistenceDisabled
	}
	return s.storage.ListSyncs(limit)
}

func (s *syncService) DeleteSync(id string) error {
	if s.storage == nil {
		return ErrPersistenceDisabled
	}
	return s.storage.DeleteSync(id)
}

func (s *syncService) Stats() (*Stats, error) {
	st := &Stats{Engine: s.engine.Name()}
	if s.storage == nil {
		return st, nil
	}
	syncs, lines, err := s.storage.Counts()
	if err != nil {
		return nil, err
	}
	st.Syncs, st.Lines = syncs, lines
	return st, nil
}

// Close releases all resources held by the service.
func (s *syncService) Close() error {
	if s.storage == nil {
		return nil
	}
	return s.storage.Close()
}

func (s *syncService) convert(ctx context.Context, audioPath string) (string, error) {
	wavPath, err := audio.ConvertToMonoWAV(ctx, audioPath, s.config.TempDir, audio.ConvertWAVConfig{
		SampleRate: s.config.SampleRate,
		Runner:     s.config.Runner,
	})
	if err != nil {
		return "", fmt.Errorf("audio conversion failed: %w", err)
	}
	return wavPath, nil
}

func (s *syncService) align(ctx context.Context, segments []models.TranscriptSegment, lyrics string) ([]align.Assignment, error) {
	if s.config.AlignTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.AlignTimeout)
		defer cancel()
	}
	assignments, err := s.aligner.AlignContext(ctx, segments, lyrics)
	if err != nil {
		return nil, fmt.Errorf("alignment aborted: %w", err)
	}
	return assignments, nil
}

func buildResult(assignments []align.Assignment, segments []models.TranscriptSegment, duration float64, engine string) *SyncResult {
	res := &SyncResult{
		Lines:              make([]models.AlignedLine, 0, len(assignments)),
		Segments:           segments,
		TranscriptSegments: len(segments),
		AlignedSegments:    len(assignments),
		DurationSec:        duration,
		Engine:             engine,
		CreatedAt:          time.Now().UTC(),
	}
	for _, a := range assignments {
		res.Lines = append(res.Lines, a.AlignedLine)
		if a.Matched() {
			res.MatchedLines++
		} else {
			res.FallbackLines++
		}
		if duration > 0 && a.End > duration {
			res.OverrunLines++
		}
	}
	return res
}

func toSyncedLines(assignments []align.Assignment) []models.SyncedLine {
	lines := make([]models.SyncedLine, 0, len(assignments))
	for _, a := range assignments {
		lines = append(lines, models.SyncedLine{
			AlignedLine:  a.AlignedLine,
			SegmentIndex: a.SegmentIndex,
			Ratio:        a.Ratio,
		})
	}
	return lines
}
