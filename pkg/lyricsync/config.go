package lyricsync

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/himanishpuri/LyricSync/pkg/lyricsync/align"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync/audio"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync/transcribe"
)

type Config struct {
	DBPath       string
	TempDir      string
	SampleRate   int
	AlignTimeout time.Duration
	Persist      bool
	Logger       Logger
	Storage      Storage
	Engine       transcribe.Engine
	Runner       audio.Runner
	HTTPClient   *http.Client
	AlignOptions []align.Option
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

// WithEngine sets the transcription engine. Defaults to a PythonEngine
// running the "base" whisper model.
func WithEngine(engine transcribe.Engine) Option {
	return func(c *Config) {
		c.Engine = engine
	}
}

// WithAlignTimeout bounds the alignment step. Zero disables the bound.
func WithAlignTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.AlignTimeout = d
	}
}

// WithPersist controls whether sync results are written to storage.
// When false no database is opened.
func WithPersist(persist bool) Option {
	return func(c *Config) {
		c.Persist = persist
	}
}

// WithRunner replaces the runner used for ffmpeg and yt-dlp.
func WithRunner(r audio.Runner) Option {
	return func(c *Config) {
		c.Runner = r
	}
}

// WithHTTPClient sets the client used to download audio URLs.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithAlignOptions tunes the aligner (threshold, fallback duration).
func WithAlignOptions(opts ...align.Option) Option {
	return func(c *Config) {
		c.AlignOptions = append(c.AlignOptions, opts...)
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:       "lyricsync.sqlite3",
		TempDir:      filepath.Join(os.TempDir(), "lyricsync"),
		SampleRate:   audio.DefaultSampleRate,
		AlignTimeout: 30 * time.Second,
		Persist:      true,
		Logger:       nil,
	}
}
