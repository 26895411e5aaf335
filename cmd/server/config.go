//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/himanishpuri/LyricSync/pkg/lyricsync/audio"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync/transcribe"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int                     `yaml:"port"`
	DBPath         string                  `yaml:"db_path"`
	TempDir        string                  `yaml:"temp_dir"`
	SampleRate     int                     `yaml:"sample_rate"`
	AllowedOrigins []string                `yaml:"allowed_origins"`
	Persist        bool                    `yaml:"persist"`
	MaxUploadMB    int64                   `yaml:"max_upload_mb"`
	RequestTimeout time.Duration           `yaml:"request_timeout"`
	LogLevel       string                  `yaml:"log_level"`
	Engine         transcribe.EngineConfig `yaml:"engine"`
	Align          AlignConfig             `yaml:"align"`
}

type AlignConfig struct {
	Threshold       float64       `yaml:"threshold"`
	FallbackSeconds float64       `yaml:"fallback_seconds"`
	Timeout         time.Duration `yaml:"timeout"`
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// defaultServerConfig applies the LYRICSYNC_* and WHISPER_* environment.
func defaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:           8080,
		DBPath:         getEnvOrDefault("LYRICSYNC_DB_PATH", "lyricsync.sqlite3"),
		TempDir:        getEnvOrDefault("LYRICSYNC_TEMP_DIR", filepath.Join(os.TempDir(), "lyricsync")),
		SampleRate:     audio.DefaultSampleRate,
		AllowedOrigins: []string{"*"},
		Persist:        true,
		MaxUploadMB:    100,
		RequestTimeout: 10 * time.Minute,
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		Engine: transcribe.EngineConfig{
			Kind:  getEnvOrDefault("WHISPER_ENGINE", transcribe.KindDefault),
			URL:   os.Getenv("WHISPER_URL"),
			Model: os.Getenv("WHISPER_MODEL"),
		},
		Align: AlignConfig{Timeout: 30 * time.Second},
	}
}

// LoadConfigFile decodes a YAML file over cfg. Unknown keys are rejected.
func LoadConfigFile(path string, cfg *ServerConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.Validate()
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", c.SampleRate)
	}
	if c.Align.Threshold < 0 || c.Align.Threshold >= 1 {
		return fmt.Errorf("align threshold must be in [0,1), got %v", c.Align.Threshold)
	}
	if c.Align.FallbackSeconds < 0 {
		return fmt.Errorf("align fallback_seconds must not be negative")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive")
	}
	return nil
}

// parseOrigins splits a comma-separated origin list.
func parseOrigins(s string) []string {
	if strings.TrimSpace(s) == "*" {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
