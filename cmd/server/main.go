//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/himanishpuri/LyricSync/pkg/logger"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync/align"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync/transcribe"
)

var (
	configPath     string
	port           int
	dbPath         string
	tempDir        string
	sampleRate     int
	allowedOrigins string
	engineKind     string
	whisperURL     string
	model          string
	language       string
	noPersist      bool
	logLevel       string
)

func init() {
	flag.StringVar(&configPath, "config", os.Getenv("LYRICSYNC_CONFIG"), "Path to YAML config file")
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&dbPath, "db", "", "Path to SQLite database (env LYRICSYNC_DB_PATH)")
	flag.StringVar(&tempDir, "temp", "", "Temporary directory (env LYRICSYNC_TEMP_DIR)")
	flag.IntVar(&sampleRate, "rate", 16000, "Sample rate of audio handed to the engine")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
	flag.StringVar(&engineKind, "engine", "", "Transcription engine: python, http or openai (env WHISPER_ENGINE)")
	flag.StringVar(&whisperURL, "whisper-url", "", "Whisper server URL for http/openai engines (env WHISPER_URL)")
	flag.StringVar(&model, "model", "", "Whisper model name (env WHISPER_MODEL)")
	flag.StringVar(&language, "language", "", "Spoken language hint, e.g. en")
	flag.BoolVar(&noPersist, "no-persist", false, "Do not store sync results")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// applyFlags overrides cfg with the flags given on the command line.
func applyFlags(cfg *ServerConfig) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = port
		case "db":
			cfg.DBPath = dbPath
		case "temp":
			cfg.TempDir = tempDir
		case "rate":
			cfg.SampleRate = sampleRate
		case "origins":
			cfg.AllowedOrigins = parseOrigins(allowedOrigins)
		case "engine":
			cfg.Engine.Kind = engineKind
		case "whisper-url":
			cfg.Engine.URL = whisperURL
		case "model":
			cfg.Engine.Model = model
		case "language":
			cfg.Engine.Language = language
		case "no-persist":
			cfg.Persist = !noPersist
		case "log-level":
			cfg.LogLevel = logLevel
		}
	})
}

func main() {
	flag.Parse()

	log := logger.GetLogger()

	cfg := defaultServerConfig()
	if configPath != "" {
		if err := LoadConfigFile(configPath, cfg); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if level, err := logger.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.Warnf("Ignoring log level: %v", err)
	}

	if cfg.Engine.ScriptDir == "" {
		cfg.Engine.ScriptDir = cfg.TempDir
	}
	engine, err := transcribe.NewEngine(cfg.Engine)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	alignOpts := []align.Option{}
	if cfg.Align.Threshold > 0 {
		alignOpts = append(alignOpts, align.WithThreshold(cfg.Align.Threshold))
	}
	if cfg.Align.FallbackSeconds > 0 {
		alignOpts = append(alignOpts, align.WithFallbackDuration(cfg.Align.FallbackSeconds))
	}

	service, err := lyricsync.NewService(
		lyricsync.WithDBPath(cfg.DBPath),
		lyricsync.WithTempDir(cfg.TempDir),
		lyricsync.WithSampleRate(cfg.SampleRate),
		lyricsync.WithEngine(engine),
		lyricsync.WithPersist(cfg.Persist),
		lyricsync.WithAlignTimeout(cfg.Align.Timeout),
		lyricsync.WithAlignOptions(alignOpts...),
		lyricsync.WithLogger(log.Named("service")),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := NewServer(service, cfg, log.Named("server"))
	if err := server.Start(ctx); err != nil {
		log.Errorf("Server failed: %v", err)
		service.Close()
		os.Exit(1)
	}
}
