package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/himanishpuri/LyricSync/pkg/logger"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync/align"
	"github.com/himanishpuri/LyricSync/pkg/lyricsync/transcribe"
	"github.com/himanishpuri/LyricSync/pkg/models"
	"github.com/himanishpuri/LyricSync/pkg/utils"
)

// Global flags
var (
	dbPath     string
	tempDir    string
	sampleRate int
	engineKind string
	whisperURL string
	model      string
	language   string
	jsonOutput bool
	verbose    bool
)

func init() {
	// Global flags go before the command name
	flag.StringVar(&dbPath, "db", getEnvOrDefault("LYRICSYNC_DB_PATH", "lyricsync.sqlite3"), "Path to the SQLite database file")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("LYRICSYNC_TEMP_DIR", filepath.Join(os.TempDir(), "lyricsync")), "Directory for temporary audio files")
	flag.IntVar(&sampleRate, "rate", 16000, "Sample rate of audio handed to the engine")
	flag.StringVar(&engineKind, "engine", getEnvOrDefault("WHISPER_ENGINE", transcribe.KindDefault), "Transcription engine: python, http or openai")
	flag.StringVar(&whisperURL, "whisper-url", os.Getenv("WHISPER_URL"), "Whisper server URL for http/openai engines")
	flag.StringVar(&model, "model", os.Getenv("WHISPER_MODEL"), "Whisper model name")
	flag.StringVar(&language, "language", "", "Spoken language hint, e.g. en")
	flag.BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// createService creates a new LyricSync service with configured options
func createService(persist bool) (lyricsync.Service, error) {
	engine, err := transcribe.NewEngine(transcribe.EngineConfig{
		Kind:      engineKind,
		URL:       whisperURL,
		Model:     model,
		Language:  language,
		ScriptDir: tempDir,
	})
	if err != nil {
		return nil, err
	}
	return lyricsync.NewService(
		lyricsync.WithDBPath(dbPath),
		lyricsync.WithTempDir(tempDir),
		lyricsync.WithSampleRate(sampleRate),
		lyricsync.WithEngine(engine),
		lyricsync.WithPersist(persist),
	)
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	log := logger.GetLogger()
	if verbose {
		log.SetLevel(logger.DEBUG)
	} else if os.Getenv("LOG_LEVEL") == "" {
		log.SetLevel(logger.WARN)
	}

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]
	log.Debugf("Executing command: %s", command)

	if !jsonOutput {
		printBanner()
	}

	var err error
	switch command {
	case "align":
		err = handleAlign(args)
	case "sync":
		err = handleSync(args)
	case "transcribe":
		err = handleTranscribe(args)
	case "list":
		err = handleList(args)
	case "show":
		err = handleShow(args)
	case "delete":
		err = handleDelete(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		log.Debugf("%s failed: %v", command, err)
		os.Exit(1)
	}
}

func printBanner() {
	fmt.Println(`
  _               _      ____
 | |   _   _ _ __(_) ___/ ___| _   _ _ __   ___
 | |  | | | | '__| |/ __\___ \| | | | '_ \ / __|
 | |__| |_| | |  | | (__ ___) | |_| | | | | (__
 |_____\__, |_|  |_|\___|____/ \__, |_| |_|\___|
       |___/                   |___/
           Lyric Synchronization CLI Tool`)
}

func printUsage() {
	fmt.Println(`Usage: lyricsync [global flags] <command> [args]

Commands:
  align <segments.json> --lyrics <file>     Align lyrics to an existing transcript
  sync <audio_file> --lyrics <file>         Transcribe audio and align lyrics
  sync --url <url> --lyrics <file>          Same, downloading the audio first
  transcribe <audio_file>                   Print the transcript only
  list [--limit N]                          List stored syncs
  show <id> [--format text|lrc]             Show a stored sync
  delete <id>                               Delete a stored sync

Global flags:`)
	flag.PrintDefaults()
}

// parseInterspersed parses fs over args, allowing positionals before,
// between and after flags, and returns the positionals.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// readLyrics reads a lyrics file, "-" meaning stdin.
func readLyrics(path string) (string, error) {
	if path == "" {
		return "", errors.New("--lyrics is required")
	}
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading lyrics: %w", err)
	}
	return string(data), nil
}

func signalContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func handleAlign(args []string) error {
	fs := flag.NewFlagSet("align", flag.ContinueOnError)
	lyricsPath := fs.String("lyrics", "", "Lyrics file (- for stdin)")
	format := fs.String("format", "text", "Output format: text or lrc")
	threshold := fs.Float64("threshold", align.DefaultThreshold, "Minimum similarity to anchor a line")
	fallback := fs.Float64("fallback", align.DefaultFallbackDuration, "Seconds given to unmatched lines")

	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.New("usage: lyricsync align <segments.json> --lyrics <file>")
	}

	data, err := os.ReadFile(pos[0])
	if err != nil {
		return fmt.Errorf("reading segments: %w", err)
	}
	segments, err := align.DecodeSegments(data)
	if err != nil {
		return err
	}
	lyrics, err := readLyrics(*lyricsPath)
	if err != nil {
		return err
	}

	aligner := align.New(align.WithThreshold(*threshold), align.WithFallbackDuration(*fallback))
	assignments := aligner.AlignDetailed(segments, lyrics)

	if jsonOutput {
		return writeJSON(os.Stdout, assignments)
	}
	if *format == "lrc" {
		fmt.Print(lyricsync.FormatLRC(linesOf(assignments)))
		return nil
	}
	printAssignments(os.Stdout, assignments, len(segments))
	return nil
}

func handleSync(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	url := fs.String("url", "", "Audio URL or YouTube link instead of a local file")
	lyricsPath := fs.String("lyrics", "", "Lyrics file (- for stdin)")
	format := fs.String("format", "text", "Output format: text or lrc")
	output := fs.String("o", "", "Write LRC output to this file")
	noSave := fs.Bool("no-save", false, "Do not store the result")
	timeout := fs.Duration("timeout", 15*time.Minute, "Overall timeout")

	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}

	var audioPath string
	switch {
	case *url != "" && len(pos) > 0:
		return errors.New("cannot specify both audio file and --url")
	case *url == "" && len(pos) != 1:
		return errors.New("usage: lyricsync sync <audio_file> --lyrics <file>  OR  lyricsync sync --url <url> --lyrics <file>")
	case *url == "":
		audioPath = pos[0]
		info, err := os.Stat(audioPath)
		if err != nil {
			return fmt.Errorf("audio file: %w", err)
		}
		if !jsonOutput {
			fmt.Printf("🎵 %s (%s)\n", filepath.Base(audioPath), humanize.Bytes(uint64(info.Size())))
		}
	}

	lyrics, err := readLyrics(*lyricsPath)
	if err != nil {
		return err
	}

	if !jsonOutput {
		fmt.Println("\n🔧 Initializing service...")
	}
	svc, err := createService(!*noSave)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	ctx, cancel := signalContext(*timeout)
	defer cancel()

	if !jsonOutput {
		fmt.Printf("🎧 Transcribing with %s...\n", svc.EngineName())
		fmt.Println("   This may take a few moments for long songs")
	}

	var result *lyricsync.SyncResult
	if *url != "" {
		if !jsonOutput {
			fmt.Printf("📥 Downloading %s\n", *url)
		}
		result, err = svc.SyncLyricsFromURL(ctx, *url, lyrics)
	} else {
		result, err = svc.SyncLyrics(ctx, audioPath, lyrics, lyricsync.Source{
			Kind: lyricsync.SourceUpload,
			Name: filepath.Base(audioPath),
		})
	}
	if err != nil {
		return fmt.Errorf("failed to sync lyrics: %w", err)
	}

	if *output != "" {
		if err := os.WriteFile(*output, []byte(lyricsync.FormatLRC(result.Lines)), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", *output, err)
		}
	}

	if jsonOutput {
		return writeJSON(os.Stdout, result)
	}
	if *format == "lrc" {
		fmt.Print(lyricsync.FormatLRC(result.Lines))
		return nil
	}
	printSyncResult(os.Stdout, result)
	if *output != "" {
		fmt.Printf("💾 LRC written to %s\n", *output)
	}
	return nil
}

func handleTranscribe(args []string) error {
	fs := flag.NewFlagSet("transcribe", flag.ContinueOnError)
	timeout := fs.Duration("timeout", 15*time.Minute, "Overall timeout")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.New("usage: lyricsync transcribe <audio_file>")
	}

	svc, err := createService(false)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	ctx, cancel := signalContext(*timeout)
	defer cancel()

	if !jsonOutput {
		fmt.Printf("🎧 Transcribing with %s...\n", svc.EngineName())
	}
	tr, err := svc.Transcribe(ctx, pos[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(os.Stdout, tr)
	}
	printTranscript(os.Stdout, tr)
	return nil
}

func handleList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "Maximum number of syncs (0 for all)")
	if _, err := parseInterspersed(fs, args); err != nil {
		return err
	}

	svc, err := createService(true)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	syncs, err := svc.ListSyncs(*limit)
	if err != nil {
		return fmt.Errorf("failed to list syncs: %w", err)
	}

	if jsonOutput {
		return writeJSON(os.Stdout, syncs)
	}
	printSyncList(os.Stdout, syncs, time.Now())
	return nil
}

func handleShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	format := fs.String("format", "text", "Output format: text or lrc")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.New("usage: lyricsync show <sync_id>")
	}
	id := strings.TrimSpace(pos[0])
	if !utils.IsID(id) {
		return fmt.Errorf("invalid sync ID: %q", id)
	}

	svc, err := createService(true)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	sync, err := svc.GetSync(id)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(os.Stdout, sync)
	}
	if *format == "lrc" {
		lines := make([]models.AlignedLine, len(sync.Lines))
		for i, l := range sync.Lines {
			lines[i] = l.AlignedLine
		}
		fmt.Print(lyricsync.FormatLRC(lines))
		return nil
	}
	printSync(os.Stdout, sync, time.Now())
	return nil
}

func handleDelete(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: lyricsync delete <sync_id>")
	}
	id := strings.TrimSpace(args[0])
	if !utils.IsID(id) {
		return fmt.Errorf("invalid sync ID: %q", id)
	}

	svc, err := createService(true)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	if err := svc.DeleteSync(id); err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(os.Stdout, map[string]string{"deleted": id})
	}
	fmt.Printf("🗑️  Deleted sync %s\n", id)
	return nil
}
