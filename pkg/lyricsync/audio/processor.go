package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/himanishpuri/LyricSync/pkg/utils"
)

// DefaultSampleRate is the rate whisper models are trained on.
const DefaultSampleRate = 16000

// MaxDownloadBytes caps the size of audio fetched by DownloadURL.
const MaxDownloadBytes = 200 << 20

// ErrDownloadFailed is returned when remote audio cannot be fetched.
var ErrDownloadFailed = errors.New("failed to download audio file")

// Runner executes an external command and returns its stdout. Stderr is
// included in the returned error on failure.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s failed: %v (%s)", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

type ConvertWAVConfig struct {
	SampleRate int
	Runner     Runner
}

// ConvertToMonoWAV transcodes inputPath with ffmpeg into a 16-bit mono WAV in
// outputDir and returns the new path. The caller removes the file.
func ConvertToMonoWAV(
	ctx context.Context,
	inputPath string,
	outputDir string,
	cfg ConvertWAVConfig,
) (string, error) {

	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner
	}

	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("audio input: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, fmt.Sprintf("%s_%d.wav", base, time.Now().UnixNano()))

	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	_, err := cfg.Runner(ctx,
		"ffmpeg",
		"-y",
		"-v", "quiet",
		"-i", inputPath,
		"-ac", "1", // mono
		"-ar", fmt.Sprintf("%d", cfg.SampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)
	if err != nil {
		return "", fmt.Errorf("audio conversion: %w", err)
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}

	return outputPath, nil
}

// DownloadURL fetches audioURL into a new file in outputDir and returns its
// path. Any status other than 200 is reported as ErrDownloadFailed.
func DownloadURL(ctx context.Context, client *http.Client, audioURL, outputDir string) (string, error) {
	if !utils.IsHTTPURL(audioURL) {
		return "", fmt.Errorf("%w: invalid URL %q", ErrDownloadFailed, audioURL)
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	if err := utils.MakeDir(outputDir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s returned %s", ErrDownloadFailed, audioURL, resp.Status)
	}

	name := path.Base(req.URL.Path)
	if name == "/" || name == "." {
		name = "download"
	}
	dest := utils.TempFilePath(outputDir, "download", name)

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("creating download file: %w", err)
	}

	n, err := io.Copy(out, io.LimitReader(resp.Body, MaxDownloadBytes+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if n > MaxDownloadBytes {
		os.Remove(dest)
		return "", fmt.Errorf("%w: audio exceeds %d bytes", ErrDownloadFailed, MaxDownloadBytes)
	}

	return dest, nil
}

// YTMetadata contains metadata extracted from a YouTube video
type YTMetadata struct {
	ID         string  `json:"id"`          // YouTube video ID
	Title      string  `json:"title"`       // Video title
	Artist     string  `json:"artist"`      // Artist (if available)
	Track      string  `json:"track"`       // Track name (if available)
	Uploader   string  `json:"uploader"`    // Channel uploader
	Channel    string  `json:"channel"`     // Channel name
	Duration   float64 `json:"duration"`    // Duration in seconds
	WebpageURL string  `json:"webpage_url"` // Canonical YouTube URL
}

func pickArtist(meta YTMetadata) string {
	if strings.TrimSpace(meta.Artist) != "" {
		return meta.Artist
	}
	if strings.TrimSpace(meta.Channel) != "" {
		return meta.Channel
	}
	if strings.TrimSpace(meta.Uploader) != "" {
		return meta.Uploader
	}
	return "Unknown Artist"
}

// DownloadYouTubeAudio fetches the best audio stream of youtubeURL with yt-dlp.
// runner may be nil to use ExecRunner.
func DownloadYouTubeAudio(ctx context.Context, runner Runner, youtubeURL string, outputDir string) (audioPath string, metadata *YTMetadata, err error) {
	if runner == nil {
		runner = ExecRunner
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 3*time.Minute)
		defer cancel()
	}

	if _, err := utils.ExtractYouTubeID(youtubeURL); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	out, err := runner(ctx, "yt-dlp", "-J", "--no-warnings", "--no-playlist", youtubeURL)
	if err != nil {
		return "", nil, fmt.Errorf("%w: yt-dlp metadata: %v", ErrDownloadFailed, err)
	}

	var ytMeta YTMetadata
	if err := json.Unmarshal(out, &ytMeta); err != nil {
		return "", nil, fmt.Errorf("failed to parse yt-dlp JSON: %w", err)
	}

	if strings.TrimSpace(ytMeta.ID) == "" {
		return "", nil, fmt.Errorf("missing video ID in yt-dlp output")
	}
	if ytMeta.Artist == "" {
		ytMeta.Artist = pickArtist(ytMeta)
	}

	outputTemplate := filepath.Join(outputDir, fmt.Sprintf("%s.%%(ext)s", ytMeta.ID))

	_, err = runner(ctx,
		"yt-dlp",
		"-f", "ba", // best audio stream
		"--no-warnings",
		"--no-playlist",
		"-o", outputTemplate,
		youtubeURL,
	)
	if err != nil {
		return "", nil, fmt.Errorf("%w: yt-dlp download: %v", ErrDownloadFailed, err)
	}

	audioExtensions := []string{".m4a", ".webm", ".opus", ".mp3", ".aac", ".ogg", ".wav"}
	for _, ext := range audioExtensions {
		candidate := filepath.Join(outputDir, ytMeta.ID+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, &ytMeta, nil
		}
	}

	return "", nil, fmt.Errorf("downloaded audio file not found for video %s (checked extensions: %v)", ytMeta.ID, audioExtensions)
}
