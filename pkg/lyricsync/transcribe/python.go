package transcribe

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/himanishpuri/LyricSync/pkg/lyricsync/audio"
	"github.com/himanishpuri/LyricSync/pkg/utils"
)

//go:embed assets/whisper_transcribe.py
var whisperScript []byte

// DefaultPythonModel matches the model the hosted service advertises.
const DefaultPythonModel = "base"

var _ Engine = (*PythonEngine)(nil)

// PythonOption configures a PythonEngine.
type PythonOption func(*PythonEngine)

// WithPython sets the interpreter, "python3" by default.
func WithPython(bin string) PythonOption {
	return func(e *PythonEngine) {
		e.python = bin
	}
}

// WithPythonModel sets the openai-whisper model name (tiny, base, small, ...).
func WithPythonModel(model string) PythonOption {
	return func(e *PythonEngine) {
		e.model = model
	}
}

// WithPythonLanguage pins the spoken language instead of auto-detecting it.
func WithPythonLanguage(lang string) PythonOption {
	return func(e *PythonEngine) {
		e.language = lang
	}
}

// WithScriptDir sets where the helper script is written. Defaults to os.TempDir().
func WithScriptDir(dir string) PythonOption {
	return func(e *PythonEngine) {
		e.scriptDir = dir
	}
}

// WithRunner replaces the command runner, mainly for tests.
func WithRunner(r audio.Runner) PythonOption {
	return func(e *PythonEngine) {
		e.runner = r
	}
}

// PythonEngine runs openai-whisper in a Python subprocess. The helper script
// is embedded in the binary and written to disk on first use.
type PythonEngine struct {
	python    string
	model     string
	language  string
	scriptDir string
	runner    audio.Runner

	once       sync.Once
	scriptPath string
	scriptErr  error
}

func NewPythonEngine(opts ...PythonOption) *PythonEngine {
	e := &PythonEngine{
		python:    "python3",
		model:     DefaultPythonModel,
		scriptDir: os.TempDir(),
		runner:    audio.ExecRunner,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *PythonEngine) Name() string {
	return "whisper-python:" + e.model
}

func (e *PythonEngine) Transcribe(ctx context.Context, audioPath string) (*Transcript, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("transcribe: audio input: %w", err)
	}

	script, err := e.script()
	if err != nil {
		return nil, err
	}

	args := []string{script, "--audio", audioPath, "--model", e.model}
	if e.language != "" {
		args = append(args, "--language", e.language)
	}

	out, err := e.runner(ctx, e.python, args...)
	if err != nil {
		return nil, fmt.Errorf("transcribe: whisper helper: %w", err)
	}

	var raw rawTranscript
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("transcribe: decode helper output: %w", err)
	}
	return raw.toTranscript(), nil
}

func (e *PythonEngine) script() (string, error) {
	e.once.Do(func() {
		if err := utils.MakeDir(e.scriptDir); err != nil {
			e.scriptErr = fmt.Errorf("transcribe: script dir: %w", err)
			return
		}
		path := filepath.Join(e.scriptDir, "lyricsync_whisper_transcribe.py")
		if err := os.WriteFile(path, whisperScript, 0o644); err != nil {
			e.scriptErr = fmt.Errorf("transcribe: write helper script: %w", err)
			return
		}
		e.scriptPath = path
	})
	return e.scriptPath, e.scriptErr
}
