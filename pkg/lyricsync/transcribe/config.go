package transcribe

import (
	"fmt"
	"strings"
)

// Engine kinds accepted by NewEngine.
const (
	KindPython  = "python"
	KindHTTP    = "http"
	KindOpenAI  = "openai"
	KindDefault = KindPython
)

// EngineConfig selects and configures an engine. It is shared by the
// binaries' flags and the server's YAML file.
type EngineConfig struct {
	Kind      string  `yaml:"kind"`
	URL       string  `yaml:"url"`
	Endpoint  string  `yaml:"endpoint"`
	Model     string  `yaml:"model"`
	Language  string  `yaml:"language"`
	Python    string  `yaml:"python"`
	APIKey    string  `yaml:"api_key"`
	ScriptDir string  `yaml:"script_dir"`
	Temp      float64 `yaml:"temperature"`
}

// NewEngine builds the engine described by cfg.
func NewEngine(cfg EngineConfig) (Engine, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))
	if kind == "" {
		kind = KindDefault
	}

	switch kind {
	case KindPython:
		opts := []PythonOption{}
		if cfg.Python != "" {
			opts = append(opts, WithPython(cfg.Python))
		}
		if cfg.Model != "" {
			opts = append(opts, WithPythonModel(cfg.Model))
		}
		if cfg.Language != "" {
			opts = append(opts, WithPythonLanguage(cfg.Language))
		}
		if cfg.ScriptDir != "" {
			opts = append(opts, WithScriptDir(cfg.ScriptDir))
		}
		return NewPythonEngine(opts...), nil

	case KindHTTP, KindOpenAI:
		if cfg.URL == "" {
			return nil, fmt.Errorf("transcribe: %s engine needs a server URL", kind)
		}
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = EndpointWhisperCpp
			if kind == KindOpenAI {
				endpoint = EndpointOpenAI
			}
		}
		return NewHTTPEngine(cfg.URL,
			WithEndpoint(endpoint),
			WithModel(cfg.Model),
			WithLanguage(cfg.Language),
			WithAPIKey(cfg.APIKey),
			WithTemperature(cfg.Temp),
		)

	default:
		return nil, fmt.Errorf("transcribe: unknown engine kind %q (want python, http or openai)", cfg.Kind)
	}
}
