package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// EndpointWhisperCpp is the inference route of the whisper.cpp server.
	EndpointWhisperCpp = "/inference"
	// EndpointOpenAI is the OpenAI-compatible transcription route.
	EndpointOpenAI = "/v1/audio/transcriptions"
)

// Compile-time assertion that HTTPEngine implements Engine.
var _ Engine = (*HTTPEngine)(nil)

// HTTPOption configures an HTTPEngine.
type HTTPOption func(*HTTPEngine)

// WithModel sets the model forwarded to the server. Empty leaves the choice to the server.
func WithModel(model string) HTTPOption {
	return func(e *HTTPEngine) {
		e.model = model
	}
}

// WithLanguage sets the spoken language hint (e.g. "en"). Empty lets the server detect it.
func WithLanguage(lang string) HTTPOption {
	return func(e *HTTPEngine) {
		e.language = lang
	}
}

// WithEndpoint sets the request path, EndpointWhisperCpp by default.
func WithEndpoint(path string) HTTPOption {
	return func(e *HTTPEngine) {
		e.endpoint = path
	}
}

// WithTemperature sets the decoding temperature.
func WithTemperature(t float64) HTTPOption {
	return func(e *HTTPEngine) {
		e.temperature = t
	}
}

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) HTTPOption {
	return func(e *HTTPEngine) {
		e.apiKey = key
	}
}

// WithHTTPClient replaces the default client (10 minute timeout).
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(e *HTTPEngine) {
		e.client = c
	}
}

// HTTPEngine uploads audio to a whisper server and reads back verbose JSON.
// It keeps no per-request state and may be shared between goroutines.
type HTTPEngine struct {
	serverURL   string
	endpoint    string
	model       string
	language    string
	temperature float64
	apiKey      string
	client      *http.Client
}

// NewHTTPEngine returns an engine talking to the server at serverURL
// (e.g. "http://localhost:8080").
func NewHTTPEngine(serverURL string, opts ...HTTPOption) (*HTTPEngine, error) {
	if serverURL == "" {
		return nil, errors.New("transcribe: serverURL must not be empty")
	}
	e := &HTTPEngine{
		serverURL: strings.TrimRight(serverURL, "/"),
		endpoint:  EndpointWhisperCpp,
		client:    &http.Client{Timeout: 10 * time.Minute},
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

func (e *HTTPEngine) Name() string {
	if e.model != "" {
		return "whisper-http:" + e.model
	}
	return "whisper-http"
}

// Transcribe streams audioPath to the server as multipart form data.
func (e *HTTPEngine) Transcribe(ctx context.Context, audioPath string) (*Transcript, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: open audio: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(e.writeForm(mw, f, filepath.Base(audioPath)))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.serverURL+e.endpoint, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("transcribe: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("transcribe: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("transcribe: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("transcribe: server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var raw rawTranscript
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("transcribe: decode response: %w", err)
	}
	return raw.toTranscript(), nil
}

func (e *HTTPEngine) writeForm(mw *multipart.Writer, audio io.Reader, filename string) error {
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return err
	}

	fields := map[string]string{
		"response_format":           "verbose_json",
		"temperature":               strconv.FormatFloat(e.temperature, 'f', -1, 64),
		"timestamp_granularities[]": "segment",
	}
	if e.model != "" {
		fields["model"] = e.model
	}
	if e.language != "" {
		fields["language"] = e.language
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	return mw.Close()
}
