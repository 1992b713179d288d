package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	transcriptionPath  = "/v1/audio/transcriptions"
	defaultHTTPTimeout = 10 * time.Minute
)

// Config captures the runtime settings for a Whisper-compatible endpoint.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	Language       string
	TimeoutSeconds int
}

// Client posts audio files to a Whisper-compatible transcription API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a transcription client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			Model:          strings.TrimSpace(cfg.Model),
			Language:       strings.TrimSpace(cfg.Language),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Segment is one timed span of transcribed text.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the parsed verbose transcription response.
type Result struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// Transcribe uploads the audio file and returns the parsed transcription.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	if c.cfg.BaseURL == "" {
		return nil, errors.New("transcribe: base url required")
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: open audio: %w", err)
	}
	defer file.Close()

	body, contentType, err := c.buildRequestBody(file, filepath.Base(audioPath))
	if err != nil {
		return nil, err
	}

	endpoint, err := url.JoinPath(c.cfg.BaseURL, transcriptionPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: build url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("transcribe: new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcribe: http error: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transcribe: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcribe: http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("transcribe: decode response: %w", err)
	}
	result.Text = strings.TrimSpace(result.Text)
	for i := range result.Segments {
		result.Segments[i].Text = strings.TrimSpace(result.Segments[i].Text)
	}
	return &result, nil
}

// buildRequestBody assembles the multipart form. The whole body is buffered;
// extracted audio is mono 16kHz WAV, small enough not to stream.
func (c *Client) buildRequestBody(file io.Reader, filename string) (io.Reader, string, error) {
	var buf strings.Builder
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("transcribe: create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("transcribe: copy audio: %w", err)
	}

	if c.cfg.Model != "" {
		if err := writer.WriteField("model", c.cfg.Model); err != nil {
			return nil, "", fmt.Errorf("transcribe: write model field: %w", err)
		}
	}
	if c.cfg.Language != "" {
		if err := writer.WriteField("language", c.cfg.Language); err != nil {
			return nil, "", fmt.Errorf("transcribe: write language field: %w", err)
		}
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, "", fmt.Errorf("transcribe: write format field: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("transcribe: close form: %w", err)
	}
	return strings.NewReader(buf.String()), writer.FormDataContentType(), nil
}
