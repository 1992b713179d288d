package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// StatusError reports a non-2xx API response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s (HTTP %d)", e.Message, e.Code)
	}
	return fmt.Sprintf("api: HTTP %d", e.Code)
}

// IsConflict reports whether the error is an HTTP 409 from the daemon.
func IsConflict(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusConflict
}

// Client talks to the daemon HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs an API client for the daemon at baseURL
// (e.g. "http://127.0.0.1:7519").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Ingest registers a source file and returns the created record.
func (c *Client) Ingest(ctx context.Context, req IngestRequest) (*MediaView, error) {
	var view MediaView
	if err := c.do(ctx, http.MethodPost, "/api/media", req, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Process submits a pending record for processing.
func (c *Client) Process(ctx context.Context, id int64) (*MediaView, error) {
	var view MediaView
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/media/%d/process", id), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Retry resets a failed record to pending under a fresh run id.
func (c *Client) Retry(ctx context.Context, id int64) (*MediaView, error) {
	var view MediaView
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/media/%d/retry", id), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Remove deletes a terminal or pending record.
func (c *Client) Remove(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/media/%d", id), nil, nil)
}

// List returns all media records.
func (c *Client) List(ctx context.Context) (*MediaList, error) {
	var list MediaList
	if err := c.do(ctx, http.MethodGet, "/api/media", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Get returns one record with its current-run artifacts.
func (c *Client) Get(ctx context.Context, id int64) (*MediaDetail, error) {
	var detail MediaDetail
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/media/%d", id), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Logs returns a snapshot of progress log entries after the given sequence.
func (c *Client) Logs(ctx context.Context, id, since int64) (*LogBatch, error) {
	var batch LogBatch
	path := fmt.Sprintf("/api/media/%d/logs?since=%d", id, since)
	if err := c.do(ctx, http.MethodGet, path, nil, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// Status returns the daemon summary.
func (c *Client) Status(ctx context.Context) (*StatusView, error) {
	var status StatusView
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// StreamLogs follows the SSE log stream from the given sequence. onBatch is
// invoked per log event; StreamLogs returns the end payload once the record
// reaches a terminal state, or an error if the stream drops first.
func (c *Client) StreamLogs(ctx context.Context, id, since int64, onBatch func(LogBatch)) (*StreamEnd, error) {
	path := fmt.Sprintf("%s/api/media/%d/logs/stream?since=%d", c.baseURL, id, since)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	// Streaming responses must not inherit the request timeout.
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var event string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			switch event {
			case "log":
				var batch LogBatch
				if err := json.Unmarshal([]byte(data), &batch); err != nil {
					return nil, fmt.Errorf("decode log event: %w", err)
				}
				if onBatch != nil {
					onBatch(batch)
				}
			case "end":
				var end StreamEnd
				if err := json.Unmarshal([]byte(data), &end); err != nil {
					return nil, fmt.Errorf("decode end event: %w", err)
				}
				return &end, nil
			}
		case line == "":
			event = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.ErrUnexpectedEOF
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) statusError(resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr ErrorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Error != "" {
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
	}
	return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(payload))}
}
