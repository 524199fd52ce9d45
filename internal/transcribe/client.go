// Package transcribe uploads a video file to the transcription endpoint and
// returns the subtitle text it produces.
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
	"sync"
	"time"

	"github.com/tiroq/subtitler/internal/diaglog"
)

// Config configures the transcription client.
type Config struct {
	Endpoint       string // full URL receiving the multipart POST
	FieldName      string // multipart field name, default "video"
	TimeoutSeconds int    // 0 = no client-side timeout
	UserAgent      string // optional User-Agent header
}

var (
	// ErrTransport marks failures to reach the endpoint or read its reply.
	ErrTransport = errors.New("transport error")
	// ErrDecode marks a 2xx reply whose body is not the expected JSON.
	ErrDecode = errors.New("invalid response")
)

// ServerError is returned for a non-2xx HTTP status.
type ServerError struct {
	StatusCode int
	Body       string // first bytes of the response body, for diagnostics
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("Server error: %d", e.StatusCode)
}

// Result is the outcome of a successful transcription request.
type Result struct {
	Subtitles string
	Found     bool // false when the reply carried no subtitles field (or an empty one)
}

// HealthStatus reports endpoint reachability.
type HealthStatus struct {
	OK         bool
	StatusCode int
	Message    string
	Latency    time.Duration
}

// Client posts files to the transcription endpoint.
type Client struct {
	cfg    Config
	client *http.Client

	logger   *diaglog.Logger
	loggerMu sync.RWMutex
}

// NewClient creates a new transcription client.
func NewClient(cfg Config) *Client {
	if cfg.FieldName == "" {
		cfg.FieldName = "video"
	}
	if cfg.TimeoutSeconds < 0 {
		cfg.TimeoutSeconds = 0
	}
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// SetLogger injects a diaglog.Logger for debug logging.
func (c *Client) SetLogger(l *diaglog.Logger) {
	c.loggerMu.Lock()
	c.logger = l
	c.loggerMu.Unlock()
}

func (c *Client) log(entry diaglog.LogEntry) {
	c.loggerMu.RLock()
	l := c.logger
	c.loggerMu.RUnlock()
	if l == nil {
		return
	}
	if entry.Component == "" {
		entry.Component = diaglog.ComponentTranscribe
	}
	l.Log(entry)
}

// Endpoint returns the configured URL.
func (c *Client) Endpoint() string {
	return c.cfg.Endpoint
}

// transcribeResponse mirrors the JSON shape returned by the endpoint.
type transcribeResponse struct {
	Subtitles string `json:"subtitles"`
}

// Transcribe sends the file at filePath as multipart form data and parses
// the reply. There are no retries.
func (c *Client) Transcribe(ctx context.Context, filePath string) (*Result, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	start := time.Now()
	name := filepath.Base(filePath)

	// Stream the multipart body through a pipe so large videos are never
	// buffered in memory.
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	errCh := make(chan error, 1)
	go func() {
		part, err := writer.CreateFormFile(c.cfg.FieldName, name)
		if err != nil {
			err = fmt.Errorf("create form file: %w", err)
			pw.CloseWithError(err)
			errCh <- err
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			err = fmt.Errorf("copy video data: %w", err)
			pw.CloseWithError(err)
			errCh <- err
			return
		}
		err = writer.Close()
		pw.CloseWithError(err)
		errCh <- err
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, pr)
	if err != nil {
		pr.Close()
		<-errCh
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		pr.Close()
		<-errCh
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", ErrTransport, err)
	}

	// The server may reply before consuming the whole upload; only a
	// writer failure on a 2xx reply matters.
	pr.Close()
	writeErr := <-errCh

	payload := map[string]interface{}{
		"file":        name,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload["body"] = truncate(body, 200)
		c.log(diaglog.LogEntry{Event: diaglog.EventUploadFailed, Payload: payload})
		return nil, &ServerError{StatusCode: resp.StatusCode, Body: truncate(body, 200)}
	}
	if writeErr != nil && !errors.Is(writeErr, io.ErrClosedPipe) {
		return nil, fmt.Errorf("multipart write: %w", writeErr)
	}

	var parsed transcribeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.log(diaglog.LogEntry{Event: diaglog.EventUploadFailed, Reason: "decode", Payload: payload})
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	payload["found"] = parsed.Subtitles != ""
	c.log(diaglog.LogEntry{Event: diaglog.EventUploadCompleted, Payload: payload})

	return &Result{
		Subtitles: parsed.Subtitles,
		Found:     parsed.Subtitles != "",
	}, nil
}

// HealthCheck issues a GET against the root of the endpoint's origin. Any
// 2xx reply counts as healthy. Failures are reported in the status, not as
// an error; an error means the request could not be built.
func (c *Client) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	root := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, root.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create health request: %w", err)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return &HealthStatus{
			OK:      false,
			Message: fmt.Sprintf("health check failed: %v", err),
			Latency: latency,
		}, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	status := &HealthStatus{
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		Latency:    latency,
	}
	if status.OK {
		status.Message = "reachable"
	} else {
		status.Message = fmt.Sprintf("unhealthy: http %d: %s", resp.StatusCode, truncate(body, 200))
	}
	c.log(diaglog.LogEntry{
		Event:   diaglog.EventHealthCheck,
		Payload: map[string]interface{}{"ok": status.OK, "status": resp.StatusCode, "latency_ms": latency.Milliseconds()},
	})
	return status, nil
}

// truncate returns the first n bytes of body as a string.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
