package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// Failure modes define how the mock server behaves
const (
	ModeNormal    = "normal"    // 200 with {"subtitles": ...}
	ModeEmpty     = "empty"     // 200 with {}
	ModeServerErr = "server500" // 500 with a text body
	ModeMalformed = "malformed" // 200 with a body that is not JSON
	ModeHangUp    = "hangup"    // connection closed without a reply
	ModeSlow      = "slow"      // waits before replying normally
)

// Upload records one request received by the mock server.
type Upload struct {
	Method      string
	ContentType string
	FieldName   string
	FileName    string
	Size        int64
}

// MockTranscriber simulates the transcription endpoint for testing
type MockTranscriber struct {
	server    *httptest.Server
	mu        sync.Mutex
	mode      string
	subtitles string
	delay     time.Duration
	field     string
	uploads   []Upload
}

// NewMockTranscriber starts a mock server answering with subtitles in
// normal mode. Call Close when done.
func NewMockTranscriber(subtitles string) *MockTranscriber {
	m := &MockTranscriber{
		mode:      ModeNormal,
		subtitles: subtitles,
		delay:     2 * time.Second,
		field:     "video",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/transcribe", m.handleTranscribe)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
	m.server = httptest.NewServer(mux)
	return m
}

// URL returns the transcription endpoint URL.
func (m *MockTranscriber) URL() string {
	return m.server.URL + "/transcribe"
}

// Close shuts the server down.
func (m *MockTranscriber) Close() {
	m.server.CloseClientConnections()
	m.server.Close()
}

// SetFailureMode changes how the server behaves
func (m *MockTranscriber) SetFailureMode(mode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
}

// SetSubtitles changes the text returned in normal mode.
func (m *MockTranscriber) SetSubtitles(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subtitles = s
}

// SetDelay sets how long slow mode waits.
func (m *MockTranscriber) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetFieldName sets the multipart field the server expects.
func (m *MockTranscriber) SetFieldName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.field = name
}

// Uploads returns a copy of the requests seen so far.
func (m *MockTranscriber) Uploads() []Upload {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Upload, len(m.uploads))
	copy(out, m.uploads)
	return out
}

func (m *MockTranscriber) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	mode, subs, delay, field := m.mode, m.subtitles, m.delay, m.field
	m.mu.Unlock()

	up := Upload{Method: r.Method, ContentType: r.Header.Get("Content-Type"), FieldName: field}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		http.Error(w, fmt.Sprintf("missing field %q: %v", field, err), http.StatusBadRequest)
		return
	}
	up.FileName = header.Filename
	up.Size, _ = io.Copy(io.Discard, file)
	file.Close()

	m.mu.Lock()
	m.uploads = append(m.uploads, up)
	m.mu.Unlock()

	switch mode {
	case ModeServerErr:
		http.Error(w, "internal error", http.StatusInternalServerError)
	case ModeEmpty:
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, "{}")
	case ModeMalformed:
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, "{not json")
	case ModeHangUp:
		hj, ok := w.(http.Hijacker)
		if !ok {
			http.Error(w, "hijack unsupported", http.StatusInternalServerError)
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			conn.Close()
		}
	case ModeSlow:
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
		fallthrough
	default:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"subtitles": subs})
	}
}
