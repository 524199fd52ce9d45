// Package diaglog provides structured NDJSON diagnostic logging for subtitler.
// Activated by SUBTITLER_DEBUG=true. When the env var is absent, all Log calls
// are no-ops and no file is created.
package diaglog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnvDebug is the environment variable that switches diagnostic logging on.
const EnvDebug = "SUBTITLER_DEBUG"

// maxLogSize is the size at which the log file is truncated and restarted.
const maxLogSize = 10 * 1024 * 1024

// ── Component labels ─────────────────────────────────────────────────────────

const (
	ComponentTranscribe = "transcribe-client"
	ComponentController = "controller"
	ComponentHistory    = "history"
	ComponentWatcher    = "watcher"
	ComponentDiagExport = "diag-export"
	ComponentCLI        = "subtitler"
)

// ── Event names ──────────────────────────────────────────────────────────────

const (
	EventUploadStart     = "upload_start"
	EventUploadCompleted = "upload_completed"
	EventUploadFailed    = "upload_failed"
	EventHistorySaved    = "history_saved"
	EventHistoryLoaded   = "history_loaded"
	EventHistorySelected = "history_selected"
	EventExportWritten   = "export_written"
	EventClipboardCopy   = "clipboard_copy"
	EventSessionReset    = "session_reset"
	EventWatchFile       = "watch_file"
	EventHealthCheck     = "health_check"
)

// ── LogEntry ─────────────────────────────────────────────────────────────────

// LogEntry is one structured event record written as a single JSON line.
type LogEntry struct {
	Timestamp string      `json:"ts"`                   // RFC3339Nano
	Component string      `json:"component"`            // see Component* constants
	Event     string      `json:"event"`                // see Event* constants
	SessionID int64       `json:"session_id,omitempty"` // transcription session id (ms timestamp)
	Reason    string      `json:"reason,omitempty"`
	Payload   interface{} `json:"payload,omitempty"` // redacted before write
}

// ── Logger ───────────────────────────────────────────────────────────────────

// Logger writes LogEntry values to a rolling NDJSON file. When debug mode is
// disabled every Log call is a no-op.
type Logger struct {
	rw      *rollingWriter
	mu      sync.Mutex
	enabled bool
}

// New opens (or creates) the NDJSON log file at path. If debug mode is
// disabled, path is ignored and a no-op logger is returned.
func New(path string) (*Logger, error) {
	if !IsDebugEnabled() {
		return &Logger{enabled: false}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	rw, err := newRollingWriter(path, maxLogSize)
	if err != nil {
		return nil, err
	}
	return &Logger{rw: rw, enabled: true}, nil
}

// Log serialises entry to JSON, appends a newline, and writes to the rolling
// file. Sensitive payload fields are redacted before serialisation.
func (l *Logger) Log(entry LogEntry) {
	if l == nil || !l.enabled {
		return
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if entry.Payload != nil {
		entry.Payload = Redact(entry.Payload)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.rw.Write(data)
}

// Enabled reports whether entries are actually written.
func (l *Logger) Enabled() bool {
	return l != nil && l.enabled
}

// Close flushes and closes the underlying file. Safe on nil/disabled logger.
func (l *Logger) Close() error {
	if l == nil || !l.enabled || l.rw == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rw.close()
}

// IsDebugEnabled reports whether SUBTITLER_DEBUG is set to "true".
func IsDebugEnabled() bool {
	return os.Getenv(EnvDebug) == "true"
}

// DefaultPath returns the log location inside dataDir.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, "subtitler-debug.ndjson")
}

// NewNoOp returns a logger where every Log call is a no-op. Use as a safe
// fallback when New fails (e.g., disk full, permissions error).
func NewNoOp() *Logger {
	return &Logger{enabled: false}
}
