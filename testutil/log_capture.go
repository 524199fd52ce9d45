package testutil

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/tiroq/subtitler/internal/diaglog"
)

// DiagCapture enables debug logging for the duration of a test and reads
// back what was written.
type DiagCapture struct {
	Logger *diaglog.Logger
	path   string
}

// NewDiagCapture sets SUBTITLER_DEBUG=true and opens a logger in a temp dir.
// The logger is closed when the test ends.
func NewDiagCapture(t *testing.T) *DiagCapture {
	t.Helper()
	t.Setenv(diaglog.EnvDebug, "true")
	path := filepath.Join(t.TempDir(), "debug.ndjson")
	l, err := diaglog.New(path)
	if err != nil {
		t.Fatalf("open diag logger: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return &DiagCapture{Logger: l, path: path}
}

// Entries returns every entry written so far.
func (dc *DiagCapture) Entries(t *testing.T) []diaglog.LogEntry {
	t.Helper()
	f, err := os.Open(dc.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("open diag log: %v", err)
	}
	defer f.Close()

	var out []diaglog.LogEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e diaglog.LogEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("invalid NDJSON line %q: %v", sc.Text(), err)
		}
		out = append(out, e)
	}
	return out
}

// Events returns the event names in write order.
func (dc *DiagCapture) Events(t *testing.T) []string {
	t.Helper()
	var events []string
	for _, e := range dc.Entries(t) {
		events = append(events, e.Event)
	}
	return events
}

// HasEvent reports whether an entry with the given event was written.
func (dc *DiagCapture) HasEvent(t *testing.T, event string) bool {
	t.Helper()
	for _, e := range dc.Entries(t) {
		if e.Event == event {
			return true
		}
	}
	return false
}
