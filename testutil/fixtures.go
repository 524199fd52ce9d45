package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// CreateTempVideo writes a small fake video file named name into a fresh
// temp dir and returns its path.
func CreateTempVideo(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	data := make([]byte, 4096)
	copy(data, []byte("\x00\x00\x00\x18ftypmp42"))
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write temp video: %v", err)
	}
	return path
}
