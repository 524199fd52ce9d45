package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tiroq/subtitler/internal/pidfile"
	"github.com/tiroq/subtitler/testutil"
)

// run executes the root command with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func setupEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SUBTITLER_ENDPOINT", "")
	t.Setenv("SUBTITLER_DATA_DIR", "")
	t.Setenv("SUBTITLER_STORAGE", "")
	t.Setenv("SUBTITLER_EXPORT_DIR", "")
	return filepath.Join(home, "data")
}

func TestTranscribeThenHistory(t *testing.T) {
	dataDir := setupEnv(t)
	mock := testutil.NewMockTranscriber("Hello there\nGeneral Kenobi")
	defer mock.Close()
	video := testutil.CreateTempVideo(t, "scene.mp4")
	common := []string{"--data-dir", dataDir, "--endpoint", mock.URL()}

	out, errOut, err := run(t, append([]string{"transcribe", video}, common...)...)
	testutil.AssertNoError(t, err, "transcribe")
	testutil.AssertStringContains(t, out, "Hello there\nGeneral Kenobi", "stdout")
	testutil.AssertStringContains(t, errOut, "✓ Subtitles generated successfully", "stderr")

	out, _, err = run(t, append([]string{"history", "list"}, common...)...)
	testutil.AssertNoError(t, err, "history list")
	fields := strings.Split(strings.TrimSpace(out), "\t")
	if len(fields) != 3 || fields[2] != "scene.mp4" {
		t.Fatalf("unexpected list output %q", out)
	}
	id := fields[0]

	out, _, err = run(t, append([]string{"history", "show", id}, common...)...)
	testutil.AssertNoError(t, err, "history show")
	testutil.AssertStringContains(t, out, "file: scene.mp4", "show header")
	testutil.AssertStringContains(t, out, "Processed: ", "show meta")

	exportDir := t.TempDir()
	out, _, err = run(t, append([]string{"history", "export", id, "--out", exportDir}, common...)...)
	testutil.AssertNoError(t, err, "history export")
	path := strings.TrimSpace(out)
	testutil.AssertEqual(t, filepath.Join(exportDir, "scene.srt"), path, "export path")
	data, err := os.ReadFile(path)
	testutil.AssertNoError(t, err, "read export")
	testutil.AssertEqual(t, "1\n00:00:01,000 --> 00:00:02,000\nHello there\n\n", string(data), "export content")

	out, _, err = run(t, append([]string{"history", "clear"}, common...)...)
	testutil.AssertNoError(t, err, "history clear")
	testutil.AssertStringContains(t, out, "cleared 1 entries", "clear output")

	out, _, err = run(t, append([]string{"history", "list"}, common...)...)
	testutil.AssertNoError(t, err, "history list after clear")
	testutil.AssertEqual(t, "History is empty\n", out, "empty list")

	// The lock is released after each command.
	if _, err := os.Stat(pidfile.Path(dataDir, "subtitler")); !os.IsNotExist(err) {
		t.Error("pid file left behind")
	}
}

func TestTranscribe_ExportFlag(t *testing.T) {
	dataDir := setupEnv(t)
	mock := testutil.NewMockTranscriber("a\nb")
	defer mock.Close()
	exportDir := t.TempDir()

	_, errOut, err := run(t, "transcribe", testutil.CreateTempVideo(t, "clip"), "--export", "--out", exportDir,
		"--data-dir", dataDir, "--endpoint", mock.URL())
	testutil.AssertNoError(t, err, "transcribe --export")
	testutil.AssertStringContains(t, errOut, filepath.Join(exportDir, "clip.srt"), "saved path")
}

func TestTranscribe_ServerError(t *testing.T) {
	dataDir := setupEnv(t)
	mock := testutil.NewMockTranscriber("x")
	defer mock.Close()
	mock.SetFailureMode(testutil.ModeServerErr)

	_, errOut, err := run(t, "transcribe", testutil.CreateTempVideo(t, "a.mp4"), "--data-dir", dataDir, "--endpoint", mock.URL())
	testutil.AssertErrorContains(t, err, "Server error: 500", "server error")
	testutil.AssertStringContains(t, errOut, "HTTP 500", "troubleshooting hint")

	out, _, err := run(t, "history", "list", "--data-dir", dataDir, "--endpoint", mock.URL())
	testutil.AssertNoError(t, err, "history list")
	testutil.AssertEqual(t, "History is empty\n", out, "failed upload not saved")
}

func TestTranscribe_Locked(t *testing.T) {
	dataDir := setupEnv(t)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		t.Fatal(err)
	}
	// PID 1 is always alive.
	if err := os.WriteFile(pidfile.Path(dataDir, "subtitler"), []byte("1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, _, err := run(t, "transcribe", "x.mp4", "--data-dir", dataDir)
	testutil.AssertErrorContains(t, err, "already running", "lock held")
}

func TestHistory_InvalidAndUnknownID(t *testing.T) {
	dataDir := setupEnv(t)
	_, _, err := run(t, "history", "show", "abc", "--data-dir", dataDir)
	testutil.AssertErrorContains(t, err, "invalid history id", "invalid id")

	_, _, err = run(t, "history", "show", "42", "--data-dir", dataDir)
	testutil.AssertErrorContains(t, err, "not found", "unknown id")
}

func TestHealth(t *testing.T) {
	dataDir := setupEnv(t)
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()

	out, _, err := run(t, "health", "--data-dir", dataDir, "--endpoint", ok.URL+"/transcribe")
	testutil.AssertNoError(t, err, "health ok")
	testutil.AssertStringContains(t, out, "reachable", "health output")

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer bad.Close()
	_, errOut, err := run(t, "health", "--data-dir", dataDir, "--endpoint", bad.URL+"/transcribe")
	testutil.AssertErrorContains(t, err, "unhealthy", "health failure")
	testutil.AssertStringContains(t, errOut, "HTTP 503", "health hint")
}

func TestConfigValidation(t *testing.T) {
	dataDir := setupEnv(t)
	_, _, err := run(t, "history", "list", "--data-dir", dataDir, "--endpoint", "ftp://nope")
	testutil.AssertErrorContains(t, err, "endpoint must be an http(s) URL", "bad endpoint")
}

func TestDiagExport(t *testing.T) {
	dataDir := setupEnv(t)
	_, _, err := run(t, "diag", "export", "--data-dir", dataDir)
	testutil.AssertErrorContains(t, err, "SUBTITLER_DEBUG=true", "missing log hint")

	t.Setenv("SUBTITLER_DEBUG", "true")
	mock := testutil.NewMockTranscriber("x")
	defer mock.Close()
	_, _, err = run(t, "transcribe", testutil.CreateTempVideo(t, "a.mp4"), "--data-dir", dataDir, "--endpoint", mock.URL())
	testutil.AssertNoError(t, err, "transcribe with debug")

	dest := t.TempDir()
	out, _, err := run(t, "diag", "export", "--data-dir", dataDir, "--dest", dest)
	testutil.AssertNoError(t, err, "diag export")
	testutil.AssertStringContains(t, out, "Wrote: "+dest, "export output")
}

func TestRotateLogIfNeeded(t *testing.T) {
	p := filepath.Join(t.TempDir(), "x.log")
	testutil.AssertNoError(t, rotateLogIfNeeded(p, 10), "missing file")

	_ = os.WriteFile(p, []byte("0123456789ab"), 0644)
	testutil.AssertNoError(t, rotateLogIfNeeded(p, 10), "rotate")
	if _, err := os.Stat(p + ".old"); err != nil {
		t.Errorf("rotated file missing: %v", err)
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Error("original should have moved")
	}
}
