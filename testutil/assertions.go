package testutil

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

// AssertEqual fails the test when want != got.
func AssertEqual(t *testing.T, want, got any, msg string) {
	t.Helper()
	if want != got {
		t.Fatalf("%s: want %v, got %v", msg, want, got)
	}
}

func AssertTrue(t *testing.T, cond bool, msg string) {
	t.Helper()
	if !cond {
		t.Fatalf("%s: condition is false", msg)
	}
}

func AssertFalse(t *testing.T, cond bool, msg string) {
	t.Helper()
	if cond {
		t.Fatalf("%s: condition is true", msg)
	}
}

func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}

func AssertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: got nil error", msg)
	}
}

// AssertErrorIs checks the error chain for target.
func AssertErrorIs(t *testing.T, err, target error, msg string) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("%s: error %v is not %v", msg, err, target)
	}
}

// AssertErrorContains checks the error message, not the chain.
func AssertErrorContains(t *testing.T, err error, substr, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: got nil error, want one mentioning %q", msg, substr)
	}
	if !strings.Contains(err.Error(), substr) {
		t.Fatalf("%s: %q does not mention %q", msg, err.Error(), substr)
	}
}

func AssertStringContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Fatalf("%s: %q does not contain %q", msg, s, substr)
	}
}

func AssertStringNotContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if strings.Contains(s, substr) {
		t.Fatalf("%s: %q unexpectedly contains %q", msg, s, substr)
	}
}

// AssertJSONArrayLen decodes a stored JSON array (such as the raw
// subtitleHistory value) and checks its length. It returns the decoded
// objects for further checks.
func AssertJSONArrayLen(t *testing.T, raw string, n int, msg string) []map[string]any {
	t.Helper()
	var items []map[string]any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		t.Fatalf("%s: not a JSON array of objects: %v", msg, err)
	}
	if len(items) != n {
		t.Fatalf("%s: want %d items, got %d", msg, n, len(items))
	}
	return items
}

// WaitForCondition polls cond every 10ms until it holds or timeout passes.
func WaitForCondition(t *testing.T, cond func() bool, timeout time.Duration, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("%s: still false after %v", msg, timeout)
}
