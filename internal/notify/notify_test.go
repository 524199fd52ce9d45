package notify

import (
	"bytes"
	"testing"
)

func TestEscapeAppleScript(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{`say "hi"`, `say \"hi\"`},
		{`a\b`, `a\\b`},
		{"line1\nline2", `line1\nline2`},
		{"tab\there", `tab\there`},
	}
	for _, tt := range tests {
		if got := escapeAppleScript(tt.in); got != tt.want {
			t.Errorf("escapeAppleScript(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAlertScript(t *testing.T) {
	got := alertScript("Subtitler", `Copied "x"`)
	want := `display alert "Subtitler" message "Copied \"x\"" as informational buttons {"OK"} default button "OK"`
	if got != want {
		t.Errorf("alertScript =\n%s\nwant\n%s", got, want)
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := Writer(&buf).Alert("Copied to clipboard!"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "Copied to clipboard!\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	if r.Last() != "" {
		t.Error("empty recorder should return empty last")
	}
	_ = r.Alert("one")
	_ = r.Alert("two")
	if len(r.Messages) != 2 || r.Last() != "two" {
		t.Errorf("messages = %v", r.Messages)
	}
}
