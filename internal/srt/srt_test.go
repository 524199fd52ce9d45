package srt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "odd count drops the unpaired line",
			in:   "a\nb\nc",
			want: "1\n00:00:01,000 --> 00:00:02,000\na\n\n",
		},
		{
			name: "two pairs",
			in:   "a\nb\nc\nd",
			want: "1\n00:00:01,000 --> 00:00:02,000\na\n\n" +
				"2\n00:00:02,000 --> 00:00:03,000\nc\n\n",
		},
		{
			name: "blank and whitespace-only lines are skipped",
			in:   "\nfirst\n   \nsecond\n\t\nthird\nfourth\n",
			want: "1\n00:00:01,000 --> 00:00:02,000\nfirst\n\n" +
				"2\n00:00:02,000 --> 00:00:03,000\nthird\n\n",
		},
		{
			name: "lines keep their own indentation",
			in:   "  indented\nnext",
			want: "1\n00:00:01,000 --> 00:00:02,000\n  indented\n\n",
		},
		{name: "single line yields nothing", in: "alone", want: ""},
		{name: "empty input", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Convert(tt.in); got != tt.want {
				t.Errorf("Convert(%q)\n got %q\nwant %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestConvertCounterPadding(t *testing.T) {
	var lines []string
	for i := 0; i < 24; i++ {
		lines = append(lines, "x")
	}
	got := Convert(strings.Join(lines, "\n"))

	if !strings.Contains(got, "9\n00:00:09,000 --> 00:00:10,000\n") {
		t.Errorf("block 9 window wrong:\n%s", got)
	}
	if !strings.Contains(got, "12\n00:00:12,000 --> 00:00:13,000\n") {
		t.Errorf("block 12 window wrong:\n%s", got)
	}
	if strings.Count(got, " --> ") != 12 {
		t.Errorf("want 12 blocks, got %d", strings.Count(got, " --> "))
	}
}

func TestExportName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"talk.mp4", "talk.srt"},
		{"my.holiday.video.mkv", "my.holiday.video.srt"},
		{"noext", "noext.srt"},
		{"/tmp/dir/clip.MOV", "clip.srt"},
		{"trailingdot.", "trailingdot..srt"},
	}
	for _, tt := range tests {
		if got := ExportName(tt.in, FormatSRT); got != tt.want {
			t.Errorf("ExportName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExportWritesSRT(t *testing.T) {
	dir := t.TempDir()

	path, err := Export(dir, "lecture.mp4", "a\nb\nc\nd", FormatSRT)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if path != filepath.Join(dir, "lecture.srt") {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != Convert("a\nb\nc\nd") {
		t.Errorf("content mismatch:\n%s", data)
	}
}

func TestExportDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()

	first, err := Export(dir, "lecture.mp4", "a\nb", "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := Export(dir, "lecture.mp4", "c\nd", FormatSRT)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatalf("second export reused %s", first)
	}
	if filepath.Base(second) != "lecture_2.srt" {
		t.Errorf("second = %s", second)
	}
}

func TestExportText(t *testing.T) {
	dir := t.TempDir()
	path, err := Export(dir, "lecture.mp4", "raw text\n", FormatText)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "lecture.txt" {
		t.Errorf("path = %s", path)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "raw text\n" {
		t.Errorf("content = %q", data)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	if _, err := Export(t.TempDir(), "a.mp4", "x", "vtt"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestExportCreatesParentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	if _, err := Export(dir, "a.mp4", "x\ny", FormatSRT); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.srt")); err != nil {
		t.Errorf("file not created: %v", err)
	}
}
