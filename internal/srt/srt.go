// Package srt turns plain subtitle text into the pseudo-SRT download format.
//
// The timing is fabricated: each pair of non-blank lines becomes one block
// whose one-second window is derived from the block counter, not from the
// audio. Only the first line of each pair is written and a trailing unpaired
// line is dropped.
package srt

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tiroq/subtitler/internal/fileutil"
)

// Export formats.
const (
	FormatSRT  = "srt"
	FormatText = "txt"
)

var lastExt = regexp.MustCompile(`\.[^.]+$`)

// Convert builds pseudo-SRT text from subtitles.
func Convert(text string) string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}

	var b strings.Builder
	counter := 1
	for i := 0; i+1 < len(lines); i += 2 {
		fmt.Fprintf(&b, "%d\n", counter)
		fmt.Fprintf(&b, "%s --> %s\n", formatTimestamp(counter), formatTimestamp(counter+1))
		fmt.Fprintf(&b, "%s\n\n", lines[i])
		counter++
	}
	return b.String()
}

// formatTimestamp renders the placeholder time 00:00:SS,000 where SS is the
// zero-padded counter value.
func formatTimestamp(sec int) string {
	return fmt.Sprintf("00:00:%02d,000", sec)
}

// ExportName derives the download name for fileName: the last extension is
// replaced by ext, or ext is appended when there is none.
func ExportName(fileName, ext string) string {
	base := filepath.Base(fileName)
	if lastExt.MatchString(base) {
		return lastExt.ReplaceAllLiteralString(base, "."+ext)
	}
	return base + "." + ext
}

// Export writes subtitles for fileName into dir in the given format and
// returns the written path. An existing file is never overwritten; a numeric
// suffix is added instead.
func Export(dir, fileName, subtitles, format string) (string, error) {
	var content string
	switch format {
	case FormatSRT, "":
		format = FormatSRT
		content = Convert(subtitles)
	case FormatText:
		content = subtitles
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}

	path := fileutil.AvailablePath(dir, ExportName(fileName, format))
	if err := fileutil.AtomicWrite(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("export %s: %w", filepath.Base(path), err)
	}
	return path, nil
}
