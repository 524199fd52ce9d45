// Package fileutil provides file naming and atomic write helpers shared by
// the history store and subtitle export.
package fileutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	illegalChars = regexp.MustCompile(`[\/\\:*?"<>|]`)
	whitespace   = regexp.MustCompile(`[\s_]+`)
)

// SanitizeForFilename sanitizes a string for safe use in filenames. fallback
// is returned when nothing usable remains.
func SanitizeForFilename(input, fallback string) string {
	// Illegal chars: / \ : * ? " < > |
	sanitized := illegalChars.ReplaceAllString(input, "_")

	// Collapse spaces/underscores into a single hyphen
	sanitized = whitespace.ReplaceAllString(sanitized, "-")
	sanitized = strings.Trim(sanitized, "-.")

	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
		sanitized = strings.TrimRight(sanitized, "-")
	}

	if sanitized == "" {
		return fallback
	}
	return sanitized
}

// AvailablePath returns dir/name, or dir/<base>_<n><ext> with the smallest
// n >= 2 that does not exist yet, so an export never overwrites an earlier one.
func AvailablePath(dir, name string) string {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 2; ; i++ {
		try := filepath.Join(dir, base+"_"+strconv.Itoa(i)+ext)
		if _, err := os.Stat(try); os.IsNotExist(err) {
			return try
		}
	}
}
