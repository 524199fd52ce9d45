// Package notify raises blocking user alerts.
package notify

import (
	"fmt"
	"io"
	"strings"
)

// Alerter shows a message and returns once the user has acknowledged it.
type Alerter interface {
	Alert(message string) error
}

// AlerterFunc adapts a function to Alerter.
type AlerterFunc func(message string) error

func (f AlerterFunc) Alert(message string) error { return f(message) }

// Writer prints alerts to w. It does not wait for input.
func Writer(w io.Writer) Alerter {
	return AlerterFunc(func(message string) error {
		_, err := fmt.Fprintln(w, message)
		return err
	})
}

// Recorder keeps every alert raised. Used in tests.
type Recorder struct {
	Messages []string
}

func (r *Recorder) Alert(message string) error {
	r.Messages = append(r.Messages, message)
	return nil
}

// Last returns the most recent alert or "".
func (r *Recorder) Last() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1]
}

// escapeAppleScript escapes s for use inside an AppleScript string literal.
func escapeAppleScript(s string) string {
	var b strings.Builder
	for _, ch := range s {
		switch ch {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// alertScript builds the osascript source for a modal alert.
func alertScript(title, message string) string {
	return fmt.Sprintf(`display alert "%s" message "%s" as informational buttons {"OK"} default button "OK"`,
		escapeAppleScript(title), escapeAppleScript(message))
}
