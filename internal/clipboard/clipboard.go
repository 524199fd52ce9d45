// Package clipboard places subtitle text on the system clipboard.
package clipboard

import (
	"errors"
	"fmt"
	"io"

	"github.com/aymanbagabas/go-osc52/v2"
)

// Writer puts text on a clipboard.
type Writer interface {
	WriteText(text string) error
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(text string) error

func (f WriterFunc) WriteText(text string) error { return f(text) }

// System returns the platform clipboard writer.
func System() Writer {
	return systemWriter{}
}

// OSC52 writes the text as an OSC 52 escape sequence to w, which terminals
// (including over SSH) turn into a clipboard update.
func OSC52(w io.Writer) Writer {
	return WriterFunc(func(text string) error {
		if _, err := osc52.New(text).WriteTo(w); err != nil {
			return fmt.Errorf("write osc52 sequence: %w", err)
		}
		return nil
	})
}

// Fallback tries primary and, when it fails, secondary.
func Fallback(primary, secondary Writer) Writer {
	return WriterFunc(func(text string) error {
		err := primary.WriteText(text)
		if err == nil {
			return nil
		}
		if err2 := secondary.WriteText(text); err2 != nil {
			return errors.Join(err, err2)
		}
		return nil
	})
}

// Memory records the last text written. Used in tests and headless runs.
type Memory struct {
	Text   string
	Writes int
}

func (m *Memory) WriteText(text string) error {
	m.Text = text
	m.Writes++
	return nil
}
