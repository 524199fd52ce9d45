//go:build !darwin

package clipboard

import (
	"fmt"

	"github.com/atotto/clipboard"
)

type systemWriter struct{}

func (systemWriter) WriteText(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility found (install xclip, xsel or wl-clipboard)")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}
