//go:build darwin

package clipboard

import (
	"errors"

	"github.com/progrium/darwinkit/macos/appkit"
)

type systemWriter struct{}

func (systemWriter) WriteText(text string) error {
	pb := appkit.Pasteboard_GeneralPasteboard()
	pb.ClearContents()
	if !pb.SetStringForType(text, appkit.PasteboardTypeString) {
		return errors.New("pasteboard rejected string")
	}
	return nil
}
