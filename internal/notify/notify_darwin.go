//go:build darwin

package notify

import (
	"fmt"
	"os/exec"
)

// Native returns an Alerter that shows a macOS modal alert via osascript.
func Native(title string) Alerter {
	return AlerterFunc(func(message string) error {
		cmd := exec.Command("osascript", "-e", alertScript(title, message))
		if output, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("osascript alert: %w: %s", err, output)
		}
		return nil
	})
}
