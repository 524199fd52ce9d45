//go:build !darwin

package notify

import "os"

// Native returns an Alerter that prints to stderr on platforms without a
// scriptable alert dialog.
func Native(title string) Alerter {
	_ = title
	return Writer(os.Stderr)
}
