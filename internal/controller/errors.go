package controller

import "errors"

var (
	// ErrNoSubtitles is returned by copy and export when the current session
	// has no text. Callers treat it as a no-op.
	ErrNoSubtitles = errors.New("no subtitles to use")
	// ErrNoSession is returned when an operation needs a current session.
	ErrNoSession = errors.New("no current session")
	// ErrNotFound is returned when a history id is unknown.
	ErrNotFound = errors.New("history entry not found")
	// ErrUnknownMode is returned by SetMode for modes other than text and srt.
	ErrUnknownMode = errors.New("unknown display mode")
)
