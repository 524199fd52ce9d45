package session

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a transcription session.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Session is the in-memory record of one upload-to-result cycle. It is
// created when a file is selected and mutated in place when the upload
// completes or fails.
type Session struct {
	ID        int64  // creation time in milliseconds since the epoch
	FileName  string // base name of the selected file
	Timestamp string // creation time formatted for display
	Subtitles string // empty until the upload completes
	Status    Status
}

// New starts a processing session for fileName created at now. The
// timestamp is formatted with layout (a Go time layout).
func New(fileName string, now time.Time, layout string) *Session {
	return &Session{
		ID:        now.UnixMilli(),
		FileName:  fileName,
		Timestamp: now.Format(layout),
		Status:    StatusProcessing,
	}
}

// Complete moves a processing session to completed with the given text.
func (s *Session) Complete(subtitles string) error {
	if s.Status != StatusProcessing {
		return fmt.Errorf("session %d: cannot complete from %s", s.ID, s.Status)
	}
	s.Subtitles = subtitles
	s.Status = StatusCompleted
	return nil
}

// Fail moves a processing session to error.
func (s *Session) Fail() error {
	if s.Status != StatusProcessing {
		return fmt.Errorf("session %d: cannot fail from %s", s.ID, s.Status)
	}
	s.Status = StatusError
	return nil
}

// Terminal reports whether no further transition is possible.
func (s *Session) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusError
}

// HasSubtitles reports whether there is text to copy or export.
func (s *Session) HasSubtitles() bool {
	return s != nil && s.Subtitles != ""
}
