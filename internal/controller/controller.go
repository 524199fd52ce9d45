// Package controller wires user actions to the three jobs of the client:
// uploading a selected file for transcription, rendering the result, and
// keeping the bounded history of past results.
//
// A Controller is not safe for concurrent use. Event-loop surfaces run the
// network step with Transcribe off the loop and apply the outcome with
// CompleteUpload on it.
package controller

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/tiroq/subtitler/internal/clipboard"
	"github.com/tiroq/subtitler/internal/diaglog"
	"github.com/tiroq/subtitler/internal/history"
	"github.com/tiroq/subtitler/internal/notify"
	"github.com/tiroq/subtitler/internal/session"
	"github.com/tiroq/subtitler/internal/srt"
	"github.com/tiroq/subtitler/internal/transcribe"
	"github.com/tiroq/subtitler/internal/view"
)

// User-visible messages.
const (
	MsgSuccess        = "Subtitles generated successfully"
	MsgNotFound       = "Subtitles not found"
	MsgGenericFailure = "Error processing video"
	MsgCopied         = "Copied to clipboard!"
	MetaPrefix        = "Processed: "
)

// Display modes.
const (
	ModeText = "text"
	ModeSRT  = "srt"
)

// Display receives every visible change. *view.Page implements it.
type Display interface {
	ShowUpload()
	ShowResults()
	SetFileInput(path string)
	ClearFileInput()
	SetStatus(kind view.StatusKind, text string)
	ClearStatus()
	ShowSubtitles(text, title, meta string)
	ShowSubtitleError(msg string)
	RenderHistory(rows []view.HistoryRow)
	SetMode(mode, buttonID string)
}

// Transcriber sends a file to the transcription endpoint.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (*transcribe.Result, error)
}

// HistoryStore loads and saves the history list. *history.Repository
// implements it.
type HistoryStore interface {
	Load(ctx context.Context) (*history.List, error)
	Save(ctx context.Context, l *history.List) error
	Clear(ctx context.Context) error
}

// Options holds the non-collaborator settings.
type Options struct {
	Clock           func() time.Time // defaults to time.Now
	TimestampLayout string           // Go layout for session timestamps
	ExportDir       string           // default directory for exports
	HistoryLimit    int              // defaults to history.DefaultLimit
	Logger          *diaglog.Logger
}

// Controller owns the current session and the in-memory history mirror.
type Controller struct {
	transcriber Transcriber
	store       HistoryStore
	display     Display
	clip        clipboard.Writer
	alert       notify.Alerter

	clock     func() time.Time
	layout    string
	exportDir string
	logger    *diaglog.Logger

	current *session.Session
	history *history.List
	mode    string
}

// New builds a controller. The history starts empty until LoadHistory.
func New(t Transcriber, store HistoryStore, d Display, clip clipboard.Writer, alert notify.Alerter, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.TimestampLayout == "" {
		opts.TimestampLayout = "02.01.2006, 15:04:05"
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if opts.Logger == nil {
		opts.Logger = diaglog.NewNoOp()
	}
	return &Controller{
		transcriber: t,
		store:       store,
		display:     d,
		clip:        clip,
		alert:       alert,
		clock:       opts.Clock,
		layout:      opts.TimestampLayout,
		exportDir:   opts.ExportDir,
		logger:      opts.Logger,
		history:     history.NewList(opts.HistoryLimit, nil),
		mode:        ModeText,
	}
}

func (c *Controller) log(event string, s *session.Session, reason string, payload map[string]interface{}) {
	entry := diaglog.LogEntry{
		Component: diaglog.ComponentController,
		Event:     event,
		Reason:    reason,
		Payload:   payload,
	}
	if s != nil {
		entry.SessionID = s.ID
	}
	c.logger.Log(entry)
}

// Current returns the current session or nil.
func (c *Controller) Current() *session.Session { return c.current }

// History returns the entries newest first.
func (c *Controller) History() []history.Entry { return c.history.Entries() }

// Mode returns the display mode.
func (c *Controller) Mode() string { return c.mode }

// LoadHistory reads the stored list and renders it. A corrupt stored value
// leaves the history empty and is reported as an error; the controller stays
// usable.
func (c *Controller) LoadHistory(ctx context.Context) error {
	l, err := c.store.Load(ctx)
	if err != nil {
		c.history = history.NewList(c.history.Limit(), nil)
		c.RenderHistoryPanel()
		c.log(diaglog.EventHistoryLoaded, nil, err.Error(), nil)
		return err
	}
	c.history = l
	c.RenderHistoryPanel()
	c.log(diaglog.EventHistoryLoaded, nil, "", map[string]interface{}{"entries": l.Len()})
	return nil
}

// SelectFile starts a processing session for the file at path and switches
// to the results view. The file is not validated.
func (c *Controller) SelectFile(path string) *session.Session {
	s := session.New(filepath.Base(path), c.clock(), c.layout)
	c.current = s
	c.display.SetFileInput(path)
	c.display.ShowResults()
	return s
}

// BeginUpload clears the status line before the request goes out.
func (c *Controller) BeginUpload(s *session.Session) {
	c.display.ClearStatus()
	c.log(diaglog.EventUploadStart, s, "", map[string]interface{}{"file": s.FileName})
}

// Transcribe performs the network step. It touches no controller state and
// may run off the event loop.
func (c *Controller) Transcribe(ctx context.Context, path string) (*transcribe.Result, error) {
	return c.transcriber.Transcribe(ctx, path)
}

// CompleteUpload applies the outcome of Transcribe to s. On success the
// subtitles (or the not-found placeholder) are displayed and saved to
// history. On failure the message goes to the status line and the subtitle
// display, and the upload error is returned.
func (c *Controller) CompleteUpload(ctx context.Context, s *session.Session, res *transcribe.Result, uploadErr error) error {
	if uploadErr != nil || res == nil {
		if uploadErr == nil {
			uploadErr = errors.New(MsgGenericFailure)
		}
		if err := s.Fail(); err != nil {
			return err
		}
		msg := errorMessage(uploadErr)
		c.display.SetStatus(view.StatusError, msg)
		c.display.ShowSubtitleError(msg)
		c.log(diaglog.EventUploadFailed, s, msg, nil)
		return uploadErr
	}

	subtitles := res.Subtitles
	if !res.Found {
		subtitles = MsgNotFound
	}
	if err := s.Complete(subtitles); err != nil {
		return err
	}
	c.renderSession(s)
	persistErr := c.persist(ctx, s)
	c.display.SetStatus(view.StatusSuccess, MsgSuccess)
	c.log(diaglog.EventUploadCompleted, s, "", map[string]interface{}{"found": res.Found})
	return persistErr
}

// UploadAndTranscribe runs the whole upload for s synchronously.
func (c *Controller) UploadAndTranscribe(ctx context.Context, s *session.Session, path string) error {
	c.BeginUpload(s)
	res, err := c.Transcribe(ctx, path)
	return c.CompleteUpload(ctx, s, res, err)
}

// Upload selects path and uploads it. Used by the CLI and the watcher.
func (c *Controller) Upload(ctx context.Context, path string) (*session.Session, error) {
	s := c.SelectFile(path)
	return s, c.UploadAndTranscribe(ctx, s, path)
}

// errorMessage prefers the error's own text and falls back to the generic
// message.
func errorMessage(err error) string {
	if err == nil || err.Error() == "" {
		return MsgGenericFailure
	}
	return err.Error()
}

// RenderSubtitles shows the current session's text and header.
func (c *Controller) RenderSubtitles() {
	if c.current == nil {
		return
	}
	c.renderSession(c.current)
}

func (c *Controller) renderSession(s *session.Session) {
	c.display.ShowSubtitles(s.Subtitles, s.FileName, MetaPrefix+s.Timestamp)
}

// PersistHistory saves the current session at the head of the history.
func (c *Controller) PersistHistory(ctx context.Context) error {
	if c.current == nil {
		return ErrNoSession
	}
	return c.persist(ctx, c.current)
}

func (c *Controller) persist(ctx context.Context, s *session.Session) error {
	c.history.Prepend(history.FromSession(s))
	err := c.store.Save(ctx, c.history)
	c.RenderHistoryPanel()
	if err != nil {
		c.log(diaglog.EventHistorySaved, s, err.Error(), nil)
		return err
	}
	c.log(diaglog.EventHistorySaved, s, "", map[string]interface{}{"entries": c.history.Len()})
	return nil
}

// RenderHistoryPanel renders one row per entry, marking the current
// session's row active.
func (c *Controller) RenderHistoryPanel() {
	entries := c.history.Entries()
	rows := make([]view.HistoryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, view.HistoryRow{
			ID:        e.ID,
			FileName:  e.FileName,
			Timestamp: e.Timestamp,
			Active:    c.current != nil && c.current.ID == e.ID,
		})
	}
	c.display.RenderHistory(rows)
}

// Entry looks up a history entry without changing the current session.
func (c *Controller) Entry(id int64) (history.Entry, error) {
	e, ok := c.history.Find(id)
	if !ok {
		return history.Entry{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return e, nil
}

// SelectHistoryItem makes the entry with id the current session. Unknown ids
// are ignored; the return value reports whether anything changed.
func (c *Controller) SelectHistoryItem(id int64) bool {
	e, ok := c.history.Find(id)
	if !ok {
		return false
	}
	c.current = e.Session()
	c.renderSession(c.current)
	c.display.ShowResults()
	c.RenderHistoryPanel()
	c.log(diaglog.EventHistorySelected, c.current, "", nil)
	return true
}

// CopySubtitles copies the current text and raises the confirmation alert.
func (c *Controller) CopySubtitles() error {
	if !c.current.HasSubtitles() {
		return ErrNoSubtitles
	}
	if err := c.clip.WriteText(c.current.Subtitles); err != nil {
		c.log(diaglog.EventClipboardCopy, c.current, err.Error(), nil)
		return fmt.Errorf("copy subtitles: %w", err)
	}
	c.log(diaglog.EventClipboardCopy, c.current, "", map[string]interface{}{"bytes": len(c.current.Subtitles)})
	return c.alert.Alert(MsgCopied)
}

// ExportSubtitles writes the current text as pseudo-SRT (or plain text for
// srt.FormatText) into dir, or the configured export dir when dir is empty,
// and returns the written path.
func (c *Controller) ExportSubtitles(dir, format string) (string, error) {
	if !c.current.HasSubtitles() {
		return "", ErrNoSubtitles
	}
	if dir == "" {
		dir = c.exportDir
	}
	path, err := srt.Export(dir, c.current.FileName, c.current.Subtitles, format)
	if err != nil {
		c.log(diaglog.EventExportWritten, c.current, err.Error(), nil)
		return "", err
	}
	c.log(diaglog.EventExportWritten, c.current, "", map[string]interface{}{"path": path})
	return path, nil
}

// StartNewSession drops the current session and restores the upload view.
func (c *Controller) StartNewSession() {
	c.current = nil
	c.display.ShowUpload()
	c.display.ClearFileInput()
	c.display.ClearStatus()
	c.RenderHistoryPanel()
	c.log(diaglog.EventSessionReset, nil, "", nil)
}

// SetMode switches the display mode and marks buttonID as the active
// control.
func (c *Controller) SetMode(mode, buttonID string) error {
	if mode != ModeText && mode != ModeSRT {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	c.mode = mode
	c.display.SetMode(mode, buttonID)
	return nil
}

// ClearHistory removes every entry from memory and from the store.
func (c *Controller) ClearHistory(ctx context.Context) error {
	c.history.Clear()
	c.RenderHistoryPanel()
	return c.store.Clear(ctx)
}
