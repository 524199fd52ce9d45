// Package view models the client's display regions (upload zone, file
// input, results area, status message, subtitle display, result title and
// meta, history container, mode buttons) and renders them as HTML
// fragments.
package view

import "fmt"

// StatusKind selects the styling of the status message.
type StatusKind string

const (
	StatusNone    StatusKind = ""
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// Status is the content of the status message area.
type Status struct {
	Kind StatusKind
	Text string
}

// String renders the status line with its glyph.
func (s Status) String() string {
	switch s.Kind {
	case StatusSuccess:
		return "✓ " + s.Text
	case StatusError:
		return "✗ " + s.Text
	}
	return s.Text
}

// HistoryRow is one clickable row of the history panel.
type HistoryRow struct {
	ID        int64
	FileName  string
	Timestamp string
	Active    bool
}

// Page holds the current content of every display region. The zero value
// shows nothing; use NewPage for the initial upload view.
type Page struct {
	UploadVisible bool
	ResultsActive bool
	FileInput     string

	Status Status

	Subtitles     string // plain text content of the subtitle display
	SubtitleError string // set instead of Subtitles when the display shows a failure
	ResultTitle   string
	ResultMeta    string

	History []HistoryRow

	Mode             string
	ActiveModeButton string
}

// NewPage returns the page as first shown: upload zone visible, results
// hidden, text mode.
func NewPage() *Page {
	return &Page{UploadVisible: true, Mode: "text"}
}

func (p *Page) ShowUpload() {
	p.UploadVisible = true
	p.ResultsActive = false
}

func (p *Page) ShowResults() {
	p.UploadVisible = false
	p.ResultsActive = true
}

func (p *Page) SetFileInput(v string) { p.FileInput = v }
func (p *Page) ClearFileInput()       { p.FileInput = "" }

func (p *Page) SetStatus(kind StatusKind, text string) {
	p.Status = Status{Kind: kind, Text: text}
}

func (p *Page) ClearStatus() { p.Status = Status{} }

// ShowSubtitles sets the subtitle display as plain text and the result
// header.
func (p *Page) ShowSubtitles(text, title, meta string) {
	p.Subtitles = text
	p.SubtitleError = ""
	p.ResultTitle = title
	p.ResultMeta = meta
}

// ShowSubtitleError replaces the subtitle display with a failure message.
func (p *Page) ShowSubtitleError(msg string) {
	p.Subtitles = ""
	p.SubtitleError = msg
}

func (p *Page) RenderHistory(rows []HistoryRow) {
	p.History = rows
}

func (p *Page) SetMode(mode, buttonID string) {
	p.Mode = mode
	p.ActiveModeButton = buttonID
}

// SubtitlesHTML renders the subtitle display. Text content is escaped; the
// failure message is inserted as markup.
func (p *Page) SubtitlesHTML() string {
	if p.SubtitleError != "" {
		return fmt.Sprintf(`<div class="subtitle-error">Error: %s</div>`, p.SubtitleError)
	}
	return EscapeHTML(p.Subtitles)
}

func (p *Page) HistoryHTML() string { return HistoryHTML(p.History) }
func (p *Page) StatusHTML() string  { return StatusHTML(p.Status) }
