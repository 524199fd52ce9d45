// Package tui is the interactive terminal client: a file path input in
// place of the upload zone, the result pane and the history panel.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tiroq/subtitler/internal/controller"
	"github.com/tiroq/subtitler/internal/session"
	"github.com/tiroq/subtitler/internal/srt"
	"github.com/tiroq/subtitler/internal/transcribe"
	"github.com/tiroq/subtitler/internal/view"
)

type focus int

const (
	focusInput focus = iota
	focusHistory
)

// Mode button ids.
const (
	buttonText = "mode-text"
	buttonSRT  = "mode-srt"
)

// uploadDoneMsg carries the outcome of the network step back to the loop.
type uploadDoneMsg struct {
	session *session.Session
	result  *transcribe.Result
	err     error
}

// ModalAlerter queues alerts for the model to show as a modal box. The box
// swallows every key until dismissed.
type ModalAlerter struct {
	pending string
}

func (a *ModalAlerter) Alert(message string) error {
	a.pending = message
	return nil
}

func (a *ModalAlerter) take() string {
	msg := a.pending
	a.pending = ""
	return msg
}

type Model struct {
	ctx      context.Context
	ctrl     *controller.Controller
	page     *view.Page
	alerts   *ModalAlerter
	endpoint string

	input    textinput.Model
	focus    focus
	cursor   int
	offset   int
	width    int
	height   int
	inFlight int
	alert    string // modal text; empty when no modal is open
	notice   string // one-line feedback for copy and export
	noticeOK bool
	quitting bool
}

// NewModel builds the model. alerts must be the Alerter the controller was
// constructed with.
func NewModel(ctx context.Context, ctrl *controller.Controller, page *view.Page, alerts *ModalAlerter, endpoint string) Model {
	ti := textinput.New()
	ti.Placeholder = "path/to/video.mp4"
	ti.CharLimit = 4096
	ti.Focus()

	return Model{
		ctx:      ctx,
		ctrl:     ctrl,
		page:     page,
		alerts:   alerts,
		endpoint: endpoint,
		input:    ti,
		focus:    focusInput,
		width:    100,
		height:   30,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampOffset()
		return m, nil

	case uploadDoneMsg:
		m.inFlight--
		if err := m.ctrl.CompleteUpload(m.ctx, msg.session, msg.result, msg.err); err != nil && msg.err == nil {
			// Upload failures are already on the page; this is a save failure.
			m.setNotice(false, err.Error())
		}
		m.cursor = 0
		m.clampOffset()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if m.alert != "" {
			switch msg.String() {
			case "enter", "esc", " ":
				m.alert = ""
			}
			return m, nil
		}
		if m.focus == focusInput {
			return m.updateInput(msg)
		}
		return m.updateMain(msg)
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		path := strings.TrimSpace(m.input.Value())
		if path == "" {
			return m, nil
		}
		return m.startUpload(path)

	case "tab", "esc":
		m.input.Blur()
		m.focus = focusHistory
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startUpload selects the file and runs the request off the loop. A second
// upload may start while one is in flight; whichever finishes last owns the
// display.
func (m Model) startUpload(path string) (tea.Model, tea.Cmd) {
	s := m.ctrl.SelectFile(path)
	m.ctrl.BeginUpload(s)
	m.input.Blur()
	m.focus = focusHistory
	m.notice = ""
	m.inFlight++

	ctrl, ctx := m.ctrl, m.ctx
	return m, func() tea.Msg {
		res, err := ctrl.Transcribe(ctx, path)
		return uploadDoneMsg{session: s, result: res, err: err}
	}
}

func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.page.History
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.clampOffset()
		}

	case "down", "j":
		if m.cursor < len(rows)-1 {
			m.cursor++
			m.clampOffset()
		}

	case "enter":
		if len(rows) > 0 && m.cursor < len(rows) {
			m.ctrl.SelectHistoryItem(rows[m.cursor].ID)
			m.notice = ""
		}

	case "c":
		err := m.ctrl.CopySubtitles()
		switch {
		case errors.Is(err, controller.ErrNoSubtitles):
		case err != nil:
			m.setNotice(false, err.Error())
		default:
			m.alert = m.alerts.take()
		}

	case "e":
		path, err := m.ctrl.ExportSubtitles("", srt.FormatSRT)
		switch {
		case errors.Is(err, controller.ErrNoSubtitles):
		case err != nil:
			m.setNotice(false, err.Error())
		default:
			m.setNotice(true, "Saved "+path)
		}

	case "m":
		if m.ctrl.Mode() == controller.ModeText {
			_ = m.ctrl.SetMode(controller.ModeSRT, buttonSRT)
		} else {
			_ = m.ctrl.SetMode(controller.ModeText, buttonText)
		}

	case "n":
		m.ctrl.StartNewSession()
		m.input.SetValue("")
		m.input.Focus()
		m.focus = focusInput
		m.notice = ""
		return m, textinput.Blink

	case "tab":
		if m.page.UploadVisible {
			m.input.Focus()
			m.focus = focusInput
			return m, textinput.Blink
		}
	}
	return m, nil
}

func (m *Model) setNotice(ok bool, text string) {
	m.notice = text
	m.noticeOK = ok
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.alert != "" {
		box := alertStyle.Render(m.alert + "\n\n" + helpStyle.Render("[enter] OK"))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Subtitler") + dimStyle.Render("  "+m.endpoint) + "\n\n")

	if m.page.UploadVisible {
		b.WriteString(m.renderUpload())
	} else {
		b.WriteString(m.renderResults())
	}
	b.WriteString("\n")
	b.WriteString(m.renderHistory())
	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderUpload() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Select a video file") + "\n")
	b.WriteString(inputStyle.Render(m.input.View()) + "\n")
	if m.inFlight > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%d upload(s) in progress", m.inFlight)) + "\n")
	}
	return b.String()
}

func (m Model) renderResults() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(m.page.ResultTitle) + "  " + dimStyle.Render(m.page.ResultMeta) + "\n")
	b.WriteString(m.renderModes() + "\n")

	switch m.page.Status.Kind {
	case view.StatusSuccess:
		b.WriteString(successStyle.Render(m.page.Status.String()) + "\n")
	case view.StatusError:
		b.WriteString(errorStyle.Render(m.page.Status.String()) + "\n")
	}

	var body string
	switch {
	case m.page.SubtitleError != "":
		body = errorStyle.Render("Error: " + m.page.SubtitleError)
	case m.page.Subtitles != "" && m.ctrl.Mode() == controller.ModeSRT:
		body = strings.TrimRight(srt.Convert(m.page.Subtitles), "\n")
	case m.page.Subtitles != "":
		body = m.page.Subtitles
	case m.inFlight > 0:
		body = dimStyle.Render("Processing...")
	}
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	b.WriteString(subtitleBoxStyle.Width(w).Render(body) + "\n")

	if m.notice != "" {
		if m.noticeOK {
			b.WriteString(successStyle.Render(m.notice) + "\n")
		} else {
			b.WriteString(errorStyle.Render(m.notice) + "\n")
		}
	}
	return b.String()
}

func (m Model) renderModes() string {
	text, srtBtn := modeInactiveStyle, modeInactiveStyle
	if m.ctrl.Mode() == controller.ModeSRT {
		srtBtn = modeActiveStyle
	} else {
		text = modeActiveStyle
	}
	return text.Render("Text") + " " + srtBtn.Render("SRT")
}

func (m Model) renderHistory() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("History") + "\n")
	rows := m.page.History
	if len(rows) == 0 {
		b.WriteString(dimStyle.Render("  "+view.EmptyHistoryText) + "\n")
		return b.String()
	}

	visible := m.visibleRows()
	end := m.offset + visible
	if end > len(rows) {
		end = len(rows)
	}
	for i := m.offset; i < end; i++ {
		r := rows[i]
		marker := "  "
		if r.Active {
			marker = activeTag.Render("● ")
		}
		line := fmt.Sprintf("%s  %s", pad(r.FileName, 40), r.Timestamp)
		if i == m.cursor && m.focus == focusHistory {
			b.WriteString(marker + selectedStyle.Render(line) + "\n")
		} else {
			b.WriteString(marker + normalStyle.Render(line) + "\n")
		}
	}
	return b.String()
}

func (m Model) renderHelp() string {
	if m.focus == focusInput {
		return helpStyle.Render("  Enter: upload  Tab: history  Ctrl+C: quit")
	}
	return helpStyle.Render("  Enter: open  c: copy  e: export  m: mode  n: new  Tab: input  q: quit")
}

func (m Model) visibleRows() int {
	rows := m.height / 3
	if rows < 3 {
		rows = 3
	}
	return rows
}

func (m *Model) clampOffset() {
	visible := m.visibleRows()
	if n := len(m.page.History); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// Run starts the program on the alternate screen and blocks until quit.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx)).Run()
	return err
}

func pad(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width-2]) + ".."
	}
	return s + strings.Repeat(" ", width-len(runes))
}
