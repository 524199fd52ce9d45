package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tiroq/subtitler/internal/clipboard"
	"github.com/tiroq/subtitler/internal/controller"
	"github.com/tiroq/subtitler/internal/history"
	"github.com/tiroq/subtitler/internal/session"
	"github.com/tiroq/subtitler/internal/storage"
	"github.com/tiroq/subtitler/internal/transcribe"
	"github.com/tiroq/subtitler/internal/view"
)

type stubTranscriber struct {
	result *transcribe.Result
	err    error
}

func (s *stubTranscriber) Transcribe(context.Context, string) (*transcribe.Result, error) {
	return s.result, s.err
}

type fixture struct {
	model Model
	page  *view.Page
	ctrl  *controller.Controller
	tr    *stubTranscriber
	clip  *clipboard.Memory
	dir   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		page: view.NewPage(),
		tr:   &stubTranscriber{result: &transcribe.Result{Subtitles: "one\ntwo\nthree\nfour", Found: true}},
		clip: &clipboard.Memory{},
		dir:  t.TempDir(),
	}
	alerts := &ModalAlerter{}
	repo := history.NewRepository(storage.NewMemoryStore(), "subtitleHistory", history.DefaultLimit)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	f.ctrl = controller.New(f.tr, repo, f.page, f.clip, alerts, controller.Options{
		Clock:     func() time.Time { now = now.Add(time.Second); return now },
		ExportDir: f.dir,
	})
	f.model = NewModel(context.Background(), f.ctrl, f.page, alerts, "http://127.0.0.1:8000/transcribe")
	return f
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func (f *fixture) send(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()
	next, cmd := f.model.Update(msg)
	f.model = next.(Model)
	return cmd
}

// upload types path, presses enter and delivers the request's result.
func (f *fixture) upload(t *testing.T, path string) {
	t.Helper()
	f.model.input.SetValue(path)
	cmd := f.send(t, key("enter"))
	if cmd == nil {
		t.Fatal("expected upload command")
	}
	msg := cmd()
	if _, ok := msg.(uploadDoneMsg); !ok {
		t.Fatalf("expected uploadDoneMsg, got %T", msg)
	}
	f.send(t, msg)
}

func TestUpload_ShowsResults(t *testing.T) {
	f := newFixture(t)
	f.model.input.SetValue("/videos/talk.mp4")
	cmd := f.send(t, key("enter"))

	cur := f.ctrl.Current()
	if cur == nil || cur.Status != session.StatusProcessing {
		t.Fatalf("session should be processing before the result arrives: %+v", cur)
	}
	if f.model.inFlight != 1 {
		t.Errorf("inFlight = %d", f.model.inFlight)
	}
	if !strings.Contains(f.model.View(), "Processing...") {
		t.Error("view should show processing")
	}

	f.send(t, cmd())
	if f.ctrl.Current().Status != session.StatusCompleted {
		t.Errorf("status = %s", f.ctrl.Current().Status)
	}
	if f.model.inFlight != 0 {
		t.Errorf("inFlight = %d after completion", f.model.inFlight)
	}
	out := f.model.View()
	for _, want := range []string{"talk.mp4", "Processed: ", "Subtitles generated successfully", "one"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestUpload_EmptyPathIgnored(t *testing.T) {
	f := newFixture(t)
	f.model.input.SetValue("   ")
	if cmd := f.send(t, key("enter")); cmd != nil {
		t.Error("empty path should not start an upload")
	}
	if f.ctrl.Current() != nil {
		t.Error("no session expected")
	}
}

func TestUpload_ServerError(t *testing.T) {
	f := newFixture(t)
	f.tr.result, f.tr.err = nil, &transcribe.ServerError{StatusCode: 500}
	f.upload(t, "a.mp4")

	out := f.model.View()
	if !strings.Contains(out, "Server error: 500") {
		t.Errorf("view should show server error:\n%s", out)
	}
	if f.ctrl.Current().Status != session.StatusError {
		t.Errorf("status = %s", f.ctrl.Current().Status)
	}
}

func TestCopy_OpensModal(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "a.mp4")

	f.send(t, key("c"))
	if f.clip.Text != "one\ntwo\nthree\nfour" {
		t.Errorf("clipboard = %q", f.clip.Text)
	}
	if f.model.alert != controller.MsgCopied {
		t.Fatalf("alert = %q", f.model.alert)
	}
	if !strings.Contains(f.model.View(), "Copied to clipboard!") {
		t.Error("modal not rendered")
	}

	// Keys are swallowed while the modal is open.
	f.send(t, key("n"))
	if f.ctrl.Current() == nil {
		t.Error("n must not start a new session behind the modal")
	}
	f.send(t, key("enter"))
	if f.model.alert != "" {
		t.Error("enter should dismiss the modal")
	}
}

func TestCopy_NoSubtitlesIsNoop(t *testing.T) {
	f := newFixture(t)
	f.send(t, key("tab"))
	f.send(t, key("c"))
	if f.clip.Writes != 0 || f.model.alert != "" || f.model.notice != "" {
		t.Error("copy without subtitles should do nothing")
	}
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "clip.webm")
	f.send(t, key("e"))

	want := filepath.Join(f.dir, "clip.srt")
	if !f.model.noticeOK || !strings.Contains(f.model.notice, want) {
		t.Fatalf("notice = %q", f.model.notice)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "1\n00:00:01,000 --> 00:00:02,000\none\n\n") {
		t.Errorf("export content = %q", data)
	}
}

func TestModeToggle(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "a.mp4")

	f.send(t, key("m"))
	if f.ctrl.Mode() != controller.ModeSRT || f.page.ActiveModeButton != buttonSRT {
		t.Fatalf("mode = %s, button = %s", f.ctrl.Mode(), f.page.ActiveModeButton)
	}
	if !strings.Contains(f.model.View(), "00:00:01,000 --> 00:00:02,000") {
		t.Error("srt preview not shown")
	}
	f.send(t, key("m"))
	if f.ctrl.Mode() != controller.ModeText || f.page.ActiveModeButton != buttonText {
		t.Errorf("mode = %s, button = %s", f.ctrl.Mode(), f.page.ActiveModeButton)
	}
}

func TestNewSessionAndHistorySelect(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "first.mp4")
	f.tr.result = &transcribe.Result{Subtitles: "second text", Found: true}
	f.send(t, key("n"))
	if f.model.focus != focusInput || !f.page.UploadVisible {
		t.Fatal("n should restore the upload view with input focus")
	}
	f.upload(t, "second.mp4")

	if len(f.page.History) != 2 || !f.page.History[0].Active {
		t.Fatalf("history rows = %+v", f.page.History)
	}

	f.send(t, key("down"))
	f.send(t, key("enter"))
	if f.ctrl.Current().FileName != "first.mp4" {
		t.Errorf("current = %s", f.ctrl.Current().FileName)
	}
	if !f.page.History[1].Active || f.page.History[0].Active {
		t.Errorf("active marker not moved: %+v", f.page.History)
	}
	if !strings.Contains(f.model.View(), "first.mp4") {
		t.Error("view should show first.mp4")
	}
}

func TestOverlappingUploads_LastFinishWins(t *testing.T) {
	f := newFixture(t)
	f.model.input.SetValue("slow.mp4")
	slowCmd := f.send(t, key("enter"))
	slowSession := f.ctrl.Current()

	f.send(t, key("n"))
	f.model.input.SetValue("fast.mp4")
	fastCmd := f.send(t, key("enter"))
	if f.model.inFlight != 2 {
		t.Fatalf("inFlight = %d", f.model.inFlight)
	}

	f.send(t, fastCmd())
	f.send(t, slowCmd())

	if f.page.ResultTitle != "slow.mp4" {
		t.Errorf("display shows %s, want the last finisher", f.page.ResultTitle)
	}
	if slowSession.Status != session.StatusCompleted {
		t.Errorf("slow session status = %s", slowSession.Status)
	}
	if len(f.ctrl.History()) != 2 {
		t.Errorf("history = %d", len(f.ctrl.History()))
	}
}

func TestEmptyHistoryPlaceholder(t *testing.T) {
	f := newFixture(t)
	if !strings.Contains(f.model.View(), "History is empty") {
		t.Error("placeholder missing")
	}
}

func TestQuit(t *testing.T) {
	f := newFixture(t)
	// q types into the input while it has focus.
	if cmd := f.send(t, key("q")); f.model.quitting {
		t.Fatalf("q in input should not quit (cmd %v)", cmd)
	}
	f.send(t, key("esc"))
	f.send(t, key("q"))
	if !f.model.quitting || f.model.View() != "" {
		t.Error("q should quit outside the input")
	}
}

func TestUploadDone_RejectedCompletionShowsNotice(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "a.mp4")
	// A finished session cannot complete twice.
	f.send(t, uploadDoneMsg{session: f.ctrl.Current(), result: &transcribe.Result{Subtitles: "x", Found: true}})
	if f.model.noticeOK || f.model.notice == "" {
		t.Error("expected an error notice")
	}
	if f.ctrl.Current().Subtitles != "one\ntwo\nthree\nfour" {
		t.Errorf("subtitles changed: %q", f.ctrl.Current().Subtitles)
	}
}
