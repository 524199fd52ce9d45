// Package watch feeds video files dropped into a directory to a handler,
// one at a time.
package watch

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tiroq/subtitler/internal/diaglog"
)

// Handler processes one dropped file. An error is logged and the watcher
// carries on.
type Handler func(ctx context.Context, path string) error

// Options tunes a Watcher.
type Options struct {
	Extensions   []string      // accepted extensions, e.g. ".mp4"; empty = all
	PollInterval time.Duration // polling period and fsnotify safety net
	SettleDelay  time.Duration // quiet time after the last event before a file is handled
	ForcePolling bool          // skip fsnotify entirely
	OutLog       *log.Logger
	ErrLog       *log.Logger
	Logger       *diaglog.Logger
}

// Watcher watches one directory.
type Watcher struct {
	dir    string
	handle Handler
	opts   Options

	exts    map[string]bool
	seen    map[string]bool      // files already handled or present at start
	pending map[string]time.Time // path -> last event time
}

// New creates a watcher for dir. Files present when Run starts are ignored.
func New(dir string, handle Handler, opts Options) *Watcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 200 * time.Millisecond
	}
	if opts.OutLog == nil {
		opts.OutLog = log.New(io.Discard, "", 0)
	}
	if opts.ErrLog == nil {
		opts.ErrLog = log.New(io.Discard, "", 0)
	}
	if opts.Logger == nil {
		opts.Logger = diaglog.NewNoOp()
	}
	w := &Watcher{
		dir:     dir,
		handle:  handle,
		opts:    opts,
		exts:    make(map[string]bool),
		seen:    make(map[string]bool),
		pending: make(map[string]time.Time),
	}
	for _, e := range opts.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		w.exts[e] = true
	}
	return w
}

// Match reports whether name has an accepted extension. Hidden files and
// partial downloads never match.
func (w *Watcher) Match(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	switch ext {
	case ".part", ".crdownload", ".tmp", ".download":
		return false
	}
	if len(w.exts) == 0 {
		return true
	}
	return w.exts[ext]
}

// Run watches until ctx is cancelled. It returns ctx.Err() on cancellation
// or an error if the directory cannot be read.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("watch dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch dir: %s is not a directory", w.dir)
	}
	initial, err := w.scan()
	if err != nil {
		return err
	}
	for _, p := range initial {
		w.seen[p] = true
	}

	if w.opts.ForcePolling {
		return w.runPolling(ctx)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.opts.ErrLog.Printf("fsnotify not available, falling back to polling: %v", err)
		return w.runPolling(ctx)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			w.opts.ErrLog.Printf("Failed to close watcher: %v", err)
		}
	}()

	if err := watcher.Add(w.dir); err != nil {
		w.opts.ErrLog.Printf("Failed to watch %s, falling back to polling: %v", w.dir, err)
		return w.runPolling(ctx)
	}
	w.opts.OutLog.Printf("Watching %s (using fsnotify)", w.dir)

	settle := time.NewTicker(w.opts.SettleDelay / 2)
	defer settle.Stop()
	pollTicker := time.NewTicker(w.opts.PollInterval)
	defer pollTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				w.opts.OutLog.Println("fsnotify watcher closed, switching to polling")
				return w.runPolling(ctx)
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if w.seen[event.Name] || !w.Match(event.Name) {
				continue
			}
			w.pending[event.Name] = time.Now()

		case <-settle.C:
			w.flush(ctx, time.Now())

		case <-pollTicker.C:
			// Safety net for events fsnotify dropped.
			w.queueNew()

		case err, ok := <-watcher.Errors:
			if !ok {
				w.opts.OutLog.Println("fsnotify error channel closed, switching to polling")
				return w.runPolling(ctx)
			}
			w.opts.ErrLog.Printf("File watcher error: %v", err)
		}
	}
}

// runPolling is the pure polling fallback.
func (w *Watcher) runPolling(ctx context.Context) error {
	w.opts.OutLog.Printf("Watching %s (using polling, %v interval)", w.dir, w.opts.PollInterval)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.queueNew()
			// Files found by a scan have had a full interval to settle.
			w.flush(ctx, time.Now().Add(w.opts.SettleDelay))
		}
	}
}

// queueNew adds unseen matching files to the pending set.
func (w *Watcher) queueNew() {
	paths, err := w.scan()
	if err != nil {
		w.opts.ErrLog.Printf("Failed to scan %s: %v", w.dir, err)
		return
	}
	for _, p := range paths {
		if w.seen[p] {
			continue
		}
		if _, ok := w.pending[p]; !ok {
			w.pending[p] = time.Now()
		}
	}
}

// flush handles every pending file whose last event is older than the
// settle delay, in name order, one at a time.
func (w *Watcher) flush(ctx context.Context, now time.Time) {
	var ready []string
	for p, t := range w.pending {
		if now.Sub(t) >= w.opts.SettleDelay {
			ready = append(ready, p)
		}
	}
	sort.Strings(ready)
	for _, p := range ready {
		if ctx.Err() != nil {
			return
		}
		delete(w.pending, p)
		w.seen[p] = true

		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		w.opts.OutLog.Printf("New file: %s", filepath.Base(p))
		w.opts.Logger.Log(diaglog.LogEntry{
			Component: diaglog.ComponentWatcher,
			Event:     diaglog.EventWatchFile,
			Payload:   map[string]interface{}{"file": filepath.Base(p), "size": info.Size()},
		})
		if err := w.handle(ctx, p); err != nil {
			w.opts.ErrLog.Printf("Failed to process %s: %v", filepath.Base(p), err)
		}
	}
}

// scan lists matching regular files in the directory.
func (w *Watcher) scan() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("read watch dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !w.Match(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(w.dir, e.Name()))
	}
	return out, nil
}
