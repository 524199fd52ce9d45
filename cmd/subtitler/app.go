package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/tiroq/subtitler/internal/clipboard"
	"github.com/tiroq/subtitler/internal/config"
	"github.com/tiroq/subtitler/internal/controller"
	"github.com/tiroq/subtitler/internal/diaglog"
	"github.com/tiroq/subtitler/internal/history"
	"github.com/tiroq/subtitler/internal/notify"
	"github.com/tiroq/subtitler/internal/storage"
	"github.com/tiroq/subtitler/internal/transcribe"
	"github.com/tiroq/subtitler/internal/view"
)

// globalFlags are the persistent root flags.
type globalFlags struct {
	configPath string
	dataDir    string
	endpoint   string
	verbose    bool
}

// app is everything one command needs, wired from the config.
type app struct {
	cfg    *config.Config
	store  storage.Store
	client *transcribe.Client
	page   *view.Page
	ctrl   *controller.Controller
	logger *diaglog.Logger
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(g *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.dataDir != "" {
		cfg.DataDir = g.dataDir
	}
	if g.endpoint != "" {
		cfg.Endpoint = g.endpoint
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp opens the store and builds the controller. clip and alert are
// chosen by the caller since the TUI and the CLI surface them differently.
func newApp(cfg *config.Config, clip clipboard.Writer, alert notify.Alerter) (*app, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	logger, err := diaglog.New(diaglog.DefaultPath(cfg.DataDir))
	if err != nil {
		errLog.Printf("Failed to open debug log, continuing without it: %v", err)
		logger = diaglog.NewNoOp()
	}

	store, err := storage.Open(cfg)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}

	client := transcribe.NewClient(transcribe.Config{
		Endpoint:       cfg.Endpoint,
		FieldName:      cfg.FieldName,
		TimeoutSeconds: cfg.TimeoutSeconds,
		UserAgent:      "subtitler/" + Version,
	})
	client.SetLogger(logger)

	page := view.NewPage()
	repo := history.NewRepository(store, cfg.History.Key, cfg.History.Limit)
	ctrl := controller.New(client, repo, page, clip, alert, controller.Options{
		TimestampLayout: cfg.TimestampLayout,
		ExportDir:       cfg.ExportDir,
		HistoryLimit:    cfg.History.Limit,
		Logger:          logger,
	})

	return &app{cfg: cfg, store: store, client: client, page: page, ctrl: ctrl, logger: logger}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		errLog.Printf("Failed to close store: %v", err)
	}
	_ = a.logger.Close()
}

// defaultClipboard is the system clipboard with OSC 52 on stderr as the
// fallback for headless and SSH sessions.
func defaultClipboard() clipboard.Writer {
	return clipboard.Fallback(clipboard.System(), clipboard.OSC52(os.Stderr))
}

// initLogging points outLog and errLog at stderr. Informational lines are
// dropped unless verbose.
func initLogging(verbose bool) {
	var out io.Writer = io.Discard
	if verbose {
		out = os.Stderr
	}
	outLog = log.New(out, logPrefix+" ", log.LstdFlags)
	errLog = log.New(os.Stderr, logPrefix+" ERROR: ", log.LstdFlags)
}

// initFileLogging sends outLog and errLog to files in dataDir so they do not
// draw over the TUI. Files over 10MB are rotated first.
func initFileLogging(dataDir string) (io.Closer, error) {
	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}
	outPath := filepath.Join(logDir, "subtitler.out.log")
	errPath := filepath.Join(logDir, "subtitler.err.log")
	for _, p := range []string{outPath, errPath} {
		if err := rotateLogIfNeeded(p, 10*1024*1024); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to rotate %s: %v\n", p, err)
		}
	}

	outFile, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	errFile, err := os.OpenFile(errPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		outFile.Close()
		return nil, err
	}
	outLog = log.New(outFile, logPrefix+" ", log.LstdFlags)
	errLog = log.New(errFile, logPrefix+" ERROR: ", log.LstdFlags)
	return multiCloser{outFile, errFile}, nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// rotateLogIfNeeded renames logPath to logPath.old once it reaches maxSize.
func rotateLogIfNeeded(logPath string, maxSize int64) error {
	info, err := os.Stat(logPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() < maxSize {
		return nil
	}
	oldPath := logPath + ".old"
	if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove old log: %w", err)
	}
	return os.Rename(logPath, oldPath)
}
