package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tiroq/subtitler/internal/config"
	"github.com/tiroq/subtitler/internal/controller"
	"github.com/tiroq/subtitler/internal/diaglog"
	"github.com/tiroq/subtitler/internal/notify"
	"github.com/tiroq/subtitler/internal/pidfile"
	"github.com/tiroq/subtitler/internal/srt"
	"github.com/tiroq/subtitler/internal/tui"
	"github.com/tiroq/subtitler/internal/validation"
	"github.com/tiroq/subtitler/internal/watch"
)

const logPrefix = "[subtitler]"

var (
	// Version is set at build time via -ldflags "-X main.Version=..."
	Version = "dev"

	outLog = log.New(io.Discard, "", 0)
	errLog = log.New(os.Stderr, logPrefix+" ERROR: ", log.LstdFlags)
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "✗", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "subtitler",
		Short:         "Upload videos for transcription and keep the subtitle history",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			initLogging(g.verbose)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), g)
		},
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default ~/.config/subtitler/config.yaml)")
	root.PersistentFlags().StringVar(&g.dataDir, "data-dir", "", "data directory for history, logs and the pid file")
	root.PersistentFlags().StringVar(&g.endpoint, "endpoint", "", "transcription endpoint URL")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log progress to stderr")

	root.AddCommand(newTUICmd(g))
	root.AddCommand(newTranscribeCmd(g))
	root.AddCommand(newHistoryCmd(g))
	root.AddCommand(newHealthCmd(g))
	root.AddCommand(newWatchCmd(g))
	root.AddCommand(newDiagCmd(g))
	return root
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// acquireLock guards the data dir for commands that write history. The
// memory backend shares nothing and needs no lock.
func acquireLock(cfg *config.Config) (*pidfile.PIDFile, error) {
	if cfg.Storage.Backend == config.BackendMemory {
		return nil, nil
	}
	pf, err := pidfile.Acquire(cfg.DataDir, "subtitler")
	if err != nil {
		return nil, err
	}
	outLog.Printf("PID file created: %s (PID %d)", pidfile.Path(cfg.DataDir, "subtitler"), os.Getpid())
	return pf, nil
}

func releaseLock(pf *pidfile.PIDFile) {
	if err := pf.Release(); err != nil {
		errLog.Printf("Warning: failed to remove PID file: %v", err)
	}
}

func printLines(w io.Writer, lines []string) {
	for _, l := range lines {
		_, _ = fmt.Fprintln(w, l)
	}
}

func newTUICmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the interactive terminal UI (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), g)
		},
	}
}

func runTUI(parent context.Context, g *globalFlags) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	closer, err := initFileLogging(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closer.Close()

	outLog.Println("Starting subtitler v" + Version)
	pf, err := acquireLock(cfg)
	if err != nil {
		return err
	}
	defer releaseLock(pf)

	alerts := &tui.ModalAlerter{}
	a, err := newApp(cfg, defaultClipboard(), alerts)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext(parent)
	defer cancel()

	if err := a.ctrl.LoadHistory(ctx); err != nil {
		errLog.Printf("Starting with empty history: %v", err)
	}
	return tui.Run(tui.NewModel(ctx, a.ctrl, a.page, alerts, cfg.Endpoint))
}

func newTranscribeCmd(g *globalFlags) *cobra.Command {
	var (
		export    bool
		exportDir string
		format    string
		copyText  bool
	)
	cmd := &cobra.Command{
		Use:   "transcribe <file>",
		Short: "Upload a video and print its subtitles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			pf, err := acquireLock(cfg)
			if err != nil {
				return err
			}
			defer releaseLock(pf)

			a, err := newApp(cfg, defaultClipboard(), notify.Writer(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			if err := a.ctrl.LoadHistory(ctx); err != nil {
				errLog.Printf("Starting with empty history: %v", err)
			}

			outLog.Printf("Uploading %s to %s", args[0], cfg.Endpoint)
			if _, err := a.ctrl.Upload(ctx, args[0]); err != nil {
				printLines(cmd.ErrOrStderr(), validation.SuggestedFixes(err))
				return err
			}

			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), a.page.Status.String())
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), a.page.Subtitles)

			if export {
				path, err := a.ctrl.ExportSubtitles(exportDir, format)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s\n", path)
			}
			if copyText {
				if err := a.ctrl.CopySubtitles(); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&export, "export", false, "also write the subtitles file")
	cmd.Flags().StringVar(&exportDir, "out", "", "export directory (default: export_dir from config)")
	cmd.Flags().StringVar(&format, "format", srt.FormatSRT, "export format: srt|txt")
	cmd.Flags().BoolVar(&copyText, "copy", false, "copy the subtitles to the clipboard")
	return cmd
}

func newHistoryCmd(g *globalFlags) *cobra.Command {
	hist := &cobra.Command{Use: "history", Short: "Inspect and manage saved results"}

	// withHistory runs fn against a controller with the stored history
	// loaded.
	withHistory := func(cmd *cobra.Command, lock bool, fn func(ctx context.Context, a *app) error) error {
		cfg, err := loadConfig(g)
		if err != nil {
			return err
		}
		if lock {
			pf, err := acquireLock(cfg)
			if err != nil {
				return err
			}
			defer releaseLock(pf)
		}
		a, err := newApp(cfg, defaultClipboard(), notify.Native("Subtitler"))
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := a.ctrl.LoadHistory(ctx); err != nil {
			return err
		}
		return fn(ctx, a)
	}

	parseID := func(s string) (int64, error) {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid history id %q", s)
		}
		return id, nil
	}

	hist.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved results, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(cmd, false, func(_ context.Context, a *app) error {
				entries := a.ctrl.History()
				if len(entries) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "History is empty")
					return nil
				}
				for _, e := range entries {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", e.ID, e.Timestamp, e.FileName)
				}
				return nil
			})
		},
	})

	hist.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print the subtitles of a saved result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withHistory(cmd, false, func(_ context.Context, a *app) error {
				e, err := a.ctrl.Entry(id)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "file: %s\n%s%s\n\n%s\n", e.FileName, controller.MetaPrefix, e.Timestamp, e.Subtitles)
				return nil
			})
		},
	})

	var outDir, format string
	exportCmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a saved result as a subtitles file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withHistory(cmd, false, func(_ context.Context, a *app) error {
				if !a.ctrl.SelectHistoryItem(id) {
					return fmt.Errorf("%w: %d", controller.ErrNotFound, id)
				}
				path, err := a.ctrl.ExportSubtitles(outDir, format)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
	exportCmd.Flags().StringVar(&outDir, "out", "", "export directory (default: export_dir from config)")
	exportCmd.Flags().StringVar(&format, "format", srt.FormatSRT, "export format: srt|txt")
	hist.AddCommand(exportCmd)

	hist.AddCommand(&cobra.Command{
		Use:   "copy <id>",
		Short: "Copy a saved result to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withHistory(cmd, false, func(_ context.Context, a *app) error {
				if !a.ctrl.SelectHistoryItem(id) {
					return fmt.Errorf("%w: %d", controller.ErrNotFound, id)
				}
				return a.ctrl.CopySubtitles()
			})
		},
	})

	hist.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every saved result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(cmd, true, func(ctx context.Context, a *app) error {
				n := len(a.ctrl.History())
				if err := a.ctrl.ClearHistory(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "cleared %d entries\n", n)
				return nil
			})
		},
	})
	return hist
}

func newHealthCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the transcription endpoint is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			a, err := newApp(cfg, defaultClipboard(), notify.Writer(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			st, err := a.client.HealthCheck(ctx)
			if err != nil {
				return err
			}
			res := validation.CheckHealth(cfg.Endpoint, st)
			for _, w := range res.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %s\n", w)
			}
			if !res.OK {
				printLines(cmd.ErrOrStderr(), res.Fixes)
				return fmt.Errorf("%s: %s", cfg.Endpoint, st.Message)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %s (%dms)\n", cfg.Endpoint, st.Message, st.Latency.Milliseconds())
			return nil
		},
	}
}

func newWatchCmd(g *globalFlags) *cobra.Command {
	var (
		export    bool
		exportDir string
		polling   bool
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Transcribe every video dropped into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			pf, err := acquireLock(cfg)
			if err != nil {
				return err
			}
			defer releaseLock(pf)

			a, err := newApp(cfg, defaultClipboard(), notify.Writer(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			if err := a.ctrl.LoadHistory(ctx); err != nil {
				errLog.Printf("Starting with empty history: %v", err)
			}

			out := cmd.OutOrStdout()
			handle := func(ctx context.Context, path string) error {
				_, err := a.ctrl.Upload(ctx, path)
				_, _ = fmt.Fprintf(out, "%s\t%s\n", filepath.Base(path), a.page.Status.String())
				if err != nil {
					return err
				}
				if export {
					p, err := a.ctrl.ExportSubtitles(exportDir, srt.FormatSRT)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintf(out, "%s\tSaved %s\n", filepath.Base(path), p)
				}
				return nil
			}

			w := watch.New(args[0], handle, watch.Options{
				Extensions:   cfg.Watch.Extensions,
				PollInterval: time.Duration(cfg.Watch.PollIntervalSeconds) * time.Second,
				ForcePolling: polling,
				OutLog:       outLog,
				ErrLog:       errLog,
				Logger:       a.logger,
			})
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl+C to stop)\n", args[0])
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&export, "export", false, "write a .srt next to each result in the export dir")
	cmd.Flags().StringVar(&exportDir, "out", "", "export directory (default: export_dir from config)")
	cmd.Flags().BoolVar(&polling, "poll", false, "use polling instead of filesystem events")
	return cmd
}

func newDiagCmd(g *globalFlags) *cobra.Command {
	diag := &cobra.Command{Use: "diag", Short: "Diagnostics"}

	var logPath, dest string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Bundle the debug log into one NDJSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if logPath == "" {
				cfg, err := loadConfig(g)
				if err != nil {
					return err
				}
				logPath = diaglog.DefaultPath(cfg.DataDir)
			}
			diaglog.Version = Version
			path, n, err := diaglog.Export(logPath, dest)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("%w (run with %s=true to enable logging)", err, diaglog.EnvDebug)
				}
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote: %s (%d lines)\n", path, n)
			return nil
		},
	}
	exportCmd.Flags().StringVar(&logPath, "log", "", "debug log path (default: <data_dir>/subtitler-debug.ndjson)")
	exportCmd.Flags().StringVar(&dest, "dest", ".", "directory for the bundle")
	diag.AddCommand(exportCmd)
	return diag
}
