// Package config loads the subtitler configuration from
// ~/.config/subtitler/config.yaml with environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultEndpoint        = "http://127.0.0.1:8000/transcribe"
	DefaultFieldName       = "video"
	DefaultHistoryKey      = "subtitleHistory"
	DefaultTimestampLayout = "02.01.2006, 15:04:05"

	// MaxHistoryLimit bounds history.limit; the stored list never grows past it.
	MaxHistoryLimit = 50
)

// Storage backends accepted by storage.backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds all client configuration.
type Config struct {
	Endpoint        string        `yaml:"endpoint"`         // transcription URL, receives the multipart POST
	TimeoutSeconds  int           `yaml:"timeout_seconds"`  // 0 = no timeout
	FieldName       string        `yaml:"field_name"`       // multipart field carrying the file
	DataDir         string        `yaml:"data_dir"`         // history store, logs, pid file
	ExportDir       string        `yaml:"export_dir"`       // where .srt downloads land
	TimestampLayout string        `yaml:"timestamp_layout"` // Go layout for session timestamps
	Storage         StorageConfig `yaml:"storage"`
	History         HistoryConfig `yaml:"history"`
	Watch           WatchConfig   `yaml:"watch"`
}

// StorageConfig selects the key-value backend holding the history list.
type StorageConfig struct {
	Backend string `yaml:"backend"` // file | sqlite | memory
	Path    string `yaml:"path"`    // optional; derived from data_dir when empty
}

// HistoryConfig controls the persisted history list.
type HistoryConfig struct {
	Key   string `yaml:"key"`
	Limit int    `yaml:"limit"`
}

// WatchConfig controls drop-folder mode.
type WatchConfig struct {
	Extensions          []string `yaml:"extensions"` // empty = accept every file
	PollIntervalSeconds int      `yaml:"poll_interval_seconds"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home := os.Getenv("HOME")
	return &Config{
		Endpoint:        DefaultEndpoint,
		FieldName:       DefaultFieldName,
		DataDir:         filepath.Join(home, ".local", "share", "subtitler"),
		ExportDir:       ".",
		TimestampLayout: DefaultTimestampLayout,
		Storage:         StorageConfig{Backend: BackendFile},
		History:         HistoryConfig{Key: DefaultHistoryKey, Limit: MaxHistoryLimit},
		Watch:           WatchConfig{PollIntervalSeconds: 1},
	}
}

// DefaultPath returns ~/.config/subtitler/config.yaml.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "subtitler", "config.yaml")
}

// Load reads configuration from path (DefaultPath when empty). A missing file
// is not an error: defaults are used. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults
	default:
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.applyEnv()
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.ExportDir = expandHome(cfg.ExportDir)
	cfg.Storage.Path = expandHome(cfg.Storage.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML to path (DefaultPath when empty).
func Save(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) applyEnv() {
	c.Endpoint = getEnv("SUBTITLER_ENDPOINT", c.Endpoint)
	c.DataDir = getEnv("SUBTITLER_DATA_DIR", c.DataDir)
	c.Storage.Backend = getEnv("SUBTITLER_STORAGE", c.Storage.Backend)
	c.ExportDir = getEnv("SUBTITLER_EXPORT_DIR", c.ExportDir)
}

// StorePath returns the location of the history store for the configured
// backend. The memory backend has no path.
func (c *Config) StorePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	switch c.Storage.Backend {
	case BackendSQLite:
		return filepath.Join(c.DataDir, "subtitler.db")
	case BackendFile:
		return filepath.Join(c.DataDir, "store")
	}
	return ""
}

// Validate checks Config for validity.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("endpoint must be an http(s) URL, got %q", c.Endpoint)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must be >= 0, got %d", c.TimeoutSeconds)
	}
	if strings.TrimSpace(c.FieldName) == "" {
		return fmt.Errorf("field_name must not be empty")
	}
	if c.TimestampLayout == "" {
		return fmt.Errorf("timestamp_layout must not be empty")
	}
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
		if c.DataDir == "" && c.Storage.Path == "" {
			return fmt.Errorf("data_dir or storage.path is required for the %s backend", c.Storage.Backend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("storage.backend must be one of file, sqlite, memory, got %q", c.Storage.Backend)
	}
	if c.History.Key == "" {
		return fmt.Errorf("history.key must not be empty")
	}
	if c.History.Limit < 1 || c.History.Limit > MaxHistoryLimit {
		return fmt.Errorf("history.limit must be between 1 and %d, got %d", MaxHistoryLimit, c.History.Limit)
	}
	if c.Watch.PollIntervalSeconds < 1 {
		return fmt.Errorf("watch.poll_interval_seconds must be >= 1, got %d", c.Watch.PollIntervalSeconds)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		return filepath.Join(os.Getenv("HOME"), strings.TrimPrefix(p, "~"))
	}
	return p
}
