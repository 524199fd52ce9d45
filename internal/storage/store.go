// Package storage provides the key-value persistence used for the history
// list, in the manner of browser localStorage: string keys, string values.
package storage

import (
	"context"
	"fmt"

	"github.com/tiroq/subtitler/internal/config"
)

// Store is a string key-value store.
type Store interface {
	// GetItem returns the value for key and whether it exists.
	GetItem(ctx context.Context, key string) (string, bool, error)
	// SetItem stores value under key, replacing any previous value.
	SetItem(ctx context.Context, key, value string) error
	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error
	Close() error
}

// Open returns the Store selected by cfg.Storage.Backend.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendFile:
		return NewFileStore(cfg.StorePath())
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.StorePath())
	case config.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
