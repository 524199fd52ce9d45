// Package history keeps the bounded, newest-first list of past
// transcription results and persists it as one JSON array under a single
// store key.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tiroq/subtitler/internal/session"
	"github.com/tiroq/subtitler/internal/storage"
)

// DefaultLimit is the maximum number of entries ever kept.
const DefaultLimit = 50

// ErrCorrupt is returned by Load when the stored value is not a JSON array
// of entries.
var ErrCorrupt = errors.New("history: stored value is corrupt")

// Entry is the persisted projection of a finished session. Status is not
// stored: only completed sessions are ever inserted.
type Entry struct {
	ID        int64  `json:"id"`
	FileName  string `json:"fileName"`
	Timestamp string `json:"timestamp"`
	Subtitles string `json:"subtitles"`
}

// FromSession projects s onto the persisted fields.
func FromSession(s *session.Session) Entry {
	return Entry{
		ID:        s.ID,
		FileName:  s.FileName,
		Timestamp: s.Timestamp,
		Subtitles: s.Subtitles,
	}
}

// Session rebuilds a completed session from the entry.
func (e Entry) Session() *session.Session {
	return &session.Session{
		ID:        e.ID,
		FileName:  e.FileName,
		Timestamp: e.Timestamp,
		Subtitles: e.Subtitles,
		Status:    session.StatusCompleted,
	}
}

// List is the in-memory history, newest first, never longer than its limit.
type List struct {
	entries []Entry
	limit   int
}

// NewList returns a list holding at most limit entries (DefaultLimit when
// limit is out of range). Extra entries beyond the limit are dropped from
// the tail.
func NewList(limit int, entries []Entry) *List {
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}
	l := &List{limit: limit}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	l.entries = append([]Entry(nil), entries...)
	return l
}

// Prepend inserts e at index 0 and truncates to the limit.
func (l *List) Prepend(e Entry) {
	l.entries = append([]Entry{e}, l.entries...)
	if len(l.entries) > l.limit {
		l.entries = l.entries[:l.limit]
	}
}

// Find returns the entry with the given id.
func (l *List) Find(id int64) (Entry, bool) {
	for _, e := range l.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns a copy of the entries, newest first.
func (l *List) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

func (l *List) Len() int   { return len(l.entries) }
func (l *List) Limit() int { return l.limit }

// Clear drops every entry.
func (l *List) Clear() {
	l.entries = nil
}

// Repository loads and saves a List under one store key.
type Repository struct {
	store storage.Store
	key   string
	limit int
}

// NewRepository binds the history to key inside store.
func NewRepository(store storage.Store, key string, limit int) *Repository {
	return &Repository{store: store, key: key, limit: limit}
}

// Load reads and decodes the stored list. An absent or empty value yields an
// empty list.
func (r *Repository) Load(ctx context.Context) (*List, error) {
	raw, ok, err := r.store.GetItem(ctx, r.key)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if !ok || raw == "" {
		return NewList(r.limit, nil), nil
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return NewList(r.limit, entries), nil
}

// Save serializes l as a JSON array under the repository key.
func (r *Repository) Save(ctx context.Context, l *List) error {
	entries := l.Entries()
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := r.store.SetItem(ctx, r.key, string(data)); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// Clear removes the stored list.
func (r *Repository) Clear(ctx context.Context) error {
	if err := r.store.RemoveItem(ctx, r.key); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
