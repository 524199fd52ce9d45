package history

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/tiroq/subtitler/internal/session"
	"github.com/tiroq/subtitler/internal/storage"
)

func entry(i int) Entry {
	return Entry{
		ID:        int64(1700000000000 + i),
		FileName:  fmt.Sprintf("clip-%02d.mp4", i),
		Timestamp: fmt.Sprintf("01.01.2026, 10:00:%02d", i%60),
		Subtitles: fmt.Sprintf("line %d", i),
	}
}

func TestPrependKeepsNewestFirstAndCap(t *testing.T) {
	l := NewList(DefaultLimit, nil)
	for i := 1; i <= 51; i++ {
		l.Prepend(entry(i))
	}

	if l.Len() != 50 {
		t.Fatalf("len = %d, want 50", l.Len())
	}
	got := l.Entries()
	if got[0].ID != entry(51).ID {
		t.Errorf("newest first: got id %d", got[0].ID)
	}
	if got[49].ID != entry(2).ID {
		t.Errorf("oldest kept should be #2, got id %d", got[49].ID)
	}
	if _, ok := l.Find(entry(1).ID); ok {
		t.Error("oldest entry should have been evicted")
	}
}

func TestNewListClampsLimit(t *testing.T) {
	tests := []struct {
		limit, want int
	}{
		{0, 50}, {-3, 50}, {51, 50}, {10, 10}, {50, 50},
	}
	for _, tt := range tests {
		if got := NewList(tt.limit, nil).Limit(); got != tt.want {
			t.Errorf("NewList(%d).Limit() = %d, want %d", tt.limit, got, tt.want)
		}
	}

	var many []Entry
	for i := 0; i < 60; i++ {
		many = append(many, entry(i))
	}
	l := NewList(DefaultLimit, many)
	if l.Len() != 50 {
		t.Errorf("len = %d, want 50", l.Len())
	}
	if l.Entries()[0].ID != entry(0).ID {
		t.Error("truncation must drop the tail, not the head")
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	l := NewList(5, []Entry{entry(1)})
	got := l.Entries()
	got[0].FileName = "mutated"
	if e, _ := l.Find(entry(1).ID); e.FileName == "mutated" {
		t.Error("Entries must not expose internal storage")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := session.New("talk.mov", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), "02.01.2006, 15:04:05")
	if err := s.Complete("hello"); err != nil {
		t.Fatal(err)
	}
	back := FromSession(s).Session()
	if !reflect.DeepEqual(back, s) {
		t.Errorf("got %+v, want %+v", back, s)
	}
}

func TestRepositoryPersistReload(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	repo := NewRepository(store, "subtitleHistory", DefaultLimit)

	l := NewList(DefaultLimit, nil)
	for i := 1; i <= 3; i++ {
		l.Prepend(entry(i))
	}
	if err := repo.Save(ctx, l); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, _, _ := store.GetItem(ctx, "subtitleHistory")
	want := `[{"id":1700000000003,"fileName":"clip-03.mp4","timestamp":"01.01.2026, 10:00:03","subtitles":"line 3"},` +
		`{"id":1700000000002,"fileName":"clip-02.mp4","timestamp":"01.01.2026, 10:00:02","subtitles":"line 2"},` +
		`{"id":1700000000001,"fileName":"clip-01.mp4","timestamp":"01.01.2026, 10:00:01","subtitles":"line 1"}]`
	if raw != want {
		t.Errorf("stored JSON:\n got %s\nwant %s", raw, want)
	}

	reloaded, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(reloaded.Entries(), l.Entries()) {
		t.Errorf("reloaded entries differ:\n got %+v\nwant %+v", reloaded.Entries(), l.Entries())
	}
}

func TestRepositoryLoadEmpty(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		value *string
	}{
		{name: "absent key"},
		{name: "empty string", value: ptr("")},
		{name: "json null", value: ptr("null")},
		{name: "empty array", value: ptr("[]")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			if tt.value != nil {
				_ = store.SetItem(ctx, "k", *tt.value)
			}
			l, err := NewRepository(store, "k", DefaultLimit).Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if l.Len() != 0 {
				t.Errorf("len = %d, want 0", l.Len())
			}
		})
	}
}

func TestRepositoryLoadCorrupt(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	_ = store.SetItem(ctx, "k", "{not json")

	_, err := NewRepository(store, "k", DefaultLimit).Load(ctx)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("want ErrCorrupt, got %v", err)
	}
}

func TestRepositorySaveEmptyWritesArray(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := NewRepository(store, "k", DefaultLimit).Save(ctx, NewList(DefaultLimit, nil)); err != nil {
		t.Fatal(err)
	}
	if raw, _, _ := store.GetItem(ctx, "k"); raw != "[]" {
		t.Errorf("got %q, want []", raw)
	}
}

func TestRepositoryClear(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	repo := NewRepository(store, "k", DefaultLimit)
	_ = repo.Save(ctx, NewList(DefaultLimit, []Entry{entry(1)}))

	if err := repo.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := store.GetItem(ctx, "k"); ok {
		t.Error("key should be removed")
	}
}

func ptr(s string) *string { return &s }
