package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"spotify-dataset/internal/dataset"
)

type countingFinder struct {
	songs map[string]string
	err   error
	calls int
}

func (f *countingFinder) Lookup(_ context.Context, artist, title string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if text, ok := f.songs[artist+"|"+title]; ok {
		return text, nil
	}
	return "", fmt.Errorf("fake: %w", dataset.ErrLyricsNotFound)
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLyricsCacheServesHitsFromDatabase(t *testing.T) {
	db := openTestDB(t)
	finder := &countingFinder{songs: map[string]string{"Adele|Hello": "Hello, it's me"}}
	runID := uuid.NewString()
	cache := NewLyricsCache(db, finder, runID)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := cache.Lookup(ctx, "Adele", "Hello")
		if err != nil {
			t.Fatalf("lookup %d: %v", i, err)
		}
		if got != "Hello, it's me" {
			t.Fatalf("lookup %d: got %q", i, got)
		}
	}
	if finder.calls != 1 {
		t.Fatalf("finder calls: got %d, want 1", finder.calls)
	}

	// keys are case and whitespace insensitive
	if _, err := cache.Lookup(ctx, " adele ", "HELLO"); err != nil {
		t.Fatalf("normalized lookup: %v", err)
	}
	if finder.calls != 1 {
		t.Fatalf("finder calls after normalized lookup: got %d, want 1", finder.calls)
	}

	entry, ok, err := GetLyrics(db, "Adele", "Hello")
	if err != nil || !ok {
		t.Fatalf("GetLyrics: ok=%v err=%v", ok, err)
	}
	if entry.RunID != runID || !entry.Found {
		t.Fatalf("entry: %+v", entry)
	}
}

func TestLyricsCacheRemembersMisses(t *testing.T) {
	db := openTestDB(t)
	finder := &countingFinder{}
	cache := NewLyricsCache(db, finder, uuid.NewString())

	for i := 0; i < 2; i++ {
		_, err := cache.Lookup(context.Background(), "Nobody", "Nothing")
		if !errors.Is(err, dataset.ErrLyricsNotFound) {
			t.Fatalf("lookup %d: got %v, want ErrLyricsNotFound", i, err)
		}
	}
	if finder.calls != 1 {
		t.Fatalf("finder calls: got %d, want 1", finder.calls)
	}

	found, missing, err := CountLyrics(db)
	if err != nil {
		t.Fatalf("CountLyrics: %v", err)
	}
	if found != 0 || missing != 1 {
		t.Fatalf("counts: found=%d missing=%d, want 0 and 1", found, missing)
	}
}

func TestLyricsCacheDoesNotCacheServiceErrors(t *testing.T) {
	db := openTestDB(t)
	boom := errors.New("lrclib down")
	finder := &countingFinder{err: boom}
	cache := NewLyricsCache(db, finder, uuid.NewString())

	for i := 0; i < 2; i++ {
		if _, err := cache.Lookup(context.Background(), "Adele", "Hello"); !errors.Is(err, boom) {
			t.Fatalf("lookup %d: got %v, want %v", i, err, boom)
		}
	}
	if finder.calls != 2 {
		t.Fatalf("finder calls: got %d, want 2", finder.calls)
	}
	if _, ok, _ := GetLyrics(db, "Adele", "Hello"); ok {
		t.Fatal("service error should not be cached")
	}
}

func TestUpsertLyricsReplacesOutcome(t *testing.T) {
	db := openTestDB(t)

	if err := UpsertLyrics(db, LyricsEntry{Artist: "A", Title: "T", Found: false, RunID: "run-1"}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := UpsertLyrics(db, LyricsEntry{Artist: "A", Title: "T", Found: true, Lyrics: "text", RunID: "run-2"}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	entry, ok, err := GetLyrics(db, "A", "T")
	if err != nil || !ok {
		t.Fatalf("GetLyrics: ok=%v err=%v", ok, err)
	}
	if !entry.Found || entry.Lyrics != "text" || entry.RunID != "run-2" {
		t.Fatalf("entry: %+v", entry)
	}

	found, missing, err := CountLyrics(db)
	if err != nil {
		t.Fatalf("CountLyrics: %v", err)
	}
	if found != 1 || missing != 0 {
		t.Fatalf("counts: found=%d missing=%d", found, missing)
	}
}
