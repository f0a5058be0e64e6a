package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"spotify-dataset/internal/dataset"
)

// LyricsCache serves lookups from the cache and records what the wrapped
// finder returns. Both hits and misses are cached; service errors are not.
type LyricsCache struct {
	db    *sql.DB
	next  dataset.LyricsFinder
	runID string
}

// compile-time interface assertion
var _ dataset.LyricsFinder = (*LyricsCache)(nil)

func NewLyricsCache(db *sql.DB, next dataset.LyricsFinder, runID string) *LyricsCache {
	return &LyricsCache{db: db, next: next, runID: runID}
}

func (c *LyricsCache) Lookup(ctx context.Context, artist, title string) (string, error) {
	entry, ok, err := GetLyrics(c.db, artist, title)
	if err != nil {
		return "", fmt.Errorf("database: read lyrics cache: %w", err)
	}
	if ok {
		if entry.Found {
			return entry.Lyrics, nil
		}
		return "", fmt.Errorf("database: cached miss for %s - %s: %w", artist, title, dataset.ErrLyricsNotFound)
	}

	text, err := c.next.Lookup(ctx, artist, title)
	switch {
	case err == nil:
		c.store(LyricsEntry{Artist: artist, Title: title, Found: true, Lyrics: text, RunID: c.runID})
	case errors.Is(err, dataset.ErrLyricsNotFound):
		c.store(LyricsEntry{Artist: artist, Title: title, Found: false, RunID: c.runID})
	}
	return text, err
}

// store is best effort; a write failure only costs a repeated lookup later.
func (c *LyricsCache) store(e LyricsEntry) {
	if err := UpsertLyrics(c.db, e); err != nil {
		log.Printf("WARN database: cache lyrics for %s - %s: %v", e.Artist, e.Title, err)
	}
}

func cacheKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
