// Package database keeps a SQLite cache of lyrics lookups so repeated runs
// do not hit the lyrics service for songs they already resolved.
package database

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("database: create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database: ping %s: %w", path, err)
	}
	if err := InitDatabase(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("database: init %s: %w", path, err)
	}
	return db, nil
}

// InitDatabase runs the embedded schema and sets performance PRAGMAs
func InitDatabase(db *sql.DB) error {
	// WAL lets enrichment workers read the cache while another one writes
	_, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA cache_size=-2000;")
	if err != nil {
		return err
	}
	_, err = db.Exec(schema)
	return err
}

// LyricsEntry is one cached lookup outcome.
type LyricsEntry struct {
	Artist string
	Title  string
	Found  bool
	Lyrics string
	RunID  string
}

// UpsertLyrics inserts or replaces the cached outcome for artist and title.
func UpsertLyrics(db *sql.DB, e LyricsEntry) error {
	query := `
	INSERT INTO lyrics_cache (artist, title, found, lyrics, run_id, last_updated)
	VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(artist, title) DO UPDATE SET
		found = excluded.found,
		lyrics = excluded.lyrics,
		run_id = excluded.run_id,
		last_updated = CURRENT_TIMESTAMP;`

	_, err := db.Exec(query, cacheKey(e.Artist), cacheKey(e.Title), e.Found, e.Lyrics, e.RunID)
	return err
}

// GetLyrics returns the cached outcome for artist and title. A missing row
// is reported through ok, not as an error.
func GetLyrics(db *sql.DB, artist, title string) (entry LyricsEntry, ok bool, err error) {
	row := db.QueryRow(
		"SELECT artist, title, found, lyrics, run_id FROM lyrics_cache WHERE artist = ? AND title = ?",
		cacheKey(artist), cacheKey(title),
	)
	err = row.Scan(&entry.Artist, &entry.Title, &entry.Found, &entry.Lyrics, &entry.RunID)
	if err == sql.ErrNoRows {
		return LyricsEntry{}, false, nil
	}
	if err != nil {
		return LyricsEntry{}, false, err
	}
	return entry, true, nil
}

// CountLyrics returns how many cached lookups found lyrics and how many did
// not.
func CountLyrics(db *sql.DB) (found, missing int, err error) {
	err = db.QueryRow(
		"SELECT IFNULL(SUM(found), 0), IFNULL(SUM(1 - found), 0) FROM lyrics_cache",
	).Scan(&found, &missing)
	return found, missing, err
}
