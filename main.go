package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"spotify-dataset/internal/catalog"
	"spotify-dataset/internal/config"
	"spotify-dataset/internal/database"
	"spotify-dataset/internal/dataset"
	"spotify-dataset/internal/harvest"
	"spotify-dataset/internal/lyrics"
)

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalf("CRITICAL: %v", err)
	}
}

func run(ctx context.Context) error {
	// 1. Configuration (fail fast on missing credentials)
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	runID := uuid.NewString()

	lock, err := lockOutput(cfg.OutputPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Printf("WARN failed to release %s: %v", lock.Path(), err)
		}
	}()

	// 2. Spotify client
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	spotifyClient := spotify.New(creds.Client(ctx), spotify.WithRetry(true))
	source := catalog.NewSpotify(spotifyClient)

	// 3. Lyrics, optionally behind the sqlite cache
	var finder dataset.LyricsFinder = lyrics.NewClient(cfg.LyricsBaseURL, cfg.LyricsInterval)
	var db *sql.DB
	if cfg.LyricsCachePath != "" {
		db, err = database.Open(cfg.LyricsCachePath)
		if err != nil {
			return err
		}
		defer db.Close()
		finder = database.NewLyricsCache(db, finder, runID)
	}

	// 4. Store, resuming from the previous output when asked
	store := dataset.New(source, finder)
	if cfg.Resume {
		switch err := store.Load(cfg.OutputPath); {
		case err == nil:
			log.Printf("Resumed %d tracks, %d users from %s", store.Size(), store.NumUsers(), cfg.OutputPath)
		case errors.Is(err, os.ErrNotExist):
			log.Printf("No dataset at %s, starting fresh", cfg.OutputPath)
		default:
			return err
		}
	}

	// 5. Harvest
	h := harvest.New(source, store, harvest.WithWorkers(cfg.Workers))
	start := time.Now()
	for _, user := range cfg.Users {
		stats, err := h.User(ctx, user)
		if err != nil {
			return fmt.Errorf("harvest %s: %w", user, err)
		}
		log.Printf("Harvested %s: %d playlists, %d items", user, stats.Playlists, stats.Items)
	}
	elapsed := time.Since(start)

	sum := summary{
		Elapsed: elapsed,
		Tracks:  store.Size(),
		Users:   store.NumUsers(),
		Albums:  store.NumAlbums(),
		Artists: store.NumArtists(),
		RunID:   runID,
	}
	if db != nil {
		found, missing, err := database.CountLyrics(db)
		if err != nil {
			log.Printf("WARN lyrics cache: count entries: %v", err)
		} else {
			sum.Cache = &cacheCounts{Found: found, Missing: missing}
		}
	}
	fmt.Println(renderSummary(sum))

	if err := store.Save(cfg.OutputPath); err != nil {
		return err
	}
	log.Printf("Saved dataset to %s", cfg.OutputPath)
	return nil
}

// lockOutput takes an exclusive lock next to the dataset file. The caller
// holds it for the whole run.
func lockOutput(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another run is writing %s (lock %s)", path, lock.Path())
	}
	return lock, nil
}
