// Package harvest walks a user's playlists and feeds every track into the
// dataset store.
package harvest

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"spotify-dataset/internal/models"
)

// PlaylistSource lists playlists and their items page by page.
type PlaylistSource interface {
	UserPlaylists(ctx context.Context, userID string) ([]models.Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID string, visit func([]models.TrackItem) error) error
}

// Recorder is the store side of a harvest; *dataset.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, userID string, item models.TrackItem) error
}

// Stats summarizes one user's harvest.
type Stats struct {
	Playlists int
	Items     int
}

type Harvester struct {
	source  PlaylistSource
	store   Recorder
	workers int
	out     io.Writer
}

type Option func(*Harvester)

// WithWorkers records the items of a page on n goroutines. The default of 1
// records strictly in playlist order.
func WithWorkers(n int) Option {
	return func(h *Harvester) {
		if n > 0 {
			h.workers = n
		}
	}
}

// WithOutput sends playlist narration and, on terminals, progress bars to w.
func WithOutput(w io.Writer) Option {
	return func(h *Harvester) { h.out = w }
}

func New(source PlaylistSource, store Recorder, opts ...Option) *Harvester {
	h := &Harvester{
		source:  source,
		store:   store,
		workers: 1,
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// User records every track of every playlist owned by userID. Playlists the
// user merely follows are skipped. The first error stops the harvest.
func (h *Harvester) User(ctx context.Context, userID string) (Stats, error) {
	var stats Stats

	playlists, err := h.source.UserPlaylists(ctx, userID)
	if err != nil {
		return stats, err
	}

	for _, pl := range playlists {
		if pl.OwnerID != userID {
			continue
		}
		fmt.Fprintf(h.out, "%s -- %d\n", pl.Name, pl.Total)

		bar := h.newBar(pl)
		err := h.source.PlaylistTracks(ctx, pl.ID, func(items []models.TrackItem) error {
			if err := h.recordPage(ctx, userID, items, bar); err != nil {
				return err
			}
			stats.Items += len(items)
			return nil
		})
		if bar != nil {
			_ = bar.Finish()
		}
		if err != nil {
			return stats, fmt.Errorf("harvest: playlist %q of %s: %w", pl.Name, userID, err)
		}
		stats.Playlists++
	}
	return stats, nil
}

func (h *Harvester) recordPage(ctx context.Context, userID string, items []models.TrackItem, bar *progressbar.ProgressBar) error {
	if h.workers <= 1 || len(items) <= 1 {
		for _, item := range items {
			if err := h.store.Record(ctx, userID, item); err != nil {
				return err
			}
			advance(bar)
		}
		return nil
	}

	poolCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		jobs     = make(chan models.TrackItem)
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	workers := min(h.workers, len(items))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				if err := h.store.Record(poolCtx, userID, item); err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
					continue
				}
				advance(bar)
			}
		}()
	}

feed:
	for _, item := range items {
		select {
		case jobs <- item:
		case <-poolCtx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// newBar returns nil unless output goes to a terminal.
func (h *Harvester) newBar(pl models.Playlist) *progressbar.ProgressBar {
	if !isTerminal(h.out) || pl.Total <= 0 {
		return nil
	}
	return progressbar.NewOptions(pl.Total,
		progressbar.OptionSetWriter(h.out),
		progressbar.OptionSetDescription(pl.Name),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func advance(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Add(1)
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
