package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"spotify-dataset/internal/models"
)

// LyricsNotFound is stored in place of lyrics text when no lookup matched.
const LyricsNotFound = "not found"

// internalFeatureKeys are catalog bookkeeping fields that come back with the
// acoustic features and are not features themselves.
var internalFeatureKeys = map[string]struct{}{
	"uri":          {},
	"id":           {},
	"analysis_url": {},
	"track_href":   {},
	"type":         {},
	"duration_ms":  {},
}

// LyricsResult separates "no lyrics exist" from a text that was found.
type LyricsResult struct {
	Text  string
	Found bool
}

// Enrich builds the full track record for item. Album metadata is fetched at
// most once per album id and stored as a side effect; the track itself is
// returned for the caller to store.
func (s *Store) Enrich(ctx context.Context, artistName string, item models.TrackItem) (models.Track, error) {
	if s.catalog == nil || s.lyrics == nil {
		return models.Track{}, ErrNoCatalog
	}

	name := strings.TrimSpace(item.Name)

	album, err := s.resolveAlbum(ctx, artistName, item)
	if err != nil {
		return models.Track{}, fmt.Errorf("dataset: album %s: %w", item.AlbumID, err)
	}

	raw, err := s.catalog.AudioFeatures(ctx, item.ID)
	if err != nil {
		return models.Track{}, fmt.Errorf("dataset: audio features %s: %w", item.ID, err)
	}

	lyrics, err := s.FindLyrics(ctx, artistName, name)
	if err != nil {
		return models.Track{}, fmt.Errorf("dataset: lyrics %s - %s: %w", artistName, name, err)
	}

	return models.Track{
		Name:        name,
		Artist:      artistName,
		ArtistID:    item.ArtistID,
		Album:       firstNonEmpty(strings.TrimSpace(item.AlbumName), album.Name),
		AlbumID:     item.AlbumID,
		Popularity:  float64(item.Popularity) / 100,
		ReleaseYear: album.ReleaseYear,
		Genres:      nonNil(album.Genres),
		Duration:    item.Duration,
		Lyrics:      lyrics.Text,
		Features:    StripFeatures(raw),
	}, nil
}

// FindLyrics looks up lyrics for title, retrying once with the part of the
// title before the first hyphen ("Song - Live Version" -> "Song"). When
// neither lookup matches the result carries LyricsNotFound. Errors other than
// ErrLyricsNotFound are returned unchanged.
func (s *Store) FindLyrics(ctx context.Context, artist, title string) (LyricsResult, error) {
	if s.lyrics == nil {
		return LyricsResult{}, ErrNoCatalog
	}

	text, err := s.lyrics.Lookup(ctx, artist, title)
	if err == nil {
		return LyricsResult{Text: text, Found: true}, nil
	}
	if !errors.Is(err, ErrLyricsNotFound) {
		return LyricsResult{}, err
	}

	if short := beforeHyphen(title); short != "" && short != title {
		text, err = s.lyrics.Lookup(ctx, artist, short)
		if err == nil {
			return LyricsResult{Text: text, Found: true}, nil
		}
		if !errors.Is(err, ErrLyricsNotFound) {
			return LyricsResult{}, err
		}
	}

	log.Printf("Lyrics not found for %s - %s", artist, title)
	return LyricsResult{Text: LyricsNotFound}, nil
}

func (s *Store) resolveAlbum(ctx context.Context, artistName string, item models.TrackItem) (models.Album, error) {
	if item.AlbumID == "" {
		return models.Album{Name: strings.TrimSpace(item.AlbumName), Genres: []string{}}, nil
	}

	s.mu.Lock()
	if a, ok := s.albums[item.AlbumID]; ok {
		s.mu.Unlock()
		return a, nil
	}
	c, owner := s.albumClaims.acquire(item.AlbumID)
	s.mu.Unlock()

	if !owner {
		if err := c.wait(ctx); err != nil {
			return models.Album{}, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.albums[item.AlbumID], nil
	}

	info, err := s.catalog.Album(ctx, item.AlbumID)
	var album models.Album
	if err == nil {
		album = buildAlbum(info, artistName, item)
	}

	s.mu.Lock()
	if err == nil {
		s.putAlbum(item.AlbumID, album)
	}
	s.albumClaims.release(item.AlbumID, c, err)
	s.mu.Unlock()
	return album, err
}

func buildAlbum(info models.AlbumInfo, artistName string, item models.TrackItem) models.Album {
	art := item.AlbumArt
	if len(info.Images) > 0 {
		art = info.Images[0]
	}
	return models.Album{
		Name:        firstNonEmpty(strings.TrimSpace(item.AlbumName), strings.TrimSpace(info.Name)),
		ReleaseYear: releaseYear(info.ReleaseDate),
		Popularity:  float64(info.Popularity) / 100,
		AlbumArt:    art,
		Genres:      nonNil(info.Genres),
		Artist:      artistName,
		ArtistID:    item.ArtistID,
	}
}

// StripFeatures keeps the numeric acoustic features of raw and drops
// catalog-internal fields.
func StripFeatures(raw models.RawFeatures) map[string]float64 {
	out := make(map[string]float64, len(raw))
	for key, value := range raw {
		if _, internal := internalFeatureKeys[key]; internal || models.IsTrackField(key) {
			continue
		}
		if f, ok := toFloat(value); ok {
			out[key] = f
		}
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// releaseYear accepts the catalog's "YYYY", "YYYY-MM" and "YYYY-MM-DD" forms.
func releaseYear(date string) string {
	date = strings.TrimSpace(date)
	if len(date) > 4 {
		return date[:4]
	}
	return date
}

func beforeHyphen(title string) string {
	head, _, _ := strings.Cut(title, "-")
	return strings.TrimSpace(head)
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string{}, in...)
}
