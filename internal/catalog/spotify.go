// Package catalog adapts the Spotify Web API to the dataset's collaborator
// contracts: playlist listing for harvesting, album and audio-feature
// lookups for enrichment.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/zmb3/spotify/v2"

	"spotify-dataset/internal/dataset"
	"spotify-dataset/internal/models"
)

const (
	playlistPageSize = 50
	itemPageSize     = 100
)

type Spotify struct {
	client *spotify.Client
}

// compile-time interface assertion
var _ dataset.Catalog = (*Spotify)(nil)

func NewSpotify(client *spotify.Client) *Spotify {
	return &Spotify{client: client}
}

// UserPlaylists returns every playlist listed on a user's profile, following
// pagination to the end.
func (s *Spotify) UserPlaylists(ctx context.Context, userID string) ([]models.Playlist, error) {
	page, err := s.client.GetPlaylistsForUser(ctx, userID, spotify.Limit(playlistPageSize))
	if err != nil {
		return nil, fmt.Errorf("catalog: playlists for %s: %w", userID, err)
	}

	var playlists []models.Playlist
	for {
		for _, pl := range page.Playlists {
			playlists = append(playlists, models.Playlist{
				ID:      string(pl.ID),
				Name:    pl.Name,
				OwnerID: pl.Owner.ID,
				Total:   int(pl.Tracks.Total),
			})
		}

		err = s.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return playlists, fmt.Errorf("catalog: playlists for %s: pagination: %w", userID, err)
		}
	}

	return playlists, nil
}

// PlaylistTracks calls visit once per page of playlist items, in order. The
// next page is only requested after visit returns. Local files and podcast
// episodes are left out.
func (s *Spotify) PlaylistTracks(ctx context.Context, playlistID string, visit func([]models.TrackItem) error) error {
	page, err := s.client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(itemPageSize))
	if err != nil {
		return fmt.Errorf("catalog: playlist %s: %w", playlistID, err)
	}

	for {
		items := make([]models.TrackItem, 0, len(page.Items))
		for _, it := range page.Items {
			if it.IsLocal || it.Track.Track == nil {
				continue
			}
			items = append(items, transform(*it.Track.Track))
		}
		if err := visit(items); err != nil {
			return err
		}

		err = s.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("catalog: playlist %s: pagination: %w", playlistID, err)
		}
	}
}

// Album fetches full album metadata.
func (s *Spotify) Album(ctx context.Context, albumID string) (models.AlbumInfo, error) {
	a, err := s.client.GetAlbum(ctx, spotify.ID(albumID))
	if err != nil {
		return models.AlbumInfo{}, fmt.Errorf("catalog: album %s: %w", albumID, err)
	}

	images := make([]string, 0, len(a.Images))
	for _, img := range a.Images {
		images = append(images, img.URL)
	}

	return models.AlbumInfo{
		ID:          string(a.ID),
		Name:        strings.TrimSpace(a.Name),
		ReleaseDate: a.ReleaseDate,
		Popularity:  int(a.Popularity),
		Images:      images,
		Genres:      a.Genres,
	}, nil
}

// AudioFeatures returns the track's audio-feature object as the API sends
// it, bookkeeping fields included. A track without analysis yields an empty
// object.
func (s *Spotify) AudioFeatures(ctx context.Context, trackID string) (models.RawFeatures, error) {
	features, err := s.client.GetAudioFeatures(ctx, spotify.ID(trackID))
	if err != nil {
		return nil, fmt.Errorf("catalog: audio features %s: %w", trackID, err)
	}
	if len(features) == 0 || features[0] == nil {
		log.Printf("WARN catalog: no audio features for track %s", trackID)
		return models.RawFeatures{}, nil
	}

	return rawFeatures(features[0])
}

func rawFeatures(f *spotify.AudioFeatures) (models.RawFeatures, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: encode audio features: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	raw := models.RawFeatures{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("catalog: decode audio features: %w", err)
	}
	return raw, nil
}

func transform(ft spotify.FullTrack) models.TrackItem {
	item := models.TrackItem{
		ID:         string(ft.ID),
		Name:       ft.Name,
		AlbumID:    string(ft.Album.ID),
		AlbumName:  ft.Album.Name,
		Popularity: int(ft.Popularity),
		Duration:   ft.TimeDuration().Seconds(),
	}
	// the first listed artist is the track's primary artist
	if len(ft.Artists) > 0 {
		item.ArtistID = string(ft.Artists[0].ID)
		item.ArtistName = ft.Artists[0].Name
	}
	if len(ft.Album.Images) > 0 {
		item.AlbumArt = ft.Album.Images[0].URL
	}
	return item
}
