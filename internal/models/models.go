package models

import (
	"encoding/json"
	"fmt"
)

// Document is the persisted dataset. Its JSON shape is shared with datasets
// written by earlier tooling, so field names must not change.
type Document struct {
	Disclaimer string            `json:"__disclaimer"`
	Tracks     map[string]Track  `json:"tracks"`
	Users      map[string]User   `json:"users"`
	Albums     map[string]Album  `json:"albums"`
	Artists    map[string]string `json:"artists"`
}

// Track is an enriched track record. Acoustic features are stored flattened
// next to the fixed fields.
type Track struct {
	Name        string             `json:"name"`
	Artist      string             `json:"artist"`
	ArtistID    string             `json:"artist_id"`
	Album       string             `json:"album"`
	AlbumID     string             `json:"album_id"`
	Popularity  float64            `json:"popularity"`
	ReleaseYear string             `json:"release_year"`
	Genres      []string           `json:"genres"`
	Duration    float64            `json:"duration"`
	Lyrics      string             `json:"lyrics"`
	Features    map[string]float64 `json:"-"`
}

type Album struct {
	Name        string   `json:"name"`
	ReleaseYear string   `json:"release_year"`
	Popularity  float64  `json:"popularity"`
	AlbumArt    string   `json:"album_art"`
	Genres      []string `json:"genres"`
	Artist      string   `json:"artist"`
	ArtistID    string   `json:"artist_id"`
}

type User struct {
	Tracks  []string       `json:"tracks"`
	Artists map[string]int `json:"artists"`
}

// trackFields lists the keys owned by Track itself; every other numeric key
// in a track object is an acoustic feature.
var trackFields = map[string]struct{}{
	"name":         {},
	"artist":       {},
	"artist_id":    {},
	"album":        {},
	"album_id":     {},
	"popularity":   {},
	"release_year": {},
	"genres":       {},
	"duration":     {},
	"lyrics":       {},
}

// IsTrackField reports whether name is one of Track's fixed JSON keys and so
// cannot be used as a feature name.
func IsTrackField(name string) bool {
	_, ok := trackFields[name]
	return ok
}

// trackAlias drops the custom marshalers so the fixed fields can be encoded
// with the normal struct tags.
type trackAlias Track

func (t Track) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(trackAlias(t))
	if err != nil {
		return nil, err
	}
	if len(t.Features) == 0 {
		return base, nil
	}

	var flat map[string]any
	if err := json.Unmarshal(base, &flat); err != nil {
		return nil, err
	}
	for name, value := range t.Features {
		if _, reserved := trackFields[name]; reserved {
			return nil, fmt.Errorf("models: feature %q collides with a track field", name)
		}
		flat[name] = value
	}
	return json.Marshal(flat)
}

func (t *Track) UnmarshalJSON(data []byte) error {
	var alias trackAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	features := make(map[string]float64)
	for key, value := range raw {
		if _, reserved := trackFields[key]; reserved {
			continue
		}
		var f float64
		if err := json.Unmarshal(value, &f); err != nil {
			// non-numeric extras are not features
			continue
		}
		features[key] = f
	}

	*t = Track(alias)
	t.Features = features
	return nil
}

// TrackItem is a raw track descriptor as listed in a playlist page.
type TrackItem struct {
	ID         string
	Name       string
	ArtistID   string
	ArtistName string
	AlbumID    string
	AlbumName  string
	AlbumArt   string
	Popularity int
	Duration   float64 // seconds
}

// AlbumInfo is album metadata as returned by the catalog.
type AlbumInfo struct {
	ID          string
	Name        string
	ReleaseDate string
	Popularity  int
	Images      []string
	Genres      []string
}

// Playlist is a playlist header from a user's playlist listing.
type Playlist struct {
	ID      string
	Name    string
	OwnerID string
	Total   int
}

// RawFeatures is an acoustic feature object before catalog-internal fields
// are stripped.
type RawFeatures map[string]any
