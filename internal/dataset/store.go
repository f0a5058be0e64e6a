// Package dataset owns the in-memory aggregate of tracks, users, albums and
// artists and the rules that decide when a track needs enrichment.
//
// Enrichment of a track id happens at most once per Store, no matter how many
// users or playlists reference it. Record is safe for concurrent use; a track
// or album being fetched by one goroutine is claimed until it is stored, and
// other callers wait for the claimant instead of fetching again.
package dataset

import (
	"context"
	"errors"
	"strings"
	"sync"

	"spotify-dataset/internal/models"
)

// Disclaimer is carried at the top of every saved document.
const Disclaimer = "I do not own any of the data included here, and intend to use this for academic purposes only."

var (
	// ErrNoCatalog is returned when a new track must be enriched but the
	// store was built without collaborators.
	ErrNoCatalog = errors.New("dataset: no catalog configured")

	// ErrLyricsNotFound is the only lyrics failure that enrichment recovers
	// from. LyricsFinder implementations wrap it when no song matches.
	ErrLyricsNotFound = errors.New("lyrics not found")
)

// Catalog is the metadata side of the streaming service.
type Catalog interface {
	Album(ctx context.Context, albumID string) (models.AlbumInfo, error)
	AudioFeatures(ctx context.Context, trackID string) (models.RawFeatures, error)
}

// LyricsFinder looks up lyrics text. A lookup with no match returns an error
// wrapping ErrLyricsNotFound.
type LyricsFinder interface {
	Lookup(ctx context.Context, artist, title string) (string, error)
}

type userEntry struct {
	tracks  []string
	seen    map[string]struct{}
	artists map[string]int
}

// Store is the dataset aggregate.
type Store struct {
	catalog Catalog
	lyrics  LyricsFinder

	mu         sync.Mutex
	disclaimer string
	tracks     map[string]models.Track
	users      map[string]*userEntry
	albums     map[string]models.Album
	artists    map[string]string

	trackClaims claims
	albumClaims claims
}

// New builds an empty store. Either collaborator may be nil for a store that
// is only loaded and inspected.
func New(catalog Catalog, lyrics LyricsFinder) *Store {
	s := &Store{
		catalog: catalog,
		lyrics:  lyrics,
	}
	s.reset(models.Document{Disclaimer: Disclaimer})
	return s
}

// Record registers that userID has trackItem in one of their playlists and
// enriches the track if it has never been seen.
func (s *Store) Record(ctx context.Context, userID string, item models.TrackItem) error {
	if item.Name == "" || item.ArtistName == "" || item.ID == "" {
		return nil
	}

	s.mu.Lock()
	s.addUserTrack(userID, item.ID)
	s.addArtist(item.ArtistID, item.ArtistName)
	if _, known := s.tracks[item.ID]; known {
		s.mu.Unlock()
		return nil
	}
	c, owner := s.trackClaims.acquire(item.ID)
	s.mu.Unlock()

	if !owner {
		// another caller is enriching this track; its outcome is ours
		return c.wait(ctx)
	}

	track, err := s.Enrich(ctx, item.ArtistName, item)

	s.mu.Lock()
	if err == nil {
		s.putTrack(item.ID, track)
		s.bumpArtist(userID, item.ArtistID)
	}
	s.trackClaims.release(item.ID, c, err)
	s.mu.Unlock()
	return err
}

// Size returns the number of enriched tracks.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tracks)
}

// NumUsers returns the number of users seen.
func (s *Store) NumUsers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *Store) NumAlbums() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.albums)
}

func (s *Store) NumArtists() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.artists)
}

// Track returns the stored record for id.
func (s *Store) Track(id string) (models.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tracks[id]
	if !ok {
		return models.Track{}, false
	}
	return copyTrack(t), true
}

// Album returns the stored album for id.
func (s *Store) Album(id string) (models.Album, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.albums[id]
	return a, ok
}

// ArtistName returns the first name seen for an artist id.
func (s *Store) ArtistName(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.artists[id]
	return name, ok
}

// User returns a copy of a user's track list and artist tally.
func (s *Store) User(id string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, false
	}
	return u.export(), true
}

// Snapshot returns a deep copy of the aggregate in its persisted shape.
func (s *Store) Snapshot() models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := models.Document{
		Disclaimer: s.disclaimer,
		Tracks:     make(map[string]models.Track, len(s.tracks)),
		Users:      make(map[string]models.User, len(s.users)),
		Albums:     make(map[string]models.Album, len(s.albums)),
		Artists:    make(map[string]string, len(s.artists)),
	}
	for id, t := range s.tracks {
		doc.Tracks[id] = copyTrack(t)
	}
	for id, u := range s.users {
		doc.Users[id] = u.export()
	}
	for id, a := range s.albums {
		a.Genres = copyStrings(a.Genres)
		doc.Albums[id] = a
	}
	for id, name := range s.artists {
		doc.Artists[id] = name
	}
	return doc
}

// reset replaces every table with the contents of doc. Callers hold mu or
// own the store exclusively.
func (s *Store) reset(doc models.Document) {
	s.disclaimer = doc.Disclaimer
	s.tracks = make(map[string]models.Track, len(doc.Tracks))
	s.users = make(map[string]*userEntry, len(doc.Users))
	s.albums = make(map[string]models.Album, len(doc.Albums))
	s.artists = make(map[string]string, len(doc.Artists))

	for id, t := range doc.Tracks {
		s.tracks[id] = copyTrack(t)
	}
	for id, u := range doc.Users {
		entry := newUserEntry()
		for _, trackID := range u.Tracks {
			entry.add(trackID)
		}
		for artistID, n := range u.Artists {
			entry.artists[artistID] = n
		}
		s.users[id] = entry
	}
	for id, a := range doc.Albums {
		a.Genres = copyStrings(a.Genres)
		s.albums[id] = a
	}
	for id, name := range doc.Artists {
		s.artists[id] = name
	}
}

func (s *Store) addUserTrack(userID, trackID string) {
	u, ok := s.users[userID]
	if !ok {
		u = newUserEntry()
		s.users[userID] = u
	}
	u.add(trackID)
}

func (s *Store) addArtist(artistID, name string) {
	if _, ok := s.artists[artistID]; ok {
		return
	}
	s.artists[artistID] = name
}

func (s *Store) putTrack(id string, t models.Track) {
	if _, ok := s.tracks[id]; ok {
		return
	}
	s.tracks[id] = t
}

func (s *Store) putAlbum(id string, a models.Album) {
	if _, ok := s.albums[id]; ok {
		return
	}
	s.albums[id] = a
}

func (s *Store) bumpArtist(userID, artistID string) {
	u, ok := s.users[userID]
	if !ok {
		u = newUserEntry()
		s.users[userID] = u
	}
	u.artists[artistID]++
}

func newUserEntry() *userEntry {
	return &userEntry{
		tracks:  []string{},
		seen:    make(map[string]struct{}),
		artists: make(map[string]int),
	}
}

func (u *userEntry) add(trackID string) {
	if _, dup := u.seen[trackID]; dup {
		return
	}
	u.seen[trackID] = struct{}{}
	u.tracks = append(u.tracks, trackID)
}

func (u *userEntry) export() models.User {
	out := models.User{
		Tracks:  append([]string{}, u.tracks...),
		Artists: make(map[string]int, len(u.artists)),
	}
	for id, n := range u.artists {
		out.Artists[id] = n
	}
	return out
}

func copyTrack(t models.Track) models.Track {
	t.Genres = copyStrings(t.Genres)
	if t.Features != nil {
		features := make(map[string]float64, len(t.Features))
		for k, v := range t.Features {
			features[k] = v
		}
		t.Features = features
	}
	return t
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
