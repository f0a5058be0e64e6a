package lyrics

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

const matchThreshold = 0.85

// Song is one LRCLIB search result.
type Song struct {
	ID           int64   `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
}

// bestMatch picks the highest scoring candidate with lyrics text. Candidates
// scoring below matchThreshold are never picked.
func bestMatch(artist, title string, candidates []Song) (Song, bool) {
	query := strings.ToLower(artist + " " + title)
	jw := metrics.NewJaroWinkler()

	var (
		best    Song
		highest float64
		found   bool
	)
	for _, cand := range candidates {
		if cand.Instrumental || strings.TrimSpace(cand.PlainLyrics) == "" {
			continue
		}
		candStr := strings.ToLower(cand.ArtistName + " " + cand.TrackName)
		score := strutil.Similarity(query, candStr, jw)
		if score >= matchThreshold && score > highest {
			best, highest, found = cand, score, true
		}
	}
	return best, found
}
