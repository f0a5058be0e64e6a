// Package lyrics looks up song lyrics on LRCLIB.
package lyrics

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"spotify-dataset/internal/dataset"
)

const (
	DefaultBaseURL  = "https://lrclib.net"
	DefaultInterval = 250 * time.Millisecond
	UserAgent       = "spotify-dataset/1.0"

	defaultMaxAttempts = 3
	defaultBackoff     = 500 * time.Millisecond
	maxBackoff         = 30 * time.Second
)

// ErrNotFound is returned by Lookup when no candidate carries usable lyrics.
var ErrNotFound = fmt.Errorf("lyrics: %w", dataset.ErrLyricsNotFound)

// compile-time interface assertion
var _ dataset.LyricsFinder = (*Client)(nil)

type Client struct {
	api     *resty.Client
	limiter *rate.Limiter
}

// NewClient builds a client that sends at most one request per interval. A
// zero interval disables limiting.
func NewClient(baseURL string, interval time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	c := &Client{limiter: rate.NewLimiter(limit, 1)}
	c.api = resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", UserAgent).
		SetHeader("Accept", "application/json").
		SetRetryCount(defaultMaxAttempts-1).
		SetRetryWaitTime(defaultBackoff).
		SetRetryMaxWaitTime(maxBackoff).
		AddRetryCondition(shouldRetry).
		SetRetryAfter(retryAfter).
		AddRetryHook(logRetry).
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			// every attempt, retries included, takes a token
			return c.limiter.Wait(r.Context())
		})
	return c
}

// Lookup returns the plain lyrics of the best match for artist and title.
func (c *Client) Lookup(ctx context.Context, artist, title string) (string, error) {
	// bracketed suffixes ("(feat. X)", "[Remastered]") confuse the search
	cleanTitle := title
	if idx := strings.IndexAny(cleanTitle, "(["); idx > 0 {
		cleanTitle = strings.TrimSpace(cleanTitle[:idx])
	}

	results, err := c.search(ctx, artist, cleanTitle)
	if err != nil {
		return "", err
	}
	if len(results) == 0 && cleanTitle != title {
		results, err = c.search(ctx, artist, title)
		if err != nil {
			return "", err
		}
	}

	best, ok := bestMatch(artist, cleanTitle, results)
	if !ok {
		return "", ErrNotFound
	}
	return best.PlainLyrics, nil
}

func (c *Client) search(ctx context.Context, artist, title string) ([]Song, error) {
	q := url.Values{}
	q.Set("track_name", title)
	q.Set("artist_name", artist)

	var songs []Song
	resp, err := c.api.R().
		SetContext(ctx).
		SetResult(&songs).
		Get("/api/search?" + q.Encode())
	if err != nil {
		return nil, fmt.Errorf("lyrics: search %s - %s: %w", artist, title, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, ErrNotFound
	case !resp.IsSuccess():
		return nil, fmt.Errorf("lyrics: search %s - %s: status %d after %d attempts",
			artist, title, resp.StatusCode(), resp.Request.Attempt)
	}
	return songs, nil
}
