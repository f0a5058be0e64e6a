// Package config resolves run settings from a credentials file and the
// process environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultCredentialsPath = "data/creds.json"
	DefaultOutputPath      = "data/spotify_data.json"
	DefaultLyricsCachePath = "data/lyrics_cache.db"
	DefaultLyricsBaseURL   = "https://lrclib.net"
	DefaultLyricsInterval  = 250 * time.Millisecond
)

// DefaultUsers are harvested when DATASET_USERS is not set.
var DefaultUsers = []string{"ajinkyaz"}

var ErrMissingCredentials = errors.New("config: SPOTIFY_ID and SPOTIFY_SECRET must be set")

type Config struct {
	ClientID     string
	ClientSecret string

	Users      []string
	OutputPath string
	// Resume loads OutputPath, when it exists, before harvesting.
	Resume  bool
	Workers int

	LyricsBaseURL   string
	LyricsInterval  time.Duration
	LyricsCachePath string // empty disables the cache
}

// credentialsFile is the shape of data/creds.json (or creds.toml).
type credentialsFile struct {
	ID     string `json:"id" toml:"id"`
	Secret string `json:"secret" toml:"secret"`
}

// Load builds the configuration. Credentials come from the file named by
// DATASET_CREDENTIALS (default data/creds.json); SPOTIFY_ID and
// SPOTIFY_SECRET in the environment take precedence over the file.
func Load() (*Config, error) {
	cfg := &Config{
		Users:           append([]string(nil), DefaultUsers...),
		OutputPath:      DefaultOutputPath,
		Workers:         1,
		LyricsBaseURL:   DefaultLyricsBaseURL,
		LyricsInterval:  DefaultLyricsInterval,
		LyricsCachePath: DefaultLyricsCachePath,
	}

	credsPath := envOr("DATASET_CREDENTIALS", DefaultCredentialsPath)
	id, secret, err := readCredentials(credsPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	cfg.ClientID = envOr("SPOTIFY_ID", id)
	cfg.ClientSecret = envOr("SPOTIFY_SECRET", secret)
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w (credentials file %s)", ErrMissingCredentials, credsPath)
	}

	if raw := os.Getenv("DATASET_USERS"); raw != "" {
		cfg.Users = splitList(raw)
	}
	cfg.OutputPath = envOr("DATASET_OUTPUT", cfg.OutputPath)
	if raw := os.Getenv("DATASET_RESUME"); raw != "" {
		resume, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("config: DATASET_RESUME: %w", err)
		}
		cfg.Resume = resume
	}
	if raw := os.Getenv("DATASET_WORKERS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("config: DATASET_WORKERS must be a positive integer, got %q", raw)
		}
		cfg.Workers = n
	}

	cfg.LyricsBaseURL = envOr("LYRICS_BASE_URL", cfg.LyricsBaseURL)
	if raw := os.Getenv("LYRICS_RATE_MS"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 0 {
			return nil, fmt.Errorf("config: LYRICS_RATE_MS must be a non-negative integer, got %q", raw)
		}
		cfg.LyricsInterval = time.Duration(ms) * time.Millisecond
	}
	// set but empty turns the cache off
	if raw, ok := os.LookupEnv("LYRICS_CACHE_PATH"); ok {
		cfg.LyricsCachePath = strings.TrimSpace(raw)
	}

	if len(cfg.Users) == 0 {
		return nil, errors.New("config: no users to harvest")
	}
	return cfg, nil
}

// readCredentials reads a .json or .toml credentials file or, for any other
// extension, a dotenv file with SPOTIFY_ID and SPOTIFY_SECRET.
func readCredentials(path string) (id, secret string, err error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", "", fmt.Errorf("config: read %s: %w", path, err)
		}
		var creds credentialsFile
		if err := json.Unmarshal(data, &creds); err != nil {
			return "", "", fmt.Errorf("config: parse %s: %w", path, err)
		}
		return creds.ID, creds.Secret, nil

	case ".toml":
		file, err := os.Open(path)
		if err != nil {
			return "", "", fmt.Errorf("config: read %s: %w", path, err)
		}
		defer file.Close()

		var creds credentialsFile
		if err := toml.NewDecoder(file).Decode(&creds); err != nil {
			return "", "", fmt.Errorf("config: parse %s: %w", path, err)
		}
		return creds.ID, creds.Secret, nil
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return "", "", fmt.Errorf("config: read %s: %w", path, err)
	}
	return env["SPOTIFY_ID"], env["SPOTIFY_SECRET"], nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
