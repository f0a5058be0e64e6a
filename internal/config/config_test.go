package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

var configEnv = []string{
	"DATASET_CREDENTIALS", "SPOTIFY_ID", "SPOTIFY_SECRET",
	"DATASET_USERS", "DATASET_OUTPUT", "DATASET_RESUME", "DATASET_WORKERS",
	"LYRICS_BASE_URL", "LYRICS_RATE_MS", "LYRICS_CACHE_PATH",
}

// clearEnv unsets every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadJSONCredentialsWithDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATASET_CREDENTIALS", writeFile(t, "creds.json", `{"id": "client-id", "secret": "client-secret"}`))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := &Config{
		ClientID:        "client-id",
		ClientSecret:    "client-secret",
		Users:           []string{"ajinkyaz"},
		OutputPath:      DefaultOutputPath,
		Workers:         1,
		LyricsBaseURL:   DefaultLyricsBaseURL,
		LyricsInterval:  DefaultLyricsInterval,
		LyricsCachePath: DefaultLyricsCachePath,
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("config:\n got %+v\nwant %+v", cfg, want)
	}
}

func TestLoadDotenvCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATASET_CREDENTIALS", writeFile(t, ".env", "SPOTIFY_ID=from-file\nSPOTIFY_SECRET=file-secret\n"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ClientID != "from-file" || cfg.ClientSecret != "file-secret" {
		t.Fatalf("credentials: got %q / %q", cfg.ClientID, cfg.ClientSecret)
	}
}

func TestLoadTOMLCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATASET_CREDENTIALS", writeFile(t, "creds.toml", "id = \"toml-id\"\nsecret = \"toml-secret\"\n"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ClientID != "toml-id" || cfg.ClientSecret != "toml-secret" {
		t.Fatalf("credentials: got %q / %q", cfg.ClientID, cfg.ClientSecret)
	}
}

func TestLoadEnvironmentWinsOverFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATASET_CREDENTIALS", writeFile(t, "creds.json", `{"id": "file-id", "secret": "file-secret"}`))
	t.Setenv("SPOTIFY_ID", "env-id")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ClientID != "env-id" || cfg.ClientSecret != "file-secret" {
		t.Fatalf("credentials: got %q / %q", cfg.ClientID, cfg.ClientSecret)
	}
}

func TestLoadWithoutFileUsesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATASET_CREDENTIALS", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("SPOTIFY_ID", "env-id")
	t.Setenv("SPOTIFY_SECRET", "env-secret")

	if _, err := Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestLoadMissingCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATASET_CREDENTIALS", filepath.Join(t.TempDir(), "missing.json"))

	_, err := Load()
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("error: got %v, want ErrMissingCredentials", err)
	}
}

func TestLoadMalformedCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATASET_CREDENTIALS", writeFile(t, "creds.json", `{"id":`))

	_, err := Load()
	if err == nil || errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("error: got %v, want a parse error", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPOTIFY_ID", "id")
	t.Setenv("SPOTIFY_SECRET", "secret")
	t.Setenv("DATASET_CREDENTIALS", filepath.Join(t.TempDir(), "none.json"))
	t.Setenv("DATASET_USERS", " alice, ,bob ")
	t.Setenv("DATASET_OUTPUT", "out/data.json")
	t.Setenv("DATASET_RESUME", "true")
	t.Setenv("DATASET_WORKERS", "4")
	t.Setenv("LYRICS_BASE_URL", "http://localhost:3000")
	t.Setenv("LYRICS_RATE_MS", "0")
	t.Setenv("LYRICS_CACHE_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Users, []string{"alice", "bob"}) {
		t.Errorf("users: got %v", cfg.Users)
	}
	if cfg.OutputPath != "out/data.json" {
		t.Errorf("output: got %q", cfg.OutputPath)
	}
	if !cfg.Resume {
		t.Error("resume: got false")
	}
	if cfg.Workers != 4 {
		t.Errorf("workers: got %d", cfg.Workers)
	}
	if cfg.LyricsBaseURL != "http://localhost:3000" {
		t.Errorf("lyrics base url: got %q", cfg.LyricsBaseURL)
	}
	if cfg.LyricsInterval != time.Duration(0) {
		t.Errorf("lyrics interval: got %v", cfg.LyricsInterval)
	}
	if cfg.LyricsCachePath != "" {
		t.Errorf("lyrics cache path: got %q, want empty", cfg.LyricsCachePath)
	}
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "zero workers", key: "DATASET_WORKERS", value: "0"},
		{name: "text workers", key: "DATASET_WORKERS", value: "many"},
		{name: "negative rate", key: "LYRICS_RATE_MS", value: "-5"},
		{name: "bad resume", key: "DATASET_RESUME", value: "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("SPOTIFY_ID", "id")
			t.Setenv("SPOTIFY_SECRET", "secret")
			t.Setenv("DATASET_CREDENTIALS", filepath.Join(t.TempDir(), "none.json"))
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Fatalf("%s=%q: expected error", tt.key, tt.value)
			}
		})
	}
}
