package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"spotify-dataset/internal/models"
)

// Load replaces the whole aggregate with the document stored at path. Nothing
// from the previous in-memory state survives; there is no field-level merge.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("dataset: read %s: %w", path, err)
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("dataset: parse %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(doc)
	return nil
}

// Save writes the whole aggregate to path atomically via a temp file.
func (s *Store) Save(path string) error {
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		return fmt.Errorf("dataset: marshal: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("dataset: create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("dataset: write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("dataset: rename temp file: %w", err)
	}
	return nil
}
