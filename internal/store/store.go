// Package store persists the thread collection to a single JSON file on
// disk, the durable slot the original client kept in localStorage.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"omnichat/internal/thread"
)

// Store reads and writes the serialized thread collection. Load is
// infallible by contract: missing or corrupt data yields an empty
// collection rather than an error.
type Store struct {
	filePath string
}

// New creates a store backed by filePath.
func New(filePath string) *Store {
	return &Store{filePath: filePath}
}

// Load reads the persisted collection. A missing file returns an empty
// collection. A file that cannot be read or parsed is moved aside to
// <path>.backup and an empty collection is returned; startup never fails
// on bad history.
func (s *Store) Load() []thread.Thread {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return []thread.Thread{}
	}

	var threads []thread.Thread
	if err := json.Unmarshal(data, &threads); err != nil {
		// Corrupted file - keep it around for inspection and start fresh
		os.Rename(s.filePath, s.filePath+".backup")
		return []thread.Thread{}
	}
	if threads == nil {
		threads = []thread.Thread{}
	}
	return threads
}

// Save overwrites the persisted blob with the full collection. The write
// goes through a temp file and an atomic rename so a crash mid-save never
// corrupts the slot.
func (s *Store) Save(threads []thread.Thread) error {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	data, err := json.MarshalIndent(threads, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal threads: %w", err)
	}

	tempPath := s.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempPath, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
