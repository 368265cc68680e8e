// Package state persists the URL -> fingerprint mapping between runs.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"sitewatch/internal/domain"
	"sitewatch/internal/ports"
)

// FileStore keeps the whole store in one JSON file. Save writes a
// sibling temp file and renames it over the old one, so a concurrent
// reader only ever sees a complete snapshot.
type FileStore struct {
	path string
}

var _ ports.StateStore = (*FileStore)(nil)

// NewFileStore points the store at its JSON file.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads all records. A missing file is a first run, not an error.
func (s *FileStore) Load(_ context.Context) (map[string]domain.FingerprintRecord, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]domain.FingerprintRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state %s: %w", s.path, err)
	}

	records := map[string]domain.FingerprintRecord{}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", s.path, err)
	}
	return records, nil
}

// Save overwrites the persisted store wholesale.
func (s *FileStore) Save(_ context.Context, records map[string]domain.FingerprintRecord) error {
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write state %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state %s: %w", s.path, err)
	}
	return nil
}
