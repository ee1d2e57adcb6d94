package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// JSONStore keeps the record set in a single JSON file, the format produced
// by the ingestion CLI. A missing file reads as an empty set.
type JSONStore struct {
	path string
}

// NewJSONStore creates a store backed by the file at path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the backing file path.
func (s *JSONStore) Path() string {
	return s.path
}

// Load reads all records from the file.
func (s *JSONStore) Load() (map[string]Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]Record), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	records := make(map[string]Record)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse metadata file %s: %w", s.path, err)
	}
	return records, nil
}

// Save writes the full record set back. The write goes through a temp file
// and rename so watchers never observe a half-written document.
func (s *JSONStore) Save(records map[string]Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create metadata dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".metadata-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp metadata file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp metadata file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace metadata file: %w", err)
	}
	return nil
}

// Get looks up one record by file name.
func (s *JSONStore) Get(fileName string) (Record, bool, error) {
	records, err := s.Load()
	if err != nil {
		return Record{}, false, err
	}
	rec, ok := records[fileName]
	return rec, ok, nil
}

// Close is a no-op for the file store.
func (s *JSONStore) Close() error {
	return nil
}
