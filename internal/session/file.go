package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps the record in a small JSON document.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("read session file: %w", err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return Record{}, ErrNotFound
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode session file %q: %w", s.path, err)
	}

	if strings.TrimSpace(rec.ID) == "" {
		return Record{}, ErrNotFound
	}

	return rec, nil
}

// Save writes the record through a temporary file so a crash never leaves a torn document.
func (s *FileStore) Save(rec Record) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session_*.json")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		tmp.Close()
		return fmt.Errorf("encode session: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp session file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}

	return nil
}
