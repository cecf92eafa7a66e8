package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStores(t *testing.T) {
	backends := []string{BackendFile, BackendBolt}

	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "conversation_id."+backend)

			store, err := Open(backend, path)
			if err != nil {
				t.Fatalf("open store: %v", err)
			}

			if _, err := store.Load(); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound before first save, got %v", err)
			}

			created := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
			if err := store.Save(Record{ID: "conv-1", CreatedAt: created}); err != nil {
				t.Fatalf("save: %v", err)
			}

			if err := store.Save(Record{ID: "conv-2", CreatedAt: created}); err != nil {
				t.Fatalf("overwrite: %v", err)
			}

			got, err := store.Load()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if got.ID != "conv-2" || !got.CreatedAt.Equal(created) {
				t.Fatalf("unexpected record: %+v", got)
			}
		})
	}
}

func TestFileStoreEmptyAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileStore(empty).Load(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty file, got %v", err)
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileStore(corrupt).Load(); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	if _, err := Open("redis", "x"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := Open(BackendFile, " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
