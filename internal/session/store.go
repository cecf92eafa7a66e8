// Package session persists the current conversation id between runs.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// ErrNotFound is returned by Load when nothing has been persisted yet.
var ErrNotFound = errors.New("no persisted session")

// Record is the persisted form of a conversation session.
type Record struct {
	ID        string    `json:"conversation_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Store interface {
	Load() (Record, error)
	Save(Record) error
}

// Open returns the store for the named backend. An empty backend means file.
func Open(backend, path string) (Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("session store path is required")
	}

	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return NewFileStore(path), nil
	case BackendBolt:
		return NewBoltStore(path), nil
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", backend)
	}
}
