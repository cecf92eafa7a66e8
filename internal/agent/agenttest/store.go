package agenttest

import (
	"time"

	"github.com/spigell/resume-extractor/internal/session"
)

// MemoryStore is an in-memory session.Store.
type MemoryStore struct {
	ID        string
	CreatedAt time.Time
	LoadErr   error
	SaveErr   error
	Saves     int
}

func (m *MemoryStore) Load() (session.Record, error) {
	if m.LoadErr != nil {
		return session.Record{}, m.LoadErr
	}
	if m.ID == "" {
		return session.Record{}, session.ErrNotFound
	}
	return session.Record{ID: m.ID, CreatedAt: m.CreatedAt}, nil
}

func (m *MemoryStore) Save(rec session.Record) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.ID = rec.ID
	m.CreatedAt = rec.CreatedAt
	m.Saves++
	return nil
}
