package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketName = []byte("session")
	currentKey = []byte("current")
)

// BoltStore keeps the record in a BoltDB file. The database is opened per call
// so several runs can share the file one after another.
type BoltStore struct {
	path string
}

func NewBoltStore(path string) *BoltStore {
	return &BoltStore{path: path}
}

func (s *BoltStore) open() (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	return db, nil
}

func (s *BoltStore) Load() (Record, error) {
	db, err := s.open()
	if err != nil {
		return Record{}, err
	}
	defer func() { _ = db.Close() }()

	var data []byte
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		if v := b.Get(currentKey); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return Record{}, fmt.Errorf("read session db: %w", err)
	}

	if len(data) == 0 {
		return Record{}, ErrNotFound
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode session record: %w", err)
	}

	if rec.ID == "" {
		return Record{}, ErrNotFound
	}

	return rec, nil
}

func (s *BoltStore) Save(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}

	db, err := s.open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		return b.Put(currentKey, data)
	})
}
