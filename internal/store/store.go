// Package store persists users, files, work-from-home requests, the access
// policy configuration and the audit log in an embedded Badger database.
// Values are JSON under typed key prefixes.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes. Audit keys additionally embed identity and timestamp so a
// prefix scan returns one identity's entries in time order.
const (
	userKeyPrefix  = "user:"
	fileKeyPrefix  = "file:"
	blobKeyPrefix  = "blob:"
	wfhKeyPrefix   = "wfh:"
	auditKeyPrefix = "audit:"
	policyKey      = "config:policy"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when a unique record already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// Store wraps a single Badger database shared by all record types.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the database at dir. Badger's own logger is
// silenced; callers log store activity themselves.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral database, used by tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

func getJSON(txn *badger.Txn, key string, out any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}
