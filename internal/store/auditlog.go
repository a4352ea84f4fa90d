package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"geocrypt/internal/audit"
)

// Append writes one audit entry. Keys embed the identity, a zero-padded
// unix-nano timestamp and a random suffix, so entries are written exactly
// once, never overwritten, and a prefix scan over one identity comes back in
// timestamp order.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	ts, err := entry.Time()
	if err != nil {
		// Entries produced by this system always carry RFC 3339
		// timestamps; tolerate anything else by ordering it at write time.
		ts = time.Now().UTC()
	}
	key := fmt.Sprintf("%s%s:%020d:%s", auditKeyPrefix, entry.Identity, ts.UnixNano(), uuid.New().String())

	err = s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, key, entry)
	})
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListByIdentity returns one identity's audit entries ordered by timestamp,
// oldest first.
func (s *Store) ListByIdentity(identity string) ([]audit.Entry, error) {
	return s.scanAudit(auditKeyPrefix + identity + ":")
}

// ListAuditEntries returns every audit entry, newest first, for the admin
// access-log view.
func (s *Store) ListAuditEntries() ([]audit.Entry, error) {
	entries, err := s.scanAudit(auditKeyPrefix)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
	return entries, nil
}

func (s *Store) scanAudit(prefix string) ([]audit.Entry, error) {
	entries := []audit.Entry{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			var entry audit.Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
