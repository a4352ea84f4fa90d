package store

import (
	"errors"

	"github.com/dgraph-io/badger/v4"

	"geocrypt/internal/policy"
)

// GetPolicyConfig reads the singleton access policy. found is false when no
// config has been written yet; the evaluator's documented defaults apply in
// that case. The read happens inside one transaction so callers always see
// a whole record, never a partially-updated one.
func (s *Store) GetPolicyConfig() (cfg policy.Config, found bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, policyKey, &cfg)
	})
	if errors.Is(err, ErrNotFound) {
		return policy.Config{}, false, nil
	}
	if err != nil {
		return policy.Config{}, false, err
	}
	return cfg, true, nil
}

// PutPolicyConfig replaces the singleton access policy whole.
func (s *Store) PutPolicyConfig(cfg policy.Config) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, policyKey, cfg)
	})
}
