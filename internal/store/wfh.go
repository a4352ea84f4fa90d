package store

import (
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"geocrypt/internal/models"
)

// SubmitWFHRequest files a new work-from-home request for an employee. A
// request that is still pending blocks a new submission.
func (s *Store) SubmitWFHRequest(req models.WFHRequest) error {
	key := wfhKeyPrefix + req.Username
	return s.db.Update(func(txn *badger.Txn) error {
		var existing models.WFHRequest
		err := getJSON(txn, key, &existing)
		if err == nil && existing.Status == models.WFHPending {
			return ErrAlreadyExists
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		req.Status = models.WFHPending
		return setJSON(txn, key, req)
	})
}

// GetWFHRequest fetches an employee's current request.
func (s *Store) GetWFHRequest(username string) (models.WFHRequest, error) {
	var req models.WFHRequest
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, wfhKeyPrefix+username, &req)
	})
	return req, err
}

// DecideWFHRequest approves or rejects an employee's pending request. Only
// a pending request can be decided.
func (s *Store) DecideWFHRequest(username, status, comment string) error {
	key := wfhKeyPrefix + username
	return s.db.Update(func(txn *badger.Txn) error {
		var req models.WFHRequest
		if err := getJSON(txn, key, &req); err != nil {
			return err
		}
		if req.Status != models.WFHPending {
			return ErrNotFound
		}
		now := time.Now().UTC()
		req.Status = status
		req.AdminComment = comment
		req.DecidedAt = &now
		return setJSON(txn, key, req)
	})
}

// HasActiveGrant reports whether the employee holds an approved
// work-from-home exemption. This is the override signal consumed by the
// policy evaluator.
func (s *Store) HasActiveGrant(username string) (bool, error) {
	req, err := s.GetWFHRequest(username)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return req.Status == models.WFHApproved, nil
}

// ListWFHRequests returns all requests, newest first.
func (s *Store) ListWFHRequests() ([]models.WFHRequest, error) {
	var requests []models.WFHRequest
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(wfhKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var req models.WFHRequest
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &req)
			})
			if err != nil {
				return err
			}
			requests = append(requests, req)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].RequestedAt.After(requests[j].RequestedAt)
	})
	return requests, nil
}
