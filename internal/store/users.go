package store

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"geocrypt/internal/models"
)

// CreateUser inserts a new user. It fails with ErrAlreadyExists when the
// username is taken.
func (s *Store) CreateUser(user models.User) error {
	key := userKeyPrefix + user.Username
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err == nil {
			return ErrAlreadyExists
		}
		return setJSON(txn, key, user)
	})
}

// GetUser fetches a user by username.
func (s *Store) GetUser(username string) (models.User, error) {
	var user models.User
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKeyPrefix+username, &user)
	})
	return user, err
}

// UpdateUser replaces an existing user record whole.
func (s *Store) UpdateUser(user models.User) error {
	key := userKeyPrefix + user.Username
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err != nil {
			return ErrNotFound
		}
		return setJSON(txn, key, user)
	})
}

// DeleteUser removes a user by username.
func (s *Store) DeleteUser(username string) error {
	key := userKeyPrefix + username
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err != nil {
			return ErrNotFound
		}
		return txn.Delete([]byte(key))
	})
}

// FindUserByEmail scans for a user with the given email, case-insensitively.
func (s *Store) FindUserByEmail(email string) (models.User, error) {
	var found models.User
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(userKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var user models.User
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &user)
			})
			if err != nil {
				return err
			}
			if strings.EqualFold(user.Email, email) {
				found = user
				return nil
			}
		}
		return ErrNotFound
	})
	return found, err
}

// ListEmployees returns all employee accounts sorted by username.
func (s *Store) ListEmployees() ([]models.User, error) {
	var employees []models.User
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(userKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var user models.User
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &user)
			})
			if err != nil {
				return err
			}
			if user.Role == models.RoleEmployee {
				employees = append(employees, user)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(employees, func(i, j int) bool {
		return employees[i].Username < employees[j].Username
	})
	return employees, nil
}
