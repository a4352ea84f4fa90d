package store

import (
	"encoding/json"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"geocrypt/internal/models"
)

// SaveFile stores file metadata and its encrypted blob in one transaction.
func (s *Store) SaveFile(meta models.FileMetadata, blob []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, fileKeyPrefix+meta.FileID, meta); err != nil {
			return err
		}
		return txn.Set([]byte(blobKeyPrefix+meta.FileID), blob)
	})
}

// GetFileMetadata fetches one file's metadata, key material included.
func (s *Store) GetFileMetadata(fileID string) (models.FileMetadata, error) {
	var meta models.FileMetadata
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, fileKeyPrefix+fileID, &meta)
	})
	return meta, err
}

// GetFileBlob fetches one file's encrypted bytes.
func (s *Store) GetFileBlob(fileID string) ([]byte, error) {
	var blob []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(blobKeyPrefix + fileID))
		if err != nil {
			return ErrNotFound
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	return blob, err
}

// DeleteFile removes a file's metadata and blob. Deleting the metadata is
// what destroys the per-file key.
func (s *Store) DeleteFile(fileID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(fileKeyPrefix + fileID)); err != nil {
			return ErrNotFound
		}
		if err := txn.Delete([]byte(fileKeyPrefix + fileID)); err != nil {
			return err
		}
		return txn.Delete([]byte(blobKeyPrefix + fileID))
	})
}

// ListFiles returns all file metadata, newest first, with key material
// stripped.
func (s *Store) ListFiles() ([]models.FileMetadata, error) {
	var files []models.FileMetadata
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(fileKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var meta models.FileMetadata
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			})
			if err != nil {
				return err
			}
			files = append(files, meta.WithoutKey())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].UploadedAt.After(files[j].UploadedAt)
	})
	return files, nil
}
