package history

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("history record not found")

// DefaultPath returns the history database directory.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, "burnmedia", "history")
}

// Store wraps Badger for history records.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable badger logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores a record.
func (s *Store) Put(r Record) error {
	value, err := r.Encode()
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(makeKey(r), value)
	})
}

// List returns up to limit records, newest first. A limit of zero or less
// returns all of them.
func (s *Store) List(limit int) ([]Record, error) {
	var records []Record

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts at the last key with the prefix.
		seek := append(bytes.Clone(keyPrefix), bytes.Repeat([]byte{0xff}, 9)...)
		for it.Seek(seek); it.ValidForPrefix(keyPrefix); it.Next() {
			var r Record
			if err := it.Item().Value(r.Decode); err != nil {
				return err
			}
			records = append(records, r)
			if limit > 0 && len(records) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Get returns the record with id. A unique prefix of the ID also matches.
func (s *Store) Get(id string) (Record, error) {
	var found Record
	matches := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(keyPrefix); it.Next() {
			var r Record
			if err := it.Item().Value(r.Decode); err != nil {
				return err
			}
			if r.ID == id {
				found, matches = r, 1
				return nil
			}
			if len(id) > 0 && len(r.ID) > len(id) && r.ID[:len(id)] == id {
				found = r
				matches++
			}
		}
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	if matches != 1 {
		return Record{}, ErrNotFound
	}
	return found, nil
}
