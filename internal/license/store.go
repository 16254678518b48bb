package license

import (
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

var licenseKey = []byte("license:current")

// Store persists the last-known-good License to a small embedded badger
// database so a process restart does not lose enterprise features while a
// fresh fetch from the license server is in flight. This is the same
// embedded-KV pattern the teacher uses boltdb for in its raft log store,
// substituted with badger per SPEC_FULL.md's domain stack (badger is the
// pack's more actively-maintained embedded KV option).
type Store struct {
	db *badger.DB
}

// OpenStore opens (creating if necessary) a badger database at dir.
func OpenStore(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open license store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes l as the new last-known-good license.
func (s *Store) Save(l *License) error {
	raw, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal license: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(licenseKey, raw)
	})
}

// Load reads the last-known-good license, returning (nil, nil) if none was
// ever saved.
func (s *Store) Load() (*License, error) {
	var out *License
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(licenseKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var l License
			if err := json.Unmarshal(val, &l); err != nil {
				return err
			}
			out = &l
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load license: %w", err)
	}
	return out, nil
}
