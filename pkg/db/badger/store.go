// Package badger provides a db.Store backed by dgraph-io/badger. Badger
// keeps keys in the LSM tree and values above a threshold in a separate
// value log, so it is the engine with exact large-value offload semantics.
package badger

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/loamdb/loam/pkg/db"
)

type Store struct {
	db     *badger.DB
	closed atomic.Bool
}

var _ db.Store = (*Store)(nil)

// Open opens or creates a badger store at path.
func Open(path string, opts db.Options) (*Store, error) {
	if !opts.CreateIfMissing {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("badger: open %s: %w", path, db.ErrNotExist)
		}
	}
	return open(engineOptions(badger.DefaultOptions(path), opts))
}

// OpenMemory opens a store with no backing files. Test use only.
func OpenMemory(opts db.Options) (*Store, error) {
	return open(engineOptions(badger.DefaultOptions("").WithInMemory(true), opts))
}

func open(bOpts badger.Options) (*Store, error) {
	bdb, err := badger.Open(bOpts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", bOpts.Dir, err)
	}
	return &Store{db: bdb}, nil
}

func engineOptions(bOpts badger.Options, opts db.Options) badger.Options {
	bOpts = bOpts.
		WithLogger(newLogger()).
		WithSyncWrites(!opts.NoSync).
		WithBlockCacheSize(opts.Cache())
	if opts.LargeValueOffload {
		bOpts = bOpts.WithValueThreshold(opts.Threshold())
	}
	return bOpts
}

func (s *Store) Get(key []byte) ([]byte, error) {
	if s.closed.Load() {
		return nil, db.ErrClosed
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger: get: %w", err)
	}
	return value, nil
}

// GetSize reads the value length from the item header without materializing
// the value, even when it lives in the value log.
func (s *Store) GetSize(key []byte) (int, error) {
	if s.closed.Load() {
		return 0, db.ErrClosed
	}

	var size int64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		size = item.ValueSize()
		return nil
	})
	if err == badger.ErrKeyNotFound {
		return 0, db.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("badger: get size: %w", err)
	}
	return int(size), nil
}

func (s *Store) Has(key []byte) (bool, error) {
	if s.closed.Load() {
		return false, db.ErrClosed
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("badger: has: %w", err)
	}
	return true, nil
}

func (s *Store) Put(key, value []byte) error {
	if s.closed.Load() {
		return db.ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (s *Store) Delete(key []byte) error {
	if s.closed.Load() {
		return db.ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// BulkPut applies all records in one transaction. A batch too large for a
// single badger transaction surfaces ErrTxnTooBig rather than being split,
// since splitting would break the all-or-nothing contract.
func (s *Store) BulkPut(records []db.Record) error {
	if s.closed.Load() {
		return db.ErrClosed
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, r := range records {
			if err := txn.Set(r.Key, r.Value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger: bulk put: %w", err)
	}
	return nil
}

func (s *Store) BulkDelete(keys [][]byte) error {
	if s.closed.Load() {
		return db.ErrClosed
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger: bulk delete: %w", err)
	}
	return nil
}

// Count scans keys only; values are never fetched from the value log.
func (s *Store) Count() (uint64, error) {
	if s.closed.Load() {
		return 0, db.ErrClosed
	}

	var n uint64
	err := s.db.View(func(txn *badger.Txn) error {
		iOpts := badger.DefaultIteratorOptions
		iOpts.PrefetchValues = false

		it := txn.NewIterator(iOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badger: count: %w", err)
	}
	return n, nil
}

// Clear deletes every key. Scan-and-delete, not atomic across the store.
func (s *Store) Clear() error {
	if s.closed.Load() {
		return db.ErrClosed
	}

	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		iOpts := badger.DefaultIteratorOptions
		iOpts.PrefetchValues = false

		it := txn.NewIterator(iOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger: clear: %w", err)
	}

	for _, k := range keys {
		if err := s.Delete(k); err != nil {
			return fmt.Errorf("badger: clear: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}
