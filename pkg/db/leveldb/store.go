// Package leveldb provides a db.Store backed by syndtr/goleveldb. LevelDB
// has no value log, so the large-value offload and direct I/O knobs are
// accepted and ignored.
package leveldb

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/loamdb/loam/pkg/db"
)

type Store struct {
	db       *leveldb.DB
	writeOpt *opt.WriteOptions
	closed   atomic.Bool
}

var _ db.Store = (*Store)(nil)

// Open opens or creates a leveldb store at path. A corrupted manifest is
// recovered in place before giving up.
func Open(path string, opts db.Options) (*Store, error) {
	if !opts.CreateIfMissing {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("leveldb: open %s: %w", path, db.ErrNotExist)
		}
	}

	cache := int(opts.Cache())
	ldb, err := leveldb.OpenFile(path, &opt.Options{
		ErrorIfMissing:         !opts.CreateIfMissing,
		OpenFilesCacheCapacity: 64,
		BlockCacheCapacity:     cache / 2,
		WriteBuffer:            cache / 4,
		Filter:                 filter.NewBloomFilter(10),
	})
	if _, corrupted := err.(*ldberrors.ErrCorrupted); corrupted {
		ldb, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb: open %s: %w", path, err)
	}

	return newStore(ldb, opts), nil
}

// OpenMemory opens a store on in-memory storage. Test use only.
func OpenMemory(opts db.Options) (*Store, error) {
	ldb, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("leveldb: open in-memory: %w", err)
	}
	return newStore(ldb, opts), nil
}

func newStore(ldb *leveldb.DB, opts db.Options) *Store {
	return &Store{
		db:       ldb,
		writeOpt: &opt.WriteOptions{Sync: !opts.NoSync},
	}
}

func (s *Store) Get(key []byte) ([]byte, error) {
	if s.closed.Load() {
		return nil, db.ErrClosed
	}

	value, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb: get: %w", err)
	}
	return value, nil
}

func (s *Store) GetSize(key []byte) (int, error) {
	if s.closed.Load() {
		return 0, db.ErrClosed
	}

	value, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return 0, db.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("leveldb: get size: %w", err)
	}
	return len(value), nil
}

func (s *Store) Has(key []byte) (bool, error) {
	if s.closed.Load() {
		return false, db.ErrClosed
	}

	ok, err := s.db.Has(key, nil)
	if err != nil {
		return false, fmt.Errorf("leveldb: has: %w", err)
	}
	return ok, nil
}

func (s *Store) Put(key, value []byte) error {
	if s.closed.Load() {
		return db.ErrClosed
	}
	return s.db.Put(key, value, s.writeOpt)
}

func (s *Store) Delete(key []byte) error {
	if s.closed.Load() {
		return db.ErrClosed
	}
	return s.db.Delete(key, s.writeOpt)
}

func (s *Store) BulkPut(records []db.Record) error {
	if s.closed.Load() {
		return db.ErrClosed
	}

	batch := new(leveldb.Batch)
	for _, r := range records {
		batch.Put(r.Key, r.Value)
	}
	if err := s.db.Write(batch, s.writeOpt); err != nil {
		return fmt.Errorf("leveldb: bulk put: %w", err)
	}
	return nil
}

func (s *Store) BulkDelete(keys [][]byte) error {
	if s.closed.Load() {
		return db.ErrClosed
	}

	batch := new(leveldb.Batch)
	for _, k := range keys {
		batch.Delete(k)
	}
	if err := s.db.Write(batch, s.writeOpt); err != nil {
		return fmt.Errorf("leveldb: bulk delete: %w", err)
	}
	return nil
}

func (s *Store) Count() (uint64, error) {
	if s.closed.Load() {
		return 0, db.ErrClosed
	}

	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	var n uint64
	for iter.Next() {
		n++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("leveldb: count: %w", err)
	}
	return n, nil
}

// Clear deletes every key. Scan-and-delete, not atomic across the store.
func (s *Store) Clear() error {
	if s.closed.Load() {
		return db.ErrClosed
	}

	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	for iter.Next() {
		if err := s.db.Delete(iter.Key(), s.writeOpt); err != nil {
			return fmt.Errorf("leveldb: clear: %w", err)
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("leveldb: clear: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}
