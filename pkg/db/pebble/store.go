package pebble

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/loamdb/loam/pkg/db"
)

// Store is a db.Store backed by cockroachdb/pebble.
type Store struct {
	db       *pebble.DB
	writeOpt *pebble.WriteOptions
	closed   atomic.Bool
}

var _ db.Store = (*Store)(nil)

// Open opens or creates a pebble store at path.
func Open(path string, opts db.Options) (*Store, error) {
	if !opts.CreateIfMissing {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("pebble: open %s: %w", path, db.ErrNotExist)
		}
	}

	pOpts := engineOptions(opts)
	pOpts.ErrorIfNotExists = !opts.CreateIfMissing

	pdb, err := pebble.Open(path, pOpts)
	if err != nil {
		return nil, fmt.Errorf("pebble: open %s: %w", path, err)
	}
	return newStore(pdb, opts), nil
}

// OpenMemory opens a store on an in-memory filesystem. Test use only.
func OpenMemory(opts db.Options) (*Store, error) {
	pOpts := engineOptions(opts)
	pOpts.FS = vfs.NewMem()

	pdb, err := pebble.Open("", pOpts)
	if err != nil {
		return nil, fmt.Errorf("pebble: open in-memory: %w", err)
	}
	return newStore(pdb, opts), nil
}

func engineOptions(opts db.Options) *pebble.Options {
	pOpts := &pebble.Options{
		Cache:        pebble.NewCache(opts.Cache()),
		MemTableSize: 32 * 1024 * 1024,
	}
	if opts.LargeValueOffload {
		// Value blocks are pebble's closest analogue to a value log: large
		// values move out of the sstable data blocks, so compactions rewrite
		// references instead of the values themselves.
		pOpts.Experimental.EnableValueBlocks = func() bool { return true }
	}
	if opts.DirectIOFlushCompaction {
		// Pebble has no O_DIRECT mode. Syncing background writes in small
		// increments keeps flush and compaction data from accumulating in
		// the OS page cache, which is what the knob is after.
		pOpts.BytesPerSync = 512 * 1024
		pOpts.WALBytesPerSync = 512 * 1024
	}
	return pOpts
}

func newStore(pdb *pebble.DB, opts db.Options) *Store {
	writeOpt := pebble.Sync
	if opts.NoSync {
		writeOpt = pebble.NoSync
	}
	return &Store{db: pdb, writeOpt: writeOpt}
}

func (s *Store) Get(key []byte) ([]byte, error) {
	if s.closed.Load() {
		return nil, db.ErrClosed
	}

	value, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pebble: get: %w", err)
	}
	defer closer.Close()

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (s *Store) GetSize(key []byte) (int, error) {
	if s.closed.Load() {
		return 0, db.ErrClosed
	}

	value, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return 0, db.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("pebble: get size: %w", err)
	}
	defer closer.Close()

	return len(value), nil
}

func (s *Store) Has(key []byte) (bool, error) {
	if s.closed.Load() {
		return false, db.ErrClosed
	}

	_, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("pebble: has: %w", err)
	}
	return true, closer.Close()
}

func (s *Store) Put(key, value []byte) error {
	if s.closed.Load() {
		return db.ErrClosed
	}
	return s.db.Set(key, value, s.writeOpt)
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

	batch := s.db.NewBatch()
	defer batch.Close()

	for _, r := range records {
		if err := batch.Set(r.Key, r.Value, nil); err != nil {
			return fmt.Errorf("pebble: bulk put: %w", err)
		}
	}
	if err := batch.Commit(s.writeOpt); err != nil {
		return fmt.Errorf("pebble: bulk put: %w", err)
	}
	return nil
}

func (s *Store) BulkDelete(keys [][]byte) error {
	if s.closed.Load() {
		return db.ErrClosed
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	for _, k := range keys {
		if err := batch.Delete(k, nil); err != nil {
			return fmt.Errorf("pebble: bulk delete: %w", err)
		}
	}
	if err := batch.Commit(s.writeOpt); err != nil {
		return fmt.Errorf("pebble: bulk delete: %w", err)
	}
	return nil
}

// Count scans live keys. Pebble's internal table stats have no stable
// key-count property, so the estimate the contract permits is exact here.
func (s *Store) Count() (uint64, error) {
	if s.closed.Load() {
		return 0, db.ErrClosed
	}

	iter, err := s.db.NewIter(nil)
	if err != nil {
		return 0, fmt.Errorf("pebble: count: %w", err)
	}
	defer iter.Close()

	var n uint64
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("pebble: count: %w", err)
	}
	return n, nil
}

// Clear deletes every key. Scan-and-delete, not atomic across the store; a
// failure part way through leaves a partially cleared store.
func (s *Store) Clear() error {
	if s.closed.Load() {
		return db.ErrClosed
	}

	iter, err := s.db.NewIter(nil)
	if err != nil {
		return fmt.Errorf("pebble: clear: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := s.db.Delete(iter.Key(), s.writeOpt); err != nil {
			return fmt.Errorf("pebble: clear: %w", err)
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("pebble: clear: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}
