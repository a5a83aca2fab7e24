package badger

import (
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/loamdb/loam/pkg/db"
)

// Batch stages writes in a single badger transaction. All staged operations
// commit atomically; exceeding the transaction size limit surfaces
// badger.ErrTxnTooBig instead of splitting the batch.
type Batch struct {
	txn  *badger.Txn
	done atomic.Bool
}

func (s *Store) NewBatch() db.Batch {
	return &Batch{
		txn: s.db.NewTransaction(true),
	}
}

func (b *Batch) Put(key, value []byte) error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	return b.txn.Set(key, value)
}

func (b *Batch) Delete(key []byte) error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	return b.txn.Delete(key)
}

func (b *Batch) Commit() error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	if err := b.txn.Commit(); err != nil {
		return err
	}
	b.done.Store(true)
	return nil
}

func (b *Batch) Close() error {
	if !b.done.CompareAndSwap(false, true) {
		return nil
	}
	b.txn.Discard()
	return nil
}
