package pebble

import (
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"github.com/loamdb/loam/pkg/db"
)

type Batch struct {
	batch    *pebble.Batch
	writeOpt *pebble.WriteOptions
	done     atomic.Bool
}

func (s *Store) NewBatch() db.Batch {
	return &Batch{
		batch:    s.db.NewBatch(),
		writeOpt: s.writeOpt,
	}
}

func (b *Batch) Put(key, value []byte) error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	return b.batch.Set(key, value, nil)
}

func (b *Batch) Delete(key []byte) error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	return b.batch.Delete(key, nil)
}

func (b *Batch) Commit() error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	if err := b.batch.Commit(b.writeOpt); err != nil {
		return err
	}
	b.done.Store(true)
	return nil
}

func (b *Batch) Close() error {
	if !b.done.CompareAndSwap(false, true) {
		return nil
	}
	return b.batch.Close()
}
