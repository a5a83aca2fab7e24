package leveldb

import (
	"sync/atomic"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/loamdb/loam/pkg/db"
)

// Batch stages operations in a leveldb write batch; nothing touches the
// store until Commit.
type Batch struct {
	ldb      *leveldb.DB
	batch    *leveldb.Batch
	writeOpt *opt.WriteOptions
	done     atomic.Bool
}

func (s *Store) NewBatch() db.Batch {
	return &Batch{
		ldb:      s.db,
		batch:    new(leveldb.Batch),
		writeOpt: s.writeOpt,
	}
}

func (b *Batch) Put(key, value []byte) error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	b.batch.Put(key, value)
	return nil
}

func (b *Batch) Delete(key []byte) error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	b.batch.Delete(key)
	return nil
}

func (b *Batch) Commit() error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	if err := b.ldb.Write(b.batch, b.writeOpt); err != nil {
		return err
	}
	b.done.Store(true)
	return nil
}

func (b *Batch) Close() error {
	b.done.Store(true)
	b.batch.Reset()
	return nil
}
