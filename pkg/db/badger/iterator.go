package badger

import (
	"bytes"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/loamdb/loam/pkg/db"
)

// Iterator holds a read transaction open for its lifetime; it observes the
// store as of its creation.
type Iterator struct {
	txn        *badger.Txn
	iter       *badger.Iterator
	start, end []byte
	positioned bool
}

func (s *Store) NewIterator(start, end []byte) (db.Iterator, error) {
	if s.closed.Load() {
		return nil, db.ErrClosed
	}

	txn := s.db.NewTransaction(false)
	iter := txn.NewIterator(badger.DefaultIteratorOptions)
	return &Iterator{txn: txn, iter: iter, start: start, end: end}, nil
}

func (it *Iterator) Next() bool {
	if !it.positioned {
		it.positioned = true
		if it.start != nil {
			it.iter.Seek(it.start)
		} else {
			it.iter.Rewind()
		}
	} else if it.iter.Valid() {
		it.iter.Next()
	}
	return it.Valid()
}

func (it *Iterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.iter.Item().KeyCopy(nil)
}

func (it *Iterator) Value() ([]byte, error) {
	if !it.Valid() {
		return nil, fmt.Errorf("badger: iterator is not valid")
	}
	value, err := it.iter.Item().ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("badger: iterator value: %w", err)
	}
	return value, nil
}

func (it *Iterator) Valid() bool {
	if !it.iter.Valid() {
		return false
	}
	if it.end != nil && bytes.Compare(it.iter.Item().Key(), it.end) >= 0 {
		return false
	}
	return true
}

func (it *Iterator) Close() error {
	it.iter.Close()
	it.txn.Discard()
	return nil
}
