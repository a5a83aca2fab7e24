package leveldb

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/loamdb/loam/pkg/db"
)

type Iterator struct {
	iter  iterator.Iterator
	valid bool
}

func (s *Store) NewIterator(start, end []byte) (db.Iterator, error) {
	if s.closed.Load() {
		return nil, db.ErrClosed
	}
	iter := s.db.NewIterator(&util.Range{Start: start, Limit: end}, nil)
	return &Iterator{iter: iter}, nil
}

func (it *Iterator) Next() bool {
	it.valid = it.iter.Next()
	return it.valid
}

func (it *Iterator) Key() []byte {
	// goleveldb reuses the returned slice on the next move
	key := it.iter.Key()
	result := make([]byte, len(key))
	copy(result, key)
	return result
}

func (it *Iterator) Value() ([]byte, error) {
	if !it.valid {
		return nil, fmt.Errorf("leveldb: iterator is not valid")
	}

	val := it.iter.Value()
	result := make([]byte, len(val))
	copy(result, val)
	return result, nil
}

func (it *Iterator) Valid() bool {
	return it.valid
}

func (it *Iterator) Close() error {
	it.iter.Release()
	return it.iter.Error()
}
