package migrate

import (
	"fmt"
	"io"

	"github.com/loamdb/loam/pkg/db"
)

// Source yields records as a lazy, finite, forward-only sequence. Next
// returns io.EOF after the final record; any other error means the record
// could not be read. Sources restart only by reopening from the beginning.
type Source interface {
	Next() (db.Record, error)
}

// StoreSource adapts a store iterator into a Source, so one engine can feed
// a migration into another. It observes the store as of its creation.
type StoreSource struct {
	iter db.Iterator
}

func NewStoreSource(store db.Store) (*StoreSource, error) {
	iter, err := store.NewIterator(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("migrate: open store source: %w", err)
	}
	return &StoreSource{iter: iter}, nil
}

func (s *StoreSource) Next() (db.Record, error) {
	if !s.iter.Next() {
		return db.Record{}, io.EOF
	}
	value, err := s.iter.Value()
	if err != nil {
		return db.Record{}, fmt.Errorf("migrate: read store source: %w", err)
	}
	return db.Record{Key: s.iter.Key(), Value: value}, nil
}

func (s *StoreSource) Close() error {
	return s.iter.Close()
}
