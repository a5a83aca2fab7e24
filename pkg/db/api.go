package db

// Record is a single key-value pair. Keys and values are uninterpreted
// binary blobs; within one store keys are unique and Put overwrites.
type Record struct {
	Key   []byte
	Value []byte
}

// Store represents a key-value storage interface providing basic operations
// for data manipulation, batched atomic writes, and iteration.
//
// Stores are backed by an external storage engine; engine internals
// (compaction, WAL, value-log management) are never exposed here.
type Store interface {
	Writer
	Get(key []byte) ([]byte, error)
	GetSize(key []byte) (int, error)
	Has(key []byte) (bool, error)
	Delete(key []byte) error
	BulkPut(records []Record) error
	BulkDelete(keys [][]byte) error
	Count() (uint64, error)
	Clear() error
	NewBatch() Batch
	NewIterator(start, end []byte) (Iterator, error)
	Close() error
}

type Writer interface {
	Put(key []byte, value []byte) error
}

// Batch represents an atomic batch of operations.
// All operations in a batch are performed atomically on Commit; later
// duplicate keys within the same batch win.
type Batch interface {
	Writer
	Delete(key []byte) error
	Commit() error
	Close() error
}

// Iterator provides sequential access over a range of key-value pairs in
// ascending key order. Iterators must be closed after use.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() ([]byte, error)
	Valid() bool
	Close() error
}
