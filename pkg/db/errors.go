package db

import "errors"

var (
	// ErrClosed is returned by any operation on a closed store.
	ErrClosed = errors.New("kv-store: database is closed")
	// ErrNotFound is returned by point reads targeting an absent key. It is
	// distinguishable from engine I/O failure via errors.Is.
	ErrNotFound = errors.New("kv-store: key not found")
	// ErrNotExist is returned when opening a store at a missing path with
	// creation disallowed.
	ErrNotExist = errors.New("kv-store: database does not exist")
	// ErrBatchDone is returned when writing to or committing an already
	// committed batch.
	ErrBatchDone = errors.New("kv-store: batch already committed")
)
