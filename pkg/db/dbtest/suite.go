// Package dbtest exercises the db.Store contract against an engine. Each
// engine package runs the suite from its own tests with a fresh store per
// subtest.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loamdb/loam/pkg/db"
)

// Opener returns a fresh empty store for one subtest. The suite closes it.
type Opener func(t *testing.T) db.Store

func RunSuite(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store db.Store)
	}{
		{
			name: "basic_put_get",
			fn:   testBasicPutGet,
		},
		{
			name: "get_size",
			fn:   testGetSize,
		},
		{
			name: "has",
			fn:   testHas,
		},
		{
			name: "delete_operations",
			fn:   testDelete,
		},
		{
			name: "bulk_put",
			fn:   testBulkPut,
		},
		{
			name: "bulk_put_duplicate_keys",
			fn:   testBulkPutDuplicates,
		},
		{
			name: "bulk_delete",
			fn:   testBulkDelete,
		},
		{
			name: "batch_commit",
			fn:   testBatchCommit,
		},
		{
			name: "iterator_order",
			fn:   testIteratorOrder,
		},
		{
			name: "count_and_clear",
			fn:   testCountAndClear,
		},
		{
			name: "ten_keys_delete_half",
			fn:   testTenKeysDeleteHalf,
		},
		{
			name: "store_closure",
			fn:   testStoreClosure,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := open(t)
			defer store.Close()

			tc.fn(t, store)
		})
	}
}

func testBasicPutGet(t *testing.T, store db.Store) {
	key := []byte("test-key")
	value := []byte("test-value")

	err := store.Put(key, value)
	require.NoError(t, err)

	retrieved, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, retrieved)

	// Test non-existent key
	_, err = store.Get([]byte("non-existent"))
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func testGetSize(t *testing.T, store db.Store) {
	value := make([]byte, 1234)
	err := store.Put([]byte("sized"), value)
	require.NoError(t, err)

	n, err := store.GetSize([]byte("sized"))
	require.NoError(t, err)
	assert.Equal(t, len(value), n)

	_, err = store.GetSize([]byte("non-existent"))
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func testHas(t *testing.T, store db.Store) {
	ok, err := store.Has([]byte("absent"))
	require.NoError(t, err)
	assert.False(t, ok)

	err = store.Put([]byte("present"), []byte("v"))
	require.NoError(t, err)

	ok, err = store.Has([]byte("present"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func testDelete(t *testing.T, store db.Store) {
	key := []byte("delete-test")
	value := []byte("to-be-deleted")

	err := store.Put(key, value)
	require.NoError(t, err)

	err = store.Delete(key)
	require.NoError(t, err)

	_, err = store.Get(key)
	assert.ErrorIs(t, err, db.ErrNotFound)

	ok, err := store.Has(key)
	require.NoError(t, err)
	assert.False(t, ok)

	// Delete non-existent key should not error
	err = store.Delete([]byte("non-existent"))
	assert.NoError(t, err)
}

func testBulkPut(t *testing.T, store db.Store) {
	records := make([]db.Record, 25)
	for i := range records {
		records[i] = db.Record{
			Key:   []byte(fmt.Sprintf("bulk-%02d", i)),
			Value: []byte(fmt.Sprintf("value-%02d", i)),
		}
	}

	err := store.BulkPut(records)
	require.NoError(t, err)

	for _, r := range records {
		got, err := store.Get(r.Key)
		require.NoError(t, err)
		assert.Equal(t, r.Value, got)
	}
}

func testBulkPutDuplicates(t *testing.T, store db.Store) {
	err := store.BulkPut([]db.Record{
		{Key: []byte("dup"), Value: []byte("first")},
		{Key: []byte("other"), Value: []byte("x")},
		{Key: []byte("dup"), Value: []byte("second")},
	})
	require.NoError(t, err)

	// Later duplicate keys in the same batch win
	got, err := store.Get([]byte("dup"))
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func testBulkDelete(t *testing.T, store db.Store) {
	var keys [][]byte
	for i := 0; i < 10; i++ {
		key := []byte(fmt.Sprintf("bd-%d", i))
		require.NoError(t, store.Put(key, []byte("v")))
		keys = append(keys, key)
	}

	err := store.BulkDelete(keys[:5])
	require.NoError(t, err)

	for i, key := range keys {
		ok, err := store.Has(key)
		require.NoError(t, err)
		assert.Equal(t, i >= 5, ok)
	}
}

func testBatchCommit(t *testing.T, store db.Store) {
	require.NoError(t, store.Put([]byte("pre-existing"), []byte("v")))

	batch := store.NewBatch()
	defer batch.Close()

	require.NoError(t, batch.Put([]byte("batched-1"), []byte("v1")))
	require.NoError(t, batch.Put([]byte("batched-2"), []byte("v2")))
	require.NoError(t, batch.Delete([]byte("pre-existing")))

	// Nothing visible before commit
	_, err := store.Get([]byte("batched-1"))
	assert.ErrorIs(t, err, db.ErrNotFound)

	require.NoError(t, batch.Commit())

	got, err := store.Get([]byte("batched-1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	_, err = store.Get([]byte("pre-existing"))
	assert.ErrorIs(t, err, db.ErrNotFound)

	// Committed batches reject further use
	assert.ErrorIs(t, batch.Put([]byte("late"), []byte("v")), db.ErrBatchDone)
	assert.ErrorIs(t, batch.Commit(), db.ErrBatchDone)
}

func testIteratorOrder(t *testing.T, store db.Store) {
	require.NoError(t, store.Put([]byte("b"), []byte("2")))
	require.NoError(t, store.Put([]byte("c"), []byte("3")))
	require.NoError(t, store.Put([]byte("a"), []byte("1")))

	iter, err := store.NewIterator(nil, nil)
	require.NoError(t, err)
	defer iter.Close()

	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()))

		value, err := iter.Value()
		require.NoError(t, err)
		assert.NotEmpty(t, value)
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func testCountAndClear(t *testing.T, store db.Store) {
	n, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := 0; i < 20; i++ {
		require.NoError(t, store.Put([]byte(fmt.Sprintf("key-%02d", i)), []byte("v")))
	}

	n, err = store.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 20, n)

	require.NoError(t, store.Clear())

	n, err = store.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = store.Get([]byte("key-00"))
	assert.ErrorIs(t, err, db.ErrNotFound)
}

// Ten keys foo0..foo9 mapped to 128-byte values of repeated byte i; delete
// the first five and check what survives.
func testTenKeysDeleteHalf(t *testing.T, store db.Store) {
	for i := 0; i < 10; i++ {
		value := make([]byte, 128)
		for j := range value {
			value[j] = byte(i)
		}
		require.NoError(t, store.Put([]byte(fmt.Sprintf("foo%d", i)), value))
	}

	n, err := store.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Delete([]byte(fmt.Sprintf("foo%d", i))))
	}

	n, err = store.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	_, err = store.Get([]byte("foo0"))
	assert.ErrorIs(t, err, db.ErrNotFound)

	got, err := store.Get([]byte("foo7"))
	require.NoError(t, err)
	require.Len(t, got, 128)
	for _, b := range got {
		require.Equal(t, byte(7), b)
	}

	size, err := store.GetSize([]byte("foo7"))
	require.NoError(t, err)
	assert.Equal(t, 128, size)
}

func testStoreClosure(t *testing.T, store db.Store) {
	err := store.Close()
	require.NoError(t, err)

	// Test operations after close
	_, err = store.Get([]byte("key"))
	assert.ErrorIs(t, err, db.ErrClosed)

	err = store.Put([]byte("key"), []byte("value"))
	assert.ErrorIs(t, err, db.ErrClosed)

	err = store.Delete([]byte("key"))
	assert.ErrorIs(t, err, db.ErrClosed)

	err = store.BulkPut([]db.Record{{Key: []byte("k"), Value: []byte("v")}})
	assert.ErrorIs(t, err, db.ErrClosed)

	_, err = store.Count()
	assert.ErrorIs(t, err, db.ErrClosed)

	// Double close should not error
	err = store.Close()
	assert.NoError(t, err)
}
