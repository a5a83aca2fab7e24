package leveldb

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loamdb/loam/pkg/db"
	"github.com/loamdb/loam/pkg/db/dbtest"
)

func TestStoreContract(t *testing.T) {
	dbtest.RunSuite(t, func(t *testing.T) db.Store {
		store, err := OpenMemory(db.DefaultOptions())
		require.NoError(t, err)
		return store
	})
}

func TestOpenMissingPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent")

	_, err := Open(path, db.Options{CreateIfMissing: false})
	assert.ErrorIs(t, err, db.ErrNotExist)
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store")
	opts := db.DefaultOptions()

	store, err := Open(path, opts)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, store.Put([]byte(fmt.Sprintf("foo%d", i)), []byte("value")))
	}
	require.NoError(t, store.Close())

	store, err = Open(path, opts)
	require.NoError(t, err)
	defer store.Close()

	n, err := store.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)
}
