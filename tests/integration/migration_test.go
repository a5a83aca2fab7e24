//go:build integration

package integration_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loamdb/loam/internal/flatfile"
	"github.com/loamdb/loam/internal/migrate"
	"github.com/loamdb/loam/pkg/db"
	"github.com/loamdb/loam/pkg/db/badger"
	"github.com/loamdb/loam/pkg/db/leveldb"
	"github.com/loamdb/loam/pkg/db/pebble"
)

// buildFlatfile writes n records with heterogeneous value sizes and returns
// the store root and the total value byte volume.
func buildFlatfile(t *testing.T, n int) (string, uint64) {
	t.Helper()

	root := t.TempDir()
	store, err := flatfile.Create(root)
	require.NoError(t, err)

	var bytes uint64
	for i := 0; i < n; i++ {
		value := make([]byte, 32+(i%7)*128)
		for j := range value {
			value[j] = byte(i + j)
		}
		require.NoError(t, store.Put([]byte(fmt.Sprintf("block/%05d", i)), value))
		bytes += uint64(len(value))
	}
	return root, bytes
}

func TestFlatfileToPebbleMigration(t *testing.T) {
	srcRoot, wantBytes := buildFlatfile(t, 250)

	src, err := flatfile.Open(srcRoot)
	require.NoError(t, err)
	source, err := src.NewSource()
	require.NoError(t, err)

	dstPath := filepath.Join(t.TempDir(), "dst")
	dst, err := pebble.Open(dstPath, db.DefaultOptions())
	require.NoError(t, err)

	opts := migrate.DefaultOptions()
	opts.BatchSize = 100
	opts.Fingerprint = true

	stats, err := migrate.New(dst, opts).Run(source)
	require.NoError(t, err)

	assert.EqualValues(t, 250, stats.Count)
	assert.Equal(t, wantBytes, stats.Bytes)
	require.NotEmpty(t, stats.Fingerprint)

	n, err := dst.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 250, n)

	// Durability: the migrated data must survive a reopen and still verify
	// against a fresh pass over the source
	require.NoError(t, dst.Close())
	dst, err = pebble.Open(dstPath, db.DefaultOptions())
	require.NoError(t, err)
	defer dst.Close()

	source, err = src.NewSource()
	require.NoError(t, err)
	digest, err := migrate.Verify(dst, source, -1)
	require.NoError(t, err)
	assert.Equal(t, stats.Fingerprint, digest)
}

func TestFlatfileMigrationWithLimit(t *testing.T) {
	srcRoot, _ := buildFlatfile(t, 100)

	src, err := flatfile.Open(srcRoot)
	require.NoError(t, err)
	source, err := src.NewSource()
	require.NoError(t, err)

	dst, err := pebble.Open(filepath.Join(t.TempDir(), "dst"), db.DefaultOptions())
	require.NoError(t, err)
	defer dst.Close()

	opts := migrate.DefaultOptions()
	opts.BatchSize = 16
	opts.Limit = 60

	stats, err := migrate.New(dst, opts).Run(source)
	require.NoError(t, err)
	assert.EqualValues(t, 60, stats.Count)

	n, err := dst.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 60, n)
}

// The same record stream pushed pebble -> badger -> leveldb must keep its
// fingerprint at every hop.
func TestEngineToEngineChain(t *testing.T) {
	first, err := pebble.Open(filepath.Join(t.TempDir(), "pebble"), db.DefaultOptions())
	require.NoError(t, err)
	defer first.Close()

	var records []db.Record
	for i := 0; i < 123; i++ {
		records = append(records, db.Record{
			Key:   []byte(fmt.Sprintf("item/%04d", i)),
			Value: []byte(fmt.Sprintf("payload-%04d", i)),
		})
	}
	require.NoError(t, first.BulkPut(records))

	second, err := badger.Open(filepath.Join(t.TempDir(), "badger"), db.DefaultOptions())
	require.NoError(t, err)
	defer second.Close()

	third, err := leveldb.Open(filepath.Join(t.TempDir(), "leveldb"), db.DefaultOptions())
	require.NoError(t, err)
	defer third.Close()

	opts := migrate.DefaultOptions()
	opts.BatchSize = 20
	opts.Fingerprint = true

	hop := func(from, to db.Store) migrate.Stats {
		source, err := migrate.NewStoreSource(from)
		require.NoError(t, err)
		defer source.Close()

		stats, err := migrate.New(to, opts).Run(source)
		require.NoError(t, err)
		return stats
	}

	statsAB := hop(first, second)
	statsBC := hop(second, third)

	assert.EqualValues(t, 123, statsAB.Count)
	assert.EqualValues(t, 123, statsBC.Count)
	assert.Equal(t, statsAB.Fingerprint, statsBC.Fingerprint)

	n, err := third.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 123, n)

	got, err := third.Get([]byte("item/0042"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload-0042"), got)
}

// Re-running a migration over the same source must be idempotent: puts
// overwrite by key, so counts do not grow.
func TestMigrationRerunIdempotent(t *testing.T) {
	srcRoot, _ := buildFlatfile(t, 80)

	src, err := flatfile.Open(srcRoot)
	require.NoError(t, err)

	dst, err := badger.Open(filepath.Join(t.TempDir(), "dst"), db.DefaultOptions())
	require.NoError(t, err)
	defer dst.Close()

	opts := migrate.DefaultOptions()
	opts.BatchSize = 30

	for i := 0; i < 2; i++ {
		source, err := src.NewSource()
		require.NoError(t, err)

		stats, err := migrate.New(dst, opts).Run(source)
		require.NoError(t, err)
		assert.EqualValues(t, 80, stats.Count)
	}

	n, err := dst.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 80, n)
}
