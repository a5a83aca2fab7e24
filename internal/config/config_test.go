package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loamdb/loam/pkg/db"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Migrate.BatchSize)
	assert.EqualValues(t, 1<<20, cfg.Migrate.ReportEveryBytes)
	assert.True(t, cfg.Store.LargeValueOffload)
	assert.Equal(t, "info", cfg.Log.Level)

	opts := cfg.StoreOptions()
	assert.True(t, opts.CreateIfMissing)
	assert.EqualValues(t, db.DefaultLargeValueThreshold, opts.Threshold())
	assert.EqualValues(t, db.DefaultCacheSize, opts.Cache())
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loam.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[store]
cache_size_mib = 128
large_value_offload = false
no_sync = true

[migrate]
batch_size = 500
report_every_bytes = 10000
fingerprint = true

[log]
level = "debug"
format = "json"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Migrate.BatchSize)
	assert.EqualValues(t, 10000, cfg.Migrate.ReportEveryBytes)
	assert.True(t, cfg.Migrate.Fingerprint)
	assert.Equal(t, "debug", cfg.Log.Level)

	opts := cfg.StoreOptions()
	assert.False(t, opts.LargeValueOffload)
	assert.True(t, opts.NoSync)
	assert.EqualValues(t, 128*1024*1024, opts.CacheSize)

	pOpts := cfg.PipelineOptions()
	assert.Equal(t, 500, pOpts.BatchSize)
	assert.EqualValues(t, -1, pOpts.Limit)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[store\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parsing config")
}
