// Package config holds the engine and pipeline tuning knobs, loadable from
// a TOML file. CLI flags override whatever is loaded here.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/loamdb/loam/internal/migrate"
	"github.com/loamdb/loam/pkg/db"
)

type Config struct {
	Store   StoreConfig   `toml:"store"`
	Migrate MigrateConfig `toml:"migrate"`
	Log     LogConfig     `toml:"log"`
}

type StoreConfig struct {
	CacheSizeMiB            int  `toml:"cache_size_mib"`
	LargeValueOffload       bool `toml:"large_value_offload"`
	LargeValueThresholdKiB  int  `toml:"large_value_threshold_kib"`
	DirectIOFlushCompaction bool `toml:"direct_io_flush_compaction"`
	DirectReads             bool `toml:"direct_reads"`
	NoSync                  bool `toml:"no_sync"`
}

type MigrateConfig struct {
	BatchSize        int   `toml:"batch_size"`
	ReportEveryBytes int64 `toml:"report_every_bytes"`
	Fingerprint      bool  `toml:"fingerprint"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Defaults returns a Config with sane defaults: offload on at 512 KiB,
// batches of 100, a progress report every MiB, console logging at info.
func Defaults() *Config {
	return &Config{
		Store: StoreConfig{
			CacheSizeMiB:           db.DefaultCacheSize / (1024 * 1024),
			LargeValueOffload:      true,
			LargeValueThresholdKiB: db.DefaultLargeValueThreshold / 1024,
		},
		Migrate: MigrateConfig{
			BatchSize:        migrate.DefaultBatchSize,
			ReportEveryBytes: migrate.DefaultReportEveryBytes,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a TOML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// StoreOptions maps the store section onto engine open options.
func (c *Config) StoreOptions() db.Options {
	return db.Options{
		CreateIfMissing:         true,
		LargeValueOffload:       c.Store.LargeValueOffload,
		LargeValueThreshold:     int64(c.Store.LargeValueThresholdKiB) * 1024,
		DirectIOFlushCompaction: c.Store.DirectIOFlushCompaction,
		DirectReads:             c.Store.DirectReads,
		NoSync:                  c.Store.NoSync,
		CacheSize:               int64(c.Store.CacheSizeMiB) * 1024 * 1024,
	}
}

// PipelineOptions maps the migrate section onto pipeline options.
func (c *Config) PipelineOptions() migrate.Options {
	opts := migrate.DefaultOptions()
	opts.BatchSize = c.Migrate.BatchSize
	opts.ReportEveryBytes = c.Migrate.ReportEveryBytes
	opts.Fingerprint = c.Migrate.Fingerprint
	return opts
}
