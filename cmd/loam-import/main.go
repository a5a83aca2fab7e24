// loam-import streams every record of a source store into a destination
// store in atomic batches.
//
//	loam-import [flags] SRC DST [LIMIT]
//
// SRC and DST are store paths; LIMIT is an optional non-negative record
// cap. By default the source is a legacy flat-file store and the
// destination a pebble store; -from and -to select other engines.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/loamdb/loam/internal/config"
	"github.com/loamdb/loam/internal/flatfile"
	"github.com/loamdb/loam/internal/migrate"
	"github.com/loamdb/loam/pkg/db"
	"github.com/loamdb/loam/pkg/db/badger"
	"github.com/loamdb/loam/pkg/db/leveldb"
	"github.com/loamdb/loam/pkg/db/pebble"
	"github.com/loamdb/loam/pkg/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "loam-import:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		fromEngine  = flag.String("from", "flat", "source engine: flat, pebble, badger or leveldb")
		toEngine    = flag.String("to", "pebble", "destination engine: pebble, badger or leveldb")
		configPath  = flag.String("config", "", "TOML tuning file")
		batchSize   = flag.Int("batch", 0, "records per bulk write, overrides config")
		reportEvery = flag.Int64("report-every", 0, "progress interval in bytes, overrides config")
		unbuffered  = flag.Bool("unbuffered", false, "write each record individually instead of batching")
		fingerprint = flag.Bool("fingerprint", false, "record a fingerprint of the migrated stream")
		verify      = flag.Bool("verify", false, "re-read the destination after the run and compare fingerprints")
		logLevel    = flag.String("log-level", "", "zerolog level, overrides config")
		logFormat   = flag.String("log-format", "", "console or json, overrides config")
	)
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 || len(args) > 3 {
		flag.Usage()
		return errors.New("expected SRC DST [LIMIT]")
	}
	srcPath, dstPath := args[0], args[1]

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if err := initLogging(cfg.Log); err != nil {
		return err
	}

	opts := cfg.PipelineOptions()
	if *batchSize > 0 {
		opts.BatchSize = *batchSize
	}
	if *unbuffered {
		opts.BatchSize = 1
	}
	if *reportEvery > 0 {
		opts.ReportEveryBytes = *reportEvery
	}
	if *fingerprint || *verify {
		opts.Fingerprint = true
	}
	if len(args) == 3 {
		limit, err := strconv.ParseUint(args[2], 10, 63)
		if err != nil {
			return fmt.Errorf("invalid limit %q: %w", args[2], err)
		}
		opts.Limit = int64(limit)
	}
	opts.Reporter = migrate.WriterReporter{W: os.Stdout}

	fmt.Printf("Importing from %q into %q\n", srcPath, dstPath)

	src, closeSrc, err := openSource(*fromEngine, srcPath, cfg)
	if err != nil {
		return err
	}
	defer closeSrc()

	dst, err := openStore(*toEngine, dstPath, cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer dst.Close()

	stats, err := migrate.New(dst, opts).Run(src)
	if err != nil {
		return err
	}

	if *verify {
		if err := verifyRun(*fromEngine, srcPath, cfg, dst, opts.Limit, stats.Fingerprint); err != nil {
			return err
		}
		fmt.Println("Verified: destination matches the source stream")
	}

	fmt.Printf("Imported %d values, of size %d bytes\n", stats.Count, stats.Bytes)
	return nil
}

func initLogging(cfg config.LogConfig) error {
	level, err := log.ParseLogLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	loggerType := log.ConsoleLogger
	if cfg.Format == "json" {
		loggerType = log.JSONLogger
	}
	log.Init(log.Options{LogLevel: level, Type: loggerType})
	return nil
}

func openStore(engine, path string, opts db.Options) (db.Store, error) {
	switch engine {
	case "pebble":
		return pebble.Open(path, opts)
	case "badger":
		return badger.Open(path, opts)
	case "leveldb":
		return leveldb.Open(path, opts)
	default:
		return nil, fmt.Errorf("unknown engine %q", engine)
	}
}

// openSource opens the source for sequential reading. Engine-backed sources
// never create a missing store.
func openSource(engine, path string, cfg *config.Config) (migrate.Source, func() error, error) {
	if engine == "flat" {
		store, err := flatfile.Open(path)
		if err != nil {
			return nil, nil, err
		}
		src, err := store.NewSource()
		if err != nil {
			return nil, nil, err
		}
		return src, func() error { return nil }, nil
	}

	opts := cfg.StoreOptions()
	opts.CreateIfMissing = false
	store, err := openStore(engine, path, opts)
	if err != nil {
		return nil, nil, err
	}
	src, err := migrate.NewStoreSource(store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return src, func() error {
		if err := src.Close(); err != nil {
			store.Close()
			return err
		}
		return store.Close()
	}, nil
}

// verifyRun reopens the source, re-reads every migrated key from the
// destination and compares the resulting fingerprint with the run's.
func verifyRun(engine, path string, cfg *config.Config, dst db.Store, limit int64, want []byte) error {
	src, closeSrc, err := openSource(engine, path, cfg)
	if err != nil {
		return fmt.Errorf("reopen source for verify: %w", err)
	}
	defer closeSrc()

	got, err := migrate.Verify(dst, src, limit)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want) {
		return errors.New("verification failed: destination does not match the source stream")
	}
	return nil
}
