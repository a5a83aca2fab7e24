// Package migrate streams key-value records from a source store into a
// destination store in fixed-size atomic batches. Batching bounds peak
// memory to one batch of records and turns many small random writes into
// few bulk writes, which is the dominant throughput lever for LSM-backed
// destinations.
package migrate

import (
	"fmt"
	"io"

	"github.com/loamdb/loam/pkg/db"
	"github.com/loamdb/loam/pkg/log"
)

const (
	// DefaultBatchSize is the number of records flushed per bulk write.
	DefaultBatchSize = 100

	// DefaultReportEveryBytes is the progress checkpoint interval. Byte
	// based rather than record based, so the reporting cadence tracks data
	// volume when value sizes are heterogeneous.
	DefaultReportEveryBytes = 1 << 20
)

// Stats are the running totals of one migration run.
type Stats struct {
	// Count is the number of records consumed from the source.
	Count uint64
	// Bytes is the cumulative length of the values consumed.
	Bytes uint64
	// Fingerprint is the BLAKE2b-256 digest of the ordered record stream.
	// Nil unless Options.Fingerprint was set.
	Fingerprint []byte
}

// Options configure a pipeline. The zero value is valid but unbuffered and
// migrates nothing (Limit 0); start from DefaultOptions.
type Options struct {
	// BatchSize is the number of records accumulated before an atomic bulk
	// write. Values <= 1 select the unbuffered variant where every record
	// is written individually as soon as it is read.
	BatchSize int

	// Limit caps the number of records consumed. Negative means unlimited.
	Limit int64

	// ReportEveryBytes is the progress checkpoint interval; a checkpoint
	// fires whenever the cumulative byte count crosses into a new interval.
	// Values <= 0 disable reporting.
	ReportEveryBytes int64

	// Reporter receives the checkpoint observations.
	Reporter Reporter

	// Fingerprint maintains a BLAKE2b-256 digest over the record stream,
	// recorded in Stats on completion.
	Fingerprint bool
}

// DefaultOptions returns the buffered variant: batches of 100 records,
// unlimited, reporting every MiB.
func DefaultOptions() Options {
	return Options{
		BatchSize:        DefaultBatchSize,
		Limit:            -1,
		ReportEveryBytes: DefaultReportEveryBytes,
		Reporter:         NopReporter{},
	}
}

// Pipeline migrates records into a destination store. A run holds exclusive
// logical ownership of the destination; concurrent external writers during
// a run are disallowed by contract.
type Pipeline struct {
	dst  db.Store
	opts Options
}

func New(dst db.Store, opts Options) *Pipeline {
	if opts.Reporter == nil {
		opts.Reporter = NopReporter{}
	}
	return &Pipeline{dst: dst, opts: opts}
}

// Run consumes src in source order until exhaustion, the configured limit,
// or the first error. Flushes happen in fill order and block until the
// destination acknowledges; a source or flush error aborts the run, leaving
// previously flushed batches committed (re-running from the start is safe
// because puts overwrite by key, but delivery is at least once, not exactly
// once).
func (p *Pipeline) Run(src Source) (Stats, error) {
	var (
		stats    Stats
		digest   = newDigest(p.opts.Fingerprint)
		buffered = p.opts.BatchSize > 1
		batch    []db.Record
		lastTick uint64
	)
	if buffered {
		batch = make([]db.Record, 0, p.opts.BatchSize)
	}

	for {
		if p.opts.Limit >= 0 && stats.Count >= uint64(p.opts.Limit) {
			break
		}

		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("migrate: read record %d: %w", stats.Count+1, err)
		}

		stats.Count++
		stats.Bytes += uint64(len(rec.Value))
		if digest != nil {
			hashRecord(digest, rec)
		}

		if buffered {
			batch = append(batch, rec)
			if len(batch) == p.opts.BatchSize {
				if err := p.dst.BulkPut(batch); err != nil {
					return stats, fmt.Errorf("migrate: flush batch: %w", err)
				}
				batch = batch[:0]
			}
		} else if err := p.dst.Put(rec.Key, rec.Value); err != nil {
			return stats, fmt.Errorf("migrate: write record: %w", err)
		}

		if interval := p.opts.ReportEveryBytes; interval > 0 {
			if tick := stats.Bytes / uint64(interval); tick != lastTick {
				lastTick = tick
				p.opts.Reporter.Report(stats.Count, stats.Bytes)
			}
		}
	}

	if len(batch) > 0 {
		if err := p.dst.BulkPut(batch); err != nil {
			return stats, fmt.Errorf("migrate: flush final batch: %w", err)
		}
	}

	if digest != nil {
		stats.Fingerprint = digest.Sum(nil)
	}

	log.Migrate.Debug().
		Uint64("count", stats.Count).
		Uint64("bytes", stats.Bytes).
		Msg("migration run complete")

	return stats, nil
}
