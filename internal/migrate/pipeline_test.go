package migrate

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loamdb/loam/pkg/db"
	"github.com/loamdb/loam/pkg/db/pebble"
)

// sliceSource yields canned records, optionally failing after a prefix.
type sliceSource struct {
	records  []db.Record
	pos      int
	failWith error
}

func (s *sliceSource) Next() (db.Record, error) {
	if s.pos == len(s.records) {
		if s.failWith != nil {
			return db.Record{}, s.failWith
		}
		return db.Record{}, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}

func makeRecords(n, valueLen int) []db.Record {
	records := make([]db.Record, n)
	for i := range records {
		value := make([]byte, valueLen)
		for j := range value {
			value[j] = byte(i)
		}
		records[i] = db.Record{
			Key:   []byte(fmt.Sprintf("key-%06d", i)),
			Value: value,
		}
	}
	return records
}

// recordingStore wraps a destination and records write traffic.
type recordingStore struct {
	db.Store
	bulkSizes []int
	puts      int
	failBulk  error
}

func (r *recordingStore) BulkPut(records []db.Record) error {
	if r.failBulk != nil {
		return r.failBulk
	}
	r.bulkSizes = append(r.bulkSizes, len(records))
	return r.Store.BulkPut(records)
}

func (r *recordingStore) Put(key, value []byte) error {
	r.puts++
	return r.Store.Put(key, value)
}

// captureReporter remembers every observation.
type captureReporter struct {
	counts []uint64
	bytes  []uint64
}

func (c *captureReporter) Report(count, bytes uint64) {
	c.counts = append(c.counts, count)
	c.bytes = append(c.bytes, bytes)
}

func newMemStore(t *testing.T) db.Store {
	t.Helper()
	store, err := pebble.OpenMemory(db.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunMigratesEverything(t *testing.T) {
	records := makeRecords(250, 64)
	dst := newMemStore(t)

	opts := DefaultOptions()
	opts.BatchSize = 100

	stats, err := New(dst, opts).Run(&sliceSource{records: records})
	require.NoError(t, err)

	assert.EqualValues(t, 250, stats.Count)
	assert.EqualValues(t, 250*64, stats.Bytes)

	n, err := dst.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 250, n)

	got, err := dst.Get([]byte("key-000249"))
	require.NoError(t, err)
	assert.Equal(t, records[249].Value, got)
}

func TestRunBatchBoundaries(t *testing.T) {
	// 250 records at batch size 100 must flush exactly 100, 100, 50
	dst := &recordingStore{Store: newMemStore(t)}

	opts := DefaultOptions()
	opts.BatchSize = 100

	stats, err := New(dst, opts).Run(&sliceSource{records: makeRecords(250, 8)})
	require.NoError(t, err)

	assert.EqualValues(t, 250, stats.Count)
	assert.Equal(t, []int{100, 100, 50}, dst.bulkSizes)
	assert.Zero(t, dst.puts)

	n, err := dst.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 250, n)
}

func TestRunLimit(t *testing.T) {
	dst := newMemStore(t)

	opts := DefaultOptions()
	opts.BatchSize = 10
	opts.Limit = 37

	stats, err := New(dst, opts).Run(&sliceSource{records: makeRecords(100, 16)})
	require.NoError(t, err)

	assert.EqualValues(t, 37, stats.Count)
	assert.EqualValues(t, 37*16, stats.Bytes)

	n, err := dst.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 37, n)
}

func TestRunLimitZero(t *testing.T) {
	dst := newMemStore(t)

	opts := DefaultOptions()
	opts.Limit = 0

	stats, err := New(dst, opts).Run(&sliceSource{records: makeRecords(10, 16)})
	require.NoError(t, err)
	assert.Zero(t, stats.Count)

	n, err := dst.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunUnbuffered(t *testing.T) {
	dst := &recordingStore{Store: newMemStore(t)}

	opts := DefaultOptions()
	opts.BatchSize = 1

	stats, err := New(dst, opts).Run(&sliceSource{records: makeRecords(25, 8)})
	require.NoError(t, err)

	assert.EqualValues(t, 25, stats.Count)
	assert.Equal(t, 25, dst.puts)
	assert.Empty(t, dst.bulkSizes)
}

func TestRunProgressCadence(t *testing.T) {
	// 300-byte values against a 1000-byte interval: checkpoints fire when
	// the cumulative count crosses 1000, 2000, and 3000 bytes
	reporter := &captureReporter{}

	opts := DefaultOptions()
	opts.ReportEveryBytes = 1000
	opts.Reporter = reporter

	stats, err := New(newMemStore(t), opts).Run(&sliceSource{records: makeRecords(10, 300)})
	require.NoError(t, err)

	assert.EqualValues(t, 10, stats.Count)
	assert.Equal(t, []uint64{4, 7, 10}, reporter.counts)
	assert.Equal(t, []uint64{1200, 2100, 3000}, reporter.bytes)
}

func TestRunReportingDisabled(t *testing.T) {
	reporter := &captureReporter{}

	opts := DefaultOptions()
	opts.ReportEveryBytes = 0
	opts.Reporter = reporter

	_, err := New(newMemStore(t), opts).Run(&sliceSource{records: makeRecords(10, 300)})
	require.NoError(t, err)
	assert.Empty(t, reporter.counts)
}

func TestRunSourceErrorAborts(t *testing.T) {
	srcErr := errors.New("torn record")
	dst := newMemStore(t)

	opts := DefaultOptions()
	opts.BatchSize = 100

	// 150 good records then a read failure: the first full batch is already
	// committed, the partial second batch is not
	_, err := New(dst, opts).Run(&sliceSource{records: makeRecords(150, 8), failWith: srcErr})
	require.ErrorIs(t, err, srcErr)

	n, err := dst.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 100, n)
}

func TestRunFlushErrorAborts(t *testing.T) {
	flushErr := errors.New("disk full")
	dst := &recordingStore{Store: newMemStore(t), failBulk: flushErr}

	opts := DefaultOptions()
	opts.BatchSize = 10

	_, err := New(dst, opts).Run(&sliceSource{records: makeRecords(25, 8)})
	require.ErrorIs(t, err, flushErr)

	n, err := dst.Store.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFingerprintRoundTrip(t *testing.T) {
	records := makeRecords(42, 32)
	dst := newMemStore(t)

	opts := DefaultOptions()
	opts.BatchSize = 10
	opts.Fingerprint = true

	stats, err := New(dst, opts).Run(&sliceSource{records: records})
	require.NoError(t, err)
	require.NotEmpty(t, stats.Fingerprint)

	digest, err := Verify(dst, &sliceSource{records: records}, -1)
	require.NoError(t, err)
	assert.Equal(t, stats.Fingerprint, digest)

	// Corrupting one value must change the verification digest
	require.NoError(t, dst.Put(records[7].Key, []byte("tampered")))

	digest, err = Verify(dst, &sliceSource{records: records}, -1)
	require.NoError(t, err)
	assert.NotEqual(t, stats.Fingerprint, digest)
}

func TestStoreSource(t *testing.T) {
	src := newMemStore(t)
	for i := 0; i < 30; i++ {
		require.NoError(t, src.Put([]byte(fmt.Sprintf("k%02d", i)), []byte(fmt.Sprintf("v%02d", i))))
	}

	source, err := NewStoreSource(src)
	require.NoError(t, err)
	defer source.Close()

	dst := newMemStore(t)

	opts := DefaultOptions()
	opts.BatchSize = 7

	stats, err := New(dst, opts).Run(source)
	require.NoError(t, err)
	assert.EqualValues(t, 30, stats.Count)

	got, err := dst.Get([]byte("k13"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v13"), got)
}
