package db

const (
	// DefaultLargeValueThreshold is the value size above which engines that
	// support large-value offload move values out of the main LSM tree.
	DefaultLargeValueThreshold = 512 * 1024

	// DefaultCacheSize is the engine block-cache size.
	DefaultCacheSize = 64 * 1024 * 1024
)

// Options configure a store at open time. Zero-value fields select engine
// defaults; knobs an engine has no equivalent for are ignored there.
type Options struct {
	// CreateIfMissing creates storage at the path when absent. When false,
	// opening a missing path fails with an error matching ErrNotExist.
	CreateIfMissing bool

	// LargeValueOffload stores values above LargeValueThreshold in a
	// separate append-optimized region to reduce compaction write
	// amplification. Engines without such a region ignore it.
	LargeValueOffload   bool
	LargeValueThreshold int64

	// DirectIOFlushCompaction and DirectReads keep background I/O and reads
	// out of the OS page cache. Throughput tuning only, no correctness
	// effect; advisory for engines without an equivalent.
	DirectIOFlushCompaction bool
	DirectReads             bool

	// NoSync relaxes per-write durability. The default policy is durable
	// writes.
	NoSync bool

	// CacheSize overrides DefaultCacheSize when positive.
	CacheSize int64
}

// DefaultOptions returns the options used when a caller passes the zero
// value nowhere: create on open, offload enabled at the default threshold.
func DefaultOptions() Options {
	return Options{
		CreateIfMissing:     true,
		LargeValueOffload:   true,
		LargeValueThreshold: DefaultLargeValueThreshold,
	}
}

// Threshold returns the effective large-value threshold.
func (o Options) Threshold() int64 {
	if o.LargeValueThreshold > 0 {
		return o.LargeValueThreshold
	}
	return DefaultLargeValueThreshold
}

// Cache returns the effective block-cache size.
func (o Options) Cache() int64 {
	if o.CacheSize > 0 {
		return o.CacheSize
	}
	return DefaultCacheSize
}
