package options

const (
	// DefaultDataDir is the base directory bitforge stores its data files in
	// when no other directory is specified.
	DefaultDataDir = "/var/lib/bitforge"

	// MinSegmentSize is the minimum allowed compaction threshold (1MB) —
	// below this, compaction would fire so often it dominates write cost.
	MinSegmentSize uint64 = 1 * 1024 * 1024

	// MaxSegmentSize is the maximum allowed compaction threshold (4GB).
	MaxSegmentSize uint64 = 4 * 1024 * 1024 * 1024

	// DefaultSegmentSize is the reference compaction threshold: the active
	// segment is rewritten once it reaches this many bytes.
	DefaultSegmentSize uint64 = 4 * 1024 * 1024

	// DefaultAddr is the TCP address kvs-server listens on when --addr is
	// not given.
	DefaultAddr = "127.0.0.1:4000"

	// KindBitcask selects the log-structured engine (CLI value "kvs").
	KindBitcask EngineKind = "kvs"
	// KindBolt selects the bbolt-backed engine (CLI value "sled").
	KindBolt EngineKind = "sled"
)

// defaultOptions holds the baseline configuration every New call starts
// from before OptionFuncs are applied.
var defaultOptions = Options{
	DataDir: DefaultDataDir,
	Addr:    DefaultAddr,
	Engine:  KindBitcask,
	SegmentOptions: &segmentOptions{
		Size: DefaultSegmentSize,
	},
}

// NewDefaultOptions returns a copy of bitforge's baseline configuration.
func NewDefaultOptions() Options {
	opts := defaultOptions
	segCopy := *defaultOptions.SegmentOptions
	opts.SegmentOptions = &segCopy
	return opts
}
