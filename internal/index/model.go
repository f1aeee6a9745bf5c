package index

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// RecordPointer is the minimal metadata needed to locate a record on disk.
// It is the entire payload of the in-memory index, so every field here is
// memory the whole store pays for per live key.
//
// Each RecordPointer is a precise address: which segment, what byte offset,
// how many bytes to read. A lookup never scans — it seeks straight there.
type RecordPointer struct {
	// Timestamp is the Unix nanosecond time the record was appended. It is
	// informational only (logging, a future TTL feature): no read or
	// compaction decision in bitforge depends on it, because the index only
	// ever holds the latest record per key regardless of when it was written.
	Timestamp int64

	// Offset is the byte position of the record's length prefix within its
	// segment (spec.md's "starting offset of the frame").
	Offset int64

	// EntrySize is the total on-disk size of the frame — length prefix plus
	// payload. The engine sums it for its live-bytes gauge; reads take the
	// frame length from the frame's own prefix instead.
	EntrySize uint32

	// Key duplicates the map key, so a pointer on its own names the key
	// whose record it locates.
	Key string

	// SegmentID is the id of the segment this pointer was written into.
	// Invariant I1 (spec.md §3) requires this always equal the engine's
	// current active segment id; Get checks this and treats a mismatch as
	// index corruption rather than silently reading the wrong segment.
	SegmentID uint32
}

// Index is the in-memory hash table mapping live keys to their on-disk
// location — the Bitcask keydir. Every live key lives in RAM; every value
// lives on disk.
type Index struct {
	dataDir       string
	log           *zap.SugaredLogger
	recordPointer map[string]*RecordPointer
	mu            sync.RWMutex
	closed        atomic.Bool
}

// Config carries the parameters needed to construct an Index.
type Config struct {
	DataDir string
	Logger  *zap.SugaredLogger
}
