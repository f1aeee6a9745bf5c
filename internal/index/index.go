// Package index provides the in-memory hash table implementation for the
// bitforge key-value store. This package embodies the core Bitcask
// architectural principle: maintain all keys in memory with minimal metadata
// while storing actual values on disk for optimal memory utilization.
//
// The design philosophy centers on memory efficiency as the primary
// constraint. Every byte stored in the RecordPointer structure directly
// impacts the system's ability to handle large datasets. The approach here
// prioritizes compact data structures over convenience features, recognizing
// that memory constraints often determine system scalability limits.
//
// The index enables O(1) key lookups through an in-memory hash table while
// keeping storage overhead minimal. This allows the system to handle
// datasets significantly larger than available RAM while maintaining
// excellent read performance characteristics.
package index

import (
	"context"
	stdErrors "errors"

	"github.com/nilotpal/bitforge/pkg/errors"
)

var (
	ErrIndexClosed = stdErrors.New("operation failed: cannot access closed index")
)

// New creates and initializes a new Index instance configured according to the
// provided parameters. The returned Index is immediately ready for concurrent
// use and includes optimizations like pre-allocated map capacity.
func New(ctx context.Context, config *Config) (*Index, error) {
	if config == nil || config.DataDir == "" || config.Logger == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "Index configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	return &Index{
		log:           config.Logger,
		dataDir:       config.DataDir,
		recordPointer: make(map[string]*RecordPointer, 2046),
	}, nil
}

// Put inserts or overwrites the pointer for key. A Put always wins over
// whatever pointer was there before it — the index only ever remembers the
// most recent write, which is what makes a later Get or compaction pass
// reflect deletes and overwrites without consulting the log.
func (idx *Index) Put(key string, ptr *RecordPointer) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed.Load() {
		return ErrIndexClosed
	}

	idx.recordPointer[key] = ptr
	return nil
}

// Get returns the pointer for key. The second return value is false when the
// key has no live entry — callers translate that into a KeyNotFound error at
// the engine boundary, not here, since "absent" isn't itself a failure for
// every caller (Engine.Get, for instance, reports it as found=false).
func (idx *Index) Get(key string) (*RecordPointer, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed.Load() {
		return nil, false
	}

	ptr, ok := idx.recordPointer[key]
	return ptr, ok
}

// Delete removes key from the index and reports whether it was present.
func (idx *Index) Delete(key string) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed.Load() {
		return false, ErrIndexClosed
	}

	if _, ok := idx.recordPointer[key]; !ok {
		return false, nil
	}

	delete(idx.recordPointer, key)
	return true, nil
}

// Len reports the number of live keys currently tracked.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.recordPointer)
}

// Snapshot returns a point-in-time copy of every live pointer, keyed by key.
// Compaction uses this to decide what to rewrite into the new segment
// without holding the index lock for the whole rewrite.
func (idx *Index) Snapshot() map[string]RecordPointer {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make(map[string]RecordPointer, len(idx.recordPointer))
	for k, v := range idx.recordPointer {
		out[k] = *v
	}
	return out
}

// Range calls fn for every live entry in the index in an unspecified order,
// stopping early if fn returns false. fn must not call back into the index.
func (idx *Index) Range(fn func(key string, ptr *RecordPointer) bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for k, v := range idx.recordPointer {
		if !fn(k, v) {
			return
		}
	}
}

// Close gracefully shuts down the Index, cleaning up resources and ensuring
// that the index cannot be used after closure.
func (idx *Index) Close() error {
	// Use atomic compare-and-swap to safely check and update the closed state.
	if !idx.closed.CompareAndSwap(false, true) {
		return ErrIndexClosed
	}

	idx.log.Infow("Closing index system")

	idx.mu.Lock()
	defer idx.mu.Unlock()

	// Clear the record pointer map to release all memory associated with
	// the index entries.
	clear(idx.recordPointer)
	idx.recordPointer = nil

	idx.log.Infow("Index system closed successfully")
	return nil
}
