// Package engine provides bitforge's core log-structured storage engine.
//
// The engine owns three subsystems and is the only thing that touches all
// of them together: the index (in-memory key -> offset map), storage (the
// active segment file plus the manifest naming it), and the record codec
// used to frame entries on disk. It orchestrates opening/recovery, the
// three mutating/reading operations, and the compaction procedure that
// rewrites the active segment once it crosses the configured size
// threshold.
//
// The engine is single-writer: every mutating call and compaction itself
// run under one mutex, matching spec.md's concurrency model of a
// synchronous, single-threaded engine instance with no internal scheduler.
package engine

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/nilotpal/bitforge/internal/index"
	"github.com/nilotpal/bitforge/internal/metrics"
	"github.com/nilotpal/bitforge/internal/record"
	"github.com/nilotpal/bitforge/internal/storage"
	ierrors "github.com/nilotpal/bitforge/pkg/errors"
	"github.com/nilotpal/bitforge/pkg/kverrors"
	"github.com/nilotpal/bitforge/pkg/options"
	"github.com/nilotpal/bitforge/pkg/seginfo"
)

// ErrEngineClosed is returned when attempting to perform operations on a closed engine.
var ErrEngineClosed = errors.New("operation failed: cannot access closed engine")

// Engine is bitforge's log-structured engine — the "kvs" backend selected
// by --engine kvs. It satisfies pkg/kv.Engine.
type Engine struct {
	options *options.Options
	log     *zap.SugaredLogger
	clock   clock.Clock
	metrics *metrics.Recorder

	mu            sync.Mutex
	closed        atomic.Bool
	index         *index.Index
	storage       *storage.Storage
	lastFrameSize int
}

// Config holds all the parameters needed to initialize a new Engine instance.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
	Clock   clock.Clock
	Metrics *metrics.Recorder
}

// New opens (or initializes) a store at config.Options.DataDir and replays
// its active segment to rebuild the index, per spec.md §4.2's open/recovery
// procedure.
func New(ctx context.Context, config *Config) (*Engine, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, ierrors.NewValidationError(
			nil, ierrors.ErrorCodeInvalidInput, "Engine configuration is required",
		).WithField("config").WithRule("required")
	}

	if err := config.Options.Validate(); err != nil {
		return nil, err
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.New()
	}

	strg, err := storage.New(ctx, &storage.Config{Options: config.Options, Logger: config.Logger})
	if err != nil {
		return nil, err
	}

	if err := cleanupOrphanSegments(config.Options.DataDir, strg.ActiveSegmentID(), config.Logger); err != nil {
		strg.Close()
		return nil, err
	}

	idx, err := index.New(ctx, &index.Config{DataDir: config.Options.DataDir, Logger: config.Logger})
	if err != nil {
		strg.Close()
		return nil, err
	}

	e := &Engine{
		options: config.Options,
		log:     config.Logger,
		clock:   clk,
		metrics: config.Metrics,
		index:   idx,
		storage: strg,
	}

	if err := e.replay(); err != nil {
		strg.Close()
		idx.Close()
		return nil, err
	}

	e.metrics.SetActiveSegment(strg.ActiveSegmentID(), strg.Size())
	e.reportLiveStats()
	e.log.Infow("Engine opened", "activeSegmentID", strg.ActiveSegmentID(), "liveKeys", idx.Len())

	return e, nil
}

// cleanupOrphanSegments removes any log_{N} file other than active left
// behind by a crash mid-compaction. compact writes the manifest before it
// deletes the old segment, so a stray file here is either the partly
// written new segment (crash before the manifest write) or the old,
// already-rewritten one (crash between the manifest write and the
// removal); neither is a segment recovery still needs.
func cleanupOrphanSegments(dataDir string, active uint32, log *zap.SugaredLogger) error {
	orphans, err := seginfo.OrphanSegmentIDs(dataDir, active)
	if err != nil {
		return ierrors.NewStorageError(err, ierrors.ErrorCodeIO, "Failed to scan for orphaned segment files").WithPath(dataDir)
	}

	for _, id := range orphans {
		path := seginfo.SegmentPath(dataDir, id)

		var reclaimedBytes int64
		if info, err := seginfo.GetFileInfo(path); err == nil {
			reclaimedBytes = info.Size()
		}

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return ierrors.NewStorageError(err, ierrors.ErrorCodeIO, "Failed to remove orphaned segment file").
				WithPath(path).WithSegmentID(int(id))
		}
		log.Infow("Removed orphaned segment left by a crash mid-compaction", "segmentID", id, "reclaimedBytes", reclaimedBytes)
	}
	return nil
}

// reportLiveStats sums the on-disk size of every live record via the
// index's full-scan iterator and publishes it alongside the live key count,
// giving an operator a sense of how much of the active segment is
// reclaimable garbage without waiting for a compaction to happen.
func (e *Engine) reportLiveStats() {
	var liveBytes int64
	var liveKeys int
	e.index.Range(func(_ string, ptr *index.RecordPointer) bool {
		liveKeys++
		liveBytes += int64(ptr.EntrySize)
		return true
	})
	e.metrics.SetLiveStats(liveKeys, liveBytes)
}

// replay decodes the active segment from offset 0, applying the index
// update rule to each record in file order. A decode failure — whether a
// short read or a checksum mismatch — terminates replay cleanly: the log
// may have been truncated by a crash mid-append (spec.md §7).
func (e *Engine) replay() error {
	ra := e.storage.ReaderAt()
	segmentID := e.storage.ActiveSegmentID()

	var offset int64
	for {
		rec, n, err := record.DecodeAt(ra, offset)
		if err != nil {
			break
		}

		switch rec.Tag {
		case record.Put:
			if err := e.index.Put(rec.Key, &index.RecordPointer{
				Key:       rec.Key,
				Offset:    offset,
				EntrySize: uint32(n),
				SegmentID: segmentID,
				Timestamp: rec.Timestamp,
			}); err != nil {
				return err
			}
		case record.Tombstone:
			if _, err := e.index.Delete(rec.Key); err != nil {
				return err
			}
		}

		offset += int64(n)
	}

	return nil
}

// Set records that key now maps to value, durable once this call returns.
func (e *Engine) Set(key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return kverrors.New(kverrors.KindIO, "Set", ErrEngineClosed).WithKey(key)
	}

	rec := record.Record{Key: key, Value: value, Tag: record.Put, Timestamp: e.clock.Now().UnixNano()}
	if err := e.appendAndIndex(rec); err != nil {
		return kverrors.FromStorage("Set", err).WithKey(key)
	}

	e.metrics.ObserveSet(int(e.lastFrameSize))

	if err := e.maybeCompact(); err != nil {
		return kverrors.FromStorage("Set", err).WithKey(key)
	}

	return nil
}

// Get returns the current value for key. found is false when key has no
// live mapping — that is not itself an error per spec.md §4.1.
func (e *Engine) Get(key string) (value string, found bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return "", false, kverrors.New(kverrors.KindIO, "Get", ErrEngineClosed).WithKey(key)
	}

	ptr, ok := e.index.Get(key)
	e.metrics.ObserveGet(ok)
	if !ok {
		return "", false, nil
	}

	if ptr.SegmentID != e.storage.ActiveSegmentID() {
		cause := errors.New("index points at a segment that is not active")
		ce := ierrors.NewIndexCorruptionError("Get", e.index.Len(), cause).WithKey(key)
		return "", false, kverrors.FromIndex("Get", ce).WithKey(key)
	}

	rec, _, derr := record.DecodeAt(e.storage.ReaderAt(), ptr.Offset)
	if derr != nil {
		se := ierrors.NewStorageError(derr, ierrors.ErrorCodeSegmentCorrupted, "Failed to decode record at index offset").
			WithSegmentID(int(ptr.SegmentID)).WithOffset(int(ptr.Offset))
		return "", false, kverrors.FromStorage("Get", se).WithKey(key)
	}

	if rec.Tag != record.Put {
		cause := errors.New("index entry resolved to a tombstone record")
		ce := ierrors.NewIndexCorruptionError("Get", e.index.Len(), cause).WithKey(key)
		return "", false, kverrors.FromIndex("Get", ce).WithKey(key)
	}

	return rec.Value, true, nil
}

// Remove deletes key's mapping. It is an error to remove a key that is not
// currently mapped — no record is written in that case.
func (e *Engine) Remove(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return kverrors.New(kverrors.KindIO, "Remove", ErrEngineClosed).WithKey(key)
	}

	if _, ok := e.index.Get(key); !ok {
		e.metrics.ObserveRemove(false, 0)
		nf := ierrors.NewKeyNotFoundError(key)
		return kverrors.FromIndex("Remove", nf).WithKey(key)
	}

	rec := record.Record{Key: key, Tag: record.Tombstone, Timestamp: e.clock.Now().UnixNano()}
	if err := e.appendAndIndex(rec); err != nil {
		return kverrors.FromStorage("Remove", err).WithKey(key)
	}

	e.metrics.ObserveRemove(true, int(e.lastFrameSize))

	if err := e.maybeCompact(); err != nil {
		return kverrors.FromStorage("Remove", err).WithKey(key)
	}

	return nil
}

// appendAndIndex encodes rec, appends it to the active segment, and
// applies the index update rule. On success e.lastFrameSize holds the
// encoded frame's length, for the caller's metrics.
func (e *Engine) appendAndIndex(rec record.Record) error {
	frame, err := record.Encode(rec)
	if err != nil {
		return ierrors.NewStorageError(err, ierrors.ErrorCodeIO, "Failed to encode record").WithDetail("key", rec.Key)
	}

	offset, err := e.storage.Append(frame)
	if err != nil {
		return err
	}
	e.lastFrameSize = len(frame)

	switch rec.Tag {
	case record.Put:
		if err := e.index.Put(rec.Key, &index.RecordPointer{
			Key:       rec.Key,
			Offset:    offset,
			EntrySize: uint32(len(frame)),
			SegmentID: e.storage.ActiveSegmentID(),
			Timestamp: rec.Timestamp,
		}); err != nil {
			return err
		}
	case record.Tombstone:
		if _, err := e.index.Delete(rec.Key); err != nil {
			return err
		}
	}

	e.metrics.SetActiveSegment(e.storage.ActiveSegmentID(), e.storage.Size())
	return nil
}

// maybeCompact triggers compaction when the active segment has reached the
// configured size threshold. Called after every append, under e.mu.
func (e *Engine) maybeCompact() error {
	if uint64(e.storage.Size()) < e.storage.Threshold() {
		return nil
	}
	return e.compact()
}

// compact rewrites every live record into a fresh segment and retires the
// old one, per spec.md §4.2's six-step procedure. It must be called with
// e.mu held.
//
// Read-then-rotate-then-write ordering matters: the old segment's read
// handle is only valid until storage.Rotate closes it, so every live
// record is decoded from the old segment *before* rotating, then
// re-encoded into the new one afterward.
func (e *Engine) compact() error {
	start := e.clock.Now()

	oldID := e.storage.ActiveSegmentID()
	oldReaderAt := e.storage.ReaderAt()
	snapshot := e.index.Snapshot()

	type liveEntry struct {
		key string
		rec record.Record
	}
	entries := make([]liveEntry, 0, len(snapshot))

	for key, ptr := range snapshot {
		rec, _, err := record.DecodeAt(oldReaderAt, ptr.Offset)
		if err != nil {
			return ierrors.NewStorageError(err, ierrors.ErrorCodeSegmentCorrupted, "Failed to decode record during compaction").
				WithSegmentID(int(oldID)).WithOffset(int(ptr.Offset)).WithDetail("key", key)
		}
		if rec.Tag != record.Put {
			return ierrors.NewStorageError(nil, ierrors.ErrorCodeSegmentCorrupted, "Compaction encountered a tombstone in the index").
				WithSegmentID(int(oldID)).WithDetail("key", key)
		}
		entries = append(entries, liveEntry{key: key, rec: rec})
	}

	newID := oldID + 1
	if err := e.storage.Rotate(newID); err != nil {
		return err
	}

	newIndex, err := index.New(context.Background(), &index.Config{DataDir: e.options.DataDir, Logger: e.log})
	if err != nil {
		return err
	}

	for _, le := range entries {
		frame, err := record.Encode(le.rec)
		if err != nil {
			return ierrors.NewStorageError(err, ierrors.ErrorCodeIO, "Failed to encode record during compaction").WithDetail("key", le.key)
		}

		offset, err := e.storage.Append(frame)
		if err != nil {
			return err
		}

		if err := newIndex.Put(le.key, &index.RecordPointer{
			Key:       le.key,
			Offset:    offset,
			EntrySize: uint32(len(frame)),
			SegmentID: newID,
			Timestamp: le.rec.Timestamp,
		}); err != nil {
			return err
		}
	}

	// Update the manifest before deleting the old segment (spec.md §9's
	// resolved open question): a crash here leaves current pointing at
	// newID with newID already fully written, never at a missing segment.
	if err := storage.WriteManifest(e.options.DataDir, newID); err != nil {
		return err
	}

	if err := e.storage.RemoveSegment(oldID); err != nil {
		return err
	}

	oldIndex := e.index
	e.index = newIndex
	if err := oldIndex.Close(); err != nil {
		e.log.Warnw("Failed to close superseded index after compaction", "error", err)
	}

	e.metrics.ObserveCompaction(e.clock.Now().Sub(start).Seconds())
	e.metrics.SetActiveSegment(newID, e.storage.Size())
	e.reportLiveStats()
	e.log.Infow("Compaction complete", "oldSegmentID", oldID, "newSegmentID", newID, "liveKeys", len(entries))

	return nil
}

// Close persists the manifest and releases the engine's resources.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var errs error
	if err := storage.WriteManifest(e.options.DataDir, e.storage.ActiveSegmentID()); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := e.index.Close(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := e.storage.Close(); err != nil {
		errs = multierr.Append(errs, err)
	}

	return errs
}
