// Package storage manages the on-disk segment files and manifest for one
// bitforge store directory.
//
// A store has exactly one active segment at any moment (spec.md §3): a
// file named log_{N} that receives every append and serves every read.
// Storage keeps two independent file handles open on that same file — one
// opened for append, one opened read-only — so that a read's file position
// is never perturbed by a concurrent append and vice versa, per the
// concurrency model's requirement that read and append cursors not alias.
//
// Storage also owns the manifest (current): the 4-byte file naming which
// segment id is active. New reads it (or creates it with id 0 if absent).
// Rotate leaves it alone: during compaction the engine rewrites it with
// WriteManifest after the new segment is in place but before RemoveSegment
// deletes the old one, per the resolved ordering in spec.md §9.
package storage

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nilotpal/bitforge/pkg/errors"
	"github.com/nilotpal/bitforge/pkg/options"
	"github.com/nilotpal/bitforge/pkg/seginfo"
)

var (
	ErrSegmentClosed = stdErrors.New("operation failed: cannot access closed segment")
)

// New opens dataDir's store directory: reads or creates the manifest, then
// opens the named active segment for append and for read.
func New(ctx context.Context, config *Config) (*Storage, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, fmt.Errorf("invalid configuration")
	}

	dataDir := config.Options.DataDir
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, errors.ClassifyDirectoryCreationError(err, dataDir)
	}

	config.Logger.Infow("Initializing storage system", "dataDir", dataDir)

	activeID, _, err := readManifest(dataDir)
	if err != nil {
		return nil, err
	}

	s := &Storage{dataDir: dataDir, options: config.Options, log: config.Logger}
	if err := s.openSegment(activeID); err != nil {
		return nil, err
	}

	config.Logger.Infow(
		"Storage system initialized successfully",
		"activeSegmentID", s.activeSegmentID,
		"segmentSize", s.size,
	)

	return s, nil
}

// openSegment opens (creating if absent) log_{id} for both append and
// independent read access, and records its current size.
func (s *Storage) openSegment(id uint32) error {
	path := seginfo.SegmentPath(s.dataDir, id)

	appendFile, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		if se, ok := errors.AsStorageError(errors.ClassifyFileOpenError(err, path, filepath.Base(path))); ok {
			return se.WithSegmentID(int(id))
		}
		return err
	}

	readFile, err := os.OpenFile(path, os.O_RDONLY, 0644)
	if err != nil {
		appendFile.Close()
		if se, ok := errors.AsStorageError(errors.ClassifyFileOpenError(err, path, filepath.Base(path))); ok {
			return se.WithSegmentID(int(id)).WithDetail("handle", "read")
		}
		return err
	}

	info, err := appendFile.Stat()
	if err != nil {
		appendFile.Close()
		readFile.Close()
		return errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to stat segment file",
		).WithSegmentID(int(id)).WithPath(path)
	}

	s.appendFile = appendFile
	s.readFile = readFile
	s.activeSegmentID = id
	s.size = info.Size()

	return nil
}

// ActiveSegmentID returns the id of the segment currently receiving appends.
func (s *Storage) ActiveSegmentID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeSegmentID
}

// Size returns the active segment's current size in bytes.
func (s *Storage) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Threshold returns the configured compaction size threshold in bytes.
func (s *Storage) Threshold() uint64 {
	return s.options.SegmentOptions.Size
}

// Append writes frame to the end of the active segment and returns the
// byte offset it was written at (the frame's start offset — what the
// index stores). It flushes to the kernel immediately: os.File.Write has
// no userspace buffer to hold back, matching the "flush after every
// append" requirement without forcing an fsync.
func (s *Storage) Append(frame []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return 0, ErrSegmentClosed
	}

	offset := s.size

	n, err := s.appendFile.Write(frame)
	if err != nil {
		return 0, errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to append frame to segment",
		).WithSegmentID(int(s.activeSegmentID)).WithOffset(int(offset))
	}

	s.size += int64(n)
	return offset, nil
}

// ReaderAt exposes the active segment's independent read handle for
// positioned reads (record.DecodeAt) that never move a shared cursor.
func (s *Storage) ReaderAt() io.ReaderAt {
	return s.readFile
}

// Rotate creates a new active segment with id newID, replacing the current
// append/read handles. It does not touch the manifest or delete the old
// segment — the caller (engine, during compaction) controls that ordering
// explicitly so a crash mid-rotation leaves at most an orphan file, never
// a manifest pointing at a missing segment.
func (s *Storage) Rotate(newID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrSegmentClosed
	}

	oldAppend, oldRead := s.appendFile, s.readFile

	if err := s.openSegment(newID); err != nil {
		s.appendFile, s.readFile = oldAppend, oldRead
		return err
	}

	if err := oldAppend.Close(); err != nil {
		s.log.Warnw("Failed to close previous segment append handle", "error", err)
	}
	if err := oldRead.Close(); err != nil {
		s.log.Warnw("Failed to close previous segment read handle", "error", err)
	}

	return nil
}

// RemoveSegment deletes log_{id} from disk. Called after the manifest has
// been rewritten to point elsewhere.
func (s *Storage) RemoveSegment(id uint32) error {
	path := seginfo.SegmentPath(s.dataDir, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.NewStorageError(
			err, errors.ErrorCodeIO, "Failed to remove old segment file",
		).WithSegmentID(int(id)).WithPath(path)
	}
	return nil
}

// ReadManifest exposes the manifest id recorded on disk, for recovery
// logic that needs to compare it against what's actually present.
func ReadManifest(dataDir string) (uint32, error) {
	id, _, err := readManifest(dataDir)
	return id, err
}

// WriteManifest rewrites the manifest to name id as the active segment.
func WriteManifest(dataDir string, id uint32) error {
	return writeManifest(dataDir, id)
}

// Close releases the storage's open file handles. Idempotent failures
// return ErrSegmentClosed.
func (s *Storage) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrSegmentClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var closeErr error
	if err := s.appendFile.Close(); err != nil {
		closeErr = err
	}
	if err := s.readFile.Close(); err != nil && closeErr == nil {
		closeErr = err
	}

	if closeErr != nil {
		return errors.NewStorageError(
			closeErr, errors.ErrorCodeIO, "Failed to close segment file handles",
		).WithSegmentID(int(s.activeSegmentID))
	}

	return nil
}
