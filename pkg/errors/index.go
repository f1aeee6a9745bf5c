package errors

import "fmt"

// IndexError is the error type the engine returns for a missing key on
// Remove and whenever it detects the in-memory keydir has drifted from what's
// actually on disk (a pointer at a segment that's gone, or at a tombstone).
// key, segmentID, operation and indexSize are rendered by Error() when set,
// so a bare log line carries enough to start a repro.
type IndexError struct {
	*baseError
	key       string
	segmentID uint16
	hasSeg    bool
	operation string
	indexSize int
}

// NewIndexError creates a new index-specific error with the provided context.
func NewIndexError(err error, code ErrorCode, msg string) *IndexError {
	return &IndexError{
		baseError: NewBaseError(err, code, msg),
	}
}

// WithDetail adds contextual information while preserving the IndexError type.
func (ie *IndexError) WithDetail(key string, value any) *IndexError {
	ie.baseError.WithDetail(key, value)
	return ie
}

// WithKey records which key was being processed when the error occurred.
func (ie *IndexError) WithKey(key string) *IndexError {
	ie.key = key
	return ie
}

// WithSegmentID captures which segment was involved in the error.
func (ie *IndexError) WithSegmentID(segmentID uint16) *IndexError {
	ie.segmentID = segmentID
	ie.hasSeg = true
	return ie
}

// WithOperation records what index operation was being performed
// (e.g. "Get", "Remove", "Recovery").
func (ie *IndexError) WithOperation(operation string) *IndexError {
	ie.operation = operation
	return ie
}

// WithIndexSize captures the number of live entries the index held when the
// error occurred, useful context for corruption found during recovery.
func (ie *IndexError) WithIndexSize(size int) *IndexError {
	ie.indexSize = size
	return ie
}

// Error renders the message together with whichever of operation, key,
// segment and index size were attached to it.
func (ie *IndexError) Error() string {
	msg := ie.baseError.Error()
	if ie.operation != "" {
		msg = fmt.Sprintf("%s: %s", ie.operation, msg)
	}
	if ie.key != "" {
		msg = fmt.Sprintf("%s (key=%q)", msg, ie.key)
	}
	if ie.hasSeg {
		msg = fmt.Sprintf("%s (segment=%d)", msg, ie.segmentID)
	}
	if ie.indexSize > 0 {
		msg = fmt.Sprintf("%s (indexSize=%d)", msg, ie.indexSize)
	}
	return msg
}

// NewKeyNotFoundError creates a specialized error for missing keys.
func NewKeyNotFoundError(key string) *IndexError {
	return NewIndexError(nil, ErrorCodeIndexKeyNotFound, "key not found in index").
		WithKey(key).
		WithOperation("Get")
}

// NewIndexCorruptionError creates an error for index corruption scenarios,
// where the keydir points at state the underlying segments no longer have.
func NewIndexCorruptionError(operation string, indexSize int, cause error) *IndexError {
	return NewIndexError(cause, ErrorCodeIndexCorrupted, "index data structure corrupted").
		WithOperation(operation).
		WithIndexSize(indexSize).
		WithDetail("recovery_required", true)
}
