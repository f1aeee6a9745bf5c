package errors

import "fmt"

// StorageError is the error type returned by internal/storage and the
// engine's segment-level reads: opening segment files, decoding the
// manifest, and any I/O that happens below the index. segmentId, offset,
// fileName and path are carried as typed fields (rather than entries in the
// generic details map) because Error() always renders them when present.
type StorageError struct {
	*baseError
	segmentId int
	hasSeg    bool
	offset    int
	hasOffset bool
	fileName  string
	path      string
}

// NewStorageError creates a new storage-specific error.
func NewStorageError(err error, code ErrorCode, msg string) *StorageError {
	return &StorageError{baseError: NewBaseError(err, code, msg)}
}

// WithDetail adds contextual information while preserving the StorageError type.
func (se *StorageError) WithDetail(key string, value any) *StorageError {
	se.baseError.WithDetail(key, value)
	return se
}

// WithSegmentID sets which storage segment was involved in the error.
func (se *StorageError) WithSegmentID(id int) *StorageError {
	se.segmentId = id
	se.hasSeg = true
	return se
}

// WithOffset records the byte position where the error occurred.
func (se *StorageError) WithOffset(offset int) *StorageError {
	se.offset = offset
	se.hasOffset = true
	return se
}

// WithFileName captures which file was being processed when the error occurred.
func (se *StorageError) WithFileName(fileName string) *StorageError {
	se.fileName = fileName
	return se
}

// WithPath captures which path was being processed when the error occurred.
func (se *StorageError) WithPath(path string) *StorageError {
	se.path = path
	return se
}

// Error renders the message together with whichever of segment, offset,
// file name and path were attached, so a log line alone is enough to locate
// the failing segment without a debugger.
func (se *StorageError) Error() string {
	msg := se.baseError.Error()
	if se.path != "" {
		msg = fmt.Sprintf("%s (path=%s)", msg, se.path)
	} else if se.fileName != "" {
		msg = fmt.Sprintf("%s (file=%s)", msg, se.fileName)
	}
	if se.hasSeg {
		msg = fmt.Sprintf("%s (segment=%d)", msg, se.segmentId)
	}
	if se.hasOffset {
		msg = fmt.Sprintf("%s (offset=%d)", msg, se.offset)
	}
	return msg
}
