// Package errors implements bitforge's internal diagnostic error hierarchy:
// StorageError, IndexError and ValidationError, each embedding baseError for
// a cause, an ErrorCode and a detail bag. pkg/kverrors classifies these into
// the small public taxonomy callers outside the storage engine branch on;
// this package exists to carry the rich internal context (which segment,
// which key, which field) that a log line needs but a client shouldn't have
// to know about.
package errors

import (
	stdErrors "errors"
	"os"
	"syscall"
)

// AsStorageError extracts a StorageError from an error chain. kverrors.FromStorage
// uses this to classify the error's Code() into the public taxonomy.
func AsStorageError(err error) (*StorageError, bool) {
	var se *StorageError
	if stdErrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// AsIndexError extracts an IndexError from an error chain. kverrors.FromIndex
// uses this to classify the error's Code() into the public taxonomy.
func AsIndexError(err error) (*IndexError, bool) {
	var ie *IndexError
	if stdErrors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// ClassifyDirectoryCreationError inspects the failure from an os.MkdirAll
// call against dataDir and returns a StorageError carrying the ErrorCode
// that best matches the underlying syscall error.
func ClassifyDirectoryCreationError(err error, path string) error {
	if os.IsPermission(err) {
		return NewStorageError(
			err, ErrorCodePermissionDenied,
			"insufficient permissions to create segment directory",
		).WithPath(path).WithDetail("operation", "directory_creation")
	}

	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewStorageError(
					err, ErrorCodeDiskFull,
					"insufficient disk space to create segment directory",
				).WithPath(path).WithDetail("operation", "directory_creation")
			case syscall.EROFS:
				return NewStorageError(
					err, ErrorCodeFilesystemReadonly,
					"cannot create directory on read-only filesystem",
				).WithPath(path).WithDetail("operation", "directory_creation")
			}
		}
	}

	return NewStorageError(
		err, ErrorCodeIO, "failed to create segment directory",
	).WithPath(path).WithDetail("operation", "directory_creation")
}

// ClassifyFileOpenError inspects the failure from an os.OpenFile call
// against a segment file and returns a StorageError carrying the ErrorCode
// that best matches the underlying syscall error.
func ClassifyFileOpenError(err error, filePath, fileName string) error {
	if os.IsPermission(err) {
		return NewStorageError(
			err, ErrorCodePermissionDenied,
			"insufficient permissions to open segment file",
		).WithPath(filePath).WithFileName(fileName).WithDetail("operation", "file_open")
	}

	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewStorageError(
					err, ErrorCodeDiskFull,
					"insufficient disk space to create segment file",
				).WithPath(filePath).WithFileName(fileName).WithDetail("operation", "file_open")
			case syscall.EROFS:
				return NewStorageError(
					err, ErrorCodeFilesystemReadonly,
					"cannot create file on read-only filesystem",
				).WithPath(filePath).WithFileName(fileName).WithDetail("operation", "file_open")
			}
		}
	}

	return NewStorageError(err, ErrorCodeIO, "failed to open segment file").
		WithPath(filePath).
		WithFileName(fileName).
		WithDetail("operation", "file_open").
		WithDetail("flags", []string{"O_CREATE", "O_RDWR", "O_APPEND"})
}
