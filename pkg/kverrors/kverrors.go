// Package kverrors defines the small, stable error taxonomy that every
// bitforge engine backend (bitcask, bolt) and every external collaborator
// (the CLIs, the TCP server) programs against. pkg/errors carries the rich,
// structured diagnostic context used internally for logging; kverrors is
// the classification layer callers actually branch on.
package kverrors

import (
	"errors"
	"fmt"

	ierrors "github.com/nilotpal/bitforge/pkg/errors"
)

// Kind enumerates the error categories a caller of an Engine can observe.
type Kind int

const (
	// KindIO covers any filesystem or socket failure.
	KindIO Kind = iota
	// KindKeyNotFound is returned by Remove on a key the index doesn't hold.
	KindKeyNotFound
	// KindCodec covers a malformed frame encountered during an in-bounds read
	// (as opposed to a clean end-of-log during replay, which isn't an error).
	KindCodec
	// KindEncoding covers non-UTF-8 bytes where a string was expected.
	KindEncoding
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "IoError"
	case KindKeyNotFound:
		return "KeyNotFound"
	case KindCodec:
		return "CodecError"
	case KindEncoding:
		return "EncodingError"
	default:
		return "UnknownError"
	}
}

// Error is the concrete error type every Engine operation returns.
type Error struct {
	Kind Kind
	Op   string
	Key  string
	err  error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s: key %q: %v", e.Op, e.Kind, e.Key, e.err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.err)
}

func (e *Error) Unwrap() error { return e.err }

// New builds a kverrors.Error of the given kind.
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, err: cause}
}

// WithKey attaches the key involved in the failing operation.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// Is reports whether err is (or wraps) a kverrors.Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsKeyNotFound is shorthand for Is(err, KindKeyNotFound).
func IsKeyNotFound(err error) bool { return Is(err, KindKeyNotFound) }

// FromStorage classifies a pkg/errors.StorageError (or plain error) into the
// kverrors taxonomy, preserving the original as the wrapped cause.
func FromStorage(op string, err error) *Error {
	if err == nil {
		return nil
	}
	if se, ok := ierrors.AsStorageError(err); ok {
		switch se.Code() {
		case ierrors.ErrorCodeSegmentCorrupted, ierrors.ErrorCodeHeaderReadFailure, ierrors.ErrorCodePayloadReadFailure:
			return New(KindCodec, op, err)
		default:
			return New(KindIO, op, err)
		}
	}
	return New(KindIO, op, err)
}

// FromIndex classifies a pkg/errors.IndexError (or plain error).
func FromIndex(op string, err error) *Error {
	if err == nil {
		return nil
	}
	if ie, ok := ierrors.AsIndexError(err); ok {
		if ie.Code() == ierrors.ErrorCodeIndexKeyNotFound {
			return New(KindKeyNotFound, op, err)
		}
		return New(KindCodec, op, err)
	}
	return New(KindIO, op, err)
}
