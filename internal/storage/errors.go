package storage

import "github.com/pkg/errors"

// Error kinds named by spec.md §4.3.
var (
	ErrNotFound   = errors.New("storage: not found")
	ErrCorruption = errors.New("storage: corruption detected")
)

// IOError wraps an underlying I/O failure from the storage engine.
type IOError struct {
	Err error
}

func (e *IOError) Error() string { return "storage: io error: " + e.Err.Error() }
func (e *IOError) Unwrap() error { return e.Err }

// WrapIOError wraps err as an IOError, matching spec.md §4.3/§7's
// "Storage I/O failure" kind, which is fatal to the orchestrator.
func WrapIOError(err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Err: err}
}

// CodecError wraps a decode failure encountered while reading a stored
// value, matching spec.md §4.3's "CodecError" kind.
type CodecError struct {
	Err error
}

func (e *CodecError) Error() string { return "storage: codec error: " + e.Err.Error() }
func (e *CodecError) Unwrap() error { return e.Err }

// WrapCodecError wraps err as a CodecError.
func WrapCodecError(err error) error {
	if err == nil {
		return nil
	}
	return &CodecError{Err: err}
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
