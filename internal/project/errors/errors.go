// Package errors defines the error taxonomy shared by the project layer.
//
// File-level failures wrap a sentinel in a PathError so callers can test
// the category with errors.Is while messages keep the path that failed.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a path that is not present on disk or in the
	// buffer registry, depending on the operation.
	ErrNotFound = errors.New("not found")

	// ErrNotOpen reports an operation on a path with no open buffer.
	ErrNotOpen = errors.New("buffer not open")

	// ErrAlreadyOpen reports opening a path that already has a buffer.
	ErrAlreadyOpen = errors.New("buffer already open")

	// ErrBinaryFile reports content that cannot be edited as text. The
	// buffer still opens, read-only and raw; edits are what fail.
	ErrBinaryFile = errors.New("binary file")

	// ErrEncoding reports bytes that cannot be decoded under the
	// detected or forced encoding.
	ErrEncoding = errors.New("encoding failure")

	// ErrDirty guards destructive operations on unsaved buffers. The
	// caller retries with the force flag after the user confirms.
	ErrDirty = errors.New("unsaved changes")

	// ErrExternallyModified reports that the file changed on disk since
	// it was loaded or last saved.
	ErrExternallyModified = errors.New("file changed on disk")

	// ErrTooLarge reports a file over the open size limit.
	ErrTooLarge = errors.New("file too large")
)

// PathError ties a failure to the operation and path that produced it.
type PathError struct {
	Op   string
	Path string
	Err  error
}

// NewPathError builds a PathError.
func NewPathError(op, path string, err error) *PathError {
	return &PathError{Op: op, Path: path, Err: err}
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }
