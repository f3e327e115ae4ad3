package storage

import (
	"errors"
	"fmt"
)

// ErrCorrupt is returned when an envelope fails validation.
var ErrCorrupt = errors.New("storage: corrupt file")

// ErrUnsupportedType is returned for field types that have no column encoding.
var ErrUnsupportedType = errors.New("storage: unsupported data type")

// Error describes a failed backend operation.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func opError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Path: path, Err: err}
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}
