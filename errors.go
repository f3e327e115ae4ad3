package segindex

import (
	"errors"
	"fmt"

	"github.com/hupe1980/segindex/blobstore"
	s3store "github.com/hupe1980/segindex/blobstore/s3"
	"github.com/hupe1980/segindex/buildinfo"
	"github.com/hupe1980/segindex/index"
	"github.com/hupe1980/segindex/space"
	"github.com/hupe1980/segindex/storage"
	"github.com/hupe1980/segindex/wire"
)

// Code classifies the outcome of an entry point.
type Code int

const (
	Success Code = iota
	InvalidArgument
	UnsupportedType
	InvalidHandle
	CorruptArtifact
	StorageFailure
	UnexpectedError
)

func (c Code) String() string {
	switch c {
	case Success:
		return "Success"
	case InvalidArgument:
		return "InvalidArgument"
	case UnsupportedType:
		return "UnsupportedType"
	case InvalidHandle:
		return "InvalidHandle"
	case CorruptArtifact:
		return "CorruptArtifact"
	case StorageFailure:
		return "StorageFailure"
	case UnexpectedError:
		return "UnexpectedError"
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Status is the result of every entry point.
type Status struct {
	Code    Code
	Message string
}

// OK reports whether the call succeeded.
func (s Status) OK() bool { return s.Code == Success }

// Err returns the status as an error, or nil on success.
func (s Status) Err() error {
	if s.OK() {
		return nil
	}
	return &StatusError{Code: s.Code, Message: s.Message}
}

// StatusError is a failed Status used as an error value.
type StatusError struct {
	Code    Code
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

var (
	// ErrInvalidHandle is returned for unknown, released or wrong-kind handles.
	ErrInvalidHandle = errors.New("segindex: invalid handle")

	// ErrPanic wraps a panic recovered at the boundary.
	ErrPanic = errors.New("segindex: panic")
)

func ok() Status { return Status{Code: Success} }

// statusOf maps an error from the lower packages onto a Status.
func statusOf(err error) Status {
	if err == nil {
		return ok()
	}
	return Status{Code: codeOf(err), Message: err.Error()}
}

func codeOf(err error) Code {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}

	switch {
	case errors.Is(err, ErrInvalidHandle):
		return InvalidHandle
	case errors.Is(err, ErrPanic):
		return UnexpectedError

	case errors.Is(err, index.ErrUnsupported),
		errors.Is(err, storage.ErrUnsupportedType):
		return UnsupportedType

	case errors.Is(err, index.ErrCorruptArtifact),
		errors.Is(err, storage.ErrCorrupt),
		errors.Is(err, space.ErrCorrupted):
		return CorruptArtifact

	case errors.Is(err, buildinfo.ErrMissingParam),
		errors.Is(err, buildinfo.ErrInvalidParam),
		errors.Is(err, wire.ErrMalformed),
		errors.Is(err, ErrKeyNotFound),
		errors.Is(err, index.ErrInvalidState),
		errors.Is(err, index.ErrInvalidDataset):
		return InvalidArgument

	case errors.Is(err, space.ErrSchemaMismatch),
		errors.Is(err, space.ErrNotFound),
		errors.Is(err, space.ErrVersionNotFound),
		errors.Is(err, space.ErrConflict),
		errors.Is(err, space.ErrUnknownColumn),
		errors.Is(err, space.ErrBlobNotFound),
		errors.Is(err, s3store.ErrConcurrentModification),
		errors.Is(err, blobstore.ErrNotFound):
		return StorageFailure
	}

	var serr *storage.Error
	if errors.As(err, &serr) {
		return StorageFailure
	}
	return UnexpectedError
}
