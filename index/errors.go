package index

import "errors"

var (
	// ErrUnsupported is returned when no registered variant matches the
	// requested field type, index type, metric and engine version.
	ErrUnsupported = errors.New("index: unsupported index")

	// ErrInvalidState is returned for lifecycle violations, e.g. building twice.
	ErrInvalidState = errors.New("index: invalid state")

	// ErrInvalidDataset is returned when build input does not match the index.
	ErrInvalidDataset = errors.New("index: invalid dataset")

	// ErrCorruptArtifact is returned when a binary set is malformed or incomplete.
	ErrCorruptArtifact = errors.New("index: corrupt artifact")
)
