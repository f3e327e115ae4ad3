package space

import "errors"

var (
	// ErrNotFound is returned when opening a space that has no manifest without a schema.
	ErrNotFound = errors.New("space: not found")

	// ErrSchemaMismatch is returned when an existing space has a different schema.
	ErrSchemaMismatch = errors.New("space: schema mismatch")

	// ErrVersionNotFound is returned when a pinned version does not exist.
	ErrVersionNotFound = errors.New("space: version not found")

	// ErrConflict is returned when CURRENT moved since the space was opened.
	ErrConflict = errors.New("space: concurrent commit")

	// ErrBlobExists is returned by WriteBlob without replace for an existing name.
	ErrBlobExists = errors.New("space: blob already exists")

	// ErrBlobNotFound is returned when a blob is not recorded in the pinned version.
	ErrBlobNotFound = errors.New("space: blob not found")

	// ErrUnknownColumn is returned for columns missing from the schema.
	ErrUnknownColumn = errors.New("space: unknown column")

	// ErrCorrupted is returned when a manifest or fragment fails validation.
	ErrCorrupted = errors.New("space: corrupted file")
)
