package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist. It aliases os.ErrNotExist
// so local filesystem errors satisfy it directly.
var ErrNotFound = os.ErrNotExist

// BlobStore stores named immutable blobs.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create opens a blob for streaming writes. The blob becomes visible on Close.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a blob atomically, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names that start with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a stored blob.
type Blob interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
	Size() int64
	Close() error
}

// WritableBlob is a streaming writer for a new blob.
type WritableBlob interface {
	io.WriteCloser
	Sync() error
}

// Mappable is implemented by blobs that can expose their bytes without copying.
type Mappable interface {
	Bytes() ([]byte, error)
}

// ReadAll opens name and returns its full content.
func ReadAll(ctx context.Context, store BlobStore, name string) ([]byte, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if m, ok := b.(Mappable); ok {
		data, err := m.Bytes()
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), data...), nil
	}

	buf := make([]byte, b.Size())
	if len(buf) == 0 {
		return buf, nil
	}
	n, err := b.ReadAt(ctx, buf, 0)
	if err != nil && !(errors.Is(err, io.EOF) && n == len(buf)) {
		return nil, fmt.Errorf("blobstore: read %s: %w", name, err)
	}
	if n != len(buf) {
		return nil, fmt.Errorf("blobstore: read %s: short read %d of %d", name, n, len(buf))
	}
	return buf, nil
}

// Exists reports whether name can be opened.
func Exists(ctx context.Context, store BlobStore, name string) (bool, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, b.Close()
}

// readAtBytes implements Blob.ReadAt over an in-memory slice.
func readAtBytes(data, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("blobstore: negative offset %d", off)
	}
	if off >= int64(len(data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// rangeBytes clamps [off, off+length) to data.
func rangeBytes(data []byte, off, length int64) []byte {
	if off < 0 || off >= int64(len(data)) {
		return nil
	}
	end := off + length
	if end > int64(len(data)) || length < 0 {
		end = int64(len(data))
	}
	return data[off:end]
}
