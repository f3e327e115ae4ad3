package segindex

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/segindex/index"
)

// ErrKeyNotFound is returned when a binary set has no blob under a key.
var ErrKeyNotFound = errors.New("segindex: binary set key not found")

// NewBinarySet returns an empty binary set, typically filled with
// AppendIndexBinary and passed to LoadIndexFromBinarySet.
func (b *Builder) NewBinarySet() (BinarySetHandle, Status) {
	var h BinarySetHandle
	st := b.guard(context.Background(), "NewBinarySet", func() error {
		h = BinarySetHandle(b.handles.put(kindBinarySet, index.NewBinarySet()))
		return nil
	})
	return h, st
}

// DeleteBinarySet releases a binary set.
func (b *Builder) DeleteBinarySet(h BinarySetHandle) Status {
	return b.guard(context.Background(), "DeleteBinarySet", func() error {
		_, err := b.handles.remove(kindBinarySet, uint64(h))
		return err
	})
}

func (b *Builder) withBinarySet(op string, h BinarySetHandle, fn func(*index.BinarySet) error) Status {
	return b.guard(context.Background(), op, func() error {
		set, err := lookup[*index.BinarySet](b.handles, kindBinarySet, uint64(h))
		if err != nil {
			return err
		}
		return fn(set)
	})
}

// AppendIndexBinary stores a copy of data under key, replacing any blob
// with the same key.
func (b *Builder) AppendIndexBinary(h BinarySetHandle, key string, data []byte) Status {
	return b.withBinarySet("AppendIndexBinary", h, func(set *index.BinarySet) error {
		if key == "" {
			return fmt.Errorf("%w: empty key", index.ErrInvalidDataset)
		}
		set.Append(key, bytes.Clone(data))
		return nil
	})
}

// GetBinarySetKeys returns the blob keys in insertion order.
func (b *Builder) GetBinarySetKeys(h BinarySetHandle) ([]string, Status) {
	var keys []string
	st := b.withBinarySet("GetBinarySetKeys", h, func(set *index.BinarySet) error {
		keys = set.Keys()
		return nil
	})
	return keys, st
}

// GetBinarySetSize returns the number of blobs.
func (b *Builder) GetBinarySetSize(h BinarySetHandle) (int, Status) {
	var n int
	st := b.withBinarySet("GetBinarySetSize", h, func(set *index.BinarySet) error {
		n = set.Len()
		return nil
	})
	return n, st
}

// GetBinarySetValueSize returns the byte length of the blob under key.
func (b *Builder) GetBinarySetValueSize(h BinarySetHandle, key string) (int64, Status) {
	var n int64
	st := b.withBinarySet("GetBinarySetValueSize", h, func(set *index.BinarySet) error {
		data, ok := set.Get(key)
		if !ok {
			return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
		}
		n = int64(len(data))
		return nil
	})
	return n, st
}

// GetBinarySetValue returns a copy of the blob under key.
func (b *Builder) GetBinarySetValue(h BinarySetHandle, key string) ([]byte, Status) {
	var out []byte
	st := b.withBinarySet("GetBinarySetValue", h, func(set *index.BinarySet) error {
		data, ok := set.Get(key)
		if !ok {
			return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
		}
		out = bytes.Clone(data)
		return nil
	})
	return out, st
}
