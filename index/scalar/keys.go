package scalar

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/segindex/index"
	"github.com/hupe1980/segindex/internal/conv"
	"github.com/hupe1980/segindex/schema"
	"github.com/hupe1980/segindex/storage"
)

// keyCodec extracts a column's values and encodes them as index keys.
type keyCodec[T cmp.Ordered] struct {
	values func(*storage.FieldData) []T
	put    func(dst []byte, v T) []byte
	read   func(src []byte) (T, int, error)
}

var intKeys = keyCodec[int64]{
	values: func(fd *storage.FieldData) []int64 { return fd.Ints },
	put: func(dst []byte, v int64) []byte {
		return binary.LittleEndian.AppendUint64(dst, uint64(v))
	},
	read: func(src []byte) (int64, int, error) {
		if len(src) < 8 {
			return 0, 0, errTruncated
		}
		return int64(binary.LittleEndian.Uint64(src)), 8, nil
	},
}

var floatKeys = keyCodec[float64]{
	values: func(fd *storage.FieldData) []float64 { return fd.Floats },
	put: func(dst []byte, v float64) []byte {
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(v))
	},
	read: func(src []byte) (float64, int, error) {
		if len(src) < 8 {
			return 0, 0, errTruncated
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(src)), 8, nil
	},
}

var stringKeys = keyCodec[string]{
	values: func(fd *storage.FieldData) []string { return fd.Strings },
	put: func(dst []byte, v string) []byte {
		dst = binary.AppendUvarint(dst, uint64(len(v)))
		return append(dst, v...)
	},
	read: func(src []byte) (string, int, error) {
		n, w := binary.Uvarint(src)
		if w <= 0 || uint64(len(src)-w) < n {
			return "", 0, errTruncated
		}
		return string(src[w : w+int(n)]), w + int(n), nil
	},
}

var errTruncated = fmt.Errorf("%w: truncated key", index.ErrCorruptArtifact)

func isInt(dt schema.DataType) bool {
	return dt == schema.Int8 || dt == schema.Int16 || dt == schema.Int32 || dt == schema.Int64
}

func isFloat(dt schema.DataType) bool { return dt == schema.Float || dt == schema.Double }

// checkRows rejects columns whose row offsets do not fit a uint32.
func checkRows(n int) error {
	if _, err := conv.IntToUint32(n); err != nil {
		return fmt.Errorf("%w: %d rows exceed the row id range", index.ErrInvalidDataset, n)
	}
	return nil
}

func readU32(src []byte) (uint32, error) {
	if len(src) < 4 {
		return 0, errTruncated
	}
	return binary.LittleEndian.Uint32(src), nil
}
