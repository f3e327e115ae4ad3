package storage

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/segindex/internal/f16"
	"github.com/hupe1980/segindex/schema"
	"github.com/hupe1980/segindex/wire"
)

// FieldData is one typed column. Exactly one value slice is populated,
// selected by Type: Bools for Bool, Ints for Int8..Int64, Floats for Float
// and Double, Strings for String, VarChar and JSON, Vectors (row-major
// little-endian) for every vector type.
type FieldData struct {
	Type schema.DataType
	Dim  int

	Bools   []bool
	Ints    []int64
	Floats  []float64
	Strings []string
	Vectors []byte
}

// NewBools returns a Bool column.
func NewBools(v []bool) *FieldData { return &FieldData{Type: schema.Bool, Bools: v} }

// NewInts returns an integer column of type dt.
func NewInts(dt schema.DataType, v []int64) *FieldData { return &FieldData{Type: dt, Ints: v} }

// NewFloats returns a Float or Double column.
func NewFloats(dt schema.DataType, v []float64) *FieldData { return &FieldData{Type: dt, Floats: v} }

// NewStrings returns a String, VarChar or JSON column.
func NewStrings(dt schema.DataType, v []string) *FieldData { return &FieldData{Type: dt, Strings: v} }

// NewFloatVectors returns a FloatVector column.
func NewFloatVectors(dim int, v []float32) *FieldData {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return &FieldData{Type: schema.FloatVector, Dim: dim, Vectors: out}
}

// NewVectors returns a vector column from encoded rows.
func NewVectors(dt schema.DataType, dim int, raw []byte) *FieldData {
	return &FieldData{Type: dt, Dim: dim, Vectors: raw}
}

func isInt(dt schema.DataType) bool {
	return dt == schema.Int8 || dt == schema.Int16 || dt == schema.Int32 || dt == schema.Int64
}

func isFloat(dt schema.DataType) bool { return dt == schema.Float || dt == schema.Double }

func isText(dt schema.DataType) bool { return dt.IsString() || dt == schema.JSON }

// RowNum returns the number of rows.
func (fd *FieldData) RowNum() int {
	switch {
	case fd.Type == schema.Bool:
		return len(fd.Bools)
	case isInt(fd.Type):
		return len(fd.Ints)
	case isFloat(fd.Type):
		return len(fd.Floats)
	case isText(fd.Type):
		return len(fd.Strings)
	case fd.Type.IsVector():
		n, ok := fd.Type.VectorRowBytes(fd.Dim)
		if !ok || n == 0 {
			return 0
		}
		return len(fd.Vectors) / n
	}
	return 0
}

// Validate checks that the column is consistent with its type.
func (fd *FieldData) Validate() error {
	if fd.Type.IsVector() {
		n, _ := fd.Type.VectorRowBytes(fd.Dim)
		if fd.Dim <= 0 || n == 0 {
			return fmt.Errorf("storage: invalid dim %d for %s", fd.Dim, fd.Type)
		}
		if len(fd.Vectors)%n != 0 {
			return fmt.Errorf("storage: %d vector bytes are not a multiple of row size %d", len(fd.Vectors), n)
		}
		return nil
	}
	if fd.Type == schema.Bool || isInt(fd.Type) || isFloat(fd.Type) || isText(fd.Type) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedType, fd.Type)
}

// Merge appends other's rows.
func (fd *FieldData) Merge(other *FieldData) error {
	if other.Type != fd.Type || other.Dim != fd.Dim {
		return fmt.Errorf("storage: cannot merge %s/%d into %s/%d", other.Type, other.Dim, fd.Type, fd.Dim)
	}
	fd.Bools = append(fd.Bools, other.Bools...)
	fd.Ints = append(fd.Ints, other.Ints...)
	fd.Floats = append(fd.Floats, other.Floats...)
	fd.Strings = append(fd.Strings, other.Strings...)
	fd.Vectors = append(fd.Vectors, other.Vectors...)
	return nil
}

// FillFrom decodes a raw payload of the column's type and appends its rows.
func (fd *FieldData) FillFrom(raw []byte) error {
	other, err := DecodeRaw(fd.Type, fd.Dim, raw)
	if err != nil {
		return err
	}
	return fd.Merge(other)
}

// FloatVectors widens FloatVector or Float16Vector rows to float32.
func (fd *FieldData) FloatVectors() ([]float32, error) {
	switch fd.Type {
	case schema.FloatVector:
		if len(fd.Vectors)%4 != 0 {
			return nil, fmt.Errorf("storage: float vector payload of %d bytes", len(fd.Vectors))
		}
		out := make([]float32, len(fd.Vectors)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(fd.Vectors[4*i:]))
		}
		return out, nil
	case schema.Float16Vector:
		return f16.DecodeBytes(fd.Vectors)
	}
	return nil, fmt.Errorf("%w: %s is not a float vector type", ErrUnsupportedType, fd.Type)
}

// DecodeRaw builds a column from a raw build payload. Bool columns arrive as
// a BoolArray message, text columns as a StringArray message, everything
// else as little-endian fixed-width values.
func DecodeRaw(dt schema.DataType, dim int, raw []byte) (*FieldData, error) {
	switch {
	case dt == schema.Bool:
		v, err := wire.DecodeBoolArray(raw)
		if err != nil {
			return nil, err
		}
		return NewBools(v), nil
	case isText(dt):
		v, err := wire.DecodeStringArray(raw)
		if err != nil {
			return nil, err
		}
		return NewStrings(dt, v), nil
	case isInt(dt):
		w, _ := dt.FixedWidth()
		if len(raw)%w != 0 {
			return nil, fmt.Errorf("storage: %d bytes are not a multiple of %s width %d", len(raw), dt, w)
		}
		out := make([]int64, len(raw)/w)
		for i := range out {
			b := raw[i*w:]
			switch w {
			case 1:
				out[i] = int64(int8(b[0]))
			case 2:
				out[i] = int64(int16(binary.LittleEndian.Uint16(b)))
			case 4:
				out[i] = int64(int32(binary.LittleEndian.Uint32(b)))
			default:
				out[i] = int64(binary.LittleEndian.Uint64(b))
			}
		}
		return NewInts(dt, out), nil
	case isFloat(dt):
		w, _ := dt.FixedWidth()
		if len(raw)%w != 0 {
			return nil, fmt.Errorf("storage: %d bytes are not a multiple of %s width %d", len(raw), dt, w)
		}
		out := make([]float64, len(raw)/w)
		for i := range out {
			if w == 4 {
				out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:])))
			} else {
				out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
			}
		}
		return NewFloats(dt, out), nil
	case dt.IsVector():
		fd := NewVectors(dt, dim, raw)
		if err := fd.Validate(); err != nil {
			return nil, err
		}
		return fd, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, dt)
}

// EncodeRaw is the inverse of DecodeRaw.
func EncodeRaw(fd *FieldData) ([]byte, error) {
	switch {
	case fd.Type == schema.Bool:
		return wire.EncodeBoolArray(fd.Bools), nil
	case isText(fd.Type):
		return wire.EncodeStringArray(fd.Strings), nil
	case isInt(fd.Type):
		w, _ := fd.Type.FixedWidth()
		out := make([]byte, w*len(fd.Ints))
		for i, v := range fd.Ints {
			b := out[i*w:]
			switch w {
			case 1:
				b[0] = byte(int8(v))
			case 2:
				binary.LittleEndian.PutUint16(b, uint16(int16(v)))
			case 4:
				binary.LittleEndian.PutUint32(b, uint32(int32(v)))
			default:
				binary.LittleEndian.PutUint64(b, uint64(v))
			}
		}
		return out, nil
	case isFloat(fd.Type):
		w, _ := fd.Type.FixedWidth()
		out := make([]byte, w*len(fd.Floats))
		for i, v := range fd.Floats {
			if w == 4 {
				binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(float32(v)))
			} else {
				binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(v))
			}
		}
		return out, nil
	case fd.Type.IsVector():
		return fd.Vectors, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, fd.Type)
}
