package scalar

import (
	"cmp"
	"context"
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/hupe1980/segindex/buildinfo"
	"github.com/hupe1980/segindex/index"
	"github.com/hupe1980/segindex/storage"
)

const (
	sortDataKey   = "index_data"
	sortLengthKey = "index_length"
	sortMetaKey   = "index_meta"
)

type entry[T cmp.Ordered] struct {
	value T
	row   uint32
}

// Sort keeps (value, row) pairs ordered by value, ties by row.
type Sort[T cmp.Ordered] struct {
	info    index.CreateInfo
	keys    keyCodec[T]
	entries []entry[T]
}

func newSort(info index.CreateInfo, _ buildinfo.Config) (index.Core, error) {
	switch ft := info.FieldType; {
	case isInt(ft):
		return &Sort[int64]{info: info, keys: intKeys}, nil
	case isFloat(ft):
		return &Sort[float64]{info: info, keys: floatKeys}, nil
	case ft.IsString():
		return &Sort[string]{info: info, keys: stringKeys}, nil
	}
	return nil, fmt.Errorf("%w: %s on %s", index.ErrUnsupported, info.IndexType, info.FieldType)
}

// Count returns the number of indexed rows.
func (s *Sort[T]) Count() int { return len(s.entries) }

// Lookup returns the rows holding v in ascending order.
func (s *Sort[T]) Lookup(v T) []uint32 {
	lo, _ := slices.BinarySearchFunc(s.entries, v, func(e entry[T], t T) int { return cmp.Compare(e.value, t) })
	var rows []uint32
	for i := lo; i < len(s.entries) && cmp.Compare(s.entries[i].value, v) == 0; i++ {
		rows = append(rows, s.entries[i].row)
	}
	return rows
}

// Range returns the rows with lo <= value <= hi in value order.
func (s *Sort[T]) Range(lo, hi T) []uint32 {
	start, _ := slices.BinarySearchFunc(s.entries, lo, func(e entry[T], t T) int { return cmp.Compare(e.value, t) })
	var rows []uint32
	for i := start; i < len(s.entries) && cmp.Compare(s.entries[i].value, hi) <= 0; i++ {
		rows = append(rows, s.entries[i].row)
	}
	return rows
}

func (s *Sort[T]) Train(_ context.Context, data *storage.FieldData) error {
	values := s.keys.values(data)
	if err := checkRows(len(values)); err != nil {
		return err
	}
	entries := make([]entry[T], len(values))
	var row uint32
	for i, v := range values {
		entries[i] = entry[T]{value: v, row: row}
		row++
	}
	slices.SortStableFunc(entries, func(a, b entry[T]) int { return cmp.Compare(a.value, b.value) })
	s.entries = entries
	return nil
}

func (s *Sort[T]) Serialize() (*index.BinarySet, error) {
	m, err := newMeta(s.info, len(s.entries), 0).encode()
	if err != nil {
		return nil, err
	}
	var data []byte
	for _, e := range s.entries {
		data = s.keys.put(data, e.value)
		data = binary.LittleEndian.AppendUint32(data, e.row)
	}
	set := index.NewBinarySet()
	set.Append(sortDataKey, data)
	set.Append(sortLengthKey, binary.LittleEndian.AppendUint64(nil, uint64(len(s.entries))))
	set.Append(sortMetaKey, m)
	return set, nil
}

func (s *Sort[T]) Load(set *index.BinarySet) error {
	m, err := decodeMeta(set, sortMetaKey, s.info)
	if err != nil {
		return err
	}
	length, err := blob(set, sortLengthKey)
	if err != nil {
		return err
	}
	if len(length) != 8 || binary.LittleEndian.Uint64(length) != uint64(m.Count) {
		return fmt.Errorf("%w: %s does not match count %d", index.ErrCorruptArtifact, sortLengthKey, m.Count)
	}
	data, err := blob(set, sortDataKey)
	if err != nil {
		return err
	}

	entries := make([]entry[T], 0, m.Count)
	for len(data) > 0 {
		v, n, err := s.keys.read(data)
		if err != nil {
			return err
		}
		row, err := readU32(data[n:])
		if err != nil {
			return err
		}
		data = data[n+4:]
		if k := len(entries); k > 0 && cmp.Compare(entries[k-1].value, v) > 0 {
			return fmt.Errorf("%w: %s is not sorted at entry %d", index.ErrCorruptArtifact, sortDataKey, k)
		}
		if int64(row) >= int64(m.Count) {
			return fmt.Errorf("%w: row %d out of range", index.ErrCorruptArtifact, row)
		}
		entries = append(entries, entry[T]{value: v, row: row})
	}
	if len(entries) != m.Count {
		return fmt.Errorf("%w: %s holds %d entries, expected %d", index.ErrCorruptArtifact, sortDataKey, len(entries), m.Count)
	}
	s.entries = entries
	return nil
}
