package scalar

import (
	"cmp"
	"context"
	"encoding/binary"
	"fmt"
	"maps"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bits-and-blooms/bitset"
	"github.com/hupe1980/segindex/buildinfo"
	"github.com/hupe1980/segindex/index"
	"github.com/hupe1980/segindex/schema"
	"github.com/hupe1980/segindex/storage"
)

const (
	bitmapDataKey = "bitmap_data"
	bitmapMetaKey = "bitmap_meta"
)

func newBitmap(info index.CreateInfo, _ buildinfo.Config) (index.Core, error) {
	switch ft := info.FieldType; {
	case ft == schema.Bool:
		return &BoolBitmap{info: info}, nil
	case isInt(ft):
		return &Bitmap[int64]{info: info, keys: intKeys}, nil
	case ft.IsString():
		return &Bitmap[string]{info: info, keys: stringKeys}, nil
	}
	return nil, fmt.Errorf("%w: %s on %s", index.ErrUnsupported, info.IndexType, info.FieldType)
}

// Bitmap keeps one posting list per distinct value.
type Bitmap[T cmp.Ordered] struct {
	info     index.CreateInfo
	keys     keyCodec[T]
	count    int
	postings map[T]*roaring.Bitmap
}

// Count returns the number of indexed rows.
func (b *Bitmap[T]) Count() int { return b.count }

// Cardinality returns the number of distinct values.
func (b *Bitmap[T]) Cardinality() int { return len(b.postings) }

// Lookup returns a copy of the rows holding v.
func (b *Bitmap[T]) Lookup(v T) *roaring.Bitmap {
	if bm, ok := b.postings[v]; ok {
		return bm.Clone()
	}
	return roaring.New()
}

// In returns the union of the rows holding any of values.
func (b *Bitmap[T]) In(values ...T) *roaring.Bitmap {
	lists := make([]*roaring.Bitmap, 0, len(values))
	for _, v := range values {
		if bm, ok := b.postings[v]; ok {
			lists = append(lists, bm)
		}
	}
	return roaring.FastOr(lists...)
}

func (b *Bitmap[T]) Train(_ context.Context, data *storage.FieldData) error {
	values := b.keys.values(data)
	if err := checkRows(len(values)); err != nil {
		return err
	}
	postings := make(map[T]*roaring.Bitmap)
	var row uint32
	for _, v := range values {
		bm, ok := postings[v]
		if !ok {
			bm = roaring.New()
			postings[v] = bm
		}
		bm.Add(row)
		row++
	}
	for _, bm := range postings {
		bm.RunOptimize()
	}
	b.count, b.postings = len(values), postings
	return nil
}

// Serialize writes the posting lists in ascending value order, each as
// key, uvarint length and the portable roaring encoding.
func (b *Bitmap[T]) Serialize() (*index.BinarySet, error) {
	m, err := newMeta(b.info, b.count, len(b.postings)).encode()
	if err != nil {
		return nil, err
	}
	var data []byte
	for _, v := range slices.Sorted(maps.Keys(b.postings)) {
		raw, err := b.postings[v].ToBytes()
		if err != nil {
			return nil, fmt.Errorf("scalar: encode posting list: %w", err)
		}
		data = b.keys.put(data, v)
		data = binary.AppendUvarint(data, uint64(len(raw)))
		data = append(data, raw...)
	}
	set := index.NewBinarySet()
	set.Append(bitmapDataKey, data)
	set.Append(bitmapMetaKey, m)
	return set, nil
}

func (b *Bitmap[T]) Load(set *index.BinarySet) error {
	m, err := decodeMeta(set, bitmapMetaKey, b.info)
	if err != nil {
		return err
	}
	data, err := blob(set, bitmapDataKey)
	if err != nil {
		return err
	}

	var (
		postings = make(map[T]*roaring.Bitmap, m.Cardinality)
		prev     T
		rows     uint64
	)
	for len(data) > 0 {
		v, n, err := b.keys.read(data)
		if err != nil {
			return err
		}
		if len(postings) > 0 && cmp.Compare(prev, v) >= 0 {
			return fmt.Errorf("%w: %s keys out of order", index.ErrCorruptArtifact, bitmapDataKey)
		}
		data = data[n:]
		size, w := binary.Uvarint(data)
		if w <= 0 || uint64(len(data)-w) < size {
			return errTruncated
		}
		bm := roaring.New()
		if err := bm.UnmarshalBinary(data[w : w+int(size)]); err != nil {
			return fmt.Errorf("%w: posting list: %v", index.ErrCorruptArtifact, err)
		}
		data = data[w+int(size):]
		if bm.GetCardinality() > 0 && int64(bm.Maximum()) >= int64(m.Count) {
			return fmt.Errorf("%w: row %d out of range", index.ErrCorruptArtifact, bm.Maximum())
		}
		rows += bm.GetCardinality()
		postings[v] = bm
		prev = v
	}
	if len(postings) != m.Cardinality || rows != uint64(m.Count) {
		return fmt.Errorf("%w: %d values over %d rows, expected %d over %d",
			index.ErrCorruptArtifact, len(postings), rows, m.Cardinality, m.Count)
	}
	b.count, b.postings = m.Count, postings
	return nil
}

// BoolBitmap keeps a dense bitset of the rows holding true.
type BoolBitmap struct {
	info index.CreateInfo
	set  *bitset.BitSet
}

// Count returns the number of indexed rows.
func (b *BoolBitmap) Count() int {
	if b.set == nil {
		return 0
	}
	return int(b.set.Len())
}

// Lookup returns a copy of the rows holding v.
func (b *BoolBitmap) Lookup(v bool) *bitset.BitSet {
	if b.set == nil {
		return bitset.New(0)
	}
	if v {
		return b.set.Clone()
	}
	return b.set.Complement()
}

func (b *BoolBitmap) Train(_ context.Context, data *storage.FieldData) error {
	if err := checkRows(len(data.Bools)); err != nil {
		return err
	}
	set := bitset.New(uint(len(data.Bools)))
	for i, v := range data.Bools {
		if v {
			set.Set(uint(i))
		}
	}
	b.set = set
	return nil
}

func (b *BoolBitmap) Serialize() (*index.BinarySet, error) {
	m, err := newMeta(b.info, b.Count(), 2).encode()
	if err != nil {
		return nil, err
	}
	data, err := b.set.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("scalar: encode bitset: %w", err)
	}
	set := index.NewBinarySet()
	set.Append(bitmapDataKey, data)
	set.Append(bitmapMetaKey, m)
	return set, nil
}

func (b *BoolBitmap) Load(set *index.BinarySet) error {
	m, err := decodeMeta(set, bitmapMetaKey, b.info)
	if err != nil {
		return err
	}
	data, err := blob(set, bitmapDataKey)
	if err != nil {
		return err
	}
	bs := new(bitset.BitSet)
	if err := bs.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("%w: bitset: %v", index.ErrCorruptArtifact, err)
	}
	if int(bs.Len()) != m.Count {
		return fmt.Errorf("%w: bitset holds %d rows, expected %d", index.ErrCorruptArtifact, bs.Len(), m.Count)
	}
	b.set = bs
	return nil
}
