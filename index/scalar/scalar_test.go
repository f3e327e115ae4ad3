package scalar

import (
	"context"
	"math"
	"testing"

	"github.com/hupe1980/segindex/buildinfo"
	"github.com/hupe1980/segindex/index"
	"github.com/hupe1980/segindex/schema"
	"github.com/hupe1980/segindex/storage"
	"github.com/hupe1980/segindex/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func create(t *testing.T, ft schema.DataType, indexType string) index.Index {
	t.Helper()
	idx, err := index.Factory{}.Create(index.CreateInfo{FieldType: ft, IndexType: indexType}, buildinfo.Config{}, index.CreateOptions{})
	require.NoError(t, err)
	return idx
}

func roundTrip(t *testing.T, ft schema.DataType, indexType string, data *storage.FieldData) *index.BinarySet {
	t.Helper()
	ctx := context.Background()

	idx := create(t, ft, indexType)
	require.NoError(t, idx.Build(ctx, data))
	first, err := idx.Serialize(ctx)
	require.NoError(t, err)

	loaded := create(t, ft, indexType)
	require.NoError(t, loaded.Load(ctx, first))
	second, err := loaded.Serialize(ctx)
	require.NoError(t, err)
	assert.True(t, first.Equal(second), "serialize after load must be byte-identical")
	return first
}

func newCore(t *testing.T, ctor index.ScalarConstructor, ft schema.DataType, indexType string) index.Core {
	t.Helper()
	core, err := ctor(index.CreateInfo{FieldType: ft, IndexType: indexType, EngineVersion: index.CurrentEngineVersion}, buildinfo.Config{})
	require.NoError(t, err)
	return core
}

func trained(t *testing.T, ctor index.ScalarConstructor, ft schema.DataType, indexType string, data *storage.FieldData) index.Core {
	t.Helper()
	core := newCore(t, ctor, ft, indexType)
	require.NoError(t, core.Train(context.Background(), data))
	return core
}

func TestSortInt32(t *testing.T) {
	data := testutil.NewRNG(7).IntColumn(schema.Int32, 1000, 50)

	set := roundTrip(t, schema.Int32, TypeSort, data)
	assert.Equal(t, []string{sortDataKey, sortLengthKey, sortMetaKey}, set.Keys())

	s := trained(t, newSort, schema.Int32, TypeSort, data).(*Sort[int64])
	assert.Equal(t, 1000, s.Count())
	for _, v := range []int64{0, 17, 49} {
		var want []uint32
		for i, x := range data.Ints {
			if x == v {
				want = append(want, uint32(i))
			}
		}
		assert.Equal(t, want, s.Lookup(v), "value %d", v)
	}
	assert.Empty(t, s.Lookup(1000))
	assert.Len(t, s.Range(0, 49), 1000)
}

func TestSortLoadPreservesLookups(t *testing.T) {
	data := testutil.NewRNG(3).Int32Column(1000)
	s := trained(t, newSort, schema.Int32, TypeSort, data).(*Sort[int64])
	set, err := s.Serialize()
	require.NoError(t, err)

	loaded := newCore(t, newSort, schema.Int32, TypeSort).(*Sort[int64])
	require.NoError(t, loaded.Load(set))
	for _, v := range data.Ints[:20] {
		assert.Equal(t, s.Lookup(v), loaded.Lookup(v))
	}
}

func TestSortDoubleAndString(t *testing.T) {
	rng := testutil.NewRNG(11)
	roundTrip(t, schema.Double, TypeSort, rng.DoubleColumn(300))
	roundTrip(t, schema.VarChar, TypeSort, rng.StringColumn(300, 20))

	s := trained(t, newSort, schema.Float, TypeSort, storage.NewFloats(schema.Float, []float64{2.5, -1, 2.5, 0})).(*Sort[float64])
	assert.Equal(t, []uint32{0, 2}, s.Lookup(2.5))
	assert.Equal(t, []uint32{1, 3}, s.Range(-1, 0))

	str := trained(t, newSort, schema.String, TypeSort, storage.NewStrings(schema.String, []string{"b", "a", "", "b"})).(*Sort[string])
	assert.Equal(t, []uint32{0, 3}, str.Lookup("b"))
	assert.Equal(t, []uint32{2}, str.Lookup(""))
}

func TestSortCorruptArtifact(t *testing.T) {
	data := storage.NewInts(schema.Int64, []int64{5, 3, 9})
	s := trained(t, newSort, schema.Int64, TypeSort, data)
	set, err := s.Serialize()
	require.NoError(t, err)

	fresh := func() index.Core { return newCore(t, newSort, schema.Int64, TypeSort) }

	raw, _ := set.Get(sortDataKey)

	truncated := set.Clone()
	truncated.Append(sortDataKey, raw[:len(raw)-2])
	assert.ErrorIs(t, fresh().Load(truncated), index.ErrCorruptArtifact)

	// Swap the first two entries.
	swapped := set.Clone()
	b := append([]byte(nil), raw[12:24]...)
	b = append(b, raw[:12]...)
	swapped.Append(sortDataKey, append(b, raw[24:]...))
	assert.ErrorIs(t, fresh().Load(swapped), index.ErrCorruptArtifact)

	badLength := set.Clone()
	badLength.Append(sortLengthKey, []byte{1})
	assert.ErrorIs(t, fresh().Load(badLength), index.ErrCorruptArtifact)

	noMeta := index.NewBinarySet()
	noMeta.Append(sortDataKey, raw)
	assert.ErrorIs(t, fresh().Load(noMeta), index.ErrCorruptArtifact)
}

func TestSortRejectsForeignArtifact(t *testing.T) {
	set := roundTrip(t, schema.Int64, TypeSort, storage.NewInts(schema.Int64, []int64{1, 2}))
	err := create(t, schema.Int32, TypeSort).Load(context.Background(), set)
	assert.ErrorIs(t, err, index.ErrCorruptArtifact)
}

func TestBitmapInt(t *testing.T) {
	data := testutil.NewRNG(5).IntColumn(schema.Int16, 500, 8)
	set := roundTrip(t, schema.Int16, TypeBitmap, data)
	assert.Equal(t, []string{bitmapDataKey, bitmapMetaKey}, set.Keys())

	b := trained(t, newBitmap, schema.Int16, TypeBitmap, data).(*Bitmap[int64])
	assert.Equal(t, 500, b.Count())
	assert.LessOrEqual(t, b.Cardinality(), 8)

	var want []uint32
	for i, v := range data.Ints {
		if v == 3 {
			want = append(want, uint32(i))
		}
	}
	assert.Equal(t, want, b.Lookup(3).ToArray())
	assert.True(t, b.Lookup(99).IsEmpty())
	assert.Equal(t, uint64(500), b.In(0, 1, 2, 3, 4, 5, 6, 7).GetCardinality())
}

func TestBitmapString(t *testing.T) {
	data := storage.NewStrings(schema.VarChar, []string{"red", "blue", "red", "green"})
	roundTrip(t, schema.VarChar, TypeBitmap, data)

	b := trained(t, newBitmap, schema.VarChar, TypeBitmap, data).(*Bitmap[string])
	assert.Equal(t, []uint32{0, 2}, b.Lookup("red").ToArray())
	assert.Equal(t, 3, b.Cardinality())
}

func TestBitmapBool(t *testing.T) {
	data := testutil.NewRNG(9).BoolColumn(200, 0.3)
	roundTrip(t, schema.Bool, TypeBitmap, data)

	b := trained(t, newBitmap, schema.Bool, TypeBitmap, data).(*BoolBitmap)
	assert.Equal(t, 200, b.Count())
	trues, falses := b.Lookup(true), b.Lookup(false)
	assert.Equal(t, uint(200), trues.Count()+falses.Count())
	for i, v := range data.Bools {
		assert.Equal(t, v, trues.Test(uint(i)))
		assert.Equal(t, !v, falses.Test(uint(i)))
	}
}

func TestBitmapCorruptArtifact(t *testing.T) {
	data := storage.NewInts(schema.Int32, []int64{1, 2, 1})
	set, err := trained(t, newBitmap, schema.Int32, TypeBitmap, data).Serialize()
	require.NoError(t, err)
	raw, _ := set.Get(bitmapDataKey)

	fresh := func() index.Core { return newCore(t, newBitmap, schema.Int32, TypeBitmap) }

	truncated := set.Clone()
	truncated.Append(bitmapDataKey, raw[:len(raw)-3])
	assert.ErrorIs(t, fresh().Load(truncated), index.ErrCorruptArtifact)

	dropped := set.Clone()
	dropped.Append(bitmapDataKey, nil)
	assert.ErrorIs(t, fresh().Load(dropped), index.ErrCorruptArtifact)
}

func TestUnsupportedCombinations(t *testing.T) {
	for _, tc := range []struct {
		ft        schema.DataType
		indexType string
	}{
		{schema.Bool, TypeSort},
		{schema.JSON, TypeSort},
		{schema.Double, TypeBitmap},
		{schema.Int32, "INVERTED"},
	} {
		_, err := index.Factory{}.Create(index.CreateInfo{FieldType: tc.ft, IndexType: tc.indexType}, buildinfo.Config{}, index.CreateOptions{})
		assert.ErrorIs(t, err, index.ErrUnsupported, "%s on %s", tc.indexType, tc.ft)
	}
}

func TestBuildRejectsWrongType(t *testing.T) {
	idx := create(t, schema.Int32, TypeSort)
	err := idx.Build(context.Background(), storage.NewStrings(schema.VarChar, []string{"x"}))
	assert.ErrorIs(t, err, index.ErrInvalidDataset)
}

func TestCheckRows(t *testing.T) {
	require.NoError(t, checkRows(0))
	require.NoError(t, checkRows(math.MaxUint32))
	assert.ErrorIs(t, checkRows(math.MaxUint32+1), index.ErrInvalidDataset)
	assert.ErrorIs(t, checkRows(-1), index.ErrInvalidDataset)
}

func TestRowIDsFollowInputOrder(t *testing.T) {
	data := storage.NewInts(schema.Int64, []int64{7, 3, 7, 1, 3, 7})

	s := trained(t, newSort, schema.Int64, TypeSort, data).(*Sort[int64])
	assert.Equal(t, []uint32{0, 2, 5}, s.Lookup(7))

	b := trained(t, newBitmap, schema.Int64, TypeBitmap, data).(*Bitmap[int64])
	assert.Equal(t, []uint32{1, 4}, b.Lookup(3).ToArray())
}
