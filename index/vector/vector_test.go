package vector

import (
	"context"
	"testing"

	"github.com/hupe1980/segindex/blobstore"
	"github.com/hupe1980/segindex/buildinfo"
	"github.com/hupe1980/segindex/distance"
	"github.com/hupe1980/segindex/index"
	"github.com/hupe1980/segindex/internal/kmeans"
	"github.com/hupe1980/segindex/schema"
	"github.com/hupe1980/segindex/storage"
	"github.com/hupe1980/segindex/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func create(t *testing.T, ft schema.DataType, indexType string, m distance.Metric, dim int, cfg buildinfo.Config, opts index.CreateOptions) index.Index {
	t.Helper()
	idx, err := index.Factory{}.Create(index.CreateInfo{FieldType: ft, IndexType: indexType, MetricType: m, Dim: dim}, cfg, opts)
	require.NoError(t, err)
	return idx
}

func roundTrip(t *testing.T, build func() index.Index, data *storage.FieldData) *index.BinarySet {
	t.Helper()
	ctx := context.Background()

	idx := build()
	require.NoError(t, idx.Build(ctx, data))
	first, err := idx.Serialize(ctx)
	require.NoError(t, err)

	loaded := build()
	require.NoError(t, loaded.Load(ctx, first))
	second, err := loaded.Serialize(ctx)
	require.NoError(t, err)
	assert.True(t, first.Equal(second), "serialize after load must be byte-identical")
	return first
}

func TestFlat(t *testing.T) {
	rng := testutil.NewRNG(42)
	for _, ft := range []schema.DataType{schema.FloatVector, schema.Float16Vector} {
		t.Run(ft.String(), func(t *testing.T) {
			var data *storage.FieldData
			if ft == schema.FloatVector {
				data = rng.FloatVectorData(100, 16)
			} else {
				data = rng.Float16VectorData(100, 16)
			}
			build := func() index.Index {
				return create(t, ft, TypeFlat, distance.MetricCosine, 16, buildinfo.Config{}, index.CreateOptions{})
			}
			set := roundTrip(t, build, data)
			assert.Equal(t, []string{flatMetaKey, flatDataKey}, set.Keys())

			idx := build()
			require.NoError(t, idx.Build(context.Background(), data))
			v, ok := idx.AsVector()
			require.True(t, ok)
			assert.Equal(t, 100, v.Count())
			assert.Equal(t, 16, v.Dim())
			assert.Equal(t, distance.MetricCosine, v.MetricType())
		})
	}
}

func TestFlatRejectsWrongDim(t *testing.T) {
	idx := create(t, schema.FloatVector, TypeFlat, distance.MetricL2, 8, buildinfo.Config{}, index.CreateOptions{})
	err := idx.Build(context.Background(), testutil.NewRNG(1).FloatVectorData(10, 4))
	assert.ErrorIs(t, err, index.ErrInvalidDataset)
}

func TestIVFFlat(t *testing.T) {
	rng := testutil.NewRNG(7)
	dim := 8
	data := storage.NewFloatVectors(dim, rng.ClusteredVectors(300, dim, 4, 0.05))
	cfg := buildinfo.Config{NList: 4, MaxIter: 10}
	build := func() index.Index {
		return create(t, schema.FloatVector, TypeIVFFlat, distance.MetricL2, dim, cfg, index.CreateOptions{})
	}
	roundTrip(t, build, data)

	core, err := newIVFFlat(index.CreateInfo{FieldType: schema.FloatVector, IndexType: TypeIVFFlat, MetricType: distance.MetricL2}, cfg)
	require.NoError(t, err)
	require.NoError(t, core.Train(context.Background(), data))
	iv := core.(*IVFFlat)
	assert.Equal(t, 4, iv.NList())

	vecs, err := data.FloatVectors()
	require.NoError(t, err)
	total := 0
	for l := range iv.NList() {
		for _, id := range iv.List(l) {
			vec := vecs[int(id)*dim : (int(id)+1)*dim]
			assert.Equal(t, l, kmeans.Assign(vec, iv.centroids, dim, distance.SquaredL2))
			total++
		}
	}
	assert.Equal(t, 300, total)
}

func TestIVFFlatSmallInputClampsNList(t *testing.T) {
	build := func() index.Index {
		return create(t, schema.Float16Vector, TypeIVFFlat, distance.MetricIP, 4, buildinfo.Config{}, index.CreateOptions{})
	}
	roundTrip(t, build, testutil.NewRNG(3).Float16VectorData(10, 4))
}

func TestIVFFlatOverflowingDistances(t *testing.T) {
	data := storage.NewFloatVectors(2, []float32{1e20, 1e20, -1e20, -1e20, 1e20, -1e20, -1e20, 1e20})
	build := func() index.Index {
		return create(t, schema.FloatVector, TypeIVFFlat, distance.MetricL2, 2, buildinfo.Config{NList: 2}, index.CreateOptions{})
	}
	set := roundTrip(t, build, data)
	assert.Positive(t, set.Len())
}

func TestIVFFlatCorruptLists(t *testing.T) {
	ctx := context.Background()
	build := func() index.Index {
		return create(t, schema.FloatVector, TypeIVFFlat, distance.MetricL2, 4, buildinfo.Config{NList: 2}, index.CreateOptions{})
	}
	idx := build()
	require.NoError(t, idx.Build(ctx, testutil.NewRNG(3).FloatVectorData(20, 4)))
	set, err := idx.Serialize(ctx)
	require.NoError(t, err)

	broken := set.Clone()
	lists, _ := broken.Get(ivfListsKey)
	broken.Append(ivfListsKey, lists[:len(lists)-4])
	assert.ErrorIs(t, build().Load(ctx, broken), index.ErrCorruptArtifact)
}

func TestBinFlat(t *testing.T) {
	data := testutil.NewRNG(9).BinaryVectorData(50, 64)
	build := func() index.Index {
		return create(t, schema.BinaryVector, TypeBinFlat, distance.MetricHamming, 64, buildinfo.Config{}, index.CreateOptions{})
	}
	set := roundTrip(t, build, data)
	assert.Equal(t, []string{binFlatMetaKey, binFlatDataKey}, set.Keys())

	core, err := newBinFlat(index.CreateInfo{FieldType: schema.BinaryVector, IndexType: TypeBinFlat, MetricType: distance.MetricJaccard}, buildinfo.Config{})
	require.NoError(t, err)
	require.NoError(t, core.Train(context.Background(), data))
	bf := core.(*BinFlat)
	assert.Equal(t, float32(0), bf.Distance(3, 3))
}

func TestLoadRejectsMismatchedArtifact(t *testing.T) {
	ctx := context.Background()
	flat := create(t, schema.FloatVector, TypeFlat, distance.MetricL2, 4, buildinfo.Config{}, index.CreateOptions{})
	require.NoError(t, flat.Build(ctx, testutil.NewRNG(1).FloatVectorData(5, 4)))
	set, err := flat.Serialize(ctx)
	require.NoError(t, err)

	ip := create(t, schema.FloatVector, TypeFlat, distance.MetricIP, 4, buildinfo.Config{}, index.CreateOptions{})
	assert.ErrorIs(t, ip.Load(ctx, set), index.ErrCorruptArtifact)

	ivf := create(t, schema.FloatVector, TypeIVFFlat, distance.MetricL2, 4, buildinfo.Config{}, index.CreateOptions{})
	assert.ErrorIs(t, ivf.Load(ctx, set), index.ErrCorruptArtifact)
}

func TestUnsupportedCombinations(t *testing.T) {
	f := index.Factory{}
	_, err := f.Create(index.CreateInfo{FieldType: schema.FloatVector, IndexType: TypeBinFlat, MetricType: distance.MetricHamming}, buildinfo.Config{}, index.CreateOptions{})
	assert.ErrorIs(t, err, index.ErrUnsupported)
	_, err = f.Create(index.CreateInfo{FieldType: schema.BinaryVector, IndexType: TypeFlat, MetricType: distance.MetricL2}, buildinfo.Config{}, index.CreateOptions{})
	assert.ErrorIs(t, err, index.ErrUnsupported)
	_, err = f.Create(index.CreateInfo{FieldType: schema.FloatVector, IndexType: "HNSW", MetricType: distance.MetricL2}, buildinfo.Config{}, index.CreateOptions{})
	assert.ErrorIs(t, err, index.ErrUnsupported)
}

func TestBuildFromFilesUsesLocalCache(t *testing.T) {
	ctx := context.Background()
	fm := &storage.FileManagerContext{
		FieldDataMeta: storage.FieldDataMeta{CollectionID: 1, PartitionID: 2, SegmentID: 3, FieldID: 101},
		IndexMeta:     storage.IndexMeta{SegmentID: 3, FieldID: 101, BuildID: 5, IndexVersion: 1},
		ChunkManager:  storage.NewChunkManagerFromStore(blobstore.NewMemoryStore(), "files"),
		LocalRoot:     t.TempDir(),
	}
	rng := testutil.NewRNG(11)
	var files []string
	for i, part := range []*storage.FieldData{rng.FloatVectorData(30, 8), rng.FloatVectorData(20, 8)} {
		data, err := storage.EncodeInsertData(fm.FieldDataMeta, part, storage.CompressionZSTD, nil)
		require.NoError(t, err)
		p := storage.GenFieldRawDataPathPrefix("files", 3, 101) + "/" + string(rune('0'+i))
		require.NoError(t, fm.ChunkManager.Write(ctx, p, data))
		files = append(files, p)
	}

	idx := create(t, schema.FloatVector, TypeFlat, distance.MetricL2, 8, buildinfo.Config{},
		index.CreateOptions{FileManager: fm, InsertFiles: files})
	require.NoError(t, idx.BuildFromFiles(ctx))
	v, _ := idx.AsVector()
	assert.Equal(t, 50, v.Count())

	cached := storage.GenLocalRawDataPath(fm.LocalRoot, 5, 1, 3, 101)
	assert.True(t, storage.LocalFileExists(cached))
	idx.CleanLocalData(ctx)
	assert.False(t, storage.LocalFileExists(cached))
}
