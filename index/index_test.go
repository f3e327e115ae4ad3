package index

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/segindex/blobstore"
	"github.com/hupe1980/segindex/buildinfo"
	"github.com/hupe1980/segindex/distance"
	"github.com/hupe1980/segindex/internal/fs"
	"github.com/hupe1980/segindex/schema"
	"github.com/hupe1980/segindex/space"
	"github.com/hupe1980/segindex/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sumCore stores the sum of an int column.
type sumCore struct {
	sum int64
}

func (c *sumCore) Train(_ context.Context, data *storage.FieldData) error {
	for _, v := range data.Ints {
		c.sum += v
	}
	return nil
}

func (c *sumCore) Serialize() (*BinarySet, error) {
	set := NewBinarySet()
	set.Append("sum", []byte{byte(c.sum), byte(c.sum >> 8)})
	set.Append("padding", bytes.Repeat([]byte{7}, 3<<20))
	return set, nil
}

func (c *sumCore) Load(set *BinarySet) error {
	b, ok := set.Get("sum")
	if !ok || len(b) != 2 {
		return ErrCorruptArtifact
	}
	c.sum = int64(b[0]) | int64(b[1])<<8
	return nil
}

type fakeVectorCore struct {
	sumCore
	dim int
}

func (c *fakeVectorCore) Dim() int                { return c.dim }
func (c *fakeVectorCore) Metric() distance.Metric { return distance.MetricL2 }
func (c *fakeVectorCore) Count() int              { return 0 }

func init() {
	RegisterScalar("TEST_SUM", []schema.DataType{schema.Int64}, func(CreateInfo, buildinfo.Config) (Core, error) {
		return &sumCore{}, nil
	})
	RegisterVector("TEST_VEC", []distance.Metric{distance.MetricL2}, []schema.DataType{schema.FloatVector},
		func(info CreateInfo, _ buildinfo.Config) (VectorCore, error) {
			return &fakeVectorCore{dim: info.Dim}, nil
		})
}

func TestBinarySet(t *testing.T) {
	s := NewBinarySet()
	s.Append("a", []byte("1"))
	s.Append("b", []byte("22"))
	s.Append("a", []byte("333"))

	assert.Equal(t, []string{"a", "b"}, s.Keys())
	assert.Equal(t, int64(5), s.Size())
	data, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "333", string(data))
	_, ok = s.Get("missing")
	assert.False(t, ok)

	c := s.Clone()
	assert.True(t, s.Equal(c))
	c.Append("c", nil)
	assert.False(t, s.Equal(c))
}

func TestDisassembleAssemble(t *testing.T) {
	s := NewBinarySet()
	s.Append("small", []byte("abc"))
	s.Append("big", bytes.Repeat([]byte("0123456789"), 10))
	s.Append("tail", []byte("z"))

	sliced := Disassemble(s, 32)
	assert.Equal(t, []string{"small", "big_0", "big_1", "big_2", "big_3", "tail", SliceMetaKey}, sliced.Keys())

	back, err := Assemble(sliced)
	require.NoError(t, err)
	assert.True(t, s.Equal(back))

	assert.Same(t, s, Disassemble(s, 1000))
	assert.Same(t, s, Disassemble(s, 0))

	broken := sliced.Clone()
	broken = withoutKey(broken, "big_2")
	_, err = Assemble(broken)
	assert.ErrorIs(t, err, ErrCorruptArtifact)

	bad := NewBinarySet()
	bad.Append(SliceMetaKey, []byte("{"))
	_, err = Assemble(bad)
	assert.ErrorIs(t, err, ErrCorruptArtifact)
}

func withoutKey(s *BinarySet, key string) *BinarySet {
	out := NewBinarySet()
	for _, b := range s.Blobs() {
		if b.Name != key {
			out.Append(b.Name, b.Data)
		}
	}
	return out
}

func TestNewCreateInfo(t *testing.T) {
	_, err := NewCreateInfo(schema.FloatVector, "", 8, buildinfo.Config{IndexType: "IVF_FLAT"})
	assert.ErrorIs(t, err, buildinfo.ErrMissingParam)

	_, err = NewCreateInfo(schema.Int64, "", 0, buildinfo.Config{})
	assert.ErrorIs(t, err, buildinfo.ErrMissingParam)

	_, err = NewCreateInfo(schema.FloatVector, "", 8, buildinfo.Config{IndexType: "FLAT", MetricType: "MANHATTAN"})
	assert.ErrorIs(t, err, ErrUnsupported)

	info, err := NewCreateInfo(schema.FloatVector, "vec", 0, buildinfo.Config{IndexType: "flat", MetricType: "L2", Dim: 4})
	require.NoError(t, err)
	assert.Equal(t, "FLAT", info.IndexType)
	assert.Equal(t, 4, info.Dim)
	assert.Equal(t, distance.MetricL2, info.MetricType)
}

func TestFactoryResolveNormalizesIndexType(t *testing.T) {
	info, err := Factory{}.Resolve(CreateInfo{FieldType: schema.Int64, IndexType: " test_sum "}, buildinfo.Config{})
	require.NoError(t, err)
	assert.Equal(t, "TEST_SUM", info.IndexType)

	viaConfig, err := NewCreateInfo(schema.Int64, "", 0, buildinfo.Config{IndexType: "Test_Sum"})
	require.NoError(t, err)
	viaConfig, err = Factory{}.Resolve(viaConfig, buildinfo.Config{})
	require.NoError(t, err)
	assert.Equal(t, info.IndexType, viaConfig.IndexType)
}

func TestFactoryCreate(t *testing.T) {
	f := Factory{}

	idx, err := f.Create(CreateInfo{FieldType: schema.Int64, IndexType: "test_sum"}, buildinfo.Config{}, CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "TEST_SUM", idx.IndexType())
	_, ok := idx.AsVector()
	assert.False(t, ok)
	assert.Equal(t, CurrentEngineVersion, idx.(*Base).Info().EngineVersion)

	_, err = f.Create(CreateInfo{FieldType: schema.Int32, IndexType: "TEST_SUM"}, buildinfo.Config{}, CreateOptions{})
	assert.ErrorIs(t, err, ErrUnsupported)

	vinfo := CreateInfo{FieldType: schema.FloatVector, IndexType: "TEST_VEC", MetricType: distance.MetricL2, Dim: 4}
	vidx, err := f.Create(vinfo, buildinfo.Config{}, CreateOptions{})
	require.NoError(t, err)
	v, ok := vidx.AsVector()
	require.True(t, ok)
	assert.Equal(t, 4, v.Dim())
	assert.Equal(t, distance.MetricL2, v.MetricType())

	vinfo.MetricType = distance.MetricIP
	_, err = f.Create(vinfo, buildinfo.Config{}, CreateOptions{})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = f.Create(CreateInfo{FieldType: schema.Int64, IndexType: "TEST_SUM", EngineVersion: 99},
		buildinfo.Config{HasEngineVersion: true}, CreateOptions{})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Factory{EngineVersion: -1}.Create(CreateInfo{FieldType: schema.Int64, IndexType: "TEST_SUM"},
		buildinfo.Config{}, CreateOptions{})
	assert.ErrorIs(t, err, ErrUnsupported)

	assert.Contains(t, Registered(), "TEST_SUM")
}

func newSumIndex(t *testing.T, cfg buildinfo.Config, opts CreateOptions) *Base {
	t.Helper()
	idx, err := Factory{}.Create(CreateInfo{FieldType: schema.Int64, IndexType: "TEST_SUM"}, cfg, opts)
	require.NoError(t, err)
	return idx.(*Base)
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	idx := newSumIndex(t, buildinfo.Config{SliceSizeMiB: 1}, CreateOptions{})

	_, err := idx.Serialize(ctx)
	assert.ErrorIs(t, err, ErrInvalidState)

	require.ErrorIs(t, idx.Build(ctx, storage.NewInts(schema.Int32, []int64{1})), ErrInvalidDataset)
	assert.Equal(t, StateFailed, idx.State())

	idx = newSumIndex(t, buildinfo.Config{SliceSizeMiB: 1}, CreateOptions{})
	require.NoError(t, idx.Build(ctx, storage.NewInts(schema.Int64, []int64{100, 200, 300})))
	assert.Equal(t, StateBuilt, idx.State())
	assert.ErrorIs(t, idx.Build(ctx, storage.NewInts(schema.Int64, []int64{1})), ErrInvalidState)

	set, err := idx.Serialize(ctx)
	require.NoError(t, err)
	assert.True(t, set.Contains(SliceMetaKey))

	loaded := newSumIndex(t, buildinfo.Config{SliceSizeMiB: 1}, CreateOptions{})
	require.NoError(t, loaded.Load(ctx, set))
	again, err := loaded.Serialize(ctx)
	require.NoError(t, err)
	assert.True(t, set.Equal(again))
	assert.ErrorIs(t, loaded.Load(ctx, set), ErrInvalidState)

	empty := newSumIndex(t, buildinfo.Config{}, CreateOptions{})
	assert.ErrorIs(t, empty.Load(ctx, NewBinarySet()), ErrCorruptArtifact)

	_, err = idx.Upload(ctx)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = idx.UploadV2(ctx)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, newSumIndex(t, buildinfo.Config{}, CreateOptions{}).BuildV2(ctx), ErrInvalidDataset)
	assert.ErrorIs(t, newSumIndex(t, buildinfo.Config{}, CreateOptions{}).BuildFromFiles(ctx), ErrInvalidDataset)
}

func newFileManager(t *testing.T) *storage.FileManagerContext {
	t.Helper()
	return &storage.FileManagerContext{
		FieldDataMeta: storage.FieldDataMeta{CollectionID: 1, PartitionID: 2, SegmentID: 3, FieldID: 100},
		IndexMeta:     storage.IndexMeta{SegmentID: 3, FieldID: 100, BuildID: 9, IndexVersion: 1},
		ChunkManager:  storage.NewChunkManagerFromStore(blobstore.NewMemoryStore(), "files"),
		LocalRoot:     t.TempDir(),
	}
}

func TestBuildFromFilesAndUpload(t *testing.T) {
	ctx := context.Background()
	fm := newFileManager(t)
	data, err := storage.EncodeInsertData(fm.FieldDataMeta, storage.NewInts(schema.Int64, []int64{5, 6}), storage.CompressionNone, nil)
	require.NoError(t, err)
	binlog := storage.GenFieldRawDataPathPrefix("files", 3, 100) + "/1"
	require.NoError(t, fm.ChunkManager.Write(ctx, binlog, data))

	idx := newSumIndex(t, buildinfo.Config{}, CreateOptions{FileManager: fm, InsertFiles: []string{binlog}})
	require.NoError(t, idx.BuildFromFiles(ctx))
	assert.Equal(t, int64(11), idx.core.(*sumCore).sum)

	first, err := idx.Upload(ctx)
	require.NoError(t, err)
	files := idx.UploadedFiles()
	require.Len(t, files, 2)
	assert.Contains(t, files, "files/index_files/9/1/2/3/sum")

	second, err := idx.Upload(ctx)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
	assert.Equal(t, files, idx.UploadedFiles())
	assert.Equal(t, StateUploaded, idx.State())
}

func TestBuildV2AndUploadV2(t *testing.T) {
	ctx := context.Background()
	sch := schema.New(schema.Field{Name: "age", Type: schema.Int64})

	dataSpace, err := space.Open(ctx, blobstore.NewMemoryStore(), space.Options{Schema: sch})
	require.NoError(t, err)
	_, err = dataSpace.Write(ctx, map[string]*storage.FieldData{"age": storage.NewInts(schema.Int64, []int64{1, 2, 3})})
	require.NoError(t, err)

	indexSpace, err := space.Open(ctx, blobstore.NewMemoryStore(), space.Options{Schema: dataSpace.Schema()})
	require.NoError(t, err)

	fm := newFileManager(t)
	fm.IndexSpace = indexSpace
	idx, err := Factory{}.Create(CreateInfo{FieldType: schema.Int64, FieldName: "age", IndexType: "TEST_SUM"},
		buildinfo.Config{}, CreateOptions{FileManager: fm, DataSpace: dataSpace})
	require.NoError(t, err)
	require.NoError(t, idx.BuildV2(ctx))

	set, err := idx.UploadV2(ctx)
	require.NoError(t, err)
	stored, err := indexSpace.ReadBlob(ctx, "sum")
	require.NoError(t, err)
	want, _ := set.Get("sum")
	assert.Equal(t, want, stored)
	assert.Equal(t, int64(1), indexSpace.Version())
}

func TestCleanLocalDataNeverFails(t *testing.T) {
	fm := newFileManager(t)
	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule("index_files", fs.Fault{FailAfterBytes: -1, FailOnRemove: true, FailOnStat: true, Err: errors.New("disk on fire")})
	fm.FS = faulty

	idx := newSumIndex(t, buildinfo.Config{}, CreateOptions{FileManager: fm})
	idx.CleanLocalData(context.Background())
	newSumIndex(t, buildinfo.Config{}, CreateOptions{}).CleanLocalData(context.Background())
}
