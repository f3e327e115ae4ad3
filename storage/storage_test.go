package storage

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/hupe1980/segindex/blobstore"
	"github.com/hupe1980/segindex/buildinfo"
	"github.com/hupe1980/segindex/codec"
	"github.com/hupe1980/segindex/internal/fs"
	"github.com/hupe1980/segindex/internal/hash"
	"github.com/hupe1980/segindex/internal/resource"
	"github.com/hupe1980/segindex/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	assert.Equal(t, "files/index_files/7/1/3/4", GenIndexPathPrefix("files", 7, 1, 3, 4))
	assert.Equal(t, "files/index_files/7", GetIndexPathPrefixWithBuildID("files", 7))
	assert.Equal(t, "files/raw_datas/4/100", GenFieldRawDataPathPrefix("files", 4, 100))
	assert.Equal(t, "files/raw_datas/4", GetSegmentRawDataPathPrefix("files", 4))
	assert.Equal(t, filepath.Join("/tmp", "index_files", "7", "1", "raw_datas", "4", "100", "raw_data"),
		GenLocalRawDataPath("/tmp", 7, 1, 4, 100))
}

func TestChunkManagerBackends(t *testing.T) {
	ctx := context.Background()
	cases := map[string]buildinfo.StorageConfig{
		"local":  {StorageType: buildinfo.StorageLocal, RootPath: t.TempDir()},
		"memory": {StorageType: buildinfo.StorageMemory, BucketName: "chunk-manager-test", RootPath: "files"},
		"badger": {StorageType: buildinfo.StorageBadger, Address: t.TempDir(), RootPath: "files"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			cm, err := NewChunkManager(ctx, cfg)
			require.NoError(t, err)
			defer cm.Close()

			root := cm.RootPath()
			p1 := GenIndexPathPrefix(root, 1, 1, 2, 3) + "/a"
			p2 := GenIndexPathPrefix(root, 1, 1, 2, 3) + "/b"
			require.NoError(t, cm.Write(ctx, p1, []byte("alpha")))
			require.NoError(t, cm.Write(ctx, p2, []byte("beta")))

			data, err := cm.Read(ctx, p1)
			require.NoError(t, err)
			assert.Equal(t, "alpha", string(data))

			ok, err := cm.Exist(ctx, p2)
			require.NoError(t, err)
			assert.True(t, ok)

			size, err := cm.Size(ctx, p2)
			require.NoError(t, err)
			assert.Equal(t, int64(4), size)

			names, err := cm.List(ctx, GetIndexPathPrefixWithBuildID(root, 1))
			require.NoError(t, err)
			assert.Equal(t, []string{p1, p2}, names)

			require.NoError(t, cm.Remove(ctx, p1))
			_, err = cm.Read(ctx, p1)
			assert.ErrorIs(t, err, blobstore.ErrNotFound)
			var serr *Error
			assert.ErrorAs(t, err, &serr)
		})
	}
}

func TestChunkManagerRejectsUnknownType(t *testing.T) {
	_, err := NewChunkManager(context.Background(), buildinfo.StorageConfig{StorageType: "tape"})
	require.Error(t, err)

	_, err = NewChunkManager(context.Background(), buildinfo.StorageConfig{StorageType: buildinfo.StorageLocal})
	require.Error(t, err)
}

func TestFieldDataRaw(t *testing.T) {
	cases := []*FieldData{
		NewBools([]bool{true, false, true}),
		NewInts(schema.Int8, []int64{-1, 2, 127}),
		NewInts(schema.Int16, []int64{-300, 2}),
		NewInts(schema.Int32, []int64{1 << 20, -5}),
		NewInts(schema.Int64, []int64{1 << 40}),
		NewFloats(schema.Double, []float64{1.5, -2.25}),
		NewStrings(schema.VarChar, []string{"a", "", "ccc"}),
		NewFloatVectors(2, []float32{1, 2, 3, 4}),
		NewVectors(schema.BinaryVector, 16, []byte{1, 2, 3, 4}),
	}
	for _, fd := range cases {
		t.Run(fd.Type.String(), func(t *testing.T) {
			raw, err := EncodeRaw(fd)
			require.NoError(t, err)
			got, err := DecodeRaw(fd.Type, fd.Dim, raw)
			require.NoError(t, err)
			assert.Equal(t, fd.RowNum(), got.RowNum())
			assert.Equal(t, fd, got)
		})
	}

	assert.Equal(t, 2, NewFloatVectors(2, []float32{1, 2, 3, 4}).RowNum())
	assert.Equal(t, 2, NewVectors(schema.BinaryVector, 16, []byte{1, 2, 3, 4}).RowNum())

	_, err := DecodeRaw(schema.Int32, 0, []byte{1, 2, 3})
	require.Error(t, err)
	_, err = DecodeRaw(schema.Array, 0, nil)
	require.ErrorIs(t, err, ErrUnsupportedType)
	_, err = DecodeRaw(schema.FloatVector, 3, make([]byte, 8))
	require.Error(t, err)
}

func TestFieldDataMerge(t *testing.T) {
	a := NewInts(schema.Int64, []int64{1, 2})
	require.NoError(t, a.Merge(NewInts(schema.Int64, []int64{3})))
	assert.Equal(t, []int64{1, 2, 3}, a.Ints)
	require.Error(t, a.Merge(NewFloats(schema.Double, []float64{1})))
}

func TestEnvelope(t *testing.T) {
	meta := FieldDataMeta{CollectionID: 1, PartitionID: 2, SegmentID: 3, FieldID: 100}
	vecs := make([]float32, 64*8)
	fd := NewFloatVectors(8, vecs)

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		for _, cd := range []codec.Codec{codec.JSON{}, codec.MsgPack{}} {
			t.Run(c.String()+"/"+cd.Name(), func(t *testing.T) {
				data, err := EncodeInsertData(meta, fd, c, cd)
				require.NoError(t, err)
				desc, got, err := DecodeInsertData(data)
				require.NoError(t, err)
				assert.Equal(t, meta, desc.FieldDataMeta)
				assert.Equal(t, 64, desc.Rows)
				assert.Equal(t, fd.Vectors, got.Vectors)
			})
		}
	}

	t.Run("index file", func(t *testing.T) {
		desc := IndexDescriptor{FieldDataMeta: meta, BuildID: 9, IndexVersion: 1, Key: "index_data"}
		data, err := EncodeIndexFile(desc, []byte("payload"), CompressionZSTD, nil)
		require.NoError(t, err)
		gotDesc, payload, err := DecodeIndexFile(data)
		require.NoError(t, err)
		assert.Equal(t, desc, gotDesc)
		assert.Equal(t, "payload", string(payload))

		_, _, err = DecodeInsertData(data)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("corruption", func(t *testing.T) {
		data, err := EncodeInsertData(meta, NewInts(schema.Int32, []int64{1, 2, 3}), CompressionNone, nil)
		require.NoError(t, err)

		flipped := append([]byte(nil), data...)
		flipped[len(flipped)/2] ^= 0xff
		_, _, err = DecodeInsertData(flipped)
		assert.ErrorIs(t, err, ErrCorrupt)

		_, _, err = DecodeInsertData(data[:10])
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

// withRawSize rewrites the rawSize field of an envelope and reseals it.
func withRawSize(t *testing.T, data []byte, rawSize uint64) []byte {
	t.Helper()
	out := append([]byte(nil), data...)
	pos := 4 + 2 + 3 + int(out[8])
	descLen := int(binary.LittleEndian.Uint32(out[pos:]))
	pos += 4 + descLen
	binary.LittleEndian.PutUint64(out[pos:], rawSize)
	body := out[:len(out)-4]
	binary.LittleEndian.PutUint32(out[len(out)-4:], hash.CRC32C(body))
	return out
}

func TestEnvelopeRejectsInflatedRawSize(t *testing.T) {
	meta := FieldDataMeta{SegmentID: 3, FieldID: 100}
	fd := NewFloatVectors(8, make([]float32, 1024))

	for _, c := range []Compression{CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			data, err := EncodeInsertData(meta, fd, c, nil)
			require.NoError(t, err)
			_, _, err = DecodeInsertData(withRawSize(t, data, uint64(len(fd.Vectors))))
			require.NoError(t, err)

			_, _, err = DecodeInsertData(withRawSize(t, data, 1<<39))
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}

	data, err := EncodeInsertData(meta, NewInts(schema.Int64, []int64{1, 2}), CompressionNone, nil)
	require.NoError(t, err)
	_, _, err = DecodeInsertData(withRawSize(t, data, 17))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestMaxRawSize(t *testing.T) {
	assert.Equal(t, uint64(100), maxRawSize(CompressionNone, 100))
	assert.Equal(t, uint64(100*lz4MaxRatio+rawSizeSlack), maxRawSize(CompressionLZ4, 100))
	assert.Equal(t, uint64(maxRawBytes), maxRawSize(CompressionZSTD, 1<<40))
	assert.Zero(t, maxRawSize(Compression(9), 100))
}

func TestCompressionFallsBackForIncompressible(t *testing.T) {
	data := []byte{0x13, 0x9a, 0x41, 0x07}
	out, applied, err := compress(data, CompressionZSTD)
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, applied)
	assert.Equal(t, data, out)

	c, err := ParseCompression("zstd")
	require.NoError(t, err)
	assert.Equal(t, CompressionZSTD, c)
	_, err = ParseCompression("brotli")
	require.Error(t, err)
}

func newTestContext(t *testing.T) *FileManagerContext {
	t.Helper()
	cm := NewChunkManagerFromStore(blobstore.NewMemoryStore(), "files")
	return &FileManagerContext{
		FieldDataMeta: FieldDataMeta{CollectionID: 1, PartitionID: 2, SegmentID: 3, FieldID: 100},
		IndexMeta:     IndexMeta{SegmentID: 3, FieldID: 100, BuildID: 42, IndexVersion: 1, FieldType: schema.FloatVector, Dim: 4},
		ChunkManager:  cm,
		LocalRoot:     t.TempDir(),
		Resources:     resource.NewController(resource.Config{MaxConcurrentTransfers: 2}),
		Compression:   CompressionLZ4,
	}
}

func writeBinlogs(t *testing.T, fmc *FileManagerContext, parts ...*FieldData) []string {
	t.Helper()
	ctx := context.Background()
	prefix := GenFieldRawDataPathPrefix(fmc.ChunkManager.RootPath(), fmc.FieldDataMeta.SegmentID, fmc.FieldDataMeta.FieldID)
	var files []string
	for i, fd := range parts {
		data, err := EncodeInsertData(fmc.FieldDataMeta, fd, CompressionNone, nil)
		require.NoError(t, err)
		p := prefix + "/" + string(rune('a'+i))
		require.NoError(t, fmc.ChunkManager.Write(ctx, p, data))
		files = append(files, p)
	}
	return files
}

func TestLoadFieldDataPreservesOrder(t *testing.T) {
	fmc := newTestContext(t)
	files := writeBinlogs(t, fmc,
		NewInts(schema.Int64, []int64{1, 2}),
		NewInts(schema.Int64, []int64{3}),
		NewInts(schema.Int64, []int64{4, 5, 6}),
	)
	fd, err := LoadFieldData(context.Background(), fmc, files)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, fd.Ints)

	_, err = LoadFieldData(context.Background(), fmc, []string{"files/missing"})
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestPutIndexData(t *testing.T) {
	ctx := context.Background()
	fmc := newTestContext(t)
	artifacts := []Artifact{
		{Key: "index_data", Data: []byte("data")},
		{Key: "index_meta", Data: []byte("meta")},
	}
	sizes, err := PutIndexData(ctx, fmc, artifacts)
	require.NoError(t, err)
	require.Len(t, sizes, 2)

	paths := make([]string, 0, len(sizes))
	for p, size := range sizes {
		got, err := fmc.ChunkManager.Size(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, size, got)
		paths = append(paths, p)
	}
	sort.Strings(paths)
	assert.Equal(t, "files/index_files/42/1/2/3/index_data", paths[0])

	decoded, err := ReadIndexFiles(ctx, fmc.ChunkManager, paths)
	require.NoError(t, err)
	assert.Equal(t, artifacts, decoded)

	_, err = PutIndexData(ctx, &FileManagerContext{}, artifacts)
	require.Error(t, err)
}

func TestCacheRawDataToDisk(t *testing.T) {
	fmc := newTestContext(t)
	files := writeBinlogs(t, fmc,
		NewFloatVectors(4, []float32{1, 2, 3, 4}),
		NewFloatVectors(4, []float32{5, 6, 7, 8, 9, 10, 11, 12}),
	)
	p, err := CacheRawDataToDisk(context.Background(), fmc, files)
	require.NoError(t, err)
	assert.True(t, LocalFileExists(p))

	cached, err := OpenCachedRawData(p, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cached.Data.RowNum())
	vecs, err := cached.Data.FloatVectors()
	require.NoError(t, err)
	assert.Equal(t, float32(12), vecs[11])
	require.NoError(t, cached.Close())

	require.NoError(t, RemoveLocalData(nil, fmc.LocalIndexPrefix()))
	assert.False(t, LocalFileExists(p))
	require.NoError(t, RemoveLocalData(nil, fmc.LocalIndexPrefix()))
}

func TestOpenCachedRawDataCorrupt(t *testing.T) {
	dir := t.TempDir()
	short := filepath.Join(dir, "short")
	require.NoError(t, os.WriteFile(short, []byte{1, 2, 3}, 0o600))
	_, err := OpenCachedRawData(short, nil)
	assert.ErrorIs(t, err, ErrCorrupt)

	header := make([]byte, rawHeaderSize+4)
	binary.LittleEndian.PutUint32(header[0:], 5)
	binary.LittleEndian.PutUint32(header[4:], 4)
	binary.LittleEndian.PutUint32(header[8:], uint32(schema.FloatVector))
	mismatched := filepath.Join(dir, "mismatched")
	require.NoError(t, os.WriteFile(mismatched, header, 0o600))
	_, err = OpenCachedRawData(mismatched, nil)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestCacheRawDataRejectsScalars(t *testing.T) {
	fmc := newTestContext(t)
	files := writeBinlogs(t, fmc, NewInts(schema.Int64, []int64{1}))
	_, err := CacheRawDataToDisk(context.Background(), fmc, files)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestCacheRawDataWriteFailure(t *testing.T) {
	fmc := newTestContext(t)
	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule("raw_data", fs.Fault{FailAfterBytes: 4})
	fmc.FS = faulty
	files := writeBinlogs(t, fmc, NewFloatVectors(4, []float32{1, 2, 3, 4}))
	_, err := CacheRawDataToDisk(context.Background(), fmc, files)
	assert.ErrorIs(t, err, fs.ErrInjected)
}

func TestFillFrom(t *testing.T) {
	fd := NewBools([]bool{true})
	raw, err := EncodeRaw(NewBools([]bool{false, true}))
	require.NoError(t, err)
	require.NoError(t, fd.FillFrom(raw))
	assert.Equal(t, []bool{true, false, true}, fd.Bools)
}

type recordingSpace struct {
	got []Artifact
}

func (r *recordingSpace) CommitBlobs(_ context.Context, artifacts []Artifact) (int64, error) {
	r.got = append(r.got, artifacts...)
	return 7, nil
}

func TestPutIndexDataToSpace(t *testing.T) {
	sp := &recordingSpace{}
	version, sizes, err := PutIndexDataToSpace(context.Background(), sp, []Artifact{{Key: "a", Data: []byte("xyz")}})
	require.NoError(t, err)
	assert.Equal(t, int64(7), version)
	assert.Equal(t, map[string]int64{"a": 3}, sizes)
	assert.Len(t, sp.got, 1)

	_, _, err = PutIndexDataToSpace(context.Background(), nil, nil)
	require.Error(t, err)
}
