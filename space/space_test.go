package space

import (
	"context"
	"testing"

	"github.com/hupe1980/segindex/blobstore"
	"github.com/hupe1980/segindex/schema"
	"github.com/hupe1980/segindex/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *schema.Schema {
	return schema.New(
		schema.Field{Name: "id", Type: schema.Int64},
		schema.Field{Name: "vec", Type: schema.FloatVector, Dim: 2},
	)
}

func TestOpenCreatesAndValidatesSchema(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	_, err := Open(ctx, store, Options{})
	require.ErrorIs(t, err, ErrNotFound)

	sp, err := Open(ctx, store, Options{Schema: testSchema()})
	require.NoError(t, err)
	assert.Equal(t, int64(0), sp.Version())

	again, err := Open(ctx, store, Options{})
	require.NoError(t, err)
	assert.True(t, again.Schema().Equal(testSchema()))

	_, err = Open(ctx, store, Options{Schema: schema.New(schema.Field{Name: "id", Type: schema.Int32})})
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestWriteAndRead(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	sp, err := Open(ctx, store, Options{Schema: testSchema()})
	require.NoError(t, err)

	v1, err := sp.Write(ctx, map[string]*storage.FieldData{
		"id":  storage.NewInts(schema.Int64, []int64{1, 2}),
		"vec": storage.NewFloatVectors(2, []float32{1, 1, 2, 2}),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)

	v2, err := sp.Write(ctx, map[string]*storage.FieldData{
		"id":  storage.NewInts(schema.Int64, []int64{3}),
		"vec": storage.NewFloatVectors(2, []float32{3, 3}),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2)

	ids, err := sp.Read(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids.Ints)

	pinned, err := Open(ctx, store, Options{Version: 1})
	require.NoError(t, err)
	ids, err = pinned.Read(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids.Ints)

	_, err = pinned.Write(ctx, map[string]*storage.FieldData{"id": storage.NewInts(schema.Int64, []int64{9})})
	require.ErrorIs(t, err, ErrConflict)

	_, err = Open(ctx, store, Options{Version: 42})
	require.ErrorIs(t, err, ErrVersionNotFound)

	_, err = sp.Write(ctx, map[string]*storage.FieldData{"other": storage.NewInts(schema.Int64, []int64{1})})
	require.ErrorIs(t, err, ErrUnknownColumn)
	_, err = sp.Write(ctx, map[string]*storage.FieldData{"id": storage.NewInts(schema.Int32, []int64{1})})
	require.ErrorIs(t, err, ErrSchemaMismatch)
	_, err = sp.Write(ctx, map[string]*storage.FieldData{
		"id":  storage.NewInts(schema.Int64, []int64{1, 2}),
		"vec": storage.NewFloatVectors(2, []float32{1, 1}),
	})
	require.Error(t, err)

	versions, err := Versions(ctx, store)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, int64(3), versions[2].Rows("id"))
}

func TestBlobs(t *testing.T) {
	ctx := context.Background()
	sp, err := Open(ctx, blobstore.NewMemoryStore(), Options{Schema: testSchema()})
	require.NoError(t, err)

	_, err = sp.WriteBlob(ctx, "index_data", []byte("one"), false)
	require.NoError(t, err)
	_, err = sp.WriteBlob(ctx, "index_data", []byte("two"), false)
	require.ErrorIs(t, err, ErrBlobExists)

	v, err := sp.CommitBlobs(ctx, []storage.Artifact{
		{Key: "index_data", Data: []byte("three")},
		{Key: "index_meta", Data: []byte("meta")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	assert.Equal(t, []string{"index_data", "index_meta"}, sp.Manifest().BlobNames())

	data, err := sp.ReadBlob(ctx, "index_data")
	require.NoError(t, err)
	assert.Equal(t, "three", string(data))

	e, err := sp.StatBlob("index_meta")
	require.NoError(t, err)
	assert.Equal(t, int64(4), e.Size)

	_, err = sp.ReadBlob(ctx, "missing")
	require.ErrorIs(t, err, ErrBlobNotFound)
}

func TestCorruptFragment(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	sp, err := Open(ctx, store, Options{Schema: testSchema()})
	require.NoError(t, err)
	_, err = sp.Write(ctx, map[string]*storage.FieldData{
		"id":  storage.NewInts(schema.Int64, []int64{1}),
		"vec": storage.NewFloatVectors(2, []float32{1, 1}),
	})
	require.NoError(t, err)

	frag := sp.Manifest().Columns["id"][0]
	data, err := blobstore.ReadAll(ctx, store, frag.Path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, store.Put(ctx, frag.Path, data))

	_, err = sp.Read(ctx, "id")
	require.ErrorIs(t, err, ErrCorrupted)
}

func TestCorruptManifest(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	_, err := Open(ctx, store, Options{Schema: testSchema()})
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, manifestName(0), []byte("garbage-garbage-garbage")))

	_, err = Open(ctx, store, Options{})
	require.ErrorIs(t, err, ErrCorrupted)
}

func TestResolveStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := ResolveStore(nil, "file://"+dir)
	require.NoError(t, err)
	_, err = Open(ctx, store, Options{Schema: testSchema()})
	require.NoError(t, err)
	reopened, err := ResolveStore(nil, "file://"+dir)
	require.NoError(t, err)
	_, err = Open(ctx, reopened, Options{})
	require.NoError(t, err)

	mem, err := ResolveStore(nil, "memory://resolve-test/spaces/a")
	require.NoError(t, err)
	require.NoError(t, mem.Put(ctx, "x", []byte("1")))
	ok, err := blobstore.Exists(ctx, blobstore.SharedMemoryStore("resolve-test"), "spaces/a/x")
	require.NoError(t, err)
	assert.True(t, ok)

	cm := storage.NewChunkManagerFromStore(blobstore.NewMemoryStore(), "files")
	rel, err := ResolveStore(cm, "files/spaces/b")
	require.NoError(t, err)
	require.NoError(t, rel.Put(ctx, "y", []byte("1")))
	ok, err = blobstore.Exists(ctx, cm.Store(), "spaces/b/y")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = ResolveStore(nil, "relative")
	require.Error(t, err)
	_, err = ResolveStore(nil, "ftp://host/x")
	require.Error(t, err)
}

func TestMarshalManifestIsStable(t *testing.T) {
	m := newManifest(testSchema())
	for i, name := range []string{"pk", "vec", "a", "zz", "m", "b", "q"} {
		m.Columns[name] = []Fragment{{Path: name + "/0", Rows: int64(i), Size: 8}}
		m.Blobs["blob_"+name] = BlobEntry{Path: "blobs/" + name, Size: int64(i)}
	}
	first, err := marshalManifest(m)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := marshalManifest(m)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	back, err := unmarshalManifest(first)
	require.NoError(t, err)
	assert.Equal(t, m.Columns, back.Columns)
	assert.Equal(t, m.BlobNames(), back.BlobNames())
}
