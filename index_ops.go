package segindex

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/hupe1980/segindex/buildinfo"
	"github.com/hupe1980/segindex/index"
	"github.com/hupe1980/segindex/schema"
	"github.com/hupe1980/segindex/storage"
)

// CreateIndexV0 creates an index with no storage from serialized type and
// index params. The Builder's engine version is always applied. The index
// is built with one of the in-memory Build* calls.
func (b *Builder) CreateIndexV0(fieldType schema.DataType, typeParams, indexParams []byte) (IndexHandle, Status) {
	var out IndexHandle
	st := b.guard(context.Background(), "CreateIndexV0", func() error {
		req := buildinfo.New(buildinfo.StorageConfig{})
		req.FieldType = fieldType
		if err := req.AppendTypeParams(typeParams); err != nil {
			return err
		}
		if err := req.AppendIndexParams(indexParams); err != nil {
			return err
		}
		req.AppendEngineVersion(b.engineVersion())

		e, err := b.newIndex(context.Background(), req, sourceMemory)
		if err != nil {
			return err
		}
		out = IndexHandle(b.handles.put(kindIndex, e))
		return nil
	})
	return out, st
}

func (b *Builder) engineVersion() int32 {
	if b.opts.engineVersion != 0 {
		return b.opts.engineVersion
	}
	return index.CurrentEngineVersion
}

// CreateIndex creates an index from a build request and builds it from the
// request's insert files.
func (b *Builder) CreateIndex(ctx context.Context, h BuildInfoHandle) (IndexHandle, Status) {
	return b.createAndBuild(ctx, "CreateIndex", h, sourceFiles)
}

// CreateIndexV2 creates an index from a build request and builds it from
// the request's data space. The artifacts are later committed to the
// index space by SerializeIndexAndUploadV2.
func (b *Builder) CreateIndexV2(ctx context.Context, h BuildInfoHandle) (IndexHandle, Status) {
	return b.createAndBuild(ctx, "CreateIndexV2", h, sourceSpaces)
}

func (b *Builder) createAndBuild(ctx context.Context, op string, h BuildInfoHandle, src source) (IndexHandle, Status) {
	var out IndexHandle
	st := b.guard(ctx, op, func() error {
		bi, err := lookup[*buildinfo.BuildInfo](b.handles, kindBuildInfo, uint64(h))
		if err != nil {
			return err
		}
		req := bi.Snapshot()
		if src == sourceSpaces {
			if !req.UsesSpaces() {
				return fmt.Errorf("%w: data and index store paths", buildinfo.ErrMissingParam)
			}
			if req.FieldName == "" {
				return fmt.Errorf("%w: field name", buildinfo.ErrMissingParam)
			}
		}

		e, err := b.newIndex(ctx, req, src)
		if err != nil {
			return err
		}
		start := time.Now()
		if src == sourceSpaces {
			err = e.idx.BuildV2(ctx)
		} else {
			err = e.idx.BuildFromFiles(ctx)
		}
		b.metrics.RecordBuild(e.idx.IndexType(), time.Since(start), err)
		e.logger.LogBuild(ctx, src.String(), err)
		if err != nil {
			e.idx.CleanLocalData(ctx)
			_ = e.close()
			return err
		}
		out = IndexHandle(b.handles.put(kindIndex, e))
		return nil
	})
	return out, st
}

// DeleteIndex releases an index and its storage connection. Local scratch
// data is left to CleanLocalData.
func (b *Builder) DeleteIndex(h IndexHandle) Status {
	return b.guard(context.Background(), "DeleteIndex", func() error {
		v, err := b.handles.remove(kindIndex, uint64(h))
		if err != nil {
			return err
		}
		return v.(*indexEntry).close()
	})
}

func (b *Builder) withIndex(ctx context.Context, op string, h IndexHandle, fn func(*indexEntry) error) Status {
	return b.guard(ctx, op, func() error {
		e, err := lookup[*indexEntry](b.handles, kindIndex, uint64(h))
		if err != nil {
			return err
		}
		return fn(e)
	})
}

func (b *Builder) build(ctx context.Context, e *indexEntry, data *storage.FieldData) error {
	start := time.Now()
	err := e.idx.Build(ctx, data)
	b.metrics.RecordBuild(e.idx.IndexType(), time.Since(start), err)
	e.logger.LogBuild(ctx, sourceMemory.String(), err)
	return err
}

// vectorDim returns the dimension of a vector index over fieldType.
func vectorDim(e *indexEntry, fieldType schema.DataType) (int, error) {
	if e.idx.FieldType() != fieldType {
		return 0, fmt.Errorf("%w: %s data for a %s index", index.ErrInvalidDataset, fieldType, e.idx.FieldType())
	}
	vi, ok := e.idx.AsVector()
	if !ok {
		return 0, fmt.Errorf("%w: %s is not a vector index", index.ErrInvalidDataset, e.idx.IndexType())
	}
	if vi.Dim() <= 0 {
		return 0, fmt.Errorf("%w: %s", buildinfo.ErrMissingParam, buildinfo.KeyDim)
	}
	return vi.Dim(), nil
}

// BuildFloatVecIndex builds a FloatVector index from row-major vectors.
// The row count is len(vectors) / dim.
func (b *Builder) BuildFloatVecIndex(ctx context.Context, h IndexHandle, vectors []float32) Status {
	return b.withIndex(ctx, "BuildFloatVecIndex", h, func(e *indexEntry) error {
		dim, err := vectorDim(e, schema.FloatVector)
		if err != nil {
			return err
		}
		if len(vectors)%dim != 0 {
			return fmt.Errorf("%w: %d floats are not a multiple of dim %d", index.ErrInvalidDataset, len(vectors), dim)
		}
		return b.build(ctx, e, storage.NewFloatVectors(dim, vectors))
	})
}

// BuildBinaryVecIndex builds a BinaryVector index from packed bit rows.
// The row count is len(data) * 8 / dim.
func (b *Builder) BuildBinaryVecIndex(ctx context.Context, h IndexHandle, data []byte) Status {
	return b.withIndex(ctx, "BuildBinaryVecIndex", h, func(e *indexEntry) error {
		dim, err := vectorDim(e, schema.BinaryVector)
		if err != nil {
			return err
		}
		return b.build(ctx, e, storage.NewVectors(schema.BinaryVector, dim, data))
	})
}

// BuildFloat16VecIndex builds a Float16Vector index from little-endian
// half-precision rows.
func (b *Builder) BuildFloat16VecIndex(ctx context.Context, h IndexHandle, data []byte) Status {
	return b.withIndex(ctx, "BuildFloat16VecIndex", h, func(e *indexEntry) error {
		dim, err := vectorDim(e, schema.Float16Vector)
		if err != nil {
			return err
		}
		return b.build(ctx, e, storage.NewVectors(schema.Float16Vector, dim, data))
	})
}

// BuildScalarIndex builds a scalar index. The payload encoding follows the
// field type: a serialized BoolArray for Bool, a serialized StringArray for
// String and VarChar, raw little-endian values otherwise.
func (b *Builder) BuildScalarIndex(ctx context.Context, h IndexHandle, data []byte) Status {
	return b.withIndex(ctx, "BuildScalarIndex", h, func(e *indexEntry) error {
		ft := e.idx.FieldType()
		if ft.IsVector() {
			return fmt.Errorf("%w: %s is a vector field", index.ErrInvalidDataset, ft)
		}
		fd, err := storage.DecodeRaw(ft, 0, data)
		if err != nil {
			return fmt.Errorf("%w: %w", index.ErrInvalidDataset, err)
		}
		return b.build(ctx, e, fd)
	})
}

// SerializeIndexToBinarySet returns a new binary set holding the index artifacts.
func (b *Builder) SerializeIndexToBinarySet(ctx context.Context, h IndexHandle) (BinarySetHandle, Status) {
	var out BinarySetHandle
	st := b.withIndex(ctx, "SerializeIndexToBinarySet", h, func(e *indexEntry) error {
		start := time.Now()
		set, err := e.idx.Serialize(ctx)
		if err != nil {
			b.metrics.RecordSerialize(0, time.Since(start), err)
			return err
		}
		b.metrics.RecordSerialize(set.Size(), time.Since(start), nil)
		out = BinarySetHandle(b.handles.put(kindBinarySet, set))
		return nil
	})
	return out, st
}

// LoadIndexFromBinarySet restores a freshly created index from a binary set.
func (b *Builder) LoadIndexFromBinarySet(ctx context.Context, h IndexHandle, set BinarySetHandle) Status {
	return b.withIndex(ctx, "LoadIndexFromBinarySet", h, func(e *indexEntry) error {
		bs, err := lookup[*index.BinarySet](b.handles, kindBinarySet, uint64(set))
		if err != nil {
			return err
		}
		err = e.idx.Load(ctx, bs)
		e.logger.LogLoad(ctx, bs.Len(), err)
		return err
	})
}

// CleanLocalData removes the local scratch data of an index. Cleanup
// failures are logged and never reported.
func (b *Builder) CleanLocalData(ctx context.Context, h IndexHandle) Status {
	return b.withIndex(ctx, "CleanLocalData", h, func(e *indexEntry) error {
		start := time.Now()
		e.idx.CleanLocalData(ctx)
		b.metrics.RecordCleanup(time.Since(start))
		e.logger.LogCleanup(ctx, b.localRoot)
		return nil
	})
}

// SerializeIndexAndUpload writes every artifact to the chunk store and
// returns the serialized set. Repeated calls rewrite the same objects.
func (b *Builder) SerializeIndexAndUpload(ctx context.Context, h IndexHandle) (BinarySetHandle, Status) {
	return b.upload(ctx, "SerializeIndexAndUpload", h, "chunk store", index.Index.Upload)
}

// SerializeIndexAndUploadV2 commits every artifact to the index space and
// returns the serialized set. Repeated calls commit identical blobs as a
// new space version.
func (b *Builder) SerializeIndexAndUploadV2(ctx context.Context, h IndexHandle) (BinarySetHandle, Status) {
	return b.upload(ctx, "SerializeIndexAndUploadV2", h, "index space", index.Index.UploadV2)
}

func (b *Builder) upload(ctx context.Context, op string, h IndexHandle, target string,
	fn func(index.Index, context.Context) (*index.BinarySet, error)) (BinarySetHandle, Status) {
	var out BinarySetHandle
	st := b.withIndex(ctx, op, h, func(e *indexEntry) error {
		start := time.Now()
		set, err := fn(e.idx, ctx)
		var (
			files map[string]int64
			bytes int64
		)
		if err == nil {
			files = e.idx.UploadedFiles()
			for _, n := range files {
				bytes += n
			}
		}
		b.metrics.RecordUpload(len(files), bytes, time.Since(start), err)
		e.logger.LogUpload(ctx, target, len(files), bytes, err)
		if err != nil {
			return err
		}
		out = BinarySetHandle(b.handles.put(kindBinarySet, set))
		return nil
	})
	return out, st
}

// UploadedIndexFiles returns the remote paths (or space blob names) and
// sizes written by the last upload of an index.
func (b *Builder) UploadedIndexFiles(h IndexHandle) (map[string]int64, Status) {
	var out map[string]int64
	st := b.withIndex(context.Background(), "UploadedIndexFiles", h, func(e *indexEntry) error {
		out = maps.Clone(e.idx.UploadedFiles())
		return nil
	})
	return out, st
}
