package index

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/hupe1980/segindex/buildinfo"
	"github.com/hupe1980/segindex/distance"
	"github.com/hupe1980/segindex/schema"
	"github.com/hupe1980/segindex/storage"
)

// State is the lifecycle state of an index.
type State int

const (
	StateCreated State = iota
	StateBuilding
	StateBuilt
	StateUploaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateBuilding:
		return "building"
	case StateBuilt:
		return "built"
	case StateUploaded:
		return "uploaded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Base implements Index around a Core.
type Base struct {
	info   CreateInfo
	cfg    buildinfo.Config
	core   Core
	opts   CreateOptions
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	uploaded map[string]int64
}

// NewBase wraps core.
func NewBase(info CreateInfo, cfg buildinfo.Config, core Core, opts CreateOptions) *Base {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Base{
		info:   info,
		cfg:    cfg,
		core:   core,
		opts:   opts,
		logger: logger.With("index_type", info.IndexType, "field_type", info.FieldType.String()),
	}
}

func (b *Base) IndexType() string          { return b.info.IndexType }
func (b *Base) FieldType() schema.DataType { return b.info.FieldType }

// Info returns the creation parameters.
func (b *Base) Info() CreateInfo { return b.info }

// State returns the lifecycle state.
func (b *Base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// begin moves Created to Building.
func (b *Base) begin(op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateCreated {
		return fmt.Errorf("%w: %s on %s index", ErrInvalidState, op, b.state)
	}
	b.state = StateBuilding
	return nil
}

func (b *Base) finish(err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.state = StateFailed
		return err
	}
	b.state = StateBuilt
	return nil
}

func (b *Base) requireBuilt(op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateBuilt && b.state != StateUploaded {
		return fmt.Errorf("%w: %s on %s index", ErrInvalidState, op, b.state)
	}
	return nil
}

func (b *Base) checkData(data *storage.FieldData) error {
	if data == nil {
		return fmt.Errorf("%w: no data", ErrInvalidDataset)
	}
	if data.Type != b.info.FieldType {
		return fmt.Errorf("%w: %s data for %s index", ErrInvalidDataset, data.Type, b.info.FieldType)
	}
	if b.info.FieldType.IsVector() && b.info.Dim > 0 && data.Dim != b.info.Dim {
		return fmt.Errorf("%w: dim %d, expected %d", ErrInvalidDataset, data.Dim, b.info.Dim)
	}
	if err := data.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	if data.RowNum() == 0 {
		return fmt.Errorf("%w: empty dataset", ErrInvalidDataset)
	}
	return nil
}

func (b *Base) train(ctx context.Context, data *storage.FieldData) error {
	if err := b.checkData(data); err != nil {
		return err
	}
	if err := b.core.Train(ctx, data); err != nil {
		return err
	}
	b.logger.Debug("index trained", "rows", data.RowNum())
	return nil
}

// Build constructs the index from an in-memory column.
func (b *Base) Build(ctx context.Context, data *storage.FieldData) error {
	if err := b.begin("build"); err != nil {
		return err
	}
	return b.finish(b.train(ctx, data))
}

// BuildFromFiles downloads the insert files and builds from them. Vector
// data is cached on local disk first and mapped from there.
func (b *Base) BuildFromFiles(ctx context.Context) error {
	if err := b.begin("build"); err != nil {
		return err
	}
	return b.finish(b.buildFromFiles(ctx))
}

func (b *Base) buildFromFiles(ctx context.Context) error {
	fm := b.opts.FileManager
	if !fm.Valid() {
		return fmt.Errorf("%w: no storage context", ErrInvalidDataset)
	}
	if len(b.opts.InsertFiles) == 0 {
		return fmt.Errorf("%w: no insert files", ErrInvalidDataset)
	}

	if !b.info.FieldType.IsVector() {
		data, err := storage.LoadFieldData(ctx, fm, b.opts.InsertFiles)
		if err != nil {
			return err
		}
		return b.train(ctx, data)
	}

	p, err := storage.CacheRawDataToDisk(ctx, fm, b.opts.InsertFiles)
	if err != nil {
		return err
	}
	b.logger.Debug("raw data cached", "path", p)
	cached, err := storage.OpenCachedRawData(p, b.logger)
	if err != nil {
		return err
	}
	defer cached.Close()
	return b.train(ctx, cached.Data)
}

// BuildV2 reads the field column from the data space.
func (b *Base) BuildV2(ctx context.Context) error {
	if err := b.begin("build"); err != nil {
		return err
	}
	return b.finish(b.buildV2(ctx))
}

func (b *Base) buildV2(ctx context.Context) error {
	if b.opts.DataSpace == nil {
		return fmt.Errorf("%w: no data space", ErrInvalidDataset)
	}
	if b.info.FieldName == "" {
		return fmt.Errorf("%w: field name is required for space builds", ErrInvalidDataset)
	}
	data, err := b.opts.DataSpace.Read(ctx, b.info.FieldName)
	if err != nil {
		return err
	}
	return b.train(ctx, data)
}

// Serialize returns the artifacts, sliced when a slice size is configured.
func (b *Base) Serialize(_ context.Context) (*BinarySet, error) {
	if err := b.requireBuilt("serialize"); err != nil {
		return nil, err
	}
	set, err := b.core.Serialize()
	if err != nil {
		return nil, err
	}
	return Disassemble(set, int64(b.cfg.SliceSizeMiB)<<20), nil
}

// Load restores a serialized index into a fresh handle.
func (b *Base) Load(_ context.Context, set *BinarySet) error {
	if err := b.begin("load"); err != nil {
		return err
	}
	return b.finish(b.load(set))
}

func (b *Base) load(set *BinarySet) error {
	if set == nil {
		return fmt.Errorf("%w: no binary set", ErrCorruptArtifact)
	}
	assembled, err := Assemble(set)
	if err != nil {
		return err
	}
	if err := b.core.Load(assembled); err != nil {
		return err
	}
	b.logger.Debug("index loaded", "blobs", assembled.Len())
	return nil
}

// Upload serializes and writes every blob to the chunk store. Object keys
// are deterministic, so repeated uploads overwrite identical bytes.
func (b *Base) Upload(ctx context.Context) (*BinarySet, error) {
	set, err := b.Serialize(ctx)
	if err != nil {
		return nil, err
	}
	fm := b.opts.FileManager
	if !fm.Valid() {
		return nil, fmt.Errorf("%w: no storage context", ErrInvalidState)
	}
	sizes, err := storage.PutIndexData(ctx, fm, set.Artifacts())
	if err != nil {
		return nil, err
	}
	b.markUploaded(sizes)
	b.logger.Info("index uploaded", "files", len(sizes), "bytes", set.Size())
	return set, nil
}

// UploadV2 serializes and commits every blob to the index space.
func (b *Base) UploadV2(ctx context.Context) (*BinarySet, error) {
	set, err := b.Serialize(ctx)
	if err != nil {
		return nil, err
	}
	fm := b.opts.FileManager
	if fm == nil || fm.IndexSpace == nil {
		return nil, fmt.Errorf("%w: no index space", ErrInvalidState)
	}
	version, sizes, err := storage.PutIndexDataToSpace(ctx, fm.IndexSpace, set.Artifacts())
	if err != nil {
		return nil, err
	}
	b.markUploaded(sizes)
	b.logger.Info("index committed", "version", version, "blobs", len(sizes), "bytes", set.Size())
	return set, nil
}

func (b *Base) markUploaded(sizes map[string]int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploaded = sizes
	b.state = StateUploaded
}

// UploadedFiles returns the paths and sizes of the last upload.
func (b *Base) UploadedFiles() map[string]int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return maps.Clone(b.uploaded)
}

// CleanLocalData removes this build's local scratch directory.
func (b *Base) CleanLocalData(_ context.Context) {
	fm := b.opts.FileManager
	if fm == nil || fm.LocalRoot == "" {
		return
	}
	prefix := fm.LocalIndexPrefix()
	if err := storage.RemoveLocalData(fm.FileSystem(), prefix); err != nil {
		b.logger.Warn("failed to clean local data", "prefix", prefix, "error", err)
	}
}

// AsVector returns the vector view when the core is a VectorCore.
func (b *Base) AsVector() (VectorIndex, bool) {
	vc, ok := b.core.(VectorCore)
	if !ok {
		return nil, false
	}
	return &vectorIndex{Base: b, vc: vc}, true
}

type vectorIndex struct {
	*Base
	vc VectorCore
}

func (v *vectorIndex) Dim() int                    { return v.vc.Dim() }
func (v *vectorIndex) MetricType() distance.Metric { return v.vc.Metric() }
func (v *vectorIndex) Count() int                  { return v.vc.Count() }
