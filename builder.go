package segindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	s3store "github.com/hupe1980/segindex/blobstore/s3"
	"github.com/hupe1980/segindex/buildinfo"
	"github.com/hupe1980/segindex/index"
	"github.com/hupe1980/segindex/internal/resource"
	"github.com/hupe1980/segindex/space"
	"github.com/hupe1980/segindex/storage"

	// Built-in index variants.
	_ "github.com/hupe1980/segindex/index/scalar"
	_ "github.com/hupe1980/segindex/index/vector"
)

// Builder owns the handle registry and the shared resources of a build
// process. Its methods are the boundary entry points; each returns a Status.
//
// The registry is safe for concurrent use. A single handle must not be
// driven from two goroutines at once.
type Builder struct {
	opts      options
	session   string
	localRoot string
	handles   *handleTable
	resources *resource.Controller
	logger    *Logger
	metrics   MetricsCollector
}

// New creates a Builder.
func New(optFns ...Option) *Builder {
	o := applyOptions(optFns)
	root := o.localRoot
	if root == "" {
		root = filepath.Join(os.TempDir(), "segindex")
	}
	session := uuid.NewString()
	return &Builder{
		opts:      o,
		session:   session,
		localRoot: filepath.Join(root, session),
		handles:   newHandleTable(),
		resources: resource.NewController(o.resources),
		logger:    &Logger{Logger: o.logger.With("session", session)},
		metrics:   o.metricsCollector,
	}
}

// SessionID identifies this Builder in logs and local paths.
func (b *Builder) SessionID() string { return b.session }

// LocalRoot is the scratch directory of this Builder.
func (b *Builder) LocalRoot() string { return b.localRoot }

// LiveHandles returns the number of handles not yet deleted.
func (b *Builder) LiveHandles() int { return b.handles.len() }

// Close releases every live handle and removes the scratch directory.
func (b *Builder) Close() error {
	var errs []error
	for _, e := range b.handles.drain() {
		if ie, ok := e.value.(*indexEntry); ok {
			ie.idx.CleanLocalData(context.Background())
			errs = append(errs, ie.close())
		}
	}
	if err := b.opts.fs.RemoveAll(b.localRoot); err != nil {
		b.logger.Warn("failed to remove local root", "path", b.localRoot, "error", err)
	}
	return errors.Join(errs...)
}

// guard runs one entry point: it recovers panics, converts the error into
// a Status, logs failures and records the call.
func (b *Builder) guard(ctx context.Context, op string, fn func() error) (st Status) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "recovered panic", "op", op, "panic", r, "stack", string(debug.Stack()))
			st = Status{Code: UnexpectedError, Message: fmt.Sprintf("%s: %v: %v", op, ErrPanic, r)}
		}
		b.metrics.RecordCall(op, st.Code, time.Since(start))
	}()

	if err := fn(); err != nil {
		st = statusOf(err)
		st.Message = op + ": " + st.Message
		b.logger.WarnContext(ctx, "call failed", "op", op, "code", st.Code.String(), "error", err)
		return st
	}
	return ok()
}

// indexEntry is the value behind an IndexHandle.
type indexEntry struct {
	idx    index.Index
	cm     *storage.ChunkManager
	logger *Logger
}

func (e *indexEntry) close() error {
	if e.cm == nil {
		return nil
	}
	return e.cm.Close()
}

type source int

const (
	sourceMemory source = iota
	sourceFiles
	sourceSpaces
)

func (s source) String() string {
	switch s {
	case sourceFiles:
		return "files"
	case sourceSpaces:
		return "spaces"
	}
	return "memory"
}

// newIndex creates an index for req. Parameters and the variant are
// checked before any storage is opened.
func (b *Builder) newIndex(ctx context.Context, req *buildinfo.BuildInfo, src source) (*indexEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	cfg, err := buildinfo.ParseConfig(req.Params())
	if err != nil {
		return nil, err
	}
	dim, err := req.ResolvedDim()
	if err != nil {
		return nil, err
	}
	info, err := index.NewCreateInfo(req.FieldType, req.FieldName, dim, cfg)
	if err != nil {
		return nil, err
	}
	factory := index.Factory{EngineVersion: b.opts.engineVersion}
	if info, err = factory.Resolve(info, cfg); err != nil {
		return nil, err
	}
	compression, err := storage.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", buildinfo.ErrInvalidParam, err)
	}

	logger := b.logger.WithBuild(req.BuildID, req.IndexVersion).
		WithSegment(req.SegmentID, req.FieldID).
		WithIndexType(info.IndexType)
	e := &indexEntry{logger: logger}
	opts := index.CreateOptions{Logger: logger.Logger}

	if src != sourceMemory {
		cm, err := storage.NewChunkManager(ctx, req.StorageConfig)
		if err != nil {
			return nil, err
		}
		e.cm = cm
		fm := &storage.FileManagerContext{
			FieldDataMeta: storage.FieldDataMeta{
				CollectionID: req.CollectionID,
				PartitionID:  req.PartitionID,
				SegmentID:    req.SegmentID,
				FieldID:      req.FieldID,
			},
			IndexMeta: storage.IndexMeta{
				SegmentID:    req.SegmentID,
				FieldID:      req.FieldID,
				BuildID:      req.BuildID,
				IndexVersion: req.IndexVersion,
				FieldName:    req.FieldName,
				FieldType:    req.FieldType,
				Dim:          req.Dim,
			},
			ChunkManager: cm,
			LocalRoot:    b.localRoot,
			FS:           b.opts.fs,
			Resources:    b.resources,
			Codec:        b.opts.codec,
			Compression:  compression,
			Logger:       logger.Logger,
		}
		opts.FileManager = fm
		opts.InsertFiles = req.InsertFiles

		if src == sourceSpaces {
			dataSpace, indexSpace, err := b.openSpaces(ctx, req, cm)
			if err != nil {
				_ = e.close()
				return nil, err
			}
			opts.DataSpace = dataSpace
			fm.IndexSpace = indexSpace
			logger.DebugContext(ctx, "spaces opened",
				"data_version", dataSpace.Version(), "index_version", indexSpace.Version())
		}
	}

	idx, err := factory.Create(info, cfg, opts)
	if err != nil {
		_ = e.close()
		return nil, err
	}
	e.idx = idx
	return e, nil
}

// openSpaces opens the data space pinned to the requested version and the
// index space with the data space's schema.
func (b *Builder) openSpaces(ctx context.Context, req *buildinfo.BuildInfo, cm *storage.ChunkManager) (*space.Space, *space.Space, error) {
	dataStore, err := space.ResolveStore(cm, req.DataStorePath)
	if err != nil {
		return nil, nil, &storage.Error{Op: "resolve", Path: req.DataStorePath, Err: err}
	}
	dataSpace, err := space.Open(ctx, dataStore, space.Options{Version: req.DataStoreVersion})
	if err != nil {
		return nil, nil, fmt.Errorf("open data space %s: %w", req.DataStorePath, err)
	}

	indexStore, err := space.ResolveStore(cm, req.IndexStorePath)
	if err != nil {
		return nil, nil, &storage.Error{Op: "resolve", Path: req.IndexStorePath, Err: err}
	}
	if cl := b.opts.commitLog; cl != nil {
		indexStore = s3store.NewDDBCommitStore(indexStore, cl.client, cl.table, req.IndexStorePath)
	}
	indexSpace, err := space.Open(ctx, indexStore, space.Options{Schema: dataSpace.Schema()})
	if err != nil {
		return nil, nil, fmt.Errorf("open index space %s: %w", req.IndexStorePath, err)
	}
	return dataSpace, indexSpace, nil
}
