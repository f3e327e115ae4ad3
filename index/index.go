package index

import (
	"context"
	"log/slog"

	"github.com/hupe1980/segindex/buildinfo"
	"github.com/hupe1980/segindex/distance"
	"github.com/hupe1980/segindex/schema"
	"github.com/hupe1980/segindex/space"
	"github.com/hupe1980/segindex/storage"
)

// Index is a buildable index of one field.
type Index interface {
	IndexType() string
	FieldType() schema.DataType

	// Build constructs the index from an in-memory column.
	Build(ctx context.Context, data *storage.FieldData) error
	// BuildFromFiles downloads the configured insert files and builds from them.
	BuildFromFiles(ctx context.Context) error
	// BuildV2 reads the field column from the data space and builds from it.
	BuildV2(ctx context.Context) error

	// Serialize returns the persistent representation without side effects.
	Serialize(ctx context.Context) (*BinarySet, error)
	// Load restores a serialized index into a fresh handle.
	Load(ctx context.Context, set *BinarySet) error

	// Upload serializes and writes every blob to the chunk store.
	Upload(ctx context.Context) (*BinarySet, error)
	// UploadV2 serializes and commits every blob to the index space.
	UploadV2(ctx context.Context) (*BinarySet, error)
	// UploadedFiles returns the remote paths and sizes of the last Upload.
	UploadedFiles() map[string]int64

	// CleanLocalData removes local scratch files. Failures are logged only.
	CleanLocalData(ctx context.Context)

	// AsVector returns the vector view of a vector index.
	AsVector() (VectorIndex, bool)
}

// VectorIndex is implemented by vector indexes.
type VectorIndex interface {
	Index
	Dim() int
	MetricType() distance.Metric
	Count() int
}

// Core is the data structure behind an Index.
type Core interface {
	// Train builds the structure. It is called at most once and must not
	// retain data, which may alias a file mapping.
	Train(ctx context.Context, data *storage.FieldData) error
	// Serialize must be deterministic for a given structure.
	Serialize() (*BinarySet, error)
	// Load restores a structure produced by Serialize.
	Load(set *BinarySet) error
}

// VectorCore is a Core over vectors.
type VectorCore interface {
	Core
	Dim() int
	Metric() distance.Metric
	Count() int
}

// CreateInfo selects an index variant.
type CreateInfo struct {
	FieldType     schema.DataType
	FieldName     string
	IndexType     string
	MetricType    distance.Metric
	EngineVersion int32
	Dim           int
}

// CreateOptions carries the storage collaborators of an index.
type CreateOptions struct {
	// FileManager is required by BuildFromFiles, Upload and UploadV2.
	FileManager *storage.FileManagerContext
	// DataSpace is required by BuildV2.
	DataSpace *space.Space
	// InsertFiles are the binlogs read by BuildFromFiles.
	InsertFiles []string
	Logger      *slog.Logger
}

// Constructors registered by variants.
type (
	VectorConstructor func(info CreateInfo, cfg buildinfo.Config) (VectorCore, error)
	ScalarConstructor func(info CreateInfo, cfg buildinfo.Config) (Core, error)
)
