package storage

import (
	"log/slog"

	"github.com/hupe1980/segindex/codec"
	"github.com/hupe1980/segindex/internal/fs"
	"github.com/hupe1980/segindex/internal/resource"
	"github.com/hupe1980/segindex/schema"
)

// FieldDataMeta identifies the field whose data is indexed.
type FieldDataMeta struct {
	CollectionID int64 `json:"collection_id" msgpack:"collection_id"`
	PartitionID  int64 `json:"partition_id" msgpack:"partition_id"`
	SegmentID    int64 `json:"segment_id" msgpack:"segment_id"`
	FieldID      int64 `json:"field_id" msgpack:"field_id"`
}

// IndexMeta identifies the index being built.
type IndexMeta struct {
	SegmentID    int64           `json:"segment_id" msgpack:"segment_id"`
	FieldID      int64           `json:"field_id" msgpack:"field_id"`
	BuildID      int64           `json:"build_id" msgpack:"build_id"`
	IndexVersion int64           `json:"index_version" msgpack:"index_version"`
	FieldName    string          `json:"field_name" msgpack:"field_name"`
	FieldType    schema.DataType `json:"field_type" msgpack:"field_type"`
	Dim          int64           `json:"dim" msgpack:"dim"`
}

// FileManagerContext carries everything an index needs to read its input
// and persist its artifacts.
type FileManagerContext struct {
	FieldDataMeta FieldDataMeta
	IndexMeta     IndexMeta
	ChunkManager  *ChunkManager
	IndexSpace    IndexSpace

	// LocalRoot is the scratch directory for cached raw data.
	LocalRoot string
	FS        fs.FileSystem
	Resources *resource.Controller
	Codec     codec.Codec

	Compression Compression
	Logger      *slog.Logger
}

// Valid reports whether the context can serve file-based builds and uploads.
func (c *FileManagerContext) Valid() bool {
	return c != nil && c.ChunkManager != nil
}

// FileSystem returns the scratch filesystem, defaulting to the local one.
func (c *FileManagerContext) FileSystem() fs.FileSystem {
	if c == nil || c.FS == nil {
		return fs.Default
	}
	return c.FS
}

// DescriptorCodec returns the codec for new envelopes.
func (c *FileManagerContext) DescriptorCodec() codec.Codec {
	if c == nil || c.Codec == nil {
		return codec.Default
	}
	return c.Codec
}

// Log returns the configured logger or a discarding one.
func (c *FileManagerContext) Log() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// RemoteIndexPrefix is the object prefix of this build's index files.
func (c *FileManagerContext) RemoteIndexPrefix() string {
	return GenIndexPathPrefix(c.ChunkManager.RootPath(), c.IndexMeta.BuildID, c.IndexMeta.IndexVersion,
		c.FieldDataMeta.PartitionID, c.FieldDataMeta.SegmentID)
}

// LocalIndexPrefix is the scratch directory of this build.
func (c *FileManagerContext) LocalIndexPrefix() string {
	return GenLocalIndexPrefix(c.LocalRoot, c.IndexMeta.BuildID, c.IndexMeta.IndexVersion)
}
