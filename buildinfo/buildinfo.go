package buildinfo

import (
	"fmt"
	"maps"
	"strconv"

	"github.com/hupe1980/segindex/schema"
	"github.com/hupe1980/segindex/wire"
)

// BuildInfo is the mutable staging object for one index build.
// It is not safe for concurrent use.
type BuildInfo struct {
	CollectionID int64
	PartitionID  int64
	SegmentID    int64
	FieldID      int64
	FieldName    string
	FieldType    schema.DataType
	Dim          int64

	IndexID      int64
	BuildID      int64
	IndexVersion int64

	StorageConfig StorageConfig
	InsertFiles   []string

	DataStorePath    string
	IndexStorePath   string
	DataStoreVersion int64

	config map[string]string
}

// New starts a build request with a copy of cfg.
func New(cfg StorageConfig) *BuildInfo {
	return &BuildInfo{StorageConfig: cfg, config: make(map[string]string)}
}

// AppendTypeParams decodes a TypeParams message and merges it into the config.
func (b *BuildInfo) AppendTypeParams(msg []byte) error {
	return b.appendParams(msg)
}

// AppendIndexParams decodes an IndexParams message and merges it into the config.
func (b *BuildInfo) AppendIndexParams(msg []byte) error {
	return b.appendParams(msg)
}

func (b *BuildInfo) appendParams(msg []byte) error {
	pairs, err := wire.DecodeParams(msg)
	if err != nil {
		return err
	}
	for _, kv := range pairs {
		b.config[kv.Key] = kv.Value
	}
	return nil
}

// SetParam sets a single config key.
func (b *BuildInfo) SetParam(key, value string) {
	b.config[key] = value
}

// Param returns a config value.
func (b *BuildInfo) Param(key string) (string, bool) {
	v, ok := b.config[key]
	return v, ok
}

// Params returns a copy of the flat config map.
func (b *BuildInfo) Params() map[string]string {
	return maps.Clone(b.config)
}

// AppendFieldMeta records the identity of the field being indexed.
func (b *BuildInfo) AppendFieldMeta(collectionID, partitionID, segmentID, fieldID int64, fieldType schema.DataType) {
	b.CollectionID = collectionID
	b.PartitionID = partitionID
	b.SegmentID = segmentID
	b.FieldID = fieldID
	b.FieldType = fieldType
}

// AppendFieldMetaV2 additionally records the column name and dimension used by space builds.
func (b *BuildInfo) AppendFieldMetaV2(collectionID, partitionID, segmentID, fieldID int64, fieldType schema.DataType, fieldName string, dim int64) {
	b.AppendFieldMeta(collectionID, partitionID, segmentID, fieldID, fieldType)
	b.FieldName = fieldName
	b.Dim = dim
}

// AppendIndexMeta records the index identity.
func (b *BuildInfo) AppendIndexMeta(indexID, buildID, version int64) {
	b.IndexID = indexID
	b.BuildID = buildID
	b.IndexVersion = version
}

// AppendInsertFile appends one input binlog path.
func (b *BuildInfo) AppendInsertFile(path string) {
	b.InsertFiles = append(b.InsertFiles, path)
}

// AppendEngineVersion pins the index engine version.
func (b *BuildInfo) AppendEngineVersion(v int32) {
	b.config[KeyEngineVersion] = strconv.FormatInt(int64(v), 10)
}

// AppendStorageInfo records the space paths for a V2 build.
func (b *BuildInfo) AppendStorageInfo(dataPath, indexPath string, dataVersion int64) {
	b.DataStorePath = dataPath
	b.IndexStorePath = indexPath
	b.DataStoreVersion = dataVersion
}

// UsesSpaces reports whether the request targets columnar spaces.
func (b *BuildInfo) UsesSpaces() bool {
	return b.DataStorePath != "" && b.IndexStorePath != ""
}

// Validate checks the parameters required to create an index.
func (b *BuildInfo) Validate() error {
	return ValidateParams(b.FieldType, b.config)
}

// ValidateParams checks index_type and, for vector fields, metric_type.
func ValidateParams(fieldType schema.DataType, params map[string]string) error {
	if params[KeyIndexType] == "" {
		return fmt.Errorf("%w: %s", ErrMissingParam, KeyIndexType)
	}
	if fieldType.IsVector() && params[KeyMetricType] == "" {
		return fmt.Errorf("%w: %s is required for %s fields", ErrMissingParam, KeyMetricType, fieldType)
	}
	return nil
}

// Snapshot returns an independent deep copy.
func (b *BuildInfo) Snapshot() *BuildInfo {
	c := *b
	c.InsertFiles = append([]string(nil), b.InsertFiles...)
	c.config = maps.Clone(b.config)
	return &c
}

// ResolvedDim returns the vector dimension from the dim param, else from the field meta.
func (b *BuildInfo) ResolvedDim() (int, error) {
	if v, ok := b.config[KeyDim]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%w: %s=%q", ErrInvalidParam, KeyDim, v)
		}
		return n, nil
	}
	return int(b.Dim), nil
}
