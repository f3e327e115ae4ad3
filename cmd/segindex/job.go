package main

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/segindex/buildinfo"
	"github.com/hupe1980/segindex/internal/resource"
	"github.com/hupe1980/segindex/schema"
	"github.com/hupe1980/segindex/wire"
)

// Job describes one index build.
type Job struct {
	Storage     buildinfo.StorageConfig `yaml:"storage"`
	Field       FieldSpec               `yaml:"field"`
	Index       IndexSpec               `yaml:"index"`
	TypeParams  map[string]string       `yaml:"type_params"`
	IndexParams map[string]string       `yaml:"index_params"`
	InsertFiles []string                `yaml:"insert_files"`
	V2          *SpaceSpec              `yaml:"v2"`
	Resources   resource.Config         `yaml:"resources"`
	LocalRoot   string                  `yaml:"local_root"`
}

// FieldSpec identifies the indexed field.
type FieldSpec struct {
	CollectionID int64  `yaml:"collection_id"`
	PartitionID  int64  `yaml:"partition_id"`
	SegmentID    int64  `yaml:"segment_id"`
	FieldID      int64  `yaml:"field_id"`
	Name         string `yaml:"name"`
	Type         string `yaml:"type"`
	Dim          int64  `yaml:"dim"`
}

// IndexSpec identifies the index build.
type IndexSpec struct {
	IndexID       int64 `yaml:"index_id"`
	BuildID       int64 `yaml:"build_id"`
	Version       int64 `yaml:"version"`
	EngineVersion int32 `yaml:"engine_version"`
}

// SpaceSpec selects a build from versioned spaces.
type SpaceSpec struct {
	DataStorePath    string `yaml:"data_store_path"`
	IndexStorePath   string `yaml:"index_store_path"`
	DataStoreVersion int64  `yaml:"data_store_version"`
}

func loadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &job, nil
}

func (j *Job) validate() error {
	if _, err := j.FieldType(); err != nil {
		return err
	}
	if j.V2 == nil && len(j.InsertFiles) == 0 {
		return fmt.Errorf("either insert_files or v2 is required")
	}
	if j.V2 != nil && (j.V2.DataStorePath == "" || j.V2.IndexStorePath == "") {
		return fmt.Errorf("v2 requires data_store_path and index_store_path")
	}
	if j.V2 != nil && j.Field.Name == "" {
		return fmt.Errorf("v2 requires field.name")
	}
	return nil
}

// FieldType parses the field type name.
func (j *Job) FieldType() (schema.DataType, error) {
	return schema.ParseDataType(j.Field.Type)
}

// encodeParams returns params in key order so repeated runs send identical bytes.
func encodeParams(params map[string]string) []byte {
	pairs := make([]wire.KeyValue, 0, len(params))
	for _, k := range slices.Sorted(maps.Keys(params)) {
		pairs = append(pairs, wire.KeyValue{Key: k, Value: params[k]})
	}
	return wire.EncodeParams(pairs)
}
