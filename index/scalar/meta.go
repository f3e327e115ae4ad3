package scalar

import (
	"fmt"

	"github.com/hupe1980/segindex/codec"
	"github.com/hupe1980/segindex/index"
	"github.com/hupe1980/segindex/schema"
)

// meta is the descriptor blob stored with every scalar index.
type meta struct {
	IndexType     string          `msgpack:"index_type"`
	FieldType     schema.DataType `msgpack:"field_type"`
	Count         int             `msgpack:"count"`
	Cardinality   int             `msgpack:"cardinality,omitempty"`
	EngineVersion int32           `msgpack:"engine_version"`
}

func newMeta(info index.CreateInfo, count, cardinality int) meta {
	return meta{
		IndexType:     info.IndexType,
		FieldType:     info.FieldType,
		Count:         count,
		Cardinality:   cardinality,
		EngineVersion: info.EngineVersion,
	}
}

func (m meta) encode() ([]byte, error) {
	return codec.MsgPack{}.Marshal(m)
}

func decodeMeta(set *index.BinarySet, key string, info index.CreateInfo) (meta, error) {
	raw, ok := set.Get(key)
	if !ok {
		return meta{}, fmt.Errorf("%w: missing %q", index.ErrCorruptArtifact, key)
	}
	var m meta
	if err := (codec.MsgPack{}).Unmarshal(raw, &m); err != nil {
		return meta{}, fmt.Errorf("%w: %s: %v", index.ErrCorruptArtifact, key, err)
	}
	switch {
	case m.IndexType != info.IndexType:
		return meta{}, fmt.Errorf("%w: artifact is %s, handle is %s", index.ErrCorruptArtifact, m.IndexType, info.IndexType)
	case m.FieldType != info.FieldType:
		return meta{}, fmt.Errorf("%w: artifact field type %s, handle is %s", index.ErrCorruptArtifact, m.FieldType, info.FieldType)
	case m.Count < 0 || m.Cardinality < 0:
		return meta{}, fmt.Errorf("%w: bad count %d or cardinality %d", index.ErrCorruptArtifact, m.Count, m.Cardinality)
	}
	return m, nil
}

func blob(set *index.BinarySet, key string) ([]byte, error) {
	raw, ok := set.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", index.ErrCorruptArtifact, key)
	}
	return raw, nil
}
