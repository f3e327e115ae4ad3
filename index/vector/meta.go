package vector

import (
	"fmt"

	"github.com/hupe1980/segindex/codec"
	"github.com/hupe1980/segindex/index"
	"github.com/hupe1980/segindex/schema"
)

// meta is the descriptor blob stored with every vector index.
type meta struct {
	IndexType     string          `msgpack:"index_type"`
	FieldType     schema.DataType `msgpack:"field_type"`
	Metric        string          `msgpack:"metric"`
	Dim           int             `msgpack:"dim"`
	Count         int             `msgpack:"count"`
	NList         int             `msgpack:"nlist,omitempty"`
	EngineVersion int32           `msgpack:"engine_version"`
}

func newMeta(info index.CreateInfo, dim, count int) meta {
	return meta{
		IndexType:     info.IndexType,
		FieldType:     info.FieldType,
		Metric:        info.MetricType.String(),
		Dim:           dim,
		Count:         count,
		EngineVersion: info.EngineVersion,
	}
}

func (m meta) encode() ([]byte, error) {
	return codec.MsgPack{}.Marshal(m)
}

// decodeMeta reads the meta blob and checks it against the handle's
// creation parameters.
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
	case m.Metric != info.MetricType.String():
		return meta{}, fmt.Errorf("%w: artifact metric %s, handle is %s", index.ErrCorruptArtifact, m.Metric, info.MetricType)
	case info.Dim > 0 && m.Dim != info.Dim:
		return meta{}, fmt.Errorf("%w: artifact dim %d, handle is %d", index.ErrCorruptArtifact, m.Dim, info.Dim)
	case m.Dim <= 0 || m.Count < 0:
		return meta{}, fmt.Errorf("%w: bad dim %d or count %d", index.ErrCorruptArtifact, m.Dim, m.Count)
	}
	return m, nil
}

// rowBlob returns a blob holding exactly count rows of rowBytes each.
func rowBlob(set *index.BinarySet, key string, count, rowBytes int) ([]byte, error) {
	raw, ok := set.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", index.ErrCorruptArtifact, key)
	}
	if len(raw) != count*rowBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, expected %d", index.ErrCorruptArtifact, key, len(raw), count*rowBytes)
	}
	return raw, nil
}

func rowBytes(info index.CreateInfo, dim int) (int, error) {
	n, ok := info.FieldType.VectorRowBytes(dim)
	if !ok || n == 0 {
		return 0, fmt.Errorf("%w: dim %d for %s", index.ErrInvalidDataset, dim, info.FieldType)
	}
	return n, nil
}
