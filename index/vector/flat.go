package vector

import (
	"bytes"
	"context"

	"github.com/hupe1980/segindex/buildinfo"
	"github.com/hupe1980/segindex/distance"
	"github.com/hupe1980/segindex/index"
	"github.com/hupe1980/segindex/storage"
)

const (
	flatMetaKey = "flat_meta"
	flatDataKey = "flat_data"
)

// Flat keeps every vector in insertion order.
type Flat struct {
	info index.CreateInfo
	dim  int
	n    int
	data []byte
}

func newFlat(info index.CreateInfo, _ buildinfo.Config) (index.VectorCore, error) {
	if _, err := distance.Provider(info.MetricType); err != nil {
		return nil, err
	}
	return &Flat{info: info, dim: info.Dim}, nil
}

func (f *Flat) Dim() int                { return f.dim }
func (f *Flat) Metric() distance.Metric { return f.info.MetricType }
func (f *Flat) Count() int              { return f.n }

// Vector returns the encoded row i.
func (f *Flat) Vector(i int) []byte {
	rb := len(f.data) / max(f.n, 1)
	return f.data[i*rb : (i+1)*rb]
}

func (f *Flat) Train(_ context.Context, data *storage.FieldData) error {
	f.dim = data.Dim
	f.n = data.RowNum()
	f.data = bytes.Clone(data.Vectors)
	return nil
}

func (f *Flat) Serialize() (*index.BinarySet, error) {
	m, err := newMeta(f.info, f.dim, f.n).encode()
	if err != nil {
		return nil, err
	}
	set := index.NewBinarySet()
	set.Append(flatMetaKey, m)
	set.Append(flatDataKey, f.data)
	return set, nil
}

func (f *Flat) Load(set *index.BinarySet) error {
	m, err := decodeMeta(set, flatMetaKey, f.info)
	if err != nil {
		return err
	}
	rb, err := rowBytes(f.info, m.Dim)
	if err != nil {
		return err
	}
	data, err := rowBlob(set, flatDataKey, m.Count, rb)
	if err != nil {
		return err
	}
	f.dim, f.n, f.data = m.Dim, m.Count, bytes.Clone(data)
	return nil
}
