package vector

import (
	"github.com/hupe1980/segindex/buildinfo"
	"github.com/hupe1980/segindex/distance"
	"github.com/hupe1980/segindex/index"
)

const (
	binFlatMetaKey = "bin_flat_meta"
	binFlatDataKey = "bin_flat_data"
)

// BinFlat keeps every bit vector in insertion order.
type BinFlat struct {
	Flat
	dist distance.FuncBytes
}

func newBinFlat(info index.CreateInfo, _ buildinfo.Config) (index.VectorCore, error) {
	fn, err := distance.ProviderBytes(info.MetricType)
	if err != nil {
		return nil, err
	}
	return &BinFlat{Flat: Flat{info: info, dim: info.Dim}, dist: fn}, nil
}

// Distance compares rows i and j with the index metric.
func (b *BinFlat) Distance(i, j int) float32 {
	return b.dist(b.Vector(i), b.Vector(j))
}

func (b *BinFlat) Serialize() (*index.BinarySet, error) {
	set, err := b.Flat.Serialize()
	if err != nil {
		return nil, err
	}
	return rename(set, map[string]string{flatMetaKey: binFlatMetaKey, flatDataKey: binFlatDataKey}), nil
}

func (b *BinFlat) Load(set *index.BinarySet) error {
	return b.Flat.Load(rename(set, map[string]string{binFlatMetaKey: flatMetaKey, binFlatDataKey: flatDataKey}))
}

// rename returns set with keys mapped through names.
func rename(set *index.BinarySet, names map[string]string) *index.BinarySet {
	out := index.NewBinarySet()
	for _, blob := range set.Blobs() {
		name := blob.Name
		if n, ok := names[name]; ok {
			name = n
		}
		out.Append(name, blob.Data)
	}
	return out
}
