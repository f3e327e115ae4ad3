package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/segindex/buildinfo"
	"github.com/hupe1980/segindex/distance"
	"github.com/hupe1980/segindex/index"
	"github.com/hupe1980/segindex/internal/conv"
	"github.com/hupe1980/segindex/internal/kmeans"
	"github.com/hupe1980/segindex/storage"
)

const (
	ivfMetaKey      = "ivf_meta"
	ivfCentroidsKey = "ivf_centroids"
	ivfListsKey     = "ivf_lists"
	ivfDataKey      = "ivf_data"

	defaultNList   = 128
	defaultMaxIter = 25
	trainSeed      = 1
)

// IVFFlat partitions vectors by their nearest k-means centroid.
type IVFFlat struct {
	info    index.CreateInfo
	dist    distance.Func
	nlist   int
	maxIter int

	dim       int
	n         int
	centroids []float32
	lists     [][]uint32
	data      []byte // rows in list order
}

func newIVFFlat(info index.CreateInfo, cfg buildinfo.Config) (index.VectorCore, error) {
	fn, err := distance.Provider(info.MetricType)
	if err != nil {
		return nil, err
	}
	ivf := &IVFFlat{info: info, dist: fn, nlist: cfg.NList, maxIter: cfg.MaxIter, dim: info.Dim}
	if ivf.nlist == 0 {
		ivf.nlist = defaultNList
	}
	if ivf.maxIter == 0 {
		ivf.maxIter = defaultMaxIter
	}
	return ivf, nil
}

func (v *IVFFlat) Dim() int                { return v.dim }
func (v *IVFFlat) Metric() distance.Metric { return v.info.MetricType }
func (v *IVFFlat) Count() int              { return v.n }

// NList returns the number of inverted lists.
func (v *IVFFlat) NList() int { return len(v.lists) }

// List returns the row ids assigned to list i.
func (v *IVFFlat) List(i int) []uint32 { return v.lists[i] }

// Centroid returns centroid i.
func (v *IVFFlat) Centroid(i int) []float32 { return v.centroids[i*v.dim : (i+1)*v.dim] }

func (v *IVFFlat) Train(ctx context.Context, data *storage.FieldData) error {
	vecs, err := data.FloatVectors()
	if err != nil {
		return fmt.Errorf("%w: %v", index.ErrInvalidDataset, err)
	}
	dim, n := data.Dim, data.RowNum()
	rb, err := rowBytes(v.info, dim)
	if err != nil {
		return err
	}

	if _, err := conv.IntToUint32(n); err != nil {
		return fmt.Errorf("%w: %v", index.ErrInvalidDataset, err)
	}
	k := min(v.nlist, n)
	centroids, err := kmeans.Train(vecs, dim, k, v.maxIter, trainSeed)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	lists := make([][]uint32, k)
	var row uint32
	for i := range n {
		c := kmeans.Assign(vecs[i*dim:(i+1)*dim], centroids, dim, v.dist)
		lists[c] = append(lists[c], row)
		row++
	}
	ordered := make([]byte, 0, len(data.Vectors))
	for _, ids := range lists {
		for _, id := range ids {
			ordered = append(ordered, data.Vectors[int(id)*rb:(int(id)+1)*rb]...)
		}
	}

	v.dim, v.n = dim, n
	v.centroids, v.lists, v.data = centroids, lists, ordered
	return nil
}

func (v *IVFFlat) Serialize() (*index.BinarySet, error) {
	m := newMeta(v.info, v.dim, v.n)
	m.NList = len(v.lists)
	mb, err := m.encode()
	if err != nil {
		return nil, err
	}

	cb := make([]byte, 4*len(v.centroids))
	for i, c := range v.centroids {
		binary.LittleEndian.PutUint32(cb[4*i:], math.Float32bits(c))
	}

	// lists: per list u32 length followed by u32 row ids.
	lb := make([]byte, 0, 4*(len(v.lists)+v.n))
	for _, ids := range v.lists {
		n, err := conv.Len32(ids)
		if err != nil {
			return nil, err
		}
		lb = binary.LittleEndian.AppendUint32(lb, n)
		for _, id := range ids {
			lb = binary.LittleEndian.AppendUint32(lb, id)
		}
	}

	set := index.NewBinarySet()
	set.Append(ivfMetaKey, mb)
	set.Append(ivfCentroidsKey, cb)
	set.Append(ivfListsKey, lb)
	set.Append(ivfDataKey, v.data)
	return set, nil
}

func (v *IVFFlat) Load(set *index.BinarySet) error {
	m, err := decodeMeta(set, ivfMetaKey, v.info)
	if err != nil {
		return err
	}
	if m.NList <= 0 || m.NList > max(m.Count, 1) {
		return fmt.Errorf("%w: nlist %d for %d rows", index.ErrCorruptArtifact, m.NList, m.Count)
	}
	rb, err := rowBytes(v.info, m.Dim)
	if err != nil {
		return err
	}

	cb, err := rowBlob(set, ivfCentroidsKey, m.NList, 4*m.Dim)
	if err != nil {
		return err
	}
	centroids := make([]float32, m.NList*m.Dim)
	for i := range centroids {
		centroids[i] = math.Float32frombits(binary.LittleEndian.Uint32(cb[4*i:]))
	}

	lb, ok := set.Get(ivfListsKey)
	if !ok {
		return fmt.Errorf("%w: missing %q", index.ErrCorruptArtifact, ivfListsKey)
	}
	lists, err := decodeLists(lb, m.NList, m.Count)
	if err != nil {
		return err
	}

	data, err := rowBlob(set, ivfDataKey, m.Count, rb)
	if err != nil {
		return err
	}

	v.dim, v.n = m.Dim, m.Count
	v.centroids, v.lists = centroids, lists
	v.data = append([]byte(nil), data...)
	return nil
}

func decodeLists(b []byte, nlist, count int) ([][]uint32, error) {
	lists := make([][]uint32, nlist)
	seen := 0
	for i := range lists {
		if len(b) < 4 {
			return nil, fmt.Errorf("%w: %s truncated", index.ErrCorruptArtifact, ivfListsKey)
		}
		n := int(binary.LittleEndian.Uint32(b))
		b = b[4:]
		if n > count-seen || len(b) < 4*n {
			return nil, fmt.Errorf("%w: %s list %d overflows", index.ErrCorruptArtifact, ivfListsKey, i)
		}
		ids := make([]uint32, n)
		for j := range ids {
			ids[j] = binary.LittleEndian.Uint32(b[4*j:])
			if int(ids[j]) >= count {
				return nil, fmt.Errorf("%w: %s row id %d out of range", index.ErrCorruptArtifact, ivfListsKey, ids[j])
			}
		}
		b = b[4*n:]
		lists[i] = ids
		seen += n
	}
	if seen != count || len(b) != 0 {
		return nil, fmt.Errorf("%w: %s covers %d of %d rows", index.ErrCorruptArtifact, ivfListsKey, seen, count)
	}
	return lists, nil
}
