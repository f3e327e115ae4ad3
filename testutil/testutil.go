package testutil

import (
	"math"
	"math/rand"
	"strconv"
	"sync"

	"github.com/hupe1980/segindex/internal/f16"
	"github.com/hupe1980/segindex/schema"
	"github.com/hupe1980/segindex/storage"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// FillUniform fills dst with random values in range [0, 1).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// FlatVectors returns num row-major vectors with values in [0, 1).
func (r *RNG) FlatVectors(num, dim int) []float32 {
	out := make([]float32, num*dim)
	r.FillUniform(out)
	return out
}

// ClusteredVectors returns num row-major vectors spread around clusters
// unit-length centroids.
func (r *RNG) ClusteredVectors(num, dim, clusters int, spread float32) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	centroids := make([]float32, clusters*dim)
	for c := range clusters {
		vec := centroids[c*dim : (c+1)*dim]
		var norm float64
		for j := range vec {
			v := r.rand.NormFloat64()
			vec[j] = float32(v)
			norm += v * v
		}
		if norm == 0 {
			norm = 1
		}
		inv := float32(1 / math.Sqrt(norm))
		for j := range vec {
			vec[j] *= inv
		}
	}

	out := make([]float32, num*dim)
	for i := range num {
		c := centroids[(i%clusters)*dim:]
		for j := range dim {
			out[i*dim+j] = c[j] + float32(r.rand.NormFloat64())*spread
		}
	}
	return out
}

// FloatVectorData returns a FloatVector column.
func (r *RNG) FloatVectorData(num, dim int) *storage.FieldData {
	return storage.NewFloatVectors(dim, r.FlatVectors(num, dim))
}

// Float16VectorData returns a Float16Vector column.
func (r *RNG) Float16VectorData(num, dim int) *storage.FieldData {
	return storage.NewVectors(schema.Float16Vector, dim, f16.EncodeBytes(r.FlatVectors(num, dim)))
}

// BinaryVectorData returns a BinaryVector column. dim must be a multiple of 8.
func (r *RNG) BinaryVectorData(num, dim int) *storage.FieldData {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw := make([]byte, num*dim/8)
	r.rand.Read(raw)
	return storage.NewVectors(schema.BinaryVector, dim, raw)
}

// IntColumn returns num values of type dt drawn from [0, cardinality).
func (r *RNG) IntColumn(dt schema.DataType, num, cardinality int) *storage.FieldData {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, num)
	for i := range out {
		out[i] = int64(r.rand.Intn(cardinality))
	}
	return storage.NewInts(dt, out)
}

// Int32Column returns num Int32 values spanning the full int32 range.
func (r *RNG) Int32Column(num int) *storage.FieldData {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, num)
	for i := range out {
		out[i] = int64(int32(r.rand.Uint32()))
	}
	return storage.NewInts(schema.Int32, out)
}

// DoubleColumn returns num Double values in [-1000, 1000).
func (r *RNG) DoubleColumn(num int) *storage.FieldData {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, num)
	for i := range out {
		out[i] = r.rand.Float64()*2000 - 1000
	}
	return storage.NewFloats(schema.Double, out)
}

// StringColumn returns num VarChar values drawn from cardinality distinct strings.
func (r *RNG) StringColumn(num, cardinality int) *storage.FieldData {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, num)
	for i := range out {
		out[i] = "value-" + strconv.Itoa(r.rand.Intn(cardinality))
	}
	return storage.NewStrings(schema.VarChar, out)
}

// BoolColumn returns num Bool values where each is true with probability p.
func (r *RNG) BoolColumn(num int, p float64) *storage.FieldData {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bool, num)
	for i := range out {
		out[i] = r.rand.Float64() < p
	}
	return storage.NewBools(out)
}
