package kmeans

import (
	"errors"
	"math"
	"math/rand"

	"github.com/hupe1980/segindex/distance"
)

// ErrTooFewVectors is returned when there are fewer vectors than clusters.
var ErrTooFewVectors = errors.New("kmeans: fewer vectors than clusters")

// Train returns k centroids flattened as k*dim floats.
func Train(vectors []float32, dim, k, maxIter int, seed int64) ([]float32, error) {
	if dim <= 0 || k <= 0 {
		return nil, errors.New("kmeans: dim and k must be positive")
	}
	n := len(vectors) / dim
	if n < k {
		return nil, ErrTooFewVectors
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := make([]float32, k*dim)
	perm := rng.Perm(n)
	for i := 0; i < k; i++ {
		copy(centroids[i*dim:(i+1)*dim], vectors[perm[i]*dim:(perm[i]+1)*dim])
	}

	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}
	counts := make([]int, k)
	sums := make([]float32, k*dim)

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i := 0; i < n; i++ {
			c := Assign(vectors[i*dim:(i+1)*dim], centroids, dim, distance.SquaredL2)
			if assignments[i] != c {
				assignments[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		clear(sums)
		clear(counts)
		for i := 0; i < n; i++ {
			c := assignments[i]
			vec := vectors[i*dim : (i+1)*dim]
			for d := 0; d < dim; d++ {
				sums[c*dim+d] += vec[d]
			}
			counts[c]++
		}
		for j := 0; j < k; j++ {
			if counts[j] == 0 {
				// Empty cluster: reseed from a random point.
				idx := rng.Intn(n)
				copy(centroids[j*dim:(j+1)*dim], vectors[idx*dim:(idx+1)*dim])
				continue
			}
			scale := 1 / float32(counts[j])
			for d := 0; d < dim; d++ {
				centroids[j*dim+d] = sums[j*dim+d] * scale
			}
		}
	}
	return centroids, nil
}

// Assign returns the index of the centroid closest to vec under fn. When no
// distance is comparable (all +Inf or NaN) the first centroid wins.
func Assign(vec, centroids []float32, dim int, fn distance.Func) int {
	best := 0
	minDist := float32(math.Inf(1))
	for j := 0; j < len(centroids)/dim; j++ {
		if d := fn(vec, centroids[j*dim:(j+1)*dim]); d < minDist {
			minDist = d
			best = j
		}
	}
	return best
}
