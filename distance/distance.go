package distance

import (
	"fmt"
	"math"
	"math/bits"
	"strings"
)

// Metric represents the distance metric used for vector comparison.
type Metric int

const (
	MetricUnknown Metric = iota
	MetricL2
	MetricIP
	MetricCosine
	MetricHamming
	MetricJaccard
)

var metricNames = map[Metric]string{
	MetricL2:      "L2",
	MetricIP:      "IP",
	MetricCosine:  "COSINE",
	MetricHamming: "HAMMING",
	MetricJaccard: "JACCARD",
}

func (m Metric) String() string {
	if s, ok := metricNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Unknown(%d)", int(m))
}

// ParseMetric resolves a metric_type parameter value. Matching is case-insensitive.
func ParseMetric(s string) (Metric, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	for m, name := range metricNames {
		if name == u {
			return m, nil
		}
	}
	return MetricUnknown, fmt.Errorf("distance: unknown metric %q", s)
}

// IsBinary reports whether m operates on packed bit vectors.
func (m Metric) IsBinary() bool {
	return m == MetricHamming || m == MetricJaccard
}

// Func computes a distance between two float vectors of equal length.
type Func func(a, b []float32) float32

// FuncBytes computes a distance between two packed bit vectors of equal length.
type FuncBytes func(a, b []byte) float32

// Dot calculates the dot product of two vectors.
func Dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// SquaredL2 calculates the squared Euclidean distance between two vectors.
func SquaredL2(a, b []float32) float32 {
	var s float32
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

// NegDot is Dot negated so that larger inner products sort first.
func NegDot(a, b []float32) float32 { return -Dot(a, b) }

// CosineDistance returns 1 - cos(a, b). Zero vectors are maximally distant.
func CosineDistance(a, b []float32) float32 {
	na, nb := Dot(a, a), Dot(b, b)
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - Dot(a, b)/float32(math.Sqrt(float64(na)*float64(nb)))
}

// Hamming counts differing bits.
func Hamming(a, b []byte) float32 {
	n := 0
	for i := range a {
		n += bits.OnesCount8(a[i] ^ b[i])
	}
	return float32(n)
}

// Jaccard returns 1 - |a AND b| / |a OR b| over the bit sets.
func Jaccard(a, b []byte) float32 {
	inter, union := 0, 0
	for i := range a {
		inter += bits.OnesCount8(a[i] & b[i])
		union += bits.OnesCount8(a[i] | b[i])
	}
	if union == 0 {
		return 0
	}
	return 1 - float32(inter)/float32(union)
}

// Provider returns the distance function for a float metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricL2:
		return SquaredL2, nil
	case MetricIP:
		return NegDot, nil
	case MetricCosine:
		return CosineDistance, nil
	default:
		return nil, fmt.Errorf("distance: unsupported metric for float vectors: %v", m)
	}
}

// ProviderBytes returns the distance function for a binary metric.
func ProviderBytes(m Metric) (FuncBytes, error) {
	switch m {
	case MetricHamming:
		return Hamming, nil
	case MetricJaccard:
		return Jaccard, nil
	default:
		return nil, fmt.Errorf("distance: unsupported metric for binary vectors: %v", m)
	}
}
