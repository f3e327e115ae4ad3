// Package distance provides the similarity metrics accepted by vector indexes.
//
// Metrics are named by their wire spelling (L2, IP, COSINE, HAMMING,
// JACCARD). Every Func returns a value where smaller means closer, so inner
// product and cosine similarity are negated.
//
//	m, err := distance.ParseMetric("L2")
//	fn, err := distance.Provider(m)
//	d := fn(a, b)
package distance
