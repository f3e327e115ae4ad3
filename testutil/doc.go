// Package testutil provides deterministic data generators for tests.
//
// This package is intended for use in tests only.
//
//	rng := testutil.NewRNG(seed)
//	vecs := rng.FlatVectors(1000, 128)           // row-major float32
//	col := rng.FloatVectorData(1000, 128)        // *storage.FieldData
//	ints := rng.Int32Column(1000)
package testutil
