// Package conv provides overflow-checked integer conversions.
//
// Sizes and counts cross the boundary as int64 and are persisted as fixed-width
// unsigned fields; every narrowing conversion goes through this package so that
// corrupt or hostile inputs surface as errors instead of silent truncation.
package conv
