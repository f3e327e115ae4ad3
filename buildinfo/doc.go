// Package buildinfo accumulates the parameters of one index build.
//
// A BuildInfo is created with a storage configuration snapshot and then
// filled through Append calls in any order. Scalar fields and config keys
// follow last-write-wins; insert files accumulate. When the build starts,
// Snapshot takes the one-time independent copy that the index consumes and
// ParseConfig turns the flat string map into a typed Config.
package buildinfo
