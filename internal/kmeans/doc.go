// Package kmeans trains IVF coarse quantizers with Lloyd's algorithm.
//
// Training is seeded so that the same input always yields the same centroids,
// which keeps serialized IVF indexes byte-stable across rebuilds.
package kmeans
