// Package vector implements the vector index variants.
//
//   - FLAT: raw vectors, exact. FloatVector and Float16Vector; L2, IP, COSINE.
//   - IVF_FLAT: k-means coarse quantizer with inverted lists of raw vectors.
//     FloatVector and Float16Vector; L2, IP, COSINE. Params: nlist, max_iter.
//   - BIN_FLAT: raw bit vectors. BinaryVector; HAMMING, JACCARD.
//
// Importing the package registers every variant with the index factory.
// Vectors are stored in their input encoding, so Float16 indexes keep their
// half-precision rows; training widens them to float32.
package vector
