// Package scalar implements the scalar index variants.
//
//   - STL_SORT: (value, row) pairs sorted by value. Int8..Int64, Float,
//     Double, String and VarChar.
//   - BITMAP: one roaring posting list per distinct value. Bool columns are
//     kept as a single dense bitset. Bool, Int8..Int64, String and VarChar.
//
// Importing the package registers both variants with the index factory.
// Rows are addressed by their uint32 offset in the build input.
package scalar
