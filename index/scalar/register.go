package scalar

import (
	"slices"

	"github.com/hupe1980/segindex/index"
	"github.com/hupe1980/segindex/schema"
)

// Index type names.
const (
	TypeSort   = "STL_SORT"
	TypeBitmap = "BITMAP"
)

func init() {
	ints := []schema.DataType{schema.Int8, schema.Int16, schema.Int32, schema.Int64}
	strs := []schema.DataType{schema.String, schema.VarChar}

	index.RegisterScalar(TypeSort, slices.Concat(ints, []schema.DataType{schema.Float, schema.Double}, strs), newSort)
	index.RegisterScalar(TypeBitmap, slices.Concat([]schema.DataType{schema.Bool}, ints, strs), newBitmap)
}

