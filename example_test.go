package segindex_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/segindex"
	"github.com/hupe1980/segindex/schema"
	"github.com/hupe1980/segindex/storage"
	"github.com/hupe1980/segindex/wire"
)

// Example builds a sorted scalar index from an in-memory column and lists
// the blobs of its binary set.
func Example() {
	ctx := context.Background()
	b := segindex.New()
	defer b.Close()

	params := wire.EncodeParams([]wire.KeyValue{{Key: "index_type", Value: "STL_SORT"}})
	idx, st := b.CreateIndexV0(schema.Int64, nil, params)
	if !st.OK() {
		log.Fatal(st.Err())
	}
	defer b.DeleteIndex(idx)

	raw, err := storage.EncodeRaw(storage.NewInts(schema.Int64, []int64{5, 3, 9, 3, 1}))
	if err != nil {
		log.Fatal(err)
	}
	if st := b.BuildScalarIndex(ctx, idx, raw); !st.OK() {
		log.Fatal(st.Err())
	}

	set, st := b.SerializeIndexToBinarySet(ctx, idx)
	if !st.OK() {
		log.Fatal(st.Err())
	}
	defer b.DeleteBinarySet(set)

	keys, _ := b.GetBinarySetKeys(set)
	for _, k := range keys[:2] {
		size, _ := b.GetBinarySetValueSize(set, k)
		fmt.Println(k, size)
	}
	// Output:
	// index_data 60
	// index_length 8
}

// ExampleStatus shows how failures surface as status codes.
func ExampleStatus() {
	b := segindex.New()
	defer b.Close()

	params := wire.EncodeParams([]wire.KeyValue{{Key: "index_type", Value: "BITMAP"}})
	_, st := b.CreateIndexV0(schema.Double, nil, params)
	fmt.Println(st.Code)

	fmt.Println(b.DeleteIndex(42).Code)
	// Output:
	// UnsupportedType
	// InvalidHandle
}
