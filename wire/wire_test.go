package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestParamsRoundTripPreservesOrder(t *testing.T) {
	in := []KeyValue{{"index_type", "IVF_FLAT"}, {"nlist", "16"}, {"nlist", "32"}}
	out, err := DecodeParams(EncodeParams(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeParamsEmpty(t *testing.T) {
	out, err := DecodeParams(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDecodeParamsSkipsUnknownFields(t *testing.T) {
	msg := protowire.AppendTag(nil, 7, protowire.VarintType)
	msg = protowire.AppendVarint(msg, 99)
	msg = append(msg, EncodeParams([]KeyValue{{"dim", "8"}})...)

	out, err := DecodeParams(msg)
	require.NoError(t, err)
	assert.Equal(t, []KeyValue{{"dim", "8"}}, out)
}

func TestDecodeParamsMalformed(t *testing.T) {
	msg := EncodeParams([]KeyValue{{"metric_type", "L2"}})
	_, err := DecodeParams(msg[:len(msg)-1])
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeParams([]byte{0x08, 0x01})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestBoolArray(t *testing.T) {
	in := []bool{true, false, true, true}
	out, err := DecodeBoolArray(EncodeBoolArray(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	var unpacked []byte
	for _, v := range in {
		unpacked = protowire.AppendTag(unpacked, 1, protowire.VarintType)
		unpacked = protowire.AppendVarint(unpacked, protowire.EncodeBool(v))
	}
	out, err = DecodeBoolArray(unpacked)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestStringArray(t *testing.T) {
	in := []string{"a", "", "hello world"}
	out, err := DecodeStringArray(EncodeStringArray(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeStringArray([]byte{0x0a, 0x05, 'a'})
	assert.ErrorIs(t, err, ErrMalformed)
}
