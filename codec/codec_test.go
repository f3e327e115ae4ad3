package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type descriptor struct {
	Name  string            `json:"name" msgpack:"name"`
	Rows  int64             `json:"rows" msgpack:"rows"`
	Attrs map[string]string `json:"attrs" msgpack:"attrs"`
}

func TestCodecsRoundTrip(t *testing.T) {
	in := descriptor{Name: "index_data", Rows: 1000, Attrs: map[string]string{"b": "2", "a": "1"}}
	for _, name := range []string{"json", "msgpack"} {
		t.Run(name, func(t *testing.T) {
			c, ok := ByName(name)
			require.True(t, ok)
			assert.Equal(t, name, c.Name())

			data, err := c.Marshal(in)
			require.NoError(t, err)
			var out descriptor
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestMsgPackDeterministicMaps(t *testing.T) {
	m := map[string]int{}
	for i, k := range []string{"z", "y", "x", "w", "v", "u", "t"} {
		m[k] = i
	}
	first := MustMarshal(MsgPack{}, m)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, MustMarshal(MsgPack{}, m))
	}
}

func TestMsgPackDeterministicNestedMaps(t *testing.T) {
	type fragment struct {
		Path string `msgpack:"path"`
		Rows int64  `msgpack:"rows"`
	}
	type manifest struct {
		Columns map[string][]fragment `msgpack:"columns"`
		Sizes   map[string]int64      `msgpack:"sizes"`
	}
	in := manifest{Columns: map[string][]fragment{}, Sizes: map[string]int64{}}
	for i, k := range []string{"pk", "embedding", "ts", "a", "zz", "m", "q", "b"} {
		in.Columns[k] = []fragment{{Path: k + "/0", Rows: int64(i)}}
		in.Sizes[k] = int64(i * 1000)
	}

	first, err := MsgPack{}.Marshal(in)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := MsgPack{}.Marshal(in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	var out manifest
	require.NoError(t, MsgPack{}.Unmarshal(first, &out))
	assert.Equal(t, in, out)
}

func TestByNameUnknown(t *testing.T) {
	_, ok := ByName("gob")
	assert.False(t, ok)
	assert.Equal(t, "msgpack", Default.Name())
}
