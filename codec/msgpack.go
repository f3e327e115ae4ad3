package codec

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgPack is a compact binary codec. Map keys are sorted so output is stable.
type MsgPack struct{}

// Marshal encodes the value to MessagePack.
//
// The encoder only sorts map[string]string, map[string]bool and
// map[string]interface{} keys, so the value is first decoded into its generic
// form, which holds every string-keyed map as map[string]interface{}, and
// encoded again from there.
func (MsgPack) Marshal(v any) ([]byte, error) {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := msgpack.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes MessagePack data into v.
func (MsgPack) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

// Name returns "msgpack".
func (MsgPack) Name() string { return "msgpack" }
