package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned for input that is not a valid message.
var ErrMalformed = errors.New("wire: malformed message")

// KeyValue is one decoded parameter pair.
type KeyValue struct {
	Key   string
	Value string
}

func malformed(n int) error {
	return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
}

// walk calls fn for every top-level field of msg; fn returns the bytes it consumed
// or -1 to request the field be skipped.
func walk(msg []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(msg) > 0 {
		num, typ, n := protowire.ConsumeTag(msg)
		if n < 0 {
			return malformed(n)
		}
		msg = msg[n:]
		m, err := fn(num, typ, msg)
		if err != nil {
			return err
		}
		if m < 0 {
			m = protowire.ConsumeFieldValue(num, typ, msg)
			if m < 0 {
				return malformed(m)
			}
		}
		msg = msg[m:]
	}
	return nil
}

// DecodeParams decodes an IndexParams or TypeParams message, preserving order.
func DecodeParams(msg []byte) ([]KeyValue, error) {
	var out []KeyValue
	err := walk(msg, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return -1, nil
		}
		if typ != protowire.BytesType {
			return 0, fmt.Errorf("%w: params field has wire type %d", ErrMalformed, typ)
		}
		pair, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, malformed(n)
		}
		kv, err := decodeKeyValue(pair)
		if err != nil {
			return 0, err
		}
		out = append(out, kv)
		return n, nil
	})
	return out, err
}

func decodeKeyValue(msg []byte) (KeyValue, error) {
	var kv KeyValue
	err := walk(msg, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 && num != 2 {
			return -1, nil
		}
		if typ != protowire.BytesType {
			return 0, fmt.Errorf("%w: key/value has wire type %d", ErrMalformed, typ)
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, malformed(n)
		}
		if num == 1 {
			kv.Key = string(v)
		} else {
			kv.Value = string(v)
		}
		return n, nil
	})
	return kv, err
}

// EncodeParams encodes pairs as an IndexParams/TypeParams message.
func EncodeParams(pairs []KeyValue) []byte {
	var out []byte
	for _, kv := range pairs {
		var pair []byte
		pair = protowire.AppendTag(pair, 1, protowire.BytesType)
		pair = protowire.AppendString(pair, kv.Key)
		pair = protowire.AppendTag(pair, 2, protowire.BytesType)
		pair = protowire.AppendString(pair, kv.Value)
		out = protowire.AppendTag(out, 1, protowire.BytesType)
		out = protowire.AppendBytes(out, pair)
	}
	return out
}

// DecodeBoolArray decodes a BoolArray message. Packed and unpacked encodings are accepted.
func DecodeBoolArray(msg []byte) ([]bool, error) {
	var out []bool
	err := walk(msg, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return -1, nil
		}
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, malformed(n)
			}
			out = append(out, protowire.DecodeBool(v))
			return n, nil
		case protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, malformed(n)
			}
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return 0, malformed(m)
				}
				out = append(out, protowire.DecodeBool(v))
				packed = packed[m:]
			}
			return n, nil
		default:
			return 0, fmt.Errorf("%w: bool data has wire type %d", ErrMalformed, typ)
		}
	})
	return out, err
}

// EncodeBoolArray encodes data as a packed BoolArray message.
func EncodeBoolArray(data []bool) []byte {
	if len(data) == 0 {
		return nil
	}
	packed := make([]byte, 0, len(data))
	for _, v := range data {
		packed = protowire.AppendVarint(packed, protowire.EncodeBool(v))
	}
	out := protowire.AppendTag(nil, 1, protowire.BytesType)
	return protowire.AppendBytes(out, packed)
}

// DecodeStringArray decodes a StringArray message.
func DecodeStringArray(msg []byte) ([]string, error) {
	var out []string
	err := walk(msg, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return -1, nil
		}
		if typ != protowire.BytesType {
			return 0, fmt.Errorf("%w: string data has wire type %d", ErrMalformed, typ)
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, malformed(n)
		}
		out = append(out, string(v))
		return n, nil
	})
	return out, err
}

// EncodeStringArray encodes data as a StringArray message.
func EncodeStringArray(data []string) []byte {
	var out []byte
	for _, s := range data {
		out = protowire.AppendTag(out, 1, protowire.BytesType)
		out = protowire.AppendString(out, s)
	}
	return out
}
