// Package codec encodes the structured descriptors stored next to binary
// payloads (binlog headers, index file descriptors, scalar index metadata).
//
// Every envelope records the name of the codec that wrote it and is decoded
// with ByName, so changing Default only affects newly written files.
package codec

import "fmt"

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use and deterministic for a given value.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "msgpack":
		return MsgPack{}, true
	default:
		return nil, false
	}
}

// MustMarshal marshals v with c (Default when nil) and panics on error.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}

// Default is the codec used for newly written descriptors.
var Default Codec = MsgPack{}
