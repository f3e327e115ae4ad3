// Package wire decodes and encodes the protobuf messages that cross the
// build boundary: parameter lists and scalar column payloads.
//
// The messages are small and fixed, so they are handled directly at the
// protobuf wire-format level with protowire:
//
//	message KeyValuePair { string key = 1; string value = 2; }
//	message IndexParams  { repeated KeyValuePair params = 1; }
//	message TypeParams   { repeated KeyValuePair params = 1; }
//	message BoolArray    { repeated bool data = 1; }
//	message StringArray  { repeated string data = 1; }
//
// Unknown fields are skipped. Truncated or malformed input yields ErrMalformed.
package wire
