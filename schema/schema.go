// Package schema describes field data types and the column layout of a
// segment.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// DataType is the wire enum of a field's element type.
type DataType int32

const (
	None          DataType = 0
	Bool          DataType = 1
	Int8          DataType = 2
	Int16         DataType = 3
	Int32         DataType = 4
	Int64         DataType = 5
	Float         DataType = 10
	Double        DataType = 11
	String        DataType = 20
	VarChar       DataType = 21
	Array         DataType = 22
	JSON          DataType = 23
	BinaryVector  DataType = 100
	FloatVector   DataType = 101
	Float16Vector DataType = 102
)

var typeNames = map[DataType]string{
	None:          "None",
	Bool:          "Bool",
	Int8:          "Int8",
	Int16:         "Int16",
	Int32:         "Int32",
	Int64:         "Int64",
	Float:         "Float",
	Double:        "Double",
	String:        "String",
	VarChar:       "VarChar",
	Array:         "Array",
	JSON:          "JSON",
	BinaryVector:  "BinaryVector",
	FloatVector:   "FloatVector",
	Float16Vector: "Float16Vector",
}

func (t DataType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("DataType(%d)", int32(t))
}

// ParseDataType resolves a type name, case-insensitively.
func ParseDataType(s string) (DataType, error) {
	for t, name := range typeNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return None, fmt.Errorf("schema: unknown data type %q", s)
}

// IsVector reports whether t is a vector type.
func (t DataType) IsVector() bool {
	return t == BinaryVector || t == FloatVector || t == Float16Vector
}

// IsScalar reports whether t is a known non-vector type.
func (t DataType) IsScalar() bool {
	_, known := typeNames[t]
	return known && t != None && !t.IsVector()
}

// IsString reports whether t holds variable-length text.
func (t DataType) IsString() bool {
	return t == String || t == VarChar
}

// FixedWidth returns the element width in bytes for fixed-width scalars.
func (t DataType) FixedWidth() (int, bool) {
	switch t {
	case Bool, Int8:
		return 1, true
	case Int16:
		return 2, true
	case Int32, Float:
		return 4, true
	case Int64, Double:
		return 8, true
	}
	return 0, false
}

// VectorRowBytes returns the encoded size of one vector row of dimension dim.
func (t DataType) VectorRowBytes(dim int) (int, bool) {
	switch t {
	case FloatVector:
		return 4 * dim, true
	case Float16Vector:
		return 2 * dim, true
	case BinaryVector:
		return dim / 8, true
	}
	return 0, false
}

// Field describes one column.
type Field struct {
	Name string   `json:"name" yaml:"name" msgpack:"name"`
	Type DataType `json:"type" yaml:"type" msgpack:"type"`
	Dim  int      `json:"dim,omitempty" yaml:"dim,omitempty" msgpack:"dim,omitempty"`
}

// Schema is an ordered list of fields.
type Schema struct {
	Fields []Field `json:"fields" yaml:"fields" msgpack:"fields"`
}

// New returns a schema with the given fields.
func New(fields ...Field) *Schema {
	return &Schema{Fields: append([]Field(nil), fields...)}
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Equal reports whether both schemas have identical fields in the same order.
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.Fields) != len(o.Fields) {
		return false
	}
	for i := range s.Fields {
		if s.Fields[i] != o.Fields[i] {
			return false
		}
	}
	return true
}

// Validate checks names are unique and non-empty and vector fields have a dimension.
func (s *Schema) Validate() error {
	if s == nil || len(s.Fields) == 0 {
		return errors.New("schema: no fields")
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return errors.New("schema: empty field name")
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("schema: duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.Type == None {
			return fmt.Errorf("schema: field %q has no type", f.Name)
		}
		if f.Type.IsVector() && f.Dim <= 0 {
			return fmt.Errorf("schema: vector field %q needs a positive dim", f.Name)
		}
		if f.Type == BinaryVector && f.Dim%8 != 0 {
			return fmt.Errorf("schema: binary vector field %q dim %d is not a multiple of 8", f.Name, f.Dim)
		}
	}
	return nil
}
