package index

import (
	"bytes"

	"github.com/hupe1980/segindex/storage"
)

// Blob is one named binary artifact.
type Blob struct {
	Name string
	Data []byte
}

// BinarySet is an ordered set of named blobs. Appending an existing name
// replaces its data in place.
type BinarySet struct {
	blobs []Blob
	pos   map[string]int
}

// NewBinarySet returns an empty set.
func NewBinarySet() *BinarySet {
	return &BinarySet{pos: make(map[string]int)}
}

// Append adds or replaces a blob.
func (s *BinarySet) Append(name string, data []byte) {
	if i, ok := s.pos[name]; ok {
		s.blobs[i].Data = data
		return
	}
	s.pos[name] = len(s.blobs)
	s.blobs = append(s.blobs, Blob{Name: name, Data: data})
}

// Get returns a blob's data.
func (s *BinarySet) Get(name string) ([]byte, bool) {
	i, ok := s.pos[name]
	if !ok {
		return nil, false
	}
	return s.blobs[i].Data, true
}

// Contains reports whether name is present.
func (s *BinarySet) Contains(name string) bool {
	_, ok := s.pos[name]
	return ok
}

// Keys returns blob names in insertion order.
func (s *BinarySet) Keys() []string {
	keys := make([]string, len(s.blobs))
	for i, b := range s.blobs {
		keys[i] = b.Name
	}
	return keys
}

// Len returns the number of blobs.
func (s *BinarySet) Len() int { return len(s.blobs) }

// Size returns the total size of all blobs in bytes.
func (s *BinarySet) Size() int64 {
	var n int64
	for _, b := range s.blobs {
		n += int64(len(b.Data))
	}
	return n
}

// Blobs returns the blobs in insertion order. The slice must not be modified.
func (s *BinarySet) Blobs() []Blob { return s.blobs }

// Clone returns a deep copy.
func (s *BinarySet) Clone() *BinarySet {
	c := NewBinarySet()
	for _, b := range s.blobs {
		c.Append(b.Name, bytes.Clone(b.Data))
	}
	return c
}

// Equal reports whether both sets hold the same names in the same order
// with identical contents.
func (s *BinarySet) Equal(o *BinarySet) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.blobs) != len(o.blobs) {
		return false
	}
	for i := range s.blobs {
		if s.blobs[i].Name != o.blobs[i].Name || !bytes.Equal(s.blobs[i].Data, o.blobs[i].Data) {
			return false
		}
	}
	return true
}

// Artifacts converts the set for the storage upload helpers.
func (s *BinarySet) Artifacts() []storage.Artifact {
	out := make([]storage.Artifact, len(s.blobs))
	for i, b := range s.blobs {
		out[i] = storage.Artifact{Key: b.Name, Data: b.Data}
	}
	return out
}
