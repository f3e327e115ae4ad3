package index

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// SliceMetaKey names the blob describing sliced artifacts.
const SliceMetaKey = "SLICE_META"

type sliceMeta struct {
	Meta []sliceEntry `json:"meta"`
}

type sliceEntry struct {
	Name     string `json:"name"`
	SliceNum int    `json:"slice_num"`
	TotalLen int64  `json:"total_len"`
}

func sliceName(name string, i int) string { return name + "_" + strconv.Itoa(i) }

// Disassemble splits every blob larger than sliceSize bytes into numbered
// slices and records them in a SLICE_META blob. Sets that need no slicing
// are returned unchanged.
func Disassemble(set *BinarySet, sliceSize int64) *BinarySet {
	if sliceSize <= 0 {
		return set
	}
	var meta sliceMeta
	out := NewBinarySet()
	for _, b := range set.Blobs() {
		if int64(len(b.Data)) <= sliceSize {
			out.Append(b.Name, b.Data)
			continue
		}
		n := 0
		for off := int64(0); off < int64(len(b.Data)); off += sliceSize {
			end := min(off+sliceSize, int64(len(b.Data)))
			out.Append(sliceName(b.Name, n), b.Data[off:end])
			n++
		}
		meta.Meta = append(meta.Meta, sliceEntry{Name: b.Name, SliceNum: n, TotalLen: int64(len(b.Data))})
	}
	if len(meta.Meta) == 0 {
		return set
	}
	data, _ := json.Marshal(meta)
	out.Append(SliceMetaKey, data)
	return out
}

// Assemble reverses Disassemble. Sets without SLICE_META are returned unchanged.
func Assemble(set *BinarySet) (*BinarySet, error) {
	raw, ok := set.Get(SliceMetaKey)
	if !ok {
		return set, nil
	}
	var meta sliceMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptArtifact, SliceMetaKey, err)
	}

	sliced := make(map[string]struct{})
	joined := make(map[string][]byte, len(meta.Meta))
	for _, e := range meta.Meta {
		if e.SliceNum <= 0 || e.TotalLen < 0 {
			return nil, fmt.Errorf("%w: bad slice entry for %q", ErrCorruptArtifact, e.Name)
		}
		buf := make([]byte, 0, e.TotalLen)
		for i := range e.SliceNum {
			name := sliceName(e.Name, i)
			part, ok := set.Get(name)
			if !ok {
				return nil, fmt.Errorf("%w: missing slice %q", ErrCorruptArtifact, name)
			}
			buf = append(buf, part...)
			sliced[name] = struct{}{}
		}
		if int64(len(buf)) != e.TotalLen {
			return nil, fmt.Errorf("%w: %q has %d bytes, expected %d", ErrCorruptArtifact, e.Name, len(buf), e.TotalLen)
		}
		joined[e.Name] = buf
	}

	// A sliced blob takes the position of its first slice.
	first := make(map[string]string, len(joined))
	for name := range joined {
		first[sliceName(name, 0)] = name
	}
	out := NewBinarySet()
	for _, b := range set.Blobs() {
		if owner, ok := first[b.Name]; ok {
			out.Append(owner, joined[owner])
			continue
		}
		if _, ok := sliced[b.Name]; ok || b.Name == SliceMetaKey {
			continue
		}
		out.Append(b.Name, b.Data)
	}
	return out, nil
}
