package segindex

import (
	"fmt"
	"sync"
)

// Handles are opaque tokens. Zero is never issued.
type (
	BuildInfoHandle uint64
	IndexHandle     uint64
	BinarySetHandle uint64
)

type handleKind uint8

const (
	kindBuildInfo handleKind = iota + 1
	kindIndex
	kindBinarySet
)

func (k handleKind) String() string {
	switch k {
	case kindBuildInfo:
		return "build info"
	case kindIndex:
		return "index"
	case kindBinarySet:
		return "binary set"
	}
	return "unknown"
}

type handleEntry struct {
	kind  handleKind
	value any
}

// handleTable maps tokens to owned objects. Tokens share one sequence
// across kinds, so a token presented as the wrong kind is detected.
type handleTable struct {
	mu      sync.Mutex
	next    uint64
	entries map[uint64]handleEntry
}

func newHandleTable() *handleTable {
	return &handleTable{entries: make(map[uint64]handleEntry)}
}

func (t *handleTable) put(kind handleKind, v any) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.entries[t.next] = handleEntry{kind: kind, value: v}
	return t.next
}

func (t *handleTable) lookupLocked(kind handleKind, h uint64) (any, error) {
	if h == 0 {
		return nil, fmt.Errorf("%w: null %s handle", ErrInvalidHandle, kind)
	}
	e, ok := t.entries[h]
	if !ok {
		return nil, fmt.Errorf("%w: unknown %s handle %d", ErrInvalidHandle, kind, h)
	}
	if e.kind != kind {
		return nil, fmt.Errorf("%w: handle %d is a %s, not a %s", ErrInvalidHandle, h, e.kind, kind)
	}
	return e.value, nil
}

func (t *handleTable) get(kind handleKind, h uint64) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lookupLocked(kind, h)
}

func (t *handleTable) remove(kind handleKind, h uint64) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, err := t.lookupLocked(kind, h)
	if err != nil {
		return nil, err
	}
	delete(t.entries, h)
	return v, nil
}

// drain removes and returns every live entry.
func (t *handleTable) drain() []handleEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]handleEntry, 0, len(t.entries))
	for h, e := range t.entries {
		out = append(out, e)
		delete(t.entries, h)
	}
	return out
}

func (t *handleTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func lookup[T any](t *handleTable, kind handleKind, h uint64) (T, error) {
	var zero T
	v, err := t.get(kind, h)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: handle %d holds %T", ErrInvalidHandle, h, v)
	}
	return out, nil
}
