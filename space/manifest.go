package space

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/segindex/blobstore"
	"github.com/hupe1980/segindex/codec"
	"github.com/hupe1980/segindex/internal/conv"
	"github.com/hupe1980/segindex/internal/hash"
	"github.com/hupe1980/segindex/schema"
)

const (
	manifestFileName = "MANIFEST"
	currentFileName  = "CURRENT"

	manifestMagic   = 0x53504D46 // "SPMF"
	manifestVersion = 1

	manifestHeaderSize = 16
)

// Fragment is one immutable piece of a column.
type Fragment struct {
	Path string `msgpack:"path"`
	Rows int64  `msgpack:"rows"`
	Size int64  `msgpack:"size"`
}

// BlobEntry records the object holding a named blob.
type BlobEntry struct {
	Path string `msgpack:"path"`
	Size int64  `msgpack:"size"`
}

// Manifest describes the space at one version.
type Manifest struct {
	Version   int64                 `msgpack:"version"`
	CreatedAt time.Time             `msgpack:"created_at"`
	Schema    *schema.Schema        `msgpack:"schema"`
	Columns   map[string][]Fragment `msgpack:"columns"`
	Blobs     map[string]BlobEntry  `msgpack:"blobs"`
}

func newManifest(s *schema.Schema) *Manifest {
	return &Manifest{
		CreatedAt: time.Now().UTC(),
		Schema:    s,
		Columns:   make(map[string][]Fragment),
		Blobs:     make(map[string]BlobEntry),
	}
}

// next returns a deep copy with the version incremented.
func (m *Manifest) next() *Manifest {
	n := &Manifest{
		Version:   m.Version + 1,
		CreatedAt: time.Now().UTC(),
		Schema:    m.Schema,
		Columns:   make(map[string][]Fragment, len(m.Columns)),
		Blobs:     make(map[string]BlobEntry, len(m.Blobs)),
	}
	for k, v := range m.Columns {
		n.Columns[k] = append([]Fragment(nil), v...)
	}
	for k, v := range m.Blobs {
		n.Blobs[k] = v
	}
	return n
}

// Rows returns the number of rows in column.
func (m *Manifest) Rows(column string) int64 {
	var n int64
	for _, f := range m.Columns[column] {
		n += f.Rows
	}
	return n
}

// BlobNames returns the recorded blob names in sorted order.
func (m *Manifest) BlobNames() []string {
	names := make([]string, 0, len(m.Blobs))
	for k := range m.Blobs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func manifestName(version int64) string {
	return fmt.Sprintf("%s-%06d.bin", manifestFileName, version)
}

func parseManifestName(name string) (int64, bool) {
	s, ok := strings.CutPrefix(name, manifestFileName+"-")
	if !ok {
		return 0, false
	}
	s, ok = strings.CutSuffix(s, ".bin")
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}

// marshalManifest writes the manifest in binary format.
// Format:
// Magic (4 bytes)
// Version (4 bytes)
// Checksum (4 bytes) - CRC32C of payload
// PayloadLength (4 bytes)
// Payload (msgpack)
func marshalManifest(m *Manifest) ([]byte, error) {
	payload, err := codec.MsgPack{}.Marshal(m)
	if err != nil {
		return nil, err
	}
	length, err := conv.Len32(payload)
	if err != nil {
		return nil, fmt.Errorf("space: manifest: %w", err)
	}
	out := make([]byte, manifestHeaderSize, manifestHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(out[0:4], manifestMagic)
	binary.LittleEndian.PutUint32(out[4:8], manifestVersion)
	binary.LittleEndian.PutUint32(out[8:12], hash.CRC32C(payload))
	binary.LittleEndian.PutUint32(out[12:16], length)
	return append(out, payload...), nil
}

func unmarshalManifest(data []byte) (*Manifest, error) {
	if len(data) < manifestHeaderSize {
		return nil, fmt.Errorf("%w: manifest truncated", ErrCorrupted)
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != manifestMagic {
		return nil, fmt.Errorf("%w: invalid manifest magic %x", ErrCorrupted, magic)
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != manifestVersion {
		return nil, fmt.Errorf("%w: unsupported manifest version %d", ErrCorrupted, v)
	}
	checksum := binary.LittleEndian.Uint32(data[8:12])
	length := binary.LittleEndian.Uint32(data[12:16])
	payload := data[manifestHeaderSize:]
	if uint64(len(payload)) != uint64(length) {
		return nil, fmt.Errorf("%w: manifest payload length", ErrCorrupted)
	}
	if hash.CRC32C(payload) != checksum {
		return nil, fmt.Errorf("%w: manifest checksum mismatch", ErrCorrupted)
	}
	m := &Manifest{}
	if err := (codec.MsgPack{}).Unmarshal(payload, m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if m.Columns == nil {
		m.Columns = make(map[string][]Fragment)
	}
	if m.Blobs == nil {
		m.Blobs = make(map[string]BlobEntry)
	}
	return m, nil
}

// manifestStore manages manifest files and CURRENT.
type manifestStore struct {
	store blobstore.BlobStore
}

// current returns the version CURRENT points at.
func (s *manifestStore) current(ctx context.Context) (int64, error) {
	content, err := blobstore.ReadAll(ctx, s.store, currentFileName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	v, ok := parseManifestName(strings.TrimSpace(string(content)))
	if !ok {
		return 0, fmt.Errorf("%w: CURRENT holds %q", ErrCorrupted, content)
	}
	return v, nil
}

// load reads a manifest. A negative version means latest.
func (s *manifestStore) load(ctx context.Context, version int64) (*Manifest, error) {
	if version < 0 {
		v, err := s.current(ctx)
		if err != nil {
			return nil, err
		}
		version = v
	}
	data, err := blobstore.ReadAll(ctx, s.store, manifestName(version))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrVersionNotFound, version)
		}
		return nil, err
	}
	m, err := unmarshalManifest(data)
	if err != nil {
		return nil, err
	}
	if m.Version != version {
		return nil, fmt.Errorf("%w: %s holds version %d", ErrCorrupted, manifestName(version), m.Version)
	}
	return m, nil
}

// save writes m and then points CURRENT at it. base is the version the
// caller built m from, -1 for a new space.
func (s *manifestStore) save(ctx context.Context, base int64, m *Manifest) error {
	cur, err := s.current(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		cur = -1
	case err != nil:
		return err
	}
	if cur != base {
		return fmt.Errorf("%w: CURRENT is at version %d, expected %d", ErrConflict, cur, base)
	}

	data, err := marshalManifest(m)
	if err != nil {
		return err
	}
	name := manifestName(m.Version)
	if err := s.store.Put(ctx, name, data); err != nil {
		return err
	}
	return s.store.Put(ctx, currentFileName, []byte(name))
}

// list returns every readable manifest in version order. Unreadable
// manifests are skipped.
func (s *manifestStore) list(ctx context.Context) ([]*Manifest, error) {
	names, err := s.store.List(ctx, manifestFileName)
	if err != nil {
		return nil, err
	}
	var out []*Manifest
	for _, name := range names {
		v, ok := parseManifestName(name)
		if !ok {
			continue
		}
		m, err := s.load(ctx, v)
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}
