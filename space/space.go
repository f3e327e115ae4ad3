package space

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"sync"

	"github.com/hupe1980/segindex/blobstore"
	"github.com/hupe1980/segindex/schema"
	"github.com/hupe1980/segindex/storage"
	"golang.org/x/sync/errgroup"
)

// Options configures Open.
type Options struct {
	// Schema is required to create a space and, when set, must equal the
	// schema of an existing one.
	Schema *schema.Schema

	// Version pins reads to a manifest version. Zero or negative means latest.
	Version int64
}

// Space is a handle on one version of a space. Writes commit new versions
// and move the handle to them.
type Space struct {
	store     blobstore.BlobStore
	manifests *manifestStore

	mu       sync.RWMutex
	manifest *Manifest
}

// Open opens the space stored in store, creating it when it does not exist
// and opts.Schema is set.
func Open(ctx context.Context, store blobstore.BlobStore, opts Options) (*Space, error) {
	ms := &manifestStore{store: store}
	sp := &Space{store: store, manifests: ms}

	latest := int64(-1)
	if opts.Version > 0 {
		latest = opts.Version
	}
	m, err := ms.load(ctx, latest)
	switch {
	case errors.Is(err, ErrNotFound):
		if opts.Schema == nil {
			return nil, ErrNotFound
		}
		if err := opts.Schema.Validate(); err != nil {
			return nil, err
		}
		m = newManifest(opts.Schema)
		if err := ms.save(ctx, -1, m); err != nil {
			return nil, fmt.Errorf("space: create: %w", err)
		}
	case err != nil:
		return nil, err
	case opts.Schema != nil && !opts.Schema.Equal(m.Schema):
		return nil, ErrSchemaMismatch
	}

	sp.manifest = m
	return sp, nil
}

// Versions returns the manifests of every committed version.
func Versions(ctx context.Context, store blobstore.BlobStore) ([]*Manifest, error) {
	return (&manifestStore{store: store}).list(ctx)
}

// Version returns the version the handle is positioned at.
func (s *Space) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest.Version
}

// Schema returns the space schema.
func (s *Space) Schema() *schema.Schema {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest.Schema
}

// Manifest returns the manifest of the pinned version.
func (s *Space) Manifest() *Manifest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest
}

// Write appends one fragment per column and commits a new version. All
// columns must belong to the schema and have the same row count.
func (s *Space) Write(ctx context.Context, columns map[string]*storage.FieldData) (int64, error) {
	if len(columns) == 0 {
		return 0, errors.New("space: no columns to write")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := -1
	for name, fd := range columns {
		f, ok := s.manifest.Schema.Field(name)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		if f.Type != fd.Type || (f.Type.IsVector() && f.Dim != fd.Dim) {
			return 0, fmt.Errorf("%w: column %q is %s/%d, got %s/%d", ErrSchemaMismatch, name, f.Type, f.Dim, fd.Type, fd.Dim)
		}
		if rows >= 0 && fd.RowNum() != rows {
			return 0, fmt.Errorf("space: column %q has %d rows, expected %d", name, fd.RowNum(), rows)
		}
		rows = fd.RowNum()
	}

	next := s.manifest.next()
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	frags := make([]Fragment, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			data, err := encodeFragment(columns[name])
			if err != nil {
				return err
			}
			p := path.Join("data", name, fmt.Sprintf("%06d-%d.col", next.Version, len(next.Columns[name])))
			if err := s.store.Put(gctx, p, data); err != nil {
				return err
			}
			frags[i] = Fragment{Path: p, Rows: int64(rows), Size: int64(len(data))}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	for i, name := range names {
		next.Columns[name] = append(next.Columns[name], frags[i])
	}
	return s.commitLocked(ctx, next)
}

// Read concatenates every fragment of column at the pinned version.
func (s *Space) Read(ctx context.Context, column string) (*storage.FieldData, error) {
	s.mu.RLock()
	m := s.manifest
	s.mu.RUnlock()

	f, ok := m.Schema.Field(column)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	frags := m.Columns[column]
	parts := make([]*storage.FieldData, len(frags))
	g, gctx := errgroup.WithContext(ctx)
	for i, frag := range frags {
		g.Go(func() error {
			data, err := blobstore.ReadAll(gctx, s.store, frag.Path)
			if err != nil {
				return err
			}
			fd, err := decodeFragment(data)
			if err != nil {
				return fmt.Errorf("%s: %w", frag.Path, err)
			}
			parts[i] = fd
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &storage.FieldData{Type: f.Type, Dim: f.Dim}
	for _, p := range parts {
		if err := out.Merge(p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
		}
	}
	return out, nil
}

// WriteBlob stores a named blob and commits a new version. Without replace
// an existing name is rejected with ErrBlobExists.
func (s *Space) WriteBlob(ctx context.Context, name string, data []byte, replace bool) (int64, error) {
	return s.writeBlobs(ctx, []storage.Artifact{{Key: name, Data: data}}, replace)
}

// CommitBlobs stores every artifact, replacing existing names, in a single
// new version.
func (s *Space) CommitBlobs(ctx context.Context, artifacts []storage.Artifact) (int64, error) {
	return s.writeBlobs(ctx, artifacts, true)
}

func (s *Space) writeBlobs(ctx context.Context, artifacts []storage.Artifact, replace bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !replace {
		for _, a := range artifacts {
			if _, ok := s.manifest.Blobs[a.Key]; ok {
				return 0, fmt.Errorf("%w: %q", ErrBlobExists, a.Key)
			}
		}
	}

	next := s.manifest.next()
	entries := make([]BlobEntry, len(artifacts))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range artifacts {
		g.Go(func() error {
			p := path.Join("blobs", a.Key, fmt.Sprintf("%06d", next.Version))
			if err := s.store.Put(gctx, p, a.Data); err != nil {
				return err
			}
			entries[i] = BlobEntry{Path: p, Size: int64(len(a.Data))}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	for i, a := range artifacts {
		next.Blobs[a.Key] = entries[i]
	}
	return s.commitLocked(ctx, next)
}

// ReadBlob returns a blob recorded in the pinned version.
func (s *Space) ReadBlob(ctx context.Context, name string) ([]byte, error) {
	e, err := s.StatBlob(name)
	if err != nil {
		return nil, err
	}
	return blobstore.ReadAll(ctx, s.store, e.Path)
}

// StatBlob returns the manifest entry of a blob.
func (s *Space) StatBlob(name string) (BlobEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.manifest.Blobs[name]
	if !ok {
		return BlobEntry{}, fmt.Errorf("%w: %q", ErrBlobNotFound, name)
	}
	return e, nil
}

func (s *Space) commitLocked(ctx context.Context, next *Manifest) (int64, error) {
	if err := s.manifests.save(ctx, s.manifest.Version, next); err != nil {
		return 0, err
	}
	s.manifest = next
	return next.Version, nil
}
