package blobstore

import (
	"context"
	"path"
	"strings"
)

type prefixed struct {
	inner  BlobStore
	prefix string
}

// Prefixed returns a view of store where every name is placed under prefix.
func Prefixed(store BlobStore, prefix string) BlobStore {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return store
	}
	if p, ok := store.(*prefixed); ok {
		return &prefixed{inner: p.inner, prefix: path.Join(p.prefix, prefix)}
	}
	return &prefixed{inner: store, prefix: prefix}
}

func (p *prefixed) key(name string) string { return p.prefix + "/" + strings.TrimPrefix(name, "/") }

func (p *prefixed) Open(ctx context.Context, name string) (Blob, error) {
	return p.inner.Open(ctx, p.key(name))
}

func (p *prefixed) Create(ctx context.Context, name string) (WritableBlob, error) {
	return p.inner.Create(ctx, p.key(name))
}

func (p *prefixed) Put(ctx context.Context, name string, data []byte) error {
	return p.inner.Put(ctx, p.key(name), data)
}

func (p *prefixed) Delete(ctx context.Context, name string) error {
	return p.inner.Delete(ctx, p.key(name))
}

func (p *prefixed) List(ctx context.Context, prefix string) ([]string, error) {
	names, err := p.inner.List(ctx, p.key(prefix))
	if err != nil {
		return nil, err
	}
	out := names[:0]
	for _, n := range names {
		out = append(out, strings.TrimPrefix(n, p.prefix+"/"))
	}
	return out, nil
}
