package storage

import (
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/hupe1980/segindex/internal/resource"
	"golang.org/x/sync/errgroup"
)

// Artifact is one named index blob.
type Artifact struct {
	Key  string
	Data []byte
}

// IndexSpace is a versioned store that index artifacts are committed to.
type IndexSpace interface {
	CommitBlobs(ctx context.Context, artifacts []Artifact) (int64, error)
}

// GetObjectData downloads and decodes insert binlogs in parallel. The
// result preserves the order of files.
func GetObjectData(ctx context.Context, cm *ChunkManager, res *resource.Controller, files []string) ([]*FieldData, error) {
	out := make([]*FieldData, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, file := range files {
		g.Go(func() error {
			if err := res.AcquireTransfer(ctx, 0); err != nil {
				return err
			}
			defer res.ReleaseTransfer()

			data, err := cm.Read(ctx, file)
			if err != nil {
				return err
			}
			_, fd, err := DecodeInsertData(data)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			out[i] = fd
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadFieldData downloads files and merges them into one column.
func LoadFieldData(ctx context.Context, fmc *FileManagerContext, files []string) (*FieldData, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("storage: no insert files")
	}
	parts, err := GetObjectData(ctx, fmc.ChunkManager, fmc.Resources, files)
	if err != nil {
		return nil, err
	}
	merged := parts[0]
	for _, p := range parts[1:] {
		if err := merged.Merge(p); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// PutIndexData encodes every artifact as an index file and uploads them in
// parallel under the build's remote prefix. It returns the encoded size of
// each uploaded object keyed by its full path. On error some objects may
// already have been written.
func PutIndexData(ctx context.Context, fmc *FileManagerContext, artifacts []Artifact) (map[string]int64, error) {
	if !fmc.Valid() {
		return nil, opError("upload", "", fmt.Errorf("no chunk manager configured"))
	}
	prefix := fmc.RemoteIndexPrefix()
	sizes := make(map[string]int64, len(artifacts))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, a := range artifacts {
		g.Go(func() error {
			desc := IndexDescriptor{
				FieldDataMeta: fmc.FieldDataMeta,
				BuildID:       fmc.IndexMeta.BuildID,
				IndexVersion:  fmc.IndexMeta.IndexVersion,
				Key:           a.Key,
			}
			data, err := EncodeIndexFile(desc, a.Data, fmc.Compression, fmc.DescriptorCodec())
			if err != nil {
				return err
			}

			if err := fmc.Resources.AcquireTransfer(gctx, len(data)); err != nil {
				return err
			}
			defer fmc.Resources.ReleaseTransfer()

			p := path.Join(prefix, a.Key)
			if err := fmc.ChunkManager.Write(gctx, p, data); err != nil {
				return err
			}
			mu.Lock()
			sizes[p] = int64(len(data))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sizes, nil
}

// ReadIndexFiles downloads and decodes uploaded index files.
func ReadIndexFiles(ctx context.Context, cm *ChunkManager, paths []string) ([]Artifact, error) {
	out := make([]Artifact, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			data, err := cm.Read(ctx, p)
			if err != nil {
				return err
			}
			desc, payload, err := DecodeIndexFile(data)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			out[i] = Artifact{Key: desc.Key, Data: payload}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// PutIndexDataToSpace commits every artifact to the index space in a single
// version and returns that version with the size of each blob.
func PutIndexDataToSpace(ctx context.Context, sp IndexSpace, artifacts []Artifact) (int64, map[string]int64, error) {
	if sp == nil {
		return 0, nil, opError("upload", "", fmt.Errorf("no index space configured"))
	}
	version, err := sp.CommitBlobs(ctx, artifacts)
	if err != nil {
		return 0, nil, opError("commit", "", err)
	}
	sizes := make(map[string]int64, len(artifacts))
	for _, a := range artifacts {
		sizes[a.Key] = int64(len(a.Data))
	}
	return version, sizes, nil
}
