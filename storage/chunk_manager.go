package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/hupe1980/segindex/blobstore"
	badgerstore "github.com/hupe1980/segindex/blobstore/badger"
	miniostore "github.com/hupe1980/segindex/blobstore/minio"
	s3store "github.com/hupe1980/segindex/blobstore/s3"
	"github.com/hupe1980/segindex/buildinfo"
)

// ChunkManager reads and writes objects under a root path of one bucket.
// Paths passed to it are full object paths as produced by the Gen* helpers;
// the root prefix is stripped before reaching the backend store.
type ChunkManager struct {
	store  blobstore.BlobStore
	root   string
	kind   string
	closer io.Closer
}

// NewChunkManagerFromStore wraps a store that is already scoped to root.
func NewChunkManagerFromStore(store blobstore.BlobStore, root string) *ChunkManager {
	return &ChunkManager{store: store, root: strings.Trim(root, "/"), kind: "custom"}
}

// NewChunkManager opens the backend selected by cfg.StorageType.
func NewChunkManager(ctx context.Context, cfg buildinfo.StorageConfig) (*ChunkManager, error) {
	root := strings.Trim(cfg.RootPath, "/")
	cm := &ChunkManager{root: root, kind: cfg.StorageType}

	switch cfg.StorageType {
	case buildinfo.StorageLocal, "":
		if cfg.RootPath == "" {
			return nil, opError("open", "", errors.New("local storage requires root_path"))
		}
		cm.kind = buildinfo.StorageLocal
		cm.store = blobstore.NewLocalStore(cfg.RootPath)

	case buildinfo.StorageMinio:
		client, err := miniostore.NewClient(ctx, miniostore.Options{
			Address:        cfg.Address,
			AccessKey:      cfg.AccessKeyID,
			SecretKey:      cfg.AccessKeyValue,
			UseSSL:         cfg.UseSSL,
			UseIAM:         cfg.UseIAM,
			IAMEndpoint:    cfg.IAMEndpoint,
			Region:         cfg.Region,
			UseVirtualHost: cfg.UseVirtualHost,
			Bucket:         cfg.BucketName,
		})
		if err != nil {
			return nil, opError("open", cfg.BucketName, err)
		}
		cm.store = miniostore.NewStore(client, cfg.BucketName, root)

	case buildinfo.StorageRemote:
		client, err := s3store.NewClientFromConfig(ctx, s3ClientOptions(cfg))
		if err != nil {
			return nil, opError("open", cfg.BucketName, err)
		}
		cm.store = s3store.NewStore(client, cfg.BucketName, root)

	case buildinfo.StorageBadger:
		if cfg.Address == "" {
			return nil, opError("open", "", errors.New("badger storage requires address (database directory)"))
		}
		db, err := badgerstore.Open(badgerstore.Options{Dir: cfg.Address})
		if err != nil {
			return nil, opError("open", cfg.Address, err)
		}
		cm.store = blobstore.Prefixed(db, root)
		cm.closer = db

	case buildinfo.StorageMemory:
		name := cfg.BucketName
		if name == "" {
			name = "default"
		}
		cm.store = blobstore.Prefixed(blobstore.SharedMemoryStore(name), root)

	default:
		return nil, opError("open", "", fmt.Errorf("unsupported storage_type %q", cfg.StorageType))
	}
	return cm, nil
}

func s3ClientOptions(cfg buildinfo.StorageConfig) s3store.ClientOptions {
	return s3store.ClientOptions{
		Address:        cfg.Address,
		AccessKey:      cfg.AccessKeyID,
		SecretKey:      cfg.AccessKeyValue,
		UseSSL:         cfg.UseSSL,
		UseIAM:         cfg.UseIAM,
		Region:         cfg.Region,
		UseVirtualHost: cfg.UseVirtualHost,
		CloudProvider:  cfg.CloudProvider,
		RequestTimeout: time.Duration(cfg.RequestTimeoutMs) * time.Millisecond,
	}
}

// RootPath returns the root prefix without surrounding slashes.
func (cm *ChunkManager) RootPath() string { return cm.root }

// Kind returns the backend storage type.
func (cm *ChunkManager) Kind() string { return cm.kind }

// Store returns the root-scoped backend store.
func (cm *ChunkManager) Store() blobstore.BlobStore { return cm.store }

// Close releases embedded backends.
func (cm *ChunkManager) Close() error {
	if cm.closer == nil {
		return nil
	}
	return cm.closer.Close()
}

func (cm *ChunkManager) key(p string) string {
	p = strings.TrimPrefix(p, "/")
	if cm.root == "" {
		return p
	}
	if p == cm.root {
		return ""
	}
	return strings.TrimPrefix(p, cm.root+"/")
}

func (cm *ChunkManager) full(key string) string {
	if cm.root == "" {
		return key
	}
	return path.Join(cm.root, key)
}

// Read returns the full content of an object.
func (cm *ChunkManager) Read(ctx context.Context, p string) ([]byte, error) {
	data, err := blobstore.ReadAll(ctx, cm.store, cm.key(p))
	return data, opError("read", p, err)
}

// Write stores an object atomically.
func (cm *ChunkManager) Write(ctx context.Context, p string, data []byte) error {
	return opError("write", p, cm.store.Put(ctx, cm.key(p), data))
}

// Exist reports whether an object exists.
func (cm *ChunkManager) Exist(ctx context.Context, p string) (bool, error) {
	ok, err := blobstore.Exists(ctx, cm.store, cm.key(p))
	return ok, opError("exist", p, err)
}

// Size returns an object's size in bytes.
func (cm *ChunkManager) Size(ctx context.Context, p string) (int64, error) {
	b, err := cm.store.Open(ctx, cm.key(p))
	if err != nil {
		return 0, opError("size", p, err)
	}
	defer b.Close()
	return b.Size(), nil
}

// Remove deletes an object.
func (cm *ChunkManager) Remove(ctx context.Context, p string) error {
	return opError("remove", p, cm.store.Delete(ctx, cm.key(p)))
}

// List returns the full paths of objects under prefix.
func (cm *ChunkManager) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := cm.store.List(ctx, cm.key(prefix))
	if err != nil {
		return nil, opError("list", prefix, err)
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = cm.full(k)
	}
	return out, nil
}
