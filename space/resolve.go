package space

import (
	"errors"
	"net/url"
	"strings"

	"github.com/hupe1980/segindex/blobstore"
	"github.com/hupe1980/segindex/storage"
)

// ResolveStore maps a space path to a store.
//
//	file:///abs/dir       local directory
//	memory://name/prefix  named in-process store
//	anything else         cm's store under that path
//
// Paths without a scheme are interpreted like chunk manager paths, so a
// leading root path is stripped.
func ResolveStore(cm *storage.ChunkManager, p string) (blobstore.BlobStore, error) {
	if p == "" {
		return nil, errors.New("space: empty path")
	}
	if strings.Contains(p, "://") {
		u, err := url.Parse(p)
		if err != nil {
			return nil, err
		}
		switch u.Scheme {
		case "file":
			return blobstore.NewLocalStore(u.Path), nil
		case "memory":
			return blobstore.Prefixed(blobstore.SharedMemoryStore(u.Host), u.Path), nil
		default:
			return nil, errors.New("space: unsupported scheme " + u.Scheme)
		}
	}
	if cm == nil {
		return nil, errors.New("space: relative path needs a chunk manager")
	}
	p = strings.Trim(p, "/")
	if root := cm.RootPath(); root != "" {
		if p == root {
			p = ""
		} else {
			p = strings.TrimPrefix(p, root+"/")
		}
	}
	return blobstore.Prefixed(cm.Store(), p), nil
}
