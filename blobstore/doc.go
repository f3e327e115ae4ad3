// Package blobstore provides the chunk-addressed storage abstraction used to
// read insert binlogs and to persist index files and space manifests.
//
// BlobStore implementations must be safe for concurrent use. Names are
// slash-separated paths relative to the store root.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, optionally shared by name
//   - LocalStore: local filesystem with atomic Put and mmap-backed reads
//   - Prefixed: view of another store under a key prefix
//   - minio.Store, s3.Store, s3.DDBCommitStore, badger.Store
//
// Open returns an error satisfying errors.Is(err, ErrNotFound) when the
// blob does not exist. Delete of a missing blob is not an error.
package blobstore
