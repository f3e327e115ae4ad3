// Package fs abstracts the local scratch filesystem used while building
// indexes.
//
// Builders that cache raw insert-file data on local disk write it through a
// [FileSystem] so that tests can substitute [FaultyFS] and exercise cleanup
// paths under injected I/O errors.
//
// Local filesystem calls are short and not interruptible at the syscall
// level, so the interface carries no context.Context. Remote object stores
// live behind blobstore.BlobStore instead.
package fs
