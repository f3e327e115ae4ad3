// Package storage connects index builds to the chunk-addressed object store.
//
// It provides:
//
//   - ChunkManager: root-scoped access to the configured blob backend
//   - FieldData: a typed column, decoded from insert binlogs or raw build input
//   - the binlog and index-file envelope codec (descriptor, compressed payload, CRC32C)
//   - the object path layout for raw data and index files
//   - parallel download of insert files and upload of index artifacts
//   - local scratch caching of raw vector data
package storage
