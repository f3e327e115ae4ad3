// Package space implements a versioned columnar space on top of a blob store.
//
// A space is a directory of immutable objects:
//
//	CURRENT                         name of the latest manifest
//	MANIFEST-000000.bin             one manifest per committed version
//	data/<column>/<version>-<n>.col column fragments
//	blobs/<name>/<version>          named binary blobs
//
// Every Write, WriteBlob and CommitBlobs call writes new objects first and
// then commits a new manifest by replacing CURRENT. Readers opened at an
// older version keep seeing the objects that version references.
//
// When the underlying store is wrapped in an s3.DDBCommitStore the CURRENT
// update becomes a conditional write, so two writers racing on the same base
// version cannot both succeed.
package space
