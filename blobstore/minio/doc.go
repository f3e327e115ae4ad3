// Package minio provides a BlobStore backed by MinIO or any S3-compatible
// service reachable through the MinIO client.
//
// Chunk managers with storage_type "minio" build their client with
// NewClient from the connection fields of the build's storage config:
//
//	client, err := minioblob.NewClient(ctx, minioblob.Options{
//	    Address:   "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	    Bucket:    "a-bucket",
//	})
//	store := minioblob.NewStore(client, "a-bucket", "files")
package minio
