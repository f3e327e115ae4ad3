// Package s3 provides BlobStore implementations on Amazon S3 and
// S3-compatible services reached through the AWS SDK.
//
// Store performs ranged reads, CRC32C-checked single-request puts and
// multipart streaming uploads. DDBCommitStore layers a DynamoDB commit log
// over a store so that a space's CURRENT pointer advances with a
// conditional write instead of a plain overwrite.
//
//	client, err := s3.NewClientFromConfig(ctx, s3.ClientOptions{
//	    Region:        "eu-central-1",
//	    CloudProvider: "aws",
//	    UseIAM:        true,
//	})
//	store := s3.NewStore(client, "a-bucket", "files")
package s3
