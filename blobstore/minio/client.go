package minio

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options configures NewClient.
type Options struct {
	Address        string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	UseIAM         bool
	IAMEndpoint    string
	Region         string
	UseVirtualHost bool
	// Bucket is created when it does not exist yet.
	Bucket string
}

// NewClient connects to the service and makes sure the bucket exists.
func NewClient(ctx context.Context, opts Options) (*minio.Client, error) {
	creds := credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, "")
	if opts.UseIAM {
		creds = credentials.NewIAM(opts.IAMEndpoint)
	}
	lookup := minio.BucketLookupPath
	if opts.UseVirtualHost {
		lookup = minio.BucketLookupDNS
	}

	client, err := minio.New(opts.Address, &minio.Options{
		Creds:        creds,
		Secure:       opts.UseSSL,
		Region:       opts.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: connect %s: %w", opts.Address, err)
	}
	if opts.Bucket == "" {
		return client, nil
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio: check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("minio: create bucket %s: %w", opts.Bucket, err)
		}
	}
	return client, nil
}
