package s3

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client is the subset of the S3 API used by Store.
type Client interface {
	manager.UploadAPIClient
	s3.HeadObjectAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Cloud providers understood by NewClientFromConfig.
const (
	ProviderAWS    = "aws"
	ProviderGCP    = "gcp"
	ProviderAliyun = "aliyun"
)

// ClientOptions configures NewClientFromConfig.
type ClientOptions struct {
	// Address overrides the endpoint (host[:port]). Empty uses the provider default.
	Address        string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	UseIAM         bool
	Region         string
	UseVirtualHost bool
	CloudProvider  string
	RequestTimeout time.Duration
}

// Endpoint returns the base endpoint URL, or "" for the SDK's AWS default.
func (o ClientOptions) Endpoint() (string, error) {
	host := o.Address
	if host == "" {
		switch strings.ToLower(o.CloudProvider) {
		case "", ProviderAWS:
			return "", nil
		case ProviderGCP:
			host = "storage.googleapis.com"
		case ProviderAliyun:
			if o.Region == "" {
				return "", fmt.Errorf("s3: aliyun requires a region")
			}
			host = "oss-" + o.Region + ".aliyuncs.com"
		default:
			return "", fmt.Errorf("s3: unsupported cloud provider %q", o.CloudProvider)
		}
	}
	if strings.Contains(host, "://") {
		return host, nil
	}
	scheme := "http"
	if o.UseSSL || o.Address == "" {
		scheme = "https"
	}
	return scheme + "://" + host, nil
}

// NewClientFromConfig builds an S3 client. Static credentials are used unless
// UseIAM is set, in which case the SDK's default credential chain applies.
func NewClientFromConfig(ctx context.Context, opts ClientOptions) (*s3.Client, error) {
	endpoint, err := opts.Endpoint()
	if err != nil {
		return nil, err
	}
	cfg, err := loadAWSConfig(ctx, opts)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = !opts.UseVirtualHost
	}), nil
}

func loadAWSConfig(ctx context.Context, opts ClientOptions) (aws.Config, error) {
	loadOpts := []func(*config.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if !opts.UseIAM {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	if opts.RequestTimeout > 0 {
		loadOpts = append(loadOpts, config.WithHTTPClient(
			awshttp.NewBuildableClient().WithTimeout(opts.RequestTimeout)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("s3: load aws config: %w", err)
	}
	return cfg, nil
}
