package buildinfo

// StorageConfig holds the connection parameters of the chunk store.
type StorageConfig struct {
	Address          string `json:"address" yaml:"address"`
	BucketName       string `json:"bucket_name" yaml:"bucket_name"`
	AccessKeyID      string `json:"access_key_id" yaml:"access_key_id"`
	AccessKeyValue   string `json:"access_key_value" yaml:"access_key_value"`
	RootPath         string `json:"root_path" yaml:"root_path"`
	StorageType      string `json:"storage_type" yaml:"storage_type"`
	CloudProvider    string `json:"cloud_provider" yaml:"cloud_provider"`
	IAMEndpoint      string `json:"iam_endpoint" yaml:"iam_endpoint"`
	UseSSL           bool   `json:"use_ssl" yaml:"use_ssl"`
	UseIAM           bool   `json:"use_iam" yaml:"use_iam"`
	Region           string `json:"region" yaml:"region"`
	UseVirtualHost   bool   `json:"use_virtual_host" yaml:"use_virtual_host"`
	RequestTimeoutMs int64  `json:"request_timeout_ms" yaml:"request_timeout_ms"`
}

// Storage types understood by storage.NewChunkManager.
const (
	StorageLocal  = "local"
	StorageMinio  = "minio"
	StorageRemote = "remote"
	StorageBadger = "badger"
	StorageMemory = "memory"
)
