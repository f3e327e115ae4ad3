package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/segindex/blobstore"
)

// CurrentName is the blob name whose writes are routed through the commit log.
const CurrentName = "CURRENT"

// DDBCommitStore wraps a blob store and keeps the CURRENT pointer in a
// DynamoDB table, advancing it with a conditional write per version.
//
// Table schema:
//   - Partition key: base_uri (S), identifies the space
//   - Sort key: version (N), monotonically increasing
//
//	aws dynamodb create-table \
//	  --table-name segindex-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DDBCommitStore struct {
	data      blobstore.BlobStore
	ddbClient DDBClient
	tableName string
	baseURI   string
}

// DDBClient is the subset of the DynamoDB API used by DDBCommitStore.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ErrConcurrentModification is returned when another writer committed the same version first.
var ErrConcurrentModification = errors.New("s3: concurrent modification detected")

// NewDDBCommitStore wraps data. baseURI partitions the commit log, e.g. "s3://bucket/space".
func NewDDBCommitStore(data blobstore.BlobStore, ddbClient DDBClient, tableName, baseURI string) *DDBCommitStore {
	return &DDBCommitStore{data: data, ddbClient: ddbClient, tableName: tableName, baseURI: baseURI}
}

// NewDynamoDBClient builds a DynamoDB client from the same options as NewClientFromConfig.
func NewDynamoDBClient(ctx context.Context, opts ClientOptions) (*dynamodb.Client, error) {
	cfg, err := loadAWSConfig(ctx, opts)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg), nil
}

// Open serves CURRENT from the commit log and everything else from the wrapped store.
func (s *DDBCommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if name != CurrentName {
		return s.data.Open(ctx, name)
	}
	version, pointer, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, blobstore.ErrNotFound
	}
	mem := blobstore.NewMemoryStore()
	if err := mem.Put(ctx, CurrentName, []byte(pointer)); err != nil {
		return nil, err
	}
	return mem.Open(ctx, CurrentName)
}

// Put commits CURRENT through the log and writes everything else to the wrapped store.
func (s *DDBCommitStore) Put(ctx context.Context, name string, data []byte) error {
	if name == CurrentName {
		return s.commit(ctx, string(data))
	}
	return s.data.Put(ctx, name, data)
}

// Create streams to the wrapped store. CURRENT must be written with Put.
func (s *DDBCommitStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	if name == CurrentName {
		return &currentWriter{ctx: ctx, store: s}, nil
	}
	return s.data.Create(ctx, name)
}

func (s *DDBCommitStore) Delete(ctx context.Context, name string) error {
	return s.data.Delete(ctx, name)
}

func (s *DDBCommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.data.List(ctx, prefix)
}

// Version returns the latest committed log version (0 when none).
func (s *DDBCommitStore) Version(ctx context.Context) (uint64, error) {
	v, _, err := s.latest(ctx)
	return v, err
}

func (s *DDBCommitStore) latest(ctx context.Context) (uint64, string, error) {
	resp, err := s.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("s3: query commit log: %w", err)
	}
	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("s3: commit log item has no numeric version")
	}
	pointerAttr, ok := item["manifest_path"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("s3: commit log item has no manifest_path")
	}
	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("s3: parse commit version: %w", err)
	}
	return version, pointerAttr.Value, nil
}

func (s *DDBCommitStore) commit(ctx context.Context, pointer string) error {
	current, _, err := s.latest(ctx)
	if err != nil {
		return err
	}

	_, err = s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri":      &types.AttributeValueMemberS{Value: s.baseURI},
			"version":       &types.AttributeValueMemberN{Value: strconv.FormatUint(current+1, 10)},
			"manifest_path": &types.AttributeValueMemberS{Value: pointer},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("s3: commit version %d: %w", current+1, err)
	}
	return nil
}

// currentWriter buffers a streamed CURRENT and commits it on Close.
type currentWriter struct {
	ctx   context.Context
	store *DDBCommitStore
	buf   []byte
}

func (w *currentWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *currentWriter) Sync() error { return nil }

func (w *currentWriter) Close() error {
	if w.store == nil {
		return io.ErrClosedPipe
	}
	err := w.store.commit(w.ctx, string(w.buf))
	w.store = nil
	return err
}
