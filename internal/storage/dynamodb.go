package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dennisdiepolder/activations/backend/internal/cache"
	"github.com/rs/zerolog"
)

const (
	batchDeleteSize  = 25
	maxBatchAttempts = 5
)

// cacheItem is the DynamoDB representation of a cache.Entry.
// ExpiresAt is epoch seconds so it can back a table TTL.
type cacheItem struct {
	CacheKey  string `dynamodbav:"CacheKey"`
	Payload   []byte `dynamodbav:"Payload"`
	StoredAt  int64  `dynamodbav:"StoredAt"`
	ExpiresAt int64  `dynamodbav:"ExpiresAt"`
}

// DynamoDBStore implements cache.Store using AWS DynamoDB
type DynamoDBStore struct {
	client *dynamodb.Client
	config DynamoConfig
	ttl    time.Duration
	logger zerolog.Logger
}

// NewDynamoDBStore creates a new DynamoDB store
func NewDynamoDBStore(ctx context.Context, cfg DynamoConfig, ttl time.Duration, logger zerolog.Logger) (*DynamoDBStore, error) {
	var client *dynamodb.Client

	if cfg.Mode == DynamoModeLocal {
		// LoadDefaultConfig queries the EC2 IMDS endpoint, which hangs when
		// static credentials are intended.
		client = dynamodb.New(dynamodb.Options{
			Region:       cfg.Region,
			BaseEndpoint: aws.String(cfg.Endpoint),
			Credentials:  credentials.NewStaticCredentialsProvider("local", "local", ""),
		})
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client = dynamodb.NewFromConfig(awsCfg)
	}

	if cfg.Mode == DynamoModeLocal {
		if err := CreateTablesIfNotExist(ctx, client, cfg, logger); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Str("mode", string(cfg.Mode)).
		Str("region", cfg.Region).
		Str("table", cfg.CacheTable).
		Msg("DynamoDB cache store initialized")

	return &DynamoDBStore{
		client: client,
		config: cfg,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// NewStore creates the cache backend selected by DYNAMO_MODE
func NewStore(ctx context.Context, ttl time.Duration, logger zerolog.Logger) (cache.Store, error) {
	cfg := LoadDynamoConfig()

	switch cfg.Mode {
	case DynamoModeLocal, DynamoModeAWS:
		return NewDynamoDBStore(ctx, cfg, ttl, logger)
	default:
		logger.Info().Msg("DynamoDB disabled (DYNAMO_MODE=none), caching in memory")
		return cache.NewMemoryStore(), nil
	}
}

// Get returns the entry stored under key
func (s *DynamoDBStore) Get(ctx context.Context, key string) (cache.Entry, bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.config.CacheTable),
		Key: map[string]dbtypes.AttributeValue{
			cacheKeyAttr: &dbtypes.AttributeValueMemberS{Value: key},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("failed to get cache entry %s: %w", key, err)
	}
	if result.Item == nil {
		return cache.Entry{}, false, nil
	}

	var item cacheItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return cache.Entry{}, false, fmt.Errorf("failed to unmarshal cache entry %s: %w", key, err)
	}
	return cache.Entry{
		Payload:  item.Payload,
		StoredAt: time.UnixMilli(item.StoredAt),
	}, true, nil
}

// Put stores an entry under key, replacing any previous one
func (s *DynamoDBStore) Put(ctx context.Context, key string, entry cache.Entry) error {
	item, err := attributevalue.MarshalMap(cacheItem{
		CacheKey:  key,
		Payload:   entry.Payload,
		StoredAt:  entry.StoredAt.UnixMilli(),
		ExpiresAt: entry.StoredAt.Add(s.ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.CacheTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save cache entry %s: %w", key, err)
	}
	return nil
}

// Clear deletes every cache entry (scan + batch delete)
func (s *DynamoDBStore) Clear(ctx context.Context) error {
	proj := expression.NamesList(expression.Name(cacheKeyAttr))
	expr, err := expression.NewBuilder().WithProjection(proj).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	var (
		lastKey map[string]dbtypes.AttributeValue
		deleted int
	)
	for {
		input := &dynamodb.ScanInput{
			TableName:                aws.String(s.config.CacheTable),
			ProjectionExpression:     expr.Projection(),
			ExpressionAttributeNames: expr.Names(),
			Limit:                    aws.Int32(500),
		}
		if lastKey != nil {
			input.ExclusiveStartKey = lastKey
		}

		result, err := s.client.Scan(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", s.config.CacheTable, err)
		}

		for _, batch := range deleteBatches(result.Items) {
			if err := s.writeBatch(ctx, batch); err != nil {
				return fmt.Errorf("failed to clear %s: %w", s.config.CacheTable, err)
			}
		}
		deleted += len(result.Items)

		lastKey = result.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}

	s.logger.Info().Str("table", s.config.CacheTable).Int("deleted", deleted).Msg("cache table cleared")
	return nil
}

// writeBatch issues a BatchWriteItem and resubmits unprocessed requests
func (s *DynamoDBStore) writeBatch(ctx context.Context, requests []dbtypes.WriteRequest) error {
	pending := map[string][]dbtypes.WriteRequest{s.config.CacheTable: requests}
	for attempt := 0; attempt < maxBatchAttempts; attempt++ {
		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: pending,
		})
		if err != nil {
			return err
		}
		if len(out.UnprocessedItems) == 0 {
			return nil
		}
		pending = out.UnprocessedItems
	}
	return fmt.Errorf("unprocessed deletes after %d attempts", maxBatchAttempts)
}

// deleteBatches turns scanned key items into delete requests grouped by the BatchWriteItem limit
func deleteBatches(items []map[string]dbtypes.AttributeValue) [][]dbtypes.WriteRequest {
	var batches [][]dbtypes.WriteRequest
	for i := 0; i < len(items); i += batchDeleteSize {
		end := i + batchDeleteSize
		if end > len(items) {
			end = len(items)
		}

		requests := make([]dbtypes.WriteRequest, 0, end-i)
		for _, item := range items[i:end] {
			requests = append(requests, dbtypes.WriteRequest{
				DeleteRequest: &dbtypes.DeleteRequest{
					Key: map[string]dbtypes.AttributeValue{
						cacheKeyAttr: item[cacheKeyAttr],
					},
				},
			})
		}
		batches = append(batches, requests)
	}
	return batches
}
