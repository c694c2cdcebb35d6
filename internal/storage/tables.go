package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
)

// cacheKeyAttr is the hash key of the cache table
const cacheKeyAttr = "CacheKey"

// CreateTablesIfNotExist creates the cache table for local development
func CreateTablesIfNotExist(ctx context.Context, client *dynamodb.Client, config DynamoConfig, logger zerolog.Logger) error {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(config.CacheTable),
	})
	if err == nil {
		logger.Info().Str("table", config.CacheTable).Msg("table already exists")
		return nil
	}

	_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(config.CacheTable),
		KeySchema: []dbtypes.KeySchemaElement{
			{AttributeName: aws.String(cacheKeyAttr), KeyType: dbtypes.KeyTypeHash},
		},
		AttributeDefinitions: []dbtypes.AttributeDefinition{
			{AttributeName: aws.String(cacheKeyAttr), AttributeType: dbtypes.ScalarAttributeTypeS},
		},
		BillingMode: dbtypes.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", config.CacheTable, err)
	}
	logger.Info().Str("table", config.CacheTable).Msg("table created")
	return nil
}
