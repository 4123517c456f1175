// Command create-tables creates the single application table and its two
// global secondary indexes. Running it against an existing table is a no-op.
package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/LsSens/backend-erp/internal/config"
	"github.com/LsSens/backend-erp/internal/di"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	awsCfg, err := di.ProvideAWSConfig(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to load AWS configuration", zap.Error(err))
	}
	client := di.ProvideDynamoDBClient(awsCfg, cfg)

	if _, err := client.ListTables(ctx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)}); err != nil {
		logger.Fatal("Cannot reach DynamoDB", zap.String("endpoint", cfg.AWS.DynamoDBEndpoint), zap.Error(err))
	}

	created, err := createTable(ctx, client, cfg.AWS)
	if err != nil {
		logger.Fatal("Failed to create table", zap.String("table", cfg.AWS.TableName), zap.Error(err))
	}
	if !created {
		logger.Info("Table already exists", zap.String("table", cfg.AWS.TableName))
		return
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(cfg.AWS.TableName)}, time.Minute); err != nil {
		logger.Fatal("Table did not become active", zap.String("table", cfg.AWS.TableName), zap.Error(err))
	}
	logger.Info("Table created", zap.String("table", cfg.AWS.TableName))
}

type tableCreator interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// createTable reports false when the table already exists.
func createTable(ctx context.Context, client tableCreator, cfg config.AWSConfig) (bool, error) {
	_, err := client.CreateTable(ctx, tableInput(cfg))
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func tableInput(cfg config.AWSConfig) *dynamodb.CreateTableInput {
	str := func(name string) types.AttributeDefinition {
		return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: types.ScalarAttributeTypeS}
	}
	keys := func(hash, rangeKey string) []types.KeySchemaElement {
		return []types.KeySchemaElement{
			{AttributeName: aws.String(hash), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(rangeKey), KeyType: types.KeyTypeRange},
		}
	}
	index := func(name, hash, rangeKey string) types.GlobalSecondaryIndex {
		return types.GlobalSecondaryIndex{
			IndexName:  aws.String(name),
			KeySchema:  keys(hash, rangeKey),
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		}
	}

	return &dynamodb.CreateTableInput{
		TableName: aws.String(cfg.TableName),
		AttributeDefinitions: []types.AttributeDefinition{
			str("PK"), str("SK"),
			str("GSI1PK"), str("GSI1SK"),
			str("GSI2PK"), str("GSI2SK"),
		},
		KeySchema: keys("PK", "SK"),
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			index(cfg.GSI1IndexName, "GSI1PK", "GSI1SK"),
			index(cfg.GSI2IndexName, "GSI2PK", "GSI2SK"),
		},
		BillingMode: types.BillingModePayPerRequest,
	}
}
