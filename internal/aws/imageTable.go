package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/imageops/eda-pipeline/internal/types"
)

func NewDynamoDBClient(cfg aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg)
}

// ImageTable persists image records in DynamoDB. FileName is the
// partition key, so PutItem is a last-write-wins upsert.
type ImageTable struct {
	client    *dynamodb.Client
	tableName string
}

func NewImageTable(client *dynamodb.Client, tableName string) *ImageTable {
	return &ImageTable{client: client, tableName: tableName}
}

func (table *ImageTable) PutImage(parentCtx context.Context, rec types.ImageRecord) error {
	ctx, cancel := context.WithTimeout(parentCtx, 5*time.Second)
	defer cancel()

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal image record: %w", err)
	}

	_, err = table.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("couldn't write record %q to %s, AWS error: %w", rec.FileName, table.tableName, err)
	}
	return nil
}
