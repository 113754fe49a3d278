package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/lox/weatheretl/internal/models"
)

// DynamoAPI is the subset of the DynamoDB client the table needs.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type Dynamo struct {
	client DynamoAPI
	table  string
}

func NewDynamo(client DynamoAPI, table string) *Dynamo {
	return &Dynamo{client: client, table: table}
}

func (d *Dynamo) PutItem(ctx context.Context, item models.Item) error {
	av, err := marshalItem(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("put item into %s: %w", d.table, err)
	}
	return nil
}

func (d *Dynamo) ScanPage(ctx context.Context, start Cursor) (Page, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(d.table)}
	if len(start) > 0 {
		key, err := marshalItem(models.Item(start))
		if err != nil {
			return Page{}, fmt.Errorf("marshal start key: %w", err)
		}
		input.ExclusiveStartKey = key
	}

	out, err := d.client.Scan(ctx, input)
	if err != nil {
		return Page{}, fmt.Errorf("scan %s: %w", d.table, err)
	}

	page := Page{Items: make([]models.Item, 0, len(out.Items))}
	for _, raw := range out.Items {
		item, err := unmarshalItem(raw)
		if err != nil {
			return Page{}, fmt.Errorf("unmarshal item: %w", err)
		}
		page.Items = append(page.Items, item)
	}

	if len(out.LastEvaluatedKey) > 0 {
		next, err := unmarshalItem(out.LastEvaluatedKey)
		if err != nil {
			return Page{}, fmt.Errorf("unmarshal last evaluated key: %w", err)
		}
		page.Next = Cursor(next)
	}
	return page, nil
}
