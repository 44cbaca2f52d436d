package contact

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ignite/campaign-engine/internal/errs"
)

// DynamoLookup is the production Contact Record lookup, backed by a
// single DynamoDB table keyed by lowercased address, following the
// same GetItem/attributevalue.UnmarshalMap pattern as
// internal/store.DynamoStore rather than introducing a relational
// store for what is, per SPEC_FULL.md §2, a KV-shaped read.
type DynamoLookup struct {
	client    *dynamodb.Client
	tableName string
}

func NewDynamoLookup(client *dynamodb.Client, tableName string) *DynamoLookup {
	return &DynamoLookup{client: client, tableName: tableName}
}

func (d *DynamoLookup) Get(ctx context.Context, address string) (Record, bool, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"address": &types.AttributeValueMemberS{Value: address},
		},
	})
	if err != nil {
		return nil, false, errs.Transient(fmt.Errorf("get contact %s: %w", address, err))
	}
	if out.Item == nil {
		return nil, false, nil
	}

	var fields map[string]string
	if err := attributevalue.UnmarshalMap(out.Item, &fields); err != nil {
		return nil, false, fmt.Errorf("unmarshal contact %s: %w", address, err)
	}
	delete(fields, "address")
	return Record(fields), true, nil
}
