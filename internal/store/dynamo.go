package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ignite/campaign-engine/internal/errs"
	"github.com/ignite/campaign-engine/internal/model"
	"github.com/ignite/campaign-engine/internal/pkg/logger"
)

// item is the DynamoDB row shape for one campaign, keyed by CampaignID.
// Mirrors the teacher's attributevalue.MarshalMap usage in
// internal/storage/aws.go, generalized from a generic PK/SK/Data
// envelope to a directly-marshaled typed struct.
type item struct {
	CampaignID      string             `dynamodbav:"campaign_id"`
	CampaignName    string             `dynamodbav:"campaign_name"`
	Subject         string             `dynamodbav:"subject"`
	BodyHTML        string             `dynamodbav:"body_html"`
	FromAddress     string             `dynamodbav:"from_address"`
	LaunchedBy      string             `dynamodbav:"launched_by"`
	CreatedAt       time.Time          `dynamodbav:"created_at"`
	SentAt          *time.Time         `dynamodbav:"sent_at,omitempty"`
	To              []string           `dynamodbav:"to"`
	CC              []string           `dynamodbav:"cc"`
	BCC             []string           `dynamodbav:"bcc"`
	TargetEmails    []string           `dynamodbav:"target_emails"`
	Attachments     []model.Attachment `dynamodbav:"attachments"`
	Total           int                `dynamodbav:"total"`
	SentCount       int                `dynamodbav:"sent_count"`
	FailedCount     int                `dynamodbav:"failed_count"`
	Status          model.Status       `dynamodbav:"status"`
	ProcessedTokens []string           `dynamodbav:"processed_tokens,stringset,omitempty"`
}

func toItem(c *model.Campaign) item {
	return item{
		CampaignID:      c.CampaignID,
		CampaignName:    c.CampaignName,
		Subject:         c.Subject,
		BodyHTML:        c.BodyHTML,
		FromAddress:     c.FromAddress,
		LaunchedBy:      c.LaunchedBy,
		CreatedAt:       c.CreatedAt,
		SentAt:          c.SentAt,
		To:              c.To,
		CC:              c.CC,
		BCC:             c.BCC,
		TargetEmails:    c.TargetEmails,
		Attachments:     c.Attachments,
		Total:           c.Total,
		SentCount:       c.SentCount,
		FailedCount:     c.FailedCount,
		Status:          c.Status,
		ProcessedTokens: c.ProcessedTokens,
	}
}

func fromItem(it item) *model.Campaign {
	return &model.Campaign{
		CampaignID:      it.CampaignID,
		CampaignName:    it.CampaignName,
		Subject:         it.Subject,
		BodyHTML:        it.BodyHTML,
		FromAddress:     it.FromAddress,
		LaunchedBy:      it.LaunchedBy,
		CreatedAt:       it.CreatedAt,
		SentAt:          it.SentAt,
		To:              it.To,
		CC:              it.CC,
		BCC:             it.BCC,
		TargetEmails:    it.TargetEmails,
		Attachments:     it.Attachments,
		Total:           it.Total,
		SentCount:       it.SentCount,
		FailedCount:     it.FailedCount,
		Status:          it.Status,
		ProcessedTokens: it.ProcessedTokens,
	}
}

// DynamoStore is the DynamoDB-backed CampaignStore.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
}

// NewDynamoStore wraps an existing *dynamodb.Client.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

func (d *DynamoStore) Create(ctx context.Context, c *model.Campaign) error {
	av, err := attributevalue.MarshalMap(toItem(c))
	if err != nil {
		return fmt.Errorf("marshal campaign: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(campaign_id)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return errs.Validation("campaign %s already exists", c.CampaignID)
		}
		return errs.Transient(fmt.Errorf("put campaign: %w", err))
	}
	return nil
}

func (d *DynamoStore) Get(ctx context.Context, campaignID string) (*model.Campaign, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"campaign_id": &types.AttributeValueMemberS{Value: campaignID},
		},
	})
	if err != nil {
		return nil, errs.Transient(fmt.Errorf("get campaign %s: %w", campaignID, err))
	}
	if out.Item == nil {
		return nil, errs.NotFound(fmt.Errorf("campaign %s not found", campaignID))
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal campaign %s: %w", campaignID, err)
	}
	return fromItem(it), nil
}

func (d *DynamoStore) Delete(ctx context.Context, campaignID string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"campaign_id": &types.AttributeValueMemberS{Value: campaignID},
		},
	})
	if err != nil {
		return errs.Transient(fmt.Errorf("delete campaign %s: %w", campaignID, err))
	}
	return nil
}

func (d *DynamoStore) UpdateOnSend(ctx context.Context, campaignID, idempotencyToken string) (model.Counters, error) {
	return d.conditionalUpdate(ctx, campaignID, idempotencyToken, true)
}

func (d *DynamoStore) UpdateOnFail(ctx context.Context, campaignID, idempotencyToken string) (model.Counters, error) {
	return d.conditionalUpdate(ctx, campaignID, idempotencyToken, false)
}

// conditionalUpdate applies the idempotency-token-gated counter increment
// using DynamoDB's native ADD, which increments sent_count/failed_count
// atomically at the server rather than computing the new value from an
// earlier Get and overwriting it: two workers completing different
// recipients of the same campaign concurrently each get their own
// increment applied, satisfying §5's "linearizable per campaign_id"
// requirement. The token-set membership check and the increment happen
// in the same ConditionExpression-guarded UpdateItem call, so a replayed
// token is rejected without double-counting. Status is then derived from
// the counters DynamoDB itself returns post-update (ReturnValues:
// UPDATED_NEW), never from a pre-update local read.
func (d *DynamoStore) conditionalUpdate(ctx context.Context, campaignID, idempotencyToken string, success bool) (model.Counters, error) {
	c, err := d.Get(ctx, campaignID)
	if err != nil {
		return model.Counters{}, err
	}
	if containsToken(c.ProcessedTokens, idempotencyToken) {
		return counterSnapshot(c), nil
	}

	sentIncr, failedIncr := "0", "0"
	if success {
		sentIncr = "1"
	} else {
		failedIncr = "1"
	}

	updateExpr := "ADD sent_count :sent_incr, failed_count :failed_incr, processed_tokens :token"
	values := map[string]types.AttributeValue{
		":sent_incr":   &types.AttributeValueMemberN{Value: sentIncr},
		":failed_incr": &types.AttributeValueMemberN{Value: failedIncr},
		":token":       &types.AttributeValueMemberSS{Value: []string{idempotencyToken}},
		":tokenCheck":  &types.AttributeValueMemberS{Value: idempotencyToken},
	}
	if success {
		values[":sent_at"] = &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)}
		updateExpr = "SET sent_at = if_not_exists(sent_at, :sent_at) " + updateExpr
	}

	out, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"campaign_id": &types.AttributeValueMemberS{Value: campaignID},
		},
		UpdateExpression:          aws.String(updateExpr),
		ConditionExpression:       aws.String("NOT contains(processed_tokens, :tokenCheck)"),
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			// Another call already recorded this exact token; re-read
			// the current counters rather than double-counting.
			updated, getErr := d.Get(ctx, campaignID)
			if getErr != nil {
				return model.Counters{}, getErr
			}
			return counterSnapshot(updated), nil
		}
		return model.Counters{}, errs.Transient(fmt.Errorf("update campaign %s: %w", campaignID, err))
	}

	var newCounts struct {
		SentCount   int        `dynamodbav:"sent_count"`
		FailedCount int        `dynamodbav:"failed_count"`
		SentAt      *time.Time `dynamodbav:"sent_at"`
	}
	if err := attributevalue.UnmarshalMap(out.Attributes, &newCounts); err != nil {
		return model.Counters{}, fmt.Errorf("unmarshal updated counters for %s: %w", campaignID, err)
	}

	status := deriveStatus(c.Total, newCounts.SentCount, newCounts.FailedCount)
	if err := d.writeStatus(ctx, campaignID, status); err != nil {
		logger.Warn("campaign status write failed after counter update", "campaign_id", campaignID, "error", err.Error())
	}

	return model.Counters{
		Total:       c.Total,
		SentCount:   newCounts.SentCount,
		FailedCount: newCounts.FailedCount,
		Status:      status,
		SentAt:      newCounts.SentAt,
	}, nil
}

// writeStatus sets status to the newly derived value, guarded so a
// straggling write from an earlier, lower counter snapshot can never
// regress a campaign out of a terminal state.
func (d *DynamoStore) writeStatus(ctx context.Context, campaignID string, status model.Status) error {
	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"campaign_id": &types.AttributeValueMemberS{Value: campaignID},
		},
		UpdateExpression:    aws.String("SET #status = :status"),
		ConditionExpression: aws.String("attribute_not_exists(#status) OR (#status <> :completed AND #status <> :failed)"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":    &types.AttributeValueMemberS{Value: string(status)},
			":completed": &types.AttributeValueMemberS{Value: string(model.StatusCompleted)},
			":failed":    &types.AttributeValueMemberS{Value: string(model.StatusFailed)},
		},
	})
	if err != nil && !isConditionalCheckFailed(err) {
		return err
	}
	return nil
}

func containsToken(tokens []string, token string) bool {
	for _, t := range tokens {
		if t == token {
			return true
		}
	}
	return false
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
