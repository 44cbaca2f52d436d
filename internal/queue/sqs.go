package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"github.com/ignite/campaign-engine/internal/errs"
	"github.com/ignite/campaign-engine/internal/model"
)

// sqsBatchLimit is SQS's own SendMessageBatch cap.
const sqsBatchLimit = 10

// SQSQueue is the production Work Queue, backed by one SQS queue.
// Grounded on internal/tracking/publisher.go (SendMessage) and
// internal/tracking/consumer.go (long-poll ReceiveMessage, DeleteMessage
// ack, poison-message handling), generalized from single-message
// publish/single-consumer-loop to batched enqueue/explicit receive-ack.
type SQSQueue struct {
	client   *sqs.Client
	queueURL string
}

func NewSQSQueue(client *sqs.Client, queueURL string) *SQSQueue {
	return &SQSQueue{client: client, queueURL: queueURL}
}

func (q *SQSQueue) Enqueue(ctx context.Context, items []model.WorkItem) error {
	for start := 0; start < len(items); start += sqsBatchLimit {
		end := start + sqsBatchLimit
		if end > len(items) {
			end = len(items)
		}
		if err := q.enqueueBatch(ctx, items[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (q *SQSQueue) enqueueBatch(ctx context.Context, items []model.WorkItem) error {
	entries := make([]types.SendMessageBatchRequestEntry, 0, len(items))
	for _, item := range items {
		body, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal work item: %w", err)
		}
		entries = append(entries, types.SendMessageBatchRequestEntry{
			Id:          aws.String(uuid.NewString()),
			MessageBody: aws.String(string(body)),
		})
	}

	out, err := q.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
		QueueUrl: aws.String(q.queueURL),
		Entries:  entries,
	})
	if err != nil {
		return errs.Transient(fmt.Errorf("enqueue batch: %w", err))
	}
	if len(out.Failed) > 0 {
		return errs.Transient(fmt.Errorf("enqueue batch: %d entries failed", len(out.Failed)))
	}
	return nil
}

func (q *SQSQueue) Receive(ctx context.Context, max int32, visibilityTimeout time.Duration) ([]model.ReceivedItem, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: max,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   int32(visibilityTimeout.Seconds()),
	})
	if err != nil {
		return nil, errs.Transient(fmt.Errorf("receive: %w", err))
	}

	received := make([]model.ReceivedItem, 0, len(out.Messages))
	for _, msg := range out.Messages {
		var item model.WorkItem
		if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &item); err != nil {
			// Poison message: ack it so it does not block the queue
			// forever, and drop it rather than surface a fatal error.
			q.Ack(ctx, aws.ToString(msg.ReceiptHandle))
			continue
		}
		received = append(received, model.ReceivedItem{
			Item:      item,
			AckHandle: aws.ToString(msg.ReceiptHandle),
		})
	}
	return received, nil
}

func (q *SQSQueue) Ack(ctx context.Context, handle string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(handle),
	})
	if err != nil {
		return errs.Transient(fmt.Errorf("ack: %w", err))
	}
	return nil
}

func (q *SQSQueue) Delay(ctx context.Context, handle string, newVisibility time.Duration) error {
	_, err := q.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(q.queueURL),
		ReceiptHandle:     aws.String(handle),
		VisibilityTimeout: int32(newVisibility.Seconds()),
	})
	if err != nil {
		return errs.Transient(fmt.Errorf("delay: %w", err))
	}
	return nil
}
