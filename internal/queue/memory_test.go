package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/campaign-engine/internal/model"
)

func TestEnqueueThenReceive(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	items := []model.WorkItem{
		{CampaignID: "c1", RecipientAddress: "a@example.com"},
		{CampaignID: "c1", RecipientAddress: "b@example.com"},
	}
	require.NoError(t, q.Enqueue(ctx, items))

	received, err := q.Receive(ctx, 10, time.Minute)
	require.NoError(t, err)
	assert.Len(t, received, 2)
}

func TestReceiveRespectsVisibilityTimeout(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, []model.WorkItem{{RecipientAddress: "a@example.com"}}))

	first, err := q.Receive(ctx, 10, time.Hour)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := q.Receive(ctx, 10, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, second, "message hidden under visibility timeout must not be redelivered")
}

func TestAckRemovesMessage(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, []model.WorkItem{{RecipientAddress: "a@example.com"}}))

	received, err := q.Receive(ctx, 10, time.Hour)
	require.NoError(t, err)
	require.Len(t, received, 1)

	require.NoError(t, q.Ack(ctx, received[0].AckHandle))
	assert.Equal(t, 0, q.Len())
}

func TestRedeliverMakesMessageVisibleAgain(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, []model.WorkItem{{RecipientAddress: "a@example.com"}}))

	_, err := q.Receive(ctx, 10, time.Hour)
	require.NoError(t, err)

	q.Redeliver()
	received, err := q.Receive(ctx, 10, time.Hour)
	require.NoError(t, err)
	assert.Len(t, received, 1)
}

func TestDelayPostponesRedelivery(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, []model.WorkItem{{RecipientAddress: "a@example.com"}}))

	received, err := q.Receive(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, received, 1)

	require.NoError(t, q.Delay(ctx, received[0].AckHandle, time.Hour))
	again, err := q.Receive(ctx, 10, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, again)
}
