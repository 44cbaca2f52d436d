// Package queue implements the Work Queue: an at-least-once
// FIFO-within-message queue of per-recipient work items, with batch
// receive, per-message ack, and redelivery on visibility-timeout expiry
// (SPEC_FULL.md §4.5).
package queue

import (
	"context"
	"time"

	"github.com/ignite/campaign-engine/internal/model"
)

// WorkQueue is the interface Intake and the Dispatch Worker depend on.
type WorkQueue interface {
	// Enqueue batches items onto the queue, accepting up to N per call.
	Enqueue(ctx context.Context, items []model.WorkItem) error
	// Receive long-polls for up to max items, hidden from other
	// receivers for visibilityTimeout.
	Receive(ctx context.Context, max int32, visibilityTimeout time.Duration) ([]model.ReceivedItem, error)
	// Ack removes the message so it is not redelivered.
	Ack(ctx context.Context, handle string) error
	// Delay extends a message's visibility timeout for deferred
	// processing.
	Delay(ctx context.Context, handle string, newVisibility time.Duration) error
}
