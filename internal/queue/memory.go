package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/campaign-engine/internal/model"
)

type pendingMessage struct {
	item         model.WorkItem
	visibleAfter time.Time
}

// MemoryQueue is an in-process WorkQueue for tests, modeling SQS's
// at-least-once, visibility-timeout-based redelivery semantics without a
// real broker.
type MemoryQueue struct {
	mu       sync.Mutex
	messages map[string]*pendingMessage
	order    []string
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{messages: make(map[string]*pendingMessage)}
}

func (m *MemoryQueue) Enqueue(_ context.Context, items []model.WorkItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range items {
		handle := uuid.NewString()
		m.messages[handle] = &pendingMessage{item: item}
		m.order = append(m.order, handle)
	}
	return nil
}

func (m *MemoryQueue) Receive(_ context.Context, max int32, visibilityTimeout time.Duration) ([]model.ReceivedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var received []model.ReceivedItem
	for _, handle := range m.order {
		if int32(len(received)) >= max {
			break
		}
		msg, ok := m.messages[handle]
		if !ok {
			continue
		}
		if now.Before(msg.visibleAfter) {
			continue
		}
		msg.visibleAfter = now.Add(visibilityTimeout)
		received = append(received, model.ReceivedItem{Item: msg.item, AckHandle: handle})
	}
	return received, nil
}

func (m *MemoryQueue) Ack(_ context.Context, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, handle)
	return nil
}

func (m *MemoryQueue) Delay(_ context.Context, handle string, newVisibility time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := m.messages[handle]; ok {
		msg.visibleAfter = time.Now().Add(newVisibility)
	}
	return nil
}

// Redeliver makes every currently-held message immediately receivable
// again, for tests exercising redelivery/idempotency.
func (m *MemoryQueue) Redeliver() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		msg.visibleAfter = time.Time{}
	}
}

// Len reports how many messages remain in the queue.
func (m *MemoryQueue) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}
