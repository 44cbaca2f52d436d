package provider

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryProvider is an in-process MailProvider for tests. It records
// every request it was asked to send and can be configured to fail the
// next FailNext sends with FailErr.
type MemoryProvider struct {
	mu           sync.Mutex
	Sent         []Request
	FailNext     int
	FailErr      error
	sendAttempts int
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{}
}

func (m *MemoryProvider) SendSimple(_ context.Context, req Request) (string, error) {
	return m.record(req)
}

func (m *MemoryProvider) SendRaw(_ context.Context, req Request) (string, error) {
	if _, err := composeRaw(req); err != nil {
		return "", err
	}
	return m.record(req)
}

func (m *MemoryProvider) record(req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sendAttempts++
	if m.FailNext > 0 {
		m.FailNext--
		return "", m.FailErr
	}
	m.Sent = append(m.Sent, req)
	return uuid.NewString(), nil
}

// Attempts reports how many send calls were made, successful or not.
func (m *MemoryProvider) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sendAttempts
}
