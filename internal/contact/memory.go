package contact

import (
	"context"
	"strings"
	"sync"
)

// MemoryLookup is an in-process Lookup for tests, keyed by lowercased
// address.
type MemoryLookup struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryLookup() *MemoryLookup {
	return &MemoryLookup{records: make(map[string]Record)}
}

// Put seeds a contact record for address.
func (m *MemoryLookup) Put(address string, record Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[strings.ToLower(address)] = record
}

func (m *MemoryLookup) Get(_ context.Context, address string) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[strings.ToLower(address)]
	return r, ok, nil
}
