package blobstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/ignite/campaign-engine/internal/errs"
)

type blob struct {
	data        []byte
	contentType string
}

// MemoryBlobStore is an in-process BlobStore used by tests, seeded with
// Put before a test run.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string]blob)}
}

// Put seeds a blob for tests; it has no counterpart in the real Blob
// Store interface, which is read-only from the worker's perspective.
func (m *MemoryBlobStore) Put(blobKey string, data []byte, contentType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[blobKey] = blob{data: data, contentType: contentType}
}

func (m *MemoryBlobStore) Get(_ context.Context, blobKey string) ([]byte, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.blobs[blobKey]
	if !ok {
		return nil, "", errs.NotFound(fmt.Errorf("blob %s not found", blobKey))
	}
	return b.data, b.contentType, nil
}
