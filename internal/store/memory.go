package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ignite/campaign-engine/internal/errs"
	"github.com/ignite/campaign-engine/internal/model"
)

// MemoryStore is an in-process CampaignStore used by tests, mirroring
// the teacher's dual-backend (aws/local) storage pattern in
// internal/storage/storage.go. The commands always use DynamoStore.
type MemoryStore struct {
	mu        sync.Mutex
	campaigns map[string]*model.Campaign
	processed map[string]map[string]bool
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		campaigns: make(map[string]*model.Campaign),
		processed: make(map[string]map[string]bool),
	}
}

func (m *MemoryStore) Create(_ context.Context, c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.campaigns[c.CampaignID]; exists {
		return errs.Validation("campaign %s already exists", c.CampaignID)
	}

	cp := *c
	m.campaigns[c.CampaignID] = &cp
	m.processed[c.CampaignID] = make(map[string]bool)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, campaignID string) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.campaigns[campaignID]
	if !ok {
		return nil, errs.NotFound(fmt.Errorf("campaign %s not found", campaignID))
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) Delete(_ context.Context, campaignID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.campaigns, campaignID)
	delete(m.processed, campaignID)
	return nil
}

func (m *MemoryStore) UpdateOnSend(ctx context.Context, campaignID, idempotencyToken string) (model.Counters, error) {
	return m.update(campaignID, idempotencyToken, true)
}

func (m *MemoryStore) UpdateOnFail(ctx context.Context, campaignID, idempotencyToken string) (model.Counters, error) {
	return m.update(campaignID, idempotencyToken, false)
}

func (m *MemoryStore) update(campaignID, idempotencyToken string, success bool) (model.Counters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.campaigns[campaignID]
	if !ok {
		return model.Counters{}, errs.NotFound(fmt.Errorf("campaign %s not found", campaignID))
	}

	tokens := m.processed[campaignID]
	if tokens[idempotencyToken] {
		return counterSnapshot(c), nil
	}
	tokens[idempotencyToken] = true

	if success {
		c.SentCount++
		if c.SentAt == nil {
			now := time.Now().UTC()
			c.SentAt = &now
		}
	} else {
		c.FailedCount++
	}
	c.Status = deriveStatus(c.Total, c.SentCount, c.FailedCount)
	c.ProcessedTokens = append(c.ProcessedTokens, idempotencyToken)

	return counterSnapshot(c), nil
}

// Count reports how many campaigns currently exist, for tests asserting
// on rollback behavior.
func (m *MemoryStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.campaigns)
}

func counterSnapshot(c *model.Campaign) model.Counters {
	return model.Counters{
		Total:       c.Total,
		SentCount:   c.SentCount,
		FailedCount: c.FailedCount,
		Status:      c.Status,
		SentAt:      c.SentAt,
	}
}
