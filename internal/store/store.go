// Package store implements the Campaign Store: a key/value store of
// campaigns and their live counters, supporting conditional counter
// increments keyed by idempotency token (SPEC_FULL.md §4.5, §3).
package store

import (
	"context"

	"github.com/ignite/campaign-engine/internal/model"
)

// CampaignStore is the interface the Intake Service and Dispatch Worker
// depend on.
type CampaignStore interface {
	// Create persists a new campaign. It fails if campaign_id already
	// exists.
	Create(ctx context.Context, c *model.Campaign) error
	// Get loads a campaign by id.
	Get(ctx context.Context, campaignID string) (*model.Campaign, error)
	// UpdateOnSend conditionally increments sent_count: a no-op if
	// idempotencyToken was already recorded, otherwise atomic.
	UpdateOnSend(ctx context.Context, campaignID, idempotencyToken string) (model.Counters, error)
	// UpdateOnFail is the analogous conditional increment of
	// failed_count.
	UpdateOnFail(ctx context.Context, campaignID, idempotencyToken string) (model.Counters, error)
	// Delete removes a campaign record (used to roll back a failed
	// intake submission).
	Delete(ctx context.Context, campaignID string) error
}

// deriveStatus computes the campaign status from its counters, per the
// invariants in SPEC_FULL.md §3: queued until the first successful send,
// then sending; completed once all attempts are accounted for and at
// least one succeeded; failed only if all attempts failed.
func deriveStatus(total, sent, failed int) model.Status {
	if total > 0 && sent+failed >= total {
		if sent > 0 {
			return model.StatusCompleted
		}
		return model.StatusFailed
	}
	if sent > 0 {
		return model.StatusSending
	}
	return model.StatusQueued
}
