// Package dispatch implements the Dispatch Worker: drains a batch of
// Work Items, sends each through the Mail Provider, and updates
// campaign state (SPEC_FULL.md §4.4).
//
// Grounded on internal/worker/campaign_processor.go's worker/
// processItem control flow (status check, throttle, ESP send,
// conditional counter update, batch-always-succeeds contract),
// generalized from the teacher's Postgres claim-and-loop model to an
// externally-supplied-batch model.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/campaign-engine/internal/contact"
	"github.com/ignite/campaign-engine/internal/model"
	"github.com/ignite/campaign-engine/internal/personalize"
	"github.com/ignite/campaign-engine/internal/pkg/logger"
	"github.com/ignite/campaign-engine/internal/provider"
	"github.com/ignite/campaign-engine/internal/ratelimit"
	"github.com/ignite/campaign-engine/internal/sanitize"
	"github.com/ignite/campaign-engine/internal/store"
)

// blobReader is the Blob Store surface the worker needs.
type blobReader interface {
	Get(ctx context.Context, blobKey string) ([]byte, string, error)
}

// shutdownGrace is how close to a batch's context deadline the worker
// stops starting new items, letting in-flight sends finish rather than
// being cut off mid-provider-call (SPEC_FULL.md §5).
const shutdownGrace = 30 * time.Second

// providerCallTimeout bounds one provider send so a single slow call
// cannot consume the batch's whole budget (SPEC_FULL.md §5).
const providerCallTimeout = 30 * time.Second

// Worker is the Dispatch Worker.
type Worker struct {
	store       store.CampaignStore
	blobs       blobReader
	contacts    contact.Lookup
	personalize *personalize.Engine
	provider    provider.MailProvider
	rateConfig  ratelimit.Config
}

// New constructs a Worker. contacts may be nil, in which case
// personalization always runs against an empty contact record.
func New(s store.CampaignStore, blobs blobReader, contacts contact.Lookup, p provider.MailProvider, rateConfig ratelimit.Config) *Worker {
	return &Worker{
		store:       s,
		blobs:       blobs,
		contacts:    contacts,
		personalize: personalize.New(),
		provider:    p,
		rateConfig:  rateConfig,
	}
}

// ProcessBatch drains items sequentially on the calling goroutine,
// always returning a Report rather than an error: per-item failures
// are data, not control flow, since the queue must not redeliver
// items already attempted (SPEC_FULL.md §4.4).
func (w *Worker) ProcessBatch(ctx context.Context, items []model.WorkItem) model.Report {
	start := time.Now()
	report := model.Report{Outcomes: make([]model.ItemOutcome, 0, len(items))}
	governor := ratelimit.New(w.rateConfig)

	deadline, hasDeadline := ctx.Deadline()

	for _, item := range items {
		if hasDeadline && time.Until(deadline) < shutdownGrace {
			report.Outcomes = append(report.Outcomes, model.ItemOutcome{Item: item, Skipped: true, Reason: "batch deadline approaching"})
			continue
		}

		outcome := w.processItemSafely(ctx, governor, item, &report)
		report.Outcomes = append(report.Outcomes, outcome)
		if !outcome.Sent && !outcome.Skipped {
			report.MessagesFailed++
		}
	}

	report.BatchDuration = time.Since(start)
	logger.Info("dispatch batch complete",
		"items", len(items),
		"failed", report.MessagesFailed,
		"throttle_events", report.ThrottleEvents,
		"attachment_delay_applied", report.AttachmentDelayApplied,
		"duration_ms", report.BatchDuration.Milliseconds(),
	)
	return report
}

// processItemSafely recovers from a panic in per-item processing so one
// bad item cannot crash the whole batch's always-succeeds contract.
func (w *Worker) processItemSafely(ctx context.Context, governor *ratelimit.Governor, item model.WorkItem, report *model.Report) (outcome model.ItemOutcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("dispatch item panic", "campaign_id", item.CampaignID, "recipient", logger.RedactEmail(item.RecipientAddress), "panic", fmt.Sprintf("%v", r))
			outcome = model.ItemOutcome{Item: item, Sent: false, Reason: "panic"}
		}
	}()
	return w.processItem(ctx, governor, item, report)
}

func (w *Worker) processItem(ctx context.Context, governor *ratelimit.Governor, item model.WorkItem, report *model.Report) model.ItemOutcome {
	campaign, err := w.store.Get(ctx, item.CampaignID)
	if err != nil {
		return model.ItemOutcome{Item: item, Sent: false, Reason: "campaign not found"}
	}

	req, sizes, err := w.buildRequest(ctx, campaign, item)
	if err != nil {
		w.markFailed(ctx, campaign.CampaignID, item.IdempotencyToken)
		return model.ItemOutcome{Item: item, Sent: false, Reason: err.Error()}
	}

	delay := governor.DelayFor(campaign.Attachments, sizes)
	if delay > 0 {
		report.AttachmentDelayApplied++
		time.Sleep(delay)
	}

	sendCtx, cancelSend := context.WithTimeout(ctx, providerCallTimeout)
	_, sendErr := provider.Send(sendCtx, w.provider, req)
	cancelSend()
	if sendErr == nil {
		if _, err := w.store.UpdateOnSend(ctx, campaign.CampaignID, item.IdempotencyToken); err != nil {
			logger.Warn("campaign counter update failed after successful send", "campaign_id", campaign.CampaignID, "error", err.Error())
		}
		governor.NoteSuccess()
		return model.ItemOutcome{Item: item, Sent: true}
	}

	if ratelimit.IsThrottle(sendErr) {
		report.ThrottleEvents++
		governor.NoteThrottle()
	}
	w.markFailed(ctx, campaign.CampaignID, item.IdempotencyToken)
	return model.ItemOutcome{Item: item, Sent: false, Reason: sendErr.Error()}
}

func (w *Worker) markFailed(ctx context.Context, campaignID, token string) {
	if _, err := w.store.UpdateOnFail(ctx, campaignID, token); err != nil {
		logger.Warn("campaign counter update failed after send failure", "campaign_id", campaignID, "error", err.Error())
	}
}

// buildRequest assembles the provider Request for one item: role-based
// headers, personalized and sanitized body, fetched attachment bytes.
func (w *Worker) buildRequest(ctx context.Context, campaign *model.Campaign, item model.WorkItem) (provider.Request, map[string]int64, error) {
	record := w.lookupContact(ctx, item.RecipientAddress)

	subject := w.personalize.Render(campaign.Subject, record)

	inlineImages := make([]model.InlineImage, 0)
	for _, att := range campaign.Attachments {
		if att.Inline {
			inlineImages = append(inlineImages, model.InlineImage{BlobKey: att.BlobKey, ContentID: att.ContentID})
		}
	}

	body := w.personalize.Render(campaign.BodyHTML, record)
	body = sanitize.Sanitize(body, inlineImages)

	sizes := make(map[string]int64, len(campaign.Attachments))
	var attachments []provider.AttachmentContent
	var inline []provider.InlineContent
	for _, att := range campaign.Attachments {
		data, contentType, err := w.blobs.Get(ctx, att.BlobKey)
		if err != nil {
			return provider.Request{}, nil, fmt.Errorf("fetch attachment %s: %w", att.BlobKey, err)
		}
		sizes[att.BlobKey] = int64(len(data))
		if contentType == "" {
			contentType = att.ContentType
		}
		if att.Inline {
			inline = append(inline, provider.InlineContent{ContentID: att.ContentID, ContentType: contentType, Data: data})
		} else {
			attachments = append(attachments, provider.AttachmentContent{Filename: att.Filename, ContentType: contentType, Data: data})
		}
	}

	req := provider.ForWorkItem(campaign, item, subject, body, "", attachments, inline)
	return req, sizes, nil
}

func (w *Worker) lookupContact(ctx context.Context, address string) personalize.Contact {
	if w.contacts == nil {
		return personalize.Contact{}
	}
	record, ok, err := w.contacts.Get(ctx, address)
	if err != nil || !ok {
		return personalize.Contact{}
	}
	return personalize.Contact(record)
}

