// Package intake implements the Intake Service: validates a campaign
// submission, persists it, expands its recipients into Work Items with
// correct role tags and no self-duplication, and enqueues them
// (SPEC_FULL.md §4.3).
//
// Grounded on internal/api/campaign_builder_send_async.go's
// HandleSendCampaignAsync/enqueueCampaignAsync shape (validate → create
// campaign record → batch-enqueue → transition status), generalized
// from the teacher's Postgres-queue-table model to the Work Queue/
// Campaign Store abstractions.
package intake

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ignite/campaign-engine/internal/errs"
	"github.com/ignite/campaign-engine/internal/model"
	"github.com/ignite/campaign-engine/internal/queue"
	"github.com/ignite/campaign-engine/internal/store"
)

// MaxMessageBytes is the provider's composed-message size limit
// referenced in SPEC_FULL.md §4.3's input constraints.
const MaxMessageBytes = 40 * 1024 * 1024

// BlobSizer is the subset of the Blob Store intake needs: confirming an
// attachment's blob key exists and learning its size, without the
// Dispatch Worker's full content-type contract.
type BlobSizer interface {
	Get(ctx context.Context, blobKey string) ([]byte, string, error)
}

// Service is the Intake Service.
type Service struct {
	store     store.CampaignStore
	queue     queue.WorkQueue
	blobs     BlobSizer
	batchSize int
}

// New constructs a Service. batchSize caps how many Work Items are
// enqueued per queue.Enqueue call; 0 or less means 500. The queue
// implementation may split each call further (SQSQueue sends 10 per
// SendMessageBatch).
func New(s store.CampaignStore, q queue.WorkQueue, blobs BlobSizer, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Service{store: s, queue: q, blobs: blobs, batchSize: batchSize}
}

// SubmitCampaign validates submission, persists the campaign, and
// enqueues one Work Item per recipient, returning the generated
// campaign_id.
func (svc *Service) SubmitCampaign(ctx context.Context, sub model.Submission) (string, error) {
	regular, to, cc, bcc, target, err := normalizeRecipients(sub)
	if err != nil {
		return "", err
	}
	if err := validateSubmission(sub, regular, to, cc, bcc); err != nil {
		return "", err
	}
	if err := svc.validateAttachments(ctx, sub.BodyHTML, sub.Attachments); err != nil {
		return "", err
	}

	campaignID := uuid.NewString()
	total := len(regular) + len(to) + len(cc) + len(bcc)

	campaign := &model.Campaign{
		CampaignID:   campaignID,
		CampaignName: sub.CampaignName,
		Subject:      sub.Subject,
		BodyHTML:     sub.BodyHTML,
		FromAddress:  strings.ToLower(strings.TrimSpace(sub.FromAddress)),
		LaunchedBy:   sub.LaunchedBy,
		To:           to,
		CC:           cc,
		BCC:          bcc,
		TargetEmails: target,
		Attachments:  sub.Attachments,
		Total:        total,
		Status:       model.StatusQueued,
	}

	if total == 0 {
		// Unreachable per validateSubmission's "at least one non-empty
		// list" constraint, but handled per SPEC_FULL.md §4.3's
		// relaxed-validation edge case: complete immediately rather than
		// hand the worker a batch it can never finish.
		campaign.Status = model.StatusCompleted
		if err := svc.store.Create(ctx, campaign); err != nil {
			return "", err
		}
		return campaignID, nil
	}

	if err := svc.store.Create(ctx, campaign); err != nil {
		return "", err
	}

	items := buildWorkItems(campaignID, regular, to, cc, bcc)
	if err := svc.enqueueAll(ctx, items); err != nil {
		if delErr := svc.store.Delete(ctx, campaignID); delErr != nil {
			return "", fmt.Errorf("enqueue failed (%w) and rollback failed: %v", err, delErr)
		}
		return "", err
	}

	return campaignID, nil
}

func (svc *Service) enqueueAll(ctx context.Context, items []model.WorkItem) error {
	for start := 0; start < len(items); start += svc.batchSize {
		end := start + svc.batchSize
		if end > len(items) {
			end = len(items)
		}
		if err := svc.queue.Enqueue(ctx, items[start:end]); err != nil {
			return errs.Transient(fmt.Errorf("enqueue work items: %w", err))
		}
	}
	return nil
}

func buildWorkItems(campaignID string, regular, to, cc, bcc []string) []model.WorkItem {
	items := make([]model.WorkItem, 0, len(regular)+len(to)+len(cc)+len(bcc))
	add := func(addrs []string, role model.Role) {
		for _, addr := range addrs {
			items = append(items, model.WorkItem{
				CampaignID:       campaignID,
				RecipientAddress: addr,
				Role:             role,
				IdempotencyToken: uuid.NewString(),
			})
		}
	}
	add(regular, model.RoleRegular)
	add(to, model.RoleTo)
	add(cc, model.RoleCC)
	add(bcc, model.RoleBCC)
	return items
}

// normalizeRecipients lowercases/trims and dedupes each list, then
// computes the regular set as target_emails minus (cc ∪ bcc ∪ to), so
// an address explicitly placed on cc/bcc/to never also receives a
// regular copy (SPEC_FULL.md §4.3 step 3, "No-self-duplication" §8).
func normalizeRecipients(sub model.Submission) (regular, to, cc, bcc, target []string, err error) {
	to = normalizeSet(sub.To)
	cc = normalizeSet(sub.CC)
	bcc = normalizeSet(sub.BCC)
	target = normalizeSet(sub.TargetEmails)

	excluded := make(map[string]bool, len(to)+len(cc)+len(bcc))
	for _, a := range to {
		excluded[a] = true
	}
	for _, a := range cc {
		excluded[a] = true
	}
	for _, a := range bcc {
		excluded[a] = true
	}

	for _, a := range target {
		if !excluded[a] {
			regular = append(regular, a)
		}
	}
	return regular, to, cc, bcc, target, nil
}

func normalizeSet(addrs []string) []string {
	seen := make(map[string]bool, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

func validateSubmission(sub model.Submission, regular, to, cc, bcc []string) error {
	if sub.Subject == "" {
		return errs.Validation("subject is required")
	}
	if strings.TrimSpace(sub.FromAddress) == "" || !isValidAddress(sub.FromAddress) {
		return errs.Validation("from_address is invalid")
	}
	if len(regular)+len(to)+len(cc)+len(bcc) == 0 {
		return errs.Validation("campaign has no recipients")
	}
	for _, list := range [][]string{regular, to, cc, bcc} {
		for _, addr := range list {
			if !isValidAddress(addr) {
				return errs.Validation("invalid recipient address %q", addr)
			}
		}
	}
	return nil
}

func isValidAddress(addr string) bool {
	at := strings.IndexByte(addr, '@')
	if at <= 0 || at == len(addr)-1 {
		return false
	}
	return !strings.ContainsAny(addr, " \t\r\n")
}

// validateAttachments confirms every referenced blob key exists and
// that the total composed message size (body plus attachments) leaves
// room under the provider's limit.
func (svc *Service) validateAttachments(ctx context.Context, bodyHTML string, attachments []model.Attachment) error {
	total := int64(len(bodyHTML))
	for _, att := range attachments {
		data, _, err := svc.blobs.Get(ctx, att.BlobKey)
		if err != nil {
			return errs.Validation("attachment blob %q not found: %v", att.BlobKey, err)
		}
		total += int64(len(data))
	}
	if total > MaxMessageBytes {
		return errs.Validation("composed message size %d bytes exceeds provider limit %d", total, MaxMessageBytes)
	}
	return nil
}
