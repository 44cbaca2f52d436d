// Package model holds the data types shared across the campaign engine:
// campaigns, their recipient work items, and attachments.
package model

import "time"

// Role describes a recipient's relationship to the outgoing message.
// The zero value RoleRegular means "absent" on the wire.
type Role string

const (
	RoleRegular Role = ""
	RoleTo      Role = "to"
	RoleCC      Role = "cc"
	RoleBCC     Role = "bcc"
)

// Status is a campaign's lifecycle state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusSending   Status = "sending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Attachment describes one file attached to a campaign, either inline
// (rendered via a cid: reference in the body) or as a regular attachment.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	BlobKey     string `json:"blob_key"`
	Inline      bool   `json:"inline"`
	ContentID   string `json:"content_id,omitempty"`
}

// InlineImage is the subset of Attachment the HTML sanitizer needs to
// rewrite <img> references to cid: form.
type InlineImage struct {
	BlobKey   string
	ContentID string
}

// Campaign is the persistent record created by Intake and mutated only
// through the Campaign Store's conditional counter updates.
type Campaign struct {
	CampaignID   string       `json:"campaign_id"`
	CampaignName string       `json:"campaign_name"`
	Subject      string       `json:"subject"`
	BodyHTML     string       `json:"body_html"`
	FromAddress  string       `json:"from_address"`
	LaunchedBy   string       `json:"launched_by"`
	CreatedAt    time.Time    `json:"created_at"`
	SentAt       *time.Time   `json:"sent_at,omitempty"`
	To           []string     `json:"to"`
	CC           []string     `json:"cc"`
	BCC          []string     `json:"bcc"`
	TargetEmails []string     `json:"target_emails"`
	Attachments  []Attachment `json:"attachments"`
	Total        int          `json:"total"`
	SentCount    int          `json:"sent_count"`
	FailedCount  int          `json:"failed_count"`
	Status       Status       `json:"status"`
	// ProcessedTokens tracks idempotency tokens already applied to a
	// counter update. Implementation detail of the Campaign Store's
	// conditional-update guarantee, not part of the submission contract.
	ProcessedTokens []string `json:"processed_tokens,omitempty"`
}

// Counters is the subset of Campaign returned by conditional updates.
type Counters struct {
	Total       int
	SentCount   int
	FailedCount int
	Status      Status
	SentAt      *time.Time
}

// Submission is the shape Intake accepts from its caller.
type Submission struct {
	CampaignName string       `json:"campaign_name"`
	Subject      string       `json:"subject"`
	BodyHTML     string       `json:"body_html"`
	FromAddress  string       `json:"from_address"`
	TargetEmails []string     `json:"target_emails"`
	To           []string     `json:"to"`
	CC           []string     `json:"cc"`
	BCC          []string     `json:"bcc"`
	Attachments  []Attachment `json:"attachments"`
	LaunchedBy   string       `json:"launched_by"`
}

// WorkItem is one queued "send this campaign to this address in this
// role" unit. It carries no campaign content, only a pointer plus the
// idempotency token used by the Campaign Store's conditional updates.
type WorkItem struct {
	CampaignID       string `json:"campaign_id"`
	RecipientAddress string `json:"recipient_address"`
	Role             Role   `json:"role,omitempty"`
	IdempotencyToken string `json:"idempotency_token"`
}

// ReceivedItem wraps a WorkItem with the ack handle the Work Queue
// implementation issued for it.
type ReceivedItem struct {
	Item       WorkItem
	AckHandle  string
	ReceiptRaw any
}

// ItemOutcome records what happened to one work item during a dispatch
// batch.
type ItemOutcome struct {
	Item    WorkItem
	Sent    bool
	Skipped bool
	Reason  string
}

// Report is the result of one Dispatch Worker ProcessBatch invocation.
// It is always returned, never an error: per-item failures are data, not
// control flow (see SPEC_FULL.md §4.4, §9).
type Report struct {
	Outcomes               []ItemOutcome
	MessagesFailed         int
	ThrottleEvents         int
	AttachmentDelayApplied int
	BatchDuration          time.Duration
}
