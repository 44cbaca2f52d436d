// Package provider implements the Mail Provider: the SES-backed
// SendSimple/SendRaw entry points the Dispatch Worker calls, plus the
// MIME assembly SendRaw needs for attachments and inline images
// (SPEC_FULL.md §6).
package provider

import (
	"context"
	"slices"

	"github.com/ignite/campaign-engine/internal/model"
)

// Request is everything the provider needs to deliver one message. The
// envelope recipient set and the To/Cc/Bcc headers are computed
// separately by the dispatch worker's role logic (SPEC_FULL.md §4.4
// step 2) and passed through unchanged here.
type Request struct {
	FromAddress string
	To          string
	Cc          string
	Bcc         string
	Envelope    []string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []AttachmentContent
	InlineItems []InlineContent
	CampaignID  string
}

// AttachmentContent is a regular (non-inline) attachment with its bytes
// already fetched from the Blob Store.
type AttachmentContent struct {
	Filename    string
	ContentType string
	Data        []byte
}

// InlineContent is an inline image with its bytes already fetched from
// the Blob Store, keyed by the content_id the sanitizer rewrote into
// the body as a cid: reference.
type InlineContent struct {
	ContentID   string
	ContentType string
	Data        []byte
}

// MailProvider is the interface the Dispatch Worker depends on.
type MailProvider interface {
	// SendSimple delivers a message with no attachments, letting the
	// provider construct the MIME itself. Every To/Cc/Bcc header address
	// becomes a delivery target.
	SendSimple(ctx context.Context, req Request) (messageID string, err error)
	// SendRaw delivers a caller-assembled MIME message, used whenever
	// the request carries attachments or inline images, or names header
	// addresses outside its envelope.
	SendRaw(ctx context.Context, req Request) (messageID string, err error)
}

// needsRaw reports whether a request must go through SendRaw because it
// carries attachments or inline images SendSimple cannot express, or
// because a To/Cc/Bcc header names an address outside the envelope,
// which SendSimple would also deliver to.
func needsRaw(req Request) bool {
	if len(req.Attachments) > 0 || len(req.InlineItems) > 0 {
		return true
	}
	for _, header := range []string{req.To, req.Cc, req.Bcc} {
		for _, addr := range splitAddresses(header) {
			if !slices.Contains(req.Envelope, addr) {
				return true
			}
		}
	}
	return false
}

// Send picks SendSimple or SendRaw based on the request's content and
// recipients, matching SPEC_FULL.md §6's "SendSimple (no attachments) /
// SendRaw (caller-constructed MIME)" split.
func Send(ctx context.Context, p MailProvider, req Request) (string, error) {
	if needsRaw(req) {
		return p.SendRaw(ctx, req)
	}
	return p.SendSimple(ctx, req)
}

// ForWorkItem builds a Request from a campaign, a work item's role, and
// its already-fetched attachment/inline bytes, applying the role
// header law from SPEC_FULL.md §4.4 step 2.
func ForWorkItem(campaign *model.Campaign, item model.WorkItem, subject, htmlBody, textBody string, attachments []AttachmentContent, inline []InlineContent) Request {
	req := Request{
		FromAddress: campaign.FromAddress,
		Subject:     subject,
		HTMLBody:    htmlBody,
		TextBody:    textBody,
		Attachments: attachments,
		InlineItems: inline,
		CampaignID:  campaign.CampaignID,
	}

	switch item.Role {
	case model.RoleCC:
		req.To = campaign.FromAddress
		req.Cc = item.RecipientAddress
		req.Envelope = []string{item.RecipientAddress}
	case model.RoleBCC:
		req.To = campaign.FromAddress
		req.Bcc = item.RecipientAddress
		req.Envelope = []string{item.RecipientAddress}
	case model.RoleTo:
		req.To = item.RecipientAddress
		req.Envelope = []string{item.RecipientAddress}
	default: // regular
		req.To = item.RecipientAddress
		req.Cc = joinAddresses(campaign.CC)
		req.Bcc = joinAddresses(campaign.BCC)
		// The campaign CC/BCC addresses are shown in the headers only;
		// each of them is delivered its own cc/bcc work item.
		req.Envelope = []string{item.RecipientAddress}
	}
	return req
}

func joinAddresses(addrs []string) string {
	if len(addrs) == 0 {
		return ""
	}
	out := addrs[0]
	for _, a := range addrs[1:] {
		out += ", " + a
	}
	return out
}
