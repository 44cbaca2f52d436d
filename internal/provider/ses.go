package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"

	"github.com/ignite/campaign-engine/internal/errs"
)

// SESProvider is the production Mail Provider, grounded on
// internal/worker/esp_ses.go's SendEmail usage, generalized from a
// single provider-constructed Simple body to the SendSimple/SendRaw
// split SPEC_FULL.md §6 requires, with MIME assembly for SendRaw.
type SESProvider struct {
	client *sesv2.Client
}

func NewSESProvider(client *sesv2.Client) *SESProvider {
	return &SESProvider{client: client}
}

func (p *SESProvider) SendSimple(ctx context.Context, req Request) (string, error) {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(req.FromAddress),
		Destination:      headerDestinationFor(req),
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(req.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(req.HTMLBody), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("campaign_id"), Value: aws.String(req.CampaignID)},
		},
	}
	if req.TextBody != "" {
		input.Content.Simple.Body.Text = &types.Content{Data: aws.String(req.TextBody), Charset: aws.String("UTF-8")}
	}

	out, err := p.client.SendEmail(ctx, input)
	if err != nil {
		return "", classifySendError(err)
	}
	return aws.ToString(out.MessageId), nil
}

func (p *SESProvider) SendRaw(ctx context.Context, req Request) (string, error) {
	raw, err := composeRaw(req)
	if err != nil {
		return "", fmt.Errorf("compose raw message: %w", err)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(req.FromAddress),
		Destination:      destinationFor(req),
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: raw},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("campaign_id"), Value: aws.String(req.CampaignID)},
		},
	}

	out, err := p.client.SendEmail(ctx, input)
	if err != nil {
		return "", classifySendError(err)
	}
	return aws.ToString(out.MessageId), nil
}

// destinationFor builds the envelope-only Destination used by SendRaw,
// where the To/Cc/Bcc headers are already written into the raw MIME by
// composeRaw and only the envelope recipient set matters for delivery.
func destinationFor(req Request) *types.Destination {
	return &types.Destination{ToAddresses: req.Envelope}
}

// headerDestinationFor builds the Destination used by SendSimple, where
// SES itself generates the To/Cc/Bcc headers from ToAddresses/
// CcAddresses/BccAddresses and delivers to all of them. Send routes a
// request here only when every header address is also in its envelope
// (see needsRaw), so the headers and the delivery set coincide.
func headerDestinationFor(req Request) *types.Destination {
	return &types.Destination{
		ToAddresses:  splitAddresses(req.To),
		CcAddresses:  splitAddresses(req.Cc),
		BccAddresses: splitAddresses(req.Bcc),
	}
}

// splitAddresses reverses joinAddresses' ", "-joined header value back
// into individual addresses.
func splitAddresses(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ", ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// classifySendError wraps a provider error as transient unless it is
// obviously a permanent rejection (malformed address, content
// rejected), matching the Mail Provider's §6 contract of returning a
// classified error the dispatch worker can branch on.
func classifySendError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "MessageRejected", "MailFromDomainNotVerifiedException", "AccountSuspendedException":
			return errs.Validation("ses rejected message: %v", err)
		}
	}
	return errs.Transient(fmt.Errorf("ses send: %w", err))
}
