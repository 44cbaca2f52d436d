package provider

import (
	"context"
	"errors"
	"testing"

	smithy "github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/campaign-engine/internal/errs"
	"github.com/ignite/campaign-engine/internal/model"
)

func baseCampaign() *model.Campaign {
	return &model.Campaign{
		CampaignID:  "camp-1",
		FromAddress: "sender@example.com",
		CC:          []string{"cc1@example.com", "cc2@example.com"},
		BCC:         []string{"bcc1@example.com"},
	}
}

func TestForWorkItemRegularRole(t *testing.T) {
	req := ForWorkItem(baseCampaign(), model.WorkItem{RecipientAddress: "a@example.com", Role: model.RoleRegular}, "s", "h", "", nil, nil)
	assert.Equal(t, "a@example.com", req.To)
	assert.Equal(t, "cc1@example.com, cc2@example.com", req.Cc)
	assert.Equal(t, "bcc1@example.com", req.Bcc)
	assert.Equal(t, []string{"a@example.com"}, req.Envelope)
}

func TestForWorkItemToRole(t *testing.T) {
	req := ForWorkItem(baseCampaign(), model.WorkItem{RecipientAddress: "a@example.com", Role: model.RoleTo}, "s", "h", "", nil, nil)
	assert.Equal(t, "a@example.com", req.To)
	assert.Empty(t, req.Cc)
	assert.Empty(t, req.Bcc)
	assert.Equal(t, []string{"a@example.com"}, req.Envelope)
}

func TestForWorkItemCCRole(t *testing.T) {
	req := ForWorkItem(baseCampaign(), model.WorkItem{RecipientAddress: "a@example.com", Role: model.RoleCC}, "s", "h", "", nil, nil)
	assert.Equal(t, "sender@example.com", req.To, "cc role puts the envelope To on the from address")
	assert.Equal(t, "a@example.com", req.Cc)
	assert.Empty(t, req.Bcc)
	assert.Equal(t, []string{"a@example.com"}, req.Envelope)
}

func TestForWorkItemBCCRole(t *testing.T) {
	req := ForWorkItem(baseCampaign(), model.WorkItem{RecipientAddress: "a@example.com", Role: model.RoleBCC}, "s", "h", "", nil, nil)
	assert.Equal(t, "sender@example.com", req.To)
	assert.Equal(t, "a@example.com", req.Bcc)
	assert.Empty(t, req.Cc)
	assert.Equal(t, []string{"a@example.com"}, req.Envelope)
}

func TestNeedsRaw(t *testing.T) {
	assert.False(t, needsRaw(Request{}))
	assert.True(t, needsRaw(Request{Attachments: []AttachmentContent{{}}}))
	assert.True(t, needsRaw(Request{InlineItems: []InlineContent{{}}}))
}

func TestSendDispatchesByContent(t *testing.T) {
	p := NewMemoryProvider()
	_, err := Send(context.Background(), p, Request{FromAddress: "a@example.com", To: "b@example.com", HTMLBody: "hi"})
	require.NoError(t, err)
	require.Len(t, p.Sent, 1)

	_, err = Send(context.Background(), p, Request{
		FromAddress: "a@example.com",
		To:          "b@example.com",
		HTMLBody:    "hi",
		Attachments: []AttachmentContent{{Filename: "f.pdf", ContentType: "application/pdf", Data: []byte("pdf")}},
	})
	require.NoError(t, err)
	assert.Len(t, p.Sent, 2)
}

func TestMemoryProviderSimulatesFailure(t *testing.T) {
	p := NewMemoryProvider()
	p.FailNext = 1
	p.FailErr = errors.New("boom")

	_, err := Send(context.Background(), p, Request{FromAddress: "a@example.com", HTMLBody: "hi"})
	assert.EqualError(t, err, "boom")

	_, err = Send(context.Background(), p, Request{FromAddress: "a@example.com", HTMLBody: "hi"})
	assert.NoError(t, err)
}

func TestComposeRawBuildsAlternativeOnly(t *testing.T) {
	raw, err := composeRaw(Request{
		FromAddress: "a@example.com",
		To:          "b@example.com",
		Subject:     "Hi",
		HTMLBody:    "<p>hi</p>",
		TextBody:    "hi",
	})
	require.NoError(t, err)
	s := string(raw)
	assert.Contains(t, s, "multipart/alternative")
	assert.Contains(t, s, "text/plain")
	assert.Contains(t, s, "text/html")
	assert.NotContains(t, s, "multipart/mixed")
}

func TestComposeRawWithAttachmentUsesMixed(t *testing.T) {
	raw, err := composeRaw(Request{
		FromAddress: "a@example.com",
		To:          "b@example.com",
		Subject:     "Hi",
		HTMLBody:    "<p>hi</p>",
		Attachments: []AttachmentContent{{Filename: "f.pdf", ContentType: "application/pdf", Data: []byte("pdfdata")}},
	})
	require.NoError(t, err)
	s := string(raw)
	assert.Contains(t, s, "multipart/mixed")
	assert.Contains(t, s, `filename="f.pdf"`)
}

func TestComposeRawWithInlineImageUsesRelated(t *testing.T) {
	raw, err := composeRaw(Request{
		FromAddress: "a@example.com",
		To:          "b@example.com",
		Subject:     "Hi",
		HTMLBody:    `<img src="cid:logo">`,
		InlineItems: []InlineContent{{ContentID: "logo", ContentType: "image/png", Data: []byte("pngdata")}},
	})
	require.NoError(t, err)
	s := string(raw)
	assert.Contains(t, s, "multipart/related")
	assert.Contains(t, s, "Content-ID: <logo>")
}

type fakeAPIError struct{ code string }

func (e fakeAPIError) Error() string                 { return "api error: " + e.code }
func (e fakeAPIError) ErrorCode() string              { return e.code }
func (e fakeAPIError) ErrorMessage() string           { return e.code }
func (e fakeAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

func TestClassifySendErrorValidationForRejection(t *testing.T) {
	err := classifySendError(fakeAPIError{code: "MessageRejected"})
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestClassifySendErrorTransientByDefault(t *testing.T) {
	err := classifySendError(errors.New("network blip"))
	assert.True(t, errors.Is(err, errs.ErrTransient))
}
