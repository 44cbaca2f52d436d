package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/campaign-engine/internal/model"
)

func TestHeaderDestinationForCCOnly(t *testing.T) {
	req := ForWorkItem(baseCampaign(), model.WorkItem{RecipientAddress: "exec@y.com", Role: model.RoleCC}, "s", "h", "", nil, nil)
	dest := headerDestinationFor(req)
	assert.Equal(t, []string{"sender@example.com"}, dest.ToAddresses)
	assert.Equal(t, []string{"exec@y.com"}, dest.CcAddresses)
	assert.Empty(t, dest.BccAddresses)
}

func TestHeaderDestinationForRegularWithCCAndBCC(t *testing.T) {
	req := ForWorkItem(baseCampaign(), model.WorkItem{RecipientAddress: "a@example.com", Role: model.RoleRegular}, "s", "h", "", nil, nil)
	dest := headerDestinationFor(req)
	assert.Equal(t, []string{"a@example.com"}, dest.ToAddresses)
	assert.Equal(t, []string{"cc1@example.com", "cc2@example.com"}, dest.CcAddresses)
	assert.Equal(t, []string{"bcc1@example.com"}, dest.BccAddresses)
}

func TestDestinationForUsesEnvelopeOnly(t *testing.T) {
	req := ForWorkItem(baseCampaign(), model.WorkItem{RecipientAddress: "a@example.com", Role: model.RoleRegular}, "s", "h", "", nil, nil)
	dest := destinationFor(req)
	assert.Equal(t, []string{"a@example.com"}, dest.ToAddresses)
	assert.Empty(t, dest.CcAddresses)
	assert.Empty(t, dest.BccAddresses)
}

func TestSplitAddresses(t *testing.T) {
	assert.Nil(t, splitAddresses(""))
	assert.Equal(t, []string{"a@example.com"}, splitAddresses("a@example.com"))
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, splitAddresses("a@example.com, b@example.com"))
}
