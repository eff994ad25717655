package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	adapters "github.com/viacare/clinic-relay-service/internal/adapters/http"
	"github.com/viacare/clinic-relay-service/internal/domain"
)

func TestResolveCreatesContactAndConversation(t *testing.T) {
	helpdesk := newFakeHelpdesk()
	links := &fakeLinkRepo{}
	resolver := NewIdentityResolver(helpdesk, links)
	cfg := testChannelConfig()

	resolution, err := resolver.Resolve(context.Background(), cfg, "+5511999998888", "Maria")
	require.NoError(t, err)

	assert.True(t, resolution.Created)
	assert.NotZero(t, resolution.ContactID)
	assert.NotZero(t, resolution.ConversationID)

	require.Len(t, helpdesk.contacts, 1)
	assert.Equal(t, "+5511999998888", helpdesk.contacts[0].PhoneNumber)
	assert.Equal(t, "Maria", helpdesk.contacts[0].Name)

	// Resolution mirrored locally for redelivery convergence.
	link, err := links.FindContact(context.Background(), cfg.TenantID, "+5511999998888")
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.Equal(t, resolution.ContactID, link.HelpdeskContactID)
}

func TestResolveSequentialRedeliveryConverges(t *testing.T) {
	helpdesk := newFakeHelpdesk()
	links := &fakeLinkRepo{}
	resolver := NewIdentityResolver(helpdesk, links)
	cfg := testChannelConfig()

	first, err := resolver.Resolve(context.Background(), cfg, "+5511999998888", "Maria")
	require.NoError(t, err)

	second, err := resolver.Resolve(context.Background(), cfg, "+5511999998888", "Maria")
	require.NoError(t, err)

	assert.Equal(t, first.ContactID, second.ContactID)
	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.False(t, second.Created)
	assert.Len(t, helpdesk.contacts, 1, "no duplicate contact on redelivery")
}

func TestResolveReusesOpenConversation(t *testing.T) {
	helpdesk := newFakeHelpdesk()
	helpdesk.contacts = append(helpdesk.contacts, adapters.HelpdeskContact{
		ID: 77, Name: "Maria", PhoneNumber: "+5511999998888",
	})
	helpdesk.conversations[77] = []adapters.HelpdeskConversation{
		{ID: 300, InboxID: 9, Status: domain.ConversationStatusResolved},
		{ID: 301, InboxID: 9, Status: domain.ConversationStatusOpen},
		{ID: 302, InboxID: 4, Status: domain.ConversationStatusOpen},
	}
	resolver := NewIdentityResolver(helpdesk, &fakeLinkRepo{})

	resolution, err := resolver.Resolve(context.Background(), testChannelConfig(), "+5511999998888", "Maria")
	require.NoError(t, err)

	assert.Equal(t, 77, resolution.ContactID)
	assert.Equal(t, 301, resolution.ConversationID, "reuses the open conversation on the target inbox")
	assert.False(t, resolution.Created)
}

func TestResolveCreatesConversationWhenAllResolved(t *testing.T) {
	helpdesk := newFakeHelpdesk()
	helpdesk.contacts = append(helpdesk.contacts, adapters.HelpdeskContact{
		ID: 77, PhoneNumber: "+5511999998888",
	})
	helpdesk.conversations[77] = []adapters.HelpdeskConversation{
		{ID: 300, InboxID: 9, Status: domain.ConversationStatusResolved},
	}
	resolver := NewIdentityResolver(helpdesk, &fakeLinkRepo{})

	resolution, err := resolver.Resolve(context.Background(), testChannelConfig(), "+5511999998888", "Maria")
	require.NoError(t, err)

	assert.True(t, resolution.Created)
	assert.NotEqual(t, 300, resolution.ConversationID)
}

func TestResolveMatchesContactBySuffix(t *testing.T) {
	helpdesk := newFakeHelpdesk()
	// Stored without the country code, as legacy imports often are.
	helpdesk.contacts = append(helpdesk.contacts, adapters.HelpdeskContact{
		ID: 88, Name: "Maria", PhoneNumber: "11999998888",
	})
	resolver := NewIdentityResolver(helpdesk, &fakeLinkRepo{})

	resolution, err := resolver.Resolve(context.Background(), testChannelConfig(), "+5511999998888", "Maria")
	require.NoError(t, err)

	assert.Equal(t, 88, resolution.ContactID, "matched by last-9-digit suffix")
	assert.Len(t, helpdesk.contacts, 1, "no duplicate contact created")
}

func TestResolvePropagatesUpstreamErrors(t *testing.T) {
	helpdesk := newFakeHelpdesk()
	helpdesk.searchErr = &domain.UpstreamAPIError{Platform: domain.PlatformHelpdesk, Status: 500, Endpoint: "contacts/search"}
	resolver := NewIdentityResolver(helpdesk, &fakeLinkRepo{})

	_, err := resolver.Resolve(context.Background(), testChannelConfig(), "+5511999998888", "Maria")
	require.Error(t, err)
}
