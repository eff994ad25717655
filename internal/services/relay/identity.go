package relay

import (
	"context"
	"fmt"
	"strings"

	adapters "github.com/viacare/clinic-relay-service/internal/adapters/http"
	"github.com/viacare/clinic-relay-service/internal/domain"
	"github.com/viacare/clinic-relay-service/internal/repository"
	"github.com/viacare/clinic-relay-service/pkg/logger"
	"github.com/viacare/clinic-relay-service/pkg/phone"
	"go.uber.org/zap"
)

// IdentityResolver resolves (or creates) the help-desk contact and open
// conversation for a tenant+phone pair. The help-desk platform is the
// authority; the local link tables only mirror prior resolutions so
// sequential redeliveries converge without a second remote search.
type IdentityResolver struct {
	helpdesk HelpdeskAPI
	links    repository.LinkRepository
}

// NewIdentityResolver creates a new identity resolver
func NewIdentityResolver(helpdesk HelpdeskAPI, links repository.LinkRepository) *IdentityResolver {
	return &IdentityResolver{helpdesk: helpdesk, links: links}
}

// Resolve finds or creates the contact and conversation for the given
// normalized phone. Re-invoking while the resolved conversation is still open
// returns the same conversation id.
func (r *IdentityResolver) Resolve(ctx context.Context, cfg *domain.ChannelConfig, phoneNumber, displayName string) (*domain.Resolution, error) {
	contactID, contactLinkID, err := r.resolveContact(ctx, cfg, phoneNumber, displayName)
	if err != nil {
		return nil, err
	}

	// Fast path: a mirrored open conversation for this contact+inbox.
	if link, err := r.links.FindActiveConversation(ctx, cfg.TenantID, contactID, cfg.HelpdeskInboxID); err != nil {
		logger.Base().Warn("Conversation link lookup failed, falling back to remote search",
			zap.String("tenant_id", cfg.TenantID), zap.Error(err))
	} else if link != nil {
		return &domain.Resolution{ContactID: contactID, ConversationID: link.HelpdeskConversationID}, nil
	}

	conversations, err := r.helpdesk.ListContactConversations(ctx, cfg, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations for contact %d: %w", contactID, err)
	}
	for _, conv := range conversations {
		if conv.InboxID == cfg.HelpdeskInboxID && conv.Status != domain.ConversationStatusResolved {
			r.mirrorConversation(ctx, cfg, contactLinkID, contactID, conv.ID, conv.Status)
			return &domain.Resolution{ContactID: contactID, ConversationID: conv.ID}, nil
		}
	}

	created, err := r.helpdesk.CreateConversation(ctx, cfg, contactID, cfg.HelpdeskInboxID)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation for contact %d: %w", contactID, err)
	}
	r.mirrorConversation(ctx, cfg, contactLinkID, contactID, created.ID, domain.ConversationStatusOpen)

	return &domain.Resolution{ContactID: contactID, ConversationID: created.ID, Created: true}, nil
}

// resolveContact returns the help-desk contact id for the phone, searching by
// exact match first and by last-9-digit suffix second to tolerate country and
// area code formatting drift.
func (r *IdentityResolver) resolveContact(ctx context.Context, cfg *domain.ChannelConfig, phoneNumber, displayName string) (int, string, error) {
	if link, err := r.links.FindContact(ctx, cfg.TenantID, phoneNumber); err != nil {
		logger.Base().Warn("Contact link lookup failed, falling back to remote search",
			zap.String("tenant_id", cfg.TenantID), zap.Error(err))
	} else if link != nil {
		return link.HelpdeskContactID, link.ID, nil
	}

	contact, err := r.searchContact(ctx, cfg, phoneNumber)
	if err != nil {
		return 0, "", err
	}
	if contact == nil {
		name := displayName
		if name == "" {
			name = phoneNumber
		}
		contact, err = r.helpdesk.CreateContact(ctx, cfg, name, phoneNumber)
		if err != nil {
			return 0, "", fmt.Errorf("failed to create contact for %s: %w", phoneNumber, err)
		}
		logger.Base().Info("Created helpdesk contact",
			zap.String("tenant_id", cfg.TenantID),
			zap.String("phone", phoneNumber),
			zap.Int("contact_id", contact.ID))
	}

	linkID := r.mirrorContact(ctx, cfg, phoneNumber, displayName, contact.ID)
	return contact.ID, linkID, nil
}

func (r *IdentityResolver) searchContact(ctx context.Context, cfg *domain.ChannelConfig, phoneNumber string) (*adapters.HelpdeskContact, error) {
	exact, err := r.helpdesk.SearchContacts(ctx, cfg, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to search contacts by phone: %w", err)
	}
	for i := range exact {
		if phone.Digits(exact[i].PhoneNumber) == phone.Digits(phoneNumber) {
			return &exact[i], nil
		}
	}

	suffix := phone.LastNine(phoneNumber)
	if suffix == "" {
		return nil, nil
	}
	candidates, err := r.helpdesk.SearchContacts(ctx, cfg, suffix)
	if err != nil {
		return nil, fmt.Errorf("failed to search contacts by suffix: %w", err)
	}
	for i := range candidates {
		if strings.HasSuffix(phone.Digits(candidates[i].PhoneNumber), suffix) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// mirrorContact records the resolution locally and returns the link row id.
// Failures are logged and do not abort the relay; the next delivery simply
// searches remotely again.
func (r *IdentityResolver) mirrorContact(ctx context.Context, cfg *domain.ChannelConfig, phoneNumber, displayName string, contactID int) string {
	if existing, err := r.links.FindContact(ctx, cfg.TenantID, phoneNumber); err == nil && existing != nil {
		return existing.ID
	}
	link := &domain.ContactLink{
		TenantID:          cfg.TenantID,
		Phone:             phoneNumber,
		DisplayName:       displayName,
		HelpdeskContactID: contactID,
	}
	if err := r.links.SaveContact(ctx, link); err != nil {
		logger.Base().Warn("Failed to mirror contact link",
			zap.String("tenant_id", cfg.TenantID),
			zap.String("phone", phoneNumber),
			zap.Error(err))
		return ""
	}
	return link.ID
}

func (r *IdentityResolver) mirrorConversation(ctx context.Context, cfg *domain.ChannelConfig, contactLinkID string, contactID, conversationID int, status string) {
	link := &domain.ConversationLink{
		TenantID:               cfg.TenantID,
		ContactLinkID:          contactLinkID,
		HelpdeskContactID:      contactID,
		InboxID:                cfg.HelpdeskInboxID,
		HelpdeskConversationID: conversationID,
		Status:                 status,
	}
	if err := r.links.SaveConversation(ctx, link); err != nil {
		logger.Base().Warn("Failed to mirror conversation link",
			zap.String("tenant_id", cfg.TenantID),
			zap.Int("conversation_id", conversationID),
			zap.Error(err))
	}
}
