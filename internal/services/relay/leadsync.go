package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/viacare/clinic-relay-service/internal/domain"
	"github.com/viacare/clinic-relay-service/internal/repository"
	"github.com/viacare/clinic-relay-service/pkg/logger"
	"github.com/viacare/clinic-relay-service/pkg/phone"
	"go.uber.org/zap"
)

// LeadSync maintains the CRM lead record as a side effect of relay activity.
// Any classified action touches the lead's conversation_id and updated_at;
// creation at stage novo happens only on customer-initiated first contact.
type LeadSync struct {
	leads     repository.LeadRepository
	publisher ActivityPublisher
}

// NewLeadSync creates a new lead synchronizer
func NewLeadSync(leads repository.LeadRepository, publisher ActivityPublisher) *LeadSync {
	return &LeadSync{leads: leads, publisher: publisher}
}

// Sync applies the lead side effect for one classified action. phoneNumber is
// the normalized "+"-canonical form; conversationID is the resolved help-desk
// conversation when known, zero otherwise.
func (s *LeadSync) Sync(ctx context.Context, cfg *domain.ChannelConfig, action *domain.Action, phoneNumber string, conversationID int) error {
	variants := phoneVariants(phoneNumber)
	if len(variants) == 0 {
		return nil
	}

	lead, err := s.leads.FindByPhoneVariants(ctx, cfg.TenantID, variants)
	if err != nil {
		return fmt.Errorf("failed to look up lead: %w", err)
	}

	now := time.Now()
	if lead != nil {
		if conversationID == 0 {
			conversationID = lead.ConversationID
		}
		if err := s.leads.Touch(ctx, lead.ID, conversationID, now); err != nil {
			return fmt.Errorf("failed to touch lead %s: %w", lead.ID, err)
		}
		s.publish(ctx, cfg, lead, conversationID, false, now)
		return nil
	}

	if !s.shouldCreate(action) {
		return nil
	}

	lead = &domain.Lead{
		TenantID:       cfg.TenantID,
		Name:           action.DisplayName,
		Phone:          phoneNumber,
		Stage:          domain.LeadStageNovo,
		ConversationID: conversationID,
		UpdatedAt:      now,
	}
	if err := s.leads.Create(ctx, lead); err != nil {
		return fmt.Errorf("failed to create lead for %s: %w", phoneNumber, err)
	}
	logger.Base().Info("Created lead",
		zap.String("tenant_id", cfg.TenantID),
		zap.String("lead_id", lead.ID),
		zap.String("phone", phoneNumber),
		zap.Int("conversation_id", conversationID))
	s.publish(ctx, cfg, lead, conversationID, true, now)
	return nil
}

// shouldCreate gates lead creation: customer messages always create, a
// lifecycle touch creates only when it reports a brand-new conversation, and
// a pure agent outbound with no prior customer contact never does.
func (s *LeadSync) shouldCreate(action *domain.Action) bool {
	switch action.Kind {
	case domain.ActionCustomerMessage:
		return true
	case domain.ActionLifecycleTouch:
		return action.NewConversation
	default:
		return false
	}
}

func (s *LeadSync) publish(ctx context.Context, cfg *domain.ChannelConfig, lead *domain.Lead, conversationID int, created bool, at time.Time) {
	if s.publisher == nil {
		return
	}
	activity := &domain.LeadActivity{
		TenantID:       cfg.TenantID,
		LeadID:         lead.ID,
		Phone:          lead.Phone,
		Stage:          lead.Stage,
		ConversationID: conversationID,
		Created:        created,
		OccurredAt:     at,
	}
	if err := s.publisher.PublishLeadActivity(ctx, activity); err != nil {
		logger.Base().Warn("Failed to publish lead activity",
			zap.String("tenant_id", cfg.TenantID),
			zap.String("lead_id", lead.ID),
			zap.Error(err))
	}
}

// phoneVariants returns the raw-digit and "+"-canonical forms so legacy rows
// stored either way still match.
func phoneVariants(phoneNumber string) []string {
	digits := phone.Digits(phoneNumber)
	if digits == "" {
		return nil
	}
	canonical := "+" + digits
	if canonical == phoneNumber {
		return []string{digits, canonical}
	}
	return []string{digits, canonical, phoneNumber}
}
