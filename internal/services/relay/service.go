package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/viacare/clinic-relay-service/internal/domain"
	"github.com/viacare/clinic-relay-service/internal/repository"
	"github.com/viacare/clinic-relay-service/internal/services/tenant"
	"github.com/viacare/clinic-relay-service/pkg/logger"
	"github.com/viacare/clinic-relay-service/pkg/phone"
	"go.uber.org/zap"
)

// Outcome is the relay result the webhook handler translates into an HTTP
// response. Ignored marks deliveries that were valid but produced no relay,
// either because the classifier dropped them or because dedupe suppressed a
// redelivery.
type Outcome struct {
	Ignored bool
	Reason  string
}

// Service orchestrates one webhook delivery end to end: classify, resolve
// tenant, dedupe, resolve identity, prepare media, forward, sync the lead.
// Mid-relay upstream failures are logged and swallowed so the delivering
// platform is not pushed into a retry storm.
type Service struct {
	classifier *Classifier
	tenants    *tenant.Resolver
	identity   *IdentityResolver
	media      *MediaRelay
	forwarder  *Forwarder
	leads      *LeadSync
	links      repository.LinkRepository
	deduper    Deduper
	dedupeTTL  time.Duration
}

// NewService creates a new relay service
func NewService(
	classifier *Classifier,
	tenants *tenant.Resolver,
	identity *IdentityResolver,
	media *MediaRelay,
	forwarder *Forwarder,
	leads *LeadSync,
	links repository.LinkRepository,
	deduper Deduper,
	dedupeTTL time.Duration,
) *Service {
	return &Service{
		classifier: classifier,
		tenants:    tenants,
		identity:   identity,
		media:      media,
		forwarder:  forwarder,
		leads:      leads,
		links:      links,
		deduper:    deduper,
		dedupeTTL:  dedupeTTL,
	}
}

// HandleGatewayWebhook processes one delivery from the messaging gateway.
// Errors are returned only for malformed payloads and unknown tenants; every
// other failure is logged and answered as success.
func (s *Service) HandleGatewayWebhook(ctx context.Context, body []byte) (*Outcome, error) {
	decision, err := s.classifier.ClassifyGateway(body)
	if err != nil {
		return nil, err
	}
	if decision.Dropped() {
		return &Outcome{Ignored: true, Reason: string(decision.Drop)}, nil
	}
	action := decision.Action

	cfg, err := s.tenants.ByGatewayInstanceKey(ctx, action.GatewayInstanceKey)
	if err != nil {
		return nil, err
	}

	normalized := phone.NormalizeE164(action.Phone, cfg.DefaultCountry)
	if normalized == "" {
		return nil, fmt.Errorf("%w: unusable sender phone %q", domain.ErrMalformedPayload, action.Phone)
	}

	if outcome := s.dedupe(ctx, cfg, "gateway", action.MessageID); outcome != nil {
		return outcome, nil
	}

	resolution, err := s.identity.Resolve(ctx, cfg, normalized, action.DisplayName)
	if err != nil {
		logger.Base().Error("Identity resolution failed, aborting relay",
			zap.String("tenant_id", cfg.TenantID),
			zap.String("phone", normalized),
			zap.Error(err))
		return &Outcome{}, nil
	}

	payload := s.media.Prepare(ctx, cfg, action)
	if err := s.forwarder.ForwardToHelpdesk(ctx, cfg, resolution.ConversationID, payload); err != nil {
		// Already logged with context by the forwarder.
		return &Outcome{}, nil
	}

	if err := s.leads.Sync(ctx, cfg, action, normalized, resolution.ConversationID); err != nil {
		logger.Base().Error("Lead sync failed after relay",
			zap.String("tenant_id", cfg.TenantID),
			zap.String("phone", normalized),
			zap.Error(err))
	}

	return &Outcome{}, nil
}

// HandleHelpdeskWebhook processes one delivery from the help-desk platform:
// agent replies relay to the gateway, lifecycle events refresh lead
// bookkeeping and mirrored conversation status.
func (s *Service) HandleHelpdeskWebhook(ctx context.Context, body []byte) (*Outcome, error) {
	decision, err := s.classifier.ClassifyHelpdesk(body)
	if err != nil {
		return nil, err
	}
	if decision.Dropped() {
		return &Outcome{Ignored: true, Reason: string(decision.Drop)}, nil
	}
	action := decision.Action

	cfg, err := s.tenants.ByHelpdeskAccountID(ctx, action.HelpdeskAccountID)
	if err != nil {
		return nil, err
	}

	if action.Kind == domain.ActionLifecycleTouch {
		return s.handleLifecycleTouch(ctx, cfg, action)
	}

	normalized := phone.NormalizeE164(action.Phone, cfg.DefaultCountry)
	if normalized == "" {
		return nil, fmt.Errorf("%w: unusable contact phone %q", domain.ErrMalformedPayload, action.Phone)
	}

	if outcome := s.dedupe(ctx, cfg, "helpdesk", action.MessageID); outcome != nil {
		return outcome, nil
	}

	// The gateway's send surface is text-only; agent attachments degrade to
	// the media placeholder plus caption.
	text := action.Content
	if action.Media != nil {
		text = fallbackText(action.Media)
	}

	if err := s.forwarder.ForwardToGateway(ctx, cfg, phone.Digits(normalized), text); err != nil {
		// Already logged with context by the forwarder.
		return &Outcome{}, nil
	}

	if err := s.leads.Sync(ctx, cfg, action, normalized, action.ConversationID); err != nil {
		logger.Base().Error("Lead sync failed after relay",
			zap.String("tenant_id", cfg.TenantID),
			zap.String("phone", normalized),
			zap.Error(err))
	}

	return &Outcome{}, nil
}

// handleLifecycleTouch refreshes mirrored conversation status and lead
// bookkeeping without forwarding any content.
func (s *Service) handleLifecycleTouch(ctx context.Context, cfg *domain.ChannelConfig, action *domain.Action) (*Outcome, error) {
	if action.ConversationStatus != "" && action.ConversationID != 0 {
		if err := s.links.MarkConversationStatus(ctx, cfg.TenantID, action.ConversationID, action.ConversationStatus); err != nil {
			logger.Base().Warn("Failed to mirror conversation status",
				zap.String("tenant_id", cfg.TenantID),
				zap.Int("conversation_id", action.ConversationID),
				zap.Error(err))
		}
	}

	normalized := phone.NormalizeE164(action.Phone, cfg.DefaultCountry)
	if normalized == "" {
		// Lifecycle events without a contact phone still mirrored status.
		return &Outcome{Ignored: true, Reason: "no_contact_phone"}, nil
	}

	if err := s.leads.Sync(ctx, cfg, action, normalized, action.ConversationID); err != nil {
		logger.Base().Error("Lead sync failed on lifecycle event",
			zap.String("tenant_id", cfg.TenantID),
			zap.String("phone", normalized),
			zap.Error(err))
	}
	return &Outcome{}, nil
}

// dedupe suppresses redelivered payloads by message id. Redis failures never
// block the relay; a delivery that cannot be checked is processed.
func (s *Service) dedupe(ctx context.Context, cfg *domain.ChannelConfig, origin, messageID string) *Outcome {
	if s.deduper == nil || s.dedupeTTL <= 0 || messageID == "" {
		return nil
	}
	key := fmt.Sprintf("%s:%s:%s", origin, cfg.TenantID, messageID)
	first, err := s.deduper.MarkOnce(ctx, key, s.dedupeTTL)
	if err != nil {
		logger.Base().Warn("Dedupe check failed, processing delivery anyway",
			zap.String("tenant_id", cfg.TenantID),
			zap.String("message_id", messageID),
			zap.Error(err))
		return nil
	}
	if !first {
		logger.Base().Info("Suppressed duplicate webhook delivery",
			zap.String("tenant_id", cfg.TenantID),
			zap.String("message_id", messageID))
		return &Outcome{Ignored: true, Reason: "duplicate_delivery"}
	}
	return nil
}
