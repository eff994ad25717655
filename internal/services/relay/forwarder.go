package relay

import (
	"context"
	"fmt"

	"github.com/viacare/clinic-relay-service/internal/domain"
	"github.com/viacare/clinic-relay-service/pkg/logger"
	"go.uber.org/zap"
)

// messageTypeIncoming is how the help-desk platform labels customer-authored
// messages posted into a conversation.
const messageTypeIncoming = "incoming"

// Forwarder posts finalized payloads into the destination platform's
// conversation. Upstream errors are logged with full context and returned to
// the caller; there is no synchronous retry.
type Forwarder struct {
	helpdesk HelpdeskAPI
	gateway  GatewayAPI
}

// NewForwarder creates a new message forwarder
func NewForwarder(helpdesk HelpdeskAPI, gateway GatewayAPI) *Forwarder {
	return &Forwarder{helpdesk: helpdesk, gateway: gateway}
}

// ForwardToHelpdesk posts a customer message into the resolved help-desk
// conversation as an incoming, non-private message.
func (f *Forwarder) ForwardToHelpdesk(ctx context.Context, cfg *domain.ChannelConfig, conversationID int, payload *Payload) error {
	var err error
	if payload.Attachment != nil {
		_, err = f.helpdesk.CreateAttachmentMessage(ctx, cfg, conversationID, payload.Text, messageTypeIncoming, payload.Attachment)
	} else {
		_, err = f.helpdesk.CreateTextMessage(ctx, cfg, conversationID, payload.Text, messageTypeIncoming)
	}
	if err != nil {
		logger.Base().Error("Failed to forward message to helpdesk",
			zap.String("tenant_id", cfg.TenantID),
			zap.Int("conversation_id", conversationID),
			zap.Bool("has_attachment", payload.Attachment != nil),
			zap.Error(err))
		return fmt.Errorf("failed to forward message to helpdesk conversation %d: %w", conversationID, err)
	}
	return nil
}

// ForwardToGateway sends an agent reply to the customer's phone through the
// messaging gateway. Attachments the gateway cannot receive degrade to the
// payload's text form before this call.
func (f *Forwarder) ForwardToGateway(ctx context.Context, cfg *domain.ChannelConfig, phone, text string) error {
	if err := f.gateway.SendText(ctx, cfg, phone, text); err != nil {
		logger.Base().Error("Failed to forward message to gateway",
			zap.String("tenant_id", cfg.TenantID),
			zap.String("phone", phone),
			zap.Error(err))
		return fmt.Errorf("failed to forward message to gateway for %s: %w", phone, err)
	}
	return nil
}
