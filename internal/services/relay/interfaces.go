package relay

import (
	"context"
	"time"

	adapters "github.com/viacare/clinic-relay-service/internal/adapters/http"
	"github.com/viacare/clinic-relay-service/internal/domain"
)

// HelpdeskAPI is the slice of the help-desk platform client the relay
// consumes. Tests substitute a fake.
type HelpdeskAPI interface {
	SearchContacts(ctx context.Context, cfg *domain.ChannelConfig, query string) ([]adapters.HelpdeskContact, error)
	CreateContact(ctx context.Context, cfg *domain.ChannelConfig, name, phone string) (*adapters.HelpdeskContact, error)
	ListContactConversations(ctx context.Context, cfg *domain.ChannelConfig, contactID int) ([]adapters.HelpdeskConversation, error)
	CreateConversation(ctx context.Context, cfg *domain.ChannelConfig, contactID, inboxID int) (*adapters.HelpdeskConversation, error)
	CreateTextMessage(ctx context.Context, cfg *domain.ChannelConfig, conversationID int, content, messageType string) (*adapters.HelpdeskMessage, error)
	CreateAttachmentMessage(ctx context.Context, cfg *domain.ChannelConfig, conversationID int, caption, messageType string, attachment *domain.Attachment) (*adapters.HelpdeskMessage, error)
}

// GatewayAPI is the slice of the messaging gateway client the relay consumes.
type GatewayAPI interface {
	DownloadMedia(ctx context.Context, cfg *domain.ChannelConfig, media *domain.MediaDescriptor) ([]byte, string, error)
	SendText(ctx context.Context, cfg *domain.ChannelConfig, phone, text string) error
}

// Deduper suppresses redelivered webhook payloads. MarkOnce returns true the
// first time a key is seen within the TTL window.
type Deduper interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// ActivityPublisher pushes lead activity notifications to realtime UI
// subscribers.
type ActivityPublisher interface {
	PublishLeadActivity(ctx context.Context, activity *domain.LeadActivity) error
}
