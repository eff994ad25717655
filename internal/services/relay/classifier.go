// Package relay implements the cross-channel message relay pipeline: event
// classification, identity resolution, media transfer, message forwarding
// and CRM lead bookkeeping.
package relay

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viacare/clinic-relay-service/internal/domain"
)

// GatewayEnvelope is the webhook body posted by the messaging gateway.
type GatewayEnvelope struct {
	Event    string           `json:"event"`
	Instance string           `json:"instance"`
	Data     gatewayEventData `json:"data"`
}

type gatewayEventData struct {
	ID       string        `json:"id"`
	From     string        `json:"from"`
	FromMe   bool          `json:"fromMe"`
	IsGroup  bool          `json:"isGroup"`
	PushName string        `json:"pushName"`
	Type     string        `json:"type"`
	Text     string        `json:"text"`
	Caption  string        `json:"caption"`
	Media    *gatewayMedia `json:"media"`
}

type gatewayMedia struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	MimeType string `json:"mimetype"`
	Filename string `json:"filename"`
}

// HelpdeskEnvelope is the webhook body posted by the help-desk platform.
type HelpdeskEnvelope struct {
	Event   string `json:"event"`
	Account struct {
		ID json.Number `json:"id"`
	} `json:"account"`
	Conversation *helpdeskConversationEvent `json:"conversation"`
	ID           json.Number                `json:"id"`
	MessageType  string                     `json:"message_type"`
	Private      bool                       `json:"private"`
	Content      string                     `json:"content"`
	Attachments  []helpdeskAttachment       `json:"attachments"`
}

type helpdeskConversationEvent struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
	Meta   struct {
		Sender struct {
			PhoneNumber string `json:"phone_number"`
			Name        string `json:"name"`
		} `json:"sender"`
	} `json:"meta"`
}

type helpdeskAttachment struct {
	ID       int    `json:"id"`
	FileType string `json:"file_type"`
	DataURL  string `json:"data_url"`
}

// helpdeskLifecycleEvents map a help-desk event name to whether it reports a
// conversation created in this delivery.
var helpdeskLifecycleEvents = map[string]bool{
	"conversation_created":        true,
	"conversation_updated":        false,
	"conversation_status_changed": false,
}

// Classifier reduces raw webhook payloads to a closed set of actionable
// decisions. No component downstream of it re-inspects raw payloads.
type Classifier struct{}

// NewClassifier creates a new event classifier
func NewClassifier() *Classifier {
	return &Classifier{}
}

// ClassifyGateway parses a gateway webhook body into a decision. It returns
// domain.ErrMalformedPayload (wrapped) when the body is structurally invalid.
func (c *Classifier) ClassifyGateway(body []byte) (domain.Decision, error) {
	var env GatewayEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.Decision{}, fmt.Errorf("%w: invalid gateway JSON: %v", domain.ErrMalformedPayload, err)
	}
	if env.Instance == "" {
		return domain.Decision{}, fmt.Errorf("%w: gateway event missing instance", domain.ErrMalformedPayload)
	}

	// Everything except chat messages (connection, qrcode, presence, ack)
	// carries no relayable content.
	if env.Event != "message" {
		return domain.Decision{Drop: domain.DropSystemEvent}, nil
	}

	data := env.Data
	if data.FromMe {
		return domain.Decision{Drop: domain.DropSentBySelf}, nil
	}
	if data.IsGroup || strings.HasSuffix(data.From, "@g.us") {
		return domain.Decision{Drop: domain.DropGroupChat}, nil
	}

	phone := chatIDToPhone(data.From)
	if phone == "" {
		return domain.Decision{}, fmt.Errorf("%w: gateway message missing sender", domain.ErrMalformedPayload)
	}

	action := &domain.Action{
		Kind:               domain.ActionCustomerMessage,
		Origin:             domain.PlatformGateway,
		GatewayInstanceKey: env.Instance,
		Phone:              phone,
		DisplayName:        data.PushName,
		MessageID:          data.ID,
	}

	switch kind := domain.MediaKind(data.Type); {
	case data.Type == "text" || data.Type == "chat" || data.Type == "":
		if strings.TrimSpace(data.Text) == "" {
			return domain.Decision{Drop: domain.DropEmptyContent}, nil
		}
		action.Content = data.Text
	case kind.Known():
		media := &domain.MediaDescriptor{
			Kind:    kind,
			Caption: data.Caption,
		}
		if data.Media != nil {
			media.ID = data.Media.ID
			media.URL = data.Media.URL
			media.MimeType = data.Media.MimeType
			media.Filename = data.Media.Filename
		}
		if media.ID == "" && media.URL == "" {
			return domain.Decision{Drop: domain.DropEmptyContent}, nil
		}
		action.Media = media
	default:
		return domain.Decision{Drop: domain.DropEmptyContent}, nil
	}

	return domain.Decision{Action: action}, nil
}

// ClassifyHelpdesk parses a help-desk webhook body into a decision. Messages
// the relay itself posted arrive back as incoming message_created events and
// are dropped to prevent feedback loops.
func (c *Classifier) ClassifyHelpdesk(body []byte) (domain.Decision, error) {
	var env HelpdeskEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.Decision{}, fmt.Errorf("%w: invalid helpdesk JSON: %v", domain.ErrMalformedPayload, err)
	}
	accountID := env.Account.ID.String()
	if accountID == "" {
		return domain.Decision{}, fmt.Errorf("%w: helpdesk event missing account id", domain.ErrMalformedPayload)
	}

	if newConv, ok := helpdeskLifecycleEvents[env.Event]; ok {
		if env.Conversation == nil {
			return domain.Decision{}, fmt.Errorf("%w: helpdesk lifecycle event missing conversation", domain.ErrMalformedPayload)
		}
		return domain.Decision{Action: &domain.Action{
			Kind:               domain.ActionLifecycleTouch,
			Origin:             domain.PlatformHelpdesk,
			HelpdeskAccountID:  accountID,
			Phone:              env.Conversation.Meta.Sender.PhoneNumber,
			DisplayName:        env.Conversation.Meta.Sender.Name,
			ConversationID:     env.Conversation.ID,
			NewConversation:    newConv,
			ConversationStatus: env.Conversation.Status,
		}}, nil
	}

	if env.Event != "message_created" {
		return domain.Decision{Drop: domain.DropSystemEvent}, nil
	}
	if env.Private {
		return domain.Decision{Drop: domain.DropPrivateNote}, nil
	}
	// Incoming messages on the help-desk are the relay's own posts coming
	// back; only agent-authored outgoing messages move toward the gateway.
	if env.MessageType != "outgoing" {
		return domain.Decision{Drop: domain.DropSentBySelf}, nil
	}
	if env.Conversation == nil {
		return domain.Decision{}, fmt.Errorf("%w: helpdesk message missing conversation", domain.ErrMalformedPayload)
	}

	action := &domain.Action{
		Kind:              domain.ActionAgentMessage,
		Origin:            domain.PlatformHelpdesk,
		HelpdeskAccountID: accountID,
		Phone:             env.Conversation.Meta.Sender.PhoneNumber,
		DisplayName:       env.Conversation.Meta.Sender.Name,
		ConversationID:    env.Conversation.ID,
		MessageID:         env.ID.String(),
		Content:           env.Content,
	}
	if len(env.Attachments) > 0 {
		att := env.Attachments[0]
		kind := domain.MediaKind(att.FileType)
		if !kind.Known() {
			kind = domain.MediaDocument
		}
		action.Media = &domain.MediaDescriptor{
			Kind:    kind,
			ID:      fmt.Sprintf("%d", att.ID),
			URL:     att.DataURL,
			Caption: env.Content,
		}
	}
	if strings.TrimSpace(action.Content) == "" && action.Media == nil {
		return domain.Decision{Drop: domain.DropEmptyContent}, nil
	}
	if action.Phone == "" {
		return domain.Decision{}, fmt.Errorf("%w: helpdesk message missing contact phone", domain.ErrMalformedPayload)
	}

	return domain.Decision{Action: action}, nil
}

// chatIDToPhone strips the gateway chat suffix ("@s.whatsapp.net", "@c.us")
// and keeps the bare number.
func chatIDToPhone(chatID string) string {
	if i := strings.IndexByte(chatID, '@'); i >= 0 {
		chatID = chatID[:i]
	}
	return strings.TrimSpace(chatID)
}
