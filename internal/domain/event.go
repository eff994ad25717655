package domain

// ActionKind is the closed set of decisions the classifier can produce for a
// webhook delivery that is not dropped.
type ActionKind string

const (
	// ActionCustomerMessage relays content gateway -> help-desk.
	ActionCustomerMessage ActionKind = "customer_message"
	// ActionAgentMessage relays content help-desk -> gateway.
	ActionAgentMessage ActionKind = "agent_message"
	// ActionLifecycleTouch refreshes lead bookkeeping without relaying content.
	ActionLifecycleTouch ActionKind = "lifecycle_touch"
)

// DropReason explains why a delivery was filtered out at ingress.
type DropReason string

const (
	DropSentBySelf   DropReason = "sent_by_self"
	DropGroupChat    DropReason = "group_chat"
	DropSystemEvent  DropReason = "system_event"
	DropPrivateNote  DropReason = "private_note"
	DropEmptyContent DropReason = "empty_content"
)

// MediaKind tags the recognized attachment types.
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaAudio    MediaKind = "audio"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
	MediaSticker  MediaKind = "sticker"
)

// mediaLabels maps each kind to the icon and label used when the binary
// cannot be relayed and the message degrades to text.
var mediaLabels = map[MediaKind]struct {
	Icon  string
	Label string
}{
	MediaImage:    {"📷", "Imagem"},
	MediaAudio:    {"🎵", "Áudio"},
	MediaVideo:    {"🎬", "Vídeo"},
	MediaDocument: {"📄", "Documento"},
	MediaSticker:  {"💟", "Figurinha"},
}

// Known reports whether k is a recognized media kind.
func (k MediaKind) Known() bool {
	_, ok := mediaLabels[k]
	return ok
}

// FallbackText renders the "{icon} [{Label}]" placeholder sent when the
// binary cannot be fetched or re-uploaded.
func (k MediaKind) FallbackText() string {
	l, ok := mediaLabels[k]
	if !ok {
		l = mediaLabels[MediaDocument]
	}
	return l.Icon + " [" + l.Label + "]"
}

// MediaDescriptor locates an attachment on the source platform.
type MediaDescriptor struct {
	Kind     MediaKind `json:"kind"`
	ID       string    `json:"id"`       // source platform media id
	URL      string    `json:"url"`      // direct URL when the platform provides one
	MimeType string    `json:"mimetype"` // as reported by the source, may be empty
	Filename string    `json:"filename"`
	Caption  string    `json:"caption"`
}

// Action is the single tagged decision carried out of the classifier. No
// component downstream of the classifier re-inspects raw webhook payloads.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Origin Platform   `json:"origin"`

	// Tenant routing identity: exactly one is set, depending on Origin.
	GatewayInstanceKey string `json:"gateway_instance_key,omitempty"`
	HelpdeskAccountID  string `json:"helpdesk_account_id,omitempty"`

	// Normalized customer identity.
	Phone       string `json:"phone"`
	DisplayName string `json:"display_name"`

	// Help-desk conversation the event belongs to, when the origin knows it.
	ConversationID int `json:"conversation_id,omitempty"`
	// True when a lifecycle event reports a conversation created just now.
	NewConversation bool `json:"new_conversation,omitempty"`
	// Conversation status carried by lifecycle events ("open", "resolved").
	ConversationStatus string `json:"conversation_status,omitempty"`

	// Message content.
	MessageID string           `json:"message_id,omitempty"`
	Content   string           `json:"content,omitempty"`
	Media     *MediaDescriptor `json:"media,omitempty"`
}

// Attachment is a fetched binary ready to be re-uploaded to the destination
// platform.
type Attachment struct {
	Data     []byte `json:"-"`
	Filename string `json:"filename"`
	MimeType string `json:"mimetype"`
}

// Decision is the classifier output: either an action to execute or a typed
// drop with its reason.
type Decision struct {
	Action *Action
	Drop   DropReason
}

// Dropped reports whether the delivery was filtered out.
func (d Decision) Dropped() bool {
	return d.Action == nil
}
