package relay

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	adapters "github.com/viacare/clinic-relay-service/internal/adapters/http"
	"github.com/viacare/clinic-relay-service/internal/domain"
)

// fakeHelpdesk is an in-memory stand-in for the help-desk platform client.
type fakeHelpdesk struct {
	mu sync.Mutex

	contacts      []adapters.HelpdeskContact
	conversations map[int][]adapters.HelpdeskConversation
	nextContactID int
	nextConvID    int

	searchErr error
	createErr error

	textMessages       []fakeTextMessage
	attachmentMessages []fakeAttachmentMessage
	messageErr         error
}

type fakeTextMessage struct {
	ConversationID int
	Content        string
	MessageType    string
}

type fakeAttachmentMessage struct {
	ConversationID int
	Caption        string
	MessageType    string
	Attachment     *domain.Attachment
}

func newFakeHelpdesk() *fakeHelpdesk {
	return &fakeHelpdesk{
		conversations: make(map[int][]adapters.HelpdeskConversation),
		nextContactID: 100,
		nextConvID:    500,
	}
}

func (f *fakeHelpdesk) SearchContacts(ctx context.Context, cfg *domain.ChannelConfig, query string) ([]adapters.HelpdeskContact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var out []adapters.HelpdeskContact
	for _, c := range f.contacts {
		if query != "" && strings.Contains(c.PhoneNumber, query) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeHelpdesk) CreateContact(ctx context.Context, cfg *domain.ChannelConfig, name, phone string) (*adapters.HelpdeskContact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextContactID++
	contact := adapters.HelpdeskContact{ID: f.nextContactID, Name: name, PhoneNumber: phone}
	f.contacts = append(f.contacts, contact)
	return &contact, nil
}

func (f *fakeHelpdesk) ListContactConversations(ctx context.Context, cfg *domain.ChannelConfig, contactID int) ([]adapters.HelpdeskConversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conversations[contactID], nil
}

func (f *fakeHelpdesk) CreateConversation(ctx context.Context, cfg *domain.ChannelConfig, contactID, inboxID int) (*adapters.HelpdeskConversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextConvID++
	conv := adapters.HelpdeskConversation{ID: f.nextConvID, InboxID: inboxID, Status: domain.ConversationStatusOpen}
	f.conversations[contactID] = append(f.conversations[contactID], conv)
	return &conv, nil
}

func (f *fakeHelpdesk) CreateTextMessage(ctx context.Context, cfg *domain.ChannelConfig, conversationID int, content, messageType string) (*adapters.HelpdeskMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messageErr != nil {
		return nil, f.messageErr
	}
	f.textMessages = append(f.textMessages, fakeTextMessage{conversationID, content, messageType})
	return &adapters.HelpdeskMessage{ID: len(f.textMessages)}, nil
}

func (f *fakeHelpdesk) CreateAttachmentMessage(ctx context.Context, cfg *domain.ChannelConfig, conversationID int, caption, messageType string, attachment *domain.Attachment) (*adapters.HelpdeskMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messageErr != nil {
		return nil, f.messageErr
	}
	f.attachmentMessages = append(f.attachmentMessages, fakeAttachmentMessage{conversationID, caption, messageType, attachment})
	return &adapters.HelpdeskMessage{ID: len(f.attachmentMessages)}, nil
}

// fakeGateway is an in-memory stand-in for the messaging gateway client.
type fakeGateway struct {
	mu sync.Mutex

	mediaData   []byte
	contentType string
	downloadErr error

	sentTexts []fakeSentText
	sendErr   error
}

type fakeSentText struct {
	Phone string
	Text  string
}

func (f *fakeGateway) DownloadMedia(ctx context.Context, cfg *domain.ChannelConfig, media *domain.MediaDescriptor) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.downloadErr != nil {
		return nil, "", f.downloadErr
	}
	return f.mediaData, f.contentType, nil
}

func (f *fakeGateway) SendText(ctx context.Context, cfg *domain.ChannelConfig, phone, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sentTexts = append(f.sentTexts, fakeSentText{phone, text})
	return nil
}

// fakeLinkRepo is an in-memory LinkRepository.
type fakeLinkRepo struct {
	mu            sync.Mutex
	contacts      []*domain.ContactLink
	conversations []*domain.ConversationLink
	nextID        int
}

func (f *fakeLinkRepo) FindContact(ctx context.Context, tenantID, phone string) (*domain.ContactLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.contacts {
		if l.TenantID == tenantID && l.Phone == phone {
			return l, nil
		}
	}
	return nil, nil
}

func (f *fakeLinkRepo) SaveContact(ctx context.Context, link *domain.ContactLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if link.ID == "" {
		f.nextID++
		link.ID = fmt.Sprintf("contact-link-%d", f.nextID)
	}
	f.contacts = append(f.contacts, link)
	return nil
}

func (f *fakeLinkRepo) FindActiveConversation(ctx context.Context, tenantID string, helpdeskContactID, inboxID int) (*domain.ConversationLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.conversations {
		if l.TenantID == tenantID && l.HelpdeskContactID == helpdeskContactID &&
			l.InboxID == inboxID && l.Status != domain.ConversationStatusResolved {
			return l, nil
		}
	}
	return nil, nil
}

func (f *fakeLinkRepo) SaveConversation(ctx context.Context, link *domain.ConversationLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if link.ID == "" {
		f.nextID++
		link.ID = fmt.Sprintf("conversation-link-%d", f.nextID)
	}
	if link.Status == "" {
		link.Status = domain.ConversationStatusOpen
	}
	f.conversations = append(f.conversations, link)
	return nil
}

func (f *fakeLinkRepo) MarkConversationStatus(ctx context.Context, tenantID string, helpdeskConversationID int, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.conversations {
		if l.TenantID == tenantID && l.HelpdeskConversationID == helpdeskConversationID {
			l.Status = status
		}
	}
	return nil
}

// fakeLeadRepo is an in-memory LeadRepository.
type fakeLeadRepo struct {
	mu     sync.Mutex
	leads  []*domain.Lead
	nextID int
}

func (f *fakeLeadRepo) Create(ctx context.Context, lead *domain.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lead.ID == "" {
		f.nextID++
		lead.ID = fmt.Sprintf("lead-%d", f.nextID)
	}
	if lead.Stage == "" {
		lead.Stage = domain.LeadStageNovo
	}
	f.leads = append(f.leads, lead)
	return nil
}

func (f *fakeLeadRepo) GetByID(ctx context.Context, tenantID, id string) (*domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.leads {
		if l.TenantID == tenantID && l.ID == id {
			return l, nil
		}
	}
	return nil, nil
}

func (f *fakeLeadRepo) FindByPhoneVariants(ctx context.Context, tenantID string, variants []string) (*domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.leads {
		if l.TenantID != tenantID {
			continue
		}
		for _, v := range variants {
			if l.Phone == v {
				return l, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeLeadRepo) Touch(ctx context.Context, id string, conversationID int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.leads {
		if l.ID == id {
			l.ConversationID = conversationID
			l.UpdatedAt = at
			return nil
		}
	}
	return fmt.Errorf("lead %s not found", id)
}

func (f *fakeLeadRepo) Update(ctx context.Context, lead *domain.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, l := range f.leads {
		if l.ID == lead.ID {
			f.leads[i] = lead
			return nil
		}
	}
	return fmt.Errorf("lead %s not found", lead.ID)
}

func (f *fakeLeadRepo) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Lead
	for _, l := range f.leads {
		if l.TenantID == tenantID {
			out = append(out, l)
		}
	}
	return out, nil
}

// fakeDeduper remembers keys it has seen.
type fakeDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{seen: make(map[string]bool)}
}

func (f *fakeDeduper) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

// fakePublisher records published lead activities.
type fakePublisher struct {
	mu         sync.Mutex
	activities []*domain.LeadActivity
}

func (f *fakePublisher) PublishLeadActivity(ctx context.Context, activity *domain.LeadActivity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, activity)
	return nil
}

func testChannelConfig() *domain.ChannelConfig {
	return &domain.ChannelConfig{
		TenantID:           "11111111-2222-3333-4444-555555555555",
		TenantName:         "Clinica Exemplo",
		GatewayInstanceKey: "instance-t1",
		GatewayAPIKey:      "gw-key",
		HelpdeskAccountID:  "7",
		HelpdeskInboxID:    9,
		HelpdeskAPIToken:   "hd-token",
		DefaultCountry:     "BR",
	}
}
