package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/viacare/clinic-relay-service/internal/domain"
	"github.com/viacare/clinic-relay-service/pkg/logger"
	"go.uber.org/zap"
)

// HelpdeskClient talks to the help-desk platform's REST API. Credentials are
// per-tenant, so every method takes the resolved channel configuration.
type HelpdeskClient struct {
	baseURL string
	rest    *resty.Client
}

// NewHelpdeskClient creates a new help-desk API client
func NewHelpdeskClient(baseURL string) *HelpdeskClient {
	baseURL = strings.TrimSuffix(baseURL, "/")
	rest := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second)
	return &HelpdeskClient{baseURL: baseURL, rest: rest}
}

// HelpdeskContact represents a contact on the help-desk platform
type HelpdeskContact struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Identifier  string `json:"identifier"`
}

// HelpdeskConversation represents a conversation on the help-desk platform
type HelpdeskConversation struct {
	ID      int    `json:"id"`
	InboxID int    `json:"inbox_id"`
	Status  string `json:"status"`
}

// HelpdeskMessage is the created-message answer the API returns
type HelpdeskMessage struct {
	ID int `json:"id"`
}

func (c *HelpdeskClient) request(ctx context.Context, cfg *domain.ChannelConfig) *resty.Request {
	return c.rest.R().
		SetContext(ctx).
		SetHeader("api_access_token", cfg.HelpdeskAPIToken)
}

func (c *HelpdeskClient) apiError(endpoint string, resp *resty.Response) error {
	return &domain.UpstreamAPIError{
		Platform: domain.PlatformHelpdesk,
		Status:   resp.StatusCode(),
		Endpoint: endpoint,
		Body:     string(resp.Body()),
	}
}

// SearchContacts searches contacts on the tenant's account. The API matches
// name, phone and identifier against the query.
func (c *HelpdeskClient) SearchContacts(ctx context.Context, cfg *domain.ChannelConfig, query string) ([]HelpdeskContact, error) {
	endpoint := fmt.Sprintf("/api/v1/accounts/%s/contacts/search", cfg.HelpdeskAccountID)

	var response struct {
		Payload []HelpdeskContact `json:"payload"`
	}

	resp, err := c.request(ctx, cfg).
		SetQueryParam("q", query).
		SetResult(&response).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to search contacts: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, c.apiError(endpoint, resp)
	}

	return response.Payload, nil
}

// CreateContact creates a new contact on the tenant's account
func (c *HelpdeskClient) CreateContact(ctx context.Context, cfg *domain.ChannelConfig, name, phone string) (*HelpdeskContact, error) {
	endpoint := fmt.Sprintf("/api/v1/accounts/%s/contacts", cfg.HelpdeskAccountID)

	var response struct {
		Payload struct {
			Contact HelpdeskContact `json:"contact"`
		} `json:"payload"`
	}

	resp, err := c.request(ctx, cfg).
		SetBody(map[string]interface{}{
			"name":         name,
			"phone_number": phone,
			"identifier":   phone,
		}).
		SetResult(&response).
		Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return nil, c.apiError(endpoint, resp)
	}

	if response.Payload.Contact.ID == 0 {
		return nil, fmt.Errorf("contact creation response missing contact data")
	}
	return &response.Payload.Contact, nil
}

// ListContactConversations lists all conversations of a contact across inboxes
func (c *HelpdeskClient) ListContactConversations(ctx context.Context, cfg *domain.ChannelConfig, contactID int) ([]HelpdeskConversation, error) {
	endpoint := fmt.Sprintf("/api/v1/accounts/%s/contacts/%d/conversations", cfg.HelpdeskAccountID, contactID)

	var response struct {
		Payload []HelpdeskConversation `json:"payload"`
	}

	resp, err := c.request(ctx, cfg).
		SetResult(&response).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, c.apiError(endpoint, resp)
	}

	return response.Payload, nil
}

// CreateConversation opens a new conversation for a contact on an inbox
func (c *HelpdeskClient) CreateConversation(ctx context.Context, cfg *domain.ChannelConfig, contactID, inboxID int) (*HelpdeskConversation, error) {
	endpoint := fmt.Sprintf("/api/v1/accounts/%s/conversations", cfg.HelpdeskAccountID)

	var response HelpdeskConversation

	resp, err := c.request(ctx, cfg).
		SetBody(map[string]interface{}{
			"contact_id": contactID,
			"inbox_id":   inboxID,
			"status":     domain.ConversationStatusOpen,
		}).
		SetResult(&response).
		Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return nil, c.apiError(endpoint, resp)
	}

	if response.ID == 0 {
		return nil, fmt.Errorf("conversation creation response missing id")
	}
	return &response, nil
}

// CreateTextMessage posts a plain text, non-private message into a conversation.
// messageType is "incoming" or "outgoing" as seen by the help-desk platform.
func (c *HelpdeskClient) CreateTextMessage(ctx context.Context, cfg *domain.ChannelConfig, conversationID int, content, messageType string) (*HelpdeskMessage, error) {
	endpoint := fmt.Sprintf("/api/v1/accounts/%s/conversations/%d/messages", cfg.HelpdeskAccountID, conversationID)

	body := map[string]interface{}{
		"content":      content,
		"message_type": messageType,
		"private":      false,
	}

	var response HelpdeskMessage

	resp, err := c.request(ctx, cfg).
		SetBody(body).
		SetResult(&response).
		Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return nil, c.apiError(endpoint, resp)
	}

	return &response, nil
}

// CreateAttachmentMessage posts a message carrying a binary attachment using
// a multipart body, with optional caption text.
func (c *HelpdeskClient) CreateAttachmentMessage(ctx context.Context, cfg *domain.ChannelConfig, conversationID int, caption, messageType string, attachment *domain.Attachment) (*HelpdeskMessage, error) {
	endpoint := fmt.Sprintf("/api/v1/accounts/%s/conversations/%d/messages", cfg.HelpdeskAccountID, conversationID)

	req := c.request(ctx, cfg).
		SetMultipartFormData(map[string]string{
			"message_type": messageType,
			"private":      "false",
		}).
		SetMultipartField("attachments[]", attachment.Filename, attachment.MimeType, strings.NewReader(string(attachment.Data)))
	if caption != "" {
		req.SetMultipartFormData(map[string]string{"content": caption})
	}

	var response HelpdeskMessage
	resp, err := req.SetResult(&response).Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachment message: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return nil, c.apiError(endpoint, resp)
	}

	logger.Base().Debug("Attachment message created",
		zap.Int("conversation_id", conversationID),
		zap.String("filename", attachment.Filename),
		zap.Int("bytes", len(attachment.Data)))
	return &response, nil
}
