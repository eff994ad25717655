package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/viacare/clinic-relay-service/internal/domain"
	"github.com/viacare/clinic-relay-service/internal/services/relay"
	"github.com/viacare/clinic-relay-service/pkg/logger"
	"go.uber.org/zap"
)

// webhookResponse is the body returned to both delivering platforms.
type webhookResponse struct {
	Success bool   `json:"success"`
	Ignored bool   `json:"ignored,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RelayService is the relay surface the webhook handler drives.
type RelayService interface {
	HandleGatewayWebhook(ctx context.Context, body []byte) (*relay.Outcome, error)
	HandleHelpdeskWebhook(ctx context.Context, body []byte) (*relay.Outcome, error)
}

// WebhookHandler handles HTTP requests for both platform webhooks
type WebhookHandler struct {
	relay         RelayService
	webhookSecret string // HMAC secret for gateway webhook verification
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(relayService RelayService, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		relay:         relayService,
		webhookSecret: webhookSecret,
	}
}

// SetupWebhookRoutes registers the webhook endpoints
func (h *WebhookHandler) SetupWebhookRoutes(router *mux.Router) {
	router.HandleFunc("/webhook/gateway", h.handleGatewayWebhook).Methods("POST")
	router.HandleFunc("/webhook/helpdesk", h.handleHelpdeskWebhook).Methods("POST")
}

// handleGatewayWebhook receives chat events from the messaging gateway.
func (h *WebhookHandler) handleGatewayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Base().Error("Failed to read gateway webhook body", zap.Error(err))
		writeWebhookError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if !h.verifyWebhookSignature(body, r.Header.Get("X-Hub-Signature-256")) {
		logger.Base().Warn("Invalid gateway webhook signature",
			zap.String("remote_addr", r.RemoteAddr))
		writeWebhookError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	outcome, err := h.relay.HandleGatewayWebhook(r.Context(), body)
	h.respond(w, outcome, err)
}

// handleHelpdeskWebhook receives message and conversation lifecycle events
// from the help-desk platform.
func (h *WebhookHandler) handleHelpdeskWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Base().Error("Failed to read helpdesk webhook body", zap.Error(err))
		writeWebhookError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	outcome, err := h.relay.HandleHelpdeskWebhook(r.Context(), body)
	h.respond(w, outcome, err)
}

// respond maps a relay outcome to the webhook response contract: 400 for
// malformed payloads, 404 for unknown tenants, 200 for everything else. The
// delivering platforms treat any non-2xx as a redelivery trigger, so
// mid-relay failures still answer success.
func (h *WebhookHandler) respond(w http.ResponseWriter, outcome *relay.Outcome, err error) {
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMalformedPayload):
			writeWebhookError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrUnknownTenant):
			writeWebhookError(w, http.StatusNotFound, "unknown tenant")
		default:
			// Unexpected errors still answer success to avoid retry storms.
			logger.Base().Error("Unexpected relay error", zap.Error(err))
			writeWebhookJSON(w, http.StatusOK, webhookResponse{Success: true})
		}
		return
	}

	resp := webhookResponse{Success: true}
	if outcome != nil && outcome.Ignored {
		resp.Ignored = true
	}
	writeWebhookJSON(w, http.StatusOK, resp)
}

// verifyWebhookSignature verifies the webhook signature using HMAC-SHA256.
// Deliveries are allowed through when no secret is configured.
func (h *WebhookHandler) verifyWebhookSignature(payload []byte, signature string) bool {
	if h.webhookSecret == "" {
		return true
	}
	if signature == "" {
		return false
	}

	signature = strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(payload)
	expectedSignature := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expectedSignature))
}

func writeWebhookJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Base().Error("Failed to encode webhook response", zap.Error(err))
	}
}

func writeWebhookError(w http.ResponseWriter, status int, message string) {
	writeWebhookJSON(w, status, webhookResponse{Success: false, Error: message})
}
