package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/viacare/clinic-relay-service/internal/domain"
	"github.com/viacare/clinic-relay-service/internal/repository"
	"github.com/viacare/clinic-relay-service/internal/services/relay"
	"github.com/viacare/clinic-relay-service/pkg/logger"
	"go.uber.org/zap"
)

// LeadHandler handles HTTP requests for the CRM lead pipeline. Stage changes
// enter the system only through this surface; the relay itself never moves a
// lead between stages.
type LeadHandler struct {
	leads     repository.LeadRepository
	publisher relay.ActivityPublisher
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leads repository.LeadRepository, publisher relay.ActivityPublisher) *LeadHandler {
	return &LeadHandler{leads: leads, publisher: publisher}
}

// SetupLeadRoutes registers the lead CRM endpoints
func (h *LeadHandler) SetupLeadRoutes(router *mux.Router) {
	router.HandleFunc("/leads", h.listLeads).Methods("GET")
	router.HandleFunc("/leads/{id}/stage", h.updateLeadStage).Methods("PATCH")
}

// listLeads returns all leads for a tenant, most recently active first.
func (h *LeadHandler) listLeads(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		writeAPIError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	leads, err := h.leads.ListByTenant(r.Context(), tenantID)
	if err != nil {
		logger.Base().Error("Failed to list leads",
			zap.String("tenant_id", tenantID), zap.Error(err))
		writeAPIError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}

	writeAPIJSON(w, http.StatusOK, map[string]interface{}{
		"leads": leads,
		"count": len(leads),
	})
}

type updateStageRequest struct {
	TenantID string           `json:"tenant_id"`
	Stage    domain.LeadStage `json:"stage"`
}

// updateLeadStage applies an external CRM stage change, enforcing the
// pipeline state machine.
func (h *LeadHandler) updateLeadStage(w http.ResponseWriter, r *http.Request) {
	leadID := mux.Vars(r)["id"]

	var req updateStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.TenantID == "" {
		writeAPIError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	lead, err := h.leads.GetByID(r.Context(), req.TenantID, leadID)
	if err != nil {
		logger.Base().Error("Failed to load lead",
			zap.String("lead_id", leadID), zap.Error(err))
		writeAPIError(w, http.StatusInternalServerError, "failed to load lead")
		return
	}
	if lead == nil {
		writeAPIError(w, http.StatusNotFound, "lead not found")
		return
	}

	if err := lead.AdvanceStage(req.Stage); err != nil {
		writeAPIError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	lead.UpdatedAt = time.Now()

	if err := h.leads.Update(r.Context(), lead); err != nil {
		logger.Base().Error("Failed to update lead stage",
			zap.String("lead_id", leadID), zap.Error(err))
		writeAPIError(w, http.StatusInternalServerError, "failed to update lead")
		return
	}

	logger.Base().Info("Lead stage updated",
		zap.String("tenant_id", req.TenantID),
		zap.String("lead_id", leadID),
		zap.String("stage", string(lead.Stage)))

	if h.publisher != nil {
		activity := &domain.LeadActivity{
			TenantID:       lead.TenantID,
			LeadID:         lead.ID,
			Phone:          lead.Phone,
			Stage:          lead.Stage,
			ConversationID: lead.ConversationID,
			OccurredAt:     lead.UpdatedAt,
		}
		if err := h.publisher.PublishLeadActivity(r.Context(), activity); err != nil {
			logger.Base().Warn("Failed to publish lead stage activity",
				zap.String("lead_id", lead.ID), zap.Error(err))
		}
	}

	writeAPIJSON(w, http.StatusOK, lead)
}

func writeAPIJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Base().Error("Failed to encode API response", zap.Error(err))
	}
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	writeAPIJSON(w, status, map[string]interface{}{"error": message})
}
