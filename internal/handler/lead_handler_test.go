package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viacare/clinic-relay-service/internal/domain"
)

const testTenantID = "11111111-2222-3333-4444-555555555555"

// memLeadRepo is a minimal in-memory LeadRepository for handler tests.
type memLeadRepo struct {
	leads map[string]*domain.Lead
}

func newMemLeadRepo(leads ...*domain.Lead) *memLeadRepo {
	repo := &memLeadRepo{leads: make(map[string]*domain.Lead)}
	for _, l := range leads {
		repo.leads[l.ID] = l
	}
	return repo
}

func (m *memLeadRepo) Create(ctx context.Context, lead *domain.Lead) error {
	m.leads[lead.ID] = lead
	return nil
}

func (m *memLeadRepo) GetByID(ctx context.Context, tenantID, id string) (*domain.Lead, error) {
	lead, ok := m.leads[id]
	if !ok || lead.TenantID != tenantID {
		return nil, nil
	}
	return lead, nil
}

func (m *memLeadRepo) FindByPhoneVariants(ctx context.Context, tenantID string, variants []string) (*domain.Lead, error) {
	return nil, nil
}

func (m *memLeadRepo) Touch(ctx context.Context, id string, conversationID int, at time.Time) error {
	return nil
}

func (m *memLeadRepo) Update(ctx context.Context, lead *domain.Lead) error {
	m.leads[lead.ID] = lead
	return nil
}

func (m *memLeadRepo) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Lead, error) {
	var out []*domain.Lead
	for _, l := range m.leads {
		if l.TenantID == tenantID {
			out = append(out, l)
		}
	}
	return out, nil
}

func newLeadRouter(repo *memLeadRepo) *mux.Router {
	router := mux.NewRouter()
	NewLeadHandler(repo, nil).SetupLeadRoutes(router)
	return router
}

func TestListLeads(t *testing.T) {
	repo := newMemLeadRepo(
		&domain.Lead{ID: "lead-1", TenantID: testTenantID, Phone: "+5511999998888", Stage: domain.LeadStageNovo},
		&domain.Lead{ID: "lead-2", TenantID: "other-tenant", Phone: "+5511999997777", Stage: domain.LeadStageNovo},
	)
	router := newLeadRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/leads?tenant_id="+testTenantID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Leads []*domain.Lead `json:"leads"`
		Count int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Leads, 1)
	assert.Equal(t, "lead-1", body.Leads[0].ID)
}

func TestListLeadsRequiresTenantID(t *testing.T) {
	router := newLeadRouter(newMemLeadRepo())

	req := httptest.NewRequest(http.MethodGet, "/leads", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func patchStage(t *testing.T, router *mux.Router, leadID string, reqBody map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(reqBody)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPatch, "/leads/"+leadID+"/stage", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestUpdateLeadStage(t *testing.T) {
	repo := newMemLeadRepo(&domain.Lead{
		ID: "lead-1", TenantID: testTenantID, Stage: domain.LeadStageNovo,
	})
	router := newLeadRouter(repo)

	rec := patchStage(t, router, "lead-1", map[string]interface{}{
		"tenant_id": testTenantID,
		"stage":     "atendimento",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.LeadStageAtendimento, repo.leads["lead-1"].Stage)
}

func TestUpdateLeadStageRejectsInvalidTransition(t *testing.T) {
	repo := newMemLeadRepo(&domain.Lead{
		ID: "lead-1", TenantID: testTenantID, Stage: domain.LeadStageNovo,
	})
	router := newLeadRouter(repo)

	// novo cannot jump straight to convertido.
	rec := patchStage(t, router, "lead-1", map[string]interface{}{
		"tenant_id": testTenantID,
		"stage":     "convertido",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, domain.LeadStageNovo, repo.leads["lead-1"].Stage)
}

func TestUpdateLeadStageRejectsTerminalLead(t *testing.T) {
	repo := newMemLeadRepo(&domain.Lead{
		ID: "lead-1", TenantID: testTenantID, Stage: domain.LeadStagePerdido,
	})
	router := newLeadRouter(repo)

	rec := patchStage(t, router, "lead-1", map[string]interface{}{
		"tenant_id": testTenantID,
		"stage":     "atendimento",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpdateLeadStageNotFound(t *testing.T) {
	router := newLeadRouter(newMemLeadRepo())

	rec := patchStage(t, router, "missing", map[string]interface{}{
		"tenant_id": testTenantID,
		"stage":     "atendimento",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
