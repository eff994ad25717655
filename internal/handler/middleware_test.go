package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viacare/clinic-relay-service/internal/config"
	"github.com/viacare/clinic-relay-service/internal/repository"
	"github.com/viacare/clinic-relay-service/pkg/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// stubRepoManager satisfies repository.RepositoryManager with in-memory
// pieces for route-level tests.
type stubRepoManager struct {
	leads *memLeadRepo
}

func (s *stubRepoManager) Tenant() repository.TenantRepository { return nil }
func (s *stubRepoManager) Lead() repository.LeadRepository     { return s.leads }
func (s *stubRepoManager) Link() repository.LinkRepository     { return nil }
func (s *stubRepoManager) Ping(ctx context.Context) error      { return nil }
func (s *stubRepoManager) Close() error                        { return nil }

func TestAPIRequestLoggedOnce(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	restore := logger.Replace(zap.New(core))
	defer restore()

	hm := &HandlerManager{
		config:      &config.RelayConfig{},
		repoManager: &stubRepoManager{leads: newMemLeadRepo()},
		startedAt:   time.Now(),
	}
	router := mux.NewRouter()
	hm.SetupAllRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/api/leads?tenant_id="+testTenantID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	accessEntries := 0
	for _, entry := range logs.All() {
		if entry.Message == "http request" {
			accessEntries++
		}
	}
	assert.Equal(t, 1, accessEntries)
}

func TestValidationMiddlewareRejectsNonJSON(t *testing.T) {
	hm := &HandlerManager{
		config:      &config.RelayConfig{},
		repoManager: &stubRepoManager{leads: newMemLeadRepo()},
		startedAt:   time.Now(),
	}
	router := mux.NewRouter()
	hm.SetupAllRoutes(router)

	req := httptest.NewRequest(http.MethodPatch, "/api/leads/l1/stage", nil)
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
