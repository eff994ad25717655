package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	adapters "github.com/viacare/clinic-relay-service/internal/adapters/http"
	"github.com/viacare/clinic-relay-service/internal/cache"
	"github.com/viacare/clinic-relay-service/internal/config"
	"github.com/viacare/clinic-relay-service/internal/repository"
	"github.com/viacare/clinic-relay-service/internal/services/relay"
	"github.com/viacare/clinic-relay-service/internal/services/tenant"
	"github.com/viacare/clinic-relay-service/pkg/logger"
	redispkg "github.com/viacare/clinic-relay-service/pkg/redis"
	"go.uber.org/zap"
)

// HandlerManager wires the platform clients, repositories and relay services
// together once at process start and registers all routes.
type HandlerManager struct {
	config      *config.RelayConfig
	repoManager repository.RepositoryManager
	redisSvc    redispkg.RedisServiceInterface
	relaySvc    *relay.Service
	publisher   relay.ActivityPublisher
	startedAt   time.Time
}

// NewHandlerManager creates and initializes all services and handlers
func NewHandlerManager(cfg *config.RelayConfig) (*HandlerManager, error) {
	repoManager, err := repository.NewRepositoryManager()
	if err != nil {
		logger.Base().Error("failed to connect to database", zap.Error(err))
		return nil, err
	}

	// Redis backs webhook dedupe and the lead activity channel. The relay
	// degrades gracefully without it: no dedupe, no realtime notifications.
	redisConfig := &redispkg.RedisConfig{
		Host:     config.GetEnvOrDefault("REDIS_HOST", "localhost"),
		Port:     config.GetEnvOrDefault("REDIS_PORT", "6379"),
		Password: config.GetEnvOrDefault("REDIS_PASSWORD", ""),
		DB:       config.GetEnvIntOrDefault("REDIS_DB", 0),
	}
	var redisSvc redispkg.RedisServiceInterface
	if svc, err := redispkg.NewRedisService(redisConfig); err != nil {
		logger.Base().Warn("failed to initialize redis service, running without dedupe and lead activity", zap.Error(err))
	} else {
		redisSvc = svc
	}

	tenantCache := cache.NewTenantCache(repoManager.Tenant(), cfg.TenantCacheTTL)
	tenantResolver := tenant.NewResolver(tenantCache)

	helpdeskClient := adapters.NewHelpdeskClient(cfg.HelpdeskBaseURL)
	gatewayClient := adapters.NewGatewayClient(cfg.GatewayBaseURL)

	var deduper relay.Deduper
	var publisher relay.ActivityPublisher
	if redisSvc != nil {
		deduper = relay.NewRedisDeduper(redisSvc)
		publisher = relay.NewRedisActivityPublisher(redisSvc, cfg.LeadActivityChannel)
	}

	relaySvc := relay.NewService(
		relay.NewClassifier(),
		tenantResolver,
		relay.NewIdentityResolver(helpdeskClient, repoManager.Link()),
		relay.NewMediaRelay(gatewayClient),
		relay.NewForwarder(helpdeskClient, gatewayClient),
		relay.NewLeadSync(repoManager.Lead(), publisher),
		repoManager.Link(),
		deduper,
		cfg.DedupeTTL,
	)

	return &HandlerManager{
		config:      cfg,
		repoManager: repoManager,
		redisSvc:    redisSvc,
		relaySvc:    relaySvc,
		publisher:   publisher,
		startedAt:   time.Now(),
	}, nil
}

// SetupAllRoutes sets up all routes with middleware
func (hm *HandlerManager) SetupAllRoutes(router *mux.Router) {
	if hm.config.EnableCORS {
		router.Use(CORSMiddleware)
	}
	router.Use(GlobalLoggingMiddleware)

	hm.SetupWebhookRoutes(router)
	hm.SetupAPIRoutes(router)
	hm.SetupHealthRoutes(router)

	logger.Base().Info("all application routes registered")
}

// SetupWebhookRoutes sets up the platform webhook routes
func (hm *HandlerManager) SetupWebhookRoutes(router *mux.Router) {
	webhookHandler := NewWebhookHandler(hm.relaySvc, hm.config.GatewayWebhookSecret)
	webhookHandler.SetupWebhookRoutes(router)
}

// SetupAPIRoutes sets up the CRM API routes
func (hm *HandlerManager) SetupAPIRoutes(router *mux.Router) {
	// Access logging already happens on the root router.
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(ValidationMiddleware)

	leadHandler := NewLeadHandler(hm.repoManager.Lead(), hm.publisher)
	leadHandler.SetupLeadRoutes(apiRouter)
}

// SetupHealthRoutes sets up the health and status endpoints
func (hm *HandlerManager) SetupHealthRoutes(router *mux.Router) {
	router.HandleFunc("/health", hm.handleHealth).Methods("GET")
	router.HandleFunc("/status", hm.handleStatus).Methods("GET")
}

func (hm *HandlerManager) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeAPIJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

func (hm *HandlerManager) handleStatus(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if err := hm.repoManager.Ping(r.Context()); err != nil {
		dbStatus = "unavailable"
	}
	redisStatus := "ok"
	if hm.redisSvc == nil {
		redisStatus = "disabled"
	}

	writeAPIJSON(w, http.StatusOK, map[string]interface{}{
		"database": dbStatus,
		"redis":    redisStatus,
		"uptime":   time.Since(hm.startedAt).String(),
	})
}

// Close releases the handler manager's resources
func (hm *HandlerManager) Close() error {
	return hm.repoManager.Close()
}
