package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/viacare/clinic-relay-service/internal/domain"
	"github.com/viacare/clinic-relay-service/internal/repository"
	"github.com/viacare/clinic-relay-service/pkg/logger"
	"go.uber.org/zap"
)

// TenantCache is a read-through, TTL-bounded cache over the read-only tenant
// table. It memoizes channel configuration only; no per-delivery relay state
// ever lives here. Lookups copy the row out so callers never share memory
// with the cache.
type TenantCache struct {
	repo repository.TenantRepository
	ttl  time.Duration

	mutex         sync.RWMutex
	byInstanceKey map[string]*domain.Tenant
	byAccountID   map[string]*domain.Tenant
	loadedAt      time.Time
}

// NewTenantCache creates a tenant cache backed by the given repository
func NewTenantCache(repo repository.TenantRepository, ttl time.Duration) *TenantCache {
	return &TenantCache{
		repo:          repo,
		ttl:           ttl,
		byInstanceKey: make(map[string]*domain.Tenant),
		byAccountID:   make(map[string]*domain.Tenant),
	}
}

// GetByGatewayInstanceKey resolves a tenant by its gateway instance credential
func (c *TenantCache) GetByGatewayInstanceKey(ctx context.Context, instanceKey string) (*domain.ChannelConfig, error) {
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}

	c.mutex.RLock()
	tenant := c.byInstanceKey[instanceKey]
	c.mutex.RUnlock()
	if tenant == nil {
		return nil, domain.ErrUnknownTenant
	}
	return channelConfig(tenant)
}

// GetByHelpdeskAccountID resolves a tenant by its help-desk account id
func (c *TenantCache) GetByHelpdeskAccountID(ctx context.Context, accountID string) (*domain.ChannelConfig, error) {
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}

	c.mutex.RLock()
	tenant := c.byAccountID[accountID]
	c.mutex.RUnlock()
	if tenant == nil {
		return nil, domain.ErrUnknownTenant
	}
	return channelConfig(tenant)
}

// refresh reloads the tenant table when the cached snapshot is stale. A
// failed reload keeps serving the previous snapshot when one exists.
func (c *TenantCache) refresh(ctx context.Context) error {
	c.mutex.RLock()
	fresh := !c.loadedAt.IsZero() && time.Since(c.loadedAt) < c.ttl
	c.mutex.RUnlock()
	if fresh {
		return nil
	}

	tenants, err := c.repo.GetAll(ctx, false)
	if err != nil {
		c.mutex.RLock()
		hasSnapshot := !c.loadedAt.IsZero()
		c.mutex.RUnlock()
		if hasSnapshot {
			logger.Base().Warn("Tenant cache reload failed, serving stale snapshot", zap.Error(err))
			return nil
		}
		return err
	}

	byInstanceKey := make(map[string]*domain.Tenant, len(tenants))
	byAccountID := make(map[string]*domain.Tenant, len(tenants))
	for _, t := range tenants {
		byInstanceKey[t.GatewayInstanceKey] = t
		byAccountID[t.HelpdeskAccountID] = t
	}

	c.mutex.Lock()
	c.byInstanceKey = byInstanceKey
	c.byAccountID = byAccountID
	c.loadedAt = time.Now()
	c.mutex.Unlock()

	logger.Base().Debug("Tenant cache reloaded", zap.Int("tenants", len(tenants)))
	return nil
}

// channelConfig copies the credential fields out of a cached tenant row
func channelConfig(tenant *domain.Tenant) (*domain.ChannelConfig, error) {
	cfg := &domain.ChannelConfig{}
	if err := copier.Copy(cfg, tenant); err != nil {
		return nil, err
	}
	cfg.TenantID = tenant.ID
	cfg.TenantName = tenant.Name
	return cfg, nil
}
