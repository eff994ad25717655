// Package tenant maps inbound webhook identities to tenant channel
// configuration.
package tenant

import (
	"context"

	"github.com/viacare/clinic-relay-service/internal/cache"
	"github.com/viacare/clinic-relay-service/internal/domain"
	"github.com/viacare/clinic-relay-service/pkg/logger"
	"go.uber.org/zap"
)

// Resolver resolves webhook credentials to the owning tenant's channel
// configuration through the tenant cache.
type Resolver struct {
	cache *cache.TenantCache
}

// NewResolver creates a new tenant resolver
func NewResolver(c *cache.TenantCache) *Resolver {
	return &Resolver{cache: c}
}

// ByGatewayInstanceKey resolves the tenant owning a gateway instance
// credential. Returns domain.ErrUnknownTenant when no tenant matches.
func (r *Resolver) ByGatewayInstanceKey(ctx context.Context, instanceKey string) (*domain.ChannelConfig, error) {
	cfg, err := r.cache.GetByGatewayInstanceKey(ctx, instanceKey)
	if err != nil {
		logger.Base().Warn("Tenant resolution failed for gateway instance",
			zap.String("instance_key", instanceKey), zap.Error(err))
		return nil, err
	}
	return cfg, nil
}

// ByHelpdeskAccountID resolves the tenant owning a help-desk account id.
// Returns domain.ErrUnknownTenant when no tenant matches.
func (r *Resolver) ByHelpdeskAccountID(ctx context.Context, accountID string) (*domain.ChannelConfig, error) {
	cfg, err := r.cache.GetByHelpdeskAccountID(ctx, accountID)
	if err != nil {
		logger.Base().Warn("Tenant resolution failed for helpdesk account",
			zap.String("account_id", accountID), zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
