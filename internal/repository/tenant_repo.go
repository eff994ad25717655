package repository

import (
	"context"
	"fmt"

	"github.com/viacare/clinic-relay-service/internal/domain"
	"gorm.io/gorm"
)

// GormTenantRepository implements TenantRepository using GORM
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GORM tenant repository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// GetByID retrieves a tenant by ID
func (r *GormTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("tenant %s: %w", id, domain.ErrUnknownTenant)
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return &tenant, nil
}

// GetByGatewayInstanceKey retrieves a tenant by its gateway instance credential
func (r *GormTenantRepository) GetByGatewayInstanceKey(ctx context.Context, instanceKey string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "gateway_instance_key = ? AND disabled = ?", instanceKey, false).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("instance key %s: %w", instanceKey, domain.ErrUnknownTenant)
		}
		return nil, fmt.Errorf("failed to get tenant by instance key: %w", err)
	}

	return &tenant, nil
}

// GetByHelpdeskAccountID retrieves a tenant by its help-desk account id
func (r *GormTenantRepository) GetByHelpdeskAccountID(ctx context.Context, accountID string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "helpdesk_account_id = ? AND disabled = ?", accountID, false).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("helpdesk account %s: %w", accountID, domain.ErrUnknownTenant)
		}
		return nil, fmt.Errorf("failed to get tenant by helpdesk account: %w", err)
	}

	return &tenant, nil
}

// GetAll retrieves all tenants
func (r *GormTenantRepository) GetAll(ctx context.Context, includeDisabled bool) ([]*domain.Tenant, error) {
	var tenants []*domain.Tenant
	query := r.db.WithContext(ctx)

	if !includeDisabled {
		query = query.Where("disabled = ?", false)
	}

	if err := query.Order("created_at DESC").Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("failed to get tenants: %w", err)
	}

	return tenants, nil
}
