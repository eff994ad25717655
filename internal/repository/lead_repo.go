package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viacare/clinic-relay-service/internal/domain"
	"gorm.io/gorm"
)

// GormLeadRepository implements LeadRepository using GORM
type GormLeadRepository struct {
	db *gorm.DB
}

// NewGormLeadRepository creates a new GORM lead repository
func NewGormLeadRepository(db *gorm.DB) *GormLeadRepository {
	return &GormLeadRepository{db: db}
}

// Create creates a new lead
func (r *GormLeadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.Stage == "" {
		lead.Stage = domain.LeadStageNovo
	}
	if lead.UpdatedAt.IsZero() {
		lead.UpdatedAt = time.Now()
	}

	if err := r.db.WithContext(ctx).Create(lead).Error; err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

// GetByID retrieves a lead scoped to a tenant
func (r *GormLeadRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Lead, error) {
	var lead domain.Lead
	if err := r.db.WithContext(ctx).First(&lead, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return &lead, nil
}

// FindByPhoneVariants returns the first lead whose phone matches any of the
// given variants. Legacy records may carry the phone with or without the "+"
// prefix, so callers pass both forms.
func (r *GormLeadRepository) FindByPhoneVariants(ctx context.Context, tenantID string, variants []string) (*domain.Lead, error) {
	if len(variants) == 0 {
		return nil, nil
	}

	var lead domain.Lead
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND phone IN ?", tenantID, variants).
		Order("updated_at DESC").
		First(&lead).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find lead by phone: %w", err)
	}
	return &lead, nil
}

// Touch refreshes conversation_id and updated_at. The updated_at bump is what
// notifies realtime UI subscribers of activity; stage is never changed here.
func (r *GormLeadRepository) Touch(ctx context.Context, id string, conversationID int, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.Lead{}).Where("id = ?", id).Updates(map[string]interface{}{
		"conversation_id": conversationID,
		"updated_at":      at,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to touch lead: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("lead not found: %s", id)
	}
	return nil
}

// Update saves a lead
func (r *GormLeadRepository) Update(ctx context.Context, lead *domain.Lead) error {
	lead.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Save(lead).Error; err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	return nil
}

// ListByTenant retrieves all leads for a tenant, most recently active first
func (r *GormLeadRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Lead, error) {
	var leads []*domain.Lead
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("updated_at DESC").
		Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}
