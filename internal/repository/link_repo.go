package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/viacare/clinic-relay-service/internal/domain"
	"gorm.io/gorm"
)

// GormLinkRepository implements LinkRepository using GORM
type GormLinkRepository struct {
	db *gorm.DB
}

// NewGormLinkRepository creates a new GORM link repository
func NewGormLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

// FindContact returns the contact link for a tenant+phone pair, or nil
func (r *GormLinkRepository) FindContact(ctx context.Context, tenantID, phone string) (*domain.ContactLink, error) {
	var link domain.ContactLink
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND phone = ?", tenantID, phone).
		Order("created_at ASC").
		First(&link).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find contact link: %w", err)
	}
	return &link, nil
}

// SaveContact creates or updates a contact link
func (r *GormLinkRepository) SaveContact(ctx context.Context, link *domain.ContactLink) error {
	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Save(link).Error; err != nil {
		return fmt.Errorf("failed to save contact link: %w", err)
	}
	return nil
}

// FindActiveConversation returns the non-resolved conversation link for a
// (tenant, helpdesk contact, inbox) triple, or nil
func (r *GormLinkRepository) FindActiveConversation(ctx context.Context, tenantID string, helpdeskContactID, inboxID int) (*domain.ConversationLink, error) {
	var link domain.ConversationLink
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND helpdesk_contact_id = ? AND inbox_id = ? AND status <> ?",
			tenantID, helpdeskContactID, inboxID, domain.ConversationStatusResolved).
		Order("updated_at DESC").
		First(&link).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find conversation link: %w", err)
	}
	return &link, nil
}

// SaveConversation creates or updates a conversation link
func (r *GormLinkRepository) SaveConversation(ctx context.Context, link *domain.ConversationLink) error {
	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	if link.Status == "" {
		link.Status = domain.ConversationStatusOpen
	}
	if err := r.db.WithContext(ctx).Save(link).Error; err != nil {
		return fmt.Errorf("failed to save conversation link: %w", err)
	}
	return nil
}

// MarkConversationStatus records a status change reported by the help-desk
// platform. A row that was never mirrored is not an error; redelivery of
// status events for unknown conversations is routine.
func (r *GormLinkRepository) MarkConversationStatus(ctx context.Context, tenantID string, helpdeskConversationID int, status string) error {
	result := r.db.WithContext(ctx).Model(&domain.ConversationLink{}).
		Where("tenant_id = ? AND helpdesk_conversation_id = ?", tenantID, helpdeskConversationID).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to mark conversation status: %w", result.Error)
	}
	return nil
}
