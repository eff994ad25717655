package repository

import (
	"context"
	"time"

	"github.com/viacare/clinic-relay-service/internal/domain"
	"gorm.io/gorm"
)

// TenantRepository defines read access to the tenant/channel-configuration
// table. Tenants are provisioned out-of-band; the relay never writes them.
type TenantRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetByGatewayInstanceKey(ctx context.Context, instanceKey string) (*domain.Tenant, error)
	GetByHelpdeskAccountID(ctx context.Context, accountID string) (*domain.Tenant, error)
	GetAll(ctx context.Context, includeDisabled bool) ([]*domain.Tenant, error)
}

// LeadRepository defines the interface for CRM lead operations
type LeadRepository interface {
	Create(ctx context.Context, lead *domain.Lead) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Lead, error)
	// FindByPhoneVariants returns the first lead whose phone matches any of
	// the given variants, or nil when none does.
	FindByPhoneVariants(ctx context.Context, tenantID string, variants []string) (*domain.Lead, error)
	// Touch refreshes conversation_id and updated_at without changing stage.
	Touch(ctx context.Context, id string, conversationID int, at time.Time) error
	Update(ctx context.Context, lead *domain.Lead) error
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Lead, error)
}

// LinkRepository defines the interface for the contact/conversation mirror
// tables the identity resolver maintains.
type LinkRepository interface {
	FindContact(ctx context.Context, tenantID, phone string) (*domain.ContactLink, error)
	SaveContact(ctx context.Context, link *domain.ContactLink) error
	FindActiveConversation(ctx context.Context, tenantID string, helpdeskContactID, inboxID int) (*domain.ConversationLink, error)
	SaveConversation(ctx context.Context, link *domain.ConversationLink) error
	MarkConversationStatus(ctx context.Context, tenantID string, helpdeskConversationID int, status string) error
}

// RepositoryManager combines all repositories
type RepositoryManager interface {
	Tenant() TenantRepository
	Lead() LeadRepository
	Link() LinkRepository

	// Health check
	Ping(ctx context.Context) error

	// Close connection
	Close() error
}

// GormRepositoryManager implements RepositoryManager using GORM
type GormRepositoryManager struct {
	db         *gorm.DB
	tenantRepo *GormTenantRepository
	leadRepo   *GormLeadRepository
	linkRepo   *GormLinkRepository
}

// NewGormRepositoryManager creates a new GORM repository manager
func NewGormRepositoryManager(db *gorm.DB) *GormRepositoryManager {
	return &GormRepositoryManager{
		db:         db,
		tenantRepo: NewGormTenantRepository(db),
		leadRepo:   NewGormLeadRepository(db),
		linkRepo:   NewGormLinkRepository(db),
	}
}

// Tenant returns the tenant repository
func (m *GormRepositoryManager) Tenant() TenantRepository {
	return m.tenantRepo
}

// Lead returns the lead repository
func (m *GormRepositoryManager) Lead() LeadRepository {
	return m.leadRepo
}

// Link returns the link repository
func (m *GormRepositoryManager) Link() LinkRepository {
	return m.linkRepo
}

// Ping checks the database connection
func (m *GormRepositoryManager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (m *GormRepositoryManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
