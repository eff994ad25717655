package domain

import (
	"time"
)

// Tenant represents a clinic account and its channel credentials. Rows are
// provisioned by the admin service; the relay engine only reads them.
type Tenant struct {
	ID                 string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name               string    `json:"name" gorm:"type:varchar(255);not null"`
	GatewayInstanceKey string    `json:"gateway_instance_key" gorm:"type:varchar(255);uniqueIndex:uni_tenants_gateway_instance_key;not null"`
	GatewayAPIKey      string    `json:"gateway_api_key" gorm:"type:varchar(255);not null"`
	HelpdeskAccountID  string    `json:"helpdesk_account_id" gorm:"type:varchar(64);uniqueIndex:uni_tenants_helpdesk_account_id;not null"`
	HelpdeskInboxID    int       `json:"helpdesk_inbox_id" gorm:"not null"`
	HelpdeskAPIToken   string    `json:"helpdesk_api_token" gorm:"type:varchar(255);not null"`
	DefaultCountry     string    `json:"default_country" gorm:"type:varchar(2);default:'BR'"`
	CustomConfig       JSONB     `json:"custom_config" gorm:"type:jsonb"`
	CreatedAt          time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"autoUpdateTime"`
	Disabled           bool      `json:"disabled" gorm:"default:false"`
}

// TableName sets the table name for Tenant
func (Tenant) TableName() string {
	return "tenants"
}

// ChannelConfig is the per-tenant view the relay components consume. It is a
// copy of the tenant row's credential fields so callers never hold a pointer
// into the cache.
type ChannelConfig struct {
	TenantID           string
	TenantName         string
	GatewayInstanceKey string
	GatewayAPIKey      string
	HelpdeskAccountID  string
	HelpdeskInboxID    int
	HelpdeskAPIToken   string
	DefaultCountry     string
}
