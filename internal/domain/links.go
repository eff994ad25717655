package domain

import (
	"time"
)

// ContactLink mirrors a resolved help-desk contact for a tenant+phone pair.
// The help-desk platform stays authoritative; the link row lets sequential
// redeliveries converge on the same contact without a second remote search.
//
// The (tenant_id, phone) index is deliberately NOT unique: two concurrent
// first-contact deliveries may race and write duplicate rows, which is an
// accepted, logged outcome rather than a correctness failure.
type ContactLink struct {
	ID                string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID          string    `json:"tenant_id" gorm:"type:uuid;index:idx_contact_links_tenant_phone;not null"`
	Phone             string    `json:"phone" gorm:"type:varchar(32);index:idx_contact_links_tenant_phone;not null"`
	DisplayName       string    `json:"display_name" gorm:"type:varchar(255)"`
	HelpdeskContactID int       `json:"helpdesk_contact_id" gorm:"not null"`
	CreatedAt         time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for ContactLink
func (ContactLink) TableName() string {
	return "contact_links"
}

// ConversationLink mirrors the currently active help-desk conversation for a
// (tenant, contact, inbox) triple. Status tracks the help-desk side; at most
// one non-resolved link per triple is treated as "the" active thread.
type ConversationLink struct {
	ID                     string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID               string    `json:"tenant_id" gorm:"type:uuid;index:idx_conversation_links_lookup;not null"`
	ContactLinkID          string    `json:"contact_link_id" gorm:"type:uuid;not null"`
	HelpdeskContactID      int       `json:"helpdesk_contact_id" gorm:"index:idx_conversation_links_lookup;not null"`
	InboxID                int       `json:"inbox_id" gorm:"index:idx_conversation_links_lookup;not null"`
	HelpdeskConversationID int       `json:"helpdesk_conversation_id" gorm:"not null"`
	Status                 string    `json:"status" gorm:"type:varchar(16);default:'open'"`
	CreatedAt              time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt              time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for ConversationLink
func (ConversationLink) TableName() string {
	return "conversation_links"
}

const (
	ConversationStatusOpen     = "open"
	ConversationStatusResolved = "resolved"
)

// Resolution is the output of identity resolution: the destination contact
// and conversation on the help-desk platform, and whether either was created
// by this delivery.
type Resolution struct {
	ContactID      int  `json:"contact_id"`
	ConversationID int  `json:"conversation_id"`
	Created        bool `json:"created"`
}
