package domain

import (
	"fmt"
	"time"
)

// LeadStage is a pipeline stage in the clinic CRM.
type LeadStage string

const (
	LeadStageNovo        LeadStage = "novo"
	LeadStageAtendimento LeadStage = "atendimento"
	LeadStageAgendado    LeadStage = "agendado"
	LeadStageConvertido  LeadStage = "convertido"
	LeadStagePerdido     LeadStage = "perdido"
)

// leadTransitions holds the allowed forward edges of the pipeline. perdido is
// reachable from any non-terminal stage; convertido and perdido are terminal.
var leadTransitions = map[LeadStage][]LeadStage{
	LeadStageNovo:        {LeadStageAtendimento, LeadStageAgendado, LeadStagePerdido},
	LeadStageAtendimento: {LeadStageAgendado, LeadStageConvertido, LeadStagePerdido},
	LeadStageAgendado:    {LeadStageAtendimento, LeadStageConvertido, LeadStagePerdido},
}

// Valid reports whether s is a known pipeline stage.
func (s LeadStage) Valid() bool {
	switch s {
	case LeadStageNovo, LeadStageAtendimento, LeadStageAgendado, LeadStageConvertido, LeadStagePerdido:
		return true
	}
	return false
}

// Terminal reports whether the stage ends the pipeline.
func (s LeadStage) Terminal() bool {
	return s == LeadStageConvertido || s == LeadStagePerdido
}

// CanTransition reports whether moving from s to next is an allowed CRM action.
func (s LeadStage) CanTransition(next LeadStage) bool {
	for _, allowed := range leadTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Lead is the CRM record tracking a prospective or existing customer. The
// relay only creates leads at stage novo and refreshes conversation_id and
// updated_at; stage changes come from explicit CRM actions.
type Lead struct {
	ID             string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID       string    `json:"tenant_id" gorm:"type:uuid;index:idx_leads_tenant_phone;not null"`
	Name           string    `json:"name" gorm:"type:varchar(255)"`
	Phone          string    `json:"phone" gorm:"type:varchar(32);index:idx_leads_tenant_phone"`
	Stage          LeadStage `json:"stage" gorm:"type:varchar(32);default:'novo';not null"`
	ConversationID int       `json:"conversation_id"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName sets the table name for Lead
func (Lead) TableName() string {
	return "leads"
}

// AdvanceStage applies an external CRM stage change, enforcing the pipeline
// state machine.
func (l *Lead) AdvanceStage(next LeadStage) error {
	if !next.Valid() {
		return fmt.Errorf("unknown lead stage: %s", next)
	}
	if l.Stage.Terminal() {
		return fmt.Errorf("lead %s is already %s", l.ID, l.Stage)
	}
	if !l.Stage.CanTransition(next) {
		return fmt.Errorf("invalid lead transition: %s -> %s", l.Stage, next)
	}
	l.Stage = next
	return nil
}

// LeadActivity is the payload published on the realtime channel whenever the
// relay touches or creates a lead, so CRM dashboards refresh.
type LeadActivity struct {
	TenantID       string    `json:"tenant_id"`
	LeadID         string    `json:"lead_id"`
	Phone          string    `json:"phone"`
	Stage          LeadStage `json:"stage"`
	ConversationID int       `json:"conversation_id"`
	Created        bool      `json:"created"`
	OccurredAt     time.Time `json:"occurred_at"`
}
