package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadStageValid(t *testing.T) {
	for _, s := range []LeadStage{LeadStageNovo, LeadStageAtendimento, LeadStageAgendado, LeadStageConvertido, LeadStagePerdido} {
		assert.True(t, s.Valid(), "%s should be valid", s)
	}
	assert.False(t, LeadStage("qualificado").Valid())
	assert.False(t, LeadStage("").Valid())
}

func TestLeadStageTerminal(t *testing.T) {
	assert.True(t, LeadStageConvertido.Terminal())
	assert.True(t, LeadStagePerdido.Terminal())
	assert.False(t, LeadStageNovo.Terminal())
	assert.False(t, LeadStageAtendimento.Terminal())
	assert.False(t, LeadStageAgendado.Terminal())
}

func TestAdvanceStage(t *testing.T) {
	lead := &Lead{ID: "lead-1", Stage: LeadStageNovo}

	require.NoError(t, lead.AdvanceStage(LeadStageAtendimento))
	assert.Equal(t, LeadStageAtendimento, lead.Stage)

	require.NoError(t, lead.AdvanceStage(LeadStageAgendado))
	require.NoError(t, lead.AdvanceStage(LeadStageConvertido))
	assert.Equal(t, LeadStageConvertido, lead.Stage)
}

func TestAdvanceStageRejectsSkippingToConvertido(t *testing.T) {
	lead := &Lead{ID: "lead-1", Stage: LeadStageNovo}

	err := lead.AdvanceStage(LeadStageConvertido)
	require.Error(t, err)
	assert.Equal(t, LeadStageNovo, lead.Stage)
}

func TestAdvanceStageRejectsLeavingTerminal(t *testing.T) {
	for _, terminal := range []LeadStage{LeadStageConvertido, LeadStagePerdido} {
		lead := &Lead{ID: "lead-1", Stage: terminal}
		err := lead.AdvanceStage(LeadStageAtendimento)
		require.Error(t, err)
		assert.Equal(t, terminal, lead.Stage)
	}
}

func TestAdvanceStageRejectsUnknownStage(t *testing.T) {
	lead := &Lead{ID: "lead-1", Stage: LeadStageNovo}
	require.Error(t, lead.AdvanceStage(LeadStage("arquivado")))
}

func TestPerdidoReachableFromAnyNonTerminal(t *testing.T) {
	for _, from := range []LeadStage{LeadStageNovo, LeadStageAtendimento, LeadStageAgendado} {
		lead := &Lead{ID: "lead-1", Stage: from}
		assert.NoError(t, lead.AdvanceStage(LeadStagePerdido), "perdido should be reachable from %s", from)
	}
}
