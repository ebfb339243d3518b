package repositories

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converso-ai/converso-engine/pkg/apperrors"
)

func TestAgentRepositoryGetByID(t *testing.T) {
	ctx, workspaceID, agentID := scopedWorkspace(t)
	repo := NewAgentRepository()

	agent, err := repo.GetByID(ctx, agentID)
	require.NoError(t, err)
	assert.Equal(t, agentID, agent.ID)
	assert.Equal(t, workspaceID, agent.WorkspaceID)
	assert.Equal(t, "Luna", agent.BotName)
	assert.Equal(t, "Clínica Exemplo", agent.ClientName)
}

func TestAgentRepositoryGetByIDNotFound(t *testing.T) {
	ctx, _, _ := scopedWorkspace(t)
	repo := NewAgentRepository()

	_, err := repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
