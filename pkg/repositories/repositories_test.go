package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/converso-ai/converso-engine/pkg/database"
	"github.com/converso-ai/converso-engine/pkg/models"
	"github.com/converso-ai/converso-engine/pkg/testhelpers"
)

// scopedWorkspace creates a fresh workspace with one agent and returns a
// context carrying its database scope. Each test gets its own workspace so
// tests sharing the container never see each other's rows.
func scopedWorkspace(t *testing.T) (context.Context, uuid.UUID, uuid.UUID) {
	t.Helper()

	edb := testhelpers.GetEngineDB(t)
	workspaceID := uuid.New()
	agentID := uuid.New()

	provider := database.NewWorkspaceScopeProvider(edb.DB)
	ctx, cleanup, err := provider.WithWorkspaceScope(context.Background(), workspaceID)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	scope, ok := database.GetWorkspaceScope(ctx)
	require.True(t, ok)

	_, err = scope.Conn.Exec(ctx,
		`INSERT INTO workspaces (id, name) VALUES ($1, $2)`,
		workspaceID, "Test Workspace")
	require.NoError(t, err)

	_, err = scope.Conn.Exec(ctx,
		`INSERT INTO agents (id, workspace_id, bot_name, client_name) VALUES ($1, $2, $3, $4)`,
		agentID, workspaceID, "Luna", "Clínica Exemplo")
	require.NoError(t, err)

	return ctx, workspaceID, agentID
}

func newEntry(workspaceID, agentID uuid.UUID, identifier, content string) *models.TrainingEntry {
	return &models.TrainingEntry{
		Identifier:  identifier,
		Content:     content,
		WorkspaceID: workspaceID,
		AgentID:     agentID,
	}
}
