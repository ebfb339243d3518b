package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/converso-ai/converso-engine/pkg/apperrors"
	"github.com/converso-ai/converso-engine/pkg/database"
	"github.com/converso-ai/converso-engine/pkg/models"
)

// AgentRepository provides data access for conversational agents.
type AgentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
}

type agentRepository struct{}

// NewAgentRepository creates a new AgentRepository.
func NewAgentRepository() AgentRepository {
	return &agentRepository{}
}

var _ AgentRepository = (*agentRepository)(nil)

func (r *agentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no workspace scope in context")
	}

	query := `
		SELECT id, workspace_id, bot_name, client_name, created_at, updated_at
		FROM agents
		WHERE id = $1`

	var a models.Agent
	err := scope.Conn.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.WorkspaceID, &a.BotName, &a.ClientName, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	return &a, nil
}
