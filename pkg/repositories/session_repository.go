package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/converso-ai/converso-engine/pkg/database"
)

// SessionRepository reads conversation session flags written by the dialogue
// engine. The small-talk pipeline never writes this table.
type SessionRepository interface {
	HasActiveConversationalAgent(ctx context.Context, contextID string) (bool, error)
	IsWaitingForClarification(ctx context.Context, contextID string) (bool, error)
}

type sessionRepository struct{}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository() SessionRepository {
	return &sessionRepository{}
}

var _ SessionRepository = (*sessionRepository)(nil)

func (r *sessionRepository) HasActiveConversationalAgent(ctx context.Context, contextID string) (bool, error) {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return false, fmt.Errorf("no workspace scope in context")
	}

	query := `
		SELECT active_skill IS NOT NULL
		FROM conversation_sessions
		WHERE context_id = $1`

	var active bool
	err := scope.Conn.QueryRow(ctx, query, contextID).Scan(&active)
	if err != nil {
		// No session row yet means no flow in progress.
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read session state: %w", err)
	}

	return active, nil
}

func (r *sessionRepository) IsWaitingForClarification(ctx context.Context, contextID string) (bool, error) {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return false, fmt.Errorf("no workspace scope in context")
	}

	query := `
		SELECT waiting_for_clarification
		FROM conversation_sessions
		WHERE context_id = $1`

	var waiting bool
	err := scope.Conn.QueryRow(ctx, query, contextID).Scan(&waiting)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read session state: %w", err)
	}

	return waiting, nil
}
