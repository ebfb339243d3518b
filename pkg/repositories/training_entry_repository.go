package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/converso-ai/converso-engine/pkg/apperrors"
	"github.com/converso-ai/converso-engine/pkg/database"
	"github.com/converso-ai/converso-engine/pkg/models"
)

// TrainingEntryRepository provides data access for knowledge-base entries.
// All methods require a workspace scope on the context.
type TrainingEntryRepository interface {
	Create(ctx context.Context, entry *models.TrainingEntry) error
	Update(ctx context.Context, entry *models.TrainingEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TrainingEntry, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID) ([]*models.TrainingEntry, error)
	ListPending(ctx context.Context, workspaceID uuid.UUID, limit int) ([]*models.TrainingEntry, error)
	MarkExecuted(ctx context.Context, id uuid.UUID, executedAt time.Time) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type trainingEntryRepository struct{}

// NewTrainingEntryRepository creates a new TrainingEntryRepository.
func NewTrainingEntryRepository() TrainingEntryRepository {
	return &trainingEntryRepository{}
}

var _ TrainingEntryRepository = (*trainingEntryRepository)(nil)

const trainingEntryColumns = `
	id, identifier, content, workspace_id, agent_id,
	pending_training, executed_training_at,
	created_at, updated_at, deleted_at`

func (r *trainingEntryRepository) Create(ctx context.Context, entry *models.TrainingEntry) error {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return fmt.Errorf("no workspace scope in context")
	}

	now := time.Now()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now
	entry.PendingTraining = true

	query := `
		INSERT INTO training_entries (
			id, identifier, content, workspace_id, agent_id,
			pending_training, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := scope.Conn.Exec(ctx, query,
		entry.ID, entry.Identifier, entry.Content, entry.WorkspaceID, entry.AgentID,
		entry.PendingTraining, entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create training entry: %w", err)
	}

	return nil
}

func (r *trainingEntryRepository) Update(ctx context.Context, entry *models.TrainingEntry) error {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return fmt.Errorf("no workspace scope in context")
	}

	entry.UpdatedAt = time.Now()
	entry.PendingTraining = true // Content changed, re-embedding required
	entry.ExecutedTrainingAt = nil

	query := `
		UPDATE training_entries
		SET identifier = $2, content = $3, pending_training = $4,
		    executed_training_at = NULL, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := scope.Conn.Exec(ctx, query,
		entry.ID, entry.Identifier, entry.Content, entry.PendingTraining, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update training entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *trainingEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TrainingEntry, error) {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no workspace scope in context")
	}

	query := `
		SELECT ` + trainingEntryColumns + `
		FROM training_entries
		WHERE id = $1 AND deleted_at IS NULL`

	row := scope.Conn.QueryRow(ctx, query, id)
	entry, err := scanTrainingEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get training entry: %w", err)
	}

	return entry, nil
}

func (r *trainingEntryRepository) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]*models.TrainingEntry, error) {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no workspace scope in context")
	}

	query := `
		SELECT ` + trainingEntryColumns + `
		FROM training_entries
		WHERE agent_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`

	rows, err := scope.Conn.Query(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list training entries: %w", err)
	}
	defer rows.Close()

	return collectTrainingEntries(rows)
}

// ListPending returns entries awaiting (re-)embedding, oldest first, so
// repeated training runs drain the backlog in order.
func (r *trainingEntryRepository) ListPending(ctx context.Context, workspaceID uuid.UUID, limit int) ([]*models.TrainingEntry, error) {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no workspace scope in context")
	}

	query := `
		SELECT ` + trainingEntryColumns + `
		FROM training_entries
		WHERE workspace_id = $1 AND pending_training = TRUE AND deleted_at IS NULL
		ORDER BY updated_at ASC
		LIMIT $2`

	rows, err := scope.Conn.Query(ctx, query, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending training entries: %w", err)
	}
	defer rows.Close()

	return collectTrainingEntries(rows)
}

func (r *trainingEntryRepository) MarkExecuted(ctx context.Context, id uuid.UUID, executedAt time.Time) error {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return fmt.Errorf("no workspace scope in context")
	}

	query := `
		UPDATE training_entries
		SET pending_training = FALSE, executed_training_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := scope.Conn.Exec(ctx, query, id, executedAt)
	if err != nil {
		return fmt.Errorf("failed to mark training entry executed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *trainingEntryRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return fmt.Errorf("no workspace scope in context")
	}

	query := `
		UPDATE training_entries
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := scope.Conn.Exec(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete training entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func scanTrainingEntry(row pgx.Row) (*models.TrainingEntry, error) {
	var e models.TrainingEntry
	err := row.Scan(
		&e.ID, &e.Identifier, &e.Content, &e.WorkspaceID, &e.AgentID,
		&e.PendingTraining, &e.ExecutedTrainingAt,
		&e.CreatedAt, &e.UpdatedAt, &e.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func collectTrainingEntries(rows pgx.Rows) ([]*models.TrainingEntry, error) {
	entries := make([]*models.TrainingEntry, 0)
	for rows.Next() {
		e, err := scanTrainingEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating training entries: %w", err)
	}
	return entries, nil
}
