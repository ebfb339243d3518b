package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/converso-ai/converso-engine/pkg/database"
	"github.com/converso-ai/converso-engine/pkg/models"
)

// NearestParams describes one nearest-neighbor query over the knowledge base.
// MaxDistance is a cosine-distance cutoff: smaller means closer, so it acts
// as a maximum, never a minimum score.
type NearestParams struct {
	QueryVector []float32
	WorkspaceID uuid.UUID
	AgentID     uuid.UUID
	MaxDistance float64
	Limit       int
}

// NearestResult is one retrieved passage with its distance to the query.
type NearestResult struct {
	TrainingEntryID uuid.UUID
	Content         string
	Distance        float64
}

// EmbeddingRepository provides data access for training-entry embeddings.
// The training pipeline is the single writer (upsert per entry); the search
// path only reads and tolerates a stale vector.
type EmbeddingRepository interface {
	// Upsert stores the vector for a training entry, overwriting any prior
	// vector atomically. Re-running training for the same entry never
	// produces a second row.
	Upsert(ctx context.Context, embedding *models.TrainingEmbedding) error

	// SearchNearest returns passages within MaxDistance of the query vector,
	// closest first.
	SearchNearest(ctx context.Context, params NearestParams) ([]NearestResult, error)

	// SoftDeleteByEntry marks the embedding row for an entry as deleted.
	// The row is never re-used; re-training the entry upserts over it.
	SoftDeleteByEntry(ctx context.Context, trainingEntryID uuid.UUID) error

	// GetByEntry returns the embedding row for an entry, or nil if absent.
	GetByEntry(ctx context.Context, trainingEntryID uuid.UUID) (*models.TrainingEmbedding, error)
}

type embeddingRepository struct{}

// NewEmbeddingRepository creates a new EmbeddingRepository.
func NewEmbeddingRepository() EmbeddingRepository {
	return &embeddingRepository{}
}

var _ EmbeddingRepository = (*embeddingRepository)(nil)

func (r *embeddingRepository) Upsert(ctx context.Context, embedding *models.TrainingEmbedding) error {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return fmt.Errorf("no workspace scope in context")
	}

	now := time.Now()
	embedding.UpdatedAt = now
	if embedding.ID == uuid.Nil {
		embedding.ID = uuid.New()
		embedding.CreatedAt = now
	}

	query := `
		INSERT INTO training_embeddings (
			id, training_entry_id, embedding, workspace_id, total_tokens,
			created_at, updated_at, deleted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)
		ON CONFLICT (training_entry_id)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			total_tokens = EXCLUDED.total_tokens,
			updated_at = EXCLUDED.updated_at,
			deleted_at = NULL
		RETURNING id, created_at`

	err := scope.Conn.QueryRow(ctx, query,
		embedding.ID, embedding.TrainingEntryID, embedding.Embedding,
		embedding.WorkspaceID, embedding.TotalTokens,
		embedding.CreatedAt, embedding.UpdatedAt,
	).Scan(&embedding.ID, &embedding.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}

	return nil
}

// SearchNearest runs the pgvector cosine-distance query. The `<=>` operator
// returns cosine distance, ascending order puts the closest passage first.
func (r *embeddingRepository) SearchNearest(ctx context.Context, params NearestParams) ([]NearestResult, error) {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no workspace scope in context")
	}

	if params.Limit < 1 {
		params.Limit = 1
	}

	vec := pgvector.NewVector(params.QueryVector)

	query := `
		SELECT te.id, te.content, emb.embedding <=> $1 AS distance
		FROM training_embeddings emb
		JOIN training_entries te ON te.id = emb.training_entry_id
		WHERE emb.workspace_id = $2
		  AND te.agent_id = $3
		  AND emb.deleted_at IS NULL
		  AND te.deleted_at IS NULL
		  AND emb.embedding <=> $1 < $4
		ORDER BY distance ASC
		LIMIT $5`

	rows, err := scope.Conn.Query(ctx, query,
		vec, params.WorkspaceID, params.AgentID, params.MaxDistance, params.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search embeddings: %w", err)
	}
	defer rows.Close()

	results := make([]NearestResult, 0, params.Limit)
	for rows.Next() {
		var r NearestResult
		if err := rows.Scan(&r.TrainingEntryID, &r.Content, &r.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}

	return results, nil
}

func (r *embeddingRepository) SoftDeleteByEntry(ctx context.Context, trainingEntryID uuid.UUID) error {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return fmt.Errorf("no workspace scope in context")
	}

	query := `
		UPDATE training_embeddings
		SET deleted_at = $2, updated_at = $2
		WHERE training_entry_id = $1 AND deleted_at IS NULL`

	_, err := scope.Conn.Exec(ctx, query, trainingEntryID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete embedding: %w", err)
	}

	return nil
}

func (r *embeddingRepository) GetByEntry(ctx context.Context, trainingEntryID uuid.UUID) (*models.TrainingEmbedding, error) {
	scope, ok := database.GetWorkspaceScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no workspace scope in context")
	}

	query := `
		SELECT id, training_entry_id, embedding, workspace_id, total_tokens,
		       created_at, updated_at, deleted_at
		FROM training_embeddings
		WHERE training_entry_id = $1 AND deleted_at IS NULL`

	var e models.TrainingEmbedding
	err := scope.Conn.QueryRow(ctx, query, trainingEntryID).Scan(
		&e.ID, &e.TrainingEntryID, &e.Embedding, &e.WorkspaceID, &e.TotalTokens,
		&e.CreatedAt, &e.UpdatedAt, &e.DeletedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}

	return &e, nil
}
