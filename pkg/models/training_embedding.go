package models

import (
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
)

// EmbeddingDimensions is the fixed vector width of the configured embedding
// model (text-embedding family). The vector column is declared with the same
// width, so a model change requires a migration.
const EmbeddingDimensions = 1536

// TrainingEmbedding is the vector representation of one TrainingEntry,
// 1:1 via a unique constraint on training_entry_id. Re-embedding the same
// entry overwrites the prior vector (upsert). Rows are soft-deleted alongside
// their entry so trainability can be rolled back without losing cost history.
type TrainingEmbedding struct {
	ID              uuid.UUID       `json:"id"`
	TrainingEntryID uuid.UUID       `json:"training_entry_id"`
	Embedding       pgvector.Vector `json:"-"`
	WorkspaceID     uuid.UUID       `json:"workspace_id"` // Denormalized for fast search filtering
	TotalTokens     int             `json:"total_tokens"` // Embedding cost accounting

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
