package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxTrainingContentLength bounds training entry content so that embedding
// cost and prompt size stay predictable.
const MaxTrainingContentLength = 1000

// TrainingEntry represents one unit of tenant-authored knowledge-base content.
// Stored in training_entries table. Entries are soft-deleted; a deleted entry
// is excluded from all searches and its embedding row is marked deleted too.
type TrainingEntry struct {
	ID          uuid.UUID `json:"id"`
	Identifier  string    `json:"identifier"` // Human-readable label for the authoring UI
	Content     string    `json:"content"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	AgentID     uuid.UUID `json:"agent_id"`

	// PendingTraining marks the entry for (re-)embedding by the training job.
	PendingTraining    bool       `json:"pending_training"`
	ExecutedTrainingAt *time.Time `json:"executed_training_at,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Validate checks the invariants enforced at creation and update time.
func (e *TrainingEntry) Validate() error {
	if strings.TrimSpace(e.Identifier) == "" {
		return fmt.Errorf("identifier is required")
	}
	if strings.TrimSpace(e.Content) == "" {
		return fmt.Errorf("content is required")
	}
	if len([]rune(e.Content)) > MaxTrainingContentLength {
		return fmt.Errorf("content exceeds %d characters", MaxTrainingContentLength)
	}
	if e.WorkspaceID == uuid.Nil {
		return fmt.Errorf("workspace_id is required")
	}
	if e.AgentID == uuid.Nil {
		return fmt.Errorf("agent_id is required")
	}
	return nil
}
