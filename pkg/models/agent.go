package models

import (
	"time"

	"github.com/google/uuid"
)

// Agent is the per-tenant conversational agent scope. Knowledge-base search
// and response generation are always scoped to one agent within a workspace.
type Agent struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	BotName     string    `json:"bot_name"`
	ClientName  string    `json:"client_name"` // Tenant display name used in responses

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
