package database

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	// WorkspaceScopeKey is the context key for storing the workspace-scoped
	// database connection.
	WorkspaceScopeKey contextKey = "workspaceScope"
)

// GetWorkspaceScope retrieves the workspace-scoped database connection from
// context. Returns nil and false if not present.
func GetWorkspaceScope(ctx context.Context) (*WorkspaceScope, bool) {
	scope, ok := ctx.Value(WorkspaceScopeKey).(*WorkspaceScope)
	return scope, ok
}

// SetWorkspaceScope stores the workspace-scoped database connection in context.
func SetWorkspaceScope(ctx context.Context, scope *WorkspaceScope) context.Context {
	return context.WithValue(ctx, WorkspaceScopeKey, scope)
}

// WorkspaceScopeProvider creates workspace-scoped contexts for database
// operations.
type WorkspaceScopeProvider struct {
	db *DB
}

// NewWorkspaceScopeProvider creates a WorkspaceScopeProvider for the given database.
func NewWorkspaceScopeProvider(db *DB) *WorkspaceScopeProvider {
	return &WorkspaceScopeProvider{db: db}
}

// WithWorkspaceScope returns a context with workspace scope set.
// The cleanup function must be called when the scope is no longer needed.
func (p *WorkspaceScopeProvider) WithWorkspaceScope(ctx context.Context, workspaceID uuid.UUID) (context.Context, func(), error) {
	scope, err := p.db.WithWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, nil, err
	}
	scopedCtx := SetWorkspaceScope(ctx, scope)
	return scopedCtx, func() { scope.Close() }, nil
}
