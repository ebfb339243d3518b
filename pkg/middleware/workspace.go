package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/converso-ai/converso-engine/pkg/database"
)

// WorkspaceScope returns middleware that resolves the {wid} path parameter,
// acquires a workspace-scoped database connection and attaches it to the
// request context. Every repository call downstream runs with row-level
// security pinned to that workspace.
//
// The scope holds a pooled connection for the duration of the request, so
// handlers must not block indefinitely while it is attached.
func WorkspaceScope(provider *database.WorkspaceScopeProvider, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			workspaceID, err := uuid.Parse(r.PathValue("wid"))
			if err != nil {
				http.Error(w, "invalid workspace ID", http.StatusBadRequest)
				return
			}

			ctx, cleanup, err := provider.WithWorkspaceScope(r.Context(), workspaceID)
			if err != nil {
				logger.Error("Failed to acquire workspace scope",
					zap.String("workspace_id", workspaceID.String()),
					zap.Error(err))
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
			defer cleanup()

			next(w, r.WithContext(ctx))
		}
	}
}
