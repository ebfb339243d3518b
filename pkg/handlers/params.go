package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Middleware wraps a handler func, typically to attach a workspace scope.
type Middleware func(http.HandlerFunc) http.HandlerFunc

// ParseWorkspaceID extracts and validates the workspace ID from the request path.
// Returns the parsed UUID and true on success, or uuid.Nil and false on error
// (after writing an error response).
// Expects path parameter: wid
func ParseWorkspaceID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "wid", "invalid_workspace_id", "Invalid workspace ID format", logger)
}

// ParseAgentID extracts and validates the agent ID from the request path.
// Returns the parsed UUID and true on success, or uuid.Nil and false on error
// (after writing an error response).
// Expects path parameter: aid
func ParseAgentID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "aid", "invalid_agent_id", "Invalid agent ID format", logger)
}

// ParseEntryID extracts and validates the training entry ID from the request path.
// Returns the parsed UUID and true on success, or uuid.Nil and false on error
// (after writing an error response).
// Expects path parameter: eid
func ParseEntryID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "eid", "invalid_entry_id", "Invalid entry ID format", logger)
}

// ParseWorkspaceAndAgentIDs extracts and validates both workspace and agent IDs.
// Returns both UUIDs and true on success, or uuid.Nil values and false on error.
// Expects path parameters: wid, aid
func ParseWorkspaceAndAgentIDs(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, uuid.UUID, bool) {
	workspaceID, ok := ParseWorkspaceID(w, r, logger)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	agentID, ok := ParseAgentID(w, r, logger)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	return workspaceID, agentID, true
}

// parseUUID is the internal helper that does the actual parsing work.
func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := r.PathValue(pathParam)
	id, err := uuid.Parse(idStr)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, errorCode, errorMessage); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}
