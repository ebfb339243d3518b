package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/converso-ai/converso-engine/pkg/apperrors"
	"github.com/converso-ai/converso-engine/pkg/logging"
	"github.com/converso-ai/converso-engine/pkg/repositories"
	"github.com/converso-ai/converso-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// SmallTalkRequest for POST /api/workspaces/{wid}/agents/{aid}/smalltalk.
// Classification works on the current message alone; conversation history
// only matters for retrieval and belongs to the rag-search endpoint.
type SmallTalkRequest struct {
	ContextID   string `json:"context_id"`
	Message     string `json:"message"`
	PatientName string `json:"patient_name,omitempty"`
}

// SmallTalkResponse reports the routing decision for one message. Handled
// false means the message is not small talk and the caller should continue
// with its own skill routing.
type SmallTalkResponse struct {
	Handled  bool   `json:"handled"`
	Intent   string `json:"intent,omitempty"`
	Response string `json:"response,omitempty"`
}

// ============================================================================
// Handler
// ============================================================================

// SmallTalkHandler handles conversational intent-routing HTTP requests.
type SmallTalkHandler struct {
	smallTalk services.SmallTalkService
	agents    repositories.AgentRepository
	logger    *zap.Logger
}

// NewSmallTalkHandler creates a new small-talk handler.
func NewSmallTalkHandler(
	smallTalk services.SmallTalkService,
	agents repositories.AgentRepository,
	logger *zap.Logger,
) *SmallTalkHandler {
	return &SmallTalkHandler{
		smallTalk: smallTalk,
		agents:    agents,
		logger:    logger,
	}
}

// RegisterRoutes registers the small-talk handler's routes on the given mux.
func (h *SmallTalkHandler) RegisterRoutes(mux *http.ServeMux, workspaceMiddleware Middleware) {
	mux.HandleFunc("POST /api/workspaces/{wid}/agents/{aid}/smalltalk",
		workspaceMiddleware(h.Handle))
}

// Handle handles POST /api/workspaces/{wid}/agents/{aid}/smalltalk
func (h *SmallTalkHandler) Handle(w http.ResponseWriter, r *http.Request) {
	_, agentID, ok := ParseWorkspaceAndAgentIDs(w, r, h.logger)
	if !ok {
		return
	}

	var req SmallTalkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "message is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	agent, err := h.agents.GetByID(r.Context(), agentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "agent_not_found", "Agent not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to load agent",
			zap.String("agent_id", agentID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "get_agent_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.smallTalk.Handle(r.Context(), services.SmallTalkRequest{
		ContextID:   req.ContextID,
		Agent:       agent,
		Message:     req.Message,
		PatientName: req.PatientName,
	})
	if err != nil {
		h.logger.Error("Small-talk handling failed",
			zap.String("agent_id", agentID.String()),
			zap.String("message", logging.TruncateMessage(req.Message)),
			zap.String("error", logging.SanitizeError(err)))
		if err := ErrorResponse(w, http.StatusInternalServerError, "smalltalk_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := SmallTalkResponse{Handled: result != nil}
	if result != nil {
		response.Intent = string(result.Intent)
		response.Response = result.Response
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
