package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/converso-ai/converso-engine/pkg/apperrors"
	"github.com/converso-ai/converso-engine/pkg/models"
	"github.com/converso-ai/converso-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// TrainingEntryListResponse for GET /training-entries
type TrainingEntryListResponse struct {
	Entries []*models.TrainingEntry `json:"entries"`
	Total   int                     `json:"total"`
}

// CreateTrainingEntryRequest for POST /training-entries
type CreateTrainingEntryRequest struct {
	Identifier string `json:"identifier"`
	Content    string `json:"content"`
}

// UpdateTrainingEntryRequest for PUT /training-entries/{eid}
type UpdateTrainingEntryRequest struct {
	Identifier string `json:"identifier"`
	Content    string `json:"content"`
}

// HistoryMessage is one prior conversation turn supplied by the caller.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RagSearchRequest for POST /rag-search. Strict applies the tighter
// configured distance cutoff; an explicit max_distance overrides it.
type RagSearchRequest struct {
	Message     string           `json:"message"`
	History     []HistoryMessage `json:"history,omitempty"`
	MaxResults  int              `json:"max_results,omitempty"`
	MaxDistance float64          `json:"max_distance,omitempty"`
	Strict      bool             `json:"strict,omitempty"`
}

// RagSearchResponse carries retrieved passages, closest first.
type RagSearchResponse struct {
	Results []string `json:"results"`
	Total   int      `json:"total"`
}

// ============================================================================
// Handler
// ============================================================================

// TrainingHandler handles knowledge-base authoring, batch embedding runs and
// retrieval HTTP requests.
type TrainingHandler struct {
	training services.TrainingService
	search   services.RagSearchService
	logger   *zap.Logger
}

// NewTrainingHandler creates a new training handler.
func NewTrainingHandler(
	training services.TrainingService,
	search services.RagSearchService,
	logger *zap.Logger,
) *TrainingHandler {
	return &TrainingHandler{
		training: training,
		search:   search,
		logger:   logger,
	}
}

// RegisterRoutes registers the training handler's routes on the given mux.
func (h *TrainingHandler) RegisterRoutes(mux *http.ServeMux, workspaceMiddleware Middleware) {
	base := "/api/workspaces/{wid}/agents/{aid}/training-entries"

	mux.HandleFunc("GET "+base, workspaceMiddleware(h.List))
	mux.HandleFunc("POST "+base, workspaceMiddleware(h.Create))
	mux.HandleFunc("PUT "+base+"/{eid}", workspaceMiddleware(h.Update))
	mux.HandleFunc("DELETE "+base+"/{eid}", workspaceMiddleware(h.Delete))

	mux.HandleFunc("POST /api/workspaces/{wid}/training/run",
		workspaceMiddleware(h.Run))
	mux.HandleFunc("POST /api/workspaces/{wid}/agents/{aid}/rag-search",
		workspaceMiddleware(h.Search))
}

// List handles GET /api/workspaces/{wid}/agents/{aid}/training-entries
func (h *TrainingHandler) List(w http.ResponseWriter, r *http.Request) {
	_, agentID, ok := ParseWorkspaceAndAgentIDs(w, r, h.logger)
	if !ok {
		return
	}

	entries, err := h.training.ListEntries(r.Context(), agentID)
	if err != nil {
		h.logger.Error("Failed to list training entries",
			zap.String("agent_id", agentID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_training_entries_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := TrainingEntryListResponse{
		Entries: entries,
		Total:   len(entries),
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/workspaces/{wid}/agents/{aid}/training-entries
func (h *TrainingHandler) Create(w http.ResponseWriter, r *http.Request) {
	workspaceID, agentID, ok := ParseWorkspaceAndAgentIDs(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateTrainingEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	entry := &models.TrainingEntry{
		Identifier:  req.Identifier,
		Content:     req.Content,
		WorkspaceID: workspaceID,
		AgentID:     agentID,
	}

	if err := h.training.CreateEntry(r.Context(), entry); err != nil {
		h.logger.Error("Failed to create training entry",
			zap.String("agent_id", agentID.String()),
			zap.Error(err))

		if strings.Contains(err.Error(), "invalid training entry") {
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}

		if err := ErrorResponse(w, http.StatusInternalServerError, "create_training_entry_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: entry}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/workspaces/{wid}/agents/{aid}/training-entries/{eid}
func (h *TrainingHandler) Update(w http.ResponseWriter, r *http.Request) {
	workspaceID, agentID, ok := ParseWorkspaceAndAgentIDs(w, r, h.logger)
	if !ok {
		return
	}

	entryID, ok := ParseEntryID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateTrainingEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	entry := &models.TrainingEntry{
		ID:          entryID,
		Identifier:  req.Identifier,
		Content:     req.Content,
		WorkspaceID: workspaceID,
		AgentID:     agentID,
	}

	if err := h.training.UpdateEntry(r.Context(), entry); err != nil {
		h.logger.Error("Failed to update training entry",
			zap.String("entry_id", entryID.String()),
			zap.Error(err))

		if strings.Contains(err.Error(), "invalid training entry") {
			if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", err.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}

		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "entry_not_found", "Training entry not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}

		if err := ErrorResponse(w, http.StatusInternalServerError, "update_training_entry_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: entry}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/workspaces/{wid}/agents/{aid}/training-entries/{eid}
func (h *TrainingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, _, ok := ParseWorkspaceAndAgentIDs(w, r, h.logger)
	if !ok {
		return
	}

	entryID, ok := ParseEntryID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.training.DeleteEntry(r.Context(), entryID); err != nil {
		h.logger.Error("Failed to delete training entry",
			zap.String("entry_id", entryID.String()),
			zap.Error(err))

		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "entry_not_found", "Training entry not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}

		if err := ErrorResponse(w, http.StatusInternalServerError, "delete_training_entry_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]string{"status": "deleted"}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Run handles POST /api/workspaces/{wid}/training/run
// Embeds all pending entries for the workspace and reports counts.
func (h *TrainingHandler) Run(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}

	report, err := h.training.ProcessPending(r.Context(), workspaceID)
	if err != nil {
		h.logger.Error("Training run failed",
			zap.String("workspace_id", workspaceID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "training_run_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: report}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Search handles POST /api/workspaces/{wid}/agents/{aid}/rag-search
// Retrieval never errors; an empty result list is a valid answer.
func (h *TrainingHandler) Search(w http.ResponseWriter, r *http.Request) {
	workspaceID, agentID, ok := ParseWorkspaceAndAgentIDs(w, r, h.logger)
	if !ok {
		return
	}

	var req RagSearchRequest
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

	agent := &models.Agent{ID: agentID, WorkspaceID: workspaceID}
	opts := services.SearchOptions{
		UserMessage: req.Message,
		MaxResults:  req.MaxResults,
		MaxDistance: req.MaxDistance,
		Strict:      req.Strict,
	}

	var results []string
	if len(req.History) > 0 {
		history := make([]models.ConversationMessage, 0, len(req.History))
		for _, m := range req.History {
			history = append(history, models.ConversationMessage{
				Role:    models.ConversationRole(m.Role),
				Content: m.Content,
			})
		}
		results = h.search.SearchWithHistoryContext(r.Context(), agent, opts, history)
	} else {
		results = h.search.Search(r.Context(), agent, opts)
	}

	response := RagSearchResponse{
		Results: results,
		Total:   len(results),
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
