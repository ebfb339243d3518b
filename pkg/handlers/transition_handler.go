package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/converso-ai/converso-engine/pkg/services"
)

// TransitionRequest for POST /api/workspaces/{wid}/agents/{aid}/transition
type TransitionRequest struct {
	PreviousSkill    string `json:"previous_skill"`
	NewUserMessage   string `json:"new_user_message"`
	HadCollectedData bool   `json:"had_collected_data"`
	SwitchReason     string `json:"switch_reason,omitempty"`
	Content          string `json:"content,omitempty"` // Optional reply to prepend the bridge to
}

// TransitionResponse carries the bridge phrase, optionally already prepended
// to the caller-supplied content.
type TransitionResponse struct {
	Transition string `json:"transition"`
	Content    string `json:"content,omitempty"`
}

// TransitionHandler handles topic-switch bridge phrase requests.
type TransitionHandler struct {
	transitions services.TransitionMessageService
	logger      *zap.Logger
}

// NewTransitionHandler creates a new transition handler.
func NewTransitionHandler(transitions services.TransitionMessageService, logger *zap.Logger) *TransitionHandler {
	return &TransitionHandler{
		transitions: transitions,
		logger:      logger,
	}
}

// RegisterRoutes registers the transition handler's routes on the given mux.
func (h *TransitionHandler) RegisterRoutes(mux *http.ServeMux, workspaceMiddleware Middleware) {
	mux.HandleFunc("POST /api/workspaces/{wid}/agents/{aid}/transition",
		workspaceMiddleware(h.Generate))
}

// Generate handles POST /api/workspaces/{wid}/agents/{aid}/transition
// Always succeeds: generation failures fall back to a canned bridge phrase.
func (h *TransitionHandler) Generate(w http.ResponseWriter, r *http.Request) {
	_, _, ok := ParseWorkspaceAndAgentIDs(w, r, h.logger)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if strings.TrimSpace(req.PreviousSkill) == "" || strings.TrimSpace(req.NewUserMessage) == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", "previous_skill and new_user_message are required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	transition := h.transitions.GenerateTransitionMessage(r.Context(), services.TransitionRequest{
		PreviousSkill:    req.PreviousSkill,
		NewUserMessage:   req.NewUserMessage,
		HadCollectedData: req.HadCollectedData,
		SwitchReason:     req.SwitchReason,
	})

	response := TransitionResponse{Transition: transition}
	if req.Content != "" {
		response.Content = services.PrependTransitionMessage(transition, req.Content)
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
