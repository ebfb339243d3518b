package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/converso-ai/converso-engine/pkg/apperrors"
	"github.com/converso-ai/converso-engine/pkg/logging"
	"github.com/converso-ai/converso-engine/pkg/models"
)

// SmallTalkRequest is one incoming user message with its conversational scope.
type SmallTalkRequest struct {
	ContextID   string // Conversation identifier for session-state reads
	Agent       *models.Agent
	Message     string
	PatientName string // Optional; known once the conversation collected it
}

// SmallTalkResult is a handled small-talk exchange. A nil result means "not
// small talk": the caller proceeds with normal skill routing.
type SmallTalkResult struct {
	Intent   models.IntentType `json:"intent"`
	Response string            `json:"response"`
}

// SmallTalkService intercepts conversational etiquette before skill routing.
// It is strictly an interception layer: it never produces a terminal
// "I don't understand" reply, and it never hijacks an in-progress flow.
type SmallTalkService interface {
	Handle(ctx context.Context, req SmallTalkRequest) (*SmallTalkResult, error)
}

type smallTalkService struct {
	matcher    *RegexIntentMatcher
	classifier IntentClassifier
	generator  ResponseGenerator
	sessions   SessionStateReader
	clock      func() time.Time
	logger     *zap.Logger
}

// NewSmallTalkService creates the small-talk orchestrator. The clock is
// injected so time-of-day phrasing is deterministic under test.
func NewSmallTalkService(
	matcher *RegexIntentMatcher,
	classifier IntentClassifier,
	generator ResponseGenerator,
	sessions SessionStateReader,
	clock func() time.Time,
	logger *zap.Logger,
) SmallTalkService {
	if clock == nil {
		clock = time.Now
	}
	return &smallTalkService{
		matcher:    matcher,
		classifier: classifier,
		generator:  generator,
		sessions:   sessions,
		clock:      clock,
		logger:     logger.Named("small-talk"),
	}
}

var _ SmallTalkService = (*smallTalkService)(nil)

// Handle runs the per-message state machine: session gate, regex fast path,
// LLM slow path, then defer. The terminal state is always reached within one
// message; any cross-turn state is read-only session state.
//
// Cost ordering is deliberate: each step short-circuits the more expensive
// one after it.
func (s *smallTalkService) Handle(ctx context.Context, req SmallTalkRequest) (*SmallTalkResult, error) {
	if req.Agent == nil {
		// Setup error, not a runtime condition: surface it to the caller.
		return nil, apperrors.ErrMissingAgent
	}

	// Gate: never interrupt an active structured flow or a pending
	// clarification. A session-state read failure defers too - guessing
	// wrong here would hijack a mid-flow skill.
	if s.gated(ctx, req.ContextID) {
		return nil, nil
	}

	// Fast path: zero-cost regex classification.
	if classification := s.matcher.Classify(req.Message); classification != nil {
		rctx := s.buildResponseContext(req)
		response := s.generator.GenerateResponse(ctx, classification.Type, req.Message, rctx)

		s.logger.Info("Small talk handled via regex fast path",
			zap.String("context_id", req.ContextID),
			zap.String("intent", string(classification.Type)))

		return &SmallTalkResult{
			Intent:   classification.Type,
			Response: response,
		}, nil
	}

	// Slow path: fused LLM classification+generation in one round trip.
	rctx := s.buildResponseContext(req)
	result := s.classifier.ClassifyAndGenerate(ctx, req.Message, rctx)
	if result == nil || !result.Type.IsSmallTalk() {
		s.logger.Debug("No small-talk match, deferring to skill routing",
			zap.String("context_id", req.ContextID),
			zap.String("message", logging.TruncateMessage(req.Message)))
		return nil, nil
	}

	s.logger.Info("Small talk handled via LLM slow path",
		zap.String("context_id", req.ContextID),
		zap.String("intent", string(result.Type)),
		zap.Float64("confidence", result.Confidence))

	return &SmallTalkResult{
		Intent:   result.Type,
		Response: result.Response,
	}, nil
}

// gated reports whether an active skill or pending clarification owns this
// conversation turn.
func (s *smallTalkService) gated(ctx context.Context, contextID string) bool {
	active, err := s.sessions.HasActiveConversationalAgent(ctx, contextID)
	if err != nil {
		s.logger.Warn("Session-state read failed, deferring to skill routing",
			zap.String("context_id", contextID),
			zap.String("error", logging.SanitizeError(err)))
		return true
	}
	if active {
		return true
	}

	waiting, err := s.sessions.IsWaitingForClarification(ctx, contextID)
	if err != nil {
		s.logger.Warn("Session-state read failed, deferring to skill routing",
			zap.String("context_id", contextID),
			zap.String("error", logging.SanitizeError(err)))
		return true
	}
	return waiting
}

// buildResponseContext assembles the render context fresh for this message.
// It is never cached: the patient name may change as the conversation
// collects more data.
func (s *smallTalkService) buildResponseContext(req SmallTalkRequest) models.ResponseContext {
	return models.ResponseContext{
		BotName:     req.Agent.BotName,
		ClientName:  req.Agent.ClientName,
		PatientName: req.PatientName,
		TimeOfDay:   models.TimeOfDayAt(s.clock()),
	}
}
