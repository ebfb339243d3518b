package services

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/converso-ai/converso-engine/pkg/apperrors"
	"github.com/converso-ai/converso-engine/pkg/llm"
	"github.com/converso-ai/converso-engine/pkg/models"
)

// fakeSessionState is a configurable in-memory SessionStateReader.
type fakeSessionState struct {
	activeAgent   bool
	clarification bool
	err           error
}

func (f *fakeSessionState) HasActiveConversationalAgent(ctx context.Context, contextID string) (bool, error) {
	return f.activeAgent, f.err
}

func (f *fakeSessionState) IsWaitingForClarification(ctx context.Context, contextID string) (bool, error) {
	return f.clarification, f.err
}

var _ SessionStateReader = (*fakeSessionState)(nil)

// smallTalkFixture wires the orchestrator with separate mock clients for the
// classifier and generator tiers so call counts identify which tier ran.
type smallTalkFixture struct {
	svc           SmallTalkService
	classifierLLM *llm.MockLLMClient
	generatorLLM  *llm.MockLLMClient
	sessions      *fakeSessionState
}

func newSmallTalkFixture(t *testing.T) *smallTalkFixture {
	t.Helper()
	logger := zap.NewNop()
	classifierLLM := llm.NewMockLLMClient()
	generatorLLM := llm.NewMockLLMClient()
	sessions := &fakeSessionState{}

	fixedClock := func() time.Time {
		return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) // morning
	}

	svc := NewSmallTalkService(
		NewRegexIntentMatcher(0, logger),
		NewIntentClassifier(classifierLLM, IntentClassifierConfig{}, logger),
		NewResponseGenerator(generatorLLM, ResponseGeneratorConfig{}, rand.New(rand.NewSource(1)), logger),
		sessions,
		fixedClock,
		logger,
	)

	return &smallTalkFixture{
		svc:           svc,
		classifierLLM: classifierLLM,
		generatorLLM:  generatorLLM,
		sessions:      sessions,
	}
}

func smallTalkRequest(message string) SmallTalkRequest {
	return SmallTalkRequest{
		ContextID: "ctx-123",
		Agent: &models.Agent{
			BotName:    "Luna",
			ClientName: "Clínica Exemplo",
		},
		Message: message,
	}
}

func TestHandleRequiresAgent(t *testing.T) {
	f := newSmallTalkFixture(t)

	req := smallTalkRequest("oi")
	req.Agent = nil

	result, err := f.svc.Handle(context.Background(), req)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrMissingAgent)
}

func TestHandleGreetingFastPathSkipsClassifier(t *testing.T) {
	f := newSmallTalkFixture(t)
	f.generatorLLM.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{Content: "Bom dia! Como posso ajudar você hoje?"}, nil
	}

	result, err := f.svc.Handle(context.Background(), smallTalkRequest("oi"))

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, models.IntentGreeting, result.Intent)
	assert.Equal(t, "Bom dia! Como posso ajudar você hoje?", result.Response)

	assert.Equal(t, 0, f.classifierLLM.CompleteCalls, "regex match must not reach the classifier")
	assert.Equal(t, 1, f.generatorLLM.CompleteCalls)
}

func TestHandleGreetingFastPathSurvivesGeneratorFailure(t *testing.T) {
	f := newSmallTalkFixture(t)
	f.generatorLLM.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		return nil, fmt.Errorf("provider down")
	}

	result, err := f.svc.Handle(context.Background(), smallTalkRequest("obrigado"))

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, models.IntentThanks, result.Intent)
	// The deterministic fallback template, never an empty reply.
	assert.NotEmpty(t, result.Response)
}

func TestHandleEmojiOnlyNeverCostsAModelCall(t *testing.T) {
	f := newSmallTalkFixture(t)

	result, err := f.svc.Handle(context.Background(), smallTalkRequest("👍🙏"))

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, models.IntentEmoji, result.Intent)
	assert.NotEmpty(t, result.Response)
	assert.Equal(t, 0, f.classifierLLM.CompleteCalls)
	assert.Equal(t, 0, f.generatorLLM.CompleteCalls)
}

func TestHandleSlowPathUsesFusedResultDirectly(t *testing.T) {
	f := newSmallTalkFixture(t)
	f.classifierLLM.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{
			Content: `{"type": "greeting", "confidence": 0.8}` + "\nOi! Tudo ótimo por aqui, como posso ajudar?",
		}, nil
	}

	result, err := f.svc.Handle(context.Background(), smallTalkRequest("oie, tudo bem contigo?"))

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, models.IntentGreeting, result.Intent)
	assert.Equal(t, "Oi! Tudo ótimo por aqui, como posso ajudar?", result.Response)

	// The fused reply is used as-is: no second generation call.
	assert.Equal(t, 1, f.classifierLLM.CompleteCalls)
	assert.Equal(t, 0, f.generatorLLM.CompleteCalls)
}

func TestHandleDomainMessageDefersToSkillRouting(t *testing.T) {
	f := newSmallTalkFixture(t)
	f.classifierLLM.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{Content: `{"type": "none", "confidence": 0.95}`}, nil
	}

	result, err := f.svc.Handle(context.Background(), smallTalkRequest("oi, quero falar com um médico"))

	require.NoError(t, err)
	assert.Nil(t, result, "domain content is never handled as small talk")
}

func TestHandleClassifierFailureDefersToSkillRouting(t *testing.T) {
	f := newSmallTalkFixture(t)
	f.classifierLLM.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		return nil, fmt.Errorf("circuit breaker is open")
	}

	result, err := f.svc.Handle(context.Background(), smallTalkRequest("mensagem ambígua sem padrão"))

	require.NoError(t, err, "degradation must not surface as an error")
	assert.Nil(t, result)
}

func TestHandleGatedByActiveFlow(t *testing.T) {
	tests := []struct {
		name     string
		sessions *fakeSessionState
	}{
		{"active conversational agent", &fakeSessionState{activeAgent: true}},
		{"waiting for clarification", &fakeSessionState{clarification: true}},
		{"session read failure defers", &fakeSessionState{err: fmt.Errorf("session store unavailable")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSmallTalkFixture(t)
			f.sessions.activeAgent = tt.sessions.activeAgent
			f.sessions.clarification = tt.sessions.clarification
			f.sessions.err = tt.sessions.err

			// Even a perfect regex match is gated.
			result, err := f.svc.Handle(context.Background(), smallTalkRequest("oi"))

			require.NoError(t, err)
			assert.Nil(t, result)
			assert.Equal(t, 0, f.classifierLLM.CompleteCalls)
			assert.Equal(t, 0, f.generatorLLM.CompleteCalls)
		})
	}
}

func TestHandleBuildsTimeOfDayFromInjectedClock(t *testing.T) {
	f := newSmallTalkFixture(t)
	f.generatorLLM.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		return nil, fmt.Errorf("force template fallback")
	}

	result, err := f.svc.Handle(context.Background(), smallTalkRequest("bom dia"))

	require.NoError(t, err)
	require.NotNil(t, result)
	// 09:00 under the fixed clock: the template opens with the morning salute.
	assert.Contains(t, result.Response, "Bom dia")
}
