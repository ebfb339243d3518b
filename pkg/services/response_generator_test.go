package services

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/converso-ai/converso-engine/pkg/llm"
	"github.com/converso-ai/converso-engine/pkg/models"
)

func newTestGenerator(mock *llm.MockLLMClient, seed int64) ResponseGenerator {
	return NewResponseGenerator(mock, ResponseGeneratorConfig{}, rand.New(rand.NewSource(seed)), zap.NewNop())
}

func testResponseContext() models.ResponseContext {
	return models.ResponseContext{
		BotName:    "Luna",
		ClientName: "Clínica Exemplo",
		TimeOfDay:  models.TimeOfDayMorning,
	}
}

func TestGenerateResponseUsesLLMReply(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{Content: "  Bom dia! Como posso ajudar você hoje?  "}, nil
	}

	generator := newTestGenerator(mock, 1)
	got := generator.GenerateResponse(context.Background(), models.IntentGreeting, "bom dia", testResponseContext())

	assert.Equal(t, "Bom dia! Como posso ajudar você hoje?", got)
	assert.Equal(t, 1, mock.CompleteCalls)
}

func TestGenerateResponseFallsBackOnProviderFailure(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		return nil, fmt.Errorf("upstream timeout")
	}

	rctx := testResponseContext()
	generator := newTestGenerator(mock, 1)

	for _, intent := range []models.IntentType{
		models.IntentGreeting, models.IntentThanks, models.IntentFarewell,
		models.IntentMenu, models.IntentEndService, models.IntentOffTopic,
	} {
		got := generator.GenerateResponse(context.Background(), intent, "qualquer coisa", rctx)
		assert.Equal(t, FallbackResponse(intent, rctx), got, "intent %s", intent)
		assert.NotEmpty(t, got)
	}
}

func TestGenerateResponseFallsBackOnGarbledReply(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResult, error) {
		return &llm.CompletionResult{Content: "Ok."}, nil
	}

	rctx := testResponseContext()
	generator := newTestGenerator(mock, 1)
	got := generator.GenerateResponse(context.Background(), models.IntentThanks, "obrigado", rctx)

	assert.Equal(t, FallbackResponse(models.IntentThanks, rctx), got)
}

func TestGenerateResponseEmojiSkipsLLM(t *testing.T) {
	mock := llm.NewMockLLMClient()
	generator := newTestGenerator(mock, 42)

	got := generator.GenerateResponse(context.Background(), models.IntentEmoji, "👍", testResponseContext())

	assert.Contains(t, emojiAcknowledgements, got)
	assert.Equal(t, 0, mock.CompleteCalls, "emoji input must not cost a model call")
}

func TestGenerateResponseEmojiDeterministicWithSeed(t *testing.T) {
	mock := llm.NewMockLLMClient()
	first := newTestGenerator(mock, 7).GenerateResponse(context.Background(), models.IntentEmoji, "🙏", testResponseContext())
	second := newTestGenerator(mock, 7).GenerateResponse(context.Background(), models.IntentEmoji, "🙏", testResponseContext())

	assert.Equal(t, first, second)
}

func TestFallbackResponseTemplates(t *testing.T) {
	rctx := models.ResponseContext{
		BotName:     "Luna",
		ClientName:  "Clínica Exemplo",
		PatientName: "Maria",
		TimeOfDay:   models.TimeOfDayAfternoon,
	}

	greeting := FallbackResponse(models.IntentGreeting, rctx)
	assert.Contains(t, greeting, "Boa tarde")
	assert.Contains(t, greeting, "Maria")
	assert.Contains(t, greeting, "Luna")
	assert.Contains(t, greeting, "Clínica Exemplo")

	// Same inputs, same output: the fallback layer is fully deterministic.
	require.Equal(t, greeting, FallbackResponse(models.IntentGreeting, rctx))

	// No patient name, no dangling comma.
	anon := FallbackResponse(models.IntentGreeting, models.ResponseContext{
		BotName: "Luna", ClientName: "Clínica Exemplo", TimeOfDay: models.TimeOfDayEvening,
	})
	assert.Contains(t, anon, "Boa noite!")
	assert.NotContains(t, anon, ", !")

	farewell := FallbackResponse(models.IntentFarewell, rctx)
	assert.Contains(t, farewell, "Clínica Exemplo")

	unknown := FallbackResponse(models.IntentType("???"), rctx)
	assert.Equal(t, "Como posso ajudar, Maria?", unknown)
}
