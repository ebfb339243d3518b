package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/converso-ai/converso-engine/pkg/models"
)

func newTestMatcher(t *testing.T) *RegexIntentMatcher {
	t.Helper()
	return NewRegexIntentMatcher(0, zap.NewNop())
}

func TestRegexMatcherClassifiesCommonEtiquette(t *testing.T) {
	matcher := newTestMatcher(t)

	tests := []struct {
		message string
		want    models.IntentType
	}{
		{"oi", models.IntentGreeting},
		{"Oi!", models.IntentGreeting},
		{"olá", models.IntentGreeting},
		{"OLÁ!!", models.IntentGreeting},
		{"bom dia", models.IntentGreeting},
		{"Boa tarde!", models.IntentGreeting},
		{"oi, tudo bem?", models.IntentGreeting},
		{"tudo bom?", models.IntentGreeting},
		{"hello", models.IntentGreeting},

		{"obrigado", models.IntentThanks},
		{"muito obrigada!", models.IntentThanks},
		{"brigadão", models.IntentThanks},
		{"obrigadão!", models.IntentThanks},
		{"valeu", models.IntentThanks},
		{"vlw", models.IntentThanks},
		{"thanks", models.IntentThanks},

		{"tchau", models.IntentFarewell},
		{"tchauuu!", models.IntentFarewell},
		{"até logo", models.IntentFarewell},
		{"até amanhã", models.IntentFarewell},
		{"flw", models.IntentFarewell},
		{"bye", models.IntentFarewell},

		{"menu", models.IntentMenu},
		{"ajuda", models.IntentMenu},
		{"opções", models.IntentMenu},
		{"o que você faz?", models.IntentMenu},

		{"você é um robô?", models.IntentOffTopic},
		{"qual é o seu nome?", models.IntentOffTopic},
		{"conta uma piada", models.IntentOffTopic},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			got := matcher.Classify(tt.message)
			require.NotNil(t, got, "expected a match for %q", tt.message)
			assert.Equal(t, tt.want, got.Type)
			assert.Equal(t, 1.0, got.Confidence)
			assert.False(t, got.NeedsLLM)
		})
	}
}

func TestRegexMatcherAnchorsRejectEmbeddedEtiquette(t *testing.T) {
	matcher := newTestMatcher(t)

	// Etiquette words inside a domain message must fall through to the LLM
	// tier, never match as small talk.
	messages := []string{
		"oi, quero marcar uma consulta",
		"olá doutor, estou com dor de cabeça",
		"obrigado, mas quanto custa o exame?",
		"bom dia, o convênio cobre essa consulta?",
		"tchau, mas antes confirma meu horário",
		"oi tudo bem quero remarcar",
		// end_service has no fast-path group; only the LLM tier resolves it.
		"encerrar atendimento",
	}

	for _, msg := range messages {
		t.Run(msg, func(t *testing.T) {
			assert.Nil(t, matcher.Classify(msg))
		})
	}
}

func TestRegexMatcherRejectsEmptyAndOversizedInput(t *testing.T) {
	matcher := newTestMatcher(t)

	assert.Nil(t, matcher.Classify(""))
	assert.Nil(t, matcher.Classify("   "))

	// Just over the cap, even though the prefix alone would match.
	long := "oi" + strings.Repeat("!", MaxClassifiableLength)
	assert.Nil(t, matcher.Classify(long))

	// Exactly at the cap still classifies.
	atCap := strings.Repeat("👍", MaxClassifiableLength)
	got := matcher.Classify(atCap)
	require.NotNil(t, got)
	assert.Equal(t, models.IntentEmoji, got.Type)
}

func TestRegexMatcherEmojiOnly(t *testing.T) {
	matcher := newTestMatcher(t)

	tests := []struct {
		name    string
		message string
		isEmoji bool
	}{
		{"single thumbs up", "👍", true},
		{"multiple emoji", "😊🙏", true},
		{"emoji with spaces", "👍 🙏 😊", true},
		{"heart with variation selector", "❤️", true},
		{"zwj family sequence", "👨‍👩‍👧", true},
		{"star", "⭐", true},
		{"double exclamation", "‼️", true},
		{"emoji plus text", "👍 sim", false},
		{"emoji plus digit", "1 👍", false},
		{"digits only", "123", false},
		{"plain text", "legal", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matcher.Classify(tt.message)
			if !tt.isEmoji {
				if got != nil {
					assert.NotEqual(t, models.IntentEmoji, got.Type)
				}
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, models.IntentEmoji, got.Type)
			assert.Equal(t, 1.0, got.Confidence)
		})
	}
}

func TestRegexMatcherBudgetNeverBlocksClassification(t *testing.T) {
	// Even with a budget too small for any pattern to finish reliably,
	// Classify returns promptly instead of blocking on the evaluation.
	matcher := &RegexIntentMatcher{budget: time.Nanosecond, logger: zap.NewNop()}

	done := make(chan struct{})
	go func() {
		matcher.Classify("alguma mensagem qualquer")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("classification did not return within budgeted time")
	}

	// Emoji detection runs before patterns and is unaffected by the budget.
	got := matcher.Classify("👍")
	require.NotNil(t, got)
	assert.Equal(t, models.IntentEmoji, got.Type)
}
