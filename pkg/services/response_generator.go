package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/converso-ai/converso-engine/pkg/llm"
	"github.com/converso-ai/converso-engine/pkg/logging"
	"github.com/converso-ai/converso-engine/pkg/models"
)

// emojiAcknowledgements is the fixed pool for emoji-only input. Emoji input
// does not warrant model cost; a random acknowledgement suffices.
var emojiAcknowledgements = []string{
	"😊",
	"👍",
	"😊 Estou por aqui se precisar de algo!",
	"👍 Qualquer coisa, é só chamar!",
	"🙂",
}

// ResponseGenerator produces the final user-facing reply for a confirmed
// small-talk intent. It never fails: every error path lands on the
// deterministic per-intent fallback template.
type ResponseGenerator interface {
	GenerateResponse(ctx context.Context, intentType models.IntentType, userMessage string, rctx models.ResponseContext) string
}

// ResponseGeneratorConfig tunes reply generation.
type ResponseGeneratorConfig struct {
	Temperature float64
	MaxTokens   int
}

type responseGenerator struct {
	llmClient llm.LLMClient
	cfg       ResponseGeneratorConfig
	rng       *rand.Rand
	logger    *zap.Logger
}

// NewResponseGenerator creates a response generator. The random source is
// injected so fallback and emoji selection are deterministic under test.
func NewResponseGenerator(llmClient llm.LLMClient, cfg ResponseGeneratorConfig, rng *rand.Rand, logger *zap.Logger) ResponseGenerator {
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 150
	}
	return &responseGenerator{
		llmClient: llmClient,
		cfg:       cfg,
		rng:       rng,
		logger:    logger.Named("response-generator"),
	}
}

var _ ResponseGenerator = (*responseGenerator)(nil)

func (g *responseGenerator) GenerateResponse(ctx context.Context, intentType models.IntentType, userMessage string, rctx models.ResponseContext) string {
	if intentType == models.IntentEmoji {
		return emojiAcknowledgements[g.rng.Intn(len(emojiAcknowledgements))]
	}

	result, err := g.llmClient.Complete(ctx, llm.CompletionRequest{
		Prompt:        fmt.Sprintf("Mensagem do usuário:\n%s", userMessage),
		SystemMessage: g.systemMessage(intentType, rctx),
		Temperature:   g.cfg.Temperature,
		MaxTokens:     g.cfg.MaxTokens,
	})
	if err != nil {
		g.logger.Warn("Response generation failed, using fallback template",
			zap.String("intent", string(intentType)),
			zap.String("error", logging.SanitizeError(err)))
		return FallbackResponse(intentType, rctx)
	}

	reply := strings.TrimSpace(result.Content)
	if len([]rune(reply)) <= minGeneratedReplyLength {
		g.logger.Debug("Generated reply too short, using fallback template",
			zap.String("intent", string(intentType)),
			zap.Int("length", len([]rune(reply))))
		return FallbackResponse(intentType, rctx)
	}

	return reply
}

func (g *responseGenerator) systemMessage(intentType models.IntentType, rctx models.ResponseContext) string {
	instruction, ok := intentInstructions[intentType]
	if !ok {
		instruction = intentInstructions[models.IntentOffTopic]
	}

	var sb strings.Builder
	sb.WriteString(buildContextBlock(rctx))
	sb.WriteString("\nResponda em português, em no máximo duas frases curtas.\n")
	sb.WriteString("Instrução: ")
	sb.WriteString(instruction)
	return sb.String()
}

// FallbackResponse returns the deterministic template for an intent. It is a
// pure function of the render context (no LLM, no I/O) and is the ground
// truth for unit tests of degraded behavior.
func FallbackResponse(intentType models.IntentType, rctx models.ResponseContext) string {
	name := ""
	if rctx.PatientName != "" {
		name = ", " + rctx.PatientName
	}

	switch intentType {
	case models.IntentGreeting:
		return fmt.Sprintf("%s%s! Eu sou %s, assistente virtual de %s. Como posso ajudar?",
			rctx.TimeOfDay.Greeting(), name, rctx.BotName, rctx.ClientName)
	case models.IntentThanks:
		return fmt.Sprintf("Por nada%s! Se precisar de mais alguma coisa, é só chamar. 😊", name)
	case models.IntentFarewell:
		return fmt.Sprintf("Até logo%s! %s agradece o seu contato. Volte quando quiser!", name, rctx.ClientName)
	case models.IntentMenu:
		return fmt.Sprintf("Eu sou %s e posso ajudar com: agendar ou remarcar consultas, "+
			"tirar dúvidas sobre %s e dar informações gerais. O que você precisa?",
			rctx.BotName, rctx.ClientName)
	case models.IntentEndService:
		return fmt.Sprintf("Atendimento encerrado%s. Obrigado por falar com %s!", name, rctx.ClientName)
	case models.IntentOffTopic:
		return fmt.Sprintf("Boa pergunta%s! Mas o que eu sei fazer mesmo é ajudar com %s. Como posso ajudar?",
			name, rctx.ClientName)
	default:
		return fmt.Sprintf("Como posso ajudar%s?", name)
	}
}
