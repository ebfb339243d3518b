package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/converso-ai/converso-engine/pkg/llm"
	"github.com/converso-ai/converso-engine/pkg/logging"
	"github.com/converso-ai/converso-engine/pkg/models"
)

// minGeneratedReplyLength is the floor under which a generated reply is
// considered garbled and discarded. A short broken reply is worse than
// falling through to a template fallback.
const minGeneratedReplyLength = 10

// IntentResult is a validated fused classification+generation outcome.
type IntentResult struct {
	Type       models.IntentType
	Confidence float64
	Response   string
}

// IntentClassifier classifies an utterance and drafts a reply in a single
// LLM round trip, amortizing one call for both concerns. Failed or invalid
// results degrade to nil; the orchestrator then defers to skill routing.
type IntentClassifier interface {
	ClassifyAndGenerate(ctx context.Context, message string, rctx models.ResponseContext) *IntentResult
}

type intentClassifier struct {
	llmClient     llm.LLMClient
	minConfidence float64
	temperature   float64
	maxTokens     int
	logger        *zap.Logger
}

// IntentClassifierConfig tunes the fused classifier.
type IntentClassifierConfig struct {
	MinConfidence float64 // Results below this are discarded
	Temperature   float64
	MaxTokens     int
}

// NewIntentClassifier creates a fused classify+generate service.
func NewIntentClassifier(llmClient llm.LLMClient, cfg IntentClassifierConfig, logger *zap.Logger) IntentClassifier {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.5
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 150
	}
	return &intentClassifier{
		llmClient:     llmClient,
		minConfidence: cfg.MinConfidence,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		logger:        logger.Named("intent-classifier"),
	}
}

var _ IntentClassifier = (*intentClassifier)(nil)

// ClassifyAndGenerate runs the fused prompt and validates the result.
// Any provider failure or validation failure returns nil - degrade, never
// retry synchronously.
func (s *intentClassifier) ClassifyAndGenerate(ctx context.Context, message string, rctx models.ResponseContext) *IntentResult {
	result, err := s.llmClient.Complete(ctx, llm.CompletionRequest{
		Prompt:        s.buildPrompt(message),
		SystemMessage: s.systemMessage(rctx),
		Temperature:   s.temperature,
		MaxTokens:     s.maxTokens,
	})
	if err != nil {
		s.logger.Warn("Fused classification call failed",
			zap.String("message", logging.TruncateMessage(message)),
			zap.String("error", logging.SanitizeError(err)))
		return nil
	}

	parsed := parseIntentResponse(result.Content, s.minConfidence)
	if parsed == nil {
		s.logger.Debug("Fused classification result discarded",
			zap.String("message", logging.TruncateMessage(message)),
			zap.String("content", logging.Truncate(result.Content, 200)))
		return nil
	}

	s.logger.Debug("Fused classification succeeded",
		zap.String("intent", string(parsed.Type)),
		zap.Float64("confidence", parsed.Confidence))

	return parsed
}

// systemMessage encodes the hardest business rule of the whole intent layer:
// any mention of domain entities must be classified "none" even if the
// phrasing superficially resembles small talk.
func (s *intentClassifier) systemMessage(rctx models.ResponseContext) string {
	var sb strings.Builder

	sb.WriteString(buildContextBlock(rctx))
	sb.WriteString(`
Você classifica mensagens curtas de usuários e responde quando são apenas conversa social.

Tipos possíveis: greeting, thanks, farewell, menu, off_topic, end_service, none.

REGRA MAIS IMPORTANTE: se a mensagem mencionar QUALQUER assunto do domínio —
consultas, agendamentos, médicos, doutores, sintomas, dores, exames, convênio,
plano de saúde, preços, valores, horários específicos — classifique como "none",
mesmo que a frase comece como uma saudação. Conversa social cobre apenas
etiqueta (cumprimentos, agradecimentos, despedidas, pedidos de ajuda), nunca
conteúdo do domínio.

Formato da resposta:
1. Primeira linha: um objeto JSON em linha única {"type": "<tipo>", "confidence": <0..1>}
2. Nas linhas seguintes: a resposta em linguagem natural adequada ao tipo.
   Para "none", não escreva resposta nenhuma.

Instruções por tipo:
`)
	for _, intent := range []models.IntentType{
		models.IntentGreeting, models.IntentThanks, models.IntentFarewell,
		models.IntentMenu, models.IntentOffTopic, models.IntentEndService,
	} {
		fmt.Fprintf(&sb, "- %s: %s\n", intent, intentInstructions[intent])
	}

	return sb.String()
}

func (s *intentClassifier) buildPrompt(message string) string {
	return fmt.Sprintf("Mensagem do usuário:\n%s", message)
}

// intentJSONHeader is the expected first-line JSON object.
type intentJSONHeader struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// parseIntentResponse extracts and validates the fused response. It is a
// pure function so the extraction/validation rules are testable without any
// network call. Returns nil for anything malformed, unknown, under-confident
// or with a garbled reply.
func parseIntentResponse(content string, minConfidence float64) *IntentResult {
	jsonStr, remainder, err := llm.ExtractJSONObject(content)
	if err != nil {
		return nil
	}

	var header intentJSONHeader
	if err := json.Unmarshal([]byte(jsonStr), &header); err != nil {
		return nil
	}

	intentType, ok := models.ParseIntentType(header.Type)
	if !ok {
		return nil
	}

	if header.Confidence < minConfidence {
		return nil
	}
	// Confidence 1.0 is reserved for emoji-only regex detection.
	if header.Confidence >= 1.0 {
		header.Confidence = 0.99
	}

	// "none" carries no reply by contract; everything else must have a
	// usable one.
	if intentType == models.IntentNone {
		return &IntentResult{Type: intentType, Confidence: header.Confidence}
	}

	reply := strings.TrimSpace(remainder)
	if len([]rune(reply)) < minGeneratedReplyLength {
		return nil
	}

	return &IntentResult{
		Type:       intentType,
		Confidence: header.Confidence,
		Response:   reply,
	}
}
