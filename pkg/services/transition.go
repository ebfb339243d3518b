package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/converso-ai/converso-engine/pkg/llm"
	"github.com/converso-ai/converso-engine/pkg/logging"
)

// maxTransitionWords caps the bridging sentence length.
const maxTransitionWords = 15

// transitionFallbacks is the generic pool used when the LLM is unavailable.
var transitionFallbacks = []string{
	"Claro, vamos falar disso",
	"Sem problema, podemos ver isso agora",
	"Entendi, vamos para esse assunto",
	"Combinado, vamos lá",
}

// transitionFallbacksDataKept reassures the user that previously collected
// data was retained when a structured flow is interrupted mid-collection.
var transitionFallbacksDataKept = []string{
	"Claro, vamos ver isso. Suas informações ficam guardadas",
	"Sem problema, o que você já preencheu está salvo",
	"Podemos ver isso agora. Depois continuamos de onde paramos",
}

// TransitionRequest describes a mid-session skill switch.
type TransitionRequest struct {
	PreviousSkill    string
	NewUserMessage   string
	HadCollectedData bool
	SwitchReason     string // Optional
}

// TransitionMessageService produces a short bridging utterance when the
// active conversational skill changes mid-session.
type TransitionMessageService interface {
	GenerateTransitionMessage(ctx context.Context, req TransitionRequest) string
}

type transitionMessageService struct {
	llmClient llm.LLMClient
	rng       *rand.Rand
	logger    *zap.Logger
}

// NewTransitionMessageService creates a transition message service. The
// random source is injected for deterministic fallback selection in tests.
func NewTransitionMessageService(llmClient llm.LLMClient, rng *rand.Rand, logger *zap.Logger) TransitionMessageService {
	return &transitionMessageService{
		llmClient: llmClient,
		rng:       rng,
		logger:    logger.Named("transition"),
	}
}

var _ TransitionMessageService = (*transitionMessageService)(nil)

func (s *transitionMessageService) GenerateTransitionMessage(ctx context.Context, req TransitionRequest) string {
	result, err := s.llmClient.Complete(ctx, llm.CompletionRequest{
		Prompt:        s.buildPrompt(req),
		SystemMessage: transitionSystemMessage,
		Temperature:   0.7,
		MaxTokens:     50,
	})
	if err != nil {
		s.logger.Debug("Transition generation failed, using fallback phrase",
			zap.String("error", logging.SanitizeError(err)))
		return s.fallback(req.HadCollectedData)
	}

	transition := strings.TrimSpace(result.Content)
	if transition == "" || len(strings.Fields(transition)) > maxTransitionWords {
		return s.fallback(req.HadCollectedData)
	}

	return transition
}

func (s *transitionMessageService) fallback(hadCollectedData bool) string {
	if hadCollectedData {
		return transitionFallbacksDataKept[s.rng.Intn(len(transitionFallbacksDataKept))]
	}
	return transitionFallbacks[s.rng.Intn(len(transitionFallbacks))]
}

const transitionSystemMessage = `Você escreve uma única frase curta de transição quando o assunto da conversa muda.

Regras estritas:
- No máximo 15 palavras.
- Nunca mencione mecânica interna ("detectei uma mudança", termos técnicos).
- Nunca repita a mensagem do usuário literalmente.
- Tom natural e acolhedor, em português.
- Retorne apenas a frase, sem aspas.`

func (s *transitionMessageService) buildPrompt(req TransitionRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "O usuário estava em: %s\n", req.PreviousSkill)
	fmt.Fprintf(&sb, "Nova mensagem do usuário: %s\n", req.NewUserMessage)
	if req.HadCollectedData {
		sb.WriteString("O usuário já tinha preenchido dados no fluxo anterior; tranquilize que nada foi perdido.\n")
	}
	if req.SwitchReason != "" {
		fmt.Fprintf(&sb, "Motivo da troca: %s\n", req.SwitchReason)
	}
	sb.WriteString("\nEscreva a frase de transição.")

	return sb.String()
}

// PrependTransitionMessage joins a transition phrase and the main response
// content with a blank line, trimming a trailing period from the phrase.
// No-ops when the transition is empty.
func PrependTransitionMessage(transition, content string) string {
	transition = strings.TrimSpace(transition)
	if transition == "" {
		return content
	}
	transition = strings.TrimSuffix(transition, ".")
	return transition + "\n\n" + content
}
