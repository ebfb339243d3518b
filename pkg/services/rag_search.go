package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/converso-ai/converso-engine/pkg/llm"
	"github.com/converso-ai/converso-engine/pkg/logging"
	"github.com/converso-ai/converso-engine/pkg/models"
	"github.com/converso-ai/converso-engine/pkg/repositories"
)

// SearchOptions tunes one knowledge-base search. Zero values fall back to
// the configured defaults.
type SearchOptions struct {
	UserMessage string
	MaxResults  int
	// MaxDistance is a cosine-distance cutoff; smaller is closer, so this is
	// a maximum, never a minimum score.
	MaxDistance float64
	// Strict switches the default cutoff to the tighter configured one,
	// trading recall for precision. Ignored when MaxDistance is set
	// explicitly.
	Strict bool
}

// RagSearchService retrieves semantically-relevant knowledge-base passages.
// Retrieval failures degrade to an empty slice: a less-grounded response is
// better than an aborted conversation.
type RagSearchService interface {
	// Search embeds the user message and returns passage contents ordered by
	// similarity, closest first. Never returns an error; failures are logged
	// and swallowed.
	Search(ctx context.Context, agent *models.Agent, opts SearchOptions) []string

	// RewriteQueryForRag makes an elliptical follow-up self-contained using
	// the conversation history. Returns the message unchanged when history is
	// empty or the message already has more than the configured word count.
	// Rewriting is an optimization, not a correctness requirement: on any
	// failure the original message is returned.
	RewriteQueryForRag(ctx context.Context, userMessage string, history []models.ConversationMessage) string

	// SearchWithHistoryContext composes rewrite then search. This is the
	// primary entry point for downstream skills. The options' UserMessage is
	// the raw follow-up; the rewritten query replaces it before searching.
	SearchWithHistoryContext(ctx context.Context, agent *models.Agent, opts SearchOptions, history []models.ConversationMessage) []string
}

// RagSearchConfig tunes retrieval defaults.
type RagSearchConfig struct {
	MaxDistance       float64 // Default distance cutoff
	StrictMaxDistance float64 // Cutoff for Strict searches
	MaxResults        int     // Default passage cap
	RewriteMaxWords   int     // Messages longer than this skip rewriting
}

type ragSearchService struct {
	llmClient  llm.LLMClient
	embeddings repositories.EmbeddingRepository
	cfg        RagSearchConfig
	logger     *zap.Logger
}

// NewRagSearchService creates a RAG search service.
func NewRagSearchService(
	llmClient llm.LLMClient,
	embeddings repositories.EmbeddingRepository,
	cfg RagSearchConfig,
	logger *zap.Logger,
) RagSearchService {
	if cfg.MaxDistance <= 0 {
		cfg.MaxDistance = 0.5
	}
	if cfg.StrictMaxDistance <= 0 {
		cfg.StrictMaxDistance = 0.35
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.RewriteMaxWords <= 0 {
		cfg.RewriteMaxWords = 5
	}
	return &ragSearchService{
		llmClient:  llmClient,
		embeddings: embeddings,
		cfg:        cfg,
		logger:     logger.Named("rag-search"),
	}
}

var _ RagSearchService = (*ragSearchService)(nil)

func (s *ragSearchService) Search(ctx context.Context, agent *models.Agent, opts SearchOptions) []string {
	if agent == nil || strings.TrimSpace(opts.UserMessage) == "" {
		return []string{}
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = s.cfg.MaxResults
	}
	if opts.MaxDistance <= 0 {
		if opts.Strict {
			opts.MaxDistance = s.cfg.StrictMaxDistance
		} else {
			opts.MaxDistance = s.cfg.MaxDistance
		}
	}

	embedding, err := s.llmClient.CreateEmbedding(ctx, opts.UserMessage)
	if err != nil {
		s.logger.Warn("Query embedding failed, returning no passages",
			zap.String("message", logging.TruncateMessage(opts.UserMessage)),
			zap.String("error", logging.SanitizeError(err)))
		return []string{}
	}

	results, err := s.embeddings.SearchNearest(ctx, repositories.NearestParams{
		QueryVector: embedding.Vector,
		WorkspaceID: agent.WorkspaceID,
		AgentID:     agent.ID,
		MaxDistance: opts.MaxDistance,
		Limit:       opts.MaxResults,
	})
	if err != nil {
		s.logger.Warn("Similarity search failed, returning no passages",
			zap.String("agent_id", agent.ID.String()),
			zap.String("error", logging.SanitizeError(err)))
		return []string{}
	}

	passages := make([]string, 0, len(results))
	for _, r := range results {
		passages = append(passages, r.Content)
	}

	s.logger.Debug("Knowledge-base search completed",
		zap.String("agent_id", agent.ID.String()),
		zap.Int("passages", len(passages)),
		zap.Float64("max_distance", opts.MaxDistance))

	return passages
}

func (s *ragSearchService) RewriteQueryForRag(ctx context.Context, userMessage string, history []models.ConversationMessage) string {
	trimmed := strings.TrimSpace(userMessage)
	if len(history) == 0 {
		return userMessage
	}
	// Short messages are the ones likely to be elliptical follow-ups
	// ("e a juliana azevedo?"); longer ones are assumed self-contained.
	if len(strings.Fields(trimmed)) > s.cfg.RewriteMaxWords {
		return userMessage
	}

	result, err := s.llmClient.Complete(ctx, llm.CompletionRequest{
		Prompt:        s.buildRewritePrompt(trimmed, history),
		SystemMessage: rewriteSystemMessage,
		Temperature:   0.1,
		MaxTokens:     80,
	})
	if err != nil {
		s.logger.Debug("Query rewrite failed, using original message",
			zap.String("error", logging.SanitizeError(err)))
		return userMessage
	}

	rewritten := strings.TrimSpace(result.Content)
	if rewritten == "" {
		return userMessage
	}

	s.logger.Debug("Query rewritten for retrieval",
		zap.String("original", logging.TruncateMessage(userMessage)),
		zap.String("rewritten", logging.TruncateMessage(rewritten)))

	return rewritten
}

func (s *ragSearchService) SearchWithHistoryContext(ctx context.Context, agent *models.Agent, opts SearchOptions, history []models.ConversationMessage) []string {
	opts.UserMessage = s.RewriteQueryForRag(ctx, opts.UserMessage, history)
	return s.Search(ctx, agent, opts)
}

const rewriteSystemMessage = `Você reescreve perguntas curtas de acompanhamento para que fiquem autocontidas,
usando apenas o histórico da conversa fornecido.

Regras estritas:
- NÃO introduza fatos que não estejam no histórico.
- Mantenha a pergunta reescrita mínima.
- Retorne APENAS o texto da pergunta, sem explicações, sem aspas.`

func (s *ragSearchService) buildRewritePrompt(userMessage string, history []models.ConversationMessage) string {
	var sb strings.Builder

	sb.WriteString("Histórico da conversa:\n")
	for _, msg := range history {
		fmt.Fprintf(&sb, "%s: %s\n", msg.Role, msg.Content)
	}
	fmt.Fprintf(&sb, "\nPergunta de acompanhamento: %s\n", userMessage)
	sb.WriteString("\nReescreva a pergunta de acompanhamento como uma pergunta autocontida.")

	return sb.String()
}
