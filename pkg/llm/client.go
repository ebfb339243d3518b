// Package llm provides OpenAI-compatible LLM client functionality.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Client provides access to OpenAI-compatible chat and embedding endpoints.
type Client struct {
	client         *openai.Client
	endpoint       string
	chatModel      string
	embeddingModel string
	chatTimeout    time.Duration
	embedTimeout   time.Duration
	breaker        *CircuitBreaker
	logger         *zap.Logger
}

// Config holds configuration for creating an LLM client.
type Config struct {
	Endpoint       string // Base URL, e.g., "https://api.openai.com/v1"
	ChatModel      string // Model name, e.g., "gpt-4o-mini"
	EmbeddingModel string // Model name, e.g., "text-embedding-3-small"
	APIKey         string // Optional for local endpoints
	ChatTimeout    time.Duration
	EmbedTimeout   time.Duration
}

// NewClient creates a new OpenAI-compatible LLM client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.ChatModel == "" {
		return nil, fmt.Errorf("chat model is required")
	}
	if cfg.EmbeddingModel == "" {
		return nil, fmt.Errorf("embedding model is required")
	}

	chatTimeout := cfg.ChatTimeout
	if chatTimeout == 0 {
		chatTimeout = 15 * time.Second
	}
	embedTimeout := cfg.EmbedTimeout
	if embedTimeout == 0 {
		embedTimeout = 4 * time.Second
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	return &Client{
		client:         openai.NewClientWithConfig(clientConfig),
		endpoint:       cfg.Endpoint,
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		chatTimeout:    chatTimeout,
		embedTimeout:   embedTimeout,
		breaker:        NewCircuitBreaker(DefaultCircuitBreakerConfig()),
		logger:         logger.Named("llm"),
	}, nil
}

// Complete generates a chat completion response with usage stats.
// Each call carries its own timeout; a tripped circuit breaker fails fast
// without hitting the provider.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	if allowed, err := c.breaker.Allow(); !allowed {
		return nil, ClassifyError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.chatTimeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: req.SystemMessage},
		{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
	}

	c.logger.Debug("LLM request",
		zap.String("model", c.chatModel),
		zap.Int("prompt_len", len(req.Prompt)),
		zap.Float64("temperature", req.Temperature),
		zap.Int("max_tokens", req.MaxTokens))

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		c.breaker.RecordFailure()
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(err)
	}

	if len(resp.Choices) == 0 {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("no choices in response")
	}
	c.breaker.RecordSuccess()

	content := resp.Choices[0].Message.Content
	elapsed := time.Since(start)

	c.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", elapsed))

	return &CompletionResult{
		Content:          content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// CreateEmbedding generates an embedding vector for the input text.
func (c *Client) CreateEmbedding(ctx context.Context, input string) (*EmbeddingResult, error) {
	results, err := c.CreateEmbeddings(ctx, []string{input})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no embedding in response")
	}
	return results[0], nil
}

// CreateEmbeddings generates embeddings for multiple inputs.
// Inputs are normalized (lowercase, trimmed) before submission.
func (c *Client) CreateEmbeddings(ctx context.Context, inputs []string) ([]*EmbeddingResult, error) {
	if allowed, err := c.breaker.Allow(); !allowed {
		return nil, ClassifyError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.embedTimeout)
	defer cancel()

	normalized := make([]string, len(inputs))
	for i, in := range inputs {
		normalized[i] = NormalizeForEmbedding(in)
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: normalized,
	})
	if err != nil {
		c.breaker.RecordFailure()
		return nil, ClassifyError(fmt.Errorf("create embeddings: %w", err))
	}

	if len(resp.Data) == 0 {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("no embedding in response")
	}
	c.breaker.RecordSuccess()

	// The API reports usage for the whole batch; attribute it to the first
	// result and split evenly across the rest for per-entry cost accounting.
	perInput := resp.Usage.TotalTokens / len(resp.Data)
	results := make([]*EmbeddingResult, len(resp.Data))
	for i, d := range resp.Data {
		tokens := perInput
		if i == 0 {
			tokens += resp.Usage.TotalTokens % len(resp.Data)
		}
		results[i] = &EmbeddingResult{
			Vector:      d.Embedding,
			TotalTokens: tokens,
		}
	}

	return results, nil
}

// NormalizeForEmbedding lowercases and trims text before embedding so that
// near-duplicate entries embed to near-identical vectors.
func NormalizeForEmbedding(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// GetModel returns the configured chat model name.
func (c *Client) GetModel() string {
	return c.chatModel
}
