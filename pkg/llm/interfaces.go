// Package llm provides OpenAI-compatible LLM client functionality.
package llm

import (
	"context"
)

// CompletionRequest describes one chat completion call.
type CompletionRequest struct {
	Prompt        string
	SystemMessage string
	Temperature   float64
	MaxTokens     int // 0 means provider default
}

// CompletionResult holds the generated text and token usage for cost accounting.
type CompletionResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// EmbeddingResult holds one embedding vector and its token cost.
type EmbeddingResult struct {
	Vector      []float32
	TotalTokens int
}

// LLMClient defines the interface for LLM operations.
// Combines both generative (chat completion) and embedding capabilities.
// Use this interface for dependency injection to enable mocking in tests.
type LLMClient interface {
	// Complete generates a chat completion response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)

	// CreateEmbedding generates an embedding vector for the input text.
	// Input is lowercased and trimmed before submission so near-duplicate
	// entries embed to near-identical vectors.
	CreateEmbedding(ctx context.Context, input string) (*EmbeddingResult, error)

	// CreateEmbeddings generates embeddings for multiple inputs.
	CreateEmbeddings(ctx context.Context, inputs []string) ([]*EmbeddingResult, error)

	// GetModel returns the configured chat model name.
	GetModel() string
}

// Ensure Client implements LLMClient at compile time.
var _ LLMClient = (*Client)(nil)
