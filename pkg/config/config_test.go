package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		AI: AIConfig{
			Endpoint:       "https://api.openai.com/v1",
			ChatModel:      "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
		},
		SmallTalk: SmallTalkConfig{MinLLMConfidence: 0.5},
		Rag:       RagConfig{MaxDistance: 0.5, StrictMaxDistance: 0.35},
		Training:  TrainingConfig{BatchSize: 20},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing endpoint",
			mutate:  func(c *Config) { c.AI.Endpoint = "" },
			wantErr: "ai.endpoint",
		},
		{
			name:    "missing chat model",
			mutate:  func(c *Config) { c.AI.ChatModel = "" },
			wantErr: "ai.chat_model",
		},
		{
			name:    "missing embedding model",
			mutate:  func(c *Config) { c.AI.EmbeddingModel = "" },
			wantErr: "ai.embedding_model",
		},
		{
			name:    "negative confidence",
			mutate:  func(c *Config) { c.SmallTalk.MinLLMConfidence = -0.1 },
			wantErr: "min_llm_confidence",
		},
		{
			name: "confidence of one is reserved",
			// 1.0 is the deterministic emoji path's confidence; the model
			// floor must stay strictly below it.
			mutate:  func(c *Config) { c.SmallTalk.MinLLMConfidence = 1.0 },
			wantErr: "min_llm_confidence",
		},
		{
			name:    "zero distance threshold",
			mutate:  func(c *Config) { c.Rag.MaxDistance = 0 },
			wantErr: "distance thresholds",
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.Training.BatchSize = 0 },
			wantErr: "batch_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConnectionString(t *testing.T) {
	db := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "converso",
		Password: "secret",
		Database: "converso_engine",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=converso password=secret dbname=converso_engine sslmode=disable",
		db.ConnectionString())
}
