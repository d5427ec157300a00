// Package ai talks to the embedding model and the language model that back
// the knowledge base. Both are reached over HTTP; Ollama and any
// OpenAI-compatible API are supported.
package ai

import (
	"context"
	"fmt"
	"time"

	"knowledge-base/internal/config"
)

// Embedder turns text into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM generates an answer for a fully rendered prompt.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

func NewEmbedder(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllamaClient(cfg.BaseURL, cfg.Model, 60*time.Second), nil
	case "openai":
		return NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.BatchSize), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

func NewLLM(cfg config.LLMConfig) (LLM, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Provider {
	case "ollama":
		return NewOllamaClient(cfg.BaseURL, cfg.Model, timeout), nil
	case "openai":
		return NewOpenAICompatibleClient(cfg.BaseURL, cfg.APIKey, cfg.Model, timeout), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
