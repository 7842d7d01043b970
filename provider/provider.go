package provider

import (
	"context"
	"errors"
	"os"
	"time"

	openai_provider "github.com/gymunity/feed/provider/openai"
)

// Client represents different embedding providers
type Client string

const (
	OpenAI Client = "openai"
)

// Provider is the interface the feed service depends on for text embeddings.
// The vector pool embeds user queries with it; the embedding job embeds
// article text. An unavailable provider degrades to no vector candidates.
type Provider interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// NewProvider creates a new embedding client based on the provided
// configuration. An empty apiKey falls back to OPENAI_API_KEY.
func NewProvider(client Client, apiKey, model string, timeout time.Duration) (Provider, error) {
	switch client {
	case OpenAI:
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("embedding api key not configured and OPENAI_API_KEY not set")
		}
		if model == "" {
			model = "text-embedding-3-small"
		}
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		return openai_provider.NewOpenAIClient(apiKey, model, timeout), nil
	default:
		return nil, errors.New("unsupported embedding provider")
	}
}
