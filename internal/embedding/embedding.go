// Package embedding turns article and query text into vectors and keeps the
// vector index in sync with the catalog.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gymunity/feed/provider"
)

// maxContentChars bounds how much article body text goes into the embedding.
const maxContentChars = 2000

type Embedder struct {
	provider provider.Provider
	model    string
}

func NewEmbedder(p provider.Provider, model string) *Embedder {
	return &Embedder{provider: p, model: model}
}

// Model reports the embedding model name for bookkeeping rows.
func (e *Embedder) Model() string { return e.model }

// EmbedQuery embeds a single query string. A nil provider yields no vector,
// which callers treat as "vector search unavailable".
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e == nil || e.provider == nil {
		return nil, nil
	}
	vecs, err := e.provider.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	return vecs[0], nil
}

// EmbedMany embeds a batch of texts.
func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if e == nil || e.provider == nil {
		return nil, nil
	}
	return e.provider.CreateEmbedding(ctx, texts)
}

// BuildEmbedText combines article fields into the text that gets embedded.
func BuildEmbedText(title, summary, content string) string {
	parts := make([]string, 0, 3)
	if title != "" {
		parts = append(parts, title)
	}
	if summary != "" {
		parts = append(parts, summary)
	}
	if content != "" {
		if len(content) > maxContentChars {
			content = content[:maxContentChars]
		}
		parts = append(parts, content)
	}
	return strings.Join(parts, ". ")
}

// ContentHash fingerprints the embed text so unchanged articles are skipped.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
