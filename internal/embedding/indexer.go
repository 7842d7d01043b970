package embedding

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gymunity/feed/internal/store"
	"github.com/gymunity/feed/internal/vector"
)

// Indexer embeds articles that are new or whose content changed and upserts
// their vectors into the index. It is driven by the scheduler.
type Indexer struct {
	Store    *store.Store
	Index    vector.Index
	Embedder *Embedder
	Logger   *log.Logger
}

func NewIndexer(st *store.Store, idx vector.Index, emb *Embedder, logger *log.Logger) *Indexer {
	if logger == nil {
		logger = log.New(log.Writer(), "[EMBED] ", log.LstdFlags)
	}
	return &Indexer{Store: st, Index: idx, Embedder: emb, Logger: logger}
}

// Run embeds up to batchSize pending articles. Returns how many were embedded.
func (ix *Indexer) Run(ctx context.Context, batchSize int) (int, error) {
	if ix.Embedder == nil {
		return 0, nil
	}
	pending, err := ix.Store.ArticlesNeedingEmbedding(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending embeddings: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	texts := make([]string, len(pending))
	for i, p := range pending {
		texts[i] = BuildEmbedText(p.Title, p.Summary, p.Content)
	}
	vecs, err := ix.Embedder.EmbedMany(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed batch: %w", err)
	}
	if len(vecs) != len(pending) {
		return 0, fmt.Errorf("embedding count mismatch: want %d got %d", len(pending), len(vecs))
	}

	ids := make([]string, len(pending))
	metadata := make([]map[string]interface{}, len(pending))
	for i, p := range pending {
		ids[i] = p.ArticleID
		topics := "general"
		if len(p.Topics) > 0 {
			topics = strings.Join(p.Topics, ",")
		}
		metadata[i] = map[string]interface{}{
			"article_id": p.ArticleID,
			"source_id":  p.SourceID,
			"topics":     topics,
			"language":   p.Language,
		}
	}
	if err := ix.Index.Upsert(ctx, ids, vecs, metadata); err != nil {
		return 0, fmt.Errorf("upsert vectors: %w", err)
	}

	dims := 0
	if len(vecs) > 0 {
		dims = len(vecs[0])
	}
	for i, p := range pending {
		hash := ContentHash(texts[i])
		if err := ix.Store.MarkArticleEmbedded(ctx, p.ArticleID, hash, ix.Embedder.Model(), dims); err != nil {
			return i, fmt.Errorf("mark embedded %s: %w", p.ArticleID, err)
		}
	}
	ix.Logger.Printf("embedded %d articles", len(pending))
	return len(pending), nil
}
