package vector

import (
	"context"

	"github.com/gymunity/feed/internal/store"
)

// PGVectorIndex persists article vectors in Postgres (pgvector extension).
// It shares the service's *sql.DB, so no extra infrastructure is needed.
type PGVectorIndex struct {
	Store *store.Store
}

func (p *PGVectorIndex) Upsert(ctx context.Context, ids []string, vectors [][]float32, metadata []map[string]interface{}) error {
	if err := validateBatch(ids, vectors, metadata); err != nil {
		return err
	}
	for i, id := range ids {
		var meta map[string]interface{}
		if metadata != nil {
			meta = metadata[i]
		}
		if err := p.Store.UpsertArticleVector(ctx, id, vectors[i], meta); err != nil {
			return err
		}
	}
	return nil
}

func (p *PGVectorIndex) Search(ctx context.Context, queryVector []float32, topK int) ([]Hit, error) {
	hits, err := p.Store.SearchArticleVectors(ctx, queryVector, topK)
	if err != nil {
		return nil, err
	}
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		// pgvector reports cosine distance; callers expect similarity.
		out = append(out, Hit{ID: h.ArticleID, Score: 1 - h.Distance, Metadata: h.Metadata})
	}
	return out, nil
}

func (p *PGVectorIndex) Delete(ctx context.Context, ids []string) error {
	return p.Store.DeleteArticleVectors(ctx, ids)
}

func (p *PGVectorIndex) Count(ctx context.Context) (int, error) {
	return p.Store.CountArticleVectors(ctx)
}

var _ Index = (*PGVectorIndex)(nil)
