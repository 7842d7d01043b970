package store

import (
	"context"
	"encoding/json"
)

// PendingEmbedding is an article that has no vector yet or whose content
// changed since it was last embedded.
type PendingEmbedding struct {
	ArticleID   string
	Title       string
	Summary     string
	Content     string
	SourceID    string
	Topics      []string
	Language    string
	ContentHash string
}

// ArticleVectorHit is a nearest-neighbour match from the pgvector index.
type ArticleVectorHit struct {
	ArticleID string
	Distance  float64
	Metadata  map[string]interface{}
}

// ArticlesNeedingEmbedding lists articles with no embedding record or a stale
// content hash, oldest first, up to the batch size.
func (s *Store) ArticlesNeedingEmbedding(ctx context.Context, batchSize int) ([]PendingEmbedding, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT a.id, a.title, a.summary, COALESCE(a.content, ''), a.source_id, a.topics, a.language, COALESCE(a.content_hash, '')
FROM news_articles a
LEFT JOIN article_embeddings e ON e.article_id = a.id
WHERE e.article_id IS NULL OR e.content_hash IS DISTINCT FROM a.content_hash
ORDER BY a.created_at
LIMIT $1
`, batchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PendingEmbedding
	for rows.Next() {
		var (
			p         PendingEmbedding
			topicsRaw []byte
		)
		if err := rows.Scan(&p.ArticleID, &p.Title, &p.Summary, &p.Content, &p.SourceID, &topicsRaw, &p.Language, &p.ContentHash); err != nil {
			return nil, err
		}
		if len(topicsRaw) > 0 {
			_ = json.Unmarshal(topicsRaw, &p.Topics)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkArticleEmbedded records which model embedded the article and at what content hash.
func (s *Store) MarkArticleEmbedded(ctx context.Context, articleID, contentHash, modelName string, dimensions int) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO article_embeddings (article_id, content_hash, model_name, dimensions, created_at)
VALUES ($1,$2,$3,$4,NOW())
ON CONFLICT (article_id) DO UPDATE SET
  content_hash = EXCLUDED.content_hash,
  model_name = EXCLUDED.model_name,
  dimensions = EXCLUDED.dimensions,
  updated_at = NOW()
`, articleID, contentHash, modelName, dimensions)
	return err
}

// UpsertArticleVector stores the embedding for an article in the pgvector index.
func (s *Store) UpsertArticleVector(ctx context.Context, articleID string, vector []float32, metadata map[string]interface{}) error {
	vecLiteral, err := encodeVectorLiteral(vector)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO article_vectors (article_id, embedding, metadata, created_at)
VALUES ($1,$2::vector,$3,NOW())
ON CONFLICT (article_id) DO UPDATE SET
  embedding = EXCLUDED.embedding,
  metadata = EXCLUDED.metadata,
  created_at = NOW()
`, articleID, vecLiteral, meta)
	return err
}

// SearchArticleVectors returns the closest article vectors for the query vector.
func (s *Store) SearchArticleVectors(ctx context.Context, vector []float32, topK int) ([]ArticleVectorHit, error) {
	if topK <= 0 {
		topK = 50
	}
	vecLiteral, err := encodeVectorLiteral(vector)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT article_id, metadata, embedding <=> $1::vector AS distance
FROM article_vectors
ORDER BY embedding <=> $1::vector
LIMIT $2
`, vecLiteral, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []ArticleVectorHit
	for rows.Next() {
		var (
			hit       ArticleVectorHit
			metaBytes []byte
		)
		if err := rows.Scan(&hit.ArticleID, &metaBytes, &hit.Distance); err != nil {
			return nil, err
		}
		if len(metaBytes) > 0 {
			_ = json.Unmarshal(metaBytes, &hit.Metadata)
		}
		results = append(results, hit)
	}
	return results, rows.Err()
}

// CountArticleVectors reports the size of the pgvector index.
func (s *Store) CountArticleVectors(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM article_vectors`).Scan(&n)
	return n, err
}

// DeleteArticleVectors removes vectors for the given article ids.
func (s *Store) DeleteArticleVectors(ctx context.Context, articleIDs []string) error {
	if len(articleIDs) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `DELETE FROM article_vectors WHERE article_id = $1`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, id := range articleIDs {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
