package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Article is a catalog row joined with its source. The catalog is owned by
// the ingestion pipeline; this service only reads it (popularity bumps from
// the events endpoint aside).
type Article struct {
	ID              string
	SourceID        string
	SourceName      string
	SourceEnabled   bool
	Title           string
	Link            string
	Summary         string
	ImageURL        string
	Language        string
	Topics          []string
	Keywords        []string
	QualityScore    float64
	PopularityScore float64
	ContentHash     string
	PublishedAt     *time.Time
	CreatedAt       time.Time
}

// PrimaryTopic returns the first topic, or "general" when the list is empty.
func (a Article) PrimaryTopic() string {
	if len(a.Topics) == 0 {
		return "general"
	}
	return a.Topics[0]
}

const articleColumns = `
a.id, a.source_id, s.name, s.enabled, a.title, a.link, a.summary, a.image_url,
a.language, a.topics, a.keywords, a.quality_score, a.popularity_score,
a.content_hash, a.published_at, a.created_at`

func scanArticle(rows interface{ Scan(...interface{}) error }) (Article, error) {
	var (
		a           Article
		imageURL    sql.NullString
		topicsRaw   []byte
		keywordsRaw []byte
		quality     sql.NullFloat64
		popularity  sql.NullFloat64
		contentHash sql.NullString
		publishedAt sql.NullTime
	)
	if err := rows.Scan(&a.ID, &a.SourceID, &a.SourceName, &a.SourceEnabled, &a.Title, &a.Link,
		&a.Summary, &imageURL, &a.Language, &topicsRaw, &keywordsRaw, &quality, &popularity,
		&contentHash, &publishedAt, &a.CreatedAt); err != nil {
		return Article{}, err
	}
	a.ImageURL = imageURL.String
	a.ContentHash = contentHash.String
	// Malformed topic/keyword payloads degrade to empty lists, not errors.
	if len(topicsRaw) > 0 {
		_ = json.Unmarshal(topicsRaw, &a.Topics)
	}
	if len(keywordsRaw) > 0 {
		_ = json.Unmarshal(keywordsRaw, &a.Keywords)
	}
	if quality.Valid {
		a.QualityScore = quality.Float64
	} else {
		a.QualityScore = 0.5
	}
	if popularity.Valid {
		a.PopularityScore = popularity.Float64
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		a.PublishedAt = &t
	}
	return a, nil
}

func (s *Store) collectArticles(rows *sql.Rows) ([]Article, error) {
	defer rows.Close()
	var out []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ArticlesByIDs resolves catalog rows for the given ids, in no particular order.
func (s *Store) ArticlesByIDs(ctx context.Context, ids []string) ([]Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+articleColumns+`
FROM news_articles a
JOIN news_sources s ON s.id = a.source_id
WHERE a.id = ANY($1)
`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	return s.collectArticles(rows)
}

// ArticleByID fetches a single catalog row.
func (s *Store) ArticleByID(ctx context.Context, id string) (Article, bool, error) {
	row := s.DB.QueryRowContext(ctx, `
SELECT `+articleColumns+`
FROM news_articles a
JOIN news_sources s ON s.id = a.source_id
WHERE a.id = $1
`, id)
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return Article{}, false, nil
	}
	if err != nil {
		return Article{}, false, err
	}
	return a, true, nil
}

// ArticlesByTopics returns enabled-source articles published since the cutoff
// whose topic set intersects the given topics, newest first.
func (s *Store) ArticlesByTopics(ctx context.Context, topics []string, since time.Time, limit int) ([]Article, error) {
	if len(topics) == 0 {
		return nil, nil
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+articleColumns+`
FROM news_articles a
JOIN news_sources s ON s.id = a.source_id
WHERE s.enabled AND a.published_at >= $1 AND a.topics ?| $2
ORDER BY a.published_at DESC
LIMIT $3
`, since, pq.Array(topics), limit)
	if err != nil {
		return nil, err
	}
	return s.collectArticles(rows)
}

// TrendingArticles returns enabled-source articles published since the cutoff,
// highest popularity first.
func (s *Store) TrendingArticles(ctx context.Context, since time.Time, limit int) ([]Article, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+articleColumns+`
FROM news_articles a
JOIN news_sources s ON s.id = a.source_id
WHERE s.enabled AND a.published_at >= $1
ORDER BY a.popularity_score DESC
LIMIT $2
`, since, limit)
	if err != nil {
		return nil, err
	}
	return s.collectArticles(rows)
}

// NewestArticles returns the most recently published enabled-source articles.
func (s *Store) NewestArticles(ctx context.Context, limit int) ([]Article, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+articleColumns+`
FROM news_articles a
JOIN news_sources s ON s.id = a.source_id
WHERE s.enabled
ORDER BY a.published_at DESC NULLS LAST
LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	return s.collectArticles(rows)
}

// AdjustPopularity bumps an article's popularity score, floored at zero.
func (s *Store) AdjustPopularity(ctx context.Context, articleID string, delta float64) error {
	_, err := s.DB.ExecContext(ctx, `
UPDATE news_articles SET popularity_score = GREATEST(0, popularity_score + $2) WHERE id = $1
`, articleID, delta)
	return err
}
