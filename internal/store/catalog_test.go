package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

var articleRowColumns = []string{
	"id", "source_id", "name", "enabled", "title", "link", "summary", "image_url",
	"language", "topics", "keywords", "quality_score", "popularity_score",
	"content_hash", "published_at", "created_at",
}

func TestArticlesByTopics(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	now := time.Now()
	since := now.Add(-14 * 24 * time.Hour)

	query := regexp.QuoteMeta(`
SELECT ` + articleColumns + `
FROM news_articles a
JOIN news_sources s ON s.id = a.source_id
WHERE s.enabled AND a.published_at >= $1 AND a.topics ?| $2
ORDER BY a.published_at DESC
LIMIT $3
`)
	rows := sqlmock.NewRows(articleRowColumns).
		AddRow("a1", "s1", "Gym Source", true, "Leg day basics", "https://example.com/a1", "squats",
			nil, "en", []byte(`["strength"]`), []byte(`["legs"]`), 0.7, 12.0, "hash", now, now)
	mock.ExpectQuery(query).
		WithArgs(since, pq.Array([]string{"strength"}), 30).
		WillReturnRows(rows)

	got, err := st.ArticlesByTopics(context.Background(), []string{"strength"}, since, 30)
	if err != nil {
		t.Fatalf("ArticlesByTopics: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d articles", len(got))
	}
	a := got[0]
	if a.ID != "a1" || a.SourceName != "Gym Source" || !a.SourceEnabled {
		t.Errorf("bad scan: %+v", a)
	}
	if len(a.Topics) != 1 || a.Topics[0] != "strength" {
		t.Errorf("topics = %v", a.Topics)
	}
	if a.QualityScore != 0.7 || a.PopularityScore != 12 {
		t.Errorf("scores = %v / %v", a.QualityScore, a.PopularityScore)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestScanArticleDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	now := time.Now()

	// Null quality falls back to 0.5, null popularity to 0, malformed topics
	// degrade to empty.
	rows := sqlmock.NewRows(articleRowColumns).
		AddRow("a1", "s1", "Src", true, "Title", "https://x", "", nil, "en",
			[]byte(`{bad json`), nil, nil, nil, nil, nil, now)
	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	got, err := st.ArticlesByIDs(context.Background(), []string{"a1"})
	if err != nil {
		t.Fatalf("ArticlesByIDs: %v", err)
	}
	a := got[0]
	if a.QualityScore != 0.5 {
		t.Errorf("quality default = %v, want 0.5", a.QualityScore)
	}
	if a.PopularityScore != 0 {
		t.Errorf("popularity default = %v", a.PopularityScore)
	}
	if len(a.Topics) != 0 {
		t.Errorf("malformed topics should scan empty, got %v", a.Topics)
	}
	if a.PublishedAt != nil {
		t.Errorf("null published_at should stay nil")
	}
	if a.PrimaryTopic() != "general" {
		t.Errorf("PrimaryTopic = %q", a.PrimaryTopic())
	}
}

func TestArticlesByIDsEmpty(t *testing.T) {
	st := &Store{}
	got, err := st.ArticlesByIDs(context.Background(), nil)
	if err != nil || got != nil {
		t.Fatalf("empty ids should short-circuit, got %v, %v", got, err)
	}
}

func TestAdjustPopularityFloorsAtZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	query := regexp.QuoteMeta(`
UPDATE news_articles SET popularity_score = GREATEST(0, popularity_score + $2) WHERE id = $1
`)
	mock.ExpectExec(query).WithArgs("a1", -5.0).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := st.AdjustPopularity(context.Background(), "a1", -5); err != nil {
		t.Fatalf("AdjustPopularity: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
