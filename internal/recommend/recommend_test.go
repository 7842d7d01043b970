package recommend

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/gymunity/feed/config"
	"github.com/gymunity/feed/internal/store"
	"github.com/gymunity/feed/internal/vector"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testConfig() config.RecommendConfig {
	return config.RecommendConfig{
		WeightSimilarity:    0.30,
		WeightRecency:       0.25,
		WeightPreference:    0.20,
		WeightPopularity:    0.15,
		WeightQuality:       0.10,
		PenaltySeen:         0.50,
		PenaltyFatigue:      0.20,
		FreshnessWindowDays: 14,
		MaxPerSource:        2,
		MaxPerTopic:         3,
		VectorLimit:         50,
		TopicLimit:          30,
		TrendingLimit:       20,
		NewestLimit:         20,
	}
}

// fakeDataSource is an in-memory DataSource for engine tests.
type fakeDataSource struct {
	pref        store.Preference
	prefFound   bool
	hidden      []string
	recent      []string
	events      []store.EventRow
	byTopic     []store.Article
	trending    []store.Article
	newest      []store.Article
	byID        map[string]store.Article
	saved       map[string]bool
	impressions []store.Impression

	prefErr  error
	topicErr error
}

func (f *fakeDataSource) GetPreference(ctx context.Context, userID string) (store.Preference, bool, error) {
	return f.pref, f.prefFound, f.prefErr
}

func (f *fakeDataSource) HiddenArticleIDs(ctx context.Context, userID string) ([]string, error) {
	return f.hidden, nil
}

func (f *fakeDataSource) RecentImpressionArticleIDs(ctx context.Context, userID string, since time.Time) ([]string, error) {
	return f.recent, nil
}

func (f *fakeDataSource) EventsSince(ctx context.Context, userID string, since time.Time) ([]store.EventRow, error) {
	return f.events, nil
}

func (f *fakeDataSource) ArticlesByIDs(ctx context.Context, ids []string) ([]store.Article, error) {
	var out []store.Article
	for _, id := range ids {
		if a, ok := f.byID[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeDataSource) ArticlesByTopics(ctx context.Context, topics []string, since time.Time, limit int) ([]store.Article, error) {
	return f.byTopic, f.topicErr
}

func (f *fakeDataSource) TrendingArticles(ctx context.Context, since time.Time, limit int) ([]store.Article, error) {
	return f.trending, nil
}

func (f *fakeDataSource) NewestArticles(ctx context.Context, limit int) ([]store.Article, error) {
	return f.newest, nil
}

func (f *fakeDataSource) SavedArticleIDs(ctx context.Context, userID string, articleIDs []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range articleIDs {
		if f.saved[id] {
			out[id] = true
		}
	}
	return out, nil
}

func (f *fakeDataSource) InsertImpressions(ctx context.Context, impressions []store.Impression) error {
	f.impressions = append(f.impressions, impressions...)
	return nil
}

// failingIndex always errors to exercise the vector pool's soft failure path.
type failingIndex struct{}

func (failingIndex) Upsert(ctx context.Context, ids []string, vectors [][]float32, metadata []map[string]interface{}) error {
	return errors.New("index down")
}

func (failingIndex) Search(ctx context.Context, queryVector []float32, topK int) ([]vector.Hit, error) {
	return nil, errors.New("index down")
}

func (failingIndex) Delete(ctx context.Context, ids []string) error { return errors.New("index down") }

func (failingIndex) Count(ctx context.Context) (int, error) { return 1, nil }

type staticEmbedder struct {
	vec []float32
}

func (s staticEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return s.vec, nil
}

func newTestEngine(ds DataSource, idx vector.Index, emb QueryEmbedder) *Engine {
	logger := log.New(io.Discard, "", 0)
	e := NewEngine(ds, idx, emb, testConfig(), "en", time.Second, logger)
	return e.WithClock(func() time.Time { return testNow })
}

func hoursAgo(h int) *time.Time {
	t := testNow.Add(-time.Duration(h) * time.Hour)
	return &t
}

func article(id, sourceID string, topics []string, publishedHoursAgo int) store.Article {
	return store.Article{
		ID:            id,
		SourceID:      sourceID,
		SourceEnabled: true,
		Title:         "article " + id,
		Link:          "https://example.com/" + id,
		Language:      "en",
		Topics:        topics,
		QualityScore:  0.5,
		PublishedAt:   hoursAgo(publishedHoursAgo),
	}
}
