// Package recommend implements the hybrid feed engine: it fuses four
// retrieval pools, infers user interest from implicit and explicit signals,
// scores and diversifies candidates, and explains why each item surfaced.
package recommend

import (
	"context"
	"time"

	"github.com/gymunity/feed/internal/store"
)

// Pool tags identify which retrieval strategy produced a candidate. Merge
// priority follows this order; the first pool to produce an item wins.
const (
	PoolVector   = "vector"
	PoolTopic    = "topic"
	PoolTrending = "trending"
	PoolNewest   = "newest"
)

// Retrieval windows and limits shared across the pipeline.
const (
	eventLookback     = 30 * 24 * time.Hour
	impressionWindow  = 24 * time.Hour
	trendingWindow    = 3 * 24 * time.Hour
	fallbackQueryText = "fitness training workout"
)

// UserProfile is the per-request interest profile. It is rebuilt on every
// feed request and never cached across requests.
type UserProfile struct {
	UserID          string
	Topics          []string
	Level           string
	Equipment       string
	BlockedKeywords []string

	// Affinities are normalized to [0,1]; empty maps mean no qualifying events.
	TopicAffinities  map[string]float64
	SourceAffinities map[string]float64

	InteractedIDs    map[string]struct{} // 30-day interaction set
	HiddenIDs        map[string]struct{} // all-time hidden set
	RecentlyShownIDs map[string]struct{} // impressions in the last 24h
}

// Candidate pairs a catalog item with the pool that retrieved it. Similarity
// is zero unless the vector pool produced it.
type Candidate struct {
	Article    store.Article
	Pool       string
	Similarity float64
}

// ScoredCandidate carries the final rank score; it can be negative after penalties.
type ScoredCandidate struct {
	Candidate
	Score float64
}

// Explanation tells the user why an item was surfaced.
type Explanation struct {
	Reasons []string `json:"reasons"`
	Score   float64  `json:"score"`
	Pool    string   `json:"pool"`
}

// FeedItem is one returned feed entry.
type FeedItem struct {
	Article     store.Article
	Pool        string
	Score       float64
	Saved       bool
	Explanation *Explanation
}

// FeedPage is the engine's caller-facing result.
type FeedPage struct {
	Items    []FeedItem
	Page     int
	PageSize int
	Total    int
}

// DataSource is the storage surface the engine depends on. *store.Store
// implements it; tests substitute an in-memory fake.
type DataSource interface {
	GetPreference(ctx context.Context, userID string) (store.Preference, bool, error)
	HiddenArticleIDs(ctx context.Context, userID string) ([]string, error)
	RecentImpressionArticleIDs(ctx context.Context, userID string, since time.Time) ([]string, error)
	EventsSince(ctx context.Context, userID string, since time.Time) ([]store.EventRow, error)
	ArticlesByIDs(ctx context.Context, ids []string) ([]store.Article, error)
	ArticlesByTopics(ctx context.Context, topics []string, since time.Time, limit int) ([]store.Article, error)
	TrendingArticles(ctx context.Context, since time.Time, limit int) ([]store.Article, error)
	NewestArticles(ctx context.Context, limit int) ([]store.Article, error)
	SavedArticleIDs(ctx context.Context, userID string, articleIDs []string) (map[string]bool, error)
	InsertImpressions(ctx context.Context, impressions []store.Impression) error
}

// QueryEmbedder embeds the profile-derived query for the vector pool.
// A nil vector means embeddings are unavailable; the pool returns empty.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
