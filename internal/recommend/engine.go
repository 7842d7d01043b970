package recommend

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/gymunity/feed/config"
	"github.com/gymunity/feed/internal/store"
	"github.com/gymunity/feed/internal/vector"
)

const defaultPageSize = 12

// Engine runs the hybrid feed pipeline. All collaborators are injected;
// nothing is process-global, so tests can swap storage, the vector index,
// the embedder and the clock independently.
type Engine struct {
	ds            DataSource
	index         vector.Index
	embedder      QueryEmbedder
	cfg           config.RecommendConfig
	language      string
	vectorTimeout time.Duration
	logger        *log.Logger
	metrics       *engineMetrics
	now           func() time.Time
}

func NewEngine(ds DataSource, index vector.Index, embedder QueryEmbedder, cfg config.RecommendConfig, language string, vectorTimeout time.Duration, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(log.Writer(), "[FEED] ", log.LstdFlags)
	}
	if vectorTimeout <= 0 {
		vectorTimeout = 5 * time.Second
	}
	return &Engine{
		ds:            ds,
		index:         index,
		embedder:      embedder,
		cfg:           cfg,
		language:      language,
		vectorTimeout: vectorTimeout,
		logger:        logger,
		metrics:       defaultMetrics,
		now:           time.Now,
	}
}

// WithClock replaces the engine's time source. Intended for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// GetFeed runs the full pipeline: profile, pools, filter, score, diversify,
// paginate, log impressions. Pool failures degrade the feed; storage
// failures on the profile or the impression write fail the request.
func (e *Engine) GetFeed(ctx context.Context, userID string, page, pageSize int, explain bool) (*FeedPage, error) {
	started := e.now()
	requestID := uuid.NewString()
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	profile, err := e.BuildProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("build profile: %w", err)
	}

	candidates := e.gatherCandidates(ctx, profile)
	candidates = e.filterCandidates(candidates, profile)
	scored := e.scoreCandidates(candidates, profile)

	// Over-fetch three pages worth so later pages stay diverse too.
	diversified := e.diversify(scored, pageSize*3)
	total := len(diversified)

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	pageItems := diversified[start:end]

	saved := map[string]bool{}
	if len(pageItems) > 0 {
		impressions := make([]store.Impression, 0, len(pageItems))
		ids := make([]string, 0, len(pageItems))
		for pos, c := range pageItems {
			impressions = append(impressions, store.Impression{
				UserID:    userID,
				ArticleID: c.Article.ID,
				Position:  start + pos,
				FeedType:  "feed",
			})
			ids = append(ids, c.Article.ID)
		}
		if err := e.ds.InsertImpressions(ctx, impressions); err != nil {
			return nil, fmt.Errorf("log impressions: %w", err)
		}
		if saved, err = e.ds.SavedArticleIDs(ctx, userID, ids); err != nil {
			return nil, fmt.Errorf("load saved flags: %w", err)
		}
	}

	items := make([]FeedItem, 0, len(pageItems))
	for _, c := range pageItems {
		item := FeedItem{
			Article: c.Article,
			Pool:    c.Pool,
			Score:   c.Score,
			Saved:   saved[c.Article.ID],
		}
		if explain {
			item.Explanation = e.explain(c, profile)
		}
		items = append(items, item)
	}

	e.observe(started, requestID, userID, len(candidates), total)
	return &FeedPage{Items: items, Page: page, PageSize: pageSize, Total: total}, nil
}

func (e *Engine) observe(started time.Time, requestID, userID string, filtered, total int) {
	elapsed := e.now().Sub(started)
	e.metrics.feedRequests.Inc()
	e.metrics.feedDuration.Observe(elapsed.Seconds())
	e.logger.Printf("request=%s user=%s candidates=%d total=%d elapsed=%s", requestID, userID, filtered, total, elapsed)
}
