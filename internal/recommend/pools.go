package recommend

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gymunity/feed/internal/store"
)

// poolOrder fixes merge priority: the first pool to produce an item wins its
// tag, regardless of which pool finished first.
var poolOrder = []string{PoolVector, PoolTopic, PoolTrending, PoolNewest}

// gatherCandidates runs the four pools concurrently and merges their results
// in fixed priority order. A pool failure contributes nothing; it never
// aborts the request.
func (e *Engine) gatherCandidates(ctx context.Context, profile *UserProfile) []Candidate {
	results := make(map[string][]Candidate, len(poolOrder))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, pool := range poolOrder {
		pool := pool
		g.Go(func() error {
			candidates := e.runPool(gctx, pool, profile)
			mu.Lock()
			results[pool] = candidates
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	seen := map[string]struct{}{}
	var merged []Candidate
	for _, pool := range poolOrder {
		for _, c := range results[pool] {
			if _, ok := seen[c.Article.ID]; ok {
				continue
			}
			seen[c.Article.ID] = struct{}{}
			merged = append(merged, c)
		}
	}
	return merged
}

func (e *Engine) runPool(ctx context.Context, pool string, profile *UserProfile) []Candidate {
	var (
		candidates []Candidate
		err        error
	)
	switch pool {
	case PoolVector:
		candidates, err = e.vectorCandidates(ctx, profile)
	case PoolTopic:
		candidates, err = e.topicCandidates(ctx, profile)
	case PoolTrending:
		candidates, err = e.trendingCandidates(ctx)
	case PoolNewest:
		candidates, err = e.newestCandidates(ctx)
	}
	if err != nil {
		e.logger.Printf("%s pool failed, continuing without it: %v", pool, err)
		e.metrics.poolFailures.WithLabelValues(pool).Inc()
		return nil
	}
	e.metrics.poolCandidates.WithLabelValues(pool).Add(float64(len(candidates)))
	return candidates
}

// vectorCandidates embeds a profile-derived query and searches the vector
// index. The whole call is bounded by the vector timeout; any error or an
// empty index yields no candidates.
func (e *Engine) vectorCandidates(ctx context.Context, profile *UserProfile) ([]Candidate, error) {
	if e.index == nil || e.embedder == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, e.vectorTimeout)
	defer cancel()

	n, err := e.index.Count(ctx)
	if err != nil || n == 0 {
		return nil, err
	}

	queryText := strings.Join(profile.Topics, " ")
	if queryText == "" {
		queryText = fallbackQueryText
	}
	if top := topAffinityTopics(profile.TopicAffinities, 5); len(top) > 0 {
		queryText = strings.Join(top, " ") + " " + queryText
	}

	queryVector, err := e.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, err
	}
	if len(queryVector) == 0 {
		return nil, nil
	}

	hits, err := e.index.Search(ctx, queryVector, e.cfg.VectorLimit)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	articles, err := e.ds.ArticlesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]int, len(articles))
	for i, a := range articles {
		byID[a.ID] = i
	}

	candidates := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		i, ok := byID[h.ID]
		if !ok {
			continue
		}
		candidates = append(candidates, Candidate{Article: articles[i], Pool: PoolVector, Similarity: h.Score})
	}
	return candidates, nil
}

// topicCandidates fetches fresh articles matching the user's top topics:
// explicit topics take priority, otherwise the strongest affinity topics.
func (e *Engine) topicCandidates(ctx context.Context, profile *UserProfile) ([]Candidate, error) {
	topics := profile.Topics
	if len(topics) > 3 {
		topics = topics[:3]
	}
	if len(topics) == 0 {
		topics = topAffinityTopics(profile.TopicAffinities, 3)
	}
	if len(topics) == 0 {
		return nil, nil
	}
	since := e.now().Add(-time.Duration(e.cfg.FreshnessWindowDays) * 24 * time.Hour)
	articles, err := e.ds.ArticlesByTopics(ctx, topics, since, e.cfg.TopicLimit)
	if err != nil {
		return nil, err
	}
	return tagged(articles, PoolTopic), nil
}

func (e *Engine) trendingCandidates(ctx context.Context) ([]Candidate, error) {
	articles, err := e.ds.TrendingArticles(ctx, e.now().Add(-trendingWindow), e.cfg.TrendingLimit)
	if err != nil {
		return nil, err
	}
	return tagged(articles, PoolTrending), nil
}

func (e *Engine) newestCandidates(ctx context.Context) ([]Candidate, error) {
	articles, err := e.ds.NewestArticles(ctx, e.cfg.NewestLimit)
	if err != nil {
		return nil, err
	}
	return tagged(articles, PoolNewest), nil
}

func tagged(articles []store.Article, pool string) []Candidate {
	out := make([]Candidate, 0, len(articles))
	for _, a := range articles {
		out = append(out, Candidate{Article: a, Pool: pool})
	}
	return out
}
