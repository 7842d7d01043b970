package recommend

import (
	"fmt"
	"time"
)

// explain builds the why-this reasons for a surfaced item. At most one
// topic reason is emitted; explicit topic matches beat affinity matches.
// The remaining reasons are independent of each other.
func (e *Engine) explain(c ScoredCandidate, profile *UserProfile) *Explanation {
	a := c.Article
	var reasons []string

	for _, topic := range a.Topics {
		if containsString(profile.Topics, topic) {
			reasons = append(reasons, fmt.Sprintf("matched_topic:%s", topic))
			break
		}
		if aff, ok := profile.TopicAffinities[topic]; ok && aff > 0.5 {
			reasons = append(reasons, fmt.Sprintf("affinity_topic:%s", topic))
			break
		}
	}

	if c.Similarity > 0.5 {
		reasons = append(reasons, "high_similarity")
	}
	if a.PublishedAt != nil && e.now().Sub(*a.PublishedAt) < 2*24*time.Hour {
		reasons = append(reasons, "freshness_boost")
	}
	if a.QualityScore >= 0.8 {
		reasons = append(reasons, "high_quality")
	}
	if a.PopularityScore > 10 {
		reasons = append(reasons, "trending")
	}
	if c.Pool == PoolNewest {
		reasons = append(reasons, "newest")
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "diverse_pick")
	}

	return &Explanation{
		Reasons: reasons,
		Score:   round3(c.Score),
		Pool:    c.Pool,
	}
}
