package recommend

import (
	"math"
	"sort"
	"time"
)

// scoreCandidates computes the rank score for every candidate and returns
// them sorted by score descending. The sort is stable, so ties keep the
// merge-priority order.
//
// Source fatigue accumulates while scoring: a candidate pays the fatigue
// penalty when three or more earlier candidates in this pass share its
// source. The counter increments after each candidate is scored.
func (e *Engine) scoreCandidates(candidates []Candidate, profile *UserProfile) []ScoredCandidate {
	now := e.now()
	sourceCounts := map[string]int{}
	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		score := e.scoreCandidate(c, profile, sourceCounts, now)
		scored = append(scored, ScoredCandidate{Candidate: c, Score: score})
		sourceCounts[c.Article.SourceID]++
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

func (e *Engine) scoreCandidate(c Candidate, profile *UserProfile, sourceCounts map[string]int, now time.Time) float64 {
	a := c.Article

	recency := 0.3
	if a.PublishedAt != nil {
		daysOld := math.Max(0, now.Sub(*a.PublishedAt).Seconds()/86400)
		recency = math.Exp(-0.1 * daysOld)
	}

	prefMatch := 0.0
	for _, topic := range a.Topics {
		if containsString(profile.Topics, topic) {
			prefMatch = 1.0
			break
		}
		if aff, ok := profile.TopicAffinities[topic]; ok && aff > prefMatch {
			prefMatch = aff
		}
	}

	popularity := 0.0
	if a.PopularityScore > 0 {
		popularity = math.Min(1.0, a.PopularityScore/100)
	}

	quality := a.QualityScore
	if quality == 0 {
		quality = 0.5
	}

	seenPenalty := 0.0
	if _, ok := profile.InteractedIDs[a.ID]; ok {
		seenPenalty = e.cfg.PenaltySeen
	}
	fatiguePenalty := 0.0
	if sourceCounts[a.SourceID] >= 3 {
		fatiguePenalty = e.cfg.PenaltyFatigue
	}

	score := e.cfg.WeightSimilarity*c.Similarity +
		e.cfg.WeightRecency*recency +
		e.cfg.WeightPreference*prefMatch +
		e.cfg.WeightPopularity*popularity +
		e.cfg.WeightQuality*quality -
		seenPenalty - fatiguePenalty

	return round4(score)
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
