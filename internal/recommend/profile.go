package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Event-type base weights for implicit interest signals. The dwell entry is
// the fallback when an event carries no duration.
var eventWeights = map[string]float64{
	"impression": -0.1,
	"click":      0.3,
	"save":       1.0,
	"unsave":     -0.5,
	"hide":       -2.0,
	"dwell":      0.5,
}

func dwellWeight(seconds float64) float64 {
	switch {
	case seconds >= 60:
		return 1.0
	case seconds >= 30:
		return 0.5
	default:
		return 0.1
	}
}

// BuildProfile derives the per-request interest profile from explicit
// preferences, the hidden set, recent impressions, and 30 days of implicit
// events. Storage errors propagate; missing records do not.
func (e *Engine) BuildProfile(ctx context.Context, userID string) (*UserProfile, error) {
	now := e.now()
	profile := &UserProfile{
		UserID:           userID,
		TopicAffinities:  map[string]float64{},
		SourceAffinities: map[string]float64{},
		InteractedIDs:    map[string]struct{}{},
		HiddenIDs:        map[string]struct{}{},
		RecentlyShownIDs: map[string]struct{}{},
	}

	pref, ok, err := e.ds.GetPreference(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	if ok {
		profile.Topics = pref.Topics
		profile.Level = pref.Level
		profile.Equipment = pref.Equipment
		profile.BlockedKeywords = lowerAll(pref.BlockedKeywords)
	}

	hidden, err := e.ds.HiddenArticleIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load hidden articles: %w", err)
	}
	for _, id := range hidden {
		profile.HiddenIDs[id] = struct{}{}
	}

	shown, err := e.ds.RecentImpressionArticleIDs(ctx, userID, now.Add(-impressionWindow))
	if err != nil {
		return nil, fmt.Errorf("load recent impressions: %w", err)
	}
	for _, id := range shown {
		profile.RecentlyShownIDs[id] = struct{}{}
	}

	events, err := e.ds.EventsSince(ctx, userID, now.Add(-eventLookback))
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	topicScores := map[string]float64{}
	sourceScores := map[string]float64{}
	for _, ev := range events {
		weight := eventWeights[ev.EventType]
		if ev.EventType == "dwell" && ev.DwellSeconds != nil && *ev.DwellSeconds > 0 {
			weight = dwellWeight(*ev.DwellSeconds)
		}
		profile.InteractedIDs[ev.ArticleID] = struct{}{}
		for _, topic := range ev.Topics {
			topicScores[topic] += weight
		}
		if ev.SourceID != "" {
			sourceScores[ev.SourceID] += weight
		}
	}

	profile.TopicAffinities = normalizeAffinities(topicScores)
	profile.SourceAffinities = normalizeAffinities(sourceScores)
	return profile, nil
}

// normalizeAffinities maps accumulated signal weights into [0,1]: divide by
// the max absolute value, shift [-1,1] to [0,1], clamp. Empty input stays empty.
func normalizeAffinities(scores map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	maxAbs := 0.0
	for _, v := range scores {
		if a := math.Abs(v); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs == 0 {
		maxAbs = 1
	}
	for k, v := range scores {
		out[k] = clamp01((v/maxAbs + 1) / 2)
	}
	return out
}

// topAffinityTopics returns the n highest-affinity topics, value descending,
// name ascending on ties for determinism.
func topAffinityTopics(affinities map[string]float64, n int) []string {
	if len(affinities) == 0 || n <= 0 {
		return nil
	}
	topics := make([]string, 0, len(affinities))
	for t := range affinities {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool {
		if affinities[topics[i]] != affinities[topics[j]] {
			return affinities[topics[i]] > affinities[topics[j]]
		}
		return topics[i] < topics[j]
	})
	if len(topics) > n {
		topics = topics[:n]
	}
	return topics
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
