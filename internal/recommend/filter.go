package recommend

import (
	"strings"
	"time"

	"github.com/gymunity/feed/internal/store"
)

// filterCandidates drops candidates the user must not see. The rules are
// independent of ordering, so running the filter twice changes nothing.
func (e *Engine) filterCandidates(candidates []Candidate, profile *UserProfile) []Candidate {
	cutoff := e.now().Add(-time.Duration(e.cfg.FreshnessWindowDays) * 24 * time.Hour)
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, hidden := profile.HiddenIDs[c.Article.ID]; hidden {
			continue
		}
		if _, shown := profile.RecentlyShownIDs[c.Article.ID]; shown {
			continue
		}
		if !c.Article.SourceEnabled {
			continue
		}
		// Articles without a publish timestamp are kept; only a known-stale
		// timestamp disqualifies.
		if c.Article.PublishedAt != nil && c.Article.PublishedAt.Before(cutoff) {
			continue
		}
		if containsBlocked(c.Article, profile.BlockedKeywords) {
			continue
		}
		if e.language != "" && c.Article.Language != "" && c.Article.Language != e.language {
			continue
		}
		out = append(out, c)
	}
	return out
}

func containsBlocked(a store.Article, blocked []string) bool {
	if len(blocked) == 0 {
		return false
	}
	text := strings.ToLower(a.Title + " " + a.Summary)
	for _, kw := range blocked {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(v))
	}
	return out
}
