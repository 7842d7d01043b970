package recommend

// diversify walks the ranked list greedily, keeping a candidate only while
// its source and primary topic are under their repetition caps. Candidates
// that hit a cap are skipped permanently, not deferred. The walk stops once
// limit items are collected.
func (e *Engine) diversify(ranked []ScoredCandidate, limit int) []ScoredCandidate {
	result := make([]ScoredCandidate, 0, limit)
	sourceCount := map[string]int{}
	topicCount := map[string]int{}

	for _, c := range ranked {
		if sourceCount[c.Article.SourceID] >= e.cfg.MaxPerSource {
			continue
		}
		primary := c.Article.PrimaryTopic()
		if topicCount[primary] >= e.cfg.MaxPerTopic {
			continue
		}

		result = append(result, c)
		sourceCount[c.Article.SourceID]++
		topicCount[primary]++

		if len(result) >= limit {
			break
		}
	}
	return result
}
