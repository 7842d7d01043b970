package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Preference is the explicit per-user feed preference record.
type Preference struct {
	UserID          string
	Topics          []string
	Level           string
	Equipment       string
	BlockedKeywords []string
	UpdatedAt       time.Time
}

// EventRow is an implicit interaction event joined with the topics and
// source of the article it refers to, which is all the profile builder needs.
type EventRow struct {
	ArticleID    string
	SourceID     string
	EventType    string
	DwellSeconds *float64
	Topics       []string
	CreatedAt    time.Time
}

// Impression records that an article was shown to a user at a position.
type Impression struct {
	UserID    string
	ArticleID string
	Position  int
	FeedType  string
}

// GetPreference loads the explicit preference record. Absence is not an error.
func (s *Store) GetPreference(ctx context.Context, userID string) (Preference, bool, error) {
	var (
		p         Preference
		topics    []byte
		blocked   []byte
		level     sql.NullString
		equipment sql.NullString
	)
	err := s.DB.QueryRowContext(ctx, `
SELECT user_id, topics, level, equipment, blocked_keywords, updated_at
FROM user_news_preferences WHERE user_id = $1
`, userID).Scan(&p.UserID, &topics, &level, &equipment, &blocked, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return Preference{}, false, nil
	}
	if err != nil {
		return Preference{}, false, err
	}
	p.Level = level.String
	p.Equipment = equipment.String
	if len(topics) > 0 {
		_ = json.Unmarshal(topics, &p.Topics)
	}
	if len(blocked) > 0 {
		_ = json.Unmarshal(blocked, &p.BlockedKeywords)
	}
	return p, true, nil
}

// UpsertPreference writes the explicit preference record.
func (s *Store) UpsertPreference(ctx context.Context, p Preference) error {
	topics, err := json.Marshal(p.Topics)
	if err != nil {
		return err
	}
	blocked, err := json.Marshal(p.BlockedKeywords)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO user_news_preferences (user_id, topics, level, equipment, blocked_keywords, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW())
ON CONFLICT (user_id) DO UPDATE SET
  topics = EXCLUDED.topics,
  level = EXCLUDED.level,
  equipment = EXCLUDED.equipment,
  blocked_keywords = EXCLUDED.blocked_keywords,
  updated_at = NOW()
`, p.UserID, topics, nullableString(p.Level), nullableString(p.Equipment), blocked)
	return err
}

// HiddenArticleIDs returns the all-time hidden set for a user.
func (s *Store) HiddenArticleIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT article_id FROM user_hidden_articles WHERE user_id = $1
`, userID)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

// RecentImpressionArticleIDs returns article ids shown to the user since the cutoff.
func (s *Store) RecentImpressionArticleIDs(ctx context.Context, userID string, since time.Time) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT article_id FROM feed_impressions WHERE user_id = $1 AND created_at >= $2
`, userID, since)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

// SavedArticleIDs filters the given ids down to those the user has saved.
func (s *Store) SavedArticleIDs(ctx context.Context, userID string, articleIDs []string) (map[string]bool, error) {
	if len(articleIDs) == 0 {
		return map[string]bool{}, nil
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT article_id FROM user_saved_articles WHERE user_id = $1 AND article_id = ANY($2)
`, userID, pq.Array(articleIDs))
	if err != nil {
		return nil, err
	}
	ids, err := collectIDs(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// EventsSince returns the user's implicit events since the cutoff, each joined
// with the topics and source of its article.
func (s *Store) EventsSince(ctx context.Context, userID string, since time.Time) ([]EventRow, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT e.article_id, a.source_id, e.event_type, e.dwell_seconds, a.topics, e.created_at
FROM user_events e
JOIN news_articles a ON a.id = e.article_id
WHERE e.user_id = $1 AND e.created_at >= $2
`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EventRow
	for rows.Next() {
		var (
			row       EventRow
			dwell     sql.NullFloat64
			topicsRaw []byte
		)
		if err := rows.Scan(&row.ArticleID, &row.SourceID, &row.EventType, &dwell, &topicsRaw, &row.CreatedAt); err != nil {
			return nil, err
		}
		if dwell.Valid {
			v := dwell.Float64
			row.DwellSeconds = &v
		}
		if len(topicsRaw) > 0 {
			_ = json.Unmarshal(topicsRaw, &row.Topics)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// HasRecentEvent reports whether an equivalent event exists inside the dedup window.
func (s *Store) HasRecentEvent(ctx context.Context, userID, articleID, eventType, sessionID string, since time.Time) (bool, error) {
	row := s.DB.QueryRowContext(ctx, `
SELECT 1 FROM user_events
WHERE user_id = $1 AND article_id = $2 AND event_type = $3 AND created_at >= $4
  AND ($5 = '' OR session_id = $5)
LIMIT 1
`, userID, articleID, eventType, since, sessionID)
	var one int
	err := row.Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertEvent appends one implicit event.
func (s *Store) InsertEvent(ctx context.Context, userID, articleID, eventType string, dwellSeconds *float64, sessionID string) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO user_events (user_id, article_id, event_type, dwell_seconds, session_id)
VALUES ($1,$2,$3,$4,$5)
`, userID, articleID, eventType, dwellSeconds, nullableString(sessionID))
	return err
}

// InsertImpressions appends one impression per returned feed item, atomically.
func (s *Store) InsertImpressions(ctx context.Context, impressions []Impression) error {
	if len(impressions) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO feed_impressions (user_id, article_id, position, feed_type)
VALUES ($1,$2,$3,$4)
`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, imp := range impressions {
		if _, err := stmt.ExecContext(ctx, imp.UserID, imp.ArticleID, imp.Position, imp.FeedType); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SaveArticle marks an article saved for the user; duplicate saves are no-ops.
func (s *Store) SaveArticle(ctx context.Context, userID, articleID string) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO user_saved_articles (user_id, article_id) VALUES ($1,$2)
ON CONFLICT (user_id, article_id) DO NOTHING
`, userID, articleID)
	return err
}

func (s *Store) UnsaveArticle(ctx context.Context, userID, articleID string) error {
	_, err := s.DB.ExecContext(ctx, `
DELETE FROM user_saved_articles WHERE user_id = $1 AND article_id = $2
`, userID, articleID)
	return err
}

// HideArticle adds an article to the user's all-time hidden set.
func (s *Store) HideArticle(ctx context.Context, userID, articleID string) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO user_hidden_articles (user_id, article_id) VALUES ($1,$2)
ON CONFLICT (user_id, article_id) DO NOTHING
`, userID, articleID)
	return err
}

func (s *Store) UnhideArticle(ctx context.Context, userID, articleID string) error {
	_, err := s.DB.ExecContext(ctx, `
DELETE FROM user_hidden_articles WHERE user_id = $1 AND article_id = $2
`, userID, articleID)
	return err
}

func collectIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
