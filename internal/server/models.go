package server

import (
	"time"

	"github.com/gymunity/feed/internal/recommend"
	"github.com/gymunity/feed/internal/store"
)

// HTTPError is the unified error envelope returned by the HTTP error handler.
type HTTPError struct {
	Error string `json:"error"`
}

type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// ArticleOut is the wire shape of one article.
type ArticleOut struct {
	ID              string       `json:"id"`
	SourceID        string       `json:"source_id"`
	SourceName      string       `json:"source_name,omitempty"`
	Title           string       `json:"title"`
	Link            string       `json:"link"`
	Summary         string       `json:"summary,omitempty"`
	ImageURL        string       `json:"image_url,omitempty"`
	Language        string       `json:"language,omitempty"`
	Topics          []string     `json:"topics"`
	Keywords        []string     `json:"keywords"`
	QualityScore    float64      `json:"quality_score"`
	PopularityScore float64      `json:"popularity_score"`
	PublishedAt     *time.Time   `json:"published_at,omitempty"`
	Saved           bool         `json:"saved"`
}

// FeedItemOut is one feed entry; WhyThis is present only when explanations
// were requested.
type FeedItemOut struct {
	ArticleOut
	WhyThis *recommend.Explanation `json:"why_this,omitempty"`
}

type FeedResponse struct {
	Items    []FeedItemOut `json:"items"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Total    int           `json:"total"`
}

// EventIn is one client interaction event.
type EventIn struct {
	ArticleID    string   `json:"article_id"`
	EventType    string   `json:"event_type"`
	DwellSeconds *float64 `json:"dwell_seconds,omitempty"`
	SessionID    string   `json:"session_id,omitempty"`
}

type EventsRequest struct {
	Events []EventIn `json:"events"`
}

type EventsResponse struct {
	Accepted int `json:"accepted"`
	Deduped  int `json:"duplicates_skipped"`
}

type PreferenceRequest struct {
	Topics          []string `json:"topics"`
	Level           string   `json:"level,omitempty"`
	Equipment       string   `json:"equipment,omitempty"`
	BlockedKeywords []string `json:"blocked_keywords"`
}

type PreferenceResponse struct {
	Topics          []string   `json:"topics"`
	Level           string     `json:"level,omitempty"`
	Equipment       string     `json:"equipment,omitempty"`
	BlockedKeywords []string   `json:"blocked_keywords"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

func articleOut(a store.Article, saved bool) ArticleOut {
	topics := a.Topics
	if topics == nil {
		topics = []string{}
	}
	keywords := a.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return ArticleOut{
		ID:              a.ID,
		SourceID:        a.SourceID,
		SourceName:      a.SourceName,
		Title:           a.Title,
		Link:            a.Link,
		Summary:         a.Summary,
		ImageURL:        a.ImageURL,
		Language:        a.Language,
		Topics:          topics,
		Keywords:        keywords,
		QualityScore:    a.QualityScore,
		PopularityScore: a.PopularityScore,
		PublishedAt:     a.PublishedAt,
		Saved:           saved,
	}
}
