package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gymunity/feed/internal/store"
)

const (
	maxEventBatch    = 100
	eventDedupWindow = 5 * time.Minute
)

// popularityBumps feed interaction signals back into the article's global
// popularity score. Hide is strongly negative; the floor is enforced in SQL.
var popularityBumps = map[string]float64{
	"click":  1,
	"save":   3,
	"hide":   -5,
	"unsave": -1,
}

var validEventTypes = map[string]struct{}{
	"impression": {},
	"click":      {},
	"dwell":      {},
	"save":       {},
	"unsave":     {},
	"hide":       {},
	"unhide":     {},
}

type EventsHandler struct {
	Store *store.Store
}

func (h *EventsHandler) Register(g *echo.Group, secret []byte) {
	g.Use(authMiddleware(secret))
	g.POST("", h.postEvents)
}

// postEvents ingests a batch of interaction events. Events equivalent to one
// recorded inside the dedup window are dropped, not errors.
func (h *EventsHandler) postEvents(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req EventsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Events) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no events")
	}
	if len(req.Events) > maxEventBatch {
		return echo.NewHTTPError(http.StatusBadRequest, "too many events in one batch")
	}

	ctx := c.Request().Context()
	resp := EventsResponse{}
	cutoff := time.Now().Add(-eventDedupWindow)

	for _, ev := range req.Events {
		if ev.ArticleID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "article_id required")
		}
		if _, ok := validEventTypes[ev.EventType]; !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown event_type: "+ev.EventType)
		}

		dup, err := h.Store.HasRecentEvent(ctx, userID, ev.ArticleID, ev.EventType, ev.SessionID, cutoff)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if dup {
			resp.Deduped++
			continue
		}
		if err := h.Store.InsertEvent(ctx, userID, ev.ArticleID, ev.EventType, ev.DwellSeconds, ev.SessionID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if bump, ok := popularityBumps[ev.EventType]; ok {
			if err := h.Store.AdjustPopularity(ctx, ev.ArticleID, bump); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
		resp.Accepted++
	}

	return c.JSON(http.StatusOK, resp)
}
