package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gymunity/feed/internal/recommend"
)

const (
	defaultPageSize = 12
	maxPageSize     = 50
)

type FeedHandler struct {
	Engine *recommend.Engine
}

func (h *FeedHandler) Register(g *echo.Group, secret []byte) {
	g.Use(authMiddleware(secret))
	g.GET("", h.getFeed)
}

// getFeed serves GET /api/feed?page=&page_size=&explain=.
func (h *FeedHandler) getFeed(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	page := intQueryParam(c, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := intQueryParam(c, "page_size", defaultPageSize)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	explain := c.QueryParam("explain") == "true" || c.QueryParam("explain") == "1"

	feed, err := h.Engine.GetFeed(c.Request().Context(), userID, page, pageSize, explain)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	items := make([]FeedItemOut, 0, len(feed.Items))
	for _, item := range feed.Items {
		out := FeedItemOut{ArticleOut: articleOut(item.Article, item.Saved)}
		if explain {
			out.WhyThis = item.Explanation
		}
		items = append(items, out)
	}
	return c.JSON(http.StatusOK, FeedResponse{
		Items:    items,
		Page:     feed.Page,
		PageSize: feed.PageSize,
		Total:    feed.Total,
	})
}

func intQueryParam(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
