package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gymunity/feed/internal/store"
)

// ArticlesHandler covers the per-article actions: save, unsave, hide, unhide.
type ArticlesHandler struct {
	Store *store.Store
}

func (h *ArticlesHandler) Register(g *echo.Group, secret []byte) {
	g.Use(authMiddleware(secret))
	g.POST("/:id/save", h.save)
	g.DELETE("/:id/save", h.unsave)
	g.POST("/:id/hide", h.hide)
	g.DELETE("/:id/hide", h.unhide)
}

func (h *ArticlesHandler) save(c echo.Context) error {
	return h.mutate(c, h.Store.SaveArticle)
}

func (h *ArticlesHandler) unsave(c echo.Context) error {
	return h.mutate(c, h.Store.UnsaveArticle)
}

func (h *ArticlesHandler) hide(c echo.Context) error {
	return h.mutate(c, h.Store.HideArticle)
}

func (h *ArticlesHandler) unhide(c echo.Context) error {
	return h.mutate(c, h.Store.UnhideArticle)
}

func (h *ArticlesHandler) mutate(c echo.Context, op func(ctx context.Context, userID, articleID string) error) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	articleID := c.Param("id")
	if articleID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "article id required")
	}
	ctx := c.Request().Context()
	if _, found, err := h.Store.ArticleByID(ctx, articleID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	} else if !found {
		return echo.NewHTTPError(http.StatusNotFound, "article not found")
	}
	if err := op(ctx, userID, articleID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
