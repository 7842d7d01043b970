package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gymunity/feed/internal/store"
)

type PrefsHandler struct {
	Store *store.Store
}

func (h *PrefsHandler) Register(g *echo.Group, secret []byte) {
	g.Use(authMiddleware(secret))
	g.GET("", h.getPreferences)
	g.PUT("", h.putPreferences)
}

func (h *PrefsHandler) getPreferences(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	pref, found, err := h.Store.GetPreference(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := PreferenceResponse{Topics: []string{}, BlockedKeywords: []string{}}
	if found {
		if pref.Topics != nil {
			resp.Topics = pref.Topics
		}
		if pref.BlockedKeywords != nil {
			resp.BlockedKeywords = pref.BlockedKeywords
		}
		resp.Level = pref.Level
		resp.Equipment = pref.Equipment
		updated := pref.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *PrefsHandler) putPreferences(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	var req PreferenceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	pref := store.Preference{
		UserID:          userID,
		Topics:          req.Topics,
		Level:           req.Level,
		Equipment:       req.Equipment,
		BlockedKeywords: req.BlockedKeywords,
	}
	if err := h.Store.UpsertPreference(c.Request().Context(), pref); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
