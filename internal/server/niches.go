package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nichefinder/nichefinder/internal/engine"
	"github.com/nichefinder/nichefinder/internal/store"
	"github.com/nichefinder/nichefinder/internal/synthesis"
)

// searcher is the orchestrator surface this handler needs.
type searcher interface {
	SearchAndAnalyze(ctx context.Context, query, userID string, phase engine.PhaseFunc) (engine.Result, error)
	GetStatus(searchID string) (engine.SearchStatus, bool)
}

type NichesHandler struct {
	Store  *store.Store
	Engine searcher
}

func (h *NichesHandler) Register(g *echo.Group, secret []byte) {
	// Browsing is public; searching spends credits and needs a user.
	g.GET("", h.list)
	auth := func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) }
	g.POST("/search", h.search, auth)
	g.GET("/search/:id/status", h.status, auth)
	g.GET("/:id", h.get)
}

func (h *NichesHandler) list(c echo.Context) error {
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	items, err := h.Store.ListRecentNiches(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *NichesHandler) get(c echo.Context) error {
	niche, found, err := h.Store.GetNicheWithSignals(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "niche not found")
	}
	return c.JSON(http.StatusOK, niche)
}

func (h *NichesHandler) search(c echo.Context) error {
	userID := c.Get("user_id").(string)
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.Engine.SearchAndAnalyze(c.Request().Context(), req.Query, userID, nil)
	switch {
	case errors.Is(err, engine.ErrEmptyQuery):
		return echo.NewHTTPError(http.StatusBadRequest, "query required")
	case errors.Is(err, engine.ErrCreditsExhausted):
		return echo.NewHTTPError(http.StatusPaymentRequired, "out of credits")
	case errors.Is(err, synthesis.ErrSynthesis):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, SearchResponse{
		SearchID:         result.SearchID,
		Niche:            result.Niche,
		CacheHit:         result.CacheHit,
		CreditsRemaining: result.Remaining,
	})
}

func (h *NichesHandler) status(c echo.Context) error {
	status, ok := h.Engine.GetStatus(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown search id")
	}
	return c.JSON(http.StatusOK, status)
}
