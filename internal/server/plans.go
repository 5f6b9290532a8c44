package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// plans is the static subscription catalog shown on the pricing page.
// A value of -1 means unlimited searches.
var plans = []Plan{
	{ID: "free", Name: "Free", PriceUSD: 0, Searches: 5, SearchPeriod: "lifetime"},
	{ID: "lite", Name: "Lite", PriceUSD: 9.99, Searches: 50, SearchPeriod: "monthly"},
	{ID: "pro", Name: "Pro", PriceUSD: 50, Searches: -1, SearchPeriod: "monthly", Description: "The ultimate research engine."},
}

type PlansHandler struct{}

func (h *PlansHandler) Register(g *echo.Group) {
	g.GET("", h.list)
}

func (h *PlansHandler) list(c echo.Context) error {
	return c.JSON(http.StatusOK, plans)
}
