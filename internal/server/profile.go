package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nichefinder/nichefinder/internal/store"
)

type ProfileHandler struct {
	Store *store.Store
}

func (h *ProfileHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) })
	g.GET("", h.me)
	g.GET("/profile", h.profile)
}

func (h *ProfileHandler) me(c echo.Context) error {
	return c.JSON(http.StatusOK, MeResponse{UserID: c.Get("user_id").(string)})
}

func (h *ProfileHandler) profile(c echo.Context) error {
	userID := c.Get("user_id").(string)
	profile, found, err := h.Store.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}
	return c.JSON(http.StatusOK, profile)
}
