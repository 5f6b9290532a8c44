package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/golang-migrate/migrate/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/nichefinder/nichefinder/config"
	"github.com/nichefinder/nichefinder/internal/engine"
	"github.com/nichefinder/nichefinder/internal/research"
	"github.com/nichefinder/nichefinder/internal/research/serper"
	"github.com/nichefinder/nichefinder/internal/research/youtube"
	"github.com/nichefinder/nichefinder/internal/store"
	"github.com/nichefinder/nichefinder/internal/synthesis"
	"github.com/nichefinder/nichefinder/provider"
)

// Run wires the full backend together and serves the HTTP API.
func Run(cfg *config.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	dsn := cfg.Storage.Postgres.DSN()
	if err := Migrate(cfg.Storage.Postgres.Migrations, dsn, "up", 0); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: %w", err)
	}

	ctx := context.Background()
	st, err := store.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("postgres connection failed: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr(),
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
	}

	llm, err := provider.NewProvider(provider.OpenAI, provider.Options{
		APIKey:      cfg.Providers.OpenAI.APIKey,
		Model:       cfg.Providers.OpenAI.Model,
		Temperature: cfg.Providers.OpenAI.Temperature,
		MaxTokens:   cfg.Providers.OpenAI.MaxTokens,
		Timeout:     cfg.Providers.OpenAI.Timeout,
	})
	if err != nil {
		return err
	}

	researchLogger := log.New(log.Writer(), "[RESEARCH] ", log.LstdFlags)
	researcher := research.NewClient(
		serper.New(cfg.Research.SerperAPIKey, cfg.Research.Timeout),
		youtube.New(cfg.Research.YouTubeAPIKey, cfg.Research.Timeout),
		cfg.Research.CommunitySite,
		cfg.Research.MaxResults,
		researchLogger,
	)

	orchLogger := log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	orch := engine.NewOrchestrator(st, st, researcher, synthesis.NewAnalyzer(llm), engine.NewRedisLocker(rdb), orchLogger)

	secret := []byte(cfg.General.JWTSecret)
	api := e.Group("/api")

	auth := &AuthHandler{Store: st, Secret: secret, SignupGrant: cfg.Credits.SignupGrant}
	auth.Register(api.Group("/auth"))

	ph := &ProfileHandler{Store: st}
	ph.Register(api.Group("/me"), secret)

	nh := &NichesHandler{Store: st, Engine: orch}
	nh.Register(api.Group("/niches"), secret)

	pl := &PlansHandler{}
	pl.Register(api.Group("/plans"))

	if addr == "" {
		addr = cfg.General.Listen
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":10010"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
