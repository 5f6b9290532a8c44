package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/nichefinder/nichefinder/internal/engine"
	"github.com/nichefinder/nichefinder/internal/store"
	"github.com/nichefinder/nichefinder/internal/synthesis"
)

type stubEngine struct {
	result engine.Result
	err    error
	query  string
	userID string
	status engine.SearchStatus
	hasID  bool
}

func (s *stubEngine) SearchAndAnalyze(_ context.Context, query, userID string, _ engine.PhaseFunc) (engine.Result, error) {
	s.query = query
	s.userID = userID
	return s.result, s.err
}

func (s *stubEngine) GetStatus(_ string) (engine.SearchStatus, bool) {
	return s.status, s.hasID
}

func TestSearchReturnsSynthesizedNiche(t *testing.T) {
	e := echo.New()
	remaining := 4
	eng := &stubEngine{result: engine.Result{
		SearchID:  "search-1",
		Niche:     store.Niche{ID: "niche-1", Title: "AI Pet Portraits", TotalScore: 70},
		Remaining: &remaining,
	}}
	handler := &NichesHandler{Engine: eng}

	req := httptest.NewRequest(http.MethodPost, "/api/niches/search", strings.NewReader(`{"query":"ai pet portraits"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.Set("user_id", "user-1")

	if err := handler.search(ctx); err != nil {
		t.Fatalf("search: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if eng.query != "ai pet portraits" || eng.userID != "user-1" {
		t.Fatalf("engine called with %q/%q", eng.query, eng.userID)
	}

	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SearchID != "search-1" || resp.Niche.ID != "niche-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.CreditsRemaining == nil || *resp.CreditsRemaining != 4 {
		t.Fatalf("unexpected credits: %+v", resp.CreditsRemaining)
	}
}

func TestSearchWithoutCreditsPaymentRequired(t *testing.T) {
	e := echo.New()
	handler := &NichesHandler{Engine: &stubEngine{err: engine.ErrCreditsExhausted}}

	req := httptest.NewRequest(http.MethodPost, "/api/niches/search", strings.NewReader(`{"query":"anything"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.Set("user_id", "user-1")

	err := handler.search(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 got %v", err)
	}
}

func TestSearchSynthesisFailureBadGateway(t *testing.T) {
	e := echo.New()
	handler := &NichesHandler{Engine: &stubEngine{err: synthesis.ErrSynthesis}}

	req := httptest.NewRequest(http.MethodPost, "/api/niches/search", strings.NewReader(`{"query":"anything"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.Set("user_id", "user-1")

	err := handler.search(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %v", err)
	}
}

func TestSearchEmptyQueryBadRequest(t *testing.T) {
	e := echo.New()
	handler := &NichesHandler{Engine: &stubEngine{err: engine.ErrEmptyQuery}}

	req := httptest.NewRequest(http.MethodPost, "/api/niches/search", strings.NewReader(`{"query":""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.Set("user_id", "user-1")

	err := handler.search(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %v", err)
	}
}

func TestStatusEndpoint(t *testing.T) {
	e := echo.New()
	eng := &stubEngine{
		status: engine.SearchStatus{ID: "search-1", Phase: engine.PhaseAnalyzing, Progress: 0.55},
		hasID:  true,
	}
	handler := &NichesHandler{Engine: eng}

	req := httptest.NewRequest(http.MethodGet, "/api/niches/search/search-1/status", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("search-1")

	if err := handler.status(ctx); err != nil {
		t.Fatalf("status: %v", err)
	}
	var resp engine.SearchStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Phase != engine.PhaseAnalyzing {
		t.Fatalf("unexpected phase %q", resp.Phase)
	}

	eng.hasID = false
	rec = httptest.NewRecorder()
	ctx = e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("nope")
	err := handler.status(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %v", err)
	}
}

func TestListNiches(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	handler := &NichesHandler{Store: &store.Store{DB: db}, Engine: &stubEngine{}}

	now := time.Now()
	mock.ExpectQuery(`SELECT id, title, category, .+ FROM niches ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "category", "growth_score", "pain_score", "competition_score",
			"total_score", "ai_summary", "created_at", "last_updated_at",
		}).AddRow("niche-1", "AI Pet Portraits", "E-commerce", 80, 60, 30, 70, "summary", now, now))
	mock.ExpectQuery(`SELECT id, niche_id, source_type, content_snippet, source_url, created_at`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "niche_id", "source_type", "content_snippet", "source_url", "created_at"}))

	req := httptest.NewRequest(http.MethodGet, "/api/niches?limit=3", nil)
	rec := httptest.NewRecorder()

	if err := handler.list(e.NewContext(req, rec)); err != nil {
		t.Fatalf("list: %v", err)
	}
	var resp []store.Niche
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].Title != "AI Pet Portraits" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListNichesRejectsBadLimit(t *testing.T) {
	e := echo.New()
	handler := &NichesHandler{Engine: &stubEngine{}}

	req := httptest.NewRequest(http.MethodGet, "/api/niches?limit=banana", nil)
	rec := httptest.NewRecorder()

	err := handler.list(e.NewContext(req, rec))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %v", err)
	}
}

func TestGetNicheNotFound(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	handler := &NichesHandler{Store: &store.Store{DB: db}, Engine: &stubEngine{}}

	mock.ExpectQuery(`SELECT id, title, category, .+ FROM niches WHERE id=\$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "category", "growth_score", "pain_score", "competition_score",
			"total_score", "ai_summary", "created_at", "last_updated_at",
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/niches/missing", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("missing")

	err = handler.get(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %v", err)
	}
}
