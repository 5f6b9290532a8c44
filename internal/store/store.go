package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

type Store struct {
	DB *sql.DB
}

// Market signal source types persisted in market_signals.source_type.
const (
	SourceReddit       = "reddit"
	SourceYouTube      = "youtube"
	SourceGoogleTrends = "google_trends"
)

// Niche is a researched market opportunity with AI-derived scores.
type Niche struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Category         string         `json:"category"`
	GrowthScore      int            `json:"growth_score"`
	PainScore        int            `json:"pain_score"`
	CompetitionScore int            `json:"competition_score"`
	TotalScore       int            `json:"total_score"`
	AISummary        string         `json:"ai_summary"`
	CreatedAt        time.Time      `json:"created_at"`
	LastUpdatedAt    time.Time      `json:"last_updated_at"`
	MarketSignals    []MarketSignal `json:"market_signals"`
}

// MarketSignal is one evidentiary snippet backing a niche's thesis.
type MarketSignal struct {
	ID             string    `json:"id"`
	NicheID        string    `json:"niche_id"`
	SourceType     string    `json:"source_type"`
	ContentSnippet string    `json:"content_snippet"`
	SourceURL      string    `json:"source_url"`
	CreatedAt      time.Time `json:"created_at"`
}

// NicheDraft carries the synthesized fields for a new niche row.
// total_score is derived by the database and never supplied here.
type NicheDraft struct {
	Title            string
	Category         string
	GrowthScore      int
	PainScore        int
	CompetitionScore int
	AISummary        string
}

// SignalDraft carries the fields for a new market signal row.
type SignalDraft struct {
	SourceType     string
	ContentSnippet string
	SourceURL      string
}

// Profile is the account state relevant to the research workflow.
type Profile struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	CreditsRemaining int       `json:"credits_remaining"`
	SubscriptionTier string    `json:"subscription_tier"`
	CreatedAt        time.Time `json:"created_at"`
}

// New constructs the Store using an explicit Postgres DSN.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

const nicheColumns = `id, title, category, growth_score, pain_score, competition_score, total_score, ai_summary, created_at, last_updated_at`

// FindNicheByTitle performs a case-insensitive exact-title lookup.
// When several rows carry the same title the newest one wins.
func (s *Store) FindNicheByTitle(ctx context.Context, title string) (Niche, bool, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+nicheColumns+` FROM niches WHERE title ILIKE $1 ORDER BY created_at DESC LIMIT 1`,
		escapeLike(title))
	n, err := scanNiche(row)
	if err == sql.ErrNoRows {
		return Niche{}, false, nil
	}
	if err != nil {
		return Niche{}, false, err
	}
	signals, err := s.listSignals(ctx, n.ID)
	if err != nil {
		return Niche{}, false, err
	}
	n.MarketSignals = signals
	return n, true, nil
}

// InsertNicheWithSignals creates a niche and its signals in one transaction.
// A failing signal insert rolls back the niche row as well.
func (s *Store) InsertNicheWithSignals(ctx context.Context, draft NicheDraft, signals []SignalDraft) (string, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx,
		`INSERT INTO niches (title, category, growth_score, pain_score, competition_score, ai_summary)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		draft.Title, draft.Category, draft.GrowthScore, draft.PainScore, draft.CompetitionScore, draft.AISummary).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert niche: %w", err)
	}
	for _, sig := range signals {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO market_signals (niche_id, source_type, content_snippet, source_url) VALUES ($1,$2,$3,$4)`,
			id, sig.SourceType, sig.ContentSnippet, sig.SourceURL); err != nil {
			return "", fmt.Errorf("insert signal: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// GetNicheWithSignals returns the niche plus its associated signals.
func (s *Store) GetNicheWithSignals(ctx context.Context, id string) (Niche, bool, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+nicheColumns+` FROM niches WHERE id=$1`, id)
	n, err := scanNiche(row)
	if err == sql.ErrNoRows {
		return Niche{}, false, nil
	}
	if err != nil {
		return Niche{}, false, err
	}
	signals, err := s.listSignals(ctx, n.ID)
	if err != nil {
		return Niche{}, false, err
	}
	n.MarketSignals = signals
	return n, true, nil
}

// ListRecentNiches returns the newest niches with their signals attached.
func (s *Store) ListRecentNiches(ctx context.Context, limit int) ([]Niche, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+nicheColumns+` FROM niches ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Niche
	var ids []string
	for rows.Next() {
		n, err := scanNiche(rows)
		if err != nil {
			return nil, err
		}
		n.MarketSignals = []MarketSignal{}
		out = append(out, n)
		ids = append(ids, n.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	srows, err := s.DB.QueryContext(ctx,
		`SELECT id, niche_id, source_type, content_snippet, source_url, created_at
FROM market_signals WHERE niche_id = ANY($1) ORDER BY created_at`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer srows.Close()

	byNiche := make(map[string][]MarketSignal, len(ids))
	for srows.Next() {
		var sig MarketSignal
		if err := srows.Scan(&sig.ID, &sig.NicheID, &sig.SourceType, &sig.ContentSnippet, &sig.SourceURL, &sig.CreatedAt); err != nil {
			return nil, err
		}
		byNiche[sig.NicheID] = append(byNiche[sig.NicheID], sig)
	}
	if err := srows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if sigs, ok := byNiche[out[i].ID]; ok {
			out[i].MarketSignals = sigs
		}
	}
	return out, nil
}

func (s *Store) listSignals(ctx context.Context, nicheID string) ([]MarketSignal, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, niche_id, source_type, content_snippet, source_url, created_at
FROM market_signals WHERE niche_id=$1 ORDER BY created_at`, nicheID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []MarketSignal{}
	for rows.Next() {
		var sig MarketSignal
		if err := rows.Scan(&sig.ID, &sig.NicheID, &sig.SourceType, &sig.ContentSnippet, &sig.SourceURL, &sig.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

// Profile operations

func (s *Store) CreateProfile(ctx context.Context, email, hash, firstName, lastName string, credits int) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO profiles (email, password_hash, first_name, last_name, credits_remaining) VALUES ($1,$2,$3,$4,$5)`,
		email, hash, firstName, lastName, credits)
	return err
}

func (s *Store) GetProfileByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM profiles WHERE email=$1`, email).Scan(&id, &hash)
	return
}

func (s *Store) GetProfile(ctx context.Context, id string) (Profile, bool, error) {
	var p Profile
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, credits_remaining, subscription_tier, created_at
FROM profiles WHERE id=$1`, id).
		Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.CreditsRemaining, &p.SubscriptionTier, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return Profile{}, false, nil
	}
	if err != nil {
		return Profile{}, false, err
	}
	return p, true, nil
}

// DeductCredit atomically decrements the counter by one. A nil result
// means the balance was already zero and nothing was changed.
func (s *Store) DeductCredit(ctx context.Context, userID string) (*int, error) {
	var remaining int
	err := s.DB.QueryRowContext(ctx,
		`UPDATE profiles SET credits_remaining = credits_remaining - 1
WHERE id=$1 AND credits_remaining > 0 RETURNING credits_remaining`, userID).Scan(&remaining)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &remaining, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNiche(row rowScanner) (Niche, error) {
	var n Niche
	err := row.Scan(&n.ID, &n.Title, &n.Category, &n.GrowthScore, &n.PainScore, &n.CompetitionScore,
		&n.TotalScore, &n.AISummary, &n.CreatedAt, &n.LastUpdatedAt)
	return n, err
}

// escapeLike neutralizes LIKE wildcards so the lookup is an exact match.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
