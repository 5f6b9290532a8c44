package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nichefinder/nichefinder/internal/research"
	"github.com/nichefinder/nichefinder/internal/store"
	"github.com/nichefinder/nichefinder/internal/synthesis"
)

// Phase identifies one stage of the search-and-analyze pipeline.
type Phase string

const (
	PhaseCheckingExisting Phase = "checking-existing"
	PhaseFetching         Phase = "fetching"
	PhaseAnalyzing        Phase = "analyzing"
	PhaseSaving           Phase = "saving"
	PhaseDone             Phase = "done"
)

// PhaseFunc receives phase-change notifications for progress display.
type PhaseFunc func(Phase)

// ErrCreditsExhausted is returned when the caller's credit balance is
// already zero. It is an expected outcome the UI branches on, not a
// system failure.
var ErrCreditsExhausted = errors.New("credits exhausted")

// ErrEmptyQuery rejects blank search input before any work happens.
var ErrEmptyQuery = errors.New("query required")

// NicheStore is the persistence surface the orchestrator depends on.
type NicheStore interface {
	FindNicheByTitle(ctx context.Context, title string) (store.Niche, bool, error)
	InsertNicheWithSignals(ctx context.Context, draft store.NicheDraft, signals []store.SignalDraft) (string, error)
	GetNicheWithSignals(ctx context.Context, id string) (store.Niche, bool, error)
}

// CreditLedger reads and decrements per-user search credits.
type CreditLedger interface {
	DeductCredit(ctx context.Context, userID string) (*int, error)
}

// Researcher aggregates the external research sources.
type Researcher interface {
	FetchAll(ctx context.Context, query string) (research.ResearchData, error)
}

// Analyzer turns a research bundle into a scored analysis.
type Analyzer interface {
	Analyze(ctx context.Context, data research.ResearchData) (synthesis.Analysis, error)
}

// Locker provides a best-effort distributed lock around persistence of
// a new title, narrowing the duplicate-insert race between two
// simultaneous first-time searches.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// SearchStatus tracks one search for progress polling.
type SearchStatus struct {
	ID        string     `json:"id"`
	Query     string     `json:"query"`
	Phase     Phase      `json:"phase"`
	Progress  float64    `json:"progress"`
	Done      bool       `json:"done"`
	Error     string     `json:"error,omitempty"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// Result is the outcome of one search-and-analyze call.
type Result struct {
	SearchID  string
	Niche     store.Niche
	Remaining *int
	CacheHit  bool
}

// Orchestrator sequences dedupe, credit deduction, research, synthesis
// and persistence into one user-facing operation.
type Orchestrator struct {
	store     NicheStore
	credits   CreditLedger
	research  Researcher
	synthesis Analyzer
	locker    Locker
	logger    *log.Logger

	mu         sync.RWMutex
	processing map[string]*SearchStatus
}

// lockTTL bounds how long a per-title persistence lock may linger if
// the holder dies before releasing it.
const lockTTL = 2 * time.Minute

// statusRetention is how long a finished status stays pollable before
// it is evicted from the tracking map.
const statusRetention = 10 * time.Minute

// NewOrchestrator creates a new orchestrator instance. locker may be
// nil, in which case the duplicate-title race is left to the store.
func NewOrchestrator(st NicheStore, credits CreditLedger, res Researcher, syn Analyzer, locker Locker, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	return &Orchestrator{
		store:      st,
		credits:    credits,
		research:   res,
		synthesis:  syn,
		locker:     locker,
		logger:     logger,
		processing: make(map[string]*SearchStatus),
	}
}

// SearchAndAnalyze runs the full pipeline for one query. Every call
// costs one credit, cache hit or miss; a zero-credit caller is refused
// before any external work happens.
func (o *Orchestrator) SearchAndAnalyze(ctx context.Context, query, userID string, phase PhaseFunc) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, ErrEmptyQuery
	}

	status := o.startStatus(query)
	result := Result{SearchID: status.ID}

	o.report(status, phase, PhaseCheckingExisting, 0.1)
	existing, found, err := o.store.FindNicheByTitle(ctx, query)
	if err != nil {
		return result, o.fail(status, fmt.Errorf("lookup existing niche: %w", err))
	}

	remaining, err := o.credits.DeductCredit(ctx, userID)
	if err != nil {
		return result, o.fail(status, fmt.Errorf("deduct credit: %w", err))
	}
	if remaining == nil {
		searchesTotal.WithLabelValues("no_credits").Inc()
		o.finishStatus(status, "")
		return result, ErrCreditsExhausted
	}
	creditsDeducted.Inc()
	result.Remaining = remaining

	if found {
		searchesTotal.WithLabelValues("cache_hit").Inc()
		o.report(status, phase, PhaseDone, 1.0)
		o.finishStatus(status, "")
		result.Niche = existing
		result.CacheHit = true
		return result, nil
	}

	o.report(status, phase, PhaseFetching, 0.3)
	data, err := o.research.FetchAll(ctx, query)
	if err != nil {
		return result, o.fail(status, fmt.Errorf("fetch research: %w", err))
	}

	o.report(status, phase, PhaseAnalyzing, 0.55)
	analysis, err := o.synthesis.Analyze(ctx, data)
	if err != nil {
		synthesisFailures.Inc()
		return result, o.fail(status, err)
	}

	o.report(status, phase, PhaseSaving, 0.8)
	niche, err := o.persist(ctx, analysis)
	if err != nil {
		return result, o.fail(status, err)
	}

	searchesTotal.WithLabelValues("synthesized").Inc()
	o.report(status, phase, PhaseDone, 1.0)
	o.finishStatus(status, "")
	result.Niche = niche
	return result, nil
}

// persist writes the synthesized niche and its signals, then re-reads
// the row so store-derived fields (id, timestamps, total_score) are
// populated. A best-effort per-title lock guards against two callers
// inserting the same new title at once.
func (o *Orchestrator) persist(ctx context.Context, analysis synthesis.Analysis) (store.Niche, error) {
	if o.locker != nil {
		key := "search:lock:" + strings.ToLower(analysis.Title)
		acquired, err := o.locker.Acquire(ctx, key, lockTTL)
		if err != nil {
			o.logger.Printf("title lock unavailable: %v", err)
		} else if acquired {
			defer func() {
				if err := o.locker.Release(ctx, key); err != nil {
					o.logger.Printf("title lock release: %v", err)
				}
			}()
		}
		// Re-check under (or despite) the lock: another call may have
		// persisted this title while we were synthesizing.
		if existing, found, err := o.store.FindNicheByTitle(ctx, analysis.Title); err == nil && found {
			return existing, nil
		}
	}

	draft := store.NicheDraft{
		Title:            analysis.Title,
		Category:         analysis.Category,
		GrowthScore:      analysis.GrowthScore,
		PainScore:        analysis.PainScore,
		CompetitionScore: analysis.CompetitionScore,
		AISummary:        analysis.AISummary,
	}
	signals := make([]store.SignalDraft, 0, len(analysis.Signals))
	for _, sig := range analysis.Signals {
		signals = append(signals, store.SignalDraft{
			SourceType:     sig.SourceType,
			ContentSnippet: sig.ContentSnippet,
			SourceURL:      sig.SourceURL,
		})
	}

	id, err := o.store.InsertNicheWithSignals(ctx, draft, signals)
	if err != nil {
		return store.Niche{}, fmt.Errorf("persist niche: %w", err)
	}
	complete, found, err := o.store.GetNicheWithSignals(ctx, id)
	if err != nil {
		return store.Niche{}, fmt.Errorf("reload niche: %w", err)
	}
	if !found {
		return store.Niche{}, fmt.Errorf("niche %s missing after insert", id)
	}
	return complete, nil
}

// GetStatus returns the tracked status for a search id.
func (o *Orchestrator) GetStatus(searchID string) (SearchStatus, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	status, ok := o.processing[searchID]
	if !ok {
		return SearchStatus{}, false
	}
	return *status, true
}

func (o *Orchestrator) startStatus(query string) *SearchStatus {
	status := &SearchStatus{
		ID:        uuid.New().String(),
		Query:     query,
		Phase:     PhaseCheckingExisting,
		StartTime: time.Now(),
	}
	o.mu.Lock()
	o.evictExpiredLocked(time.Now())
	o.processing[status.ID] = status
	o.mu.Unlock()
	return status
}

// evictExpiredLocked drops finished statuses past their retention so
// the tracking map stays bounded. Caller must hold o.mu.
func (o *Orchestrator) evictExpiredLocked(now time.Time) {
	for id, status := range o.processing {
		if status.Done && status.EndTime != nil && now.Sub(*status.EndTime) > statusRetention {
			delete(o.processing, id)
		}
	}
}

func (o *Orchestrator) report(status *SearchStatus, phase PhaseFunc, p Phase, progress float64) {
	o.mu.Lock()
	status.Phase = p
	status.Progress = progress
	o.mu.Unlock()
	o.logger.Printf("search %s: %s", status.ID, p)
	if phase != nil {
		phase(p)
	}
}

func (o *Orchestrator) finishStatus(status *SearchStatus, errMsg string) {
	now := time.Now()
	o.mu.Lock()
	status.Done = true
	status.Error = errMsg
	status.EndTime = &now
	o.mu.Unlock()
}

func (o *Orchestrator) fail(status *SearchStatus, err error) error {
	searchesTotal.WithLabelValues("error").Inc()
	o.logger.Printf("search %s failed: %v", status.ID, err)
	o.finishStatus(status, err.Error())
	return err
}
