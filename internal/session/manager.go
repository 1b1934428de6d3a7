// Package session controls the single active crawl behind the HTTP API.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-crawler/internal/crawler"
)

// Status is the externally visible crawl state.
type Status string

// Crawl states reported by Status.
const (
	StatusIdle      Status = "Idle"
	StatusCrawling  Status = "Crawling"
	StatusCompleted Status = "Completed"
)

var (
	// ErrCrawlRunning is returned by Start while a crawl is active.
	ErrCrawlRunning = errors.New("crawler already running")
	// ErrNotRunning is returned by Stop when no crawl is active.
	ErrNotRunning = errors.New("no crawler running")
	// ErrInvalidParams wraps parameter validation failures.
	ErrInvalidParams = errors.New("invalid crawl parameters")
)

// Params are the per-crawl overrides accepted from callers. Zero MaxPages
// or NumThreads fall back to the base config; MaxDepth is taken as given.
type Params struct {
	URL        string
	MaxPages   int
	NumThreads int
	MaxDepth   int
}

// Crawl is the slice of the coordinator the manager drives.
type Crawl interface {
	SetResultListener(l crawler.ResultListener)
	Start(ctx context.Context, seedURL string) (crawler.Summary, error)
	Stop()
	Progress() crawler.Summary
}

// CrawlFactory builds a Crawl for one run.
type CrawlFactory func(cfg crawler.Config) (Crawl, error)

// Snapshot is a point-in-time copy of the manager state.
type Snapshot struct {
	Status     Status           `json:"status"`
	Results    []string         `json:"results"`
	RunID      string           `json:"run_id,omitempty"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Summary    *crawler.Summary `json:"summary,omitempty"`
}

// Manager runs at most one crawl at a time and keeps the URLs it crawled.
type Manager struct {
	base    crawler.Config
	factory CrawlFactory
	ids     crawler.IDGenerator
	clock   crawler.Clock
	logger  *zap.Logger

	mu       sync.RWMutex
	status   Status
	runID    string
	results  []string
	current  Crawl
	summary  *crawler.Summary
	started  *time.Time
	finished *time.Time
	done     chan struct{}
}

// NewManager constructs a Manager. base supplies every crawl setting that
// Params does not override.
func NewManager(
	base crawler.Config,
	factory CrawlFactory,
	ids crawler.IDGenerator,
	clock crawler.Clock,
	logger *zap.Logger,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		base:    base,
		factory: factory,
		ids:     ids,
		clock:   clock,
		logger:  logger,
		status:  StatusIdle,
	}
}

// Start launches a crawl in the background and returns its run id. The
// crawl outlives ctx cancellation; use Stop to end it.
func (m *Manager) Start(ctx context.Context, p Params) (string, error) {
	cfg, err := m.configFor(p)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == StatusCrawling {
		return "", ErrCrawlRunning
	}
	crawl, err := m.factory(cfg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	runID, err := m.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	now := m.clock.Now()
	m.status = StatusCrawling
	m.runID = runID
	m.results = nil
	m.current = crawl
	m.summary = nil
	m.started = &now
	m.finished = nil
	done := make(chan struct{})
	m.done = done

	crawl.SetResultListener(crawler.ListenerFunc(func(r crawler.PageResult) {
		m.record(runID, r.URL)
	}))
	go m.run(context.WithoutCancel(ctx), crawl, cfg.SeedURL, runID, done)

	m.logger.Info("crawl session started", zap.String("run_id", runID), zap.String("seed", cfg.SeedURL))
	return runID, nil
}

func (m *Manager) run(ctx context.Context, crawl Crawl, seed, runID string, done chan struct{}) {
	defer close(done)
	summary, err := crawl.Start(ctx, seed)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runID != runID {
		return
	}
	now := m.clock.Now()
	m.finished = &now
	m.current = nil
	if err != nil {
		m.logger.Error("crawl session failed", zap.String("run_id", runID), zap.Error(err))
		m.status = StatusIdle
		return
	}
	m.summary = &summary
	if m.status == StatusCrawling {
		m.status = StatusCompleted
	}
}

func (m *Manager) record(runID, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runID == runID {
		m.results = append(m.results, url)
	}
}

// Stop ends the active crawl. The state becomes Idle at once; results
// collected so far are kept.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusCrawling || m.current == nil {
		return ErrNotRunning
	}
	m.current.Stop()
	m.status = StatusIdle
	m.logger.Info("crawl session stopped", zap.String("run_id", m.runID))
	return nil
}

// Status returns a copy of the current state.
func (m *Manager) Status() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := Snapshot{
		Status:     m.status,
		Results:    append([]string{}, m.results...),
		RunID:      m.runID,
		StartedAt:  m.started,
		FinishedAt: m.finished,
	}
	switch {
	case m.summary != nil:
		s := *m.summary
		snap.Summary = &s
	case m.current != nil:
		s := m.current.Progress()
		snap.Summary = &s
	}
	return snap
}

// Wait blocks until the most recent crawl has finished or ctx ends.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.RLock()
	done := m.done
	m.mu.RUnlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for crawl: %w", ctx.Err())
	}
}

func (m *Manager) configFor(p Params) (crawler.Config, error) {
	seed := strings.TrimSpace(p.URL)
	if seed == "" {
		return crawler.Config{}, fmt.Errorf("%w: url required", ErrInvalidParams)
	}
	cfg := m.base
	if p.MaxPages != 0 {
		cfg.MaxPages = p.MaxPages
	}
	if p.NumThreads != 0 {
		cfg.Workers = p.NumThreads
	}
	cfg.MaxDepth = p.MaxDepth
	cfg = cfg.WithDefaults().WithSeed(seed)
	lower := strings.ToLower(seed)
	if cfg.SeedDomain == "" || (!strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://")) {
		return crawler.Config{}, fmt.Errorf("%w: url must be an absolute http(s) url", ErrInvalidParams)
	}
	if err := cfg.Validate(); err != nil {
		return crawler.Config{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return cfg, nil
}
