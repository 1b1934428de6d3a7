// Package coordinator runs one bounded crawl: it seeds the frontier, fans
// work out to a pool of workers, enforces the deadline and reports a summary.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-crawler/internal/clock/system"
	"github.com/JakeFAU/site-crawler/internal/crawler"
	"github.com/JakeFAU/site-crawler/internal/metrics"
	"github.com/JakeFAU/site-crawler/internal/worker"
)

var (
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("crawl already started")
	// ErrInvalidSeed is returned when the seed is not an absolute http(s) URL.
	ErrInvalidSeed = errors.New("invalid seed url")
)

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithRateLimiter paces fetches per host.
func WithRateLimiter(l crawler.RateLimiter) Option {
	return func(c *Coordinator) { c.limiter = l }
}

// WithClock overrides the wall clock.
func WithClock(clock crawler.Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// Coordinator owns the shared state of a single crawl.
type Coordinator struct {
	cfg     crawler.Config
	fetcher crawler.Fetcher
	robots  crawler.RobotsPolicy
	limiter crawler.RateLimiter
	clock   crawler.Clock
	logger  *zap.Logger

	mu       sync.Mutex
	listener crawler.ResultListener
	started  bool
	stopped  bool
	state    *worker.State
	seedURL  string
	cancel   context.CancelFunc
}

// New validates cfg and builds a Coordinator. A nil robots policy, or
// RespectRobots=false, allows every path.
func New(
	cfg crawler.Config,
	fetcher crawler.Fetcher,
	robots crawler.RobotsPolicy,
	logger *zap.Logger,
	opts ...Option,
) (*Coordinator, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid crawl config: %w", err)
	}
	if fetcher == nil {
		return nil, errors.New("coordinator requires a fetcher")
	}
	if robots == nil || !cfg.RespectRobots {
		robots = crawler.AllowAllRobots{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		cfg:     cfg,
		fetcher: fetcher,
		robots:  robots,
		clock:   system.New(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetResultListener registers l to receive every fetched page. It must be
// called before Start; nil clears the listener.
func (c *Coordinator) SetResultListener(l crawler.ResultListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = l
}

// Start crawls from seedURL and blocks until the crawl ends. It returns a
// Summary for every crawl that actually began.
func (c *Coordinator) Start(ctx context.Context, seedURL string) (crawler.Summary, error) {
	seedURL = strings.TrimSpace(seedURL)
	if err := validateSeed(seedURL); err != nil {
		return crawler.Summary{}, err
	}

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return crawler.Summary{}, ErrAlreadyStarted
	}
	c.started = true
	cfg := c.cfg.WithSeed(seedURL)
	state := worker.NewState()
	runCtx, cancel := context.WithTimeout(ctx, cfg.Deadline)
	c.state = state
	c.seedURL = cfg.SeedURL
	c.cancel = cancel
	listener := c.listener
	if c.stopped {
		state.RequestStop(crawler.StopRequested)
		cancel()
	}
	c.mu.Unlock()
	defer cancel()

	start := c.clock.Now()
	state.Seed(cfg.SeedURL)
	metrics.ObserveAdmitted()
	c.logger.Info("crawl started",
		zap.String("seed", cfg.SeedURL),
		zap.String("seed_domain", cfg.SeedDomain),
		zap.Int("max_pages", cfg.MaxPages),
		zap.Int("max_depth", cfg.MaxDepth),
		zap.Int("workers", cfg.Workers),
	)

	deps := worker.Deps{
		Fetcher:  c.fetcher,
		Robots:   c.robots,
		Limiter:  c.limiter,
		Filter:   crawler.NewURLFilter(cfg.BlockedExtensions),
		Domain:   crawler.NewDomainPolicy(cfg.SeedDomain, cfg.DenyDomains),
		Listener: listener,
		Clock:    c.clock,
		Logger:   c.logger,
	}
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(w *worker.Worker) {
			defer wg.Done()
			w.Run(runCtx)
		}(worker.New(i, cfg, state, deps))
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-runCtx.Done():
		c.stopForContext(ctx, runCtx, state, cfg)
		<-done
	}
	if state.Reason() == crawler.StopNone {
		c.stopForContext(ctx, runCtx, state, cfg)
	}

	summary := crawler.Summary{
		SeedURL:   cfg.SeedURL,
		Admitted:  state.Visited.Len(),
		Fetched:   state.Fetched(),
		Failed:    state.Failed(),
		Remaining: state.Frontier.Len(),
		Reason:    state.Reason(),
		Duration:  c.clock.Now().Sub(start),
	}
	metrics.ObserveCrawl(string(summary.Reason))
	metrics.SetFrontierSize(0)
	c.logger.Info("crawl finished",
		zap.String("seed", summary.SeedURL),
		zap.Int("discovered", summary.Admitted),
		zap.Int("remaining", summary.Remaining),
		zap.Int("fetched", summary.Fetched),
		zap.Int("failed", summary.Failed),
		zap.String("reason", string(summary.Reason)),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// Stop asks a running crawl to finish and cancels its in-flight fetches.
// It is idempotent; called before Start it makes Start return at once.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if c.state == nil {
		return
	}
	c.state.RequestStop(crawler.StopRequested)
	c.cancel()
}

// Progress reports the counters of the running (or finished) crawl. The
// reason stays empty until the crawl stops.
func (c *Coordinator) Progress() crawler.Summary {
	c.mu.Lock()
	state, seedURL := c.state, c.seedURL
	c.mu.Unlock()
	if state == nil {
		return crawler.Summary{}
	}
	return crawler.Summary{
		SeedURL:   seedURL,
		Admitted:  state.Visited.Len(),
		Fetched:   state.Fetched(),
		Failed:    state.Failed(),
		Remaining: state.Frontier.Len(),
		Reason:    state.Reason(),
	}
}

func (c *Coordinator) stopForContext(parent, runCtx context.Context, state *worker.State, cfg crawler.Config) {
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		if state.RequestStop(crawler.StopDeadline) {
			c.logger.Warn("crawl deadline reached; shutting down", zap.Duration("deadline", cfg.Deadline))
		}
		return
	}
	state.RequestStop(crawler.StopRequested)
}

func validateSeed(seedURL string) error {
	u, err := url.Parse(seedURL)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidSeed, seedURL, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Hostname() == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSeed, seedURL)
	}
	return nil
}
