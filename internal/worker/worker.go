// Package worker implements the crawl loop run by each pool goroutine.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-crawler/internal/clock/system"
	"github.com/JakeFAU/site-crawler/internal/crawler"
	"github.com/JakeFAU/site-crawler/internal/frontier"
	"github.com/JakeFAU/site-crawler/internal/metrics"
)

// Deps bundles the collaborators shared by every worker of a crawl.
type Deps struct {
	Fetcher  crawler.Fetcher
	Robots   crawler.RobotsPolicy
	Limiter  crawler.RateLimiter
	Filter   *crawler.URLFilter
	Domain   *crawler.DomainPolicy
	Listener crawler.ResultListener
	Clock    crawler.Clock
	Logger   *zap.Logger
}

// Worker takes tasks from the shared frontier, fetches them and admits the
// links it discovers.
type Worker struct {
	id       int
	cfg      crawler.Config
	state    *State
	fetcher  crawler.Fetcher
	robots   crawler.RobotsPolicy
	limiter  crawler.RateLimiter
	filter   *crawler.URLFilter
	domain   *crawler.DomainPolicy
	listener crawler.ResultListener
	clock    crawler.Clock
	logger   *zap.Logger
}

// New constructs a Worker. Missing optional deps get permissive defaults.
func New(id int, cfg crawler.Config, state *State, deps Deps) *Worker {
	if deps.Robots == nil {
		deps.Robots = crawler.AllowAllRobots{}
	}
	if deps.Filter == nil {
		deps.Filter = crawler.NewURLFilter(cfg.BlockedExtensions)
	}
	if deps.Domain == nil {
		deps.Domain = crawler.NewDomainPolicy(cfg.SeedDomain, cfg.DenyDomains)
	}
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Worker{
		id:       id,
		cfg:      cfg,
		state:    state,
		fetcher:  deps.Fetcher,
		robots:   deps.Robots,
		limiter:  deps.Limiter,
		filter:   deps.Filter,
		domain:   deps.Domain,
		listener: deps.Listener,
		clock:    deps.Clock,
		logger:   deps.Logger.With(zap.Int("worker", id)),
	}
}

// Run blocks until the crawl is drained, the page budget is consumed, a
// stop is requested or ctx ends.
func (w *Worker) Run(ctx context.Context) {
	backoff := crawler.NewIdleBackoff(w.cfg.IdleBackoffMin, w.cfg.IdleBackoffMax)
	for {
		if w.state.Stopped() || ctx.Err() != nil {
			return
		}
		if w.state.Claimed() >= w.cfg.MaxPages {
			w.state.RequestStop(crawler.StopBudget)
			return
		}

		changed := w.state.Frontier.Changed()
		task, status := w.state.Frontier.Take()
		switch status {
		case frontier.Drained:
			if w.state.RequestStop(crawler.StopCompleted) {
				w.logger.Debug("frontier drained")
			}
			return
		case frontier.Empty:
			if !w.waitForWork(ctx, changed, backoff.Next()) {
				return
			}
			continue
		}

		backoff.Reset()
		w.state.claimed.Add(1)
		w.process(ctx, task)
	}
}

func (w *Worker) waitForWork(ctx context.Context, changed <-chan struct{}, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-changed:
		return true
	case <-timer.C:
		return true
	case <-w.state.StopRequested():
		return false
	case <-ctx.Done():
		return false
	}
}

// process handles one claimed task. Tasks it admits are Put before the
// deferred Done so the frontier never looks drained while work remains.
func (w *Worker) process(ctx context.Context, task crawler.Task) {
	defer w.state.Frontier.Done()
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	logger := w.logger.With(zap.String("url", task.URL), zap.Int("depth", task.Depth))
	if task.Depth > w.cfg.MaxDepth {
		metrics.ObservePage(task.URL, metrics.PageTooDeep)
		return
	}
	if w.cfg.RespectRobots && !w.robots.IsAllowed(ctx, task.URL) {
		logger.Debug("disallowed by robots.txt")
		metrics.ObservePage(task.URL, metrics.PageDisallowed)
		return
	}
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx, task.URL); err != nil {
			logger.Debug("rate limit wait aborted", zap.Error(err))
			return
		}
	}

	page, err := w.fetch(ctx, task.URL)
	if err != nil {
		if ctx.Err() != nil {
			logger.Debug("fetch aborted", zap.Error(err))
			return
		}
		w.state.failed.Add(1)
		metrics.ObservePage(task.URL, metrics.PageFailed)
		logger.Warn("fetch failed", zap.Error(err))
	} else {
		w.state.fetched.Add(1)
		metrics.ObservePage(task.URL, metrics.PageFetched)
		logger.Info("page crawled", zap.String("title", page.Title), zap.Int("links", len(page.Links)))
		w.report(task, page)
		if task.Depth < w.cfg.MaxDepth {
			added := w.admitLinks(task, page.Links)
			logger.Debug("links admitted", zap.Int("found", len(page.Links)), zap.Int("added", added))
		}
	}
	metrics.SetFrontierSize(w.state.Frontier.Len())
	w.politeness(ctx, task.URL)
}

func (w *Worker) fetch(ctx context.Context, rawURL string) (crawler.Page, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, w.cfg.FetchTimeout)
	defer cancel()
	start := w.clock.Now()
	page, err := w.fetcher.Fetch(fetchCtx, rawURL)
	metrics.ObserveFetchDuration(w.clock.Now().Sub(start))
	return page, err
}

func (w *Worker) report(task crawler.Task, page crawler.Page) {
	if w.listener == nil {
		return
	}
	w.listener.PageCrawled(crawler.PageResult{
		URL:       task.URL,
		Title:     page.Title,
		Depth:     task.Depth,
		Links:     len(page.Links),
		Worker:    w.id,
		FetchedAt: w.clock.Now(),
	})
}

// admitLinks runs each link through filter, domain and visited-set checks
// and schedules the survivors one level deeper.
func (w *Worker) admitLinks(task crawler.Task, links []string) int {
	added := 0
	for _, link := range links {
		if !w.filter.Admissible(link) || !w.domain.SameDomain(link) {
			continue
		}
		switch w.state.Visited.Admit(link, w.cfg.MaxPages) {
		case crawler.Admitted:
			w.state.Frontier.Put(crawler.Task{URL: link, Depth: task.Depth + 1})
			metrics.ObserveAdmitted()
			added++
		case crawler.Full:
			return added
		}
	}
	return added
}

func (w *Worker) politeness(ctx context.Context, rawURL string) {
	if w.state.Stopped() {
		return
	}
	delay := w.cfg.CrawlDelay
	if w.cfg.RespectRobots {
		if robotsDelay := w.robots.CrawlDelayFor(ctx, crawler.HostPort(rawURL)); robotsDelay > delay {
			delay = robotsDelay
		}
	}
	if delay <= 0 {
		return
	}
	pauseCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.state.StopRequested():
			cancel()
		case <-pauseCtx.Done():
		}
	}()
	crawler.Pause(pauseCtx, delay)
}
