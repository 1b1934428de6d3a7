// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-crawler/internal/api"
	"github.com/JakeFAU/site-crawler/internal/clock/system"
	"github.com/JakeFAU/site-crawler/internal/config"
	"github.com/JakeFAU/site-crawler/internal/coordinator"
	"github.com/JakeFAU/site-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/site-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/site-crawler/internal/id/uuid"
	"github.com/JakeFAU/site-crawler/internal/logging"
	"github.com/JakeFAU/site-crawler/internal/metrics"
	"github.com/JakeFAU/site-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/site-crawler/internal/robots"
	"github.com/JakeFAU/site-crawler/internal/session"
)

// App holds the shared, long-lived services for the application. It is
// built once at startup by the root command and closed when it exits.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	ids    *uuid.Generator
	clock  *system.Clock
}

// Option customizes App construction.
type Option func(*App)

// WithLogger replaces the logger built from the logging config.
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// New validates cfg and initializes logging and metrics.
func New(cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	a := &App{
		cfg:   cfg,
		ids:   uuid.New(),
		clock: system.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
		a.logger = logger
	}
	metrics.Init()
	a.logger.Debug("application services initialized",
		zap.Int("port", cfg.Server.Port),
		zap.String("robots_mode", cfg.Robots.Mode),
	)
	return a, nil
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// NewCoordinator wires a coordinator for one crawl. Each crawl gets its own
// robots cache and rate limiter.
func (a *App) NewCoordinator(cc crawler.Config) (*coordinator.Coordinator, error) {
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cc.UserAgent,
		Timeout:   cc.FetchTimeout,
	})
	var policy crawler.RobotsPolicy
	if cc.RespectRobots {
		rc := a.cfg.RobotsPolicy()
		if cc.UserAgent != "" {
			rc.UserAgent = cc.UserAgent
		}
		policy = robots.New(rc, a.logger.Named("robots"))
	}
	limiter := ratelimit.New(ratelimit.Config{PerSecond: cc.RateLimitPerSecond})
	coord, err := coordinator.New(cc, fetcher, policy, a.logger.Named("crawler"),
		coordinator.WithRateLimiter(limiter),
		coordinator.WithClock(a.clock),
	)
	if err != nil {
		return nil, fmt.Errorf("build coordinator: %w", err)
	}
	return coord, nil
}

// NewSessionManager returns a manager whose crawls default to the crawler
// config section.
func (a *App) NewSessionManager() *session.Manager {
	factory := func(cc crawler.Config) (session.Crawl, error) {
		coord, err := a.NewCoordinator(cc)
		if err != nil {
			return nil, err
		}
		return coord, nil
	}
	return session.NewManager(a.cfg.Crawl(), factory, a.ids, a.clock, a.logger.Named("session"))
}

// NewServer builds the HTTP control surface over sessions.
func (a *App) NewServer(sessions api.Sessions) *api.Server {
	return api.NewServer(sessions, a.cfg.Crawl(), a.ids, a.logger.Named("http"))
}

// Close flushes the logger.
func (a *App) Close() {
	a.logger.Debug("shutting down application services")
	// Sync fails on stderr/stdout for some platforms; nothing useful can be done.
	_ = a.logger.Sync()
}
