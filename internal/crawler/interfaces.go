package crawler

import (
	"context"
	"time"
)

// Fetcher retrieves and parses a single page. Implementations must honor ctx
// cancellation and deadlines.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// RobotsPolicy answers per-URL allow/deny and per-host crawl-delay questions.
type RobotsPolicy interface {
	IsAllowed(ctx context.Context, rawURL string) bool
	CrawlDelayFor(ctx context.Context, host string) time.Duration
}

// RateLimiter paces requests per host.
type RateLimiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// ResultListener observes successfully fetched pages. It may be called from
// several worker goroutines at once.
type ResultListener interface {
	PageCrawled(result PageResult)
}

// ListenerFunc adapts a plain function to ResultListener.
type ListenerFunc func(result PageResult)

// PageCrawled implements ResultListener.
func (f ListenerFunc) PageCrawled(result PageResult) {
	if f != nil {
		f(result)
	}
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// AllowAllRobots is the RobotsPolicy used when robots handling is disabled.
type AllowAllRobots struct{}

// IsAllowed implements RobotsPolicy.
func (AllowAllRobots) IsAllowed(context.Context, string) bool { return true }

// CrawlDelayFor implements RobotsPolicy.
func (AllowAllRobots) CrawlDelayFor(context.Context, string) time.Duration { return 0 }
