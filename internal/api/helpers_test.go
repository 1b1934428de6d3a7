package api

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/site-crawler/internal/crawler"
)

type staticID string

func (s staticID) NewID() (string, error) { return string(s), nil }

type staticClock struct{}

func (staticClock) Now() time.Time { return time.Unix(0, 0).UTC() }

// blockingCrawl reports its seed and then waits for Stop or release.
type blockingCrawl struct {
	listener crawler.ResultListener
	release  chan struct{}
	once     sync.Once
	stopped  chan struct{}
}

func (b *blockingCrawl) SetResultListener(l crawler.ResultListener) {
	b.listener = l
	b.stopped = make(chan struct{})
}

func (b *blockingCrawl) Start(_ context.Context, seed string) (crawler.Summary, error) {
	b.listener.PageCrawled(crawler.PageResult{URL: seed})
	select {
	case <-b.release:
		return crawler.Summary{SeedURL: seed, Fetched: 1, Reason: crawler.StopCompleted}, nil
	case <-b.stopped:
		return crawler.Summary{SeedURL: seed, Fetched: 1, Reason: crawler.StopRequested}, nil
	}
}

func (b *blockingCrawl) Stop() {
	b.once.Do(func() { close(b.stopped) })
}

func (b *blockingCrawl) Progress() crawler.Summary { return crawler.Summary{Fetched: 1} }
