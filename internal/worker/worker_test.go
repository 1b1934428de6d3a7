package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-crawler/internal/crawler"
)

func testConfig(seed string) crawler.Config {
	return crawler.Config{
		MaxPages:       10,
		MaxDepth:       1,
		Workers:        1,
		FetchTimeout:   time.Second,
		IdleBackoffMin: time.Millisecond,
		IdleBackoffMax: 5 * time.Millisecond,
	}.WithDefaults().WithSeed(seed)
}

func runWorker(t *testing.T, cfg crawler.Config, state *State, deps Deps) {
	t.Helper()
	deps.Logger = zap.NewNop()
	w := New(0, cfg, state, deps)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(context.Background())
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not finish")
	}
}

func TestWorkerCrawlsToDrain(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(map[string][]string{
		"https://example.test/":  {"https://example.test/b", "https://example.test/c", "https://other.test/x"},
		"https://example.test/b": {"https://example.test/d"},
	})
	var mu sync.Mutex
	var results []crawler.PageResult
	listener := crawler.ListenerFunc(func(r crawler.PageResult) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
	})

	cfg := testConfig("https://example.test/")
	state := NewState()
	state.Seed(cfg.SeedURL)
	runWorker(t, cfg, state, Deps{Fetcher: fetcher, Listener: listener})

	require.Equal(t, crawler.StopCompleted, state.Reason())
	require.ElementsMatch(t, []string{
		"https://example.test/", "https://example.test/b", "https://example.test/c",
	}, fetcher.fetched())
	require.False(t, state.Visited.Contains("https://example.test/d"), "depth bound excludes d")
	require.False(t, state.Visited.Contains("https://other.test/x"))
	require.Equal(t, 3, state.Fetched())
	require.Len(t, results, 3)
	require.Equal(t, "https://example.test/", results[0].URL)
	require.Equal(t, 0, results[0].Depth)
	require.Equal(t, 3, results[0].Links)
	require.Zero(t, state.Frontier.Active())
}

func TestWorkerDropsTooDeepTask(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(nil)
	cfg := testConfig("https://example.test/")
	state := NewState()
	state.Visited.Seed("https://example.test/deep")
	state.Frontier.Put(crawler.Task{URL: "https://example.test/deep", Depth: 2})

	runWorker(t, cfg, state, Deps{Fetcher: fetcher})
	require.Empty(t, fetcher.fetched())
	require.Equal(t, crawler.StopCompleted, state.Reason())
}

func TestWorkerHonorsRobots(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(map[string][]string{
		"https://example.test/": {"https://example.test/private/page", "https://example.test/public/page"},
	})
	cfg := testConfig("https://example.test/")
	cfg.RespectRobots = true
	state := NewState()
	state.Seed(cfg.SeedURL)

	runWorker(t, cfg, state, Deps{Fetcher: fetcher, Robots: &fakeRobots{disallow: "/private"}})
	require.ElementsMatch(t, []string{"https://example.test/", "https://example.test/public/page"}, fetcher.fetched())
}

func TestWorkerCountsFetchFailures(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(map[string][]string{
		"https://example.test/": {"https://example.test/broken"},
	})
	fetcher.failures["https://example.test/broken"] = errors.New("boom")
	cfg := testConfig("https://example.test/")
	state := NewState()
	state.Seed(cfg.SeedURL)

	runWorker(t, cfg, state, Deps{Fetcher: fetcher})
	require.Equal(t, 1, state.Fetched())
	require.Equal(t, 1, state.Failed())
	require.Equal(t, crawler.StopCompleted, state.Reason())
}

func TestWorkerStopsOnPageBudget(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(map[string][]string{
		"https://example.test/": {"https://example.test/a", "https://example.test/b"},
	})
	cfg := testConfig("https://example.test/")
	cfg.MaxPages = 1
	state := NewState()
	state.Seed(cfg.SeedURL)

	runWorker(t, cfg, state, Deps{Fetcher: fetcher})
	require.Equal(t, []string{"https://example.test/"}, fetcher.fetched())
	require.Equal(t, crawler.StopBudget, state.Reason())
	require.Equal(t, 1, state.Visited.Len())
}

func TestWorkerPolitenessUsesRobotsDelayAndSkipsAfterStop(t *testing.T) {
	t.Parallel()

	cfg := testConfig("https://example.test/")
	cfg.RespectRobots = true
	cfg.CrawlDelay = time.Millisecond
	state := NewState()
	w := New(0, cfg, state, Deps{Fetcher: newFakeFetcher(nil), Robots: &fakeRobots{delay: 5 * time.Second}})

	go func() {
		time.Sleep(20 * time.Millisecond)
		state.RequestStop(crawler.StopRequested)
	}()
	start := time.Now()
	w.politeness(context.Background(), "https://example.test/")
	require.Less(t, time.Since(start), 2*time.Second, "stop interrupts the robots crawl delay")

	start = time.Now()
	w.politeness(context.Background(), "https://example.test/")
	require.Less(t, time.Since(start), 10*time.Millisecond, "no pause once stopped")
}

func TestWorkerWaitsForPeerThenExitsOnStop(t *testing.T) {
	t.Parallel()

	cfg := testConfig("https://example.test/")
	state := NewState()
	state.Frontier.Put(crawler.Task{URL: "held"})
	_, _ = state.Frontier.Take()

	w := New(1, cfg, state, Deps{Fetcher: newFakeFetcher(nil)})
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(context.Background())
	}()

	select {
	case <-done:
		t.Fatal("worker exited while a peer task was in flight")
	case <-time.After(30 * time.Millisecond):
	}
	require.True(t, state.RequestStop(crawler.StopRequested))
	require.False(t, state.RequestStop(crawler.StopDeadline), "first reason wins")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker ignored stop")
	}
	require.Equal(t, crawler.StopRequested, state.Reason())
}

type fakeFetcher struct {
	mu       sync.Mutex
	graph    map[string][]string
	failures map[string]error
	calls    []string
}

func newFakeFetcher(graph map[string][]string) *fakeFetcher {
	return &fakeFetcher{graph: graph, failures: map[string]error{}}
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (crawler.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	err := f.failures[rawURL]
	links := f.graph[rawURL]
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return crawler.Page{}, err
	}
	if err != nil {
		return crawler.Page{}, &crawler.FetchError{URL: rawURL, Err: err}
	}
	return crawler.Page{URL: rawURL, StatusCode: 200, Title: "title " + rawURL, Links: links}, nil
}

func (f *fakeFetcher) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeRobots struct {
	disallow string
	delay    time.Duration
}

func (r *fakeRobots) IsAllowed(_ context.Context, rawURL string) bool {
	if r.disallow == "" {
		return true
	}
	path := rawURL
	if i := strings.Index(rawURL, "://"); i >= 0 {
		rest := rawURL[i+3:]
		if j := strings.Index(rest, "/"); j >= 0 {
			path = rest[j:]
		}
	}
	return !strings.HasPrefix(path, r.disallow)
}

func (r *fakeRobots) CrawlDelayFor(context.Context, string) time.Duration {
	return r.delay
}
