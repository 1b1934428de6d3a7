package worker

import (
	"sync"
	"sync/atomic"

	"github.com/JakeFAU/site-crawler/internal/crawler"
	"github.com/JakeFAU/site-crawler/internal/frontier"
)

// State is the shared run state of one crawl. Every worker of the crawl
// holds the same *State.
type State struct {
	Visited  *crawler.VisitedSet
	Frontier *frontier.Frontier

	stopOnce sync.Once
	stopCh   chan struct{}
	mu       sync.Mutex
	reason   crawler.StopReason

	claimed atomic.Int64
	fetched atomic.Int64
	failed  atomic.Int64
}

// NewState returns an empty run state.
func NewState() *State {
	return &State{
		Visited:  crawler.NewVisitedSet(),
		Frontier: frontier.New(),
		stopCh:   make(chan struct{}),
	}
}

// Seed admits url at depth zero regardless of any limit.
func (s *State) Seed(url string) {
	if s.Visited.Seed(url) {
		s.Frontier.Put(crawler.Task{URL: url, Depth: 0})
	}
}

// RequestStop asks every worker to finish. The first reason is kept; it
// reports whether this call was the one that stopped the crawl.
func (s *State) RequestStop(reason crawler.StopReason) bool {
	first := false
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.reason = reason
		s.mu.Unlock()
		close(s.stopCh)
		first = true
	})
	return first
}

// Stopped reports whether a stop has been requested.
func (s *State) Stopped() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// StopRequested returns a channel closed once a stop is requested.
func (s *State) StopRequested() <-chan struct{} {
	return s.stopCh
}

// Reason returns the first stop reason, or StopNone.
func (s *State) Reason() crawler.StopReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Claimed returns the number of tasks taken from the frontier so far.
func (s *State) Claimed() int {
	return int(s.claimed.Load())
}

// Fetched returns the number of successfully fetched pages.
func (s *State) Fetched() int {
	return int(s.fetched.Load())
}

// Failed returns the number of failed fetches.
func (s *State) Failed() int {
	return int(s.failed.Load())
}
