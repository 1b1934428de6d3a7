package crawler

import (
	"context"
	"sync"
	"time"
)

// AdmitResult describes the outcome of VisitedSet.Admit.
type AdmitResult int

const (
	// Admitted means the URL was new and has been recorded.
	Admitted AdmitResult = iota
	// Duplicate means the URL was already recorded.
	Duplicate
	// Full means the set already holds the page budget.
	Full
)

func (r AdmitResult) String() string {
	switch r {
	case Admitted:
		return "admitted"
	case Duplicate:
		return "duplicate"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// VisitedSet records every URL ever admitted to a crawl. URLs are compared
// as exact strings; no normalization is applied.
type VisitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewVisitedSet returns an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

// Seed records url unconditionally and reports whether it was new.
func (v *VisitedSet) Seed(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.seen[url]; ok {
		return false
	}
	v.seen[url] = struct{}{}
	return true
}

// Admit performs the capacity check, the membership check and the insert
// as one step, so concurrent callers can never admit the same URL twice or
// push the set past limit.
func (v *VisitedSet) Admit(url string, limit int) AdmitResult {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.seen) >= limit {
		return Full
	}
	if _, ok := v.seen[url]; ok {
		return Duplicate
	}
	v.seen[url] = struct{}{}
	return Admitted
}

// Contains reports whether url has been admitted.
func (v *VisitedSet) Contains(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.seen[url]
	return ok
}

// Len returns the number of admitted URLs.
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}

// Pause sleeps for delay or until ctx is done, whichever comes first. It
// reports false when the context ended the wait.
func Pause(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
