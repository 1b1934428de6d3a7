// Package frontier provides the shared work queue of a crawl together with
// the count of tasks currently being processed.
package frontier

import (
	"sync"

	"github.com/JakeFAU/site-crawler/internal/crawler"
)

// TakeStatus describes the outcome of Frontier.Take.
type TakeStatus int

const (
	// Took means a task was returned and the in-flight count incremented.
	Took TakeStatus = iota
	// Empty means no task is queued but other tasks are still in flight and
	// may produce more work.
	Empty
	// Drained means no task is queued and none is in flight: the crawl is done.
	Drained
)

func (s TakeStatus) String() string {
	switch s {
	case Took:
		return "took"
	case Empty:
		return "empty"
	case Drained:
		return "drained"
	default:
		return "unknown"
	}
}

// Frontier is an unbounded concurrent queue of tasks. Queue contents and the
// in-flight count share one lock so "empty and idle" is observed atomically.
type Frontier struct {
	mu      sync.Mutex
	tasks   []crawler.Task
	head    int
	active  int
	changed chan struct{}
}

// New returns an empty frontier.
func New() *Frontier {
	return &Frontier{changed: make(chan struct{})}
}

// Put appends task. It never blocks.
func (f *Frontier) Put(task crawler.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	f.broadcastLocked()
}

// TryTake pops the next task without touching the in-flight count.
func (f *Frontier) TryTake() (crawler.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.popLocked()
}

// Take pops the next task and marks it in flight. Every Took result must be
// paired with exactly one Done call.
func (f *Frontier) Take() (crawler.Task, TakeStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.popLocked()
	if ok {
		f.active++
		return task, Took
	}
	if f.active == 0 {
		return crawler.Task{}, Drained
	}
	return crawler.Task{}, Empty
}

// Done marks one in-flight task as finished. Tasks it produced must be Put
// before Done is called.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == 0 {
		return
	}
	f.active--
	if f.active == 0 {
		f.broadcastLocked()
	}
}

// Changed returns a channel closed on the next Put or when the in-flight
// count drops to zero. Grab it before calling Take to avoid missing a wakeup.
func (f *Frontier) Changed() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.changed
}

// Len returns the number of queued tasks.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks) - f.head
}

// Active returns the number of tasks in flight.
func (f *Frontier) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *Frontier) popLocked() (crawler.Task, bool) {
	if f.head >= len(f.tasks) {
		return crawler.Task{}, false
	}
	task := f.tasks[f.head]
	f.tasks[f.head] = crawler.Task{}
	f.head++
	if f.head == len(f.tasks) {
		f.tasks = f.tasks[:0]
		f.head = 0
	}
	return task, true
}

func (f *Frontier) broadcastLocked() {
	close(f.changed)
	f.changed = make(chan struct{})
}
