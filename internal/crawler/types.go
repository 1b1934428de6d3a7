package crawler

import (
	"time"
)

// Task is one unit of frontier work. It is a value type; ownership passes from
// the worker that admitted it to the single worker that takes it.
type Task struct {
	URL   string
	Depth int
}

// Page is what a Fetcher returns for a successfully retrieved document.
// Links must already be resolved to absolute URLs.
type Page struct {
	URL        string
	StatusCode int
	Title      string
	Links      []string
}

// PageResult is reported to a ResultListener once per fetched page.
type PageResult struct {
	URL       string
	Title     string
	Depth     int
	Links     int
	Worker    int
	FetchedAt time.Time
}

// StopReason records why a crawl ended.
type StopReason string

// Stop reasons reported in a Summary.
const (
	StopNone      StopReason = ""
	StopCompleted StopReason = "completed"
	StopBudget    StopReason = "budget_exhausted"
	StopRequested StopReason = "stopped"
	StopDeadline  StopReason = "deadline"
)

// Summary is the final report of one crawl.
type Summary struct {
	SeedURL   string        `json:"seed_url"`
	Admitted  int           `json:"admitted"`
	Fetched   int           `json:"fetched"`
	Failed    int           `json:"failed"`
	Remaining int           `json:"remaining"`
	Reason    StopReason    `json:"reason"`
	Duration  time.Duration `json:"duration"`
}
