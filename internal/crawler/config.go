package crawler

import (
	"fmt"
	"strings"
	"time"
)

// Defaults applied by Config.WithDefaults.
const (
	DefaultMaxPages       = 50
	DefaultMaxDepth       = 2
	DefaultWorkers        = 4
	DefaultCrawlDelay     = 500 * time.Millisecond
	DefaultFetchTimeout   = 10 * time.Second
	DefaultDeadline       = 5 * time.Minute
	DefaultIdleBackoffMin = 25 * time.Millisecond
	DefaultIdleBackoffMax = 200 * time.Millisecond
	DefaultUserAgent      = "site-crawler/1.0 (+https://github.com/JakeFAU/site-crawler)"
)

// DefaultBlockedExtensions lists path fragments that indicate binary resources.
var DefaultBlockedExtensions = []string{".pdf", ".jpg", ".png", ".zip"}

// Config captures every knob that influences one crawl. It is decoupled from
// Viper and is treated as immutable once a crawl starts.
type Config struct {
	SeedURL            string
	SeedDomain         string
	MaxPages           int
	MaxDepth           int
	Workers            int
	CrawlDelay         time.Duration
	FetchTimeout       time.Duration
	Deadline           time.Duration
	IdleBackoffMin     time.Duration
	IdleBackoffMax     time.Duration
	RespectRobots      bool
	UserAgent          string
	DenyDomains        []string
	BlockedExtensions  []string
	RateLimitPerSecond float64
}

// WithDefaults fills zero-valued durations and collections. Limits that are
// legitimately zero (MaxDepth, CrawlDelay) are left alone.
func (c Config) WithDefaults() Config {
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.Deadline <= 0 {
		c.Deadline = DefaultDeadline
	}
	if c.IdleBackoffMin <= 0 {
		c.IdleBackoffMin = DefaultIdleBackoffMin
	}
	if c.IdleBackoffMax < c.IdleBackoffMin {
		c.IdleBackoffMax = max(DefaultIdleBackoffMax, c.IdleBackoffMin)
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.BlockedExtensions == nil {
		c.BlockedExtensions = append([]string(nil), DefaultBlockedExtensions...)
	}
	return c
}

// WithSeed returns a copy bound to seedURL with the derived seed domain.
func (c Config) WithSeed(seedURL string) Config {
	c.SeedURL = strings.TrimSpace(seedURL)
	c.SeedDomain = ExtractDomain(c.SeedURL)
	return c
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be > 0")
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("crawler.max_depth must be >= 0")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("crawler.workers must be > 0")
	}
	if c.CrawlDelay < 0 {
		return fmt.Errorf("crawler.crawl_delay must be >= 0")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("crawler.fetch_timeout must be > 0")
	}
	if c.Deadline <= 0 {
		return fmt.Errorf("crawler.deadline must be > 0")
	}
	if c.IdleBackoffMin <= 0 || c.IdleBackoffMax < c.IdleBackoffMin {
		return fmt.Errorf("crawler.idle_backoff_min must be > 0 and <= crawler.idle_backoff_max")
	}
	if c.RateLimitPerSecond < 0 {
		return fmt.Errorf("crawler.rate_limit_per_second must be >= 0")
	}
	return nil
}
