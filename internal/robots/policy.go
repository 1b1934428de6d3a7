// Package robots fetches, parses and caches per-host robots.txt rules.
package robots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/site-crawler/internal/metrics"
)

// Mode selects the robots.txt parser.
type Mode string

const (
	// ModeSimple recognizes only Disallow and Crawl-delay, for every agent.
	ModeSimple Mode = "simple"
	// ModeStandard honors user-agent groups, Allow and wildcards.
	ModeStandard Mode = "standard"
)

const maxRobotsBytes = 1 << 20

// Config controls how robots files are retrieved.
type Config struct {
	Mode      Mode
	Scheme    string
	Timeout   time.Duration
	UserAgent string
	// Client overrides the default HTTP client.
	Client *http.Client
}

// FetchError reports a robots.txt that could not be retrieved. The host is
// then treated as allow-all.
type FetchError struct {
	Host       string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("robots %s: status %d", e.Host, e.StatusCode)
	}
	return fmt.Sprintf("robots %s: %v", e.Host, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Policy answers robots questions per host. Rules are fetched on first use
// and cached for the life of the Policy.
type Policy struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]RuleSet
	group singleflight.Group
}

// New builds a Policy. Zero config fields fall back to simple mode over
// https with a 10s timeout.
func New(cfg Config, logger *zap.Logger) *Policy {
	if cfg.Mode == "" {
		cfg.Mode = ModeSimple
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Policy{
		cfg:    cfg,
		client: client,
		logger: logger,
		cache:  make(map[string]RuleSet),
	}
}

// IsAllowed reports whether rawURL may be fetched. Unparsable URLs are refused.
func (p *Policy) IsAllowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	rules := p.rulesFor(ctx, u.Host)
	if rules == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return rules.Allows(path)
}

// CrawlDelayFor returns the Crawl-delay advertised by host, or zero.
func (p *Policy) CrawlDelayFor(ctx context.Context, host string) time.Duration {
	rules := p.rulesFor(ctx, host)
	if rules == nil {
		return 0
	}
	return rules.CrawlDelay()
}

// Cached returns the cached rules for host and whether host has been looked up.
func (p *Policy) Cached(host string) (RuleSet, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rules, ok := p.cache[strings.ToLower(host)]
	return rules, ok
}

func (p *Policy) rulesFor(ctx context.Context, host string) RuleSet {
	key := strings.ToLower(host)
	if rules, ok := p.Cached(key); ok {
		return rules
	}
	v, _, _ := p.group.Do(key, func() (any, error) {
		if rules, ok := p.Cached(key); ok {
			return rules, nil
		}
		rules, err := p.fetch(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				// Cancelled lookups are not cached; the next crawl retries.
				return nil, nil
			}
			metrics.ObserveRobotsFetch(resultLabel(err))
			p.logger.Info("robots.txt unavailable; allowing all paths", zap.String("host", key), zap.Error(err))
		} else {
			metrics.ObserveRobotsFetch("ok")
		}
		p.mu.Lock()
		p.cache[key] = rules
		p.mu.Unlock()
		return rules, nil
	})
	rules, _ := v.(RuleSet)
	return rules
}

func (p *Policy) fetch(ctx context.Context, host string) (RuleSet, error) {
	robotsURL := p.cfg.Scheme + "://" + host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, &FetchError{Host: host, Err: fmt.Errorf("new robots request: %w", err)}
	}
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &FetchError{Host: host, Err: fmt.Errorf("fetch robots: %w", err)}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			p.logger.Debug("Failed to close robots response body", zap.Error(cerr))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Host: host, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, &FetchError{Host: host, Err: fmt.Errorf("read robots body: %w", err)}
	}
	if p.cfg.Mode == ModeStandard {
		rules, err := parseStandard(body, p.cfg.UserAgent)
		if err != nil {
			return nil, &FetchError{Host: host, Err: fmt.Errorf("parse robots: %w", err)}
		}
		return rules, nil
	}
	return ParseRules(body), nil
}

func resultLabel(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) && fe.StatusCode != 0 {
		return "status"
	}
	return "error"
}
