// Package metrics exposes Prometheus collectors for the crawler service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Page outcome labels for ObservePage.
const (
	PageFetched    = "fetched"
	PageFailed     = "failed"
	PageDisallowed = "disallowed"
	PageTooDeep    = "too_deep"
)

var (
	crawlerPagesTotal             *prometheus.CounterVec
	crawlerAdmittedTotal          prometheus.Counter
	crawlerActiveWorkers          prometheus.Gauge
	crawlerFrontierSize           prometheus.Gauge
	crawlerRobotsFetchTotal       *prometheus.CounterVec
	crawlerFetchDurationSeconds   prometheus.Histogram
	crawlerCrawlsTotal            *prometheus.CounterVec
	crawlerRateLimitDelaysSeconds *prometheus.HistogramVec
	httpRequestsTotal             *prometheus.CounterVec
	httpRequestDurationSeconds    *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_pages_total",
				Help: "Total number of dequeued pages, labeled by site and outcome.",
			},
			[]string{"site", "status"},
		)

		crawlerAdmittedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_admitted_total",
				Help: "Total number of URLs admitted to a frontier, seeds included.",
			},
		)

		crawlerActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_active_workers",
				Help: "Number of workers currently processing a task.",
			},
		)

		crawlerFrontierSize = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_frontier_size",
				Help: "Number of tasks waiting in the frontier of the running crawl.",
			},
		)

		crawlerRobotsFetchTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_robots_fetch_total",
				Help: "Total number of robots.txt fetches, labeled by result.",
			},
			[]string{"result"},
		)

		crawlerFetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		)

		crawlerCrawlsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_crawls_total",
				Help: "Total number of finished crawls, labeled by stop reason.",
			},
			[]string{"reason"},
		)

		crawlerRateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage counts a dequeued page under one of the Page* outcomes.
func ObservePage(rawURL, status string) {
	Init()
	crawlerPagesTotal.WithLabelValues(SanitizeSite(rawURL), status).Inc()
}

// ObserveAdmitted counts a URL admitted to the frontier.
func ObserveAdmitted() {
	Init()
	crawlerAdmittedTotal.Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	crawlerActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	crawlerActiveWorkers.Dec()
}

// SetFrontierSize records the current frontier length.
func SetFrontierSize(n int) {
	Init()
	crawlerFrontierSize.Set(float64(n))
}

// ObserveRobotsFetch counts a robots.txt lookup by result ("ok", "error", "status").
func ObserveRobotsFetch(result string) {
	Init()
	crawlerRobotsFetchTotal.WithLabelValues(result).Inc()
}

// ObserveFetchDuration records how long one page fetch took.
func ObserveFetchDuration(duration time.Duration) {
	Init()
	crawlerFetchDurationSeconds.Observe(duration.Seconds())
}

// ObserveCrawl counts a finished crawl by stop reason.
func ObserveCrawl(reason string) {
	Init()
	crawlerCrawlsTotal.WithLabelValues(reason).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	crawlerRateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
