// Package api hosts the HTTP control surface of the crawler service.
// Routes:
//   - POST /api/crawl/start starts a crawl from a seed URL.
//   - POST /api/crawl/stop stops the active crawl.
//   - GET /api/crawl/status reports the state and the URLs crawled so far.
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
package api
