// Package crawler defines the shared vocabulary of the crawl engine: tasks,
// pages, configuration, the fetcher and listener contracts, and the pure
// admission policies (URL filter, domain policy, visited set) that workers
// consult before scheduling a link.
package crawler
