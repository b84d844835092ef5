// Package metrics exposes the Prometheus registry shared by the catalog
// packages. Metrics are defined next to the code that records them
// (client, cache, ratelimit, pagination) and registered via promauto.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the catalog packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects everything registered on Registry.
var Gatherer = prometheus.DefaultGatherer

// Prefix is shared by every metric this module records.
const Prefix = "catalog_"

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// CatalogFamilies returns the names of gathered metric families that
// belong to this module.
func CatalogFamilies() ([]string, error) {
	families, err := Gatherer.Gather()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), Prefix) {
			names = append(names, f.GetName())
		}
	}
	return names, nil
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - catalog_rate_limit_remaining (Gauge): Last advertised X-RateLimit-Remaining
//   - catalog_rate_limit_blocks_total (Counter): Requests held for a cooldown
//   - catalog_rate_limit_throttles_total (Counter): Requests delayed while the budget is low
//   - catalog_rate_limit_wait_seconds (Histogram): Time spent in Tracker.Wait
//
// Cache Metrics (pkg/cache):
//   - catalog_cache_hits_total{layer} (Counter): Fresh hits by backend (redis, badger)
//   - catalog_cache_misses_total (Counter): Absent or expired entries
//   - catalog_cache_writes_total{layer} (Counter): Stored entries
//   - catalog_cache_stored_bytes_total{layer} (Counter): Bytes written
//   - catalog_304_responses_total (Counter): 304 Not Modified responses
//   - catalog_conditional_requests_total (Counter): Revalidation requests sent
//   - catalog_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - catalog_requests_total{endpoint, status} (Counter): Requests by endpoint and outcome
//   - catalog_request_duration_seconds{endpoint} (Histogram): Request duration
//   - catalog_errors_total{class} (Counter): Errors by class
//   - catalog_circuit_breaker_state{name} (Gauge): 0 closed, 1 half-open, 2 open
//   - catalog_retries_total{error_class} (Counter): Retry attempts
//   - catalog_retry_backoff_seconds{error_class} (Histogram): Backoff duration
//   - catalog_retry_exhausted_total{error_class} (Counter): Requests that exhausted retries
//
// Pagination Metrics (pkg/pagination):
//   - catalog_pagination_transitions_total{event} (Counter): Applied state transitions
//   - catalog_pagination_stale_responses_total (Counter): Discarded superseded chunk responses
//   - catalog_pagination_chunk_fetch_duration_seconds{outcome} (Histogram): Chunk fetch latency
//   - catalog_pagination_fetch_errors_total (Counter): Failed chunk fetches
//   - catalog_pagination_warmed_chunks_total{outcome} (Counter): Chunks fetched by the warmer
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(catalog_cache_hits_total[5m])) /
//   (sum(rate(catalog_cache_hits_total[5m])) + sum(rate(catalog_cache_misses_total[5m])))
//
//   # Stale responses per filter change
//   rate(catalog_pagination_stale_responses_total[5m]) /
//   rate(catalog_pagination_transitions_total{event="filters_stabilized"}[5m])
//
//   # P95 Chunk Latency
//   histogram_quantile(0.95, rate(catalog_pagination_chunk_fetch_duration_seconds_bucket[5m]))
