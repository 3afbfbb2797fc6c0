// Package metrics exposes the relay's Prometheus surface.
// Domain metrics live in their own packages (client, pagination, cache,
// ratelimit) and register through promauto; this package owns the inbound
// HTTP metrics and the scrape handler.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_http_requests_total",
			Help: "Inbound HTTP requests by method, route and status class",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_http_request_duration_seconds",
			Help:    "Inbound HTTP request duration by method and route",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"method", "route"},
	)
)

// RecordRequest records one served inbound request.
func RecordRequest(method, route string, statusCode int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, StatusClass(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// StatusClass buckets an HTTP status code as "2xx", "4xx" and so on.
func StatusClass(statusCode int) string {
	if statusCode < 100 || statusCode > 599 {
		return "unknown"
	}
	return strconv.Itoa(statusCode/100) + "xx"
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Upstream Metrics (pkg/client):
//   - relay_upstream_requests_total{status} (Counter): Page requests by HTTP status
//   - relay_upstream_request_duration_seconds (Histogram): Page request duration
//   - relay_upstream_errors_total{class} (Counter): Failures by class (client, server, unexpected_status, network, decode)
//   - relay_upstream_records_total (Counter): Records received from upstream
//
// Pagination Metrics (pkg/pagination):
//   - relay_fetches_total{result} (Counter): Complete fetches by result
//   - relay_fetch_pages (Histogram): Pages requested per fetch
//   - relay_fetch_duration_seconds (Histogram): Wall time of a complete fetch
//
// Cache Metrics (pkg/cache):
//   - relay_cache_hits_total{layer} (Counter): Result cache hits by layer (memory, redis)
//   - relay_cache_misses_total (Counter): Result cache misses
//   - relay_cache_errors_total{operation} (Counter): Cache store errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - relay_rate_limit_blocks_total (Counter): Inbound requests rejected with 429
//   - relay_rate_limit_clients (Gauge): Clients tracked by the limiter
//
// HTTP Metrics (pkg/metrics):
//   - relay_http_requests_total{method, route, status} (Counter)
//   - relay_http_request_duration_seconds{method, route} (Histogram)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(relay_cache_hits_total[5m])) /
//   (sum(rate(relay_cache_hits_total[5m])) + sum(rate(relay_cache_misses_total[5m])))
//
//   # Upstream Error Rate
//   rate(relay_upstream_errors_total[5m])
//
//   # P95 Fetch Latency
//   histogram_quantile(0.95, rate(relay_fetch_duration_seconds_bucket[5m]))
