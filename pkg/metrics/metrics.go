// Package metrics provides the centralized Prometheus metrics registry for
// the Marketstack client. All metrics are defined in their respective
// packages (client, ratelimit, transport) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the Marketstack client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - marketstack_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - marketstack_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - marketstack_errors_total{kind} (Counter): Errors by kind (validation, auth, rate_limit, network, response)
//   - marketstack_records_fetched_total (Counter): End-of-day records fetched
//   - marketstack_query_pages (Histogram): Pages fetched per completed query
//
// Rate Limit Metrics (pkg/ratelimit):
//   - marketstack_ratelimit_acquires_total{limiter} (Counter): Request slots granted by limiter
//   - marketstack_ratelimit_throttled_total{limiter} (Counter): Acquisitions that had to wait
//   - marketstack_ratelimit_wait_seconds{limiter} (Histogram): Time spent waiting for a slot
//
// Retry Metrics (pkg/transport):
//   - marketstack_retries_total{reason} (Counter): Retry attempts by reason (server_error, network)
//   - marketstack_retry_backoff_seconds{reason} (Histogram): Backoff duration by reason
//   - marketstack_retry_exhausted_total{reason} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Request Error Rate
//   rate(marketstack_errors_total[5m])
//
//   # Throttle Rate
//   sum(rate(marketstack_ratelimit_throttled_total[5m])) /
//   sum(rate(marketstack_ratelimit_acquires_total[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(marketstack_request_duration_seconds_bucket[5m]))
//
//   # Rows per Query
//   rate(marketstack_records_fetched_total[5m])
