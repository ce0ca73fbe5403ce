// Package client provides the Marketstack end-of-day client: plan-aware
// request building, client-side rate limiting, response decoding, and
// query orchestration over paginated results.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/markovejnovic/go-marketstack/pkg/eod"
	"github.com/markovejnovic/go-marketstack/pkg/pagination"
	"github.com/markovejnovic/go-marketstack/pkg/plan"
	"github.com/markovejnovic/go-marketstack/pkg/ratelimit"
)

// Provider base URLs. The free tier is served over plain HTTP only; TLS
// requests on a free key come back as https_access_restricted.
const (
	HTTPSBaseURL = "https://api.marketstack.com"
	HTTPBaseURL  = "http://api.marketstack.com"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "go-marketstack"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketstack_requests_total",
		Help: "Total provider requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketstack_request_duration_seconds",
		Help:    "Provider request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketstack_errors_total",
		Help: "Total query and request errors by kind",
	}, []string{"kind"})

	recordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketstack_records_fetched_total",
		Help: "Total end-of-day records fetched",
	})

	queryPages = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "marketstack_query_pages",
		Help:    "Pages fetched per completed query",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})
)

// Client fetches end-of-day market data within the bounds of one
// subscription plan. One Client serves many goroutines; all of its
// queries draw from the same rate budget.
type Client struct {
	httpClient *http.Client
	limiter    ratelimit.Limiter
	config     Config
	limits     plan.Limits
	baseURL    string
	logger     zerolog.Logger
	closed     atomic.Bool
}

// Config holds the client configuration.
type Config struct {
	// AccessKey authenticates every request. Required.
	AccessKey string

	// Plan is the subscription tier whose limits are enforced
	// client-side. The zero value is Free, the most restrictive tier.
	Plan plan.Plan

	// BaseURL overrides the provider endpoint, for tests and proxies.
	// Empty selects HTTPSBaseURL, or HTTPBaseURL on the Free plan.
	BaseURL string

	// HTTPClient performs the actual requests. Optional; when nil a
	// client with Timeout is used. Wrap a transport with
	// transport.NewRetry to add retries outside this package.
	HTTPClient *http.Client

	// Limiter paces outbound requests. Optional; defaults to a
	// ratelimit.FixedWindow sized from the plan. Hand several clients
	// one limiter, or a RedisWindow, to pool their budget.
	Limiter ratelimit.Limiter

	// MaxPagesPerQuery caps the page walk of a single query. Zero
	// selects pagination.DefaultMaxPages.
	MaxPagesPerQuery int

	// Timeout bounds one HTTP exchange of the default HTTP client.
	// Zero means 30s. Ignored when HTTPClient is set.
	Timeout time.Duration

	// UserAgent overrides the User-Agent header.
	UserAgent string
}

// DefaultConfig returns a configuration with conservative defaults for
// the given credentials.
func DefaultConfig(accessKey string, p plan.Plan) Config {
	cfg := Config{
		AccessKey: accessKey,
		Plan:      p,
		BaseURL:   HTTPSBaseURL,
		Timeout:   defaultTimeout,
	}
	if p == plan.Free {
		cfg.BaseURL = HTTPBaseURL
	}
	return cfg
}

// New creates a Client. The Client is ready for concurrent use and should
// be Closed when done.
func New(cfg Config) (*Client, error) {
	if cfg.AccessKey == "" {
		return nil, fmt.Errorf("access key is required")
	}
	if !cfg.Plan.Valid() {
		return nil, fmt.Errorf("unknown plan %d", cfg.Plan)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = HTTPSBaseURL
		if cfg.Plan == plan.Free {
			baseURL = HTTPBaseURL
		}
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if u, err := url.Parse(baseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	logger := log.With().Str("component", "marketstack-client").Logger()

	if cfg.Plan == plan.Free && strings.HasPrefix(baseURL, "https://") {
		logger.Warn().Msg("Free plan keys are rejected over HTTPS; expect https_access_restricted errors")
	}

	limits := plan.LimitsFor(cfg.Plan)

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.NewFixedWindow(limits.MaxRequestsPerWindow, limits.Window)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	return &Client{
		httpClient: httpClient,
		limiter:    limiter,
		config:     cfg,
		limits:     limits,
		baseURL:    baseURL,
		logger:     logger,
	}, nil
}

// Limits returns the plan limits the client enforces.
func (c *Client) Limits() plan.Limits {
	return c.limits
}

// Close releases the client. In-flight queries fail at their next page;
// later calls return ErrClientClosed. Closing twice is safe.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.httpClient.CloseIdleConnections()
	return nil
}

// FetchRange fetches every end-of-day record matching q, walking as many
// pages as the result set needs. It returns either the complete
// concatenation in provider order or the first error, never a partial
// result.
func (c *Client) FetchRange(ctx context.Context, q eod.Query) ([]eod.Record, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if err := c.validateQuery(q); err != nil {
		return nil, err
	}
	return c.collect(ctx, c, q)
}

// FetchDay fetches every record for one trading day. Tiers with the
// date-lookup entitlement use the single-date endpoint; the Free tier
// transparently falls back to a one-day range query.
func (c *Client) FetchDay(ctx context.Context, day eod.Date, symbols ...string) ([]eod.Record, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if day.IsZero() {
		return nil, validationError("day", "a date is required")
	}
	q := eod.Query{Symbols: symbols, From: day, To: day}
	if err := c.validateQuery(q); err != nil {
		return nil, err
	}
	if !c.limits.DateLookup {
		return c.collect(ctx, c, q)
	}
	return c.collect(ctx, dayFetcher{c: c, day: day}, q)
}

// Pages returns a Pager over q for callers that want to stream pages
// instead of holding the whole result in memory:
//
//	pager, err := c.Pages(query)
//	...
//	for pager.Next(ctx) {
//		use(pager.Page())
//	}
//	if err := pager.Err(); err != nil {
//		...
//	}
func (c *Client) Pages(q eod.Query) (*pagination.Pager, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if err := c.validateQuery(q); err != nil {
		return nil, err
	}
	return pagination.NewPager(c, q, c.pagerConfig()), nil
}

// collect drives a pager over fetcher and concatenates its pages.
func (c *Client) collect(ctx context.Context, fetcher pagination.PageFetcher, q eod.Query) ([]eod.Record, error) {
	lc := c.logger.With().
		Str("query_id", uuid.NewString()).
		Strs("symbols", q.Symbols).
		Str("from", q.From.String()).
		Str("to", q.To.String())
	if q.Exchange != "" {
		lc = lc.Str("exchange", q.Exchange)
	}
	logger := lc.Logger()

	start := time.Now()
	pager := pagination.NewPager(fetcher, q, c.pagerConfig())

	var records []eod.Record
	for pager.Next(ctx) {
		records = append(records, pager.Page().Records...)
	}
	if err := pager.Err(); err != nil {
		logger.Warn().
			Err(err).
			Int("pages", pager.Cursor().Pages).
			Dur("duration", time.Since(start)).
			Msg("Query failed")
		return nil, err
	}

	cur := pager.Cursor()
	queryPages.Observe(float64(cur.Pages))
	logger.Info().
		Int("rows", len(records)).
		Int("pages", cur.Pages).
		Dur("duration", time.Since(start)).
		Msg("Query complete")
	return records, nil
}

func (c *Client) pagerConfig() pagination.Config {
	return pagination.Config{
		Limit:    c.limits.MaxRowsPerPage,
		MaxPages: c.config.MaxPagesPerQuery,
	}
}
