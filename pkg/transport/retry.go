// Package transport provides optional http.RoundTripper middleware for the
// client. Retry policy lives here, not in the query path: a query either
// completes or fails with its first error, and callers who want retries
// opt in at the transport layer where the request is known to be safe to
// repeat.
package transport

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for transport retries.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketstack_retries_total",
		Help: "Total retry attempts by reason",
	}, []string{"reason"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketstack_retry_backoff_seconds",
		Help:    "Backoff duration before each retry by reason",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"reason"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketstack_retry_exhausted_total",
		Help: "Total times the retry budget ran out by reason",
	}, []string{"reason"})
)

// ErrRetryExhausted is returned when every attempt failed with a transport
// error. Exhaustion on server errors instead hands the last response back
// to the caller, whose error mapping knows what the body means.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// RetryConfig holds the retry policy.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, the first included.
	MaxAttempts int

	// InitialBackoff is the wait before the first retry; each further
	// wait doubles by BackoffMultiplier up to MaxBackoff, with ±20%
	// jitter.
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Retry is an http.RoundTripper that repeats GET and HEAD requests on
// transport errors and 5xx responses. 4xx responses, including the
// provider's rate-limit rejections, pass through untouched: repeating
// those only spends more budget on the same answer.
type Retry struct {
	base http.RoundTripper
	cfg  RetryConfig
}

// NewRetry wraps base with the given policy. A nil base means
// http.DefaultTransport.
func NewRetry(base http.RoundTripper, cfg RetryConfig) *Retry {
	if base == nil {
		base = http.DefaultTransport
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultRetryConfig().MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultRetryConfig().InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultRetryConfig().MaxBackoff
	}
	if cfg.BackoffMultiplier <= 1 {
		cfg.BackoffMultiplier = DefaultRetryConfig().BackoffMultiplier
	}
	return &Retry{base: base, cfg: cfg}
}

// RoundTrip implements http.RoundTripper.
func (t *Retry) RoundTrip(req *http.Request) (*http.Response, error) {
	// Only requests with nothing to replay are repeated.
	if (req.Method != http.MethodGet && req.Method != http.MethodHead) || req.Body != nil {
		return t.base.RoundTrip(req)
	}

	backoff := t.cfg.InitialBackoff
	for attempt := 1; ; attempt++ {
		resp, err := t.base.RoundTrip(req)

		retryable := err != nil || resp.StatusCode >= 500
		if !retryable {
			if attempt > 1 {
				log.Info().
					Int("attempt", attempt).
					Str("url", req.URL.Path).
					Msg("Request succeeded after retry")
			}
			return resp, nil
		}

		reason := "network"
		if err == nil {
			reason = "server_error"
		}

		if attempt >= t.cfg.MaxAttempts {
			retryExhaustedTotal.WithLabelValues(reason).Inc()
			log.Warn().
				Int("attempts", attempt).
				Str("reason", reason).
				Str("url", req.URL.Path).
				Msg("Retry attempts exhausted")
			if err != nil {
				return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, attempt, err)
			}
			// The caller's error mapping wants the provider's last word.
			return resp, nil
		}

		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		retriesTotal.WithLabelValues(reason).Inc()
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		retryBackoffSeconds.WithLabelValues(reason).Observe(jitter.Seconds())

		log.Debug().
			Int("attempt", attempt).
			Str("reason", reason).
			Dur("backoff", jitter).
			Str("url", req.URL.Path).
			Msg("Retrying request after backoff")

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * t.cfg.BackoffMultiplier)
		if backoff > t.cfg.MaxBackoff {
			backoff = t.cfg.MaxBackoff
		}
	}
}
