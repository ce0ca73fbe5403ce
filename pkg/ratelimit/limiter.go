// Package ratelimit gates outbound requests against the per-window request
// budget of a subscription tier. The provider enforces its budget
// server-side and rejects overruns with HTTP 429; the limiters here spend
// the same budget client-side so a well-configured client never has to see
// that rejection.
//
// Three implementations are provided. FixedWindow mirrors the provider's
// own accounting and is the default. TokenBucket smooths requests out over
// the window instead of allowing a burst at its start. RedisWindow shares
// one budget across processes.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for request gating.
var (
	acquiresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketstack_ratelimit_acquires_total",
		Help: "Total number of request slots granted, by limiter implementation",
	}, []string{"limiter"})

	throttledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketstack_ratelimit_throttled_total",
		Help: "Total number of acquisitions that had to wait for budget, by limiter implementation",
	}, []string{"limiter"})

	waitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketstack_ratelimit_wait_seconds",
		Help:    "Time spent waiting for a request slot, by limiter implementation",
		Buckets: prometheus.DefBuckets,
	}, []string{"limiter"})
)

// Limiter admits one outbound request per Acquire call.
type Limiter interface {
	// Acquire blocks until the budget allows one more request. A nil
	// return is a granted slot that cannot be given back. Acquire fails
	// when ctx ends first, or when a shared backend is unreachable.
	Acquire(ctx context.Context) error
}

// FixedWindow allows up to limit acquisitions per window, counted from the
// first acquisition of each window. This is the provider's own accounting
// model: the full budget is available at the window start and callers that
// exhaust it wait for the rollover. Safe for concurrent use.
type FixedWindow struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	started time.Time
	used    int
}

// NewFixedWindow returns a limiter granting limit acquisitions per window.
// Both arguments must be positive.
func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{limit: limit, window: window}
}

// Acquire implements Limiter. Waiters wake at the window rollover and
// compete for the fresh budget in arrival order of the lock, not of the
// original calls.
func (w *FixedWindow) Acquire(ctx context.Context) error {
	start := time.Now()
	waited := false

	for {
		w.mu.Lock()
		now := time.Now()
		if now.Sub(w.started) >= w.window {
			w.started = now
			w.used = 0
		}
		if w.used < w.limit {
			w.used++
			w.mu.Unlock()
			grant("fixed_window", start)
			return nil
		}
		wait := w.window - now.Sub(w.started)
		w.mu.Unlock()

		if !waited {
			waited = true
			throttledTotal.WithLabelValues("fixed_window").Inc()
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// grant records a successful acquisition and how long it waited.
func grant(limiter string, start time.Time) {
	acquiresTotal.WithLabelValues(limiter).Inc()
	waitSeconds.WithLabelValues(limiter).Observe(time.Since(start).Seconds())
}

// sleep waits for d or until ctx ends, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
