package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket spreads a window's budget evenly across the window instead of
// granting it all at the start. A tier allowing 10 requests per second
// becomes one token every 100ms with a burst of 10, so a brief idle period
// still lets a paginated query catch up. Safe for concurrent use.
type TokenBucket struct {
	bucket *rate.Limiter
}

// NewTokenBucket returns a limiter refilling limit tokens per window with a
// burst capacity of limit. Both arguments must be positive.
func NewTokenBucket(limit int, window time.Duration) *TokenBucket {
	return &TokenBucket{
		bucket: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit),
	}
}

// Acquire implements Limiter.
func (b *TokenBucket) Acquire(ctx context.Context) error {
	start := time.Now()

	r := b.bucket.Reserve()
	delay := r.DelayFrom(start)
	if delay > 0 {
		throttledTotal.WithLabelValues("token_bucket").Inc()
		if err := sleep(ctx, delay); err != nil {
			r.Cancel()
			return err
		}
	}

	grant("token_bucket", start)
	return nil
}
