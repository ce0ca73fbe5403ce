package ratelimit

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestFixedWindowGrantsFullBudgetImmediately(t *testing.T) {
	w := NewFixedWindow(5, time.Second)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := w.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Errorf("5 acquires within budget took %v, want immediate", elapsed)
	}
}

func TestFixedWindowBlocksUntilRollover(t *testing.T) {
	const window = 200 * time.Millisecond
	w := NewFixedWindow(2, window)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := w.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
	}
	// The third acquire exceeds the budget and must wait for the window
	// to roll over.
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("3rd acquire granted after %v, want a wait of about %v", elapsed, window)
	}
}

func TestFixedWindowRolloverRestoresBudget(t *testing.T) {
	const window = 150 * time.Millisecond
	w := NewFixedWindow(2, window)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := w.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
	}

	time.Sleep(window + 20*time.Millisecond)

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := w.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d after rollover failed: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("acquires after rollover took %v, want immediate", elapsed)
	}
}

func TestFixedWindowAcquireHonorsContext(t *testing.T) {
	w := NewFixedWindow(1, 10*time.Second)
	if err := w.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := w.Acquire(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("cancelled Acquire returned after %v, want promptly", elapsed)
	}
}

func TestFixedWindowConcurrentAcquiresRespectBudget(t *testing.T) {
	const (
		limit  = 3
		window = 250 * time.Millisecond
		total  = 9
	)
	w := NewFixedWindow(limit, window)

	var (
		mu     sync.Mutex
		grants []time.Time
		wg     sync.WaitGroup
	)
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			mu.Lock()
			grants = append(grants, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(grants) != total {
		t.Fatalf("got %d grants, want %d", len(grants), total)
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].Before(grants[j]) })

	// Grant number limit*n cannot land before n full windows have passed
	// since the first grant.
	const slack = 30 * time.Millisecond
	if d := grants[limit].Sub(grants[0]); d < window-slack {
		t.Errorf("grant %d came %v after the first, want at least ~%v", limit, d, window)
	}
	if d := grants[2*limit].Sub(grants[0]); d < 2*window-slack {
		t.Errorf("grant %d came %v after the first, want at least ~%v", 2*limit, d, 2*window)
	}
}

func TestTokenBucketAllowsInitialBurst(t *testing.T) {
	b := NewTokenBucket(4, 200*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := b.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("burst of 4 took %v, want immediate", elapsed)
	}
}

func TestTokenBucketDelaysPastBurst(t *testing.T) {
	// 4 tokens per 200ms refills one token every 50ms.
	b := NewTokenBucket(4, 200*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := b.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
	}

	start := time.Now()
	if err := b.Acquire(ctx); err != nil {
		t.Fatalf("5th Acquire failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("5th acquire granted after %v, want a refill wait of about 50ms", elapsed)
	}
}

func TestTokenBucketAcquireHonorsContext(t *testing.T) {
	b := NewTokenBucket(1, 10*time.Second)
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := b.Acquire(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire error = %v, want context.DeadlineExceeded", err)
	}
}
