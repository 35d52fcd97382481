package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"paisamarket/internal/provider"
)

// TokenBucket is a refilling token bucket.
//   - rate: tokens per second
//   - capacity: maximum tokens the bucket can hold (burst)
type TokenBucket struct {
	rate     float64
	capacity float64
	now      func() time.Time

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
	return newTokenBucket(tokensPerSecond, burst, time.Now)
}

// PerMinute builds a bucket from a provider quota expressed in requests per
// minute.
func PerMinute(rpm, burst int) *TokenBucket {
	return NewTokenBucket(float64(rpm)/60, burst)
}

func newTokenBucket(tokensPerSecond float64, burst int, now func() time.Time) *TokenBucket {
	if tokensPerSecond <= 0 {
		tokensPerSecond = 0.0000001
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		rate:     tokensPerSecond,
		capacity: float64(burst),
		now:      now,
		tokens:   float64(burst), // start full to allow an initial burst
		last:     now(),
	}
}

// take refills the bucket and consumes one token when available. Otherwise
// it reports how long until the next token.
func (tb *TokenBucket) take() (bool, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	now := tb.now()
	if elapsed := now.Sub(tb.last).Seconds(); elapsed > 0 {
		tb.tokens += elapsed * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.last = now
	}
	if tb.tokens >= 1 {
		tb.tokens--
		return true, 0
	}
	wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
	if wait <= 0 {
		wait = time.Millisecond
	}
	return false, wait
}

// Allow consumes a token without blocking.
func (tb *TokenBucket) Allow() bool {
	ok, _ := tb.take()
	return ok
}

// Wait blocks until one token is available or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		ok, wait := tb.take()
		if ok {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TokenBucketProvider wraps a Provider and gates calls using a token bucket.
type TokenBucketProvider struct {
	P  provider.Provider
	TB *TokenBucket

	// NonBlocking makes an empty bucket fail fast with
	// provider.ErrRateLimited so a fallback chain can move on.
	NonBlocking bool
}

func (t *TokenBucketProvider) Name() string { return t.P.Name() }

func (t *TokenBucketProvider) Fetch(ctx context.Context, req provider.Request) ([]provider.Quote, error) {
	if t.TB != nil {
		if t.NonBlocking {
			if ok, wait := t.TB.take(); !ok {
				return nil, fmt.Errorf("%s: %w: next token in %s", t.P.Name(), provider.ErrRateLimited, wait.Round(time.Millisecond))
			}
		} else if err := t.TB.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return t.P.Fetch(ctx, req)
}
