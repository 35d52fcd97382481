package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"paisamarket/internal/provider"
)

// MinInterval wraps a provider and enforces a minimum time between calls.
// Callers reserve their slot under the lock, so concurrent calls are spaced
// out rather than released together. A canceled context returns early.
type MinInterval struct {
	P        provider.Provider
	Interval time.Duration

	// NonBlocking returns provider.ErrRateLimited instead of waiting.
	NonBlocking bool

	mu   sync.Mutex
	next time.Time
}

func (m *MinInterval) Name() string { return m.P.Name() }

func (m *MinInterval) Fetch(ctx context.Context, req provider.Request) ([]provider.Quote, error) {
	if m.Interval > 0 {
		m.mu.Lock()
		now := time.Now()
		wait := m.next.Sub(now)
		if wait > 0 && m.NonBlocking {
			m.mu.Unlock()
			return nil, fmt.Errorf("%s: %w: next slot in %s", m.P.Name(), provider.ErrRateLimited, wait.Round(time.Millisecond))
		}
		if wait < 0 {
			wait = 0
		}
		m.next = now.Add(wait + m.Interval)
		m.mu.Unlock()

		if wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-t.C:
			}
		}
	}
	return m.P.Fetch(ctx, req)
}
