package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"paisamarket/internal/provider"
	"paisamarket/internal/provider/providermock"
)

func TestTokenBucket_BurstThenRefill(t *testing.T) {
	t.Parallel()

	// Arrange: 1 token per second, burst 2, manual clock
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tb := newTokenBucket(1, 2, func() time.Time { return now })

	// Act + Assert: burst is available immediately
	require.True(t, tb.Allow())
	require.True(t, tb.Allow())

	ok, wait := tb.take()
	require.False(t, ok)
	require.Equal(t, time.Second, wait)

	// Half a token is not enough.
	now = now.Add(500 * time.Millisecond)
	require.False(t, tb.Allow())

	now = now.Add(500 * time.Millisecond)
	require.True(t, tb.Allow())

	// Refill never exceeds capacity.
	now = now.Add(time.Hour)
	require.True(t, tb.Allow())
	require.True(t, tb.Allow())
	require.False(t, tb.Allow())
}

func TestTokenBucketProvider_NonBlockingReturnsRateLimited(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	inner := providermock.NewMockProvider(ctrl)
	inner.EXPECT().Name().Return("CoinGecko").AnyTimes()
	inner.EXPECT().Fetch(gomock.Any(), gomock.Any()).
		Return([]provider.Quote{{Symbol: "BTC"}}, nil).
		Times(1)

	p := &TokenBucketProvider{P: inner, TB: PerMinute(1, 1), NonBlocking: true}
	req := provider.Request{Symbols: []string{"BTC"}}.Normalize()

	qs, err := p.Fetch(t.Context(), req)
	require.NoError(t, err)
	require.Len(t, qs, 1)

	_, err = p.Fetch(t.Context(), req)
	require.ErrorIs(t, err, provider.ErrRateLimited)
	require.Equal(t, "CoinGecko", p.Name())
}

func TestTokenBucketProvider_BlockingHonorsContext(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	inner := providermock.NewMockProvider(ctrl)
	inner.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, nil).Times(1)

	p := &TokenBucketProvider{P: inner, TB: PerMinute(1, 1)}
	req := provider.Request{}.Normalize()

	_, err := p.Fetch(t.Context(), req)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Fetch(ctx, req)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMinInterval_SpacesCalls(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	inner := providermock.NewMockProvider(ctrl)
	inner.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)

	m := &MinInterval{P: inner, Interval: 30 * time.Millisecond}
	req := provider.Request{}.Normalize()

	start := time.Now()
	_, err := m.Fetch(t.Context(), req)
	require.NoError(t, err)
	_, err = m.Fetch(t.Context(), req)
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestMinInterval_NonBlocking(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	inner := providermock.NewMockProvider(ctrl)
	inner.EXPECT().Name().Return("Coinranking").AnyTimes()
	inner.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, nil).Times(1)

	m := &MinInterval{P: inner, Interval: time.Hour, NonBlocking: true}
	req := provider.Request{}.Normalize()

	_, err := m.Fetch(t.Context(), req)
	require.NoError(t, err)
	_, err = m.Fetch(t.Context(), req)
	require.ErrorIs(t, err, provider.ErrRateLimited)
}
