package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"paisamarket/internal/provider"
	"paisamarket/internal/provider/providermock"
)

func mockProvider(ctrl *gomock.Controller, name string) *providermock.MockProvider {
	p := providermock.NewMockProvider(ctrl)
	p.EXPECT().Name().Return(name).AnyTimes()
	return p
}

func TestProbe_CollectsEveryProvider(t *testing.T) {
	t.Parallel()

	// Arrange: two healthy providers and one throttled
	ctrl := gomock.NewController(t)
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	cg := mockProvider(ctrl, "CoinGecko")
	cr := mockProvider(ctrl, "Coinranking")
	lcw := mockProvider(ctrl, "LiveCoinWatch")

	cg.EXPECT().Fetch(gomock.Any(), gomock.Any()).
		Return([]provider.Quote{{Symbol: "BTC", Price: 100, Source: "CoinGecko", ReceivedAt: ts}}, nil)
	cr.EXPECT().Fetch(gomock.Any(), gomock.Any()).
		Return([]provider.Quote{{Symbol: "BTC", Price: 105, Source: "Coinranking", ReceivedAt: ts}}, nil)
	lcw.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, provider.ErrRateLimited)

	log, hook := logtest.NewNullLogger()

	// Act
	rep, err := Probe(t.Context(), []provider.Provider{cg, cr, lcw}, provider.Request{Symbols: []string{"btc"}}, log)

	// Assert
	require.NoError(t, err)
	require.Len(t, rep.Providers, 3)
	require.Equal(t, "CoinGecko", rep.Providers[0].Provider)
	require.Equal(t, 1, rep.Providers[0].Quotes)
	require.Equal(t, provider.ErrRateLimited.Error(), rep.Providers[2].Err)
	require.Len(t, rep.Latest, 2)
	require.Len(t, rep.Spreads, 1)
	require.InDelta(t, 5, rep.Spreads[0].SpreadPct, 1e-9)
	require.Equal(t, []string{"BTC"}, rep.Request.Symbols)
	require.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
}

func TestProbe_CanceledContext(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	p := mockProvider(ctrl, "CoinGecko")
	p.EXPECT().Fetch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ provider.Request) ([]provider.Quote, error) {
			return nil, ctx.Err()
		}).
		AnyTimes()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	log, _ := logtest.NewNullLogger()
	_, err := Probe(ctx, []provider.Provider{p}, provider.Request{Symbols: []string{"BTC"}}, log)
	require.ErrorIs(t, err, context.Canceled)
}
