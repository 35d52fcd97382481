package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"paisamarket/internal/aggregate"
	"paisamarket/internal/api"
	"paisamarket/internal/fallback"
	"paisamarket/internal/news"
	"paisamarket/internal/placeholder"
	"paisamarket/internal/provider"
	"paisamarket/internal/provider/providermock"
)

type fakeNews struct {
	got news.Query
	res news.Result
}

func (f *fakeNews) Fetch(_ context.Context, q news.Query) (news.Result, error) {
	f.got = q
	return f.res, nil
}

type fakeProber struct {
	got provider.Request
}

func (f *fakeProber) Probe(_ context.Context, req provider.Request) (aggregate.Report, error) {
	f.got = req
	return aggregate.Report{Request: req, Providers: []aggregate.ProviderStatus{{Provider: "CoinGecko", Quotes: 1}}}, nil
}

type body struct {
	Data        json.RawMessage `json:"data"`
	Source      string          `json:"source"`
	Cached      bool            `json:"cached"`
	Stale       bool            `json:"stale"`
	Placeholder bool            `json:"placeholder"`
	Error       string          `json:"error"`
}

func newServer(t *testing.T, opts ...api.Option) (*api.Server, *providermock.MockProvider) {
	t.Helper()
	ctrl := gomock.NewController(t)
	p := providermock.NewMockProvider(ctrl)
	p.EXPECT().Name().Return("CoinGecko").AnyTimes()
	co := fallback.New([]provider.Provider{p}, fallback.WithPlaceholder(placeholder.New(7)))
	return api.NewServer(co, opts...), p
}

func do(t *testing.T, s *api.Server, method, target, payload string) (*httptest.ResponseRecorder, body) {
	t.Helper()
	var req *http.Request
	if payload != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var b body
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	}
	return rec, b
}

func TestQuote_ReturnsEnvelopeFromPrimary(t *testing.T) {
	t.Parallel()

	s, p := newServer(t)
	p.EXPECT().Fetch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req provider.Request) ([]provider.Quote, error) {
			require.Equal(t, provider.EndpointQuote, req.Endpoint)
			require.Equal(t, []string{"BTC", "ETH"}, req.Symbols)
			return []provider.Quote{
				{Symbol: "BTC", Price: 67000, Source: "CoinGecko"},
				{Symbol: "ETH", Price: 3500, Source: "CoinGecko"},
			}, nil
		}).
		Times(1)

	rec, b := do(t, s, http.MethodGet, "/api/v1/quote/btc,eth", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "CoinGecko", b.Source)
	require.False(t, b.Placeholder)

	var quotes []provider.Quote
	require.NoError(t, json.Unmarshal(b.Data, &quotes))
	require.Len(t, quotes, 2)
	require.Equal(t, "BTC", quotes[0].Symbol)
}

func TestDetail_FallsBackToPlaceholderObject(t *testing.T) {
	t.Parallel()

	s, p := newServer(t)
	p.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, provider.ErrRateLimited).Times(1)

	rec, b := do(t, s, http.MethodGet, "/api/v1/coins/sol", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, b.Placeholder)
	require.Equal(t, placeholder.Source, b.Source)

	var q provider.Quote
	require.NoError(t, json.Unmarshal(b.Data, &q))
	require.Equal(t, "SOL", q.Symbol)
	require.Greater(t, q.Price, 0.0)
	require.NotEmpty(t, q.Sparkline)
}

func TestBadInputIsRejectedBeforeFetching(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		target string
	}{
		{"non numeric limit", "/api/v1/markets?limit=ten"},
		{"limit too large", "/api/v1/markets?limit=1000"},
		{"unknown sort", "/api/v1/markets?sort=hype"},
		{"bad order", "/api/v1/markets?order=up"},
		{"unknown range", "/api/v1/history/BTC?range=2w"},
		{"bad symbol", "/api/v1/quote/$$$"},
		{"probe without symbols", "/api/v1/probe"},
		{"probe bad endpoint", "/api/v1/probe?endpoint=candles&symbols=BTC"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// No Fetch expectation: any provider call fails the test.
			s, _ := newServer(t, api.WithProber(&fakeProber{}))
			rec, b := do(t, s, http.MethodGet, tc.target, "")
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotEmpty(t, b.Error)
		})
	}
}

func TestMarkets_PassesValidatedQuery(t *testing.T) {
	t.Parallel()

	s, p := newServer(t)
	p.EXPECT().Fetch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req provider.Request) ([]provider.Quote, error) {
			require.Equal(t, 2, req.Limit)
			require.Equal(t, "volume", req.SortBy)
			require.Equal(t, "asc", req.Order)
			return []provider.Quote{{Symbol: "A", Price: 1}, {Symbol: "B", Price: 2}, {Symbol: "C", Price: 3}}, nil
		}).
		Times(1)

	rec, b := do(t, s, http.MethodGet, "/api/v1/markets?limit=2&sort=volume&order=ASC", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var quotes []provider.Quote
	require.NoError(t, json.Unmarshal(b.Data, &quotes))
	require.Len(t, quotes, 2)
}

func TestProxy_DispatchesActions(t *testing.T) {
	t.Parallel()

	s, p := newServer(t)
	p.EXPECT().Fetch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req provider.Request) ([]provider.Quote, error) {
			require.Equal(t, provider.EndpointHistory, req.Endpoint)
			require.Equal(t, "30d", req.TimeRange)
			return []provider.Quote{{Symbol: "ETH", Price: 3500, Sparkline: []float64{3400, 3500}}}, nil
		}).
		Times(1)

	rec, b := do(t, s, http.MethodPost, "/api/v1/proxy", `{"action":"history","params":{"symbol":"eth","range":"30d"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var q provider.Quote
	require.NoError(t, json.Unmarshal(b.Data, &q))
	require.Equal(t, []float64{3400, 3500}, q.Sparkline)

	rec, b = do(t, s, http.MethodPost, "/api/v1/proxy", `{"action":"mine","params":{}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, b.Error, "unknown action")

	rec, _ = do(t, s, http.MethodPost, "/api/v1/proxy", `{"action":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/api/v1/proxy", `{"action":"markets","params":{"sort":"hype"}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProviders_JSONAndText(t *testing.T) {
	t.Parallel()

	s, _ := newServer(t)

	rec, b := do(t, s, http.MethodGet, "/api/v1/providers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		Profiles   []json.RawMessage `json:"profiles"`
		Comparison string            `json:"comparison"`
	}
	require.NoError(t, json.Unmarshal(b.Data, &data))
	require.Len(t, data.Profiles, 4)
	require.Contains(t, data.Comparison, "CoinGecko")

	rec, _ = do(t, s, http.MethodGet, "/api/v1/providers?format=text", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.HasPrefix(rec.Body.String(), "Market data provider comparison"))
}

func TestNews(t *testing.T) {
	t.Parallel()

	s, _ := newServer(t)
	rec, _ := do(t, s, http.MethodGet, "/api/v1/news", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	n := &fakeNews{res: news.Result{
		Articles:    news.Placeholder("btc", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)),
		Placeholder: true,
	}}
	s, _ = newServer(t, api.WithNews(n))
	rec, b := do(t, s, http.MethodPost, "/api/v1/proxy", `{"action":"news","params":{"q":"btc","limit":5}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, b.Placeholder)
	require.Equal(t, "placeholder", b.Source)
	require.Equal(t, news.Query{Q: "btc", Limit: 5}, n.got)

	rec, _ = do(t, s, http.MethodGet, "/api/v1/news?limit=500", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProbe_UsesProber(t *testing.T) {
	t.Parallel()

	pr := &fakeProber{}
	s, _ := newServer(t, api.WithProber(pr))

	rec, b := do(t, s, http.MethodGet, "/api/v1/probe?symbols=btc&endpoint=detail", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, provider.EndpointDetail, pr.got.Endpoint)
	require.Equal(t, []string{"BTC"}, pr.got.Symbols)
	require.Contains(t, string(b.Data), `"provider":"CoinGecko"`)
}

func TestDeadlineMapsToGatewayTimeout(t *testing.T) {
	t.Parallel()

	s, p := newServer(t, api.WithTimeout(20*time.Millisecond))
	p.EXPECT().Fetch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ provider.Request) ([]provider.Quote, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}).
		AnyTimes()

	rec, _ := do(t, s, http.MethodGet, "/api/v1/quote/BTC", "")
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s, _ := newServer(t)
	rec, _ := do(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Content-Type"))
}
