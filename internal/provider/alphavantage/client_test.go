package alphavantage_test

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"paisamarket/internal/httpx/httpxmock"
	"paisamarket/internal/provider"
	"paisamarket/internal/provider/alphavantage"
)

const proxyURL = "https://proxy.example/.netlify/functions/alpha-vantage"

func response(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

type proxyBody struct {
	Action string            `json:"action"`
	Params map[string]string `json:"params"`
}

func decode(t *testing.T, req *http.Request) proxyBody {
	t.Helper()
	var b proxyBody
	require.NoError(t, json.NewDecoder(req.Body).Decode(&b))
	return b
}

func TestFetch_Quote_GlobalQuote(t *testing.T) {
	t.Parallel()

	// Arrange
	ctrl := gomock.NewController(t)
	httpClient := httpxmock.NewMockHTTPClient(ctrl)
	now := time.Date(2025, 1, 2, 21, 0, 0, 0, time.UTC)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodPost, req.Method)
			require.Equal(t, proxyURL, req.URL.String())
			b := decode(t, req)
			require.Equal(t, "quote", b.Action)
			require.Equal(t, "AAPL", b.Params["symbol"])
			return response(http.StatusOK, `{
				"Global Quote": {
					"01. symbol": "AAPL",
					"05. price": "189.8400",
					"06. volume": "51234567",
					"07. latest trading day": "2025-01-02",
					"09. change": "1.2000",
					"10. change percent": "0.6370%"
				}
			}`), nil
		}).
		Times(1)

	client := alphavantage.New(
		alphavantage.WithBaseURL(proxyURL),
		alphavantage.WithHTTPClient(httpClient),
		alphavantage.WithClock(func() time.Time { return now }),
	)

	// Act
	quotes, err := client.Fetch(t.Context(), provider.Request{Symbols: []string{"aapl"}}.Normalize())

	// Assert
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	q := quotes[0]
	require.Equal(t, "AAPL", q.Symbol)
	require.InDelta(t, 189.84, q.Price, 1e-9)
	require.InDelta(t, 51234567, q.Volume24h, 1e-9)
	require.InDelta(t, 0.637, q.Change24h, 1e-9)
	require.Equal(t, alphavantage.Name, q.Source)
	require.Equal(t, now, q.ReceivedAt)
}

func TestFetch_History_DailySeries(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := httpxmock.NewMockHTTPClient(ctrl)
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			b := decode(t, req)
			require.Equal(t, "history", b.Action)
			require.Equal(t, "compact", b.Params["outputsize"])
			return response(http.StatusOK, `{
				"Meta Data": {"2. Symbol": "MSFT"},
				"Time Series (Daily)": {
					"2025-01-09": {"4. close": "440.00", "5. volume": "900"},
					"2025-01-06": {"4. close": "400.00", "5. volume": "700"},
					"2025-01-08": {"4. close": "420.00", "5. volume": "800"},
					"2024-12-01": {"4. close": "100.00", "5. volume": "1"}
				}
			}`), nil
		}).
		Times(1)

	client := alphavantage.New(
		alphavantage.WithBaseURL(proxyURL),
		alphavantage.WithHTTPClient(httpClient),
		alphavantage.WithClock(func() time.Time { return now }),
	)
	req := provider.Request{Endpoint: provider.EndpointHistory, Symbols: []string{"MSFT"}, TimeRange: "7d"}.Normalize()
	quotes, err := client.Fetch(t.Context(), req)
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	// Bars older than the range are dropped and the rest sorted by date.
	q := quotes[0]
	require.Equal(t, []float64{400, 420, 440}, q.Sparkline)
	require.InDelta(t, 440, q.Price, 1e-9)
	require.InDelta(t, 900, q.Volume24h, 1e-9)
	require.NotNil(t, q.Change7d)
	require.InDelta(t, 10, *q.Change7d, 1e-9)
	require.Equal(t, time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC), q.ReceivedAt)
}

func TestFetch_ThrottleNoteIsRateLimited(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := httpxmock.NewMockHTTPClient(ctrl)
	gomock.InOrder(
		httpClient.EXPECT().Do(gomock.Any()).
			Return(response(http.StatusOK, `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`), nil),
		httpClient.EXPECT().Do(gomock.Any()).
			Return(response(http.StatusOK, `{"Information": "daily limit reached"}`), nil),
		httpClient.EXPECT().Do(gomock.Any()).
			Return(response(http.StatusOK, `{"Error Message": "Invalid API call."}`), nil),
		httpClient.EXPECT().Do(gomock.Any()).
			Return(response(http.StatusOK, `{"Global Quote": {}}`), nil),
	)

	client := alphavantage.New(alphavantage.WithBaseURL(proxyURL), alphavantage.WithHTTPClient(httpClient))
	req := provider.Request{Symbols: []string{"ZZZ_UNKNOWN"}}.Normalize()

	_, err := client.Fetch(t.Context(), req)
	require.ErrorIs(t, err, provider.ErrRateLimited)
	_, err = client.Fetch(t.Context(), req)
	require.ErrorIs(t, err, provider.ErrRateLimited)

	for range 2 {
		quotes, err := client.Fetch(t.Context(), req)
		require.NoError(t, err)
		require.Nil(t, quotes)
	}
}

func TestFetch_UnsupportedRequestsMakeNoCall(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := httpxmock.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Times(0)

	withProxy := alphavantage.New(alphavantage.WithBaseURL(proxyURL), alphavantage.WithHTTPClient(httpClient))
	noProxy := alphavantage.New(alphavantage.WithHTTPClient(httpClient))

	for _, tc := range []struct {
		name   string
		client *alphavantage.Client
		req    provider.Request
	}{
		{"markets", withProxy, provider.Request{Endpoint: provider.EndpointMarkets}},
		{"multi symbol", withProxy, provider.Request{Symbols: []string{"AAPL", "MSFT"}}},
		{"no proxy", noProxy, provider.Request{Symbols: []string{"AAPL"}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			quotes, err := tc.client.Fetch(t.Context(), tc.req.Normalize())
			require.NoError(t, err)
			require.Nil(t, quotes)
		})
	}
}

func TestFetch_History_NegativeAndUnparseableCloses(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := httpxmock.NewMockHTTPClient(ctrl)
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	gomock.InOrder(
		httpClient.EXPECT().Do(gomock.Any()).Return(response(http.StatusOK, `{
			"Time Series (Daily)": {
				"2025-01-08": {"4. close": "420.00", "5. volume": "800"},
				"2025-01-09": {"4. close": "-3.00", "5. volume": "900"}
			}
		}`), nil),
		httpClient.EXPECT().Do(gomock.Any()).Return(response(http.StatusOK, `{
			"Time Series (Daily)": {
				"2025-01-09": {"4. close": "n/a", "5. volume": "900"}
			}
		}`), nil),
	)

	client := alphavantage.New(
		alphavantage.WithBaseURL(proxyURL),
		alphavantage.WithHTTPClient(httpClient),
		alphavantage.WithClock(func() time.Time { return now }),
	)
	req := provider.Request{Endpoint: provider.EndpointHistory, Symbols: []string{"MSFT"}}.Normalize()

	quotes, err := client.Fetch(t.Context(), req)
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.Zero(t, quotes[0].Price)
	require.Contains(t, quotes[0].Unparsed, "price")
	require.Equal(t, alphavantage.Name, quotes[0].Source)

	quotes, err = client.Fetch(t.Context(), req)
	require.NoError(t, err)
	require.Nil(t, quotes)
}
