package coingecko

import (
	"context"
	"net/http"
	"strings"
	"time"

	"paisamarket/internal/httpx"
	"paisamarket/internal/provider"
)

const (
	// Name is the source label attached to every quote from this adapter.
	Name    = "CoinGecko"
	baseURL = "https://api.coingecko.com/api/v3"
)

// Client fetches market data from CoinGecko, or from a proxy exposing the
// same API shape.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// apiKey is sent as the demo api key header when set.
	apiKey string
	// httpClient is the HTTP client.
	httpClient httpx.HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	now    func() time.Time
}

// Option is a configuration option for the CoinGecko client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(hc httpx.HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAPIKey sets the key sent in the x-cg-demo-api-key header.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithClock overrides the time used for quotes lacking a timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a new CoinGecko client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return Name }

// Fetch serves quote, detail and markets from /coins/markets and history
// from /coins/{id}/market_chart.
func (c *Client) Fetch(ctx context.Context, req provider.Request) ([]provider.Quote, error) {
	var payload provider.Payload
	switch req.Endpoint {
	case provider.EndpointQuote, provider.EndpointDetail, provider.EndpointMarkets:
		p, err := c.GetMarkets(ctx, req)
		if err != nil || p == nil {
			return nil, err
		}
		payload = p
	case provider.EndpointHistory:
		p, err := c.GetMarketChart(ctx, req)
		if err != nil || p == nil {
			return nil, err
		}
		payload = p
	default:
		return nil, nil
	}
	qs := provider.Decode(payload, c.now().UTC())
	if len(qs) == 0 {
		return nil, nil
	}
	return qs, nil
}

func (c *Client) newRequest(ctx context.Context, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header = c.header.Clone()
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}
	return req, nil
}

// coinIDs maps ticker symbols to CoinGecko coin ids.
var coinIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"USDT":  "tether",
	"BNB":   "binancecoin",
	"SOL":   "solana",
	"XRP":   "ripple",
	"USDC":  "usd-coin",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"TRX":   "tron",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"LTC":   "litecoin",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"SHIB":  "shiba-inu",
	"XLM":   "stellar",
	"ATOM":  "cosmos",
	"UNI":   "uniswap",
	"BCH":   "bitcoin-cash",
}

// CoinID returns the CoinGecko id for a ticker symbol.
func CoinID(symbol string) string {
	if id, ok := coinIDs[strings.ToUpper(symbol)]; ok {
		return id
	}
	return strings.ToLower(symbol)
}
