package coinranking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"paisamarket/internal/httpx"
	"paisamarket/internal/provider"
)

const (
	// Name is the source label attached to every quote from this adapter.
	Name    = "Coinranking"
	baseURL = "https://api.coinranking.com/v2"
)

// Client is the secondary aggregator adapter.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpx.HTTPClient
	header     http.Header
	now        func() time.Time
}

// Option is a configuration option for the Coinranking client.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithHTTPClient(hc httpx.HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAPIKey sets the x-access-token header.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

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

// coin is one entry of data.coins. Coinranking encodes numbers as strings.
type coin struct {
	UUID      string `json:"uuid"`
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Price     any    `json:"price"`
	MarketCap any    `json:"marketCap"`
	Volume24h any    `json:"24hVolume"`
	Change    any    `json:"change"`
	Sparkline []any  `json:"sparkline"`
	Rank      int    `json:"rank"`
}

// CoinsPayload is the decoded /coins response.
type CoinsPayload struct {
	Status string `json:"status"`
	Data   struct {
		Coins []coin `json:"coins"`
	} `json:"data"`

	endpoint  provider.Endpoint
	timeRange string
}

func (p *CoinsPayload) Kind() provider.Kind { return provider.KindCoinranking }

func (p *CoinsPayload) Normalize(now time.Time) []provider.Quote {
	out := make([]provider.Quote, 0, len(p.Data.Coins))
	for _, cn := range p.Data.Coins {
		var c provider.Coercer
		q := provider.Quote{
			Symbol:     strings.ToUpper(cn.Symbol),
			Name:       cn.Name,
			Price:      c.Price("price", cn.Price),
			MarketCap:  c.Float("market_cap", cn.MarketCap),
			Volume24h:  c.Float("volume_24h", cn.Volume24h),
			Sparkline:  c.Series("sparkline", cn.Sparkline),
			ReceivedAt: now,
		}
		if p.endpoint == provider.EndpointHistory {
			provider.WindowChange(&q, p.timeRange)
		} else {
			q.Change24h = c.Float("change_24h", cn.Change)
		}
		q.Unparsed = c.Unparsed()
		out = append(out, q)
	}
	return out
}

var orderBy = map[string]string{
	"market_cap": "marketCap",
	"price":      "price",
	"volume":     "24hVolume",
	"volume_24h": "24hVolume",
	"change":     "change",
	"change_24h": "change",
}

// Fetch serves every endpoint from /coins; history uses the sparkline over
// the requested time period.
func (c *Client) Fetch(ctx context.Context, req provider.Request) ([]provider.Quote, error) {
	p, err := c.GetCoins(ctx, req)
	if err != nil || p == nil {
		return nil, err
	}
	return provider.Decode(p, c.now().UTC()), nil
}

// GetCoins calls /coins.
func (c *Client) GetCoins(ctx context.Context, req provider.Request) (*CoinsPayload, error) {
	q := url.Values{}
	q.Set("referenceCurrencyUuid", "yhjMzLPhuIDl") // US Dollar
	switch req.Endpoint {
	case provider.EndpointMarkets:
		if len(req.Symbols) == 0 {
			ob, ok := orderBy[req.SortBy]
			if !ok {
				ob = "marketCap"
			}
			q.Set("orderBy", ob)
			q.Set("orderDirection", req.Order)
			q.Set("limit", strconv.Itoa(req.Limit))
			break
		}
		fallthrough
	case provider.EndpointQuote, provider.EndpointDetail, provider.EndpointHistory:
		if len(req.Symbols) == 0 {
			return nil, nil
		}
		for _, s := range req.Symbols {
			q.Add("symbols[]", s)
		}
		q.Set("limit", strconv.Itoa(len(req.Symbols)))
	default:
		return nil, nil
	}
	timePeriod := "24h"
	if req.Endpoint == provider.EndpointHistory {
		timePeriod = req.TimeRange
	}
	q.Set("timePeriod", timePeriod)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/coins?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header = c.header.Clone()
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("x-access-token", c.apiKey)
	}

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()
	if err := provider.CheckResponse(res); err != nil {
		return nil, err
	}

	payload := &CoinsPayload{endpoint: req.Endpoint, timeRange: req.TimeRange}
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(payload); err != nil {
		return nil, fmt.Errorf("%w: decoding coins: %v", provider.ErrMalformed, err)
	}
	if payload.Status != "" && payload.Status != "success" {
		return nil, fmt.Errorf("%w: status %q", provider.ErrMalformed, payload.Status)
	}
	if len(payload.Data.Coins) == 0 {
		return nil, nil
	}
	return payload, nil
}
