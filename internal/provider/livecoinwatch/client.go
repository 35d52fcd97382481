package livecoinwatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"paisamarket/internal/httpx"
	"paisamarket/internal/provider"
)

const (
	// Name is the source label attached to every quote from this adapter.
	Name    = "LiveCoinWatch"
	baseURL = "https://api.livecoinwatch.com"
)

// Client is the tertiary adapter. It carries the richest change data (1h to
// 1y deltas) but has the tightest daily quota.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpx.HTTPClient
	header     http.Header
	now        func() time.Time
}

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

// WithAPIKey sets the x-api-key header.
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

func (c *Client) Fetch(ctx context.Context, req provider.Request) ([]provider.Quote, error) {
	now := c.now().UTC()
	switch req.Endpoint {
	case provider.EndpointQuote, provider.EndpointDetail:
		p, err := c.GetMap(ctx, req)
		if err != nil || p == nil {
			return nil, err
		}
		return provider.Decode(p, now), nil
	case provider.EndpointMarkets:
		var (
			p   *CoinsPayload
			err error
		)
		if len(req.Symbols) > 0 {
			p, err = c.GetMap(ctx, req)
		} else {
			p, err = c.GetList(ctx, req)
		}
		if err != nil || p == nil {
			return nil, err
		}
		return provider.Decode(p, now), nil
	case provider.EndpointHistory:
		p, err := c.GetHistory(ctx, req)
		if err != nil || p == nil {
			return nil, err
		}
		return provider.Decode(p, now), nil
	}
	return nil, nil
}

// post sends body to path and decodes the JSON answer into out. A 404 means
// the coin is unknown and is reported as found=false.
func (c *Client) post(ctx context.Context, path string, body any, out any) (found bool, err error) {
	b, err := json.Marshal(body)
	if err != nil {
		return false, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err := provider.CheckResponse(res); err != nil {
		return false, err
	}
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return false, fmt.Errorf("%w: decoding %s: %v", provider.ErrMalformed, path, err)
	}
	return true, nil
}
