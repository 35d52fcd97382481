package alphavantage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"paisamarket/internal/httpx"
	"paisamarket/internal/provider"
)

// Name is the source label attached to every quote from this adapter.
const Name = "AlphaVantage"

// Client talks to Alpha Vantage through the serverless proxy that holds the
// API key. The proxy accepts {"action", "params"} and forwards the upstream
// body unchanged.
type Client struct {
	proxyURL   string
	httpClient httpx.HTTPClient
	header     http.Header
	now        func() time.Time
}

type Option func(*Client)

// WithBaseURL sets the proxy URL. Without one the adapter serves nothing.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.proxyURL = u }
}

func WithHTTPClient(hc httpx.HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
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

// Fetch serves single-symbol quote, detail and history requests. Markets and
// multi-symbol requests are not supported by the upstream in one call.
func (c *Client) Fetch(ctx context.Context, req provider.Request) ([]provider.Quote, error) {
	if c.proxyURL == "" || len(req.Symbols) != 1 {
		return nil, nil
	}
	now := c.now().UTC()
	var (
		p   provider.Payload
		err error
	)
	switch req.Endpoint {
	case provider.EndpointQuote, provider.EndpointDetail:
		q, qerr := c.GetQuote(ctx, req.Symbol())
		if q != nil {
			p = q
		}
		err = qerr
	case provider.EndpointHistory:
		h, herr := c.GetDaily(ctx, req.Symbol(), req.TimeRange)
		if h != nil {
			p = h
		}
		err = herr
	default:
		return nil, nil
	}
	if err != nil || p == nil {
		return nil, err
	}
	return provider.Decode(p, now), nil
}

type proxyRequest struct {
	Action string            `json:"action"`
	Params map[string]string `json:"params"`
}

// throttle is the shape Alpha Vantage uses for quota messages, returned with
// status 200.
type throttle struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

func (c *Client) call(ctx context.Context, action string, params map[string]string, out any) error {
	b, err := json.Marshal(proxyRequest{Action: action, Params: params})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.proxyURL, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()
	if err := provider.CheckResponse(res); err != nil {
		return err
	}

	var raw json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", provider.ErrMalformed, action, err)
	}
	var t throttle
	if json.Unmarshal(raw, &t) == nil {
		switch {
		case t.Note != "", t.Information != "":
			return fmt.Errorf("%w: %s%s", provider.ErrRateLimited, t.Note, t.Information)
		case t.ErrorMessage != "":
			// Unknown symbols are reported this way; treat as no data.
			return nil
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", provider.ErrMalformed, action, err)
	}
	return nil
}
