package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"paisamarket/internal/provider"
)

// ChartPayload is the decoded /coins/{id}/market_chart response.
type ChartPayload struct {
	Symbol       string  `json:"-"`
	TimeRange    string  `json:"-"`
	Prices       [][]any `json:"prices"`
	MarketCaps   [][]any `json:"market_caps"`
	TotalVolumes [][]any `json:"total_volumes"`
}

func (p *ChartPayload) Kind() provider.Kind { return provider.KindCoinGecko }

func (p *ChartPayload) Normalize(now time.Time) []provider.Quote {
	if len(p.Prices) == 0 {
		return nil
	}
	var c provider.Coercer
	samples := make([]any, 0, len(p.Prices))
	for _, pt := range p.Prices {
		if len(pt) < 2 {
			continue
		}
		samples = append(samples, pt[1])
	}
	q := provider.Quote{
		Symbol:     p.Symbol,
		Sparkline:  c.Series("sparkline", samples),
		ReceivedAt: now,
	}
	n := len(q.Sparkline)
	if n == 0 {
		return nil
	}
	q.Price = c.Price("price", q.Sparkline[n-1])
	if v := lastValue(p.MarketCaps); v != nil {
		q.MarketCap = c.Float("market_cap", v)
	}
	if v := lastValue(p.TotalVolumes); v != nil {
		q.Volume24h = c.Float("volume_24h", v)
	}
	if last := lastPoint(p.Prices); last != nil {
		if ms, _, ok := provider.ParseFloat(last[0]); ok {
			q.ReceivedAt = provider.ParseEpochMaybeMillis(int64(ms), now)
		}
	}
	provider.WindowChange(&q, p.TimeRange)
	q.Unparsed = c.Unparsed()
	return []provider.Quote{q}
}

func lastPoint(series [][]any) []any {
	for i := len(series) - 1; i >= 0; i-- {
		if len(series[i]) >= 2 {
			return series[i]
		}
	}
	return nil
}

func lastValue(series [][]any) any {
	if pt := lastPoint(series); pt != nil {
		return pt[1]
	}
	return nil
}

// GetMarketChart calls /coins/{id}/market_chart for the first requested symbol.
func (c *Client) GetMarketChart(ctx context.Context, req provider.Request) (*ChartPayload, error) {
	symbol := req.Symbol()
	if symbol == "" {
		return nil, nil
	}
	q := url.Values{}
	q.Set("vs_currency", strings.ToLower(req.Currency))
	q.Set("days", strconv.Itoa(provider.RangeDays(req.TimeRange)))

	path := "/coins/" + url.PathEscape(CoinID(symbol)) + "/market_chart?" + q.Encode()
	httpReq, err := c.newRequest(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()
	if err := provider.CheckResponse(res); err != nil {
		return nil, err
	}

	payload := &ChartPayload{Symbol: symbol, TimeRange: req.TimeRange}
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(payload); err != nil {
		return nil, fmt.Errorf("%w: decoding market chart: %v", provider.ErrMalformed, err)
	}
	if len(payload.Prices) == 0 {
		return nil, nil
	}
	return payload, nil
}
