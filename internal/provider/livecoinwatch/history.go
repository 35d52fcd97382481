package livecoinwatch

import (
	"context"
	"time"

	"paisamarket/internal/provider"
)

type historyRequest struct {
	Currency string `json:"currency"`
	Code     string `json:"code"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	Meta     bool   `json:"meta"`
}

type point struct {
	Date   int64 `json:"date"`
	Rate   any   `json:"rate"`
	Volume any   `json:"volume"`
	Cap    any   `json:"cap"`
}

// HistoryPayload is the decoded /coins/single/history response.
type HistoryPayload struct {
	Name    string  `json:"name"`
	History []point `json:"history"`

	symbol    string
	timeRange string
}

func (p *HistoryPayload) Kind() provider.Kind { return provider.KindLiveCoinWatch }

func (p *HistoryPayload) Normalize(now time.Time) []provider.Quote {
	if len(p.History) == 0 {
		return nil
	}
	var c provider.Coercer
	samples := make([]any, 0, len(p.History))
	for _, pt := range p.History {
		samples = append(samples, pt.Rate)
	}
	last := p.History[len(p.History)-1]
	q := provider.Quote{
		Symbol:     p.symbol,
		Name:       p.Name,
		Sparkline:  c.Series("sparkline", samples),
		MarketCap:  c.Float("market_cap", last.Cap),
		Volume24h:  c.Float("volume_24h", last.Volume),
		ReceivedAt: provider.ParseEpochMaybeMillis(last.Date, now),
	}
	n := len(q.Sparkline)
	if n == 0 {
		return nil
	}
	q.Price = c.Price("price", q.Sparkline[n-1])
	provider.WindowChange(&q, p.timeRange)
	q.Unparsed = c.Unparsed()
	return []provider.Quote{q}
}

// GetHistory calls /coins/single/history for the first requested symbol,
// covering the request's time range up to now.
func (c *Client) GetHistory(ctx context.Context, req provider.Request) (*HistoryPayload, error) {
	symbol := req.Symbol()
	if symbol == "" {
		return nil, nil
	}
	end := c.now()
	start := end.Add(-time.Duration(provider.RangeDays(req.TimeRange)) * 24 * time.Hour)
	body := historyRequest{
		Currency: req.Currency,
		Code:     symbol,
		Start:    start.UnixMilli(),
		End:      end.UnixMilli(),
		Meta:     true,
	}
	p := &HistoryPayload{symbol: symbol, timeRange: req.TimeRange}
	found, err := c.post(ctx, "/coins/single/history", body, p)
	if err != nil || !found || len(p.History) == 0 {
		return nil, err
	}
	return p, nil
}
