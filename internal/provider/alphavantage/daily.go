package alphavantage

import (
	"context"
	"sort"
	"strings"
	"time"

	"paisamarket/internal/provider"
)

type bar struct {
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// DailyPayload is the decoded TIME_SERIES_DAILY response.
type DailyPayload struct {
	Series map[string]bar `json:"Time Series (Daily)"`

	symbol    string
	timeRange string
}

func (p *DailyPayload) Kind() provider.Kind { return provider.KindAlphaVantage }

// Normalize keeps the bars inside the requested range, oldest first.
func (p *DailyPayload) Normalize(now time.Time) []provider.Quote {
	from := now.AddDate(0, 0, -provider.RangeDays(p.timeRange)).Format(time.DateOnly)
	days := make([]string, 0, len(p.Series))
	for day := range p.Series {
		if day >= from {
			days = append(days, day)
		}
	}
	if len(days) == 0 {
		return nil
	}
	sort.Strings(days)

	var c provider.Coercer
	samples := make([]any, 0, len(days))
	for _, day := range days {
		samples = append(samples, p.Series[day].Close)
	}
	last := days[len(days)-1]
	q := provider.Quote{
		Symbol:     strings.ToUpper(p.symbol),
		Sparkline:  c.Series("sparkline", samples),
		Volume24h:  c.Float("volume_24h", p.Series[last].Volume),
		ReceivedAt: now,
	}
	if t, err := time.Parse(time.DateOnly, last); err == nil {
		q.ReceivedAt = t.UTC()
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

// GetDaily asks the proxy for the daily close series of one ticker.
func (c *Client) GetDaily(ctx context.Context, symbol, timeRange string) (*DailyPayload, error) {
	size := "compact"
	if provider.RangeDays(timeRange) > 100 {
		size = "full"
	}
	p := DailyPayload{symbol: symbol, timeRange: timeRange}
	params := map[string]string{"symbol": symbol, "outputsize": size}
	if err := c.call(ctx, "history", params, &p); err != nil {
		return nil, err
	}
	if len(p.Series) == 0 {
		return nil, nil
	}
	return &p, nil
}
