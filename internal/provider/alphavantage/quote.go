package alphavantage

import (
	"context"
	"strings"
	"time"

	"paisamarket/internal/provider"
)

type globalQuote struct {
	Symbol        string `json:"01. symbol"`
	Price         string `json:"05. price"`
	Volume        string `json:"06. volume"`
	LatestDay     string `json:"07. latest trading day"`
	Change        string `json:"09. change"`
	ChangePercent string `json:"10. change percent"`
}

// QuotePayload is the decoded GLOBAL_QUOTE response.
type QuotePayload struct {
	Quote globalQuote `json:"Global Quote"`
}

func (p *QuotePayload) Kind() provider.Kind { return provider.KindAlphaVantage }

func (p *QuotePayload) Normalize(now time.Time) []provider.Quote {
	var c provider.Coercer
	q := provider.Quote{
		Symbol:     strings.ToUpper(p.Quote.Symbol),
		Price:      c.Price("price", p.Quote.Price),
		Volume24h:  c.Float("volume_24h", p.Quote.Volume),
		Change24h:  c.Float("change_24h", p.Quote.ChangePercent),
		ReceivedAt: now,
	}
	q.Unparsed = c.Unparsed()
	return []provider.Quote{q}
}

// GetQuote asks the proxy for the latest quote of one ticker.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*QuotePayload, error) {
	var p QuotePayload
	if err := c.call(ctx, "quote", map[string]string{"symbol": symbol}, &p); err != nil {
		return nil, err
	}
	if p.Quote.Symbol == "" {
		return nil, nil
	}
	return &p, nil
}
