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

// market is one row of /coins/markets. Numeric fields stay untyped so that
// unexpected shapes are flagged instead of failing the whole decode.
type market struct {
	ID                 string `json:"id"`
	Symbol             string `json:"symbol"`
	Name               string `json:"name"`
	CurrentPrice       any    `json:"current_price"`
	MarketCap          any    `json:"market_cap"`
	TotalVolume        any    `json:"total_volume"`
	PriceChangePct24h  any    `json:"price_change_percentage_24h"`
	ChangePct1h        any    `json:"price_change_percentage_1h_in_currency"`
	ChangePct24hInCurr any    `json:"price_change_percentage_24h_in_currency"`
	ChangePct7d        any    `json:"price_change_percentage_7d_in_currency"`
	ChangePct30d       any    `json:"price_change_percentage_30d_in_currency"`
	ChangePct1y        any    `json:"price_change_percentage_1y_in_currency"`
	Sparkline          *struct {
		Price []any `json:"price"`
	} `json:"sparkline_in_7d"`
	LastUpdated string `json:"last_updated"`
}

// MarketsPayload is the decoded /coins/markets response.
type MarketsPayload struct {
	Markets []market
	SortBy  string
	Order   string
	Limit   int
}

func (p *MarketsPayload) Kind() provider.Kind { return provider.KindCoinGecko }

func (p *MarketsPayload) Normalize(now time.Time) []provider.Quote {
	out := make([]provider.Quote, 0, len(p.Markets))
	for _, m := range p.Markets {
		var c provider.Coercer
		change24h := m.PriceChangePct24h
		if change24h == nil {
			change24h = m.ChangePct24hInCurr
		}
		q := provider.Quote{
			Symbol:     strings.ToUpper(m.Symbol),
			Name:       m.Name,
			Price:      c.Price("price", m.CurrentPrice),
			MarketCap:  c.Float("market_cap", m.MarketCap),
			Volume24h:  c.Float("volume_24h", m.TotalVolume),
			Change24h:  c.Float("change_24h", change24h),
			Change1h:   c.Optional("change_1h", m.ChangePct1h),
			Change7d:   c.Optional("change_7d", m.ChangePct7d),
			Change30d:  c.Optional("change_30d", m.ChangePct30d),
			Change1y:   c.Optional("change_1y", m.ChangePct1y),
			ReceivedAt: provider.ParseTime(m.LastUpdated, now),
		}
		if m.Sparkline != nil {
			q.Sparkline = c.Series("sparkline", m.Sparkline.Price)
		}
		q.Unparsed = c.Unparsed()
		out = append(out, q)
	}
	// CoinGecko only sorts by market cap, volume or id.
	if p.SortBy != "" && nativeOrder(p.SortBy, p.Order) == "" {
		provider.SortQuotes(out, p.SortBy, p.Order)
	}
	return provider.Limit(out, p.Limit)
}

func nativeOrder(sortBy, order string) string {
	switch sortBy {
	case "market_cap":
		return "market_cap_" + order
	case "volume", "volume_24h":
		return "volume_" + order
	}
	return ""
}

// GetMarkets calls /coins/markets. Quote and detail requests filter by the
// requested ids; markets requests page through the ranking.
func (c *Client) GetMarkets(ctx context.Context, req provider.Request) (*MarketsPayload, error) {
	q := url.Values{}
	q.Set("vs_currency", strings.ToLower(req.Currency))
	q.Set("sparkline", "true")
	q.Set("price_change_percentage", "1h,24h,7d,30d,1y")
	q.Set("page", "1")

	payload := &MarketsPayload{}
	if req.Endpoint == provider.EndpointMarkets && len(req.Symbols) == 0 {
		order := nativeOrder(req.SortBy, req.Order)
		perPage := req.Limit
		if order == "" {
			// Sorted locally over the widest page one call can return.
			order = "market_cap_desc"
			perPage = provider.MaxMarketsLimit
			payload.SortBy, payload.Order = req.SortBy, req.Order
		}
		q.Set("order", order)
		q.Set("per_page", strconv.Itoa(perPage))
		payload.Limit = req.Limit
	} else {
		if len(req.Symbols) == 0 {
			return nil, nil
		}
		ids := make([]string, 0, len(req.Symbols))
		for _, s := range req.Symbols {
			ids = append(ids, CoinID(s))
		}
		q.Set("ids", strings.Join(ids, ","))
		q.Set("per_page", strconv.Itoa(len(ids)))
	}

	httpReq, err := c.newRequest(ctx, "/coins/markets?"+q.Encode())
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

	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload.Markets); err != nil {
		return nil, fmt.Errorf("%w: decoding markets: %v", provider.ErrMalformed, err)
	}
	if len(payload.Markets) == 0 {
		return nil, nil
	}
	return payload, nil
}
