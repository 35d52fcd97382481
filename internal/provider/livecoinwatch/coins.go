package livecoinwatch

import (
	"context"
	"strings"
	"time"

	"paisamarket/internal/provider"
)

type delta struct {
	Hour  any `json:"hour"`
	Day   any `json:"day"`
	Week  any `json:"week"`
	Month any `json:"month"`
	Year  any `json:"year"`
}

type coin struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Rate   any    `json:"rate"`
	Volume any    `json:"volume"`
	Cap    any    `json:"cap"`
	Delta  *delta `json:"delta"`
}

// CoinsPayload is the decoded /coins/map or /coins/list response.
type CoinsPayload struct {
	Coins  []coin
	SortBy string
	Order  string
	Limit  int
}

func (p *CoinsPayload) Kind() provider.Kind { return provider.KindLiveCoinWatch }

func (p *CoinsPayload) Normalize(now time.Time) []provider.Quote {
	out := make([]provider.Quote, 0, len(p.Coins))
	for _, cn := range p.Coins {
		var c provider.Coercer
		q := provider.Quote{
			Symbol:     strings.ToUpper(strings.TrimLeft(cn.Code, "_")),
			Name:       cn.Name,
			Price:      c.Price("price", cn.Rate),
			MarketCap:  c.Float("market_cap", cn.Cap),
			Volume24h:  c.Float("volume_24h", cn.Volume),
			ReceivedAt: now,
		}
		if d := cn.Delta; d != nil {
			if v := deltaPct(&c, "change_24h", d.Day); v != nil {
				q.Change24h = *v
			}
			q.Change1h = deltaPct(&c, "change_1h", d.Hour)
			q.Change7d = deltaPct(&c, "change_7d", d.Week)
			q.Change30d = deltaPct(&c, "change_30d", d.Month)
			q.Change1y = deltaPct(&c, "change_1y", d.Year)
		}
		q.Unparsed = c.Unparsed()
		out = append(out, q)
	}
	if localSort(p.SortBy) {
		provider.SortQuotes(out, p.SortBy, p.Order)
	}
	if p.Limit > 0 {
		out = provider.Limit(out, p.Limit)
	}
	return out
}

// localSort reports sort keys the upstream cannot rank by.
func localSort(sortBy string) bool {
	return sortBy == "change" || sortBy == "change_24h"
}

// deltaPct converts a LiveCoinWatch ratio (1.012) into a percentage (1.2).
func deltaPct(c *provider.Coercer, field string, v any) *float64 {
	r := c.Optional(field, v)
	if r == nil || *r == 0 {
		return nil
	}
	pct := (*r - 1) * 100
	return &pct
}

type mapRequest struct {
	Currency string   `json:"currency"`
	Codes    []string `json:"codes"`
	Sort     string   `json:"sort"`
	Order    string   `json:"order"`
	Offset   int      `json:"offset"`
	Limit    int      `json:"limit"`
	Meta     bool     `json:"meta"`
}

type listRequest struct {
	Currency string `json:"currency"`
	Sort     string `json:"sort"`
	Order    string `json:"order"`
	Offset   int    `json:"offset"`
	Limit    int    `json:"limit"`
	Meta     bool   `json:"meta"`
}

// listSort maps the request sort key onto LiveCoinWatch's sort and order.
// Rank ascending is market cap descending.
func listSort(sortBy, order string) (string, string) {
	dir := func(desc bool) string {
		if desc {
			return "descending"
		}
		return "ascending"
	}
	switch sortBy {
	case "price":
		return "price", dir(order == "desc")
	case "volume", "volume_24h":
		return "volume", dir(order == "desc")
	}
	return "rank", dir(order != "desc")
}

// GetMap calls /coins/map for the requested codes.
func (c *Client) GetMap(ctx context.Context, req provider.Request) (*CoinsPayload, error) {
	if len(req.Symbols) == 0 {
		return nil, nil
	}
	sort, order := listSort(req.SortBy, req.Order)
	body := mapRequest{
		Currency: req.Currency,
		Codes:    req.Symbols,
		Sort:     sort,
		Order:    order,
		Limit:    len(req.Symbols),
		Meta:     true,
	}
	var coins []coin
	found, err := c.post(ctx, "/coins/map", body, &coins)
	if err != nil || !found || len(coins) == 0 {
		return nil, err
	}
	return &CoinsPayload{Coins: coins}, nil
}

// GetList calls /coins/list for a ranked page.
func (c *Client) GetList(ctx context.Context, req provider.Request) (*CoinsPayload, error) {
	sort, order := listSort(req.SortBy, req.Order)
	limit := req.Limit
	if localSort(req.SortBy) {
		// Sorted locally over the widest page one call can return.
		limit = provider.MaxMarketsLimit
	}
	body := listRequest{
		Currency: req.Currency,
		Sort:     sort,
		Order:    order,
		Limit:    limit,
		Meta:     true,
	}
	var coins []coin
	found, err := c.post(ctx, "/coins/list", body, &coins)
	if err != nil || !found || len(coins) == 0 {
		return nil, err
	}
	return &CoinsPayload{Coins: coins, SortBy: req.SortBy, Order: req.Order, Limit: req.Limit}, nil
}
