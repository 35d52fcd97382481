package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Quote is the normalized shape returned by all providers.
// Numeric fields are always finite; Price is never negative. Fields that
// were present in the provider payload but could not be parsed are coerced
// to zero and listed in Unparsed.
type Quote struct {
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name,omitempty"`
	Price       float64   `json:"price"`
	MarketCap   float64   `json:"market_cap"`
	Volume24h   float64   `json:"volume_24h"`
	Change24h   float64   `json:"change_24h"`
	Change1h    *float64  `json:"change_1h,omitempty"`
	Change7d    *float64  `json:"change_7d,omitempty"`
	Change30d   *float64  `json:"change_30d,omitempty"`
	Change1y    *float64  `json:"change_1y,omitempty"`
	Sparkline   []float64 `json:"sparkline,omitempty"`
	Source      string    `json:"source"`
	Placeholder bool      `json:"placeholder,omitempty"`
	Unparsed    []string  `json:"unparsed,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
}

// Provider is a single upstream market-data source.
//
// Fetch performs at most one network call. It returns (nil, nil) when the
// provider has no data for the request or does not serve the endpoint.
//
//go:generate mockgen -package=providermock -destination=providermock/mock_provider.go -source=provider.go Provider
type Provider interface {
	Name() string
	Fetch(ctx context.Context, req Request) ([]Quote, error)
}

// Endpoint is the kind of data a Request asks for.
type Endpoint string

const (
	EndpointQuote   Endpoint = "quote"
	EndpointDetail  Endpoint = "detail"
	EndpointMarkets Endpoint = "markets"
	EndpointHistory Endpoint = "history"
)

// ParseEndpoint maps a user supplied name onto an Endpoint.
func ParseEndpoint(s string) (Endpoint, error) {
	switch e := Endpoint(strings.ToLower(strings.TrimSpace(s))); e {
	case EndpointQuote, EndpointDetail, EndpointMarkets, EndpointHistory:
		return e, nil
	}
	return "", fmt.Errorf("unknown endpoint %q", s)
}

const (
	DefaultMarketsLimit = 50
	MaxMarketsLimit     = 250
	DefaultSortBy       = "market_cap"
	DefaultOrder        = "desc"
	DefaultTimeRange    = "7d"
	DefaultCurrency     = "USD"
)

// Request describes what the caller wants independent of any provider.
type Request struct {
	Endpoint  Endpoint
	Symbols   []string
	Limit     int
	SortBy    string
	Order     string
	TimeRange string
	Currency  string
}

// Normalize returns a copy with upper-cased, de-duplicated symbols and
// defaults applied.
func (r Request) Normalize() Request {
	out := r
	if out.Endpoint == "" {
		out.Endpoint = EndpointQuote
	}
	seen := make(map[string]struct{}, len(r.Symbols))
	out.Symbols = make([]string, 0, len(r.Symbols))
	for _, s := range r.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out.Symbols = append(out.Symbols, s)
	}
	if out.Limit <= 0 {
		out.Limit = DefaultMarketsLimit
	}
	if out.Limit > MaxMarketsLimit {
		out.Limit = MaxMarketsLimit
	}
	out.SortBy = strings.ToLower(strings.TrimSpace(out.SortBy))
	if out.SortBy == "" {
		out.SortBy = DefaultSortBy
	}
	out.Order = strings.ToLower(strings.TrimSpace(out.Order))
	if out.Order != "asc" {
		out.Order = DefaultOrder
	}
	out.TimeRange = strings.ToLower(strings.TrimSpace(out.TimeRange))
	if _, ok := rangeDays[out.TimeRange]; !ok {
		out.TimeRange = DefaultTimeRange
	}
	out.Currency = strings.ToUpper(strings.TrimSpace(out.Currency))
	if out.Currency == "" {
		out.Currency = DefaultCurrency
	}
	return out
}

// Key renders the composite cache key for a normalized request. Provider
// specific keys are built by prefixing the provider name.
func (r Request) Key() string {
	return strings.Join([]string{
		string(r.Endpoint),
		strings.Join(r.Symbols, ","),
		fmt.Sprint(r.Limit),
		r.SortBy,
		r.Order,
		r.TimeRange,
		r.Currency,
	}, "|")
}

// Symbol returns the first requested symbol or "".
func (r Request) Symbol() string {
	if len(r.Symbols) == 0 {
		return ""
	}
	return r.Symbols[0]
}

var rangeDays = map[string]int{
	"24h": 1,
	"7d":  7,
	"30d": 30,
	"3m":  90,
	"1y":  365,
	"5y":  1825,
}

// ValidRange reports whether timeRange is one of the supported ranges.
func ValidRange(timeRange string) bool {
	_, ok := rangeDays[strings.ToLower(strings.TrimSpace(timeRange))]
	return ok
}

// SortKeys lists the accepted markets sort keys.
var SortKeys = []string{"market_cap", "price", "volume", "change"}

// RangeDays returns the number of days covered by a time range; unknown
// ranges map to the default range.
func RangeDays(timeRange string) int {
	if d, ok := rangeDays[timeRange]; ok {
		return d
	}
	return rangeDays[DefaultTimeRange]
}
