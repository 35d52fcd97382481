package api

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"paisamarket/internal/provider"
)

const maxSymbols = 50

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]{0,31}$`)

// badRequest marks validation failures.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func invalid(format string, args ...any) error {
	return &badRequest{msg: fmt.Sprintf(format, args...)}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func checkSymbols(symbols []string) error {
	if len(symbols) == 0 {
		return invalid("symbol is required")
	}
	if len(symbols) > maxSymbols {
		return invalid("too many symbols (max %d)", maxSymbols)
	}
	for _, s := range symbols {
		if !symbolPattern.MatchString(s) {
			return invalid("invalid symbol %q", s)
		}
	}
	return nil
}

func quoteRequest(symbols []string, currency string) (provider.Request, error) {
	if err := checkSymbols(symbols); err != nil {
		return provider.Request{}, err
	}
	return provider.Request{Endpoint: provider.EndpointQuote, Symbols: symbols, Currency: currency}.Normalize(), nil
}

func detailRequest(symbol, currency string) (provider.Request, error) {
	if err := checkSymbols([]string{symbol}); err != nil {
		return provider.Request{}, err
	}
	return provider.Request{Endpoint: provider.EndpointDetail, Symbols: []string{symbol}, Currency: currency}.Normalize(), nil
}

func marketsRequest(limit int, sortBy, order, currency string) (provider.Request, error) {
	if limit < 0 || limit > provider.MaxMarketsLimit {
		return provider.Request{}, invalid("limit must be between 1 and %d", provider.MaxMarketsLimit)
	}
	sortBy = strings.ToLower(strings.TrimSpace(sortBy))
	if sortBy != "" && !slices.Contains(provider.SortKeys, sortBy) {
		return provider.Request{}, invalid("sort must be one of %s", strings.Join(provider.SortKeys, ", "))
	}
	order = strings.ToLower(strings.TrimSpace(order))
	if order != "" && order != "asc" && order != "desc" {
		return provider.Request{}, invalid("order must be asc or desc")
	}
	return provider.Request{
		Endpoint: provider.EndpointMarkets,
		Limit:    limit,
		SortBy:   sortBy,
		Order:    order,
		Currency: currency,
	}.Normalize(), nil
}

func historyRequest(symbol, timeRange, currency string) (provider.Request, error) {
	if err := checkSymbols([]string{symbol}); err != nil {
		return provider.Request{}, err
	}
	if timeRange != "" && !provider.ValidRange(timeRange) {
		return provider.Request{}, invalid("range must be one of 24h, 7d, 30d, 3m, 1y, 5y")
	}
	return provider.Request{
		Endpoint:  provider.EndpointHistory,
		Symbols:   []string{symbol},
		TimeRange: timeRange,
		Currency:  currency,
	}.Normalize(), nil
}
