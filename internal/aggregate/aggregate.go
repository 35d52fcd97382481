package aggregate

import (
	"math"
	"sort"
	"strings"
	"time"

	"paisamarket/internal/provider"
)

// SourceKey identifies a quote bucket.
type SourceKey struct {
	Symbol string
	Source string
}

// Latest is the latest quote per SourceKey.
type Latest struct {
	Symbol      string    `json:"symbol"`
	Source      string    `json:"source"`
	Price       float64   `json:"price"`
	Change24h   float64   `json:"change_24h"`
	Placeholder bool      `json:"placeholder,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
}

// aliasMap normalizes the spellings used for the same upstream, including
// the proxy deployments that front CoinGecko and Alpha Vantage.
var aliasMap = map[string]string{
	"coingecko":       "CoinGecko",
	"coingecko-proxy": "CoinGecko",
	"cg":              "CoinGecko",
	"coinranking":     "Coinranking",
	"livecoinwatch":   "LiveCoinWatch",
	"lcw":             "LiveCoinWatch",
	"alphavantage":    "AlphaVantage",
	"alpha-vantage":   "AlphaVantage",
	"av":              "AlphaVantage",
	"placeholder":     "placeholder",
}

// NormalizeSource maps a source label onto its canonical provider name.
// Labels may carry a qualifier after ':' (e.g. "coingecko:proxy"); only the
// prefix is kept. Unknown labels are returned trimmed.
func NormalizeSource(src string) string {
	s := strings.TrimSpace(src)
	if i := strings.Index(s, ":"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if norm, ok := aliasMap[strings.ToLower(s)]; ok {
		return norm
	}
	return s
}

// LatestBySource collapses quotes by (Symbol, Source) keeping the newest.
// For equal timestamps, later input wins. Zero timestamps are replaced with time.Now().UTC().
func LatestBySource(quotes []provider.Quote) []Latest {
	now := time.Now().UTC()
	latest := make(map[SourceKey]Latest, len(quotes))

	for _, q := range quotes {
		ts := q.ReceivedAt
		if ts.IsZero() {
			ts = now
		}
		key := SourceKey{Symbol: strings.ToUpper(q.Symbol), Source: NormalizeSource(q.Source)}
		if cur, ok := latest[key]; ok && ts.Before(cur.ReceivedAt) {
			continue
		}
		latest[key] = Latest{
			Symbol:      key.Symbol,
			Source:      key.Source,
			Price:       q.Price,
			Change24h:   q.Change24h,
			Placeholder: q.Placeholder,
			ReceivedAt:  ts,
		}
	}

	out := make([]Latest, 0, len(latest))
	for _, v := range latest {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// SymbolSpread summarizes how far providers disagree on one symbol.
type SymbolSpread struct {
	Symbol    string  `json:"symbol"`
	Sources   int     `json:"sources"`
	Min       float64 `json:"min"`
	MinSource string  `json:"min_source"`
	Max       float64 `json:"max"`
	MaxSource string  `json:"max_source"`
	// SpreadPct is (max-min)/min*100, or 0 when min is not positive.
	SpreadPct float64 `json:"spread_pct"`
}

// Spread groups rows by symbol. Placeholder rows and non-positive prices are
// ignored; symbols with no usable rows are omitted.
func Spread(rows []Latest) []SymbolSpread {
	by := make(map[string]*SymbolSpread)
	order := make([]string, 0)
	for _, r := range rows {
		if r.Placeholder || r.Price <= 0 || math.IsNaN(r.Price) {
			continue
		}
		s, ok := by[r.Symbol]
		if !ok {
			s = &SymbolSpread{Symbol: r.Symbol, Min: r.Price, MinSource: r.Source, Max: r.Price, MaxSource: r.Source}
			by[r.Symbol] = s
			order = append(order, r.Symbol)
		}
		s.Sources++
		if r.Price < s.Min {
			s.Min, s.MinSource = r.Price, r.Source
		}
		if r.Price > s.Max {
			s.Max, s.MaxSource = r.Price, r.Source
		}
	}
	sort.Strings(order)
	out := make([]SymbolSpread, 0, len(order))
	for _, sym := range order {
		s := by[sym]
		if s.Min > 0 {
			s.SpreadPct = (s.Max - s.Min) / s.Min * 100
		}
		out = append(out, *s)
	}
	return out
}
