package aggregate

import (
	"testing"
	"time"

	"paisamarket/internal/provider"
)

func TestLatest_NewestWinsPerSource(t *testing.T) {
	t1 := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	t2 := t1.Add(1 * time.Hour)

	in := []provider.Quote{
		{Symbol: "BTC", Price: 67000, Source: "CoinGecko", ReceivedAt: t2},
		{Symbol: "btc", Price: 66000, Source: "coingecko:proxy", ReceivedAt: t1},
	}

	out := LatestBySource(in)
	if len(out) != 1 {
		t.Fatalf("want 1, got %d: %+v", len(out), out)
	}
	got := out[0]
	if got.Source != "CoinGecko" || got.Symbol != "BTC" || got.Price != 67000 || !got.ReceivedAt.Equal(t2) {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestLatest_EqualTimestampsLaterInputWins(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	in := []provider.Quote{
		{Symbol: "ETH", Price: 3500, Source: "LiveCoinWatch", ReceivedAt: ts},
		{Symbol: "ETH", Price: 3501, Source: "lcw", ReceivedAt: ts},
	}
	out := LatestBySource(in)
	if len(out) != 1 || out[0].Price != 3501 {
		t.Fatalf("unexpected: %+v", out)
	}
}

func TestLatest_DistinctSourcesDoNotCollapse(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	in := []provider.Quote{
		{Symbol: "SOL", Price: 150, Source: "Coinranking", ReceivedAt: ts},
		{Symbol: "SOL", Price: 151, Source: "CoinGecko", ReceivedAt: ts},
		{Symbol: "BTC", Price: 67000, Source: "CoinGecko", ReceivedAt: ts},
	}
	out := LatestBySource(in)
	if len(out) != 3 {
		t.Fatalf("want 3 rows, got %d: %+v", len(out), out)
	}
	// sorted by symbol then source
	if out[0].Symbol != "BTC" || out[1].Source != "CoinGecko" || out[2].Source != "Coinranking" {
		t.Fatalf("unexpected order: %+v", out)
	}
}

func TestLatest_ZeroTimestampIsFilled(t *testing.T) {
	out := LatestBySource([]provider.Quote{{Symbol: "ADA", Price: 0.45, Source: "CoinGecko"}})
	if len(out) != 1 || out[0].ReceivedAt.IsZero() {
		t.Fatalf("unexpected: %+v", out)
	}
}

func TestSpread_MinMaxAndPercent(t *testing.T) {
	rows := []Latest{
		{Symbol: "BTC", Source: "CoinGecko", Price: 100},
		{Symbol: "BTC", Source: "Coinranking", Price: 102},
		{Symbol: "BTC", Source: "LiveCoinWatch", Price: 101},
		{Symbol: "BTC", Source: "placeholder", Price: 500, Placeholder: true},
		{Symbol: "ETH", Source: "CoinGecko", Price: 0},
	}
	out := Spread(rows)
	if len(out) != 1 {
		t.Fatalf("want 1 symbol, got %d: %+v", len(out), out)
	}
	s := out[0]
	if s.Sources != 3 || s.Min != 100 || s.MinSource != "CoinGecko" || s.Max != 102 || s.MaxSource != "Coinranking" {
		t.Fatalf("unexpected spread: %+v", s)
	}
	if s.SpreadPct < 1.999 || s.SpreadPct > 2.001 {
		t.Fatalf("spread pct: %v", s.SpreadPct)
	}
}

func TestNormalizeSource_Aliases_Casing(t *testing.T) {
	cases := map[string]string{
		"coingecko":       "CoinGecko",
		" CoinGecko ":     "CoinGecko",
		"coingecko:proxy": "CoinGecko",
		"LCW":             "LiveCoinWatch",
		"alpha-vantage":   "AlphaVantage",
		"Coinranking":     "Coinranking",
		"SomethingElse":   "SomethingElse",
		"":                "",
	}
	for in, want := range cases {
		if got := NormalizeSource(in); got != want {
			t.Fatalf("NormalizeSource(%q) = %q, want %q", in, got, want)
		}
	}
}
