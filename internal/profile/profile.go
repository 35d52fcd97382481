// Package profile holds static metadata about the market-data providers and
// renders it for humans. Nothing at runtime depends on these values.
package profile

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
)

// Profile describes one provider's quota and feature set.
type Profile struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Priority    int      `json:"priority"`
	FreeQuota   string   `json:"free_quota"`
	RateLimit   string   `json:"rate_limit"`
	Features    []string `json:"features"`
	Advantages  []string `json:"advantages"`
	Limitations []string `json:"limitations"`
}

var profiles = []Profile{
	{
		Name:        "CoinGecko",
		Label:       "Primary",
		Priority:    1,
		FreeQuota:   "10,000 calls/month (demo key)",
		RateLimit:   "30 calls/min",
		Features:    []string{"quotes", "markets", "history", "sparkline", "1h-1y changes"},
		Advantages:  []string{"widest coin coverage", "server side ordering", "served through the key-hiding proxy"},
		Limitations: []string{"symbol to id mapping required", "aggressive 429s without a key"},
	},
	{
		Name:        "Coinranking",
		Label:       "Secondary",
		Priority:    2,
		FreeQuota:   "5,000 calls/month",
		RateLimit:   "10 calls/min",
		Features:    []string{"quotes", "markets", "sparkline"},
		Advantages:  []string{"query by ticker symbol", "sparkline included in every listing"},
		Limitations: []string{"numbers encoded as strings", "single change window per call"},
	},
	{
		Name:        "LiveCoinWatch",
		Label:       "Tertiary",
		Priority:    3,
		FreeQuota:   "10,000 calls/day",
		RateLimit:   "no published per-minute limit",
		Features:    []string{"quotes", "markets", "history", "1h-1y deltas"},
		Advantages:  []string{"richest change data", "batch lookup by code"},
		Limitations: []string{"POST only API", "deltas reported as ratios"},
	},
	{
		Name:        "AlphaVantage",
		Label:       "Equities",
		Priority:    4,
		FreeQuota:   "25 calls/day",
		RateLimit:   "5 calls/min",
		Features:    []string{"equity quotes", "daily history"},
		Advantages:  []string{"stocks and ETFs", "long daily history"},
		Limitations: []string{"one symbol per call", "throttle reported inside a 200 body"},
	},
}

// All returns a copy of the known profiles in priority order.
func All() []Profile {
	out := make([]Profile, len(profiles))
	for i, p := range profiles {
		p.Features = slices.Clone(p.Features)
		p.Advantages = slices.Clone(p.Advantages)
		p.Limitations = slices.Clone(p.Limitations)
		out[i] = p
	}
	return out
}

// Lookup finds a profile by case-insensitive name.
func Lookup(name string) (Profile, bool) {
	for _, p := range All() {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Profile{}, false
}

// Comparison renders an aligned summary table followed by per-provider
// details.
func Comparison(ps []Profile) string {
	ps = slices.Clone(ps)
	slices.SortStableFunc(ps, func(a, b Profile) int { return a.Priority - b.Priority })

	var b strings.Builder
	b.WriteString("Market data provider comparison\n\n")

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPROVIDER\tROLE\tFREE QUOTA\tRATE LIMIT")
	for _, p := range ps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", p.Priority, p.Name, p.Label, p.FreeQuota, p.RateLimit)
	}
	_ = tw.Flush()

	for _, p := range ps {
		fmt.Fprintf(&b, "\n%s (%s)\n", p.Name, p.Label)
		writeList(&b, "Features", p.Features)
		writeList(&b, "Advantages", p.Advantages)
		writeList(&b, "Limitations", p.Limitations)
	}
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s:\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "    - %s\n", it)
	}
}
