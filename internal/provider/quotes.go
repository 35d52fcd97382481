package provider

import (
	"sort"
	"time"
)

// SortQuotes orders quotes in place for providers that cannot sort
// server side. Unknown keys sort by market cap.
func SortQuotes(qs []Quote, sortBy, order string) {
	key := func(q Quote) float64 {
		switch sortBy {
		case "price":
			return q.Price
		case "volume", "volume_24h", "24hvolume":
			return q.Volume24h
		case "change", "change_24h":
			return q.Change24h
		default:
			return q.MarketCap
		}
	}
	sort.SliceStable(qs, func(i, j int) bool {
		if order == "asc" {
			return key(qs[i]) < key(qs[j])
		}
		return key(qs[i]) > key(qs[j])
	})
}

// WindowChange sets the percentage change between the first and last sample
// of a history series on the field matching timeRange.
func WindowChange(q *Quote, timeRange string) {
	if len(q.Sparkline) < 2 || q.Sparkline[0] == 0 {
		return
	}
	pct := (q.Sparkline[len(q.Sparkline)-1] - q.Sparkline[0]) / q.Sparkline[0] * 100
	switch timeRange {
	case "24h":
		q.Change24h = pct
	case "7d":
		q.Change7d = &pct
	case "30d":
		q.Change30d = &pct
	case "1y":
		q.Change1y = &pct
	}
}

// ParseTime parses an RFC3339 timestamp, returning fallback on failure.
func ParseTime(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fallback
	}
	return t.UTC()
}

// ParseEpochMaybeMillis converts seconds or milliseconds since the epoch.
func ParseEpochMaybeMillis(v int64, fallback time.Time) time.Time {
	if v <= 0 {
		return fallback
	}
	if v > 1_000_000_000_000 {
		return time.UnixMilli(v).UTC()
	}
	return time.Unix(v, 0).UTC()
}

// Limit truncates qs to n entries when n is positive.
func Limit(qs []Quote, n int) []Quote {
	if n > 0 && len(qs) > n {
		return qs[:n]
	}
	return qs
}
