package provider

import "time"

// Kind tags a provider specific payload with the upstream that produced it.
// The value is the source label carried by every decoded Quote.
type Kind string

const (
	KindCoinGecko     Kind = "CoinGecko"
	KindCoinranking   Kind = "Coinranking"
	KindLiveCoinWatch Kind = "LiveCoinWatch"
	KindAlphaVantage  Kind = "AlphaVantage"
)

// Payload is a decoded provider response. Each adapter defines its own
// payload types and the parser that turns them into normalized quotes.
type Payload interface {
	Kind() Kind
	Normalize(now time.Time) []Quote
}

// Decode normalizes p and labels every quote with p.Kind(). A payload that
// yields no rows decodes to nil so callers treat it as no data.
func Decode(p Payload, now time.Time) []Quote {
	qs := p.Normalize(now)
	if len(qs) == 0 {
		return nil
	}
	src := string(p.Kind())
	for i := range qs {
		qs[i].Source = src
	}
	return qs
}
