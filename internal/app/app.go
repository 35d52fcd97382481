// Package app wires configuration into the provider chain, cache,
// coordinator and news fetcher shared by the server and the CLI.
package app

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"paisamarket/internal/aggregate"
	"paisamarket/internal/config"
	"paisamarket/internal/fallback"
	"paisamarket/internal/httpx"
	"paisamarket/internal/news"
	"paisamarket/internal/placeholder"
	"paisamarket/internal/provider"
	"paisamarket/internal/provider/alphavantage"
	"paisamarket/internal/provider/cache"
	"paisamarket/internal/provider/coingecko"
	"paisamarket/internal/provider/coinranking"
	"paisamarket/internal/provider/livecoinwatch"
	"paisamarket/internal/provider/ratelimit"
)

type App struct {
	Config      config.Config
	Log         logrus.FieldLogger
	Providers   []provider.Provider
	Coordinator *fallback.Coordinator
	// News is nil when news is disabled.
	News *news.Fetcher
}

// Option overrides pieces of the wiring, mainly for tests.
type Option func(*options)

type options struct {
	httpClient httpx.HTTPClient
	now        func() time.Time
}

func WithHTTPClient(hc httpx.HTTPClient) Option {
	return func(o *options) { o.httpClient = hc }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func New(cfg config.Config, log logrus.FieldLogger, opts ...Option) *App {
	client := httpx.New(cfg.RequestTimeout())
	o := options{httpClient: client, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	providers := buildChain(cfg, o, log)
	quotes := cache.New[[]provider.Quote](cache.WithClock(o.now))
	co := fallback.New(providers,
		fallback.WithCache(quotes),
		fallback.WithTTLs(fallback.TTLs{
			provider.EndpointQuote:   cfg.Cache.QuoteTTL(),
			provider.EndpointDetail:  cfg.Cache.DetailTTL(),
			provider.EndpointMarkets: cfg.Cache.MarketsTTL(),
			provider.EndpointHistory: cfg.Cache.HistoryTTL(),
		}),
		fallback.WithPlaceholder(placeholder.New(cfg.Placeholder.Seed, placeholder.WithClock(o.now))),
		fallback.WithLogger(log.WithField("component", "fallback")),
	)

	a := &App{Config: cfg, Log: log, Providers: providers, Coordinator: co}
	if cfg.News.Enabled {
		a.News = news.New(
			news.WithFeeds(cfg.News.Feeds),
			news.WithHTTPClient(client.HTTP),
			news.WithUserAgent(client.UserAgent),
			news.WithCache(cache.New[[]news.Article](cache.WithClock(o.now))),
			news.WithTTL(cfg.Cache.NewsTTL()),
			news.WithLogger(log.WithField("component", "news")),
		)
	}
	return a
}

// buildChain creates the enabled adapters in chain order, each behind its
// configured rate limiter.
func buildChain(cfg config.Config, o options, log logrus.FieldLogger) []provider.Provider {
	var out []provider.Provider
	for _, name := range cfg.Providers.Chain {
		sec, ok := cfg.Providers.Get(name)
		if !ok || !sec.Enabled {
			continue
		}
		var p provider.Provider
		switch strings.ToLower(name) {
		case "coingecko":
			p = coingecko.New(
				coingecko.WithBaseURL(sec.Endpoint),
				coingecko.WithHTTPClient(o.httpClient),
				coingecko.WithAPIKey(sec.APIKey),
				coingecko.WithClock(o.now),
			)
		case "coinranking":
			p = coinranking.New(
				coinranking.WithBaseURL(sec.Endpoint),
				coinranking.WithHTTPClient(o.httpClient),
				coinranking.WithAPIKey(sec.APIKey),
				coinranking.WithClock(o.now),
			)
		case "livecoinwatch":
			if sec.APIKey == "" {
				log.WithField("provider", livecoinwatch.Name).Warn("enabled but no API key set; skipping")
				continue
			}
			p = livecoinwatch.New(
				livecoinwatch.WithBaseURL(sec.Endpoint),
				livecoinwatch.WithHTTPClient(o.httpClient),
				livecoinwatch.WithAPIKey(sec.APIKey),
				livecoinwatch.WithClock(o.now),
			)
		case "alphavantage":
			if sec.Endpoint == "" {
				log.WithField("provider", alphavantage.Name).Info("no proxy URL set; skipping")
				continue
			}
			p = alphavantage.New(
				alphavantage.WithBaseURL(sec.Endpoint),
				alphavantage.WithHTTPClient(o.httpClient),
				alphavantage.WithClock(o.now),
			)
		}
		out = append(out, limit(p, sec))
	}
	return out
}

// limit prefers a token bucket when an RPM is set, otherwise a minimum
// interval.
func limit(p provider.Provider, sec config.Provider) provider.Provider {
	switch {
	case sec.MaxRequestsPerMinute > 0:
		return &ratelimit.TokenBucketProvider{
			P:           p,
			TB:          ratelimit.PerMinute(sec.MaxRequestsPerMinute, sec.Burst),
			NonBlocking: sec.NonBlocking,
		}
	case sec.MinRequestIntervalSec > 0:
		return &ratelimit.MinInterval{
			P:           p,
			Interval:    time.Duration(sec.MinRequestIntervalSec) * time.Second,
			NonBlocking: sec.NonBlocking,
		}
	}
	return p
}

// Probe queries every configured provider for req, bypassing the cache.
func (a *App) Probe(ctx context.Context, req provider.Request) (aggregate.Report, error) {
	return aggregate.Probe(ctx, a.Providers, req, a.Log.WithField("component", "probe"))
}
