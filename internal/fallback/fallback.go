// Package fallback implements the provider chain: cached data first, then
// each provider in priority order, then the newest stale entry, and finally a
// synthesized placeholder set so callers always get a renderable result.
package fallback

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"paisamarket/internal/placeholder"
	"paisamarket/internal/provider"
	"paisamarket/internal/provider/cache"
)

// TTLs maps an endpoint to the age after which cached data is refetched.
type TTLs map[provider.Endpoint]time.Duration

// DefaultTTLs favours fresher coin detail over slower moving lists.
func DefaultTTLs() TTLs {
	return TTLs{
		provider.EndpointQuote:   5 * time.Minute,
		provider.EndpointDetail:  5 * time.Minute,
		provider.EndpointMarkets: 10 * time.Minute,
		provider.EndpointHistory: 15 * time.Minute,
	}
}

func (t TTLs) For(e provider.Endpoint) time.Duration {
	if d, ok := t[e]; ok {
		return d
	}
	return 5 * time.Minute
}

// Attempt records what happened when a provider was consulted.
type Attempt struct {
	Provider string        `json:"provider"`
	Cached   bool          `json:"cached,omitempty"`
	Empty    bool          `json:"empty,omitempty"`
	Err      string        `json:"error,omitempty"`
	Took     time.Duration `json:"took_ns,omitempty"`
}

// Result is the outcome of a coordinated fetch. Quotes is shared with the
// cache and with concurrent callers and must not be modified.
type Result struct {
	Quotes      []provider.Quote `json:"quotes"`
	Source      string           `json:"source"`
	Cached      bool             `json:"cached"`
	Stale       bool             `json:"stale"`
	Placeholder bool             `json:"placeholder"`
	Shared      bool             `json:"shared,omitempty"`
	FetchedAt   time.Time        `json:"fetched_at"`
	Attempts    []Attempt        `json:"attempts,omitempty"`
}

// Coordinator serves requests from an ordered list of providers.
type Coordinator struct {
	providers   []provider.Provider
	cache       *cache.Cache[[]provider.Quote]
	ttls        TTLs
	placeholder *placeholder.Generator
	log         logrus.FieldLogger

	group singleflight.Group
}

type Option func(*Coordinator)

func WithCache(c *cache.Cache[[]provider.Quote]) Option {
	return func(co *Coordinator) { co.cache = c }
}

func WithTTLs(t TTLs) Option {
	return func(co *Coordinator) {
		for e, d := range t {
			co.ttls[e] = d
		}
	}
}

func WithPlaceholder(g *placeholder.Generator) Option {
	return func(co *Coordinator) { co.placeholder = g }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(co *Coordinator) { co.log = l }
}

// New builds a coordinator over providers, tried in the given order.
func New(providers []provider.Provider, opts ...Option) *Coordinator {
	silent := logrus.New()
	silent.SetOutput(io.Discard)
	co := &Coordinator{
		providers: providers,
		ttls:      DefaultTTLs(),
		log:       silent,
	}
	for _, opt := range opts {
		opt(co)
	}
	if co.cache == nil {
		co.cache = cache.New[[]provider.Quote]()
	}
	if co.placeholder == nil {
		co.placeholder = placeholder.New(0, placeholder.WithClock(co.cache.Now))
	}
	return co
}

// Providers returns the chain in priority order.
func (c *Coordinator) Providers() []provider.Provider {
	out := make([]provider.Provider, len(c.providers))
	copy(out, c.providers)
	return out
}

// Fetch resolves req through the chain. The only errors returned are the
// caller's context errors; every provider failure is absorbed.
//
// Concurrent calls for the same request share one in-flight resolution.
// Each caller still stops waiting when its own context is done.
func (c *Coordinator) Fetch(ctx context.Context, req provider.Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	req = req.Normalize()
	ch := c.group.DoChan(req.Key(), func() (any, error) {
		return c.resolve(ctx, req)
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			// The leader's context ended; ours did not.
			if isContextErr(r.Err) && ctx.Err() == nil {
				return c.resolve(ctx, req)
			}
			return Result{}, r.Err
		}
		res := r.Val.(Result)
		res.Shared = r.Shared
		return res, nil
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (c *Coordinator) cacheKey(p provider.Provider, req provider.Request) string {
	return p.Name() + "|" + req.Key()
}

func (c *Coordinator) resolve(ctx context.Context, req provider.Request) (Result, error) {
	key := req.Key()
	log := c.log.WithFields(logrus.Fields{"key": key, "endpoint": req.Endpoint})
	ttl := c.ttls.For(req.Endpoint)

	for _, p := range c.providers {
		if e, ok := c.cache.Get(c.cacheKey(p, req), ttl); ok {
			log.WithField("provider", p.Name()).Debug("cache hit")
			return Result{
				Quotes:    e.Value,
				Source:    p.Name(),
				Cached:    true,
				FetchedAt: e.FetchedAt,
				Attempts:  []Attempt{{Provider: p.Name(), Cached: true}},
			}, nil
		}
	}

	attempts := make([]Attempt, 0, len(c.providers))
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		start := time.Now()
		qs, err := p.Fetch(ctx, req)
		a := Attempt{Provider: p.Name(), Took: time.Since(start)}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			a.Err = err.Error()
			attempts = append(attempts, a)
			log.WithField("provider", p.Name()).WithError(err).Warn("provider failed, trying next")
			continue
		}
		if req.Endpoint == provider.EndpointMarkets {
			qs = provider.Limit(qs, req.Limit)
		}
		if len(qs) == 0 {
			a.Empty = true
			attempts = append(attempts, a)
			log.WithField("provider", p.Name()).Debug("provider returned no data")
			continue
		}
		attempts = append(attempts, a)
		e := c.cache.Set(c.cacheKey(p, req), qs)
		return Result{
			Quotes:    e.Value,
			Source:    p.Name(),
			FetchedAt: e.FetchedAt,
			Attempts:  attempts,
		}, nil
	}

	if e, src, ok := c.newestStale(req); ok {
		log.WithFields(logrus.Fields{"provider": src, "age": c.cache.Now().Sub(e.FetchedAt)}).
			Warn("all providers failed, serving stale data")
		return Result{
			Quotes:    e.Value,
			Source:    src,
			Cached:    true,
			Stale:     true,
			FetchedAt: e.FetchedAt,
			Attempts:  attempts,
		}, nil
	}

	log.Warn("all providers failed, serving placeholder data")
	return Result{
		Quotes:      c.placeholder.Generate(req),
		Source:      placeholder.Source,
		Placeholder: true,
		FetchedAt:   c.cache.Now(),
		Attempts:    attempts,
	}, nil
}

func (c *Coordinator) newestStale(req provider.Request) (cache.Entry[[]provider.Quote], string, bool) {
	var (
		best  cache.Entry[[]provider.Quote]
		src   string
		found bool
	)
	for _, p := range c.providers {
		e, ok := c.cache.Peek(c.cacheKey(p, req))
		if !ok {
			continue
		}
		if !found || e.FetchedAt.After(best.FetchedAt) {
			best, src, found = e, p.Name(), true
		}
	}
	return best, src, found
}

// Quote fetches current snapshots for one or more symbols.
func (c *Coordinator) Quote(ctx context.Context, symbols ...string) (Result, error) {
	return c.Fetch(ctx, provider.Request{Endpoint: provider.EndpointQuote, Symbols: symbols})
}

// Detail fetches a single coin with its longer range changes.
func (c *Coordinator) Detail(ctx context.Context, symbol string) (Result, error) {
	return c.Fetch(ctx, provider.Request{Endpoint: provider.EndpointDetail, Symbols: []string{symbol}})
}

// Markets fetches a ranked list.
func (c *Coordinator) Markets(ctx context.Context, limit int, sortBy, order string) (Result, error) {
	return c.Fetch(ctx, provider.Request{Endpoint: provider.EndpointMarkets, Limit: limit, SortBy: sortBy, Order: order})
}

// History fetches a price series over timeRange.
func (c *Coordinator) History(ctx context.Context, symbol, timeRange string) (Result, error) {
	return c.Fetch(ctx, provider.Request{Endpoint: provider.EndpointHistory, Symbols: []string{symbol}, TimeRange: timeRange})
}
