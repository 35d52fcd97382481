package aggregate

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"paisamarket/internal/provider"
)

// ProviderStatus is one provider's outcome in a probe.
type ProviderStatus struct {
	Provider string        `json:"provider"`
	Quotes   int           `json:"quotes"`
	Err      string        `json:"error,omitempty"`
	Took     time.Duration `json:"took_ns"`
}

// Report is the result of querying every provider for the same request.
type Report struct {
	Request   provider.Request `json:"-"`
	Providers []ProviderStatus `json:"providers"`
	Latest    []Latest         `json:"latest"`
	Spreads   []SymbolSpread   `json:"spreads"`
}

// Probe asks every provider in parallel, bypassing the cache and fallback
// chain. A failing provider is recorded in its status and does not affect the
// others. Only ctx cancellation returns an error.
func Probe(ctx context.Context, providers []provider.Provider, req provider.Request, log logrus.FieldLogger) (Report, error) {
	req = req.Normalize()
	statuses := make([]ProviderStatus, len(providers))
	results := make([][]provider.Quote, len(providers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, p := range providers {
		g.Go(func() error {
			start := time.Now()
			qs, err := p.Fetch(gctx, req)
			statuses[i] = ProviderStatus{Provider: p.Name(), Quotes: len(qs), Took: time.Since(start)}
			if err != nil {
				statuses[i].Err = err.Error()
				log.WithField("provider", p.Name()).WithError(err).Info("probe failed")
				return nil
			}
			results[i] = qs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	var all []provider.Quote
	for _, qs := range results {
		all = append(all, qs...)
	}
	latest := LatestBySource(all)
	return Report{
		Request:   req,
		Providers: statuses,
		Latest:    latest,
		Spreads:   Spread(latest),
	}, nil
}
