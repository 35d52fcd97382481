package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"paisamarket/internal/fallback"
	"paisamarket/internal/provider"
)

func newQuoteCmd(o *rootOptions) *cobra.Command {
	var currency string
	cmd := &cobra.Command{
		Use:   "quote SYMBOL...",
		Short: "Current price snapshot for one or more symbols",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runMarket(cmd, provider.Request{
				Endpoint: provider.EndpointQuote,
				Symbols:  splitArgs(args),
				Currency: currency,
			})
		},
	}
	cmd.Flags().StringVar(&currency, "currency", provider.DefaultCurrency, "quote currency")
	return cmd
}

func newDetailCmd(o *rootOptions) *cobra.Command {
	var currency string
	cmd := &cobra.Command{
		Use:   "detail SYMBOL",
		Short: "Detailed snapshot with multi-window changes and sparkline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runMarket(cmd, provider.Request{
				Endpoint: provider.EndpointDetail,
				Symbols:  args,
				Currency: currency,
			})
		},
	}
	cmd.Flags().StringVar(&currency, "currency", provider.DefaultCurrency, "quote currency")
	return cmd
}

func newMarketsCmd(o *rootOptions) *cobra.Command {
	var (
		limit         int
		sortBy, order string
	)
	cmd := &cobra.Command{
		Use:   "markets",
		Short: "Ranked market listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 || limit > provider.MaxMarketsLimit {
				return fmt.Errorf("--limit must be between 1 and %d", provider.MaxMarketsLimit)
			}
			if !slices.Contains(provider.SortKeys, strings.ToLower(sortBy)) {
				return fmt.Errorf("--sort must be one of %s", strings.Join(provider.SortKeys, ", "))
			}
			if ord := strings.ToLower(order); ord != "asc" && ord != "desc" {
				return fmt.Errorf("--order must be asc or desc")
			}
			return o.runMarket(cmd, provider.Request{
				Endpoint: provider.EndpointMarkets,
				Limit:    limit,
				SortBy:   sortBy,
				Order:    order,
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", provider.DefaultMarketsLimit, "number of rows")
	cmd.Flags().StringVar(&sortBy, "sort", provider.DefaultSortBy, "sort key: "+strings.Join(provider.SortKeys, ", "))
	cmd.Flags().StringVar(&order, "order", provider.DefaultOrder, "asc or desc")
	return cmd
}

func newHistoryCmd(o *rootOptions) *cobra.Command {
	var timeRange string
	cmd := &cobra.Command{
		Use:   "history SYMBOL",
		Short: "Price series over a time range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !provider.ValidRange(timeRange) {
				return fmt.Errorf("--range must be one of 24h, 7d, 30d, 3m, 1y, 5y")
			}
			return o.runMarket(cmd, provider.Request{
				Endpoint:  provider.EndpointHistory,
				Symbols:   args,
				TimeRange: timeRange,
			})
		},
	}
	cmd.Flags().StringVar(&timeRange, "range", provider.DefaultTimeRange, "24h, 7d, 30d, 3m, 1y or 5y")
	return cmd
}

func (o *rootOptions) runMarket(cmd *cobra.Command, req provider.Request) error {
	a, err := o.App()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, a)
	defer cancel()

	res, err := a.Coordinator.Fetch(ctx, req)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if o.asJSON {
		return printJSON(out, res)
	}
	if req.Endpoint == provider.EndpointHistory {
		return printHistory(out, res)
	}
	return printQuotes(out, res)
}

// splitArgs accepts both "BTC ETH" and "BTC,ETH".
func splitArgs(args []string) []string {
	var out []string
	for _, a := range args {
		for _, s := range strings.Split(a, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func resultFooter(res fallback.Result) string {
	var flags []string
	if res.Cached {
		flags = append(flags, "cached")
	}
	if res.Stale {
		flags = append(flags, "stale")
	}
	if res.Placeholder {
		flags = append(flags, "placeholder")
	}
	line := "source: " + res.Source
	if len(flags) > 0 {
		line += " (" + strings.Join(flags, ", ") + ")"
	}
	return line + "  fetched: " + res.FetchedAt.UTC().Format("2006-01-02 15:04:05Z")
}
