package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"paisamarket/internal/news"
	"paisamarket/internal/profile"
	"paisamarket/internal/provider"
)

func newProbeCmd(o *rootOptions) *cobra.Command {
	var endpoint, timeRange string
	cmd := &cobra.Command{
		Use:   "probe SYMBOL...",
		Short: "Ask every provider directly and compare their answers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ep, err := provider.ParseEndpoint(endpoint)
			if err != nil {
				return err
			}
			a, err := o.App()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, a)
			defer cancel()

			report, err := a.Probe(ctx, provider.Request{
				Endpoint:  ep,
				Symbols:   splitArgs(args),
				TimeRange: timeRange,
			})
			if err != nil {
				return err
			}
			if o.asJSON {
				return printJSON(cmd.OutOrStdout(), report)
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", string(provider.EndpointQuote), "quote, detail, markets or history")
	cmd.Flags().StringVar(&timeRange, "range", provider.DefaultTimeRange, "history range")
	return cmd
}

func newProvidersCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Compare the supported market data providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ps := profile.All()
			if o.asJSON {
				return printJSON(cmd.OutOrStdout(), ps)
			}
			_, err := io.WriteString(cmd.OutOrStdout(), profile.Comparison(ps))
			return err
		},
	}
}

func newNewsCmd(o *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "news [QUERY]",
		Short: "Latest market headlines, optionally filtered",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 || limit > news.MaxLimit {
				return fmt.Errorf("--limit must be between 1 and %d", news.MaxLimit)
			}
			a, err := o.App()
			if err != nil {
				return err
			}
			if a.News == nil {
				return fmt.Errorf("news is disabled in the configuration")
			}
			ctx, cancel := commandContext(cmd, a)
			defer cancel()

			q := news.Query{Limit: limit}
			if len(args) == 1 {
				q.Q = args[0]
			}
			res, err := a.News.Fetch(ctx, q)
			if err != nil {
				return err
			}
			if o.asJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			return printArticles(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", news.DefaultLimit, "number of headlines")
	return cmd
}
