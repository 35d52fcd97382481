package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"paisamarket/internal/aggregate"
	"paisamarket/internal/fallback"
	"paisamarket/internal/news"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printQuotes(w io.Writer, res fallback.Result) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "SYMBOL\tNAME\tPRICE\t24H\tMARKET CAP\tVOLUME 24H")
	for _, q := range res.Quotes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			q.Symbol, q.Name, price(q.Price), pct(q.Change24h), compact(q.MarketCap), compact(q.Volume24h))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, resultFooter(res))
	return err
}

func printHistory(w io.Writer, res fallback.Result) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "SYMBOL\tPOINTS\tFIRST\tLAST\tLOW\tHIGH")
	for _, q := range res.Quotes {
		if len(q.Sparkline) == 0 {
			fmt.Fprintf(tw, "%s\t0\t-\t%s\t-\t-\n", q.Symbol, price(q.Price))
			continue
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, p := range q.Sparkline {
			lo, hi = math.Min(lo, p), math.Max(hi, p)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", q.Symbol, len(q.Sparkline),
			price(q.Sparkline[0]), price(q.Sparkline[len(q.Sparkline)-1]), price(lo), price(hi))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, resultFooter(res))
	return err
}

func printReport(w io.Writer, r aggregate.Report) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "PROVIDER\tQUOTES\tTOOK\tERROR")
	for _, s := range r.Providers {
		errText := s.Err
		if errText == "" {
			errText = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.Provider, s.Quotes, s.Took.Round(time.Millisecond), errText)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "SYMBOL\tSOURCES\tMIN\tMAX\tSPREAD")
	for _, s := range r.Spreads {
		fmt.Fprintf(tw, "%s\t%d\t%s (%s)\t%s (%s)\t%s\n",
			s.Symbol, s.Sources, price(s.Min), s.MinSource, price(s.Max), s.MaxSource, pct(s.SpreadPct))
	}
	return tw.Flush()
}

func printArticles(w io.Writer, res news.Result) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "PUBLISHED\tSOURCE\tTITLE")
	for _, a := range res.Articles {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.PublishedAt.UTC().Format("2006-01-02 15:04"), a.Source, a.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	switch {
	case res.Placeholder:
		_, err := fmt.Fprintln(w, "all feeds failed; showing placeholder headlines")
		return err
	case res.Stale:
		_, err := fmt.Fprintln(w, "all feeds failed; showing cached headlines")
		return err
	}
	return nil
}

// price keeps two decimals, or six below one unit.
func price(f float64) string {
	places := int32(2)
	if math.Abs(f) < 1 {
		places = 6
	}
	return decimal.NewFromFloat(f).StringFixed(places)
}

func pct(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(2) + "%"
}

func compact(f float64) string {
	switch a := math.Abs(f); {
	case a >= 1e12:
		return decimal.NewFromFloat(f/1e12).StringFixed(2) + "T"
	case a >= 1e9:
		return decimal.NewFromFloat(f/1e9).StringFixed(2) + "B"
	case a >= 1e6:
		return decimal.NewFromFloat(f/1e6).StringFixed(2) + "M"
	case a == 0:
		return "-"
	}
	return decimal.NewFromFloat(f).StringFixed(0)
}
