// Package news fetches market headlines from RSS feeds with the same
// cache, stale and placeholder policy as market data.
package news

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"paisamarket/internal/placeholder"
	"paisamarket/internal/provider/cache"
)

// Feed is one RSS source.
type Feed struct {
	Name string `mapstructure:"name" json:"name"`
	URL  string `mapstructure:"url" json:"url"`
}

// DefaultFeeds are crypto and Indian market news sources.
var DefaultFeeds = []Feed{
	{Name: "CoinDesk", URL: "https://www.coindesk.com/arc/outboundfeeds/rss/"},
	{Name: "Cointelegraph", URL: "https://cointelegraph.com/rss"},
	{Name: "Decrypt", URL: "https://decrypt.co/feed"},
	{Name: "Moneycontrol", URL: "https://www.moneycontrol.com/rss/marketreports.xml"},
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Article is a normalized headline.
type Article struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Placeholder bool      `json:"placeholder,omitempty"`
}

// Query selects headlines. Q matches title or summary case-insensitively;
// a known ticker also matches its coin name.
type Query struct {
	Q     string
	Limit int
}

func (q Query) normalize() Query {
	q.Q = strings.ToLower(strings.TrimSpace(q.Q))
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

func (q Query) key() string { return fmt.Sprintf("news|%s|%d", q.Q, q.Limit) }

// Result mirrors fallback.Result for headlines.
type Result struct {
	Articles    []Article `json:"articles"`
	Cached      bool      `json:"cached"`
	Stale       bool      `json:"stale"`
	Placeholder bool      `json:"placeholder"`
	FetchedAt   time.Time `json:"fetched_at"`
	Failed      []string  `json:"failed,omitempty"`
}

// Fetcher reads the configured feeds.
type Fetcher struct {
	feeds      []Feed
	httpClient *http.Client
	userAgent  string
	cache      *cache.Cache[[]Article]
	ttl        time.Duration
	log        logrus.FieldLogger
}

type Option func(*Fetcher)

func WithFeeds(feeds []Feed) Option {
	return func(f *Fetcher) { f.feeds = feeds }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) { f.httpClient = hc }
}

func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

func WithCache(c *cache.Cache[[]Article]) Option {
	return func(f *Fetcher) { f.cache = c }
}

func WithTTL(d time.Duration) Option {
	return func(f *Fetcher) { f.ttl = d }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(f *Fetcher) { f.log = l }
}

func New(opts ...Option) *Fetcher {
	silent := logrus.New()
	silent.SetOutput(io.Discard)
	f := &Fetcher{
		feeds:      DefaultFeeds,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		ttl:        10 * time.Minute,
		log:        silent,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.cache == nil {
		f.cache = cache.New[[]Article]()
	}
	return f
}

// Fetch returns matching headlines newest first. Only ctx errors are
// returned; when every feed fails the newest stale result or placeholder
// headlines are served.
func (f *Fetcher) Fetch(ctx context.Context, q Query) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	q = q.normalize()
	key := q.key()
	log := f.log.WithField("key", key)

	if e, ok := f.cache.Get(key, f.ttl); ok {
		log.Debug("news cache hit")
		return Result{Articles: e.Value, Cached: true, FetchedAt: e.FetchedAt}, nil
	}

	perFeed := make([][]Article, len(f.feeds))
	errs := make([]error, len(f.feeds))
	g, gctx := errgroup.WithContext(ctx)
	for i, feed := range f.feeds {
		g.Go(func() error {
			perFeed[i], errs[i] = f.fetchFeed(gctx, feed)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var (
		all    []Article
		failed []string
	)
	for i, feed := range f.feeds {
		if errs[i] != nil {
			failed = append(failed, feed.Name)
			log.WithField("feed", feed.Name).WithError(errs[i]).Warn("feed failed")
			continue
		}
		all = append(all, perFeed[i]...)
	}

	if len(all) == 0 && len(failed) > 0 {
		if e, ok := f.cache.Peek(key); ok {
			log.Warn("all feeds failed, serving stale news")
			return Result{Articles: e.Value, Cached: true, Stale: true, FetchedAt: e.FetchedAt, Failed: failed}, nil
		}
		log.Warn("all feeds failed, serving placeholder news")
		return Result{
			Articles:    Placeholder(q.Q, f.cache.Now()),
			Placeholder: true,
			FetchedAt:   f.cache.Now(),
			Failed:      failed,
		}, nil
	}

	out := filter(all, keywords(q.Q))
	slices.SortStableFunc(out, func(a, b Article) int { return b.PublishedAt.Compare(a.PublishedAt) })
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	e := f.cache.Set(key, out)
	return Result{Articles: out, FetchedAt: e.FetchedAt, Failed: failed}, nil
}

func (f *Fetcher) fetchFeed(ctx context.Context, feed Feed) ([]Article, error) {
	// gofeed parsers keep per-parse state; one per call.
	parser := gofeed.NewParser()
	parser.Client = f.httpClient
	if f.userAgent != "" {
		parser.UserAgent = f.userAgent
	}
	parsed, err := parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", feed.Name, err)
	}
	out := make([]Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		a := Article{
			Title:   strings.TrimSpace(item.Title),
			URL:     item.Link,
			Source:  feed.Name,
			Summary: cleanHTML(item.Description),
		}
		switch {
		case item.PublishedParsed != nil:
			a.PublishedAt = item.PublishedParsed.UTC()
		case item.UpdatedParsed != nil:
			a.PublishedAt = item.UpdatedParsed.UTC()
		}
		if a.Title == "" {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// cleanHTML strips markup from RSS descriptions.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func keywords(q string) []string {
	if q == "" {
		return nil
	}
	kw := []string{q}
	if name, ok := placeholder.CoinName(q); ok {
		kw = append(kw, strings.ToLower(name))
	}
	return kw
}

func filter(as []Article, kw []string) []Article {
	if len(kw) == 0 {
		return slices.Clone(as)
	}
	out := make([]Article, 0, len(as))
	for _, a := range as {
		text := strings.ToLower(a.Title + " " + a.Summary)
		for _, k := range kw {
			if strings.Contains(text, k) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// Placeholder returns fixed headlines marked as synthetic.
func Placeholder(q string, now time.Time) []Article {
	subject := "Crypto market"
	if name, ok := placeholder.CoinName(q); ok {
		subject = name
	} else if q != "" {
		subject = strings.ToUpper(q)
	}
	titles := []string{
		subject + " news is temporarily unavailable",
		"Live headlines will return when news sources recover",
		"Prices shown may be delayed or synthesized",
	}
	out := make([]Article, len(titles))
	for i, t := range titles {
		out[i] = Article{
			Title:       t,
			Source:      placeholder.Source,
			PublishedAt: now.Add(-time.Duration(i) * time.Minute).UTC(),
			Placeholder: true,
		}
	}
	return out
}
