package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"paisamarket/internal/news"
)

type Server struct {
	Port              string   `mapstructure:"port"`
	RequestTimeoutSec int      `mapstructure:"request_timeout_sec"`
	CORSOrigins       []string `mapstructure:"cors_origins"`
}

// Provider is the shared shape of every upstream section.
type Provider struct {
	Enabled  bool   `mapstructure:"enabled"`
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`

	MaxRequestsPerMinute  int `mapstructure:"max_requests_per_minute"`
	Burst                 int `mapstructure:"burst"`
	MinRequestIntervalSec int `mapstructure:"min_request_interval_sec"`
	// NonBlocking fails fast with a rate-limit error instead of waiting
	// for a token, so the fallback chain moves to the next provider.
	NonBlocking bool `mapstructure:"non_blocking"`
}

type Providers struct {
	// Chain is the fallback order. Names not listed are not consulted.
	Chain         []string `mapstructure:"chain"`
	CoinGecko     Provider `mapstructure:"coingecko"`
	Coinranking   Provider `mapstructure:"coinranking"`
	LiveCoinWatch Provider `mapstructure:"livecoinwatch"`
	AlphaVantage  Provider `mapstructure:"alphavantage"`
}

// Get returns the section for a chain name.
func (p Providers) Get(name string) (Provider, bool) {
	switch strings.ToLower(name) {
	case "coingecko":
		return p.CoinGecko, true
	case "coinranking":
		return p.Coinranking, true
	case "livecoinwatch":
		return p.LiveCoinWatch, true
	case "alphavantage":
		return p.AlphaVantage, true
	}
	return Provider{}, false
}

type Cache struct {
	QuoteTTLSec   int `mapstructure:"quote_ttl_sec"`
	DetailTTLSec  int `mapstructure:"detail_ttl_sec"`
	MarketsTTLSec int `mapstructure:"markets_ttl_sec"`
	HistoryTTLSec int `mapstructure:"history_ttl_sec"`
	NewsTTLSec    int `mapstructure:"news_ttl_sec"`
}

type Placeholder struct {
	Seed uint64 `mapstructure:"seed"`
}

type News struct {
	Enabled bool        `mapstructure:"enabled"`
	Feeds   []news.Feed `mapstructure:"feeds"`
}

type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

type Config struct {
	Server      Server      `mapstructure:"server"`
	Providers   Providers   `mapstructure:"providers"`
	Cache       Cache       `mapstructure:"cache"`
	Placeholder Placeholder `mapstructure:"placeholder"`
	News        News        `mapstructure:"news"`
	Logging     Logging     `mapstructure:"logging"`
}

// RequestTimeout is the per-request deadline for HTTP handlers and the
// outbound client timeout.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSec) * time.Second
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (c Cache) QuoteTTL() time.Duration   { return seconds(c.QuoteTTLSec) }
func (c Cache) DetailTTL() time.Duration  { return seconds(c.DetailTTLSec) }
func (c Cache) MarketsTTL() time.Duration { return seconds(c.MarketsTTLSec) }
func (c Cache) HistoryTTL() time.Duration { return seconds(c.HistoryTTLSec) }
func (c Cache) NewsTTL() time.Duration    { return seconds(c.NewsTTLSec) }

const envPrefix = "PAISA"

// Load reads configuration from path, or from config.yaml in the working
// directory or ./config when path is empty. A missing default file is not an
// error. PAISA_<SECTION>_<KEY> environment variables override file values,
// and the conventional provider key variables override both.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout_sec", 10)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("providers.chain", []string{"coingecko", "coinranking", "livecoinwatch", "alphavantage"})

	v.SetDefault("providers.coingecko.enabled", true)
	v.SetDefault("providers.coingecko.endpoint", "https://api.coingecko.com/api/v3")
	v.SetDefault("providers.coingecko.max_requests_per_minute", 30)
	v.SetDefault("providers.coingecko.burst", 5)
	v.SetDefault("providers.coingecko.non_blocking", true)

	v.SetDefault("providers.coinranking.enabled", true)
	v.SetDefault("providers.coinranking.endpoint", "https://api.coinranking.com/v2")
	v.SetDefault("providers.coinranking.max_requests_per_minute", 10)
	v.SetDefault("providers.coinranking.burst", 2)
	v.SetDefault("providers.coinranking.non_blocking", true)

	v.SetDefault("providers.livecoinwatch.enabled", true)
	v.SetDefault("providers.livecoinwatch.endpoint", "https://api.livecoinwatch.com")
	v.SetDefault("providers.livecoinwatch.min_request_interval_sec", 1)
	v.SetDefault("providers.livecoinwatch.non_blocking", true)

	v.SetDefault("providers.alphavantage.enabled", true)
	v.SetDefault("providers.alphavantage.endpoint", "")
	v.SetDefault("providers.alphavantage.max_requests_per_minute", 5)
	v.SetDefault("providers.alphavantage.burst", 1)
	v.SetDefault("providers.alphavantage.non_blocking", true)

	v.SetDefault("cache.quote_ttl_sec", 300)
	v.SetDefault("cache.detail_ttl_sec", 300)
	v.SetDefault("cache.markets_ttl_sec", 600)
	v.SetDefault("cache.history_ttl_sec", 900)
	v.SetDefault("cache.news_ttl_sec", 600)

	v.SetDefault("placeholder.seed", 20240601)

	v.SetDefault("news.enabled", true)
	v.SetDefault("news.feeds", feedMaps(news.DefaultFeeds))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func feedMaps(feeds []news.Feed) []map[string]any {
	out := make([]map[string]any, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, map[string]any{"name": f.Name, "url": f.URL})
	}
	return out
}

// applyEnv reads the conventional, unprefixed variables used by the
// front end deployment for secrets.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		cfg.Providers.CoinGecko.APIKey = v
	}
	if v := os.Getenv("COINGECKO_PROXY_URL"); v != "" {
		cfg.Providers.CoinGecko.Endpoint = v
	}
	if v := os.Getenv("COINRANKING_API_KEY"); v != "" {
		cfg.Providers.Coinranking.APIKey = v
	}
	if v := os.Getenv("LIVECOINWATCH_API_KEY"); v != "" {
		cfg.Providers.LiveCoinWatch.APIKey = v
	}
	if v := os.Getenv("ALPHAVANTAGE_PROXY_URL"); v != "" {
		cfg.Providers.AlphaVantage.Endpoint = v
	}
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if p, err := strconv.Atoi(c.Server.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("server.port: invalid port %q", c.Server.Port))
	}
	if c.Server.RequestTimeoutSec <= 0 {
		errs = append(errs, errors.New("server.request_timeout_sec: must be positive"))
	}
	seen := make(map[string]bool, len(c.Providers.Chain))
	for _, name := range c.Providers.Chain {
		if _, ok := c.Providers.Get(name); !ok {
			errs = append(errs, fmt.Errorf("providers.chain: unknown provider %q", name))
		}
		if seen[strings.ToLower(name)] {
			errs = append(errs, fmt.Errorf("providers.chain: duplicate provider %q", name))
		}
		seen[strings.ToLower(name)] = true
	}
	for name, ttl := range map[string]int{
		"quote": c.Cache.QuoteTTLSec, "detail": c.Cache.DetailTTLSec,
		"markets": c.Cache.MarketsTTLSec, "history": c.Cache.HistoryTTLSec, "news": c.Cache.NewsTTLSec,
	} {
		if ttl < 0 {
			errs = append(errs, fmt.Errorf("cache.%s_ttl_sec: must not be negative", name))
		}
	}
	return errors.Join(errs...)
}
