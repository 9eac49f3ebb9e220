// Package config loads the server configuration from the environment and .env files.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/seo-optimizer/auditor/competitor"
	"github.com/seo-optimizer/auditor/crawler"
	"github.com/seo-optimizer/auditor/fetcher"
	"github.com/seo-optimizer/auditor/linkcheck"
	"github.com/seo-optimizer/auditor/resultcache"
)

const searchTimeout = 10 * time.Second

// Config holds every setting of the auditor.
type Config struct {
	// Server
	Port     string `mapstructure:"PORT"`
	GinMode  string `mapstructure:"GIN_MODE"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	DevMode  bool   `mapstructure:"DEV_MODE"`
	DataDir  string `mapstructure:"DATA_DIR"`

	// Fetching
	FetchTimeout   time.Duration `mapstructure:"FETCH_TIMEOUT"`
	MaxRedirects   int           `mapstructure:"MAX_REDIRECTS"`
	MaxContentSize int64         `mapstructure:"MAX_CONTENT_SIZE"`
	CrawlDelay     time.Duration `mapstructure:"CRAWL_DELAY"`
	UserAgent      string        `mapstructure:"USER_AGENT"`

	// Crawling
	MaxPages     int `mapstructure:"MAX_PAGES"`
	CrawlWorkers int `mapstructure:"CRAWL_WORKERS"`

	// Link verification
	MaxLinksToVerify   int           `mapstructure:"MAX_LINKS_TO_VERIFY"`
	LinkCheckTimeout   time.Duration `mapstructure:"LINK_CHECK_TIMEOUT"`
	LinkCheckDelay     time.Duration `mapstructure:"LINK_CHECK_DELAY"`
	LinkCheckRedirects int           `mapstructure:"LINK_CHECK_REDIRECTS"`

	// API rate limit, requests per second per client
	RateLimit float64 `mapstructure:"RATE_LIMIT"`
	RateBurst int     `mapstructure:"RATE_BURST"`

	// Result cache
	ResultCacheTTL  time.Duration `mapstructure:"RESULT_CACHE_TTL"`
	ResultCacheSize int           `mapstructure:"RESULT_CACHE_SIZE"`
	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int           `mapstructure:"REDIS_DB"`

	// Competitor search API
	SearchAPIURL string  `mapstructure:"SEARCH_API_URL"`
	SearchAPIKey string  `mapstructure:"SEARCH_API_KEY"`
	SearchAPIRPS float64 `mapstructure:"SEARCH_API_RPS"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8082")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DEV_MODE", false)
	v.SetDefault("DATA_DIR", "data")

	v.SetDefault("FETCH_TIMEOUT", 45*time.Second)
	v.SetDefault("MAX_REDIRECTS", 10)
	v.SetDefault("MAX_CONTENT_SIZE", 10<<20)
	v.SetDefault("CRAWL_DELAY", 500*time.Millisecond)
	v.SetDefault("USER_AGENT", "SEOAnalyzer/2.0")

	v.SetDefault("MAX_PAGES", 50)
	v.SetDefault("CRAWL_WORKERS", 4)

	v.SetDefault("MAX_LINKS_TO_VERIFY", 5)
	v.SetDefault("LINK_CHECK_TIMEOUT", 5*time.Second)
	v.SetDefault("LINK_CHECK_DELAY", 100*time.Millisecond)
	v.SetDefault("LINK_CHECK_REDIRECTS", 3)

	v.SetDefault("RATE_LIMIT", 2.0)
	v.SetDefault("RATE_BURST", 5)

	v.SetDefault("RESULT_CACHE_TTL", 30*time.Minute)
	v.SetDefault("RESULT_CACHE_SIZE", 1000)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SEARCH_API_URL", "")
	v.SetDefault("SEARCH_API_KEY", "")
	v.SetDefault("SEARCH_API_RPS", 1.0)
}

// LoadEnv loads .env.development, falling back to .env. Missing files are ignored and variables
// already set in the environment win.
func LoadEnv() {
	if err := godotenv.Load(".env.development"); err != nil {
		_ = godotenv.Load()
	}
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every out-of-range setting.
func (c *Config) Validate() error {
	var problems []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Errorf(format, args...))
		}
	}

	port, err := strconv.Atoi(c.Port)
	check(err == nil && port > 0 && port <= 65535, "PORT must be a TCP port, got %q", c.Port)
	check(c.FetchTimeout > 0, "FETCH_TIMEOUT must be positive")
	check(c.MaxRedirects >= 0 && c.MaxRedirects <= 50, "MAX_REDIRECTS must be within 0..50, got %d", c.MaxRedirects)
	check(c.MaxContentSize > 0, "MAX_CONTENT_SIZE must be positive")
	check(c.CrawlDelay >= 0, "CRAWL_DELAY must not be negative")
	check(c.MaxPages >= 1 && c.MaxPages <= 1000, "MAX_PAGES must be within 1..1000, got %d", c.MaxPages)
	check(c.CrawlWorkers >= 1 && c.CrawlWorkers <= 16, "CRAWL_WORKERS must be within 1..16, got %d", c.CrawlWorkers)
	check(c.MaxLinksToVerify >= 0 && c.MaxLinksToVerify <= 50, "MAX_LINKS_TO_VERIFY must be within 0..50, got %d", c.MaxLinksToVerify)
	check(c.LinkCheckTimeout > 0, "LINK_CHECK_TIMEOUT must be positive")
	check(c.LinkCheckDelay >= 0, "LINK_CHECK_DELAY must not be negative")
	check(c.LinkCheckRedirects >= 0 && c.LinkCheckRedirects <= 50, "LINK_CHECK_REDIRECTS must be within 0..50, got %d", c.LinkCheckRedirects)
	check(c.RateLimit > 0, "RATE_LIMIT must be positive")
	check(c.RateBurst > 0, "RATE_BURST must be positive")
	check(c.ResultCacheTTL > 0, "RESULT_CACHE_TTL must be positive")
	check(c.ResultCacheSize > 0, "RESULT_CACHE_SIZE must be positive")
	check(c.SearchAPIRPS > 0, "SEARCH_API_RPS must be positive")
	check(c.DataDir != "", "DATA_DIR must not be empty")

	return errors.Join(problems...)
}

func (c *Config) FetchOptions() fetcher.Options {
	return fetcher.Options{
		Timeout:        c.FetchTimeout,
		MaxRedirects:   c.MaxRedirects,
		MaxContentSize: c.MaxContentSize,
		Delay:          c.CrawlDelay,
		UserAgent:      c.UserAgent,
	}
}

func (c *Config) VerifierOptions() linkcheck.Options {
	return linkcheck.Options{
		MaxLinks:     c.MaxLinksToVerify,
		Timeout:      c.LinkCheckTimeout,
		Delay:        c.LinkCheckDelay,
		MaxRedirects: c.LinkCheckRedirects,
		UserAgent:    c.UserAgent,
	}
}

// CrawlOptions applies the configured budget and worker count to the default crawl filters.
func (c *Config) CrawlOptions() crawler.Options {
	opts := crawler.DefaultOptions()
	opts.MaxPages = c.MaxPages
	opts.Workers = c.CrawlWorkers
	return opts
}

func (c *Config) SearchOptions() competitor.SearchOptions {
	return competitor.SearchOptions{
		Endpoint: c.SearchAPIURL,
		APIKey:   c.SearchAPIKey,
		RPS:      c.SearchAPIRPS,
		Timeout:  searchTimeout,
	}
}

func (c *Config) RedisOptions() resultcache.RedisOptions {
	return resultcache.RedisOptions{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
		TTL:      c.ResultCacheTTL,
	}
}
