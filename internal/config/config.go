// Package config loads and validates crawler configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/site-crawler/internal/crawler"
	"github.com/JakeFAU/site-crawler/internal/robots"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Robots  RobotsConfig  `mapstructure:"robots"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlerConfig governs the crawl engine. Values act as defaults for crawls
// started over HTTP.
type CrawlerConfig struct {
	SeedURL            string        `mapstructure:"seed_url"`
	MaxPages           int           `mapstructure:"max_pages"`
	MaxDepth           int           `mapstructure:"max_depth"`
	Workers            int           `mapstructure:"workers"`
	CrawlDelay         time.Duration `mapstructure:"crawl_delay"`
	FetchTimeout       time.Duration `mapstructure:"fetch_timeout"`
	Deadline           time.Duration `mapstructure:"deadline"`
	IdleBackoffMin     time.Duration `mapstructure:"idle_backoff_min"`
	IdleBackoffMax     time.Duration `mapstructure:"idle_backoff_max"`
	UserAgent          string        `mapstructure:"user_agent"`
	RespectRobots      bool          `mapstructure:"respect_robots"`
	DenyDomains        []string      `mapstructure:"deny_domains"`
	BlockedExtensions  []string      `mapstructure:"blocked_extensions"`
	RateLimitPerSecond float64       `mapstructure:"rate_limit_per_second"`
}

// RobotsConfig selects how robots.txt files are fetched and parsed.
type RobotsConfig struct {
	Mode    string        `mapstructure:"mode"`
	Scheme  string        `mapstructure:"scheme"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"port":           "server.port",
	"seed":           "crawler.seed_url",
	"max-pages":      "crawler.max_pages",
	"max-depth":      "crawler.max_depth",
	"workers":        "crawler.workers",
	"crawl-delay":    "crawler.crawl_delay",
	"deadline":       "crawler.deadline",
	"respect-robots": "crawler.respect_robots",
	"log-level":      "logging.level",
	"dev":            "logging.development",
}

// Load builds a Config from defaults, an optional file, the environment and
// any flags in flags that were explicitly set. With an empty path the usual
// locations are searched and a missing file is not an error.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/site-crawler/")
		v.AddConfigPath("$HOME/.site-crawler")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if err := bindFlags(v, flags); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawler.seed_url", "")
	v.SetDefault("crawler.max_pages", crawler.DefaultMaxPages)
	v.SetDefault("crawler.max_depth", crawler.DefaultMaxDepth)
	v.SetDefault("crawler.workers", crawler.DefaultWorkers)
	v.SetDefault("crawler.crawl_delay", crawler.DefaultCrawlDelay)
	v.SetDefault("crawler.fetch_timeout", crawler.DefaultFetchTimeout)
	v.SetDefault("crawler.deadline", crawler.DefaultDeadline)
	v.SetDefault("crawler.idle_backoff_min", crawler.DefaultIdleBackoffMin)
	v.SetDefault("crawler.idle_backoff_max", crawler.DefaultIdleBackoffMax)
	v.SetDefault("crawler.user_agent", crawler.DefaultUserAgent)
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("crawler.deny_domains", []string{})
	v.SetDefault("crawler.blocked_extensions", crawler.DefaultBlockedExtensions)
	v.SetDefault("crawler.rate_limit_per_second", 0)
	v.SetDefault("robots.mode", string(robots.ModeSimple))
	v.SetDefault("robots.scheme", "https")
	v.SetDefault("robots.timeout", 10*time.Second)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	switch robots.Mode(c.Robots.Mode) {
	case robots.ModeSimple, robots.ModeStandard:
	default:
		return fmt.Errorf("robots.mode must be %q or %q", robots.ModeSimple, robots.ModeStandard)
	}
	if c.Robots.Scheme != "http" && c.Robots.Scheme != "https" {
		return fmt.Errorf("robots.scheme must be http or https")
	}
	if c.Robots.Timeout <= 0 {
		return fmt.Errorf("robots.timeout must be > 0")
	}
	if err := c.Crawl().Validate(); err != nil {
		return err
	}
	return nil
}

// Crawl converts the crawler section into an engine configuration.
func (c Config) Crawl() crawler.Config {
	cc := c.Crawler
	return crawler.Config{
		SeedURL:            cc.SeedURL,
		SeedDomain:         crawler.ExtractDomain(cc.SeedURL),
		MaxPages:           cc.MaxPages,
		MaxDepth:           cc.MaxDepth,
		Workers:            cc.Workers,
		CrawlDelay:         cc.CrawlDelay,
		FetchTimeout:       cc.FetchTimeout,
		Deadline:           cc.Deadline,
		IdleBackoffMin:     cc.IdleBackoffMin,
		IdleBackoffMax:     cc.IdleBackoffMax,
		RespectRobots:      cc.RespectRobots,
		UserAgent:          cc.UserAgent,
		DenyDomains:        append([]string(nil), cc.DenyDomains...),
		BlockedExtensions:  append([]string(nil), cc.BlockedExtensions...),
		RateLimitPerSecond: cc.RateLimitPerSecond,
	}
}

// RobotsPolicy returns the robots fetcher configuration.
func (c Config) RobotsPolicy() robots.Config {
	return robots.Config{
		Mode:      robots.Mode(c.Robots.Mode),
		Scheme:    c.Robots.Scheme,
		Timeout:   c.Robots.Timeout,
		UserAgent: c.Crawler.UserAgent,
	}
}
