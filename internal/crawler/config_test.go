package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		MaxPages: 10,
		MaxDepth: 1,
		Workers:  2,
	}.WithDefaults()
}

func TestConfigWithDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{MaxPages: 1, Workers: 1}.WithDefaults()
	require.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout)
	require.Equal(t, DefaultDeadline, cfg.Deadline)
	require.Equal(t, DefaultIdleBackoffMin, cfg.IdleBackoffMin)
	require.Equal(t, DefaultIdleBackoffMax, cfg.IdleBackoffMax)
	require.Equal(t, DefaultUserAgent, cfg.UserAgent)
	require.Equal(t, DefaultBlockedExtensions, cfg.BlockedExtensions)
	require.Zero(t, cfg.CrawlDelay)
	require.NoError(t, cfg.Validate())
}

func TestConfigWithSeed(t *testing.T) {
	t.Parallel()

	cfg := validConfig().WithSeed("  https://WWW.Example.com/start ")
	require.Equal(t, "https://WWW.Example.com/start", cfg.SeedURL)
	require.Equal(t, "www.example.com", cfg.SeedDomain)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero pages", func(c *Config) { c.MaxPages = 0 }},
		{"negative depth", func(c *Config) { c.MaxDepth = -1 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative delay", func(c *Config) { c.CrawlDelay = -time.Second }},
		{"zero timeout", func(c *Config) { c.FetchTimeout = 0 }},
		{"zero deadline", func(c *Config) { c.Deadline = 0 }},
		{"inverted backoff", func(c *Config) { c.IdleBackoffMax = c.IdleBackoffMin / 2 }},
		{"negative rate", func(c *Config) { c.RateLimitPerSecond = -1 }},
	}
	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(&cfg)
		require.Error(t, cfg.Validate(), tc.name)
	}
	require.NoError(t, validConfig().Validate())
}
