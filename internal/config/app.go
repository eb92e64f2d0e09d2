// Package config holds the application-level configuration shared by the
// worker and the index CLI: cache backend, webhook identity and outbound
// fetch settings.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"comic-notifier/internal/infra/httpclient"
	"comic-notifier/internal/infra/notifier"
	pkgconfig "comic-notifier/internal/pkg/config"
)

// Cache backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// AppConfig holds configuration for a sync run.
type AppConfig struct {
	Cache   CacheConfig
	Webhook WebhookConfig
	Fetch   FetchConfig
}

// CacheConfig selects and locates the key-value cache.
type CacheConfig struct {
	// Backend is one of memory, sqlite, postgres. Default: memory
	Backend string
	// DatabaseURL is the PostgreSQL DSN. Required for the postgres backend.
	DatabaseURL string
	// SQLitePath is the database file. Default: ./data/comic-notifier.db
	SQLitePath string
}

// WebhookConfig controls how notifications are posted.
type WebhookConfig struct {
	// Username overrides the webhook's display name. Default: "Comic Notifier"
	Username string
	// AvatarURL overrides the webhook's avatar. Optional.
	AvatarURL string
	// Timeout bounds a single webhook POST. Default: 10s
	Timeout time.Duration
	// DryRun logs deliveries instead of posting them. Default: false
	DryRun bool
}

// FetchConfig controls outbound feed and page requests.
type FetchConfig struct {
	// Timeout bounds a single request. Default: 30s
	Timeout time.Duration
	// RatePerHost is the sustained request rate per host. Default: 2
	RatePerHost float64
	// BurstPerHost is the burst allowed per host. Default: 4
	BurstPerHost int
	// MaxPages caps the page chain of one comic. Default: 50
	MaxPages int
	// UserAgent is sent with every request. Default: "comic-notifier/1.0"
	UserAgent string
}

// DefaultAppConfig returns the default application configuration.
func DefaultAppConfig() AppConfig {
	fetch := httpclient.DefaultConfig()
	return AppConfig{
		Cache: CacheConfig{
			Backend:    BackendMemory,
			SQLitePath: "./data/comic-notifier.db",
		},
		Webhook: WebhookConfig{
			Username: "Comic Notifier",
			Timeout:  10 * time.Second,
		},
		Fetch: FetchConfig{
			Timeout:      fetch.Timeout,
			RatePerHost:  fetch.RatePerHost,
			BurstPerHost: fetch.BurstPerHost,
			MaxPages:     50,
			UserAgent:    fetch.UserAgent,
		},
	}
}

// LoadAppConfig loads AppConfig from environment variables.
//
// Tunables (timeouts, rates, caps) fail open: an invalid value falls back to
// its default with a logged warning and a fallback metric. Settings that
// cannot have a safe default, such as DATABASE_URL for the postgres backend,
// are checked by Validate and returned as an error.
func LoadAppConfig(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) (*AppConfig, error) {
	def := DefaultAppConfig()
	cfg := def

	r := pkgconfig.LoadEnvWithFallback("CACHE_BACKEND", def.Cache.Backend,
		pkgconfig.ValidateOneOf(BackendMemory, BackendSQLite, BackendPostgres))
	metrics.Track(logger, "cache_backend", r)
	cfg.Cache.Backend = r.Value.(string)
	cfg.Cache.DatabaseURL = pkgconfig.LoadEnvString("DATABASE_URL", "")
	cfg.Cache.SQLitePath = pkgconfig.LoadEnvString("SQLITE_PATH", def.Cache.SQLitePath)

	cfg.Webhook.Username = pkgconfig.LoadEnvString("WEBHOOK_USERNAME", def.Webhook.Username)

	r = pkgconfig.LoadEnvWithFallback("WEBHOOK_AVATAR_URL", "", pkgconfig.ValidateHTTPURL)
	metrics.Track(logger, "webhook_avatar_url", r)
	cfg.Webhook.AvatarURL = r.Value.(string)

	r = pkgconfig.LoadEnvDuration("WEBHOOK_TIMEOUT", def.Webhook.Timeout, func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, time.Second, 2*time.Minute)
	})
	metrics.Track(logger, "webhook_timeout", r)
	cfg.Webhook.Timeout = r.Value.(time.Duration)

	r = pkgconfig.LoadEnvBool("WEBHOOK_DRY_RUN", def.Webhook.DryRun)
	metrics.Track(logger, "webhook_dry_run", r)
	cfg.Webhook.DryRun = r.Value.(bool)

	r = pkgconfig.LoadEnvDuration("HTTP_TIMEOUT", def.Fetch.Timeout, func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, time.Second, 5*time.Minute)
	})
	metrics.Track(logger, "http_timeout", r)
	cfg.Fetch.Timeout = r.Value.(time.Duration)

	r = pkgconfig.LoadEnvFloat("FETCH_RATE_PER_HOST", def.Fetch.RatePerHost, func(v float64) error {
		return pkgconfig.ValidateFloatRange(v, 0.1, 100)
	})
	metrics.Track(logger, "fetch_rate_per_host", r)
	cfg.Fetch.RatePerHost = r.Value.(float64)

	r = pkgconfig.LoadEnvInt("FETCH_BURST_PER_HOST", def.Fetch.BurstPerHost, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 100)
	})
	metrics.Track(logger, "fetch_burst_per_host", r)
	cfg.Fetch.BurstPerHost = r.Value.(int)

	r = pkgconfig.LoadEnvInt("COMIC_MAX_PAGES", def.Fetch.MaxPages, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 500)
	})
	metrics.Track(logger, "comic_max_pages", r)
	cfg.Fetch.MaxPages = r.Value.(int)

	cfg.Fetch.UserAgent = pkgconfig.LoadEnvString("USER_AGENT", def.Fetch.UserAgent)

	metrics.RecordLoadTimestamp()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid application configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks settings that have no safe fallback.
func (c *AppConfig) Validate() error {
	switch c.Cache.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Cache.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH cannot be empty for the sqlite backend")
		}
	case BackendPostgres:
		if c.Cache.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend)
	}
	if c.Webhook.Username == "" {
		return fmt.Errorf("WEBHOOK_USERNAME cannot be empty")
	}
	if c.Fetch.MaxPages < 1 {
		return fmt.Errorf("COMIC_MAX_PAGES must be positive")
	}
	return nil
}

// HTTPClientConfig returns the outbound client settings. The breaker
// state-change hook is left for the caller to set.
func (c *AppConfig) HTTPClientConfig() httpclient.Config {
	return httpclient.Config{
		Timeout:      c.Fetch.Timeout,
		RatePerHost:  c.Fetch.RatePerHost,
		BurstPerHost: c.Fetch.BurstPerHost,
		UserAgent:    c.Fetch.UserAgent,
	}
}

// DiscordConfig returns the webhook sender settings.
func (c *AppConfig) DiscordConfig() notifier.DiscordConfig {
	return notifier.DiscordConfig{
		Username:  c.Webhook.Username,
		AvatarURL: c.Webhook.AvatarURL,
		Timeout:   c.Webhook.Timeout,
	}
}
