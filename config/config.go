package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"sjsage522/salewatch/internal/aggregator"
	"sjsage522/salewatch/logger"
	"sjsage522/salewatch/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Environment
	Environment string
	HTTPAddr    string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int64

	// Memcache configuration
	MemcacheAddr string

	// Fetch configuration
	FetchTimeout time.Duration
	BlockTime    time.Duration

	// Sale list aggregation
	SalePages          []string
	ProductPathPattern string
	PageDelay          time.Duration
	PageConcurrency    int

	// Sale watch schedule
	ScanSchedule string
	SnapshotTTL  time.Duration

	// Matching
	MatchThreshold float64

	// Wishlist source
	DatabaseDriver string
	DatabaseURL    string

	// Headless rendering
	RenderEnabled    bool
	ChromeControlURL string
	RenderTimeout    time.Duration

	// HTTP API
	AllowedOrigins []string
	APIRateLimit   float64
}

// LoadConfig loads the configuration from environment variables, an optional
// salewatch.yaml file and defaults
func LoadConfig() *Config {
	v := viper.New()
	v.SetConfigName("salewatch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logger.Warn("Ignoring unreadable config file: %v", err)
		}
	}

	return &Config{
		Environment:          v.GetString("salewatch_environment"),
		HTTPAddr:             v.GetString("http_addr"),
		RedisAddr:            v.GetString("redis_addr"),
		RedisDB:              v.GetInt("redis_db"),
		RedisStream:          v.GetString("redis_stream"),
		RedisStreamMaxLength: v.GetInt64("redis_stream_max_length"),
		MemcacheAddr:         v.GetString("memcache_addr"),
		FetchTimeout:         v.GetDuration("fetch_timeout"),
		BlockTime:            v.GetDuration("block_time"),
		SalePages:            splitList(v.GetString("sale_pages")),
		ProductPathPattern:   v.GetString("product_path_pattern"),
		PageDelay:            v.GetDuration("page_delay"),
		PageConcurrency:      v.GetInt("page_concurrency"),
		ScanSchedule:         v.GetString("scan_schedule"),
		SnapshotTTL:          v.GetDuration("snapshot_ttl"),
		MatchThreshold:       v.GetFloat64("match_threshold"),
		DatabaseDriver:       v.GetString("database_driver"),
		DatabaseURL:          v.GetString("database_url"),
		RenderEnabled:        v.GetBool("render_enabled"),
		ChromeControlURL:     v.GetString("chrome_control_url"),
		RenderTimeout:        v.GetDuration("render_timeout"),
		AllowedOrigins:       splitList(v.GetString("allowed_origins")),
		APIRateLimit:         v.GetFloat64("api_rate_limit"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("salewatch_environment", "development")
	v.SetDefault("http_addr", ":8080")

	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_stream", "salewatch:matches")
	v.SetDefault("redis_stream_max_length", 1000)

	v.SetDefault("memcache_addr", "localhost:11211")

	v.SetDefault("fetch_timeout", "12s")
	v.SetDefault("block_time", "5m")

	v.SetDefault("sale_pages", "https://www.acon3d.com/en/event/sale")
	v.SetDefault("product_path_pattern", aggregator.DefaultProductPath)
	v.SetDefault("page_delay", "1s")
	v.SetDefault("page_concurrency", 1)

	v.SetDefault("scan_schedule", "@every 1h")
	v.SetDefault("snapshot_ttl", "2h")

	v.SetDefault("match_threshold", 0.70)

	v.SetDefault("database_driver", "sqlite3")
	v.SetDefault("database_url", "salewatch.db")

	v.SetDefault("render_enabled", false)
	v.SetDefault("chrome_control_url", "")
	v.SetDefault("render_timeout", "30s")

	v.SetDefault("allowed_origins", "chrome-extension://*")
	v.SetDefault("api_rate_limit", 5)
}

// Validate checks values that would otherwise fail later at startup
func (c *Config) Validate() error {
	if c.RedisAddr == "" {
		return errors.NewConfiguration("REDIS_ADDR is required", nil)
	}
	if c.MemcacheAddr == "" {
		return errors.NewConfiguration("MEMCACHE_ADDR is required", nil)
	}
	if c.FetchTimeout <= 0 {
		return errors.NewConfiguration(fmt.Sprintf("FETCH_TIMEOUT must be positive, got %v", c.FetchTimeout), nil)
	}
	if c.PageConcurrency < 1 {
		return errors.NewConfiguration(fmt.Sprintf("PAGE_CONCURRENCY must be at least 1, got %d", c.PageConcurrency), nil)
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold >= 1 {
		return errors.NewConfiguration(fmt.Sprintf("MATCH_THRESHOLD must be between 0 and 1, got %v", c.MatchThreshold), nil)
	}
	if _, err := regexp.Compile(c.ProductPathPattern); err != nil {
		return errors.NewConfiguration("PRODUCT_PATH_PATTERN does not compile", err)
	}
	if _, err := cron.ParseStandard(c.ScanSchedule); err != nil {
		return errors.NewConfiguration("SCAN_SCHEDULE is not a valid cron spec", err)
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite3":
	default:
		return errors.NewConfiguration(fmt.Sprintf("DATABASE_DRIVER must be postgres or sqlite3, got %q", c.DatabaseDriver), nil)
	}
	if c.RenderEnabled && c.RenderTimeout <= 0 {
		return errors.NewConfiguration("RENDER_TIMEOUT must be positive when rendering is enabled", nil)
	}
	return nil
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// splitList splits a comma separated value, dropping blanks
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
