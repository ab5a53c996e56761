// Package config loads runtime settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// DefaultPostageURL is the marketplace help-center host serving shipping costs.
const DefaultPostageURL = "https://help.cardmarket.com"

// Config is the complete runtime configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	HTTP    HTTPConfig    `yaml:"http"`
	Postage PostageConfig `yaml:"postage"`
	Feed    FeedConfig    `yaml:"feed"`
	Cart    CartConfig    `yaml:"cart"`
	Log     LogConfig     `yaml:"log"`
}

// StoreConfig selects the persisted key-value store.
type StoreConfig struct {
	Backend    string `yaml:"backend"`
	RedisURL   string `yaml:"redis_url"`
	SQLitePath string `yaml:"sqlite_path"`
}

// HTTPConfig configures outgoing requests and the serve command.
type HTTPConfig struct {
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	Port      string        `yaml:"port"`
}

// PostageConfig configures the shipping-cost API.
type PostageConfig struct {
	BaseURL string `yaml:"base_url"`
}

// FeedConfig bounds the readiness poll of background documents and the
// parallel shipping estimates per merged page.
type FeedConfig struct {
	ReadinessInterval   time.Duration `yaml:"readiness_interval"`
	ReadinessAttempts   int           `yaml:"readiness_attempts"`
	EstimateConcurrency int           `yaml:"estimate_concurrency"`
}

// CartConfig bounds the notification banner waits around a cart action.
type CartConfig struct {
	BannerInterval  time.Duration `yaml:"banner_interval"`
	BannerAttempts  int           `yaml:"banner_attempts"`
	DismissInterval time.Duration `yaml:"dismiss_interval"`
	DismissAttempts int           `yaml:"dismiss_attempts"`
}

// LogConfig configures zerolog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:    BackendSQLite,
			RedisURL:   "localhost:6379",
			SQLitePath: "cmfeed.db",
		},
		HTTP: HTTPConfig{
			UserAgent: "cm-offers-feed/0.1.0",
			Timeout:   30 * time.Second,
			Port:      "8080",
		},
		Postage: PostageConfig{
			BaseURL: DefaultPostageURL,
		},
		Feed: FeedConfig{
			ReadinessInterval:   500 * time.Millisecond,
			ReadinessAttempts:   20,
			EstimateConcurrency: 8,
		},
		Cart: CartConfig{
			BannerInterval:  200 * time.Millisecond,
			BannerAttempts:  10,
			DismissInterval: 100 * time.Millisecond,
			DismissAttempts: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path (if non-empty), applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("load from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Store.Backend = getEnv("CMFEED_STORE", c.Store.Backend)
	c.Store.RedisURL = getEnv("REDIS_URL", c.Store.RedisURL)
	c.Store.SQLitePath = getEnv("CMFEED_SQLITE_PATH", c.Store.SQLitePath)
	c.HTTP.UserAgent = getEnv("USER_AGENT", c.HTTP.UserAgent)
	c.HTTP.Port = getEnv("PORT", c.HTTP.Port)
	c.Postage.BaseURL = getEnv("CMFEED_POSTAGE_URL", c.Postage.BaseURL)
	c.Log.Level = getEnv("CMFEED_LOG_LEVEL", c.Log.Level)

	if v := os.Getenv("CMFEED_LOG_PRETTY"); v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid CMFEED_LOG_PRETTY: %s", v)
		}
		c.Log.Pretty = pretty
	}

	if v := os.Getenv("CMFEED_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CMFEED_HTTP_TIMEOUT: %s", v)
		}
		c.HTTP.Timeout = d
	}

	if v := os.Getenv("CMFEED_ESTIMATE_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CMFEED_ESTIMATE_CONCURRENCY: %s", v)
		}
		c.Feed.EstimateConcurrency = n
	}

	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendRedis:
		if c.Store.RedisURL == "" {
			errs = append(errs, errors.New("store.redis_url is required for the redis backend"))
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	if strings.TrimSpace(c.HTTP.UserAgent) == "" {
		errs = append(errs, errors.New("http.user_agent is required"))
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("http.timeout must be > 0 (got %s)", c.HTTP.Timeout))
	}
	if c.Postage.BaseURL == "" {
		errs = append(errs, errors.New("postage.base_url is required"))
	}
	if c.Feed.ReadinessInterval <= 0 || c.Feed.ReadinessAttempts <= 0 {
		errs = append(errs, errors.New("feed readiness interval and attempts must be > 0"))
	}
	if c.Feed.EstimateConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("feed.estimate_concurrency must be > 0 (got %d)", c.Feed.EstimateConcurrency))
	}
	if c.Cart.BannerInterval <= 0 || c.Cart.BannerAttempts <= 0 {
		errs = append(errs, errors.New("cart banner interval and attempts must be > 0"))
	}
	if c.Cart.DismissInterval <= 0 || c.Cart.DismissAttempts <= 0 {
		errs = append(errs, errors.New("cart dismiss interval and attempts must be > 0"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
