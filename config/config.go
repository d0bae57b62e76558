// Package config loads engine configuration from YAML, with environment
// variables taking precedence over file values. Every knob has a default, so
// an empty configuration is fully usable.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gelsogrove/shopME-sub006/cartstate"
	"github.com/gelsogrove/shopME-sub006/contextstore"
	"github.com/gelsogrove/shopME-sub006/lock"
)

// Config is the root engine configuration.
type Config struct {
	Lock     LockConfig     `yaml:"lock"`
	Context  ContextConfig  `yaml:"context"`
	Cache    CacheConfig    `yaml:"cache"`
	Search   SearchConfig   `yaml:"search"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// LockConfig tunes the per-customer lock manager.
type LockConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxQueue      int           `yaml:"max_queue"`
	MaxRetries    int           `yaml:"max_retries"`
	BackoffBase   time.Duration `yaml:"backoff_base"`
}

// ContextConfig tunes the conversation context store.
type ContextConfig struct {
	DisambiguationTTL time.Duration `yaml:"disambiguation_ttl"`
	GeneralTTL        time.Duration `yaml:"general_ttl"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
}

// CacheConfig tunes the cart state cache and its validator.
type CacheConfig struct {
	TTL              time.Duration `yaml:"ttl"`
	ValidateInterval time.Duration `yaml:"validate_interval"`
}

// SearchConfig tunes catalog searches.
type SearchConfig struct {
	// Limit caps how many candidates a free-text search returns.
	Limit int `yaml:"limit"`
}

// RedisConfig points context and cart state storage at Redis. An empty Addr
// keeps everything in process memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DatabaseConfig points cart storage at a SQL database. An empty DSN keeps
// carts in process memory.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// MetricsConfig controls the Prometheus exporter.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns a configuration with every knob at its package default.
func Default() *Config {
	return &Config{
		Lock: LockConfig{
			TTL:           lock.DefaultLockTTL,
			SweepInterval: lock.DefaultSweepInterval,
			MaxQueue:      lock.DefaultMaxQueue,
			MaxRetries:    lock.DefaultMaxRetries,
			BackoffBase:   lock.DefaultBackoffBase,
		},
		Context: ContextConfig{
			DisambiguationTTL: contextstore.DefaultDisambiguationTTL,
			GeneralTTL:        contextstore.DefaultGeneralTTL,
			SweepInterval:     contextstore.DefaultSweepInterval,
		},
		Cache: CacheConfig{
			TTL:              cartstate.DefaultCacheTTL,
			ValidateInterval: cartstate.DefaultValidateInterval,
		},
		Search: SearchConfig{
			Limit: 5,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		LogLevel: "info",
	}
}

// Load reads a YAML file over the defaults, then applies environment
// overrides. A missing file is not an error: defaults plus environment win.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = n
		}
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
		c.Metrics.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// applyDefaults backfills any knob a partial YAML file left at zero.
func (c *Config) applyDefaults() {
	def := Default()

	if c.Lock.TTL <= 0 {
		c.Lock.TTL = def.Lock.TTL
	}
	if c.Lock.SweepInterval <= 0 {
		c.Lock.SweepInterval = def.Lock.SweepInterval
	}
	if c.Lock.MaxQueue <= 0 {
		c.Lock.MaxQueue = def.Lock.MaxQueue
	}
	if c.Lock.MaxRetries <= 0 {
		c.Lock.MaxRetries = def.Lock.MaxRetries
	}
	if c.Lock.BackoffBase <= 0 {
		c.Lock.BackoffBase = def.Lock.BackoffBase
	}
	if c.Context.DisambiguationTTL <= 0 {
		c.Context.DisambiguationTTL = def.Context.DisambiguationTTL
	}
	if c.Context.GeneralTTL <= 0 {
		c.Context.GeneralTTL = def.Context.GeneralTTL
	}
	if c.Context.SweepInterval <= 0 {
		c.Context.SweepInterval = def.Context.SweepInterval
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = def.Cache.TTL
	}
	if c.Cache.ValidateInterval <= 0 {
		c.Cache.ValidateInterval = def.Cache.ValidateInterval
	}
	if c.Search.Limit <= 0 {
		c.Search.Limit = def.Search.Limit
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = def.Metrics.Addr
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}
