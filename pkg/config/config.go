// Package config loads relay configuration from an optional YAML file with
// environment-variable overrides. The resulting Config is built once at
// startup and passed by reference to every component.
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

// ErrNotConfigured marks a missing required setting (credentials, token).
var ErrNotConfigured = errors.New("not configured")

// DefaultBaseURL is the Optima host serving the remote remains API.
const DefaultBaseURL = "https://optima.itigris.ru"

// Config is the top-level relay configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Pagination PaginationConfig `yaml:"pagination"`
	Cache      CacheConfig      `yaml:"cache"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds inbound HTTP settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	Token           string        `yaml:"token"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// UpstreamConfig holds the Itigris Optima credentials and transport settings.
type UpstreamConfig struct {
	BaseURL string        `yaml:"base_url"`
	AppName string        `yaml:"app_name"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// PaginationConfig bounds the page loop. MaxPages <= 0 means unbounded.
type PaginationConfig struct {
	MaxPages int `yaml:"max_pages"`
}

// CacheConfig controls result caching. TTL 0 disables the cache.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// RedisConfig selects the Redis cache backend when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggingConfig controls log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns a Config with local-development defaults and no credentials.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			RateLimitPerSec: 5,
			RateLimitBurst:  10,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Upstream: UpstreamConfig{
			BaseURL: DefaultBaseURL,
			Timeout: 30 * time.Second,
		},
		Pagination: PaginationConfig{
			MaxPages: 1000,
		},
		Cache: CacheConfig{
			TTL: time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty) over the
// defaults and then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the upstream client cannot run without.
// The server token is checked per request instead, so a relay with no token
// still starts and answers 500 on protected routes.
func (c *Config) Validate() error {
	var missing []string
	if c.Upstream.AppName == "" {
		missing = append(missing, "upstream.app_name")
	}
	if c.Upstream.APIKey == "" {
		missing = append(missing, "upstream.api_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrNotConfigured, strings.Join(missing, ", "))
	}
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must be >= 0 (got %s)", c.Cache.TTL)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("ITIGRIS_APP_NAME"); v != "" {
		cfg.Upstream.AppName = v
	}
	if v := os.Getenv("ITIGRIS_API_KEY"); v != "" {
		cfg.Upstream.APIKey = v
	}
	if v := os.Getenv("ITIGRIS_BASE_URL"); v != "" {
		cfg.Upstream.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("ODL_SERVER_TOKEN"); v != "" {
		cfg.Server.Token = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("MAX_PAGES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse MAX_PAGES: %w", err)
		}
		cfg.Pagination.MaxPages = n
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse CACHE_TTL: %w", err)
		}
		cfg.Cache.TTL = d
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse LOG_PRETTY: %w", err)
		}
		cfg.Logging.Pretty = pretty
	}
	return nil
}
