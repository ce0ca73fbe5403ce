package config

import "time"

// Config is the root configuration for one eod-fetch run.
type Config struct {
	Provider  ProviderConfig  `yaml:"provider"`
	Query     QueryConfig     `yaml:"query"`
	Output    OutputConfig    `yaml:"output"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ProviderConfig holds Marketstack API settings.
type ProviderConfig struct {
	AccessKey string `yaml:"access_key"`
	Plan      string `yaml:"plan"`

	// BaseURL overrides the provider endpoint. Empty picks the endpoint
	// matching the plan.
	BaseURL string `yaml:"base_url"`

	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries enables the retry transport when > 0. Only idempotent
	// requests that fail with server or network errors are retried.
	MaxRetries int `yaml:"max_retries"`
}

// QueryConfig describes the date range to fetch.
type QueryConfig struct {
	Symbols  []string `yaml:"symbols"`
	DateFrom string   `yaml:"date_from"`
	DateTo   string   `yaml:"date_to"`
	Exchange string   `yaml:"exchange"`

	// MaxPages caps the page walk. Zero keeps the library default.
	MaxPages int `yaml:"max_pages"`
}

// OutputConfig controls where and how records are written.
type OutputConfig struct {
	// Format is "csv" or "jsonl".
	Format string `yaml:"format"`

	// Path is the output file; "-" writes to stdout.
	Path string `yaml:"path"`
}

// RateLimitConfig selects the request pacing strategy. With RedisAddr set
// the request budget is shared with every other process using the same key;
// otherwise an in-process limiter sized from the plan is used.
type RateLimitConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	RedisKey  string `yaml:"redis_key"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// MetricsConfig holds the optional Prometheus listener settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}
