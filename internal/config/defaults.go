package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultPlan        = "free"
	DefaultTimeout     = 30 * time.Second
	DefaultFormat      = "csv"
	DefaultOutputPath  = "-"
	DefaultLogLevel    = "info"
	DefaultMetricsPort = 9090
	DefaultMetricsPath = "/metrics"
)

func (c *Config) applyDefaults() {
	if c.Provider.Plan == "" {
		c.Provider.Plan = DefaultPlan
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = DefaultTimeout
	}

	if c.Output.Format == "" {
		c.Output.Format = DefaultFormat
	}
	if c.Output.Path == "" {
		c.Output.Path = DefaultOutputPath
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}

	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
