// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Per-page fetches (endpoint, offset, count, total)
//   - Rate limiter waits
//   - Pager state transitions
//
// Info: Normal operation events
//   - Completed queries (rows, pages, duration)
//   - Client startup and configuration
//
// Warn: Warning conditions that don't prevent operation
//   - Provider rejections (auth, rate limit, bad responses)
//   - Retry attempts
//   - Free plan keys configured against the HTTPS endpoint
//
// Error: Error conditions requiring attention
//   - Failed queries (after the page walk stops)
//   - Exhausted retries
//   - Configuration errors
//
// Context Fields:
//   - component: Emitting subsystem (marketstack-client, retry-transport)
//   - query_id: Generated ID correlating every page of one query
//   - symbols, from, to, exchange: The query being served
//   - endpoint: Provider endpoint (eod, eod_date)
//   - offset, count, total: Page position within the result set
//   - kind, code: Error taxonomy kind and provider error code
//   - rows, pages, duration: Completed query accounting
//
// The access key never appears in log output; transport errors are
// scrubbed of query strings before logging.
