package config

import (
	"errors"
	"fmt"

	"github.com/markovejnovic/go-marketstack/pkg/eod"
	"github.com/markovejnovic/go-marketstack/pkg/plan"
)

// Validate checks that all required fields are set and values are valid.
// The deeper query rules, plan spans among them, are the client's job; this
// catches what would fail before a client even exists.
func (c *Config) Validate() error {
	if c.Provider.AccessKey == "" {
		return errors.New("provider.access_key is required")
	}
	if _, err := plan.ParsePlan(c.Provider.Plan); err != nil {
		return fmt.Errorf("provider.plan: %w", err)
	}

	if len(c.Query.Symbols) == 0 {
		return errors.New("query.symbols is required")
	}
	if c.Query.DateFrom == "" {
		return errors.New("query.date_from is required")
	}
	if _, err := eod.ParseDate(c.Query.DateFrom); err != nil {
		return fmt.Errorf("query.date_from: %w", err)
	}
	if c.Query.DateTo == "" {
		return errors.New("query.date_to is required")
	}
	if _, err := eod.ParseDate(c.Query.DateTo); err != nil {
		return fmt.Errorf("query.date_to: %w", err)
	}
	if c.Query.MaxPages < 0 {
		return errors.New("query.max_pages must be >= 0")
	}

	if c.Output.Format != "csv" && c.Output.Format != "jsonl" {
		return fmt.Errorf("output.format must be csv or jsonl, got %q", c.Output.Format)
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
		}
	}

	return nil
}
