// Package plan defines the closed set of Marketstack subscription tiers and
// the request limits attached to each. Limits are static data resolved by a
// pure lookup; nothing in this package performs I/O or fails.
package plan

import (
	"fmt"
	"strings"
	"time"
)

// Plan identifies a Marketstack subscription tier.
type Plan int

// The supported subscription tiers, lowest to highest.
const (
	Free Plan = iota
	Basic
	Professional
	Business
)

// UnboundedHistory is the MaxHistoryDays value of tiers that may query
// arbitrarily far back.
const UnboundedHistory = 0

// Limits describes what a tier is allowed to request.
type Limits struct {
	// MaxRowsPerPage is the largest value accepted for the limit query
	// parameter. Requests always use this value; the provider decides how
	// many rows actually come back.
	MaxRowsPerPage int

	// MaxRequestsPerWindow and Window bound the request rate: no more than
	// MaxRequestsPerWindow requests may be issued inside one Window.
	MaxRequestsPerWindow int
	Window               time.Duration

	// MaxHistoryDays is the widest date span, in days, a single query may
	// cover. UnboundedHistory means no limit.
	MaxHistoryDays int

	// DateLookup reports whether the tier may call the single-date
	// /eod/{date} endpoint. Tiers without it fall back to a range query.
	DateLookup bool
}

// LimitsFor returns the limits table entry for p. Unknown plans resolve to
// the Free tier limits, the most restrictive set; callers that need to
// reject unknown plans should check Valid first.
func LimitsFor(p Plan) Limits {
	switch p {
	case Basic:
		return Limits{
			MaxRowsPerPage:       1000,
			MaxRequestsPerWindow: 10,
			Window:               time.Second,
			MaxHistoryDays:       3650,
			DateLookup:           true,
		}
	case Professional:
		return Limits{
			MaxRowsPerPage:       1000,
			MaxRequestsPerWindow: 25,
			Window:               time.Second,
			MaxHistoryDays:       5475,
			DateLookup:           true,
		}
	case Business:
		return Limits{
			MaxRowsPerPage:       1000,
			MaxRequestsPerWindow: 50,
			Window:               time.Second,
			MaxHistoryDays:       UnboundedHistory,
			DateLookup:           true,
		}
	default:
		return Limits{
			MaxRowsPerPage:       100,
			MaxRequestsPerWindow: 5,
			Window:               time.Second,
			MaxHistoryDays:       365,
			DateLookup:           false,
		}
	}
}

// HistoryBounded reports whether the tier restricts how far back a query
// may reach.
func (l Limits) HistoryBounded() bool {
	return l.MaxHistoryDays != UnboundedHistory
}

// Valid reports whether p is one of the defined tiers.
func (p Plan) Valid() bool {
	return p >= Free && p <= Business
}

// String returns the lowercase tier name, or "unknown" for values outside
// the defined set.
func (p Plan) String() string {
	switch p {
	case Free:
		return "free"
	case Basic:
		return "basic"
	case Professional:
		return "professional"
	case Business:
		return "business"
	default:
		return "unknown"
	}
}

// ParsePlan converts a tier name, case-insensitively, into a Plan.
func ParsePlan(s string) (Plan, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "free":
		return Free, nil
	case "basic":
		return Basic, nil
	case "professional":
		return Professional, nil
	case "business":
		return Business, nil
	default:
		return 0, fmt.Errorf("unknown plan %q", s)
	}
}
