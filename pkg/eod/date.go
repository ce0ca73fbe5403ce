package eod

import (
	"fmt"
	"time"
)

// dateLayouts are the formats accepted by ParseDate, tried in order. The
// provider stamps rows as "2021-04-09T00:00:00+0000"; callers and config
// files usually write bare "2021-04-09".
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
}

// Date is a calendar day with no time or zone component. The zero value is
// no date at all; use IsZero to test for it.
type Date struct {
	t time.Time
}

// NewDate returns the given calendar day. Out-of-range values are normalized
// the same way time.Date normalizes them.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, m, d)
}

// ParseDate parses s as a calendar day. It accepts both the bare form
// "2006-01-02" and the provider's timestamp form; any time-of-day is
// discarded.
func ParseDate(s string) (Date, error) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Before reports whether d is an earlier day than other.
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

// After reports whether d is a later day than other.
func (d Date) After(other Date) bool { return d.t.After(other.t) }

// Equal reports whether d and other are the same day.
func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

// AddDays returns the day n days after d. n may be negative.
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// DaysUntil returns the number of days from d to other. Negative when other
// is earlier than d.
func (d Date) DaysUntil(other Date) int {
	return int(other.t.Sub(d.t) / (24 * time.Hour))
}

// Time returns the midnight UTC instant of the day.
func (d Date) Time() time.Time { return d.t }

// String formats d as YYYY-MM-DD, the form the provider expects in query
// parameters.
func (d Date) String() string { return d.t.Format("2006-01-02") }

// MarshalJSON encodes d as a quoted YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a quoted date in any of the accepted layouts.
func (d *Date) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("invalid date %s: want a JSON string", b)
	}
	parsed, err := ParseDate(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
