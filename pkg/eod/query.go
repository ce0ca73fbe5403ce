package eod

// Query describes one logical request for end-of-day data: which symbols,
// over which inclusive date range. A query usually spans several pages on
// the wire; the paginator walks them and the caller sees a single result.
type Query struct {
	// Symbols are the ticker symbols to fetch, in provider notation
	// ("AAPL", "BRK.A"). At least one is required.
	Symbols []string

	// From and To bound the range, inclusive on both ends.
	From Date
	To   Date

	// Exchange optionally restricts results to one exchange, given as a
	// MIC ("XNAS"). Empty means all exchanges.
	Exchange string
}

// SpanDays returns the inclusive length of the query's date range in days.
// A single-day query spans 1.
func (q Query) SpanDays() int {
	return q.From.DaysUntil(q.To) + 1
}

// PageRequest addresses one page of a query's result set. Offset counts
// rows, not pages, and grows by the number of rows each page actually
// returned.
type PageRequest struct {
	Query  Query
	Offset int
	Limit  int
}

// PageResult is one decoded page: its rows plus the provider's pagination
// counters.
//
// Count is the number of rows in this page and always equals len(Records).
// Total is the size of the full result set as reported by the provider;
// it may shrink between pages if rows disappear upstream mid-walk.
type PageResult struct {
	Records []Record
	Limit   int
	Offset  int
	Count   int
	Total   int
}
