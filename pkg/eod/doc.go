// Package eod holds the domain model for end-of-day market data: calendar
// dates, price records, logical queries, and the page request/result values
// exchanged between the paginator and the HTTP client.
//
// The types here are plain data. Validation against a subscription tier and
// all wire concerns (JSON envelopes, error bodies) live in pkg/client.
//
// The provider also ships adjusted price fields (adj_open, adj_close, ...).
// Those are deliberately not modeled: the adjusted series does not reconcile
// with the split factors on split days (MNST on 2023-03-28 is an easy check),
// so consumers needing adjusted prices should derive them from SplitFactor
// and Dividend instead.
package eod
