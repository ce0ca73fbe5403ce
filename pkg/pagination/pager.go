package pagination

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/markovejnovic/go-marketstack/pkg/eod"
)

// DefaultMaxPages caps a walk when Config.MaxPages is zero. It is a runaway
// guard, not a tuning knob: a year of one symbol fits in a single page on
// every paid tier, so a walk approaching a thousand pages is a sign the
// query or the provider is misbehaving.
const DefaultMaxPages = 1000

// ErrPageBudgetExhausted means a walk hit its MaxPages cap before the
// provider reported the result set complete. No partial rows are returned.
var ErrPageBudgetExhausted = errors.New("page budget exhausted")

// PageFetcher fetches one page of a query's result set. It is implemented
// by client.Client; tests substitute scripted fakes.
type PageFetcher interface {
	FetchPage(ctx context.Context, req eod.PageRequest) (*eod.PageResult, error)
}

// Config controls a single page walk.
type Config struct {
	// Limit is the page size to request. Required, and subject to the
	// subscription tier's rows-per-page cap.
	Limit int

	// MaxPages caps how many pages the walk may fetch before failing
	// with ErrPageBudgetExhausted. Zero selects DefaultMaxPages.
	MaxPages int
}

// Cursor is the walk's position: the next row offset to request and what
// has been consumed so far.
type Cursor struct {
	// Offset is the row offset the next page will be requested at.
	Offset int

	// Fetched is the number of rows returned across all pages so far.
	Fetched int

	// Pages is the number of requests made so far, empty pages included.
	Pages int
}

// Pager walks a query's pages sequentially in the style of bufio.Scanner:
//
//	pager := pagination.NewPager(fetcher, query, cfg)
//	for pager.Next(ctx) {
//		use(pager.Page())
//	}
//	if err := pager.Err(); err != nil {
//		...
//	}
//
// Each page is requested only after the previous one arrived, because its
// offset depends on how many rows the previous page actually returned. A
// fetch error stops the walk for good; the Pager never retries. Not safe
// for concurrent use.
type Pager struct {
	fetcher  PageFetcher
	query    eod.Query
	limit    int
	maxPages int

	cur  Cursor
	page *eod.PageResult
	err  error
	done bool
}

// NewPager returns a Pager positioned before the first page of query.
func NewPager(fetcher PageFetcher, query eod.Query, cfg Config) *Pager {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	return &Pager{
		fetcher:  fetcher,
		query:    query,
		limit:    cfg.Limit,
		maxPages: cfg.MaxPages,
	}
}

// Next fetches the next page and reports whether one is available. It
// returns false when the result set is exhausted or the walk failed; the
// two are told apart with Err.
func (p *Pager) Next(ctx context.Context) bool {
	if p.done || p.err != nil {
		return false
	}
	if p.limit <= 0 {
		p.err = fmt.Errorf("page limit must be positive, got %d", p.limit)
		return false
	}
	if p.cur.Pages >= p.maxPages {
		p.err = fmt.Errorf("%w after %d pages (%d rows)", ErrPageBudgetExhausted, p.cur.Pages, p.cur.Fetched)
		return false
	}

	req := eod.PageRequest{Query: p.query, Offset: p.cur.Offset, Limit: p.limit}
	res, err := p.fetcher.FetchPage(ctx, req)
	if err != nil {
		p.err = err
		return false
	}

	// The offset advances by what the page actually held, not by what
	// was asked for.
	p.cur.Offset += res.Count
	p.cur.Fetched += res.Count
	p.cur.Pages++

	log.Debug().
		Int("offset", req.Offset).
		Int("count", res.Count).
		Int("total", res.Total).
		Int("pages", p.cur.Pages).
		Msg("Fetched page")

	if res.Count == 0 {
		p.done = true
		return false
	}

	p.page = res

	// A short page ends the walk even when the advertised total claims
	// more rows; the total can drift while the walk is in flight and the
	// short page is what the provider actually had.
	if res.Count < p.limit || p.cur.Fetched >= res.Total {
		p.done = true
	}
	return true
}

// Page returns the page fetched by the most recent successful Next. It is
// only valid after Next returned true.
func (p *Pager) Page() *eod.PageResult { return p.page }

// Err returns the error that stopped the walk, or nil if the walk finished
// cleanly or is still in progress.
func (p *Pager) Err() error { return p.err }

// Cursor returns the walk's current position.
func (p *Pager) Cursor() Cursor { return p.cur }
