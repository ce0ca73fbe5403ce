// Package pagination walks the offset-paginated result set of a query one
// page at a time.
//
// The provider reports progress through a pagination envelope (limit,
// offset, count, total) on every page. Because the next offset depends on
// how many rows the previous page actually returned, pages are fetched
// strictly in sequence; there is no parallel prefetch.
//
// Example usage:
//
//	pager := pagination.NewPager(client, query, pagination.Config{Limit: 100})
//	for pager.Next(ctx) {
//		use(pager.Page())
//	}
//	if err := pager.Err(); err != nil {
//		// the walk failed; pages already consumed are the caller's to discard
//	}
//
// The pager:
//   - Requests each page at the offset the previous page ended on
//   - Treats a short or empty page as the end of the result set, even
//     when the advertised total disagrees
//   - Stops on the first fetch error and never retries
//   - Fails with ErrPageBudgetExhausted when a walk exceeds its page cap
package pagination
