// Package pagination walks the remote remains list page by page.
//
// Optima does not report a page count. The only end-of-data signal is an
// empty page, so pages are requested strictly in order, each one only after
// the previous one returned:
//
//	fetcher := pagination.NewFetcher(upstreamClient, pagination.DefaultConfig())
//	records, err := fetcher.FetchAll(ctx, pagination.Payload{Product: "LENS"})
//
// The fetcher:
//   - starts at page 1 and increments by one per non-empty page
//   - appends every record, preserving page order and order within a page
//   - stops at the first empty page
//   - aborts on the first failed page and discards what it had collected
//   - gives up with ErrPageLimitExceeded after Config.MaxPages requests
//     without an empty page
//   - records the upstream field order in Result.Columns (see Fetch)
package pagination
