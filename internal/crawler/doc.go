// Package crawler retrieves the alphabetical drug index one bucket at a time.
//
// # Architecture
//
// The package is built around the Driver type, which coordinates a run:
//
//	Driver -> PermissionChecker (once)
//	       -> for each bucket: Pacer -> Fetcher -> Extractor -> Sink -> Recorder
//
// Each collaborator is an interface so that tests can replace the network,
// the clock and the output independently.
//
// Design decision: We drive a fixed list of index pages instead of following
// links because:
//  1. The index is fully enumerated by its 27 buckets
//  2. A bounded request count keeps the crawl polite and predictable
//  3. Entry pages are only recorded, never fetched
//
// # Components
//
//   - Fetcher: GETs one index page with a bounded timeout, optionally via a page cache
//   - Extractor: two-tier link extraction over the parsed document
//   - Driver: sequential, paced loop with per-bucket error isolation
//
// # Politeness
//
// One request at a time, paced by a token bucket (30 requests per minute by
// default), after a robots.txt permission check. Cached pages are served
// without consuming a token.
//
// # Usage
//
//	fetcher, _ := crawler.NewFetcher(client, "https://www.drugs.com")
//	extractor, _ := crawler.NewExtractor("https://www.drugs.com")
//	driver := crawler.NewDriver(gate, fetcher, extractor, sink,
//		crawler.WithPacer(crawler.NewPacer(30)))
//	summary, err := driver.Run(ctx)
package crawler
