// Package model defines the core data structures used throughout drugindex.
//
// This package contains the following main types:
//   - Bucket: One partition of the site's A-Z index (a..z plus "0-9")
//   - LinkEntry: A drug display name paired with its absolute URL
//   - CrawlResult: The entries extracted from one index page, tagged with the
//     extraction tier that produced them
//   - BucketOutcome: The per-bucket result of a crawl, success or failure
//   - RunSummary: The aggregate of all bucket outcomes for one run
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, database and report packages all need these
// types, so centralizing them prevents import cycles.
package model
