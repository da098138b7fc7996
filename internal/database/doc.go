// Package database provides SQLite-based run history for drugindex.
//
// This package implements the IndexDB, which stores:
//   - One row per crawl run with its outcome totals
//   - One row per attempted bucket with status, tier, entry count and page hash
//   - The entries extracted for each successful bucket
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for a few thousand rows per run
//
// The page hash lets two runs be compared per bucket without keeping the
// pages themselves.
package database
