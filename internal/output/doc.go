// Package output writes extracted index entries as CSV.
//
// The file has a fixed "name,url" header and one row per entry, UTF-8
// encoded with standard CSV quoting. Rows are flushed after each bucket so a
// run interrupted midway leaves every completed bucket on disk.
package output
