// Package robots implements the permission gate that decides, once per run,
// whether the index may be crawled at all.
//
// # Modes
//
// The default heuristic mode does not parse robots.txt grammar. It lowercases
// the file and denies the crawl only when the index path prefix is mentioned
// AND a "disallow: <prefix>" directive for that exact prefix is present.
// Groups, wildcards and crawl-delay are ignored.
//
// Strict mode parses the file with github.com/temoto/robotstxt and tests the
// first index page path for the configured robots user agent.
//
// # Failure policy
//
// When robots.txt cannot be fetched at all (timeout, DNS failure, refused
// connection) the gate fails open: the decision is "allowed" and the failure
// is logged. Operators can opt into failing closed instead.
package robots
