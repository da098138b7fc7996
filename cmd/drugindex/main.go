// Package main provides the entry point for the drugindex CLI.
//
// drugindex builds a CSV index of the drug names listed on a medication
// reference site's alphabetical index pages. It checks robots.txt once,
// then walks the 27 letter buckets at a polite pace.
//
// Usage:
//
//	drugindex crawl
//	drugindex crawl --buckets a,b,c -o partial.csv
//	drugindex history --changed
//
// See --help for all available options.
package main

func main() {
	Execute()
}
