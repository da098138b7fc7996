// Package config provides configuration structures and utilities for drugindex.
// It defines the crawl target, politeness settings, output destinations and
// the optional cache and run-history locations.
//
// Values are layered with the following precedence (highest first):
// command-line flags, environment variables, the YAML config file, defaults.
package config
