package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrInvalidBaseURL is returned when the base URL is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http or https URL")

	// ErrInvalidIndexTemplate is returned when the index template lacks {bucket}.
	ErrInvalidIndexTemplate = errors.New("invalid index template: must contain {bucket}")

	// ErrInvalidEntryPattern is returned when the entry pattern is not a valid regular expression.
	ErrInvalidEntryPattern = errors.New("invalid entry pattern: must be a valid regular expression")

	// ErrEmptyUserAgent is returned when no User-Agent is configured.
	// Anonymous crawling is not supported.
	ErrEmptyUserAgent = errors.New("user agent must not be empty")

	// ErrInvalidRequestRate is returned when requests per minute is negative.
	ErrInvalidRequestRate = errors.New("invalid request rate: must be non-negative")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRobotsMode is returned for an unknown robots mode.
	ErrInvalidRobotsMode = errors.New("invalid robots mode: must be \"heuristic\" or \"strict\"")

	// ErrInvalidMaxBodySize is returned when the max body size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrEmptyOutputPath is returned when no output path is configured.
	ErrEmptyOutputPath = errors.New("output path must not be empty (use \"-\" for stdout)")

	// ErrInvalidCacheTTL is returned when the cache TTL is negative.
	ErrInvalidCacheTTL = errors.New("invalid cache TTL: must be non-negative")

	// ErrInvalidSummaryFormat is returned for an unknown summary format.
	ErrInvalidSummaryFormat = errors.New("invalid summary format: must be text, json or markdown")

	// ErrInvalidLogFormat is returned for an unknown log format.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text, json or pretty")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
