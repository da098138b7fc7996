package config

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/drugindex/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "drugindex"

	// DefaultBaseURL is the site whose index is crawled.
	DefaultBaseURL = "https://www.drugs.com"

	// DefaultIndexTemplate is the index page path; {bucket} is replaced per bucket.
	DefaultIndexTemplate = "/alpha/{bucket}.html"

	// DefaultUserAgent identifies the crawler. Operators should add a contact
	// address so site owners can reach them.
	DefaultUserAgent = "drugindex/1.0 (+https://github.com/nao1215/drugindex)"

	// DefaultRequestsPerMinute keeps the crawl at one index page every two seconds.
	DefaultRequestsPerMinute = 30

	// DefaultRobotsTimeout bounds the robots.txt request.
	DefaultRobotsTimeout = 15 * time.Second

	// DefaultFetchTimeout bounds each index page request.
	DefaultFetchTimeout = 20 * time.Second

	// DefaultMaxBodySize limits how much of a response is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultOutputPath is the CSV written when no output is given.
	DefaultOutputPath = "drugs_index.csv"

	// RobotsModeHeuristic and RobotsModeStrict select how robots.txt is read.
	RobotsModeHeuristic = "heuristic"
	RobotsModeStrict    = "strict"

	// Log formats.
	LogFormatText   = "text"
	LogFormatJSON   = "json"
	LogFormatPretty = "pretty"

	// Summary formats.
	SummaryFormatText     = "text"
	SummaryFormatJSON     = "json"
	SummaryFormatMarkdown = "markdown"
)

// Config holds all configuration options for a crawl.
// It is populated from defaults, the config file, the environment and CLI
// flags, and passed down explicitly rather than kept in global state.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity. The number of options is manageable, and nesting would
// add complexity without significant benefit.
type Config struct {
	// BaseURL is the scheme and host of the site, e.g. "https://www.drugs.com".
	BaseURL string

	// IndexTemplate is the index page path with a {bucket} placeholder.
	IndexTemplate string

	// EntryPattern overrides the href pattern of the fallback extraction
	// pass. Empty keeps the built-in pattern.
	EntryPattern string

	// UserAgent is sent with every request.
	UserAgent string

	// Headers are extra request headers, e.g. a From: contact address.
	Headers map[string]string

	// Proxy is an optional proxy URL (http, https, socks5 or socks5h).
	Proxy string

	// RequestsPerMinute paces index page requests. 0 disables pacing.
	RequestsPerMinute int

	// RobotsTimeout bounds the robots.txt request.
	RobotsTimeout time.Duration

	// RobotsMode is "heuristic" (default) or "strict".
	RobotsMode string

	// RobotsFailClosed denies the crawl when robots.txt cannot be fetched.
	RobotsFailClosed bool

	// FetchTimeout bounds each index page request.
	FetchTimeout time.Duration

	// MaxBodySize is the maximum response size read, in bytes.
	MaxBodySize int64

	// OutputPath is the CSV destination. "-" writes to stdout.
	OutputPath string

	// Buckets restricts the crawl to a subset. Empty means all 27.
	Buckets []model.Bucket

	// CacheTTL enables the page cache when positive.
	CacheTTL time.Duration

	// CacheDir is where cached pages are stored. Empty means the XDG cache dir.
	CacheDir string

	// SaveToDB records the run in the history database.
	SaveToDB bool

	// DBDir is the history database directory. Empty means the XDG data dir.
	DBDir string

	// SummaryFormat is "text", "json" or "markdown".
	SummaryFormat string

	// SummaryFile also writes the summary, in SummaryFormat, to a file.
	SummaryFile string

	// Verbose enables debug logging.
	Verbose bool

	// LogFormat is "text", "json" or "pretty".
	LogFormat string

	// ConfigFilePath is the explicit config file, if any.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeouts and the
// request rate). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		BaseURL:           DefaultBaseURL,
		IndexTemplate:     DefaultIndexTemplate,
		UserAgent:         DefaultUserAgent,
		Headers:           make(map[string]string),
		RequestsPerMinute: DefaultRequestsPerMinute,
		RobotsTimeout:     DefaultRobotsTimeout,
		RobotsMode:        RobotsModeHeuristic,
		FetchTimeout:      DefaultFetchTimeout,
		MaxBodySize:       DefaultMaxBodySize,
		OutputPath:        DefaultOutputPath,
		SaveToDB:          true,
		SummaryFormat:     SummaryFormatText,
		LogFormat:         LogFormatText,
	}
}

// XDGDataDir returns the XDG data directory for drugindex.
// On Linux: ~/.local/share/drugindex
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for drugindex.
// On Linux: ~/.config/drugindex
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for drugindex.
// On Linux: ~/.cache/drugindex
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// EffectiveDBDir returns DBDir, or the XDG data directory when unset.
func (c *Config) EffectiveDBDir() string {
	if c.DBDir != "" {
		return c.DBDir
	}
	return XDGDataDir()
}

// EffectiveCacheDir returns CacheDir, or the XDG cache pages directory when unset.
func (c *Config) EffectiveCacheDir() string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	return filepath.Join(XDGCacheDir(), "pages")
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}

	if !strings.Contains(c.IndexTemplate, "{bucket}") {
		return ErrInvalidIndexTemplate
	}

	if c.EntryPattern != "" {
		if _, err := regexp.Compile(c.EntryPattern); err != nil {
			return ErrInvalidEntryPattern
		}
	}

	if strings.TrimSpace(c.UserAgent) == "" {
		return ErrEmptyUserAgent
	}

	if c.RequestsPerMinute < 0 {
		return ErrInvalidRequestRate
	}

	if c.RobotsTimeout <= 0 || c.FetchTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.RobotsMode != RobotsModeHeuristic && c.RobotsMode != RobotsModeStrict {
		return ErrInvalidRobotsMode
	}

	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}

	if c.OutputPath == "" {
		return ErrEmptyOutputPath
	}

	if c.CacheTTL < 0 {
		return ErrInvalidCacheTTL
	}

	switch c.SummaryFormat {
	case SummaryFormatText, SummaryFormatJSON, SummaryFormatMarkdown:
	default:
		return ErrInvalidSummaryFormat
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON, LogFormatPretty:
	default:
		return ErrInvalidLogFormat
	}

	for _, b := range c.Buckets {
		if !b.Valid() {
			return model.ErrInvalidBucket
		}
	}

	return nil
}
