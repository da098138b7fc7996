package config

import (
	"fmt"
	"time"

	"github.com/nao1215/drugindex/internal/model"
)

// File represents the YAML configuration file structure.
// Every field is optional; unset fields leave the current value alone.
//
// Example:
//
//	baseURL: https://www.drugs.com
//	userAgent: "drugindex/1.0 (ops@example.com)"
//	requestsPerMinute: 30
//	robots:
//	  mode: heuristic
//	  failClosed: false
//	  timeout: 15s
//	fetchTimeout: 20s
//	headers:
//	  From: ops@example.com
//	output: drugs_index.csv
//	buckets: [a, b, c]
//	cache:
//	  ttl: 24h
type File struct {
	BaseURL           string            `yaml:"baseURL,omitempty"`
	IndexTemplate     string            `yaml:"indexTemplate,omitempty"`
	EntryPattern      string            `yaml:"entryPattern,omitempty"`
	UserAgent         string            `yaml:"userAgent,omitempty"`
	Headers           map[string]string `yaml:"headers,omitempty"`
	Proxy             string            `yaml:"proxy,omitempty"`
	RequestsPerMinute *int              `yaml:"requestsPerMinute,omitempty"`
	FetchTimeout      *time.Duration    `yaml:"fetchTimeout,omitempty"`
	MaxBodySize       *int64            `yaml:"maxBodySize,omitempty"`
	Output            string            `yaml:"output,omitempty"`
	Buckets           []string          `yaml:"buckets,omitempty"`
	Robots            RobotsFile        `yaml:"robots,omitempty"`
	Cache             CacheFile         `yaml:"cache,omitempty"`
	History           HistoryFile       `yaml:"history,omitempty"`
	Summary           SummaryFile       `yaml:"summary,omitempty"`
	LogFormat         string            `yaml:"logFormat,omitempty"`
}

// RobotsFile holds the robots.txt settings of the config file.
type RobotsFile struct {
	Mode       string         `yaml:"mode,omitempty"`
	FailClosed *bool          `yaml:"failClosed,omitempty"`
	Timeout    *time.Duration `yaml:"timeout,omitempty"`
}

// CacheFile holds the page cache settings of the config file.
type CacheFile struct {
	TTL *time.Duration `yaml:"ttl,omitempty"`
	Dir string         `yaml:"dir,omitempty"`
}

// HistoryFile holds the run history settings of the config file.
type HistoryFile struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// SummaryFile holds the run summary settings of the config file.
type SummaryFile struct {
	Format string `yaml:"format,omitempty"`
	File   string `yaml:"file,omitempty"`
}

// Apply copies every set field of the file onto cfg.
// Headers are merged; a header in the file overrides one already present.
func (f *File) Apply(cfg *Config) error {
	setString(&cfg.BaseURL, f.BaseURL)
	setString(&cfg.IndexTemplate, f.IndexTemplate)
	setString(&cfg.EntryPattern, f.EntryPattern)
	setString(&cfg.UserAgent, f.UserAgent)
	setString(&cfg.Proxy, f.Proxy)
	setString(&cfg.OutputPath, f.Output)
	setString(&cfg.LogFormat, f.LogFormat)
	setString(&cfg.RobotsMode, f.Robots.Mode)
	setString(&cfg.CacheDir, f.Cache.Dir)
	setString(&cfg.DBDir, f.History.Dir)
	setString(&cfg.SummaryFormat, f.Summary.Format)
	setString(&cfg.SummaryFile, f.Summary.File)

	if f.RequestsPerMinute != nil {
		cfg.RequestsPerMinute = *f.RequestsPerMinute
	}
	if f.FetchTimeout != nil {
		cfg.FetchTimeout = *f.FetchTimeout
	}
	if f.MaxBodySize != nil {
		cfg.MaxBodySize = *f.MaxBodySize
	}
	if f.Robots.FailClosed != nil {
		cfg.RobotsFailClosed = *f.Robots.FailClosed
	}
	if f.Robots.Timeout != nil {
		cfg.RobotsTimeout = *f.Robots.Timeout
	}
	if f.Cache.TTL != nil {
		cfg.CacheTTL = *f.Cache.TTL
	}
	if f.History.Enabled != nil {
		cfg.SaveToDB = *f.History.Enabled
	}

	if len(f.Headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(f.Headers))
		}
		for k, v := range f.Headers {
			cfg.Headers[k] = v
		}
	}

	if len(f.Buckets) > 0 {
		buckets := make([]model.Bucket, 0, len(f.Buckets))
		for _, s := range f.Buckets {
			b, err := model.ParseBucket(s)
			if err != nil {
				return fmt.Errorf("config file buckets: %w", err)
			}
			buckets = append(buckets, b)
		}
		cfg.Buckets = buckets
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
