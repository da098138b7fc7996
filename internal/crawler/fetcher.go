package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/drugindex/internal/httpclient"
	"github.com/nao1215/drugindex/internal/model"
)

const (
	// DefaultIndexTemplate is the index page path for a bucket.
	DefaultIndexTemplate = "/alpha/{bucket}.html"

	// DefaultFetchTimeout bounds one index page request.
	DefaultFetchTimeout = 20 * time.Second

	bucketPlaceholder = "{bucket}"
)

// Getter fetches a URL. *httpclient.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, rawURL string, timeout time.Duration) (*httpclient.Response, error)
}

// PageCache stores raw index pages keyed by URL.
type PageCache interface {
	Get(key string) ([]byte, bool)
	Put(key string, body []byte) error
}

// Page is a fetched index page.
type Page struct {
	// URL is the requested address.
	URL string

	// StatusCode is the HTTP status, or 0 when served from the cache.
	StatusCode int

	// Body is the raw HTML.
	Body []byte

	// FromCache is true when Body came from the page cache.
	FromCache bool
}

// Fetcher retrieves index pages.
type Fetcher struct {
	client   Getter
	base     *url.URL
	template string
	timeout  time.Duration
	cache    PageCache
	logger   *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithIndexTemplate sets the index path template. It must contain {bucket}.
func WithIndexTemplate(template string) FetcherOption {
	return func(f *Fetcher) {
		if template != "" {
			f.template = template
		}
	}
}

// WithFetchTimeout sets the per-page request timeout.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithPageCache enables serving index pages from a cache.
func WithPageCache(c PageCache) FetcherOption {
	return func(f *Fetcher) {
		f.cache = c
	}
}

// WithFetcherLogger sets the logger.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a Fetcher for the site at baseURL.
func NewFetcher(client Getter, baseURL string, opts ...FetcherOption) (*Fetcher, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	f := &Fetcher{
		client:   client,
		base:     base,
		template: DefaultIndexTemplate,
		timeout:  DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if !strings.Contains(f.template, bucketPlaceholder) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTemplate, f.template)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f, nil
}

// IndexURL returns the absolute index page URL for a bucket.
func (f *Fetcher) IndexURL(b model.Bucket) string {
	path := strings.ReplaceAll(f.template, bucketPlaceholder, b.String())
	ref, err := url.Parse(path)
	if err != nil {
		return f.base.String() + path
	}
	return f.base.ResolveReference(ref).String()
}

// IndexPrefix returns the directory part of the index template, e.g. "/alpha/".
func (f *Fetcher) IndexPrefix() string {
	return IndexPrefix(f.template)
}

// CachedPage returns the bucket's page from the cache, if present.
func (f *Fetcher) CachedPage(b model.Bucket) (*Page, bool) {
	if f.cache == nil {
		return nil, false
	}
	pageURL := f.IndexURL(b)
	body, ok := f.cache.Get(pageURL)
	if !ok {
		return nil, false
	}
	f.logger.Debug("index page served from cache", "bucket", b.String(), "url", pageURL)
	return &Page{URL: pageURL, Body: body, FromCache: true}, true
}

// FetchIndexPage retrieves the index page for a bucket, from the cache
// when possible.
func (f *Fetcher) FetchIndexPage(ctx context.Context, b model.Bucket) (*Page, error) {
	if page, ok := f.CachedPage(b); ok {
		return page, nil
	}
	return f.DownloadIndexPage(ctx, b)
}

// DownloadIndexPage requests the index page for a bucket and stores it in
// the cache. A non-success status is returned as *HTTPError. No retries
// are attempted.
func (f *Fetcher) DownloadIndexPage(ctx context.Context, b model.Bucket) (*Page, error) {
	pageURL := f.IndexURL(b)

	resp, err := f.client.Get(ctx, pageURL, f.timeout)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: pageURL}
	}

	if f.cache != nil {
		if err := f.cache.Put(pageURL, resp.Body); err != nil {
			f.logger.Warn("failed to cache index page", "url", pageURL, "error", err)
		}
	}

	return &Page{
		URL:        pageURL,
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
	}, nil
}

// IndexPrefix returns the directory portion of an index template up to and
// including the last "/" before the {bucket} placeholder.
func IndexPrefix(template string) string {
	head, _, _ := strings.Cut(template, bucketPlaceholder)
	i := strings.LastIndex(head, "/")
	if i < 0 {
		return "/"
	}
	return head[:i+1]
}

func parseBaseURL(baseURL string) (*url.URL, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	return base, nil
}
