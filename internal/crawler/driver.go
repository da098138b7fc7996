package crawler

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/drugindex/internal/model"
	"github.com/nao1215/drugindex/internal/robots"
	"golang.org/x/crypto/sha3"
)

// PermissionChecker decides whether the crawl may start. *robots.Gate satisfies it.
type PermissionChecker interface {
	Check(ctx context.Context) robots.Decision
}

// IndexFetcher retrieves index pages. *Fetcher satisfies it.
type IndexFetcher interface {
	IndexURL(b model.Bucket) string
	CachedPage(b model.Bucket) (*Page, bool)
	DownloadIndexPage(ctx context.Context, b model.Bucket) (*Page, error)
}

// LinkExtractor turns an index page into entries. *Extractor satisfies it.
type LinkExtractor interface {
	Extract(r io.Reader) (*model.CrawlResult, error)
}

// Sink receives extracted entries.
// Begin is called once, after permission is granted and before any entry.
type Sink interface {
	Begin() error
	WriteEntries(entries []model.LinkEntry) error
}

// Recorder observes each bucket outcome, e.g. to persist run history.
type Recorder interface {
	RecordOutcome(ctx context.Context, o model.BucketOutcome) error
}

// Driver runs one crawl over the configured buckets.
type Driver struct {
	gate       PermissionChecker
	fetcher    IndexFetcher
	extractor  LinkExtractor
	sink       Sink
	buckets    []model.Bucket
	pacer      Pacer
	recorder   Recorder
	progress   io.Writer
	logger     *slog.Logger
	baseURL    string
	outputPath string
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithBuckets restricts the crawl to a subset of buckets, in the given order.
func WithBuckets(buckets []model.Bucket) DriverOption {
	return func(d *Driver) {
		if len(buckets) > 0 {
			d.buckets = buckets
		}
	}
}

// WithPacer sets the request pacer.
func WithPacer(p Pacer) DriverOption {
	return func(d *Driver) {
		if p != nil {
			d.pacer = p
		}
	}
}

// WithRecorder attaches an outcome recorder.
func WithRecorder(r Recorder) DriverOption {
	return func(d *Driver) {
		d.recorder = r
	}
}

// WithProgress sets where human-readable progress lines are printed.
func WithProgress(w io.Writer) DriverOption {
	return func(d *Driver) {
		if w != nil {
			d.progress = w
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) DriverOption {
	return func(d *Driver) {
		d.logger = logger
	}
}

// WithRunInfo sets the base URL and output path copied into the run summary.
func WithRunInfo(baseURL, outputPath string) DriverOption {
	return func(d *Driver) {
		d.baseURL = baseURL
		d.outputPath = outputPath
	}
}

// NewDriver creates a Driver. By default it crawls all 27 buckets, paced at
// DefaultRequestsPerMinute, and discards progress output.
func NewDriver(gate PermissionChecker, fetcher IndexFetcher, extractor LinkExtractor, sink Sink, opts ...DriverOption) *Driver {
	d := &Driver{
		gate:      gate,
		fetcher:   fetcher,
		extractor: extractor,
		sink:      sink,
		buckets:   model.Buckets(),
		pacer:     NewPacer(DefaultRequestsPerMinute),
		progress:  io.Discard,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Run checks permission once and then crawls every bucket in order.
//
// A denial returns ErrPermissionDenied before the sink is opened. A failed
// bucket is recorded in the summary and the loop moves on. Cancellation stops
// the loop between buckets and returns the context error along with the
// partial summary.
func (d *Driver) Run(ctx context.Context) (*model.RunSummary, error) {
	summary := model.NewRunSummary(d.baseURL, d.outputPath)

	decision := d.gate.Check(ctx)
	if !decision.Allowed {
		summary.Denied = true
		summary.DenyReason = decision.Reason.String()
		if decision.Err != nil {
			summary.DenyReason += ": " + decision.Err.Error()
		}
		summary.Finish()
		return summary, fmt.Errorf("%w (%s)", ErrPermissionDenied, summary.DenyReason)
	}
	d.logger.Debug("crawl permitted",
		"robots", decision.RobotsURL,
		"reason", decision.Reason.String(),
	)

	if err := d.sink.Begin(); err != nil {
		summary.Finish()
		return summary, fmt.Errorf("failed to open output: %w", err)
	}

	for _, b := range d.buckets {
		if err := ctx.Err(); err != nil {
			summary.Finish()
			return summary, err
		}

		outcome := d.crawlBucket(ctx, b)
		summary.Add(outcome)

		if d.recorder != nil {
			if err := d.recorder.RecordOutcome(context.WithoutCancel(ctx), outcome); err != nil {
				d.logger.Warn("failed to record bucket outcome", "bucket", b.String(), "error", err)
			}
		}
	}

	summary.Finish()
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// crawlBucket paces, fetches, extracts and emits one bucket. It never
// returns an error; failures are carried in the outcome.
func (d *Driver) crawlBucket(ctx context.Context, b model.Bucket) model.BucketOutcome {
	o := model.BucketOutcome{
		Bucket:    b,
		URL:       d.fetcher.IndexURL(b),
		StartedAt: time.Now(),
	}

	fail := func(err error) model.BucketOutcome {
		o.Err = err
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			o.StatusCode = httpErr.StatusCode
			d.printf("HTTP error for bucket %s: %v\n", b, err)
		} else {
			d.printf("Error for bucket %s: %v\n", b, err)
		}
		d.logger.Warn("bucket failed", "bucket", b.String(), "url", o.URL, "error", err)
		o.Duration = time.Since(o.StartedAt)
		return o
	}

	// One cache lookup per bucket: only a real download is paced.
	page, cached := d.fetcher.CachedPage(b)
	if !cached {
		if err := d.pacer.Wait(ctx); err != nil {
			return fail(fmt.Errorf("pacing interrupted: %w", err))
		}
	}

	d.printf("Fetching index: %s\n", o.URL)
	if !cached {
		var err error
		if page, err = d.fetcher.DownloadIndexPage(ctx, b); err != nil {
			return fail(err)
		}
	}
	o.StatusCode = page.StatusCode
	o.FromCache = page.FromCache
	o.PageHash = PageHash(page.Body)

	result, err := d.extractor.Extract(bytes.NewReader(page.Body))
	if err != nil {
		return fail(err)
	}
	d.printf("Found %d entries for %s\n", result.Len(), b)
	d.logger.Debug("bucket extracted",
		"bucket", b.String(),
		"tier", result.Tier.String(),
		"entries", result.Len(),
		"cached", page.FromCache,
	)

	if err := d.sink.WriteEntries(result.Entries); err != nil {
		return fail(fmt.Errorf("failed to write entries: %w", err))
	}

	o.Result = result
	o.Duration = time.Since(o.StartedAt)
	return o
}

func (d *Driver) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(d.progress, format, args...)
}

// PageHash returns the hex SHA3-256 digest of a page body.
func PageHash(body []byte) string {
	sum := sha3.Sum256(body)
	return hex.EncodeToString(sum[:])
}
