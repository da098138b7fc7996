package model

import "time"

// Bucket outcome status values, as stored in the database and shown in reports.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// BucketOutcome is the result of crawling one bucket. Exactly one of Result
// and Err is meaningful: a failed bucket carries Err, a successful one
// carries Result (possibly with zero entries).
//
// Design decision: We record failures as values instead of returning them
// from the crawl loop because:
//  1. One bucket's failure must never abort the run
//  2. Reports and history need the failures as much as the successes
type BucketOutcome struct {
	// Bucket is the index partition that was crawled.
	Bucket Bucket

	// URL is the index page address that was requested.
	URL string

	// Result holds the extracted entries when the bucket succeeded.
	Result *CrawlResult

	// Err holds the failure when the bucket failed.
	Err error

	// StatusCode is the HTTP status of the index page response, if one was received.
	StatusCode int

	// PageHash is the hex SHA3-256 of the raw index page body.
	PageHash string

	// FromCache is true when the page body came from the local page cache.
	FromCache bool

	// StartedAt is when processing of the bucket began.
	StartedAt time.Time

	// Duration is how long the bucket took, including pacing.
	Duration time.Duration
}

// OK reports whether the bucket was fetched and parsed successfully.
func (o BucketOutcome) OK() bool {
	return o.Err == nil
}

// Status returns StatusOK or StatusFailed.
func (o BucketOutcome) Status() string {
	if o.OK() {
		return StatusOK
	}
	return StatusFailed
}

// EntryCount returns the number of entries written for this bucket.
func (o BucketOutcome) EntryCount() int {
	if !o.OK() {
		return 0
	}
	return o.Result.Len()
}

// Tier returns the extraction tier, or TierEmpty for failed buckets.
func (o BucketOutcome) Tier() Tier {
	if !o.OK() || o.Result == nil {
		return TierEmpty
	}
	return o.Result.Tier
}

// ErrorText returns the failure message, or "" for successful buckets.
func (o BucketOutcome) ErrorText() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// RunSummary aggregates the outcomes of one crawl run.
type RunSummary struct {
	// BaseURL is the site that was crawled.
	BaseURL string

	// OutputPath is where the CSV was written ("-" for stdout).
	OutputPath string

	// StartedAt and FinishedAt bound the run. FinishedAt is zero while running.
	StartedAt  time.Time
	FinishedAt time.Time

	// Denied is true when the permission gate refused the crawl.
	Denied bool

	// DenyReason explains a denial.
	DenyReason string

	// Outcomes holds one entry per attempted bucket, in crawl order.
	Outcomes []BucketOutcome
}

// NewRunSummary creates a summary for a run starting now.
func NewRunSummary(baseURL, outputPath string) *RunSummary {
	return &RunSummary{
		BaseURL:    baseURL,
		OutputPath: outputPath,
		StartedAt:  time.Now(),
		Outcomes:   make([]BucketOutcome, 0, 27),
	}
}

// Add appends a bucket outcome.
func (s *RunSummary) Add(o BucketOutcome) {
	s.Outcomes = append(s.Outcomes, o)
}

// Finish stamps the end time.
func (s *RunSummary) Finish() {
	s.FinishedAt = time.Now()
}

// Duration returns the elapsed time of the run.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Rows returns the total number of CSV data rows written.
func (s *RunSummary) Rows() int {
	total := 0
	for _, o := range s.Outcomes {
		total += o.EntryCount()
	}
	return total
}

// Succeeded returns the number of buckets crawled without error.
func (s *RunSummary) Succeeded() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// FailedBuckets returns the buckets that failed, in crawl order.
func (s *RunSummary) FailedBuckets() []Bucket {
	failed := make([]Bucket, 0)
	for _, o := range s.Outcomes {
		if !o.OK() {
			failed = append(failed, o.Bucket)
		}
	}
	return failed
}

// TierCounts returns how many successful buckets each extraction tier served.
func (s *RunSummary) TierCounts() map[Tier]int {
	counts := make(map[Tier]int, 3)
	for _, o := range s.Outcomes {
		if o.OK() {
			counts[o.Tier()]++
		}
	}
	return counts
}
