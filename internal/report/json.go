package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/drugindex/internal/model"
)

// JSONWriter outputs summaries in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RunJSON is the JSON document for one run.
//
// Design decision: We map the summary into a dedicated document rather than
// tagging model.RunSummary because errors and durations need an explicit
// wire representation.
type RunJSON struct {
	BaseURL       string       `json:"base_url"`
	OutputPath    string       `json:"output_path"`
	StartedAt     time.Time    `json:"started_at"`
	FinishedAt    time.Time    `json:"finished_at"`
	DurationMS    int64        `json:"duration_ms"`
	Denied        bool         `json:"denied"`
	DenyReason    string       `json:"deny_reason,omitempty"`
	Rows          int          `json:"rows"`
	Succeeded     int          `json:"succeeded"`
	FailedBuckets []string     `json:"failed_buckets"`
	Buckets       []BucketJSON `json:"buckets"`
}

// BucketJSON is the JSON form of one bucket outcome.
type BucketJSON struct {
	Bucket     string `json:"bucket"`
	URL        string `json:"url"`
	Status     string `json:"status"`
	StatusCode int    `json:"status_code,omitempty"`
	Tier       string `json:"tier"`
	Entries    int    `json:"entries"`
	PageHash   string `json:"page_hash,omitempty"`
	FromCache  bool   `json:"from_cache,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// NewRunJSON converts a summary into its JSON document.
func NewRunJSON(s *model.RunSummary) *RunJSON {
	doc := &RunJSON{
		BaseURL:       s.BaseURL,
		OutputPath:    s.OutputPath,
		StartedAt:     s.StartedAt,
		FinishedAt:    s.FinishedAt,
		DurationMS:    s.Duration().Milliseconds(),
		Denied:        s.Denied,
		DenyReason:    s.DenyReason,
		Rows:          s.Rows(),
		Succeeded:     s.Succeeded(),
		FailedBuckets: make([]string, 0),
		Buckets:       make([]BucketJSON, 0, len(s.Outcomes)),
	}
	for _, b := range s.FailedBuckets() {
		doc.FailedBuckets = append(doc.FailedBuckets, b.String())
	}
	for _, o := range s.Outcomes {
		doc.Buckets = append(doc.Buckets, BucketJSON{
			Bucket:     o.Bucket.String(),
			URL:        o.URL,
			Status:     o.Status(),
			StatusCode: o.StatusCode,
			Tier:       o.Tier().String(),
			Entries:    o.EntryCount(),
			PageHash:   o.PageHash,
			FromCache:  o.FromCache,
			Error:      o.ErrorText(),
			DurationMS: o.Duration.Milliseconds(),
		})
	}
	return doc
}

// Write outputs the summary in JSON format.
func (w *JSONWriter) Write(s *model.RunSummary) (int, error) {
	var (
		data []byte
		err  error
	)
	doc := NewRunJSON(s)
	if w.indent {
		data, err = json.MarshalIndent(doc, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')
	return w.output.Write(data)
}
