package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/drugindex/internal/model"
)

func createTestSummary() *model.RunSummary {
	s := model.NewRunSummary("https://www.drugs.com", "drugs_index.csv")
	s.StartedAt = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	s.Add(model.BucketOutcome{
		Bucket: "a",
		URL:    "https://www.drugs.com/alpha/a.html",
		Result: &model.CrawlResult{Tier: model.TierStructural, Entries: []model.LinkEntry{
			{Name: "Abacavir", URL: "https://www.drugs.com/abacavir.html"},
			{Name: "Acarbose", URL: "https://www.drugs.com/acarbose.html"},
		}},
		StatusCode: 200,
		PageHash:   "abc123",
		Duration:   250 * time.Millisecond,
	})
	s.Add(model.BucketOutcome{
		Bucket: "b",
		URL:    "https://www.drugs.com/alpha/b.html",
		Result: &model.CrawlResult{Tier: model.TierFallback, Entries: []model.LinkEntry{
			{Name: "Baclofen", URL: "https://www.drugs.com/baclofen.html"},
		}},
		FromCache: true,
	})
	s.Add(model.BucketOutcome{
		Bucket:     "q",
		URL:        "https://www.drugs.com/alpha/q.html",
		Err:        errors.New("404 Client Error: Not Found for url: https://www.drugs.com/alpha/q.html"),
		StatusCode: 404,
	})
	s.FinishedAt = s.StartedAt.Add(6 * time.Second)
	return s
}

func TestNewWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		want   string
	}{
		{"", "*report.SimpleWriter"},
		{"text", "*report.SimpleWriter"},
		{"JSON", "*report.JSONWriter"},
		{"markdown", "*report.MarkdownWriter"},
		{"md", "*report.MarkdownWriter"},
	}
	for _, tt := range tests {
		w, err := NewWriter(tt.format, &bytes.Buffer{})
		if err != nil {
			t.Errorf("NewWriter(%q) error = %v", tt.format, err)
			continue
		}
		if got := typeName(w); got != tt.want {
			t.Errorf("NewWriter(%q) = %s, want %s", tt.format, got, tt.want)
		}
	}

	if _, err := NewWriter("xml", &bytes.Buffer{}); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("NewWriter(xml) error = %v, want ErrUnknownFormat", err)
	}
}

func typeName(w Writer) string {
	switch w.(type) {
	case *SimpleWriter:
		return "*report.SimpleWriter"
	case *JSONWriter:
		return "*report.JSONWriter"
	case *MarkdownWriter:
		return "*report.MarkdownWriter"
	default:
		return "unknown"
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes totals and failures", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).Write(createTestSummary())
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if n != buf.Len() {
			t.Errorf("Write() returned %d, buffer has %d bytes", n, buf.Len())
		}

		out := buf.String()
		for _, want := range []string{
			"DRUG INDEX CRAWL SUMMARY",
			"Site:      https://www.drugs.com",
			"Status:    Completed with 1 failed bucket(s)",
			"Buckets attempted:  3",
			"Buckets succeeded:  2",
			"Rows written:       3",
			"Structural / fallback / empty:  1 / 1 / 0",
			"FAILED BUCKETS",
			"[!] q",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q\n%s", want, out)
			}
		}
		if strings.Contains(out, "BUCKETS\n---") && !strings.Contains(out, "FAILED BUCKETS") {
			t.Error("bucket table should only appear in verbose mode")
		}
	})

	t.Run("verbose lists every bucket", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestSummary()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		out := buf.String()
		for _, want := range []string{"\nBUCKETS\n", "structural", "fallback", "yes"} {
			if !strings.Contains(out, want) {
				t.Errorf("verbose output missing %q\n%s", want, out)
			}
		}
	})

	t.Run("denied run shows reason only", func(t *testing.T) {
		t.Parallel()

		s := model.NewRunSummary("https://www.drugs.com", "drugs_index.csv")
		s.Denied = true
		s.DenyReason = "robots.txt disallows the index path"
		s.Finish()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(s); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "Denied - robots.txt disallows the index path") {
			t.Errorf("output missing denial:\n%s", out)
		}
		if strings.Contains(out, "TOTALS") {
			t.Error("denied run should not print totals")
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Errorf("compact JSON should be a single line, got:\n%s", buf.String())
		}

		var doc RunJSON
		if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if doc.Rows != 3 || doc.Succeeded != 2 || doc.DurationMS != 6000 {
			t.Errorf("doc totals = rows %d, succeeded %d, duration %d", doc.Rows, doc.Succeeded, doc.DurationMS)
		}
		if len(doc.FailedBuckets) != 1 || doc.FailedBuckets[0] != "q" {
			t.Errorf("FailedBuckets = %v", doc.FailedBuckets)
		}
		if len(doc.Buckets) != 3 {
			t.Fatalf("got %d buckets, want 3", len(doc.Buckets))
		}
		if b := doc.Buckets[2]; b.Status != model.StatusFailed || b.StatusCode != 404 || b.Error == "" || b.Tier != "empty" {
			t.Errorf("bucket q = %+v", b)
		}
		if b := doc.Buckets[1]; !b.FromCache || b.Tier != "fallback" {
			t.Errorf("bucket b = %+v", b)
		}
	})

	t.Run("pretty output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestSummary()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"base_url\": \"https://www.drugs.com\"") {
			t.Errorf("pretty JSON not indented:\n%s", buf.String())
		}
	})

	t.Run("empty run has empty arrays", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(model.NewRunSummary("https://www.drugs.com", "-")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), `"failed_buckets":[]`) || !strings.Contains(buf.String(), `"buckets":[]`) {
			t.Errorf("expected empty arrays, got %s", buf.String())
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("completed run with failures", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		out := buf.String()
		for _, want := range []string{
			"# Drug Index Crawl Summary",
			"`https://www.drugs.com`",
			"[!WARNING]",
			"1 bucket(s) failed: q",
			"## Extraction Tiers",
			"pie",
			"## Buckets",
			"❌ failed",
			"cached",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("markdown missing %q\n%s", want, out)
			}
		}
	})

	t.Run("clean run gets a tip", func(t *testing.T) {
		t.Parallel()

		s := model.NewRunSummary("https://www.drugs.com", "drugs_index.csv")
		s.Add(model.BucketOutcome{Bucket: "a", Result: &model.CrawlResult{Tier: model.TierStructural}})
		s.Finish()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(s); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "[!TIP]") {
			t.Errorf("expected tip alert:\n%s", buf.String())
		}
	})

	t.Run("denied run gets a caution", func(t *testing.T) {
		t.Parallel()

		s := model.NewRunSummary("https://www.drugs.com", "drugs_index.csv")
		s.Denied = true
		s.DenyReason = "robots.txt disallows the index path"
		s.Finish()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(s); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "[!CAUTION]") {
			t.Errorf("expected caution alert:\n%s", out)
		}
		if strings.Contains(out, "## Buckets") {
			t.Error("denied run should not list buckets")
		}
	})
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, js bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))
	n, err := mw.Write(createTestSummary())
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != text.Len()+js.Len() {
		t.Errorf("Write() = %d, want %d", n, text.Len()+js.Len())
	}
	if text.Len() == 0 || js.Len() == 0 {
		t.Error("every writer should receive the summary")
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"ééééé", 4, "é..."},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
