package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/drugindex/internal/model"
)

const (
	timeLayout = "2006-01-02 15:04:05 MST"
	ruleWidth  = 70
)

// SimpleWriter outputs human-readable text summaries.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
type SimpleWriter struct {
	baseWriter

	// verbose adds one line per bucket.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists every bucket, not just the failed ones.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(s *model.RunSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, s)
	if !s.Denied {
		w.writeTotals(&sb, s)
		w.writeFailures(&sb, s)
		if w.verbose {
			w.writeBuckets(&sb, s)
		}
	}
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *model.RunSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                       DRUG INDEX CRAWL SUMMARY\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Site:      %s\n", s.BaseURL)
	fmt.Fprintf(sb, "Output:    %s\n", s.OutputPath)
	fmt.Fprintf(sb, "Started:   %s\n", s.StartedAt.Format(timeLayout))
	fmt.Fprintf(sb, "Duration:  %s\n", s.Duration().Round(time.Millisecond))
	fmt.Fprintf(sb, "Status:    %s\n", statusText(s))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeTotals(sb *strings.Builder, s *model.RunSummary) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\nTOTALS\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")

	tiers := s.TierCounts()
	fmt.Fprintf(sb, "  Buckets attempted:  %d\n", len(s.Outcomes))
	fmt.Fprintf(sb, "  Buckets succeeded:  %d\n", s.Succeeded())
	fmt.Fprintf(sb, "  Rows written:       %d\n", s.Rows())
	fmt.Fprintf(sb, "  Structural / fallback / empty:  %d / %d / %d\n",
		tiers[model.TierStructural], tiers[model.TierFallback], tiers[model.TierEmpty])
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, s *model.RunSummary) {
	failed := s.FailedBuckets()
	if len(failed) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\nFAILED BUCKETS\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")

	for _, o := range s.Outcomes {
		if o.OK() {
			continue
		}
		fmt.Fprintf(sb, "  [!] %-4s %s\n", o.Bucket, truncateString(o.ErrorText(), 60))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeBuckets(sb *strings.Builder, s *model.RunSummary) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\nBUCKETS\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "  %-4s  %-6s  %-10s  %7s  %s\n", "", "Status", "Tier", "Entries", "Cached")
	for _, o := range s.Outcomes {
		cached := ""
		if o.FromCache {
			cached = "yes"
		}
		fmt.Fprintf(sb, "  %-4s  %-6s  %-10s  %7d  %s\n",
			o.Bucket, o.Status(), o.Tier(), o.EntryCount(), cached)
	}
	sb.WriteString("\n")
}
