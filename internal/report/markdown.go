package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/drugindex/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs summaries in Markdown format.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(s *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, s)
	w.writeAlert(md, s)
	if !s.Denied {
		w.writeTierChart(md, s)
		w.writeBuckets(md, s)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.RunSummary) {
	md.H1("Drug Index Crawl Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site", "`" + s.BaseURL + "`"},
			{"Output", "`" + s.OutputPath + "`"},
			{"Started", s.StartedAt.Format(timeLayout)},
			{"Duration", s.Duration().Round(time.Millisecond).String()},
			{"Buckets", strconv.Itoa(s.Succeeded()) + " / " + strconv.Itoa(len(s.Outcomes)) + " succeeded"},
			{"Rows", strconv.Itoa(s.Rows())},
			{"Status", statusText(s)},
		},
	})
	md.PlainText("")
}

// writeAlert writes an alert matching how the run ended.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *model.RunSummary) {
	failed := s.FailedBuckets()
	tiers := s.TierCounts()
	switch {
	case s.Denied:
		md.Cautionf("robots.txt restricts crawling of this site: %s", s.DenyReason)
	case len(failed) > 0:
		md.Warningf("%d bucket(s) failed: %s", len(failed), bucketList(failed))
	case tiers[model.TierFallback] > 0 || tiers[model.TierEmpty] > 0:
		md.Importantf(
			"%d bucket(s) needed the fallback pattern and %d were empty; the page layout may have changed.",
			tiers[model.TierFallback], tiers[model.TierEmpty],
		)
	default:
		md.Tip("Every bucket was read from the index lists.")
	}
	md.PlainText("")
}

// writeTierChart writes a mermaid pie chart of extraction tiers.
func (w *MarkdownWriter) writeTierChart(md *markdown.Markdown, s *model.RunSummary) {
	if s.Succeeded() == 0 {
		return
	}
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Extraction Tiers"),
		piechart.WithShowData(true),
	)
	tiers := s.TierCounts()
	for _, t := range []model.Tier{model.TierStructural, model.TierFallback, model.TierEmpty} {
		if n := tiers[t]; n > 0 {
			chart.LabelAndIntValue(t.String(), uint64(n)) //nolint:gosec // counts are non-negative
		}
	}

	md.H2("Extraction Tiers")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeBuckets(md *markdown.Markdown, s *model.RunSummary) {
	md.H2("Buckets")
	md.PlainText("")

	if len(s.Outcomes) == 0 {
		md.PlainText("No buckets were crawled.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.Outcomes))
	for i, o := range s.Outcomes {
		status := "✅ ok"
		detail := "-"
		if !o.OK() {
			status = "❌ failed"
			detail = truncateString(o.ErrorText(), 60)
		} else if o.FromCache {
			detail = "cached"
		}
		rows[i] = []string{
			"`" + o.Bucket.String() + "`",
			status,
			o.Tier().String(),
			strconv.Itoa(o.EntryCount()),
			detail,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Bucket", "Status", "Tier", "Entries", "Detail"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Summary generated by drugindex*")
}
