package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/joho/godotenv"
	"github.com/nao1215/drugindex/internal/database"
	"github.com/nao1215/drugindex/internal/model"
	"github.com/nao1215/drugindex/internal/output"
	"github.com/spf13/cobra"
)

// Run states shown by the history command.
const (
	runStateComplete    = "complete"
	runStatePartial     = "partial"
	runStateDenied      = "denied"
	runStateInterrupted = "interrupted"
)

// hashPrefixLen is how much of a page hash is shown in tables.
const hashPrefixLen = 12

// NewHistoryCmd creates the history command.
// It reads the run history recorded by previous crawls.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show previous crawl runs and what changed between them",
		Long: `History lists the crawl runs recorded in the local database.

Every crawl stores, per bucket, its status, extraction tier, entry count and
a SHA3-256 hash of the index page. Comparing hashes shows which letters of
the index changed since the previous run without keeping the pages.

Examples:
  # List the 20 most recent runs
  drugindex history

  # Show the buckets of run 7
  drugindex history --run-id 7

  # Export the rows recorded by run 7 as CSV
  drugindex history --run-id 7 --entries > run7.csv

  # Show buckets whose index page changed between the last two runs
  drugindex history --changed

  # Same, as JSON
  drugindex history --changed --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20, "Number of runs to list")
	cmd.Flags().Int64P("run-id", "i", 0, "Show bucket detail for a run")
	cmd.Flags().BoolP("entries", "e", false, "With --run-id, print the recorded rows as CSV")
	cmd.Flags().Bool("changed", false, "Compare the two latest completed runs")
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .drugindex in current or home directory)")
	cmd.Flags().String("db-dir", "", "History database directory (default: XDG data dir)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	runID, err := flags.GetInt64("run-id")
	if err != nil {
		return err
	}
	changed, err := flags.GetBool("changed")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	entries, err := flags.GetBool("entries")
	if err != nil {
		return err
	}

	if runID != 0 && changed {
		return errors.New("--run-id and --changed cannot be used together")
	}
	if entries && runID == 0 {
		return errors.New("--entries requires --run-id")
	}
	if limit <= 0 {
		return errors.New("--limit must be positive")
	}

	// The database location follows the same layering as crawl.
	_ = godotenv.Load()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return err
		}
	}

	db, err := database.Open(cfg.EffectiveDBDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case changed:
		return showChanges(ctx, db, out, jsonOutput)
	case entries:
		return showEntries(ctx, db, out, runID, jsonOutput)
	case runID != 0:
		return showRun(ctx, db, out, runID, jsonOutput)
	default:
		return listRuns(ctx, db, out, limit, jsonOutput)
	}
}

// runJSON is the JSON view of a stored run.
type runJSON struct {
	ID            int64      `json:"id"`
	BaseURL       string     `json:"base_url"`
	OutputPath    string     `json:"output_path"`
	State         string     `json:"state"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	DenyReason    string     `json:"deny_reason,omitempty"`
	Buckets       int        `json:"buckets"`
	Rows          int        `json:"rows"`
	FailedBuckets int        `json:"failed_buckets"`
}

// bucketJSON is the JSON view of a stored bucket result.
type bucketJSON struct {
	Bucket     string `json:"bucket"`
	URL        string `json:"url"`
	Status     string `json:"status"`
	StatusCode int    `json:"status_code,omitempty"`
	Tier       string `json:"tier"`
	Entries    int    `json:"entries"`
	PageHash   string `json:"page_hash,omitempty"`
	FromCache  bool   `json:"from_cache"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// changeJSON is the JSON view of a bucket change.
type changeJSON struct {
	Bucket        string `json:"bucket"`
	Kind          string `json:"kind"`
	PreviousHash  string `json:"previous_hash,omitempty"`
	CurrentHash   string `json:"current_hash,omitempty"`
	PreviousCount int    `json:"previous_count"`
	CurrentCount  int    `json:"current_count"`
}

// comparisonJSON is the JSON view of a run comparison.
type comparisonJSON struct {
	PreviousRunID int64        `json:"previous_run_id"`
	CurrentRunID  int64        `json:"current_run_id"`
	Changes       []changeJSON `json:"changes"`
}

func newRunJSON(r database.Run) runJSON {
	v := runJSON{
		ID:            r.ID,
		BaseURL:       r.BaseURL,
		OutputPath:    r.OutputPath,
		State:         runState(r),
		StartedAt:     r.StartedAt,
		DenyReason:    r.DenyReason,
		Buckets:       r.BucketCount,
		Rows:          r.TotalRows,
		FailedBuckets: r.FailedBuckets,
	}
	if r.Finished() {
		finished := r.FinishedAt
		v.FinishedAt = &finished
	}
	return v
}

// runState classifies a stored run for display.
func runState(r database.Run) string {
	switch {
	case r.Denied:
		return runStateDenied
	case !r.Finished():
		return runStateInterrupted
	case r.FailedBuckets > 0:
		return runStatePartial
	default:
		return runStateComplete
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// listRuns prints the most recent runs, newest first.
func listRuns(ctx context.Context, db *database.IndexDB, out io.Writer, limit int, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if jsonOutput {
		views := make([]runJSON, 0, len(runs))
		for _, r := range runs {
			views = append(views, newRunJSON(r))
		}
		return writeJSON(out, views)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet. Run 'drugindex crawl' first.")
		return nil
	}

	fmt.Fprintf(out, "%-6s %-20s %-12s %8s %8s %7s  %s\n",
		"ID", "STARTED", "STATE", "BUCKETS", "ROWS", "FAILED", "SITE")
	for _, r := range runs {
		fmt.Fprintf(out, "%-6d %-20s %-12s %8d %8d %7d  %s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			runState(r),
			r.BucketCount,
			r.TotalRows,
			r.FailedBuckets,
			r.BaseURL,
		)
	}
	return nil
}

// showRun prints one run and its bucket results.
func showRun(ctx context.Context, db *database.IndexDB, out io.Writer, runID int64, jsonOutput bool) error {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get run %d: %w", runID, err)
	}
	results, err := db.GetBucketResults(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get bucket results: %w", err)
	}

	if jsonOutput {
		buckets := make([]bucketJSON, 0, len(results))
		for _, br := range results {
			buckets = append(buckets, bucketJSON{
				Bucket:     br.Bucket.String(),
				URL:        br.URL,
				Status:     br.Status,
				StatusCode: br.StatusCode,
				Tier:       br.Tier.String(),
				Entries:    br.EntryCount,
				PageHash:   br.PageHash,
				FromCache:  br.FromCache,
				Error:      br.Error,
				DurationMS: br.Duration.Milliseconds(),
			})
		}
		return writeJSON(out, struct {
			Run     runJSON      `json:"run"`
			Buckets []bucketJSON `json:"buckets"`
		}{Run: newRunJSON(*run), Buckets: buckets})
	}

	fmt.Fprintf(out, "Run %d: %s\n", run.ID, run.BaseURL)
	fmt.Fprintf(out, "  Started: %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "  State:   %s\n", runState(*run))
	fmt.Fprintf(out, "  Output:  %s\n", run.OutputPath)
	if run.Denied {
		fmt.Fprintf(out, "  Reason:  %s\n", run.DenyReason)
	}
	if len(results) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%-6s %-7s %5s %-11s %7s %-5s %-12s  %s\n",
		"BUCKET", "STATUS", "CODE", "TIER", "ENTRIES", "CACHE", "HASH", "ERROR")
	for _, br := range results {
		cached := "-"
		if br.FromCache {
			cached = "yes"
		}
		fmt.Fprintf(out, "%-6s %-7s %5d %-11s %7d %-5s %-12s  %s\n",
			br.Bucket,
			br.Status,
			br.StatusCode,
			br.Tier,
			br.EntryCount,
			cached,
			shortHash(br.PageHash),
			br.Error,
		)
	}
	return nil
}

// showEntries prints the rows recorded for a run, as CSV or JSON.
func showEntries(ctx context.Context, db *database.IndexDB, out io.Writer, runID int64, jsonOutput bool) error {
	if _, err := db.GetRun(ctx, runID); err != nil {
		return fmt.Errorf("failed to get run %d: %w", runID, err)
	}
	entries, err := db.GetRunEntries(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get entries: %w", err)
	}

	if jsonOutput {
		return writeJSON(out, entries)
	}
	return writeEntriesCSV(out, entries)
}

func writeEntriesCSV(out io.Writer, entries []model.LinkEntry) error {
	sink := output.NewWriterSink(out)
	if err := sink.Begin(); err != nil {
		return err
	}
	if err := sink.WriteEntries(entries); err != nil {
		return err
	}
	return sink.Close()
}

// showChanges prints the buckets that changed between the two latest runs.
func showChanges(ctx context.Context, db *database.IndexDB, out io.Writer, jsonOutput bool) error {
	cmp, err := db.ChangedBuckets(ctx)
	if err != nil {
		if errors.Is(err, database.ErrNotEnoughRuns) {
			return fmt.Errorf("%w: at least 2 completed runs are required for comparison", err)
		}
		return fmt.Errorf("failed to compare runs: %w", err)
	}

	if jsonOutput {
		v := comparisonJSON{
			PreviousRunID: cmp.PreviousRunID,
			CurrentRunID:  cmp.CurrentRunID,
			Changes:       make([]changeJSON, 0, len(cmp.Changes)),
		}
		for _, c := range cmp.Changes {
			v.Changes = append(v.Changes, changeJSON{
				Bucket:        c.Bucket.String(),
				Kind:          string(c.Kind),
				PreviousHash:  c.PreviousHash,
				CurrentHash:   c.CurrentHash,
				PreviousCount: c.PreviousCount,
				CurrentCount:  c.CurrentCount,
			})
		}
		return writeJSON(out, v)
	}

	fmt.Fprintf(out, "Comparing run %d -> run %d\n", cmp.PreviousRunID, cmp.CurrentRunID)
	if len(cmp.Changes) == 0 {
		fmt.Fprintln(out, "No index page changed.")
		return nil
	}
	for _, c := range cmp.Changes {
		fmt.Fprintf(out, "  %-4s %-9s %5d -> %-5d entries  %s -> %s\n",
			c.Bucket,
			c.Kind,
			c.PreviousCount,
			c.CurrentCount,
			shortHash(c.PreviousHash),
			shortHash(c.CurrentHash),
		)
	}
	fmt.Fprintf(out, "%d bucket(s) changed\n", len(cmp.Changes))
	return nil
}

func shortHash(h string) string {
	if h == "" {
		return "-"
	}
	if len(h) > hashPrefixLen {
		return h[:hashPrefixLen]
	}
	return h
}
