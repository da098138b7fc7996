package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nao1215/drugindex/internal/cache"
	"github.com/nao1215/drugindex/internal/config"
	"github.com/nao1215/drugindex/internal/crawler"
	"github.com/nao1215/drugindex/internal/database"
	"github.com/nao1215/drugindex/internal/httpclient"
	applog "github.com/nao1215/drugindex/internal/log"
	"github.com/nao1215/drugindex/internal/model"
	"github.com/nao1215/drugindex/internal/output"
	"github.com/nao1215/drugindex/internal/report"
	"github.com/nao1215/drugindex/internal/robots"
	"github.com/spf13/cobra"
)

// deniedAdvice is appended to the permission error shown to the user.
const deniedAdvice = "Abort or request permission."

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the alphabetical index and write drug names to CSV",
		Long: `Crawl checks robots.txt once and then fetches the index page of every
bucket (a..z, then 0-9) in order, writing one "name,url" row per drug.

A bucket that fails (HTTP error, network error) is reported and skipped;
the crawl continues with the next bucket and exits with status 0.
If robots.txt disallows the index path the crawl stops before writing
anything and exits with status 1.

Examples:
  # Crawl everything into drugs_index.csv
  drugindex crawl

  # Crawl three buckets and print the CSV to stdout
  drugindex crawl --buckets a,b,0-9 -o -

  # Reuse pages downloaded within the last day
  drugindex crawl --cache-ttl 24h

  # Evaluate robots.txt rules instead of the substring check
  drugindex crawl --robots-mode strict --fail-closed

  # Write a markdown summary next to the CSV
  drugindex crawl --summary-format markdown --summary-file run.md`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .drugindex in current or home directory)")

	cmd.Flags().String("base-url", config.DefaultBaseURL, "Site to crawl")
	cmd.Flags().String("user-agent", config.DefaultUserAgent, "User-Agent sent with every request")
	cmd.Flags().String("proxy", "", "Proxy URL (http, https, socks5, socks5h)")
	cmd.Flags().StringP("buckets", "b", "", "Comma-separated bucket subset, e.g. a,b,0-9 (default: all)")
	cmd.Flags().IntP("rpm", "r", config.DefaultRequestsPerMinute, "Index page requests per minute (0 disables pacing)")
	cmd.Flags().Duration("timeout", config.DefaultFetchTimeout, "Timeout for each index page request")

	cmd.Flags().String("robots-mode", config.RobotsModeHeuristic, "robots.txt evaluation: heuristic or strict")
	cmd.Flags().Bool("fail-closed", false, "Refuse to crawl when robots.txt cannot be fetched")

	cmd.Flags().StringP("output", "o", config.DefaultOutputPath, "CSV output path (\"-\" for stdout)")
	cmd.Flags().Duration("cache-ttl", 0, "Reuse cached index pages younger than this (0 disables)")
	cmd.Flags().String("cache-dir", "", "Page cache directory (default: XDG cache dir)")
	cmd.Flags().Bool("no-db", false, "Do not record the run in the history database")
	cmd.Flags().String("db-dir", "", "History database directory (default: XDG data dir)")

	cmd.Flags().String("summary-format", config.SummaryFormatText, "Run summary format: text, json or markdown")
	cmd.Flags().String("summary-file", "", "Also write the run summary to a file in --summary-format")
	cmd.Flags().String("log-format", config.LogFormatText, "Log format: text, json or pretty")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := applog.New(cfg.LogFormat, cmd.ErrOrStderr(), cfg.Verbose)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// buildConfig layers defaults, the config file, the environment and flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	stringFlags := map[string]*string{
		"base-url":       &cfg.BaseURL,
		"user-agent":     &cfg.UserAgent,
		"proxy":          &cfg.Proxy,
		"robots-mode":    &cfg.RobotsMode,
		"output":         &cfg.OutputPath,
		"cache-dir":      &cfg.CacheDir,
		"db-dir":         &cfg.DBDir,
		"summary-format": &cfg.SummaryFormat,
		"summary-file":   &cfg.SummaryFile,
		"log-format":     &cfg.LogFormat,
	}
	for name, dst := range stringFlags {
		if !flags.Changed(name) {
			continue
		}
		if *dst, err = flags.GetString(name); err != nil {
			return nil, err
		}
	}

	if flags.Changed("rpm") {
		if cfg.RequestsPerMinute, err = flags.GetInt("rpm"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.FetchTimeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("cache-ttl") {
		if cfg.CacheTTL, err = flags.GetDuration("cache-ttl"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("fail-closed") {
		if cfg.RobotsFailClosed, err = flags.GetBool("fail-closed"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("no-db") {
		noDB, err := flags.GetBool("no-db")
		if err != nil {
			return nil, err
		}
		cfg.SaveToDB = !noDB
	}
	if flags.Changed("buckets") {
		list, err := flags.GetString("buckets")
		if err != nil {
			return nil, err
		}
		if cfg.Buckets, err = model.ParseBuckets(list); err != nil {
			return nil, err
		}
	}

	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}

// loadConfig layers defaults, the config file named by --config (or found
// in the usual places) and the environment. Flags are applied by callers.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user named a config file it must exist; otherwise a missing file is fine.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath == "" && cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := file.Apply(cfg); err != nil {
			return nil, err
		}
	}

	config.ApplyEnv(cfg)
	return cfg, nil
}

// runCrawl wires the components for one run and executes it.
// Progress lines go to stdout unless the CSV itself is written there.
func runCrawl(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	clientOpts := []httpclient.Option{
		httpclient.WithHeaders(cfg.Headers),
		httpclient.WithMaxBodySize(cfg.MaxBodySize),
	}
	if cfg.Proxy != "" {
		clientOpts = append(clientOpts, httpclient.WithProxy(cfg.Proxy))
	}
	client, err := httpclient.New(cfg.UserAgent, clientOpts...)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}
	defer client.CloseIdleConnections()

	fetcherOpts := []crawler.FetcherOption{
		crawler.WithIndexTemplate(cfg.IndexTemplate),
		crawler.WithFetchTimeout(cfg.FetchTimeout),
		crawler.WithFetcherLogger(logger),
	}
	if cfg.CacheTTL > 0 {
		pages, err := openPageCache(cfg, logger)
		if err != nil {
			return err
		}
		fetcherOpts = append(fetcherOpts, crawler.WithPageCache(pages))
	}
	fetcher, err := crawler.NewFetcher(client, cfg.BaseURL, fetcherOpts...)
	if err != nil {
		return err
	}

	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = model.Buckets()
	}

	gate, err := newGate(cfg, client, fetcher, buckets[0], logger)
	if err != nil {
		return err
	}

	var extractorOpts []crawler.ExtractorOption
	if cfg.EntryPattern != "" {
		re, err := regexp.Compile(cfg.EntryPattern)
		if err != nil {
			return fmt.Errorf("%w: %w", config.ErrInvalidEntryPattern, err)
		}
		extractorOpts = append(extractorOpts, crawler.WithEntryPattern(re))
	}
	extractor, err := crawler.NewExtractor(cfg.BaseURL, extractorOpts...)
	if err != nil {
		return err
	}

	progress := stdout
	var sink *output.CSVSink
	if cfg.OutputPath == output.StdoutPath {
		sink = output.NewWriterSink(stdout)
		progress = stderr
	} else {
		sink = output.NewFileSink(cfg.OutputPath)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("failed to close output", "path", cfg.OutputPath, "error", err)
		}
	}()

	driverOpts := []crawler.DriverOption{
		crawler.WithBuckets(buckets),
		crawler.WithPacer(crawler.NewPacer(cfg.RequestsPerMinute)),
		crawler.WithProgress(progress),
		crawler.WithLogger(logger),
		crawler.WithRunInfo(cfg.BaseURL, cfg.OutputPath),
	}

	var (
		db    *database.IndexDB
		runID int64
	)
	if cfg.SaveToDB {
		db, err = database.Open(cfg.EffectiveDBDir(), database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		runID, err = db.BeginRun(ctx, cfg.BaseURL, cfg.OutputPath, time.Now())
		if err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
		driverOpts = append(driverOpts, crawler.WithRecorder(db.Recorder(runID)))
		logger.Debug("recording run", "run_id", runID, "db", db.Path())
	}

	logger.Debug("starting crawl",
		"base_url", cfg.BaseURL,
		"buckets", len(buckets),
		"rpm", cfg.RequestsPerMinute,
		"robots_mode", cfg.RobotsMode,
		"user_agent", client.UserAgent(),
		"proxy", client.ProxyURL(),
	)

	driver := crawler.NewDriver(gate, fetcher, extractor, sink, driverOpts...)
	summary, runErr := driver.Run(ctx)

	if db != nil && summary != nil {
		if err := closeRunRecord(context.WithoutCancel(ctx), db, runID, summary, runErr); err != nil {
			logger.Warn("failed to close run record", "run_id", runID, "error", err)
		}
	}
	if summary != nil {
		if err := writeSummary(cfg, summary, stderr); err != nil {
			logger.Warn("failed to write run summary", "error", err)
		}
	}

	switch {
	case errors.Is(runErr, crawler.ErrPermissionDenied):
		return fmt.Errorf("%w. %s", runErr, deniedAdvice)
	case runErr != nil:
		return fmt.Errorf("crawl interrupted: %w", runErr)
	}

	if err := sink.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	if cfg.OutputPath != output.StdoutPath {
		fmt.Fprintf(progress, "Done. Saved to %s\n", cfg.OutputPath)
	}
	return nil
}

// closeRunRecord marks a completed or denied run finished. Any other
// run error leaves the run unfinished so history reports it interrupted.
func closeRunRecord(ctx context.Context, db *database.IndexDB, runID int64, summary *model.RunSummary, runErr error) error {
	if runErr == nil || errors.Is(runErr, crawler.ErrPermissionDenied) {
		return db.FinishRun(ctx, runID, summary)
	}
	return db.AbortRun(ctx, runID, summary)
}

// newGate builds the robots.txt gate for the index prefix. Strict mode
// evaluates the rules for the first bucket's index page.
func newGate(cfg *config.Config, client *httpclient.Client, fetcher *crawler.Fetcher, first model.Bucket, logger *slog.Logger) (*robots.Gate, error) {
	mode, err := robots.ParseMode(cfg.RobotsMode)
	if err != nil {
		return nil, err
	}

	probe := fetcher.IndexPrefix()
	if u, err := url.Parse(fetcher.IndexURL(first)); err == nil && u.Path != "" {
		probe = u.Path
	}

	return robots.NewGate(client, cfg.BaseURL, fetcher.IndexPrefix(),
		robots.WithMode(mode),
		robots.WithFailClosed(cfg.RobotsFailClosed),
		robots.WithTimeout(cfg.RobotsTimeout),
		robots.WithAgent(cfg.UserAgent),
		robots.WithProbePath(probe),
		robots.WithLogger(logger),
	)
}

// openPageCache opens the page cache and drops expired pages.
func openPageCache(cfg *config.Config, logger *slog.Logger) (*cache.Cache, error) {
	pages, err := cache.New(cfg.EffectiveCacheDir(), cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to open page cache: %w", err)
	}
	removed, err := pages.Prune()
	if err != nil {
		logger.Warn("failed to prune page cache", "dir", pages.Dir(), "error", err)
	} else if removed > 0 {
		logger.Debug("pruned page cache", "dir", pages.Dir(), "removed", removed)
	}
	return pages, nil
}

// writeSummary renders the run summary to stderr. When a summary file is
// set, the file gets the configured format and stderr keeps a short text
// summary.
func writeSummary(cfg *config.Config, summary *model.RunSummary, stderr io.Writer) error {
	if cfg.SummaryFile == "" {
		w, err := newSummaryWriter(cfg.SummaryFormat, stderr, cfg.Verbose)
		if err != nil {
			return err
		}
		_, err = w.Write(summary)
		return err
	}

	if dir := filepath.Dir(cfg.SummaryFile); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create summary directory: %w", err)
		}
	}
	f, err := os.Create(cfg.SummaryFile) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer f.Close()

	fileWriter, err := newSummaryWriter(cfg.SummaryFormat, f, cfg.Verbose)
	if err != nil {
		return err
	}
	w := report.NewMultiWriter(fileWriter, report.NewSimpleWriter(stderr))
	_, err = w.Write(summary)
	return err
}

func newSummaryWriter(format string, dst io.Writer, verbose bool) (report.Writer, error) {
	if format == config.SummaryFormatText {
		return report.NewSimpleWriter(dst, report.WithVerbose(verbose)), nil
	}
	return report.NewWriter(format, dst)
}
