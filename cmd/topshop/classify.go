package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/out-of-energy/topshop/internal/classifier"
	"github.com/out-of-energy/topshop/internal/config"
	"github.com/out-of-energy/topshop/internal/database"
	"github.com/out-of-energy/topshop/internal/fetcher"
	tslog "github.com/out-of-energy/topshop/internal/log"
	"github.com/out-of-energy/topshop/internal/model"
	"github.com/out-of-energy/topshop/internal/pipeline"
	"github.com/out-of-energy/topshop/internal/report"
	"github.com/spf13/cobra"
)

// NewClassifyCmd creates the classify command.
func NewClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [domain...]",
		Short: "Classify storefront domains by platform and category",
		Long: `Classify fetches each domain's home page and scores it twice:

  platform  script origins, meta markers, link patterns, footer text and
            probes of well-known platform endpoints (weighted mean, > 0.5)
  category  fashion keywords, product links and price patterns minus a
            penalty for unrelated keywords (clamped sum, > 0.6)

A domain that cannot be fetched is still reported, with confidence 0 and
the fetch error. Results are saved to the record store unless --no-save
is given.

Examples:
  # Classify one domain
  topshop classify shop.example.com

  # Classify a list of domains for the European ranking
  topshop classify --list domains.txt --region europe

  # Only run platform detection, JSON output
  topshop classify -k platform --json shop.example.com

  # Use a custom rule file
  topshop classify -c rules.yaml shop.example.com`,
		Args: cobra.ArbitraryArgs,
		RunE: runClassifyCmd,
	}

	// Fetch behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page fetch attempt")
	cmd.Flags().Duration("probe-timeout", config.DefaultProbeTimeout,
		"Timeout for each endpoint probe")
	cmd.Flags().Duration("delay", config.DefaultRateLimitDelay,
		"Minimum delay between requests to the same host (0 disables)")
	cmd.Flags().Int("retries", config.DefaultMaxAttempts-1,
		"Retries after a failed page fetch (network errors and timeouts only)")
	cmd.Flags().Duration("backoff", config.DefaultRetryBackoff,
		"Wait before the first retry; doubles after each retry")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")

	// Scope flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of domains classified concurrently")
	cmd.Flags().StringSliceP("kind", "k", nil,
		"Task kinds to run: platform, category (default: both)")
	cmd.Flags().StringP("region", "r", "",
		"Region attached to stored records: north_america, europe, middle_east")
	cmd.Flags().StringP("list", "l", "",
		"File with one domain per line ('#' starts a comment)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Rule file path (default: .topshop in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON")

	// Storage flags
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the record store")
	cmd.Flags().Bool("no-save", false,
		"Do not save results to the record store")

	return cmd
}

func runClassifyCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := tslog.NewLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.JSONLog)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runClassify(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the rule file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()
	var err error

	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.ProbeTimeout, err = flags.GetDuration("probe-timeout"); err != nil {
		return nil, err
	}
	if cfg.RateLimitDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	retries, err := flags.GetInt("retries")
	if err != nil {
		return nil, err
	}
	cfg.MaxAttempts = retries + 1
	if cfg.RetryBackoff, err = flags.GetDuration("backoff"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.Kinds, err = flags.GetStringSlice("kind"); err != nil {
		return nil, err
	}
	if cfg.Region, err = flags.GetString("region"); err != nil {
		return nil, err
	}
	if cfg.TargetListFile, err = flags.GetString("list"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.JSONLog, err = flags.GetBool("log-json"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.Verbose = getVerboseFlag(cmd)

	// An explicitly named rule file must exist; otherwise the built-in
	// rules apply when none is found.
	if path := config.FindConfigFile(cfg.ConfigFilePath); path != "" {
		if cfg.Rules, err = config.LoadConfigFile(path); err != nil {
			return nil, fmt.Errorf("failed to load rule file %s: %w", path, err)
		}
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.Targets = args
	return cfg, nil
}

// collectTargets merges argument and list-file targets and drops
// duplicates by bare host. Invalid entries are reported and skipped.
func collectTargets(cfg *config.Config, logger *slog.Logger, errOut io.Writer) ([]model.Target, error) {
	raws := append([]string(nil), cfg.Targets...)
	if cfg.TargetListFile != "" {
		listed, err := config.LoadTargets(cfg.TargetListFile)
		if err != nil {
			return nil, err
		}
		raws = append(raws, listed...)
	}

	targets, invalid := model.UniqueTargets(raws)
	for raw, err := range invalid {
		logger.Warn("skipping invalid target", "target", raw, "error", err)
		fmt.Fprintf(errOut, "Skipping %q: %v\n", raw, err)
	}
	if len(targets) == 0 {
		return nil, config.ErrNoTarget
	}
	return targets, nil
}

// taskKinds returns the configured kinds, or all of them.
func taskKinds(cfg *config.Config) []model.TaskKind {
	if len(cfg.Kinds) == 0 {
		return model.AllTaskKinds()
	}
	kinds := make([]model.TaskKind, 0, len(cfg.Kinds))
	seen := make(map[model.TaskKind]bool, len(cfg.Kinds))
	for _, k := range cfg.Kinds {
		kind := model.ParseTaskKind(k)
		if !seen[kind] {
			seen[kind] = true
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// regionResolver returns the region of a target: the site override from
// the rule file, then the defaults entry, then the --region flag.
func regionResolver(cfg *config.Config) func(model.Target) model.Region {
	fallback := model.ParseRegion(cfg.Region)
	return func(t model.Target) model.Region {
		if cfg.Rules != nil {
			if r := model.ParseRegion(cfg.Rules.GetSiteConfig(t.Key()).Region); r.IsValid() {
				return r
			}
		}
		return fallback
	}
}

// runClassify classifies every target and writes the report.
func runClassify(ctx context.Context, cfg *config.Config, logger *slog.Logger, out, errOut io.Writer) error {
	targets, err := collectTargets(cfg, logger, errOut)
	if err != nil {
		return err
	}

	f := fetcher.FromConfig(cfg, logger)
	c, err := classifier.New(f, cfg.Rules,
		classifier.WithLogger(logger),
		classifier.WithDeadline(cfg.TaskDeadline()),
	)
	if err != nil {
		return fmt.Errorf("failed to build classifier: %w", err)
	}

	var store pipeline.Store
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open record store: %w", err)
		}
		defer db.Close()
		store = db
		logger.Info("record store opened", "path", db.Path())
	}

	kinds := taskKinds(cfg)
	runID := uuid.NewString()
	logger.Info("starting classification",
		"targets", len(targets),
		"kinds", kinds,
		"batch", cfg.BatchSize,
		"run_id", runID,
	)

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline { return newPipeline(c, store, kinds, logger) },
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
		pipeline.WithRunID(runID),
		pipeline.WithRegionFunc(regionResolver(cfg)),
	)

	fmt.Fprintf(errOut, "Classifying %d domain(s) (concurrency: %d)...\n", len(targets), cfg.BatchSize)
	start := time.Now()

	var (
		mu      sync.Mutex
		done    int
		reports = make([]*model.TargetReport, len(targets))
	)
	batchErr := bp.ProcessBatchWithCallback(ctx, targets, func(r *model.TargetReport, index int) {
		mu.Lock()
		defer mu.Unlock()
		reports[index] = r
		done++
		fmt.Fprintf(errOut, "[%d/%d] %s\n", done, len(targets), progressLine(r))
	})

	fmt.Fprintf(errOut, "Completed in %s\n\n", time.Since(start).Round(time.Millisecond))

	finished := make([]*model.TargetReport, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			finished = append(finished, r)
		}
	}
	if err := outputReport(cfg, finished, out); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if batchErr != nil && !errors.Is(batchErr, context.Canceled) {
		return batchErr
	}
	if ctx.Err() != nil {
		return fmt.Errorf("classification interrupted after %d of %d domain(s): %w", len(finished), len(targets), ctx.Err())
	}
	return nil
}

// newPipeline builds the per-target pipeline: one step per task kind,
// then the store step when a store is open.
func newPipeline(c pipeline.Classifier, store pipeline.Store, kinds []model.TaskKind, logger *slog.Logger) *pipeline.Pipeline {
	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)
	for _, kind := range kinds {
		p.AddStep(pipeline.NewClassifyStep(c, kind, pipeline.WithStepLogger(logger)))
	}
	if store != nil {
		p.AddStep(pipeline.NewStoreStep(store, pipeline.WithStepLogger(logger)))
	}
	return p
}

func progressLine(r *model.TargetReport) string {
	line := r.Domain
	for _, res := range []*model.ClassificationResult{r.Platform, r.Category} {
		if res == nil {
			continue
		}
		if res.Failed() {
			line += fmt.Sprintf("  %s=error(%s)", res.Kind, res.ErrorKind)
			continue
		}
		line += fmt.Sprintf("  %s=%t(%.2f)", res.Kind, res.Verdict, res.Confidence)
	}
	return line
}

// outputReport writes the reports in the requested format to the report
// file, or to out.
func outputReport(cfg *config.Config, reports []*model.TargetReport, out io.Writer) error {
	if cfg.ReportFile != "" {
		if dir := filepath.Dir(cfg.ReportFile); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(versionInfo().Version))
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
	_, err := w.Write(reports)
	return err
}
