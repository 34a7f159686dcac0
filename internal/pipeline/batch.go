package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/out-of-energy/topshop/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of targets classified at once.
const DefaultConcurrency = 10

// BatchProcessor classifies many targets concurrently.
// Each target gets a fresh pipeline from the factory.
type BatchProcessor struct {
	pipelineFactory func() *Pipeline
	concurrency     int
	logger          *slog.Logger
	runID           string
	region          func(model.Target) model.Region

	results []*model.TargetReport
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent targets.
// Default is 10 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithRunID tags every report with the batch run ID.
func WithRunID(id string) BatchOption {
	return func(b *BatchProcessor) {
		b.runID = id
	}
}

// WithRegion attaches the same region to every report.
func WithRegion(r model.Region) BatchOption {
	return func(b *BatchProcessor) {
		b.region = func(model.Target) model.Region { return r }
	}
}

// WithRegionFunc resolves the region per target, for per-site overrides.
func WithRegionFunc(fn func(model.Target) model.Region) BatchOption {
	return func(b *BatchProcessor) {
		b.region = fn
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
		region:          func(model.Target) model.Region { return model.RegionUnknown },
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch classifies targets with bounded parallelism and returns one
// report per distinct target, in input order. Duplicate targets (same
// bare host) are processed once.
//
// A failing target never cancels the others; the returned error is only
// non-nil when ctx was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []model.Target) ([]*model.TargetReport, error) {
	targets = dedupe(targets)
	bp.logger.Info("starting batch processing",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
		"run_id", bp.runID,
	)
	startTime := time.Now()

	bp.mu.Lock()
	bp.results = make([]*model.TargetReport, len(targets))
	bp.mu.Unlock()

	err := bp.run(ctx, targets, func(report *model.TargetReport, index int) {
		bp.mu.Lock()
		bp.results[index] = report
		bp.mu.Unlock()
	})

	bp.logger.Info("batch processing complete",
		"total_targets", len(targets),
		"elapsed", time.Since(startTime),
	)

	bp.mu.Lock()
	defer bp.mu.Unlock()
	out := make([]*model.TargetReport, 0, len(bp.results))
	for _, r := range bp.results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, err
}

// ProcessBatchWithCallback classifies targets and calls callback as each
// one completes, in completion order. The callback runs on worker
// goroutines and must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []model.Target,
	callback func(report *model.TargetReport, index int),
) error {
	targets = dedupe(targets)
	bp.logger.Info("starting batch processing with callback",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)
	return bp.run(ctx, targets, callback)
}

func (bp *BatchProcessor) run(ctx context.Context, targets []model.Target, done func(*model.TargetReport, int)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Debug("classifying target",
				"target", target.String(),
				"index", i+1,
				"total", len(targets),
			)

			report := model.NewTargetReport(target, bp.region(target))
			report.RunID = bp.runID

			if err := bp.pipelineFactory().Execute(ctx, report); err != nil {
				bp.logger.Warn("target failed",
					"target", target.String(),
					"error", err,
				)
			}
			done(report, i)
			return nil
		})
	}
	return g.Wait()
}

// dedupe drops targets whose bare host was already seen.
func dedupe(targets []model.Target) []model.Target {
	seen := make(map[string]bool, len(targets))
	out := make([]model.Target, 0, len(targets))
	for _, t := range targets {
		if seen[t.Key()] {
			continue
		}
		seen[t.Key()] = true
		out = append(out, t)
	}
	return out
}
