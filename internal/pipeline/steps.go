package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/out-of-energy/topshop/internal/model"
)

// Classifier evaluates one target for one task kind.
// *classifier.Classifier satisfies it.
type Classifier interface {
	ClassifyTarget(ctx context.Context, target model.Target, kind model.TaskKind) model.ClassificationResult
}

// Store persists the record of a finished target.
// *database.RecordDB satisfies it.
type Store interface {
	Save(ctx context.Context, rec model.Record) error
}

// ClassifyStep runs one task kind and stores the result on the report.
type ClassifyStep struct {
	classifier Classifier
	kind       model.TaskKind
	logger     *slog.Logger
}

// StepOption configures a step.
type StepOption func(*stepOptions)

type stepOptions struct {
	logger *slog.Logger
}

// WithStepLogger sets the logger of a step.
func WithStepLogger(logger *slog.Logger) StepOption {
	return func(o *stepOptions) {
		o.logger = logger
	}
}

func applyStepOptions(opts []StepOption) stepOptions {
	o := stepOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewPlatformStep returns the platform detection step.
func NewPlatformStep(c Classifier, opts ...StepOption) *ClassifyStep {
	return &ClassifyStep{classifier: c, kind: model.TaskKindPlatform, logger: applyStepOptions(opts).logger}
}

// NewCategoryStep returns the category classification step.
func NewCategoryStep(c Classifier, opts ...StepOption) *ClassifyStep {
	return &ClassifyStep{classifier: c, kind: model.TaskKindCategory, logger: applyStepOptions(opts).logger}
}

// NewClassifyStep returns the step of an arbitrary task kind.
func NewClassifyStep(c Classifier, kind model.TaskKind, opts ...StepOption) *ClassifyStep {
	return &ClassifyStep{classifier: c, kind: kind, logger: applyStepOptions(opts).logger}
}

// Name returns the task kind.
func (s *ClassifyStep) Name() string {
	return s.kind.String()
}

// Do classifies the report's target. A failed fetch is a result, not an
// error; only a missing target is.
func (s *ClassifyStep) Do(ctx context.Context, report *model.TargetReport) error {
	if report.Target.IsZero() {
		return fmt.Errorf("%s: %w", s.Name(), model.ErrEmptyTarget)
	}

	result := s.classifier.ClassifyTarget(ctx, report.Target, s.kind)
	switch s.kind {
	case model.TaskKindPlatform:
		report.Platform = &result
	case model.TaskKindCategory:
		report.Category = &result
	}
	if result.ErrorKind == model.FetchErrorTimeout && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		report.TimedOut = true
	}

	s.logger.Info("classified",
		"target", report.Domain,
		"kind", s.kind.String(),
		"confidence", result.Confidence,
		"verdict", result.Verdict,
		"error", result.Error,
	)
	return nil
}

// StoreStep saves the report's record. It should run last.
type StoreStep struct {
	store  Store
	logger *slog.Logger
}

// NewStoreStep returns a step persisting records to store.
func NewStoreStep(store Store, opts ...StepOption) *StoreStep {
	return &StoreStep{store: store, logger: applyStepOptions(opts).logger}
}

// Name returns the step name.
func (s *StoreStep) Name() string {
	return "store"
}

// Do saves the record built from the report.
func (s *StoreStep) Do(ctx context.Context, report *model.TargetReport) error {
	if report.Platform == nil && report.Category == nil {
		return nil
	}
	rec := report.Record()
	if err := s.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to save record for %s: %w", rec.Domain, err)
	}
	s.logger.Debug("record saved", "target", rec.Domain, "run_id", rec.RunID)
	return nil
}
