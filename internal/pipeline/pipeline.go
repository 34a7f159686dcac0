package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/out-of-energy/topshop/internal/model"
)

// Step is one unit of work on a target report.
type Step interface {
	// Do runs the step against report. A classification that failed to
	// fetch is a result, not an error: Do returns an error only when the
	// step could not do its work at all, such as a store write failing.
	Do(ctx context.Context, report *model.TargetReport) error

	// Name identifies the step in logs and in report.PerformedSteps.
	Name() string
}

// Pipeline runs its steps in order against one target report.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps running later steps after a step fails.
// The classify command turns it on so that a store failure never drops
// the results already gathered for a target.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New returns an empty pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends steps in order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps against report.
//
// Step errors are joined onto report.Error. Without continue-on-error the
// first one is also returned and the remaining steps are skipped. A
// context that ends between steps marks the report TimedOut; a step in
// progress is left to honour ctx itself.
func (p *Pipeline) Execute(ctx context.Context, report *model.TargetReport) error {
	logger := p.logger.With("target", report.Domain)

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			logger.Warn("pipeline cancelled", "next_step", step.Name(), "reason", err)
			report.TimedOut = true
			return err
		}

		started := time.Now()
		err := step.Do(ctx, report)
		report.PerformedSteps = append(report.PerformedSteps, step.Name())

		if err == nil {
			logger.Debug("step done", "step", step.Name(), "elapsed", time.Since(started))
			continue
		}

		logger.Error("step failed", "step", step.Name(), "error", err)
		report.Error = errors.Join(report.Error, err)
		report.ErrorMessage = report.Error.Error()
		if !p.continueOnError {
			return err
		}
	}
	return nil
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	return names
}
