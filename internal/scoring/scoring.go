// Package scoring aggregates indicator results into a confidence and
// turns the confidence into a verdict.
package scoring

import (
	"errors"
	"fmt"

	"github.com/out-of-energy/topshop/internal/config"
	"github.com/out-of-energy/topshop/internal/model"
)

// ErrUnknownStrategy is returned for an unknown strategy name.
var ErrUnknownStrategy = errors.New("unknown aggregation strategy")

// Strategy combines indicator results into a confidence in [0,1].
// Indicators carrying an error contribute 0.
type Strategy interface {
	Name() string
	Aggregate(results []model.IndicatorResult) float64
}

// Mean is the weighted arithmetic mean of indicator values. With equal
// weights it is the plain mean.
type Mean struct{}

// Name implements Strategy.
func (Mean) Name() string { return config.StrategyMean }

// Aggregate implements Strategy.
func (Mean) Aggregate(results []model.IndicatorResult) float64 {
	var sum, weights float64
	for _, r := range results {
		if r.Weight <= 0 {
			continue
		}
		weights += r.Weight
		sum += r.Weight * value(r)
	}
	if weights == 0 {
		return 0
	}
	return clamp(sum / weights)
}

// AdditiveClamp sums signed contributions and clamps the total to [0,1].
// Contributions are expected to be capped by their extractors already.
type AdditiveClamp struct{}

// Name implements Strategy.
func (AdditiveClamp) Name() string { return config.StrategyAdditive }

// Aggregate implements Strategy.
func (AdditiveClamp) Aggregate(results []model.IndicatorResult) float64 {
	var sum float64
	for _, r := range results {
		sum += value(r)
	}
	return clamp(sum)
}

// ForName returns the strategy registered under name.
func ForName(name string) (Strategy, error) {
	switch name {
	case config.StrategyMean:
		return Mean{}, nil
	case config.StrategyAdditive:
		return AdditiveClamp{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Scorer pairs a strategy with a decision threshold.
type Scorer struct {
	Strategy  Strategy
	Threshold float64
}

// NewScorer builds the scorer of a task kind from its rules. An empty
// strategy or missing threshold falls back to the kind's default.
func NewScorer(kind model.TaskKind, rules config.TaskRules) (Scorer, error) {
	strategy, threshold := config.StrategyMean, config.DefaultPlatformThreshold
	if kind == model.TaskKindCategory {
		strategy, threshold = config.StrategyAdditive, config.DefaultCategoryThreshold
	}
	if rules.Strategy != "" {
		strategy = rules.Strategy
	}
	s, err := ForName(strategy)
	if err != nil {
		return Scorer{}, err
	}
	return Scorer{Strategy: s, Threshold: rules.ThresholdOr(threshold)}, nil
}

// Score returns the confidence and the verdict. The verdict is positive
// only when the confidence is strictly greater than the threshold.
func (s Scorer) Score(results []model.IndicatorResult) (float64, bool) {
	c := s.Strategy.Aggregate(results)
	return c, Decide(c, s.Threshold)
}

// Decide reports whether confidence is strictly above threshold.
func Decide(confidence, threshold float64) bool {
	return confidence > threshold
}

func value(r model.IndicatorResult) float64 {
	if r.Error != "" {
		return 0
	}
	return r.Value
}

func clamp(v float64) float64 {
	return max(0, min(1, v))
}
