package indicator

import (
	"context"
	"errors"
	"fmt"

	"github.com/out-of-energy/topshop/internal/config"
	"github.com/out-of-energy/topshop/internal/content"
	"github.com/out-of-energy/topshop/internal/model"
)

// maxEvidence bounds the evidence list attached to one signal.
const maxEvidence = 10

// ErrNoProber is reported by endpoint-probe when the input carries no
// Prober or no URL.
var ErrNoProber = errors.New("no prober available")

// ErrUnknownKind is returned by Build for an unknown task kind.
var ErrUnknownKind = errors.New("unknown task kind")

// Signal is the result of one extractor: a value or an error, never both.
// The aggregator scores an error signal as 0.
type Signal struct {
	Value    float64
	Evidence []string
	Err      error
}

// Prober issues auxiliary requests. *fetcher.Fetcher satisfies it.
type Prober interface {
	Fetch(ctx context.Context, rawURL string, mode model.FetchMode) model.FetchResult
}

// Input is what every extractor receives.
type Input struct {
	// Doc is the parsed page; never nil.
	Doc *content.Document

	// URL is the normalized target URL probes are built from.
	URL string

	// Prober issues endpoint probes.
	Prober Prober
}

// Extractor computes one signal from an Input.
type Extractor interface {
	// Name is unique within a task kind.
	Name() string

	// Weight is the mean weight (platform) or the per-match
	// contribution (category).
	Weight() float64

	// Extract computes the signal. It must not panic on an empty document.
	Extract(ctx context.Context, in *Input) Signal
}

// Result converts a signal into the record attached to a classification.
func Result(e Extractor, s Signal) model.IndicatorResult {
	r := model.IndicatorResult{
		Name:     e.Name(),
		Weight:   e.Weight(),
		Value:    s.Value,
		Evidence: s.Evidence,
	}
	if s.Err != nil {
		r.Value = 0
		r.Error = s.Err.Error()
	}
	return r
}

// Build returns the extractors of a task kind in evaluation order.
// Every indicator of the kind is always present; a disabled one keeps its
// weight and reports 0.
func Build(kind model.TaskKind, rules config.TaskRules) ([]Extractor, error) {
	switch kind {
	case model.TaskKindPlatform:
		return buildPlatform(rules), nil
	case model.TaskKindCategory:
		return buildCategory(rules)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Run evaluates every extractor in order. An extractor that panics is
// reported as an error signal.
func Run(ctx context.Context, extractors []Extractor, in *Input) []model.IndicatorResult {
	results := make([]model.IndicatorResult, 0, len(extractors))
	for _, e := range extractors {
		results = append(results, Result(e, safeExtract(ctx, e, in)))
	}
	return results
}

func safeExtract(ctx context.Context, e Extractor, in *Input) (s Signal) {
	defer func() {
		if r := recover(); r != nil {
			s = Signal{Err: fmt.Errorf("indicator %s panicked: %v", e.Name(), r)}
		}
	}()
	return e.Extract(ctx, in)
}

// off is an indicator switched off by the rule file. It still takes part
// in every run so the indicator set of a kind never shrinks.
type off struct {
	Extractor
}

// Extract implements Extractor.
func (off) Extract(context.Context, *Input) Signal {
	return Signal{}
}

func switchable(e Extractor, r config.IndicatorRule) Extractor {
	if r.Disabled {
		return off{e}
	}
	return e
}

// base holds the fields shared by every extractor.
type base struct {
	name   string
	weight float64
}

func (b base) Name() string     { return b.name }
func (b base) Weight() float64 { return b.weight }

func appendEvidence(ev []string, s string) []string {
	if len(ev) >= maxEvidence {
		return ev
	}
	return append(ev, s)
}

// capped returns min(count*unit, limit).
func capped(count int, unit, limit float64) float64 {
	return min(float64(count)*unit, limit)
}
