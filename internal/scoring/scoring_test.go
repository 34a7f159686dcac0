package scoring

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/out-of-energy/topshop/internal/config"
	"github.com/out-of-energy/topshop/internal/model"
)

const epsilon = 1e-9

func platformResults(values ...float64) []model.IndicatorResult {
	out := make([]model.IndicatorResult, len(values))
	for i, v := range values {
		out[i] = model.IndicatorResult{Name: string(rune('a' + i)), Weight: 0.2, Value: v}
	}
	return out
}

func TestMean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "all zero", values: []float64{0, 0, 0, 0, 0}, want: 0},
		{name: "only footer", values: []float64{0, 0, 0, 1, 0}, want: 0.2},
		{name: "two binary", values: []float64{1, 1, 0, 0, 0}, want: 0.4},
		{name: "three binary", values: []float64{1, 1, 0, 1, 0}, want: 0.6},
		{name: "partial links", values: []float64{1, 0, 1.0 / 3, 1, 0}, want: (2 + 1.0/3) / 5},
		{name: "all one", values: []float64{1, 1, 1, 1, 1}, want: 1},
		{name: "no indicators", values: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := (Mean{}).Aggregate(platformResults(tt.values...)); math.Abs(got-tt.want) > epsilon {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMeanBinaryStepsOfOneFifth(t *testing.T) {
	t.Parallel()

	// With link-pattern pinned at 0 or 1 the mean is k/5 for k firing.
	for mask := range 32 {
		values := make([]float64, 5)
		k := 0
		for i := range 5 {
			if mask&(1<<i) != 0 {
				values[i] = 1
				k++
			}
		}
		got := (Mean{}).Aggregate(platformResults(values...))
		if want := float64(k) / 5; math.Abs(got-want) > epsilon {
			t.Errorf("mask %05b: expected %v, got %v", mask, want, got)
		}
	}
}

func TestErrorIndicatorCountsAsZero(t *testing.T) {
	t.Parallel()

	results := platformResults(1, 1, 1, 1, 1)
	results[4].Error = "probe failed"

	if got := (Mean{}).Aggregate(results); math.Abs(got-0.8) > epsilon {
		t.Errorf("mean: expected 0.8, got %v", got)
	}

	add := []model.IndicatorResult{
		{Name: "keyword-hits", Weight: 0.1, Value: 0.5},
		{Name: "product-links", Weight: 0.05, Value: 0.2, Error: "boom"},
	}
	if got := (AdditiveClamp{}).Aggregate(add); math.Abs(got-0.5) > epsilon {
		t.Errorf("additive: expected 0.5, got %v", got)
	}
}

func TestAdditiveClampScenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		kw      float64
		links   float64
		prices  float64
		penalty float64
		want    float64
		verdict bool
	}{
		// 6 keywords, 2 product links, 1 price, no exclusion.
		{name: "fashion store", kw: 0.5, links: 0.1, prices: 0.02, want: 0.62, verdict: true},
		// The same store with 3 exclusion keywords.
		{name: "mixed store", kw: 0.5, links: 0.1, prices: 0.02, penalty: -0.4, want: 0.22, verdict: false},
		// 3 keywords, 3 links, 2 prices, 2 exclusions.
		{name: "general store", kw: 0.3, links: 0.15, prices: 0.04, penalty: -0.3, want: 0.19, verdict: false},
		{name: "clamped below", kw: 0.1, penalty: -0.4, want: 0, verdict: false},
		{name: "exactly threshold", kw: 0.4, links: 0.2, want: 0.6, verdict: false},
	}
	scorer := Scorer{Strategy: AdditiveClamp{}, Threshold: 0.6}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			results := []model.IndicatorResult{
				{Name: "keyword-hits", Weight: 0.1, Value: tt.kw},
				{Name: "product-links", Weight: 0.05, Value: tt.links},
				{Name: "price-patterns", Weight: 0.02, Value: tt.prices},
				{Name: "exclusion-penalty", Weight: 0.15, Value: tt.penalty},
			}
			got, verdict := scorer.Score(results)
			if math.Abs(got-tt.want) > epsilon {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			if verdict != tt.verdict {
				t.Errorf("expected verdict %v, got %v", tt.verdict, verdict)
			}
		})
	}
}

func TestConfidenceBounds(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	for range 1000 {
		results := make([]model.IndicatorResult, 1+rng.IntN(8))
		for i := range results {
			results[i] = model.IndicatorResult{
				Weight: rng.Float64(),
				Value:  rng.Float64()*2 - 1,
			}
		}
		for _, s := range []Strategy{Mean{}, AdditiveClamp{}} {
			if c := s.Aggregate(results); c < 0 || c > 1 {
				t.Fatalf("%s: confidence %v out of bounds", s.Name(), c)
			}
		}
	}
}

func TestMonotonicity(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(3, 4))
	for range 500 {
		values := make([]float64, 5)
		for i := range values {
			values[i] = rng.Float64()
		}
		before := (Mean{}).Aggregate(platformResults(values...))

		i := rng.IntN(5)
		values[i] = min(1, values[i]+rng.Float64())
		after := (Mean{}).Aggregate(platformResults(values...))
		if after+epsilon < before {
			t.Fatalf("raising indicator %d lowered confidence: %v -> %v", i, before, after)
		}
	}

	// The additive penalty only ever lowers confidence.
	base := []model.IndicatorResult{{Value: 0.5}, {Value: 0.2}}
	withPenalty := append(base, model.IndicatorResult{Value: -0.15})
	if (AdditiveClamp{}).Aggregate(withPenalty) > (AdditiveClamp{}).Aggregate(base) {
		t.Error("penalty raised confidence")
	}
}

func TestDecide(t *testing.T) {
	t.Parallel()

	if Decide(0.5, 0.5) {
		t.Error("confidence equal to threshold must be negative")
	}
	if !Decide(0.5000001, 0.5) {
		t.Error("confidence above threshold must be positive")
	}
}

func TestNewScorer(t *testing.T) {
	t.Parallel()

	t.Run("defaults per kind", func(t *testing.T) {
		t.Parallel()

		p, err := NewScorer(model.TaskKindPlatform, config.TaskRules{})
		if err != nil {
			t.Fatal(err)
		}
		if p.Strategy.Name() != "mean" || p.Threshold != 0.5 {
			t.Errorf("unexpected platform scorer %s/%v", p.Strategy.Name(), p.Threshold)
		}
		c, err := NewScorer(model.TaskKindCategory, config.TaskRules{})
		if err != nil {
			t.Fatal(err)
		}
		if c.Strategy.Name() != "additive" || c.Threshold != 0.6 {
			t.Errorf("unexpected category scorer %s/%v", c.Strategy.Name(), c.Threshold)
		}
	})

	t.Run("rules override", func(t *testing.T) {
		t.Parallel()

		th := 0.3
		s, err := NewScorer(model.TaskKindPlatform, config.TaskRules{Strategy: "additive", Threshold: &th})
		if err != nil {
			t.Fatal(err)
		}
		if s.Strategy.Name() != "additive" || s.Threshold != 0.3 {
			t.Errorf("unexpected scorer %s/%v", s.Strategy.Name(), s.Threshold)
		}
	})

	t.Run("unknown strategy", func(t *testing.T) {
		t.Parallel()

		if _, err := NewScorer(model.TaskKindPlatform, config.TaskRules{Strategy: "median"}); !errors.Is(err, ErrUnknownStrategy) {
			t.Errorf("expected ErrUnknownStrategy, got %v", err)
		}
	})
}
