package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/out-of-energy/topshop/internal/model"
)

// fakeClassifier returns canned results per task kind.
type fakeClassifier struct {
	mu      sync.Mutex
	results map[model.TaskKind]model.ClassificationResult
	calls   []string
	delay   time.Duration
}

func (f *fakeClassifier) ClassifyTarget(ctx context.Context, target model.Target, kind model.TaskKind) model.ClassificationResult {
	f.mu.Lock()
	f.calls = append(f.calls, target.Key()+"/"+kind.String())
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(f.delay):
		}
	}
	res := f.results[kind]
	res.Target = target.URL()
	res.Kind = kind
	res.State = model.TaskStateScored
	return res
}

// memStore records saved records.
type memStore struct {
	mu      sync.Mutex
	records []model.Record
	err     error
}

func (s *memStore) Save(_ context.Context, rec model.Record) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func TestClassifyStep(t *testing.T) {
	t.Parallel()

	fc := &fakeClassifier{results: map[model.TaskKind]model.ClassificationResult{
		model.TaskKindPlatform: {Confidence: 0.8, Verdict: true},
		model.TaskKindCategory: {Confidence: 0.22, Verdict: false},
	}}

	t.Run("names follow the task kind", func(t *testing.T) {
		t.Parallel()

		if got := NewPlatformStep(fc).Name(); got != "platform" {
			t.Errorf("expected platform, got %q", got)
		}
		if got := NewCategoryStep(fc).Name(); got != "category" {
			t.Errorf("expected category, got %q", got)
		}
	})

	t.Run("stores results on the report", func(t *testing.T) {
		t.Parallel()

		report := newReport(t, "Shop.Example.com")
		ctx := context.Background()
		if err := NewPlatformStep(fc, WithStepLogger(quietLogger())).Do(ctx, report); err != nil {
			t.Fatal(err)
		}
		if err := NewCategoryStep(fc, WithStepLogger(quietLogger())).Do(ctx, report); err != nil {
			t.Fatal(err)
		}
		if report.Platform == nil || !report.Platform.Verdict {
			t.Errorf("unexpected platform result %+v", report.Platform)
		}
		if report.Category == nil || report.Category.Confidence != 0.22 {
			t.Errorf("unexpected category result %+v", report.Category)
		}
	})

	t.Run("zero target is a step error", func(t *testing.T) {
		t.Parallel()

		err := NewPlatformStep(fc, WithStepLogger(quietLogger())).Do(context.Background(), &model.TargetReport{})
		if !errors.Is(err, model.ErrEmptyTarget) {
			t.Errorf("expected ErrEmptyTarget, got %v", err)
		}
	})
}

func TestStoreStep(t *testing.T) {
	t.Parallel()

	t.Run("saves the aggregated record", func(t *testing.T) {
		t.Parallel()

		store := &memStore{}
		report := newReport(t, "shop.example.com")
		report.RunID = "run-1"
		report.Platform = &model.ClassificationResult{Confidence: 0.6, Verdict: true}
		report.Category = &model.ClassificationResult{Confidence: 0.7, Verdict: true}

		if err := NewStoreStep(store, WithStepLogger(quietLogger())).Do(context.Background(), report); err != nil {
			t.Fatal(err)
		}
		if len(store.records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(store.records))
		}
		rec := store.records[0]
		if rec.Domain != "shop.example.com" || rec.Region != model.RegionEurope || rec.RunID != "run-1" {
			t.Errorf("unexpected record %+v", rec)
		}
		if !rec.PlatformVerdict || rec.CategoryConfidence != 0.7 {
			t.Errorf("unexpected verdicts %+v", rec)
		}
	})

	t.Run("nothing to save without results", func(t *testing.T) {
		t.Parallel()

		store := &memStore{}
		if err := NewStoreStep(store).Do(context.Background(), newReport(t, "shop.example.com")); err != nil {
			t.Fatal(err)
		}
		if len(store.records) != 0 {
			t.Error("expected no record")
		}
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		t.Parallel()

		errDisk := errors.New("disk full")
		report := newReport(t, "shop.example.com")
		report.Platform = &model.ClassificationResult{}
		err := NewStoreStep(&memStore{err: errDisk}).Do(context.Background(), report)
		if !errors.Is(err, errDisk) {
			t.Errorf("expected wrapped errDisk, got %v", err)
		}
	})
}
