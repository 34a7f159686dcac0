package model

import "time"

// IndicatorResult is the value one indicator produced for one fetch.
type IndicatorResult struct {
	// Name is unique within the task kind, e.g. "script-origin".
	Name string `json:"name"`

	// Weight is the fixed weight of this indicator for its task kind.
	Weight float64 `json:"weight"`

	// Value is the signal value. Platform indicators are in [0,1];
	// category contributions are capped and the penalty is negative.
	Value float64 `json:"value"`

	// Evidence lists what matched (keywords, script sources, endpoints).
	Evidence []string `json:"evidence,omitempty"`

	// Error is set when the extractor degraded; Value is then 0.
	Error string `json:"error,omitempty"`
}

// ClassificationResult is the terminal output of one classification task.
// A fresh value is created for each invocation.
type ClassificationResult struct {
	// Target is the normalized target URL.
	Target string `json:"target"`

	// Kind is the task kind that produced this result.
	Kind TaskKind `json:"kind"`

	// Confidence is the aggregated score in [0,1].
	Confidence float64 `json:"confidence"`

	// Verdict is true iff Confidence > Threshold.
	Verdict bool `json:"verdict"`

	// Threshold is the decision threshold that was applied.
	Threshold float64 `json:"threshold"`

	// Indicators holds every indicator result in evaluation order.
	// It is empty when the primary fetch failed.
	Indicators []IndicatorResult `json:"indicators"`

	// Error is the diagnostic message when the fetch failed.
	Error string `json:"error,omitempty"`

	// ErrorKind classifies the primary fetch failure.
	ErrorKind FetchErrorKind `json:"error_kind,omitempty"`

	// State is the task state; always TaskStateScored for returned results.
	State TaskState `json:"-"`

	// StatusCode is the HTTP status of the primary fetch, 0 if none.
	StatusCode int `json:"status_code,omitempty"`

	// FinalURL is the URL after redirects of the primary fetch.
	FinalURL string `json:"final_url,omitempty"`

	// CheckedAt is when the task was scored.
	CheckedAt time.Time `json:"checked_at"`
}

// Indicator returns the indicator result with the given name.
func (r *ClassificationResult) Indicator(name string) (IndicatorResult, bool) {
	for _, ir := range r.Indicators {
		if ir.Name == name {
			return ir, true
		}
	}
	return IndicatorResult{}, false
}

// Failed reports whether the primary fetch failed.
func (r *ClassificationResult) Failed() bool {
	return r.Error != ""
}

// TargetReport accumulates the results of both task kinds for one target
// as it passes through the pipeline.
type TargetReport struct {
	// Target is the target being classified.
	Target Target `json:"-"`

	// Domain is the bare host, used as the record key.
	Domain string `json:"domain"`

	// URL is the normalized URL.
	URL string `json:"url"`

	// Region is the region attached to the stored record.
	Region Region `json:"region"`

	// RunID identifies the batch this report belongs to.
	RunID string `json:"run_id,omitempty"`

	// Platform is the platform detection result, nil if not run.
	Platform *ClassificationResult `json:"platform,omitempty"`

	// Category is the category classification result, nil if not run.
	Category *ClassificationResult `json:"category,omitempty"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps"`

	// Error holds a step failure that is not part of a classification result.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`

	// TimedOut is true when the pipeline was cancelled before finishing.
	TimedOut bool `json:"timed_out"`

	// DateChecked is when the report was created.
	DateChecked time.Time `json:"date_checked"`
}

// NewTargetReport creates an empty report for the given target.
func NewTargetReport(t Target, region Region) *TargetReport {
	return &TargetReport{
		Target:         t,
		Domain:         t.Key(),
		URL:            t.URL(),
		Region:         region,
		PerformedSteps: make([]string, 0),
		DateChecked:    time.Now(),
	}
}

// Record builds the store tuple from the report. Kinds names only the
// results present, so a single-kind run does not clear the other kind.
func (r *TargetReport) Record() Record {
	rec := Record{
		Domain:    r.Domain,
		Region:    r.Region,
		RunID:     r.RunID,
		CheckedAt: r.DateChecked,
		Kinds:     make([]TaskKind, 0, 2),
	}
	if r.Platform != nil {
		rec.Kinds = append(rec.Kinds, TaskKindPlatform)
		rec.PlatformVerdict = r.Platform.Verdict
		rec.PlatformConfidence = r.Platform.Confidence
		rec.CheckedAt = r.Platform.CheckedAt
		rec.Error = r.Platform.Error
	}
	if r.Category != nil {
		rec.Kinds = append(rec.Kinds, TaskKindCategory)
		rec.CategoryVerdict = r.Category.Verdict
		rec.CategoryConfidence = r.Category.Confidence
		if r.Category.CheckedAt.After(rec.CheckedAt) {
			rec.CheckedAt = r.Category.CheckedAt
		}
		if rec.Error == "" {
			rec.Error = r.Category.Error
		}
	}
	return rec
}
