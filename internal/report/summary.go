package report

import (
	"time"

	"github.com/out-of-energy/topshop/internal/model"
)

// Summary counts the outcomes of one batch.
type Summary struct {
	// RunID is the batch run ID, empty for single-target runs.
	RunID string `json:"run_id,omitempty"`

	// Total is the number of distinct targets.
	Total int `json:"total"`

	// PlatformPositive counts targets with a positive platform verdict.
	PlatformPositive int `json:"platform_positive"`

	// CategoryPositive counts targets with a positive category verdict.
	CategoryPositive int `json:"category_positive"`

	// BothPositive counts targets positive on both axes.
	BothPositive int `json:"both_positive"`

	// Negative counts fetched targets positive on neither axis.
	Negative int `json:"negative"`

	// Failed counts targets whose primary fetch failed for any task kind.
	Failed int `json:"failed"`

	// TimedOut counts targets that hit the per-target deadline.
	TimedOut int `json:"timed_out"`

	// GeneratedAt is when the summary was built.
	GeneratedAt time.Time `json:"generated_at"`
}

// NewSummary counts the outcomes of reports.
func NewSummary(reports []*model.TargetReport) *Summary {
	s := &Summary{Total: len(reports), GeneratedAt: time.Now()}
	for _, r := range reports {
		if s.RunID == "" {
			s.RunID = r.RunID
		}
		platform := r.Platform != nil && r.Platform.Verdict
		category := r.Category != nil && r.Category.Verdict
		if platform {
			s.PlatformPositive++
		}
		if category {
			s.CategoryPositive++
		}
		if platform && category {
			s.BothPositive++
		}
		switch {
		case failed(r):
			s.Failed++
		case !platform && !category:
			s.Negative++
		}
		if r.TimedOut {
			s.TimedOut++
		}
	}
	return s
}

func failed(r *model.TargetReport) bool {
	return (r.Platform != nil && r.Platform.Failed()) || (r.Category != nil && r.Category.Failed())
}

// results returns the classification results of a report in task order.
func results(r *model.TargetReport) []*model.ClassificationResult {
	out := make([]*model.ClassificationResult, 0, 2)
	if r.Platform != nil {
		out = append(out, r.Platform)
	}
	if r.Category != nil {
		out = append(out, r.Category)
	}
	return out
}

// status returns a short status word for a report.
func status(r *model.TargetReport) string {
	switch {
	case r.TimedOut:
		return "timed out"
	case failed(r):
		return "fetch failed"
	case r.ErrorMessage != "":
		return "error"
	default:
		return "complete"
	}
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
