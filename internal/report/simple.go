package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/out-of-energy/topshop/internal/model"
)

// SimpleWriter outputs human-readable text reports.
//
// Design decision: Plain text with ASCII rules rather than ANSI colors, so
// the output pipes cleanly into files and other tools.
type SimpleWriter struct {
	baseWriter

	// showEmpty lists indicators that produced no signal.
	showEmpty bool

	// verbose prints indicator evidence.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show zero-valued indicators.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables indicator evidence in the output.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs every report followed by the batch summary.
func (w *SimpleWriter) Write(reports []*model.TargetReport) (int, error) {
	var sb strings.Builder
	for _, r := range reports {
		w.writeTarget(&sb, r)
	}
	w.writeSummary(&sb, NewSummary(reports))
	w.writeFooter(&sb)
	return io.WriteString(w.output, sb.String())
}

// WriteSummary outputs the batch summary.
func (w *SimpleWriter) WriteSummary(summary *Summary) (int, error) {
	var sb strings.Builder
	w.writeSummary(&sb, summary)
	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeTarget(sb *strings.Builder, r *model.TargetReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Target:   %s\n", r.Domain)
	fmt.Fprintf(sb, "URL:      %s\n", r.URL)
	fmt.Fprintf(sb, "Region:   %s\n", r.Region)
	fmt.Fprintf(sb, "Checked:  %s\n", r.DateChecked.Format("2006-01-02 15:04:05 MST"))

	switch {
	case r.TimedOut:
		sb.WriteString("Status:   TIMED OUT (partial results)\n")
	case r.ErrorMessage != "":
		fmt.Fprintf(sb, "Status:   ERROR - %s\n", r.ErrorMessage)
	default:
		sb.WriteString("Status:   Complete\n")
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	for _, res := range results(r) {
		w.writeResult(sb, res)
	}
}

func (w *SimpleWriter) writeResult(sb *strings.Builder, res *model.ClassificationResult) {
	sb.WriteString("\n")
	fmt.Fprintf(sb, "%s\n", strings.ToUpper(res.Kind.String()))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  Verdict:    %s (confidence %.2f, threshold %.2f)\n",
		verdictText(res.Verdict), res.Confidence, res.Threshold)

	if res.Failed() {
		fmt.Fprintf(sb, "  Error:      [%s] %s\n", res.ErrorKind, res.Error)
		if res.StatusCode != 0 {
			fmt.Fprintf(sb, "  Status:     %d\n", res.StatusCode)
		}
		return
	}

	for _, ind := range res.Indicators {
		if ind.Value == 0 && ind.Error == "" && !w.showEmpty {
			continue
		}
		fmt.Fprintf(sb, "  [%s] %-18s %+.2f  (weight %.2f)\n", marker(ind), ind.Name, ind.Value, ind.Weight)
		if ind.Error != "" {
			fmt.Fprintf(sb, "      error: %s\n", ind.Error)
		}
		if w.verbose && len(ind.Evidence) > 0 {
			fmt.Fprintf(sb, "      evidence: %s\n", strings.Join(ind.Evidence, ", "))
		}
	}
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, s *Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if s.RunID != "" {
		fmt.Fprintf(sb, "  Run:               %s\n", s.RunID)
	}
	fmt.Fprintf(sb, "  Targets:           %d\n", s.Total)
	fmt.Fprintf(sb, "  Platform positive: %d\n", s.PlatformPositive)
	fmt.Fprintf(sb, "  Category positive: %d\n", s.CategoryPositive)
	fmt.Fprintf(sb, "  Both positive:     %d\n", s.BothPositive)
	fmt.Fprintf(sb, "  Negative:          %d\n", s.Negative)
	fmt.Fprintf(sb, "  Fetch failed:      %d\n", s.Failed)
	if s.TimedOut > 0 {
		fmt.Fprintf(sb, "  Timed out:         %d\n", s.TimedOut)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by topshop\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

func verdictText(v bool) string {
	if v {
		return "YES"
	}
	return "NO"
}

// marker returns a one-character indicator state.
func marker(ind model.IndicatorResult) string {
	switch {
	case ind.Error != "":
		return "!"
	case ind.Value > 0:
		return "+"
	case ind.Value < 0:
		return "-"
	default:
		return " "
	}
}
