package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/out-of-energy/topshop/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// Tables and alerts come from nao1215/markdown; the verdict distribution is
// rendered as a mermaid pie chart.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the batch overview, the summary, and per-target details.
func (w *MarkdownWriter) Write(reports []*model.TargetReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := NewSummary(reports)

	md.H1("topshop Report")
	md.PlainText("")
	w.writeSummary(md, summary)
	w.writeOverview(md, reports)
	for _, r := range reports {
		w.writeTarget(md, r)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs only the summary section.
func (w *MarkdownWriter) WriteSummary(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)
	w.writeSummary(md, summary)
	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s *Summary) {
	md.H2("Summary")
	md.PlainText("")

	rows := [][]string{
		{"Targets", strconv.Itoa(s.Total)},
		{"Platform positive", strconv.Itoa(s.PlatformPositive)},
		{"Category positive", strconv.Itoa(s.CategoryPositive)},
		{"Both positive", strconv.Itoa(s.BothPositive)},
		{"Negative", strconv.Itoa(s.Negative)},
		{"Fetch failed", strconv.Itoa(s.Failed)},
		{"Timed out", strconv.Itoa(s.TimedOut)},
	}
	if s.RunID != "" {
		rows = append([][]string{{"Run", "`" + s.RunID + "`"}}, rows...)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if s.Total > 0 {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, s)
}

// writePieChart writes the verdict distribution. Every target lands in
// exactly one slice.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Verdict Distribution"),
		piechart.WithShowData(true),
	)

	slices := []struct {
		label string
		n     int
	}{
		{"Both", s.BothPositive},
		{"Platform only", s.PlatformPositive - s.BothPositive},
		{"Category only", s.CategoryPositive - s.BothPositive},
		{"Neither", s.Negative},
		{"Failed", s.Failed},
	}
	for _, sl := range slices {
		if sl.n > 0 {
			chart.LabelAndIntValue(sl.label, uint64(sl.n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *Summary) {
	switch {
	case s.Total == 0:
		md.Note("No targets were classified.")
	case s.Failed == s.Total:
		md.Cautionf("Every target failed to fetch. Check connectivity and the %d target(s).", s.Total)
	case s.Failed > 0:
		md.Warningf("%d of %d target(s) could not be fetched and scored 0.", s.Failed, s.Total)
	case s.BothPositive > 0:
		md.Tip(fmt.Sprintf("%d target(s) matched both the platform and the category.", s.BothPositive))
	default:
		md.Note("No target matched both the platform and the category.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeOverview(md *markdown.Markdown, reports []*model.TargetReport) {
	md.H2("Targets")
	md.PlainText("")

	if len(reports) == 0 {
		md.PlainText("No targets.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(reports))
	for i, r := range reports {
		rows[i] = []string{
			"`" + r.Domain + "`",
			r.Region.String(),
			resultCell(r.Platform),
			resultCell(r.Category),
			status(r),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Domain", "Region", "Platform", "Category", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeTarget(md *markdown.Markdown, r *model.TargetReport) {
	md.H3(r.Domain)
	md.PlainText("")

	for _, res := range results(r) {
		md.H4(fmt.Sprintf("%s: %s (%.2f)", res.Kind, verdictText(res.Verdict), res.Confidence))
		md.PlainText("")

		if res.Failed() {
			md.Warningf("Fetch failed (%s): %s", res.ErrorKind, res.Error)
			md.PlainText("")
			continue
		}

		rows := make([][]string, len(res.Indicators))
		for i, ind := range res.Indicators {
			evidence := "-"
			if len(ind.Evidence) > 0 {
				evidence = truncateString(strings.Join(ind.Evidence, ", "), 60)
			}
			if ind.Error != "" {
				evidence = "error: " + truncateString(ind.Error, 53)
			}
			rows[i] = []string{
				ind.Name,
				strconv.FormatFloat(ind.Weight, 'f', 2, 64),
				strconv.FormatFloat(ind.Value, 'f', 2, 64),
				evidence,
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Indicator", "Weight", "Value", "Evidence"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by topshop*")
}

// resultCell renders a result as a table cell.
func resultCell(res *model.ClassificationResult) string {
	if res == nil {
		return "-"
	}
	if res.Failed() {
		return "❌ " + string(res.ErrorKind)
	}
	if res.Verdict {
		return fmt.Sprintf("✅ %.2f", res.Confidence)
	}
	return fmt.Sprintf("%.2f", res.Confidence)
}
