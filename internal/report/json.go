package report

import (
	"encoding/json"
	"io"

	"github.com/out-of-energy/topshop/internal/model"
)

// JSONWriter outputs reports in JSON format.
//
// Design decision: encoding/json covers the flat result types; the pack
// carries no alternative JSON library.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	indentPrefix string
	indentString string

	// version is stamped into batch documents when set.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion stamps the tool version into batch documents.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Document is the JSON shape of one batch.
type Document struct {
	// Version is the topshop version that generated this document.
	Version string `json:"version,omitempty"`

	// Summary counts the batch outcomes.
	Summary *Summary `json:"summary"`

	// Reports holds one entry per distinct target.
	Reports []*model.TargetReport `json:"reports"`
}

// Write outputs the batch as a single Document.
func (w *JSONWriter) Write(reports []*model.TargetReport) (int, error) {
	if reports == nil {
		reports = []*model.TargetReport{}
	}
	return w.WriteValue(&Document{
		Version: w.version,
		Summary: NewSummary(reports),
		Reports: reports,
	})
}

// WriteSummary outputs only the summary.
func (w *JSONWriter) WriteSummary(summary *Summary) (int, error) {
	return w.WriteValue(summary)
}

// WriteValue marshals v and writes it followed by a newline.
// The list and rank commands use it for stored records.
func (w *JSONWriter) WriteValue(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
