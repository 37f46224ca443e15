package core

import (
	"context"

	"github.com/JonMunkholm/permits/internal/anomaly"
	"github.com/JonMunkholm/permits/internal/schema"
	"github.com/JonMunkholm/permits/internal/submission"
	"github.com/JonMunkholm/permits/internal/tabular"
)

// ExportSheet names the worksheet of an XLSX export.
const ExportSheet = "Submissions"

// Pipeline runs submissions through flatten, import preparation, format
// and reorder.
type Pipeline struct {
	flattener *Flattener
	formatter *Formatter
	reporter  anomaly.Reporter
}

// NewPipeline returns a Pipeline. A nil reporter discards anomalies.
func NewPipeline(f *Flattener, fm *Formatter, r anomaly.Reporter) *Pipeline {
	if r == nil {
		r = anomaly.Discard
	}
	return &Pipeline{flattener: f, formatter: fm, reporter: r}
}

// Batch is the outcome of transforming one fetch.
type Batch struct {
	Records  []OrderedRecord
	Excluded []Exclusion
}

// Transform converts every submission. Excluded submissions are collected
// rather than dropped silently.
func (p *Pipeline) Transform(ctx context.Context, subs []submission.Raw) Batch {
	var b Batch
	for _, raw := range subs {
		flat, ex := p.flattener.Flatten(ctx, raw)
		if ex != nil {
			p.reporter.Report(ctx, anomaly.Errorf(anomaly.Exclusion, ex.SubmissionID, "", "%s: %s", ex.Status, ex.Reason))
			b.Excluded = append(b.Excluded, *ex)
			continue
		}
		b.Records = append(b.Records, Reorder(p.formatter.Format(ctx, PrepareForImport(flat))))
	}
	return b
}

// Rows returns the record values in column order.
func (b Batch) Rows() [][]string {
	rows := make([][]string, len(b.Records))
	for i, r := range b.Records {
		rows[i] = r.Values()
	}
	return rows
}

// Delimited renders the batch with a header row, separated by delim.
func (b Batch) Delimited(delim rune) string {
	return tabular.Delimited(tabular.Header(schema.Columns), b.Rows(), delim)
}

// Workbook renders the batch as an XLSX document.
func (b Batch) Workbook() ([]byte, error) {
	return tabular.Workbook(ExportSheet, tabular.Header(schema.Columns), b.Rows())
}
