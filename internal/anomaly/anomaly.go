// Package anomaly reports recoverable data problems found while exporting
// and reconciling submissions. An anomaly never stops a run; it is logged,
// counted and, in tests, recorded for inspection.
package anomaly

import (
	"context"
	"fmt"
	"sync"

	"github.com/JonMunkholm/permits/internal/logging"
	"github.com/JonMunkholm/permits/internal/metrics"
)

// Kind classifies an anomaly.
type Kind string

const (
	Flatten      Kind = "flatten"
	Format       Kind = "format"
	ValueMap     Kind = "value_map"
	Fetch        Kind = "fetch"
	Delivery     Kind = "delivery"
	StatusUpdate Kind = "status_update"
	ResultRow    Kind = "result_row"
	Exclusion    Kind = "exclusion"
)

// Anomaly describes one recoverable problem.
type Anomaly struct {
	Kind         Kind
	SubmissionID string
	Field        string
	Err          error
}

func (a Anomaly) Error() string {
	msg := string(a.Kind)
	if a.SubmissionID != "" {
		msg += " submission=" + a.SubmissionID
	}
	if a.Field != "" {
		msg += " field=" + a.Field
	}
	if a.Err != nil {
		msg += ": " + a.Err.Error()
	}
	return msg
}

func (a Anomaly) Unwrap() error { return a.Err }

// Reporter receives anomalies. Implementations must be safe for concurrent
// use.
type Reporter interface {
	Report(ctx context.Context, a Anomaly)
}

// Discard drops every anomaly.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Report(context.Context, Anomaly) {}

// LogReporter logs anomalies at warn level and counts them by kind.
type LogReporter struct {
	metrics *metrics.Registry
}

// NewLogReporter returns a reporter counting into m. m may be nil.
func NewLogReporter(m *metrics.Registry) *LogReporter {
	return &LogReporter{metrics: m}
}

func (r *LogReporter) Report(ctx context.Context, a Anomaly) {
	logging.FromContext(ctx).Warn("anomaly",
		"kind", a.Kind,
		"submission_id", a.SubmissionID,
		"field", a.Field,
		"error", errString(a.Err),
	)
	if r.metrics != nil {
		r.metrics.Anomalies.WithLabelValues(string(a.Kind)).Inc()
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Recorder keeps every anomaly in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Anomaly
}

func (r *Recorder) Report(_ context.Context, a Anomaly) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, a)
}

// All returns a copy of the recorded anomalies.
func (r *Recorder) All() []Anomaly {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Anomaly(nil), r.items...)
}

// Count returns how many anomalies of kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.items {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

// Multi fans out to several reporters.
type Multi []Reporter

func (m Multi) Report(ctx context.Context, a Anomaly) {
	for _, r := range m {
		r.Report(ctx, a)
	}
}

// Errorf builds an anomaly with a formatted error.
func Errorf(kind Kind, submissionID, field, format string, args ...any) Anomaly {
	return Anomaly{Kind: kind, SubmissionID: submissionID, Field: field, Err: fmt.Errorf(format, args...)}
}
