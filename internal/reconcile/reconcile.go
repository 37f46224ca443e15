// Package reconcile matches the permit system's result file against the
// submissions of the last export and builds the tracker summary.
//
// A run moves through these states:
//
//	ReadingRows -> SkipHeader    (header line, ignored)
//	            -> MatchFound    (row added, status updated on success)
//	            -> MatchMissing  (row ignored)
//	            ... end of file
//	MergingAddenda -> Done
package reconcile

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/JonMunkholm/permits/internal/anomaly"
	"github.com/JonMunkholm/permits/internal/handoff"
	"github.com/JonMunkholm/permits/internal/logging"
	"github.com/JonMunkholm/permits/internal/schema"
	"github.com/JonMunkholm/permits/internal/submission"
)

const (
	// HeaderToken starts the header line of a result file.
	HeaderToken = "FORMIO"

	// StatusSuccess marks a row the permit system imported.
	StatusSuccess = "Success"

	// NotProcessed marks submissions the permit system never saw.
	NotProcessed = "NOT PROCESSED"

	resultDelimiter = "|"
	maxLineSize     = 1 << 20
)

// State is a reconciliation step.
type State int

const (
	ReadingRows State = iota
	SkipHeader
	MatchFound
	MatchMissing
	MergingAddenda
	Done
)

func (s State) String() string {
	switch s {
	case ReadingRows:
		return "ReadingRows"
	case SkipHeader:
		return "SkipHeader"
	case MatchFound:
		return "MatchFound"
	case MatchMissing:
		return "MatchMissing"
	case MergingAddenda:
		return "MergingAddenda"
	case Done:
		return "Done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// StatusFunc marks a submission as accepted upstream.
type StatusFunc func(ctx context.Context, submissionID string) error

// Options configures a Reconciler.
type Options struct {
	StorageURLPrefix string
	PublicURLPrefix  string
	UpdateStatus     StatusFunc
	Reporter         anomaly.Reporter
}

// Inputs are the hand-off data of the export being reconciled.
type Inputs struct {
	Snapshot map[string]submission.Raw
	Addenda  []submission.Raw
	Failures []handoff.Failure
}

// Summary is the outcome of a reconciliation.
type Summary struct {
	Rows      []TrackerRow
	Matched   int
	Unmatched []string
	HTML      string
}

// Reconciler builds tracker summaries.
type Reconciler struct {
	opts Options
}

// New returns a Reconciler.
func New(opts Options) *Reconciler {
	if opts.Reporter == nil {
		opts.Reporter = anomaly.Discard
	}
	return &Reconciler{opts: opts}
}

// Run reads the result file and merges in the submissions it does not
// mention. Unmatched result rows are reported, never fatal. Status updates
// are attempted for every successful row; their failures are reported and
// do not change the summary.
func (r *Reconciler) Run(ctx context.Context, result io.Reader, in Inputs) (Summary, error) {
	logger := logging.FromContext(ctx)

	index := make(map[string]submission.Raw, len(in.Snapshot))
	for _, raw := range in.Snapshot {
		index[normalizeID(raw.ID)] = raw
	}

	var sum Summary
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(resultReader(result))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		fields := splitResultLine(scanner.Text())

		raw, state := classify(fields, index)
		switch state {
		case SkipHeader:
			continue

		case MatchMissing:
			id := fields[0]
			sum.Unmatched = append(sum.Unmatched, id)
			r.opts.Reporter.Report(ctx, anomaly.Errorf(anomaly.ResultRow, id, "", "result row does not match an exported submission"))

		case MatchFound:
			status, errText := field(fields, 1), field(fields, 2)
			sum.Rows = append(sum.Rows, r.rowFor(raw, status, errText))
			sum.Matched++
			seen[normalizeID(raw.ID)] = true

			if strings.EqualFold(status, StatusSuccess) {
				r.updateStatus(ctx, raw.ID)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Summary{}, fmt.Errorf("read result file: %w", err)
	}

	sum.Rows = append(sum.Rows, r.merge(in, index, seen)...)

	var buf bytes.Buffer
	if err := SummaryTable(sum.Rows).Render(ctx, &buf); err != nil {
		return Summary{}, fmt.Errorf("render summary: %w", err)
	}
	sum.HTML = buf.String()

	logger.Info("reconciliation complete",
		"rows", len(sum.Rows),
		"matched", sum.Matched,
		"unmatched", len(sum.Unmatched),
	)
	return sum, nil
}

// classify decides what a result line is.
func classify(fields []string, index map[string]submission.Raw) (submission.Raw, State) {
	id := strings.TrimSpace(fields[0])
	if strings.EqualFold(id, HeaderToken) {
		return submission.Raw{}, SkipHeader
	}
	raw, ok := index[normalizeID(id)]
	if !ok {
		return submission.Raw{}, MatchMissing
	}
	return raw, MatchFound
}

// merge adds the submissions the result file did not cover: addenda,
// resubmissions of the exported batch and logged failures, each once.
func (r *Reconciler) merge(in Inputs, index map[string]submission.Raw, seen map[string]bool) []TrackerRow {
	var rows []TrackerRow
	add := func(raw submission.Raw, status, errText string) {
		key := normalizeID(raw.ID)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		rows = append(rows, r.rowFor(raw, status, errText))
	}

	for _, raw := range in.Addenda {
		add(raw, NotProcessed, "")
	}

	for _, raw := range sortedSnapshot(in.Snapshot) {
		if schema.IsResubmission(raw.PermitType()) {
			add(raw, NotProcessed, "")
		}
	}

	for _, f := range in.Failures {
		raw, ok := index[normalizeID(f.SubmissionID)]
		if !ok {
			continue
		}
		add(raw, f.Status, f.Reason)
	}
	return rows
}

func (r *Reconciler) updateStatus(ctx context.Context, id string) {
	if r.opts.UpdateStatus == nil {
		return
	}
	if err := r.opts.UpdateStatus(ctx, id); err != nil {
		r.opts.Reporter.Report(ctx, anomaly.Anomaly{Kind: anomaly.StatusUpdate, SubmissionID: id, Err: err})
	}
}

func sortedSnapshot(snapshot map[string]submission.Raw) []submission.Raw {
	out := make([]submission.Raw, 0, len(snapshot))
	for _, raw := range snapshot {
		out = append(out, raw)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created != out[j].Created {
			return out[i].Created < out[j].Created
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func field(fields []string, i int) string {
	if i >= len(fields) {
		return ""
	}
	return fields[i]
}
