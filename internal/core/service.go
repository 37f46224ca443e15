package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/permits/internal/anomaly"
	"github.com/JonMunkholm/permits/internal/delivery"
	"github.com/JonMunkholm/permits/internal/handoff"
	"github.com/JonMunkholm/permits/internal/logging"
	"github.com/JonMunkholm/permits/internal/metrics"
	"github.com/JonMunkholm/permits/internal/reconcile"
	"github.com/JonMunkholm/permits/internal/submission"
)

// SubmissionSource reads and updates submissions in the forms system.
type SubmissionSource interface {
	Query(ctx context.Context, endpoint string, filter map[string]string) ([]submission.Raw, error)
	UpdateStatus(ctx context.Context, endpoint, id string) error
}

// FileTransfer moves files to and from the permit system's drop box.
type FileTransfer interface {
	Upload(ctx context.Context, name string, data []byte) error
	Download(ctx context.Context, name string) ([]byte, error)
}

// Mailer sends email.
type Mailer interface {
	Send(ctx context.Context, msg delivery.Message) error
}

// Recipients is one address list set.
type Recipients struct {
	To  []string
	Cc  []string
	Bcc []string
}

// ServiceConfig holds the run settings of a Service.
type ServiceConfig struct {
	Location           *time.Location
	SubmissionEndpoint string
	AddendaEndpoint    string
	LimitPerDay        int
	StrictFetch        bool
	FilePrefix         string
	EmailFrom          string
	ExportRecipients   Recipients
	SummaryRecipients  Recipients
	StorageURLPrefix   string
	PublicURLPrefix    string
}

// ServiceDeps are the collaborators of a Service.
type ServiceDeps struct {
	Source   SubmissionSource
	Transfer FileTransfer
	Mailer   Mailer
	Handoff  *handoff.Store
	Pipeline *Pipeline
	Metrics  *metrics.Registry
	Reporter anomaly.Reporter
	Now      func() time.Time
}

// Service runs exports and reconciliations. At most one run executes at a
// time; a second caller gets ErrRunInProgress.
type Service struct {
	cfg      ServiceConfig
	source   SubmissionSource
	transfer FileTransfer
	mailer   Mailer
	handoff  *handoff.Store
	pipeline *Pipeline
	metrics  *metrics.Registry
	reporter anomaly.Reporter
	now      func() time.Time

	gate *runGate
}

// NewService creates a Service.
func NewService(deps ServiceDeps, cfg ServiceConfig) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.LimitPerDay <= 0 {
		cfg.LimitPerDay = DefaultLimitPerDay
	}
	if deps.Reporter == nil {
		deps.Reporter = anomaly.Discard
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewRegistry()
	}
	return &Service{
		cfg:      cfg,
		source:   deps.Source,
		transfer: deps.Transfer,
		mailer:   deps.Mailer,
		handoff:  deps.Handoff,
		pipeline: deps.Pipeline,
		metrics:  deps.Metrics,
		reporter: deps.Reporter,
		now:      deps.Now,
		gate:     newRunGate(),
	}
}

// WaitIdle blocks until no run is in flight or ctx is done.
func (s *Service) WaitIdle(ctx context.Context) error {
	return s.gate.WaitForDrain(ctx)
}

// ExportFormat selects the email attachment encoding.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// ParseExportFormat accepts "", "csv" and "xlsx".
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FormatCSV):
		return FormatCSV, nil
	case string(FormatXLSX):
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", ErrInvalidRequest, s)
}

// ExportRequest describes one export run.
type ExportRequest struct {
	StartDate  string // YYYY-MM-DD in the service time zone; empty means yesterday
	Days       int
	SendEmail  bool
	SFTPUpload bool
	Format     ExportFormat
}

// ExportResult reports an export run.
type ExportResult struct {
	RunID     string
	Message   string
	Responses int
	Exported  int
	Excluded  int
	FileName  string
}

// ReconcileResult reports a reconciliation run.
type ReconcileResult struct {
	RunID      string
	Message    string
	Responses  int
	Unmatched  int
	ResultFile string
}

// Export fetches the window's submissions, transforms them, records the
// hand-off state and delivers the feed.
func (s *Service) Export(ctx context.Context, req ExportRequest) (_ ExportResult, err error) {
	if !s.gate.TryAcquire("export") {
		return ExportResult{}, fmt.Errorf("%w: %s", ErrRunInProgress, s.gate.Active())
	}
	defer s.gate.Release()

	ctx, logger := logging.WithRun(ctx, "export")
	start := s.now()
	defer s.observe("export", start, &err)

	if req.Days <= 0 {
		req.Days = 1
	}
	if req.Format == "" {
		req.Format = FormatCSV
	}
	win, err := exportWindow(start, s.cfg.Location, req.StartDate, req.Days)
	if err != nil {
		return ExportResult{}, err
	}
	logger.Info("export started",
		"from", win.start.Format(time.RFC3339),
		"to", win.end.Format(time.RFC3339),
		"sftp", req.SFTPUpload,
		"email", req.SendEmail,
	)

	subs, err := s.fetch(ctx, s.cfg.SubmissionEndpoint, win.filter(s.cfg.LimitPerDay*req.Days))
	if err != nil {
		return ExportResult{}, err
	}

	batch := s.pipeline.Transform(ctx, subs)
	s.metrics.RecordsExcluded.Add(float64(len(batch.Excluded)))

	if _, err := s.handoff.AppendFailures(failuresOf(batch.Excluded)); err != nil {
		return ExportResult{}, fmt.Errorf("%w: %w", ErrHandoff, err)
	}

	fileName := s.cfg.FilePrefix + start.In(s.cfg.Location).Format("200601021504") + ".csv"
	res := ExportResult{
		RunID:     logging.RunID(ctx),
		Responses: len(subs),
		Exported:  len(batch.Records),
		Excluded:  len(batch.Excluded),
		FileName:  fileName,
		Message:   fmt.Sprintf("Export %s to %s", win.start.Format(time.RFC3339), win.end.Format(time.RFC3339)),
	}

	if req.SFTPUpload {
		feed := batch.Delimited('|')
		err := s.transfer.Upload(ctx, fileName, []byte(feed))
		s.metrics.Delivery("sftp", err)
		if err != nil {
			s.reporter.Report(ctx, anomaly.Anomaly{Kind: anomaly.Delivery, Field: "sftp", Err: err})
			return ExportResult{}, fmt.Errorf("%w: %w", ErrDelivery, err)
		}
		// The snapshot and the export name move together: the next
		// reconcile joins the result file of this feed against this batch.
		if err := s.handoff.WriteSnapshot(subs); err != nil {
			return ExportResult{}, fmt.Errorf("%w: %w", ErrHandoff, err)
		}
		if err := s.handoff.WriteExportName(fileName); err != nil {
			return ExportResult{}, fmt.Errorf("%w: %w", ErrHandoff, err)
		}
	}

	if req.SendEmail {
		if err := s.emailExport(ctx, batch, req.Format, fileName, win, res.Message); err != nil {
			return ExportResult{}, err
		}
	}

	s.metrics.RecordsExported.Add(float64(len(batch.Records)))
	logger.Info("export complete",
		"fetched", res.Responses,
		"exported", res.Exported,
		"excluded", res.Excluded,
		"file", fileName,
	)
	return res, nil
}

func (s *Service) emailExport(ctx context.Context, batch Batch, format ExportFormat, fileName string, win window, body string) error {
	att := &delivery.Attachment{Name: fileName, MIMEType: delivery.MIMECSV}
	switch format {
	case FormatXLSX:
		data, err := batch.Workbook()
		if err != nil {
			return fmt.Errorf("build workbook: %w", err)
		}
		att.Name = strings.TrimSuffix(fileName, ".csv") + ".xlsx"
		att.MIMEType = delivery.MIMEXLSX
		att.Data = data
	default:
		att.Data = []byte(batch.Delimited(','))
	}

	msg := delivery.Message{
		From:       s.cfg.EmailFrom,
		To:         s.cfg.ExportRecipients.To,
		Cc:         s.cfg.ExportRecipients.Cc,
		Bcc:        s.cfg.ExportRecipients.Bcc,
		Subject:    "Export " + win.start.Format("2006-01-02"),
		Body:       body,
		Attachment: att,
	}
	err := s.mailer.Send(ctx, msg)
	s.metrics.Delivery("email", err)
	if err != nil {
		s.reporter.Report(ctx, anomaly.Anomaly{Kind: anomaly.Delivery, Field: "email", Err: err})
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	return nil
}

// ProcessResults reconciles the result file of the last uploaded feed and
// emails the tracker summary.
func (s *Service) ProcessResults(ctx context.Context) (_ ReconcileResult, err error) {
	if !s.gate.TryAcquire("reconcile") {
		return ReconcileResult{}, fmt.Errorf("%w: %s", ErrRunInProgress, s.gate.Active())
	}
	defer s.gate.Release()

	ctx, logger := logging.WithRun(ctx, "reconcile")
	start := s.now()
	defer s.observe("reconcile", start, &err)

	exportName, err := s.handoff.ExportName()
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("%w: %w", ErrHandoff, err)
	}
	resultName := ResultFileName(exportName)

	data, err := s.transfer.Download(ctx, resultName)
	s.metrics.Delivery("sftp", err)
	if errors.Is(err, fs.ErrNotExist) {
		return ReconcileResult{}, fmt.Errorf("%w: %s", ErrResultFileMissing, resultName)
	}
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	snapshot, err := s.handoff.Snapshot()
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("%w: %w", ErrHandoff, err)
	}
	failures, err := s.handoff.Failures()
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("%w: %w", ErrHandoff, err)
	}

	var addenda []submission.Raw
	if s.cfg.AddendaEndpoint != "" {
		addenda, err = s.fetch(ctx, s.cfg.AddendaEndpoint, map[string]string{
			"limit": strconv.Itoa(s.cfg.LimitPerDay),
		})
		if err != nil {
			return ReconcileResult{}, err
		}
	}

	r := reconcile.New(reconcile.Options{
		StorageURLPrefix: s.cfg.StorageURLPrefix,
		PublicURLPrefix:  s.cfg.PublicURLPrefix,
		Reporter:         s.reporter,
		UpdateStatus: func(ctx context.Context, id string) error {
			return s.source.UpdateStatus(ctx, s.cfg.SubmissionEndpoint, id)
		},
	})
	sum, err := r.Run(ctx, bytes.NewReader(data), reconcile.Inputs{
		Snapshot: snapshot,
		Addenda:  addenda,
		Failures: failures,
	})
	if err != nil {
		return ReconcileResult{}, err
	}
	s.metrics.ResultRows.WithLabelValues("matched").Add(float64(sum.Matched))
	s.metrics.ResultRows.WithLabelValues("unmatched").Add(float64(len(sum.Unmatched)))
	s.metrics.ResultRows.WithLabelValues("merged").Add(float64(len(sum.Rows) - sum.Matched))

	if err := s.emailSummary(ctx, sum); err != nil {
		return ReconcileResult{}, err
	}

	logger.Info("results processed", "file", resultName, "rows", len(sum.Rows))
	return ReconcileResult{
		RunID:      logging.RunID(ctx),
		Message:    resultName,
		Responses:  len(sum.Rows),
		Unmatched:  len(sum.Unmatched),
		ResultFile: resultName,
	}, nil
}

func (s *Service) emailSummary(ctx context.Context, sum reconcile.Summary) error {
	if len(s.cfg.SummaryRecipients.To) == 0 {
		logging.FromContext(ctx).Warn("no summary recipients configured, skipping summary email")
		return nil
	}
	tracker, err := reconcile.Workbook(sum.Rows)
	if err != nil {
		return fmt.Errorf("build tracker: %w", err)
	}

	err = s.mailer.Send(ctx, delivery.Message{
		From:    s.cfg.EmailFrom,
		To:      s.cfg.SummaryRecipients.To,
		Cc:      s.cfg.SummaryRecipients.Cc,
		Bcc:     s.cfg.SummaryRecipients.Bcc,
		Subject: "CSV export summary",
		Body:    sum.HTML,
		HTML:    true,
		Attachment: &delivery.Attachment{
			Name:     "Tracker.xlsx",
			MIMEType: delivery.MIMEXLSX,
			Data:     tracker,
		},
	})
	s.metrics.Delivery("email", err)
	if err != nil {
		s.reporter.Report(ctx, anomaly.Anomaly{Kind: anomaly.Delivery, Field: "email", Err: err})
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	return nil
}

// fetch queries the forms API. With StrictFetch a failure fails the run;
// otherwise it is reported and the run continues with no submissions.
func (s *Service) fetch(ctx context.Context, endpoint string, filter map[string]string) ([]submission.Raw, error) {
	subs, err := s.source.Query(ctx, endpoint, filter)
	if err != nil {
		s.reporter.Report(ctx, anomaly.Anomaly{Kind: anomaly.Fetch, Field: endpoint, Err: err})
		if s.cfg.StrictFetch {
			return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, endpoint, err)
		}
		return nil, nil
	}
	s.metrics.SubmissionsFetched.Add(float64(len(subs)))
	return subs, nil
}

func (s *Service) observe(run string, start time.Time, err *error) {
	s.metrics.RunDuration.WithLabelValues(run).Observe(s.now().Sub(start).Seconds())
	if *err != nil && !errors.Is(*err, ErrRunInProgress) {
		s.metrics.RunFailures.WithLabelValues(run).Inc()
	}
}

// ResultFileName returns the name of the result file the permit system
// writes for an uploaded feed.
func ResultFileName(exportName string) string {
	return strings.TrimSuffix(exportName, ".csv") + "_response.csv"
}

func failuresOf(excluded []Exclusion) []handoff.Failure {
	out := make([]handoff.Failure, len(excluded))
	for i, e := range excluded {
		out[i] = handoff.Failure{SubmissionID: e.SubmissionID, Status: e.Status, Reason: e.Reason}
	}
	return out
}
