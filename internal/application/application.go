// Package application wires the export service and its collaborators from
// configuration. It is shared by the HTTP server and the CLI.
package application

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JonMunkholm/permits/internal/anomaly"
	"github.com/JonMunkholm/permits/internal/config"
	"github.com/JonMunkholm/permits/internal/core"
	"github.com/JonMunkholm/permits/internal/delivery"
	"github.com/JonMunkholm/permits/internal/formio"
	"github.com/JonMunkholm/permits/internal/handoff"
	"github.com/JonMunkholm/permits/internal/metrics"
	"github.com/JonMunkholm/permits/internal/schema"
	"github.com/JonMunkholm/permits/internal/valuemap"
)

// App holds the wired service.
type App struct {
	Config  *config.Config
	Service *core.Service
	Metrics *metrics.Registry
}

// New builds the service graph. It fails on an invalid classification table
// or an incomplete value-map directory, before any run starts.
func New(cfg *config.Config) (*App, error) {
	classification, err := schema.DefaultClassification()
	if err != nil {
		return nil, fmt.Errorf("field classification: %w", err)
	}

	values, err := loadValueMaps(cfg.Export.ValueMapDir)
	if err != nil {
		return nil, fmt.Errorf("value maps: %w", err)
	}

	loc, err := cfg.Export.Location()
	if err != nil {
		return nil, fmt.Errorf("export time zone: %w", err)
	}

	reg := metrics.NewRegistry()
	reporter := anomaly.NewLogReporter(reg)

	pipeline := core.NewPipeline(
		core.NewFlattener(classification, reporter),
		core.NewFormatter(classification, values, loc, reporter),
		reporter,
	)

	svc := core.NewService(core.ServiceDeps{
		Source: formio.New(cfg.Forms.BaseURL, cfg.Forms.APIKey, cfg.Forms.Timeout),
		Transfer: delivery.NewSFTP(delivery.SFTPConfig{
			Host:      cfg.SFTP.Host,
			Port:      cfg.SFTP.Port,
			User:      cfg.SFTP.User,
			Password:  cfg.SFTP.Password,
			HostKey:   cfg.SFTP.HostKey,
			RemoteDir: cfg.SFTP.RemoteDir,
			Timeout:   cfg.SFTP.Timeout,
		}),
		Mailer: delivery.NewSMTPMailer(delivery.SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			User:     cfg.Email.SMTPUser,
			Password: cfg.Email.SMTPPassword,
		}),
		Handoff:  handoff.New(cfg.Handoff.Dir),
		Pipeline: pipeline,
		Metrics:  reg,
		Reporter: reporter,
	}, core.ServiceConfig{
		Location:           loc,
		SubmissionEndpoint: cfg.Forms.SubmissionEndpoint,
		AddendaEndpoint:    cfg.Forms.AddendaEndpoint,
		LimitPerDay:        cfg.Export.LimitPerDay,
		StrictFetch:        cfg.Export.StrictFetch,
		FilePrefix:         cfg.Export.FilePrefix,
		EmailFrom:          cfg.Email.From,
		ExportRecipients: core.Recipients{
			To:  cfg.Email.ExportTo,
			Cc:  cfg.Email.ExportCc,
			Bcc: cfg.Email.ExportBcc,
		},
		SummaryRecipients: core.Recipients{
			To:  cfg.Email.SummaryTo,
			Cc:  cfg.Email.SummaryCc,
			Bcc: cfg.Email.SummaryBcc,
		},
		StorageURLPrefix: cfg.Storage.URLPrefix,
		PublicURLPrefix:  cfg.Storage.PublicURLPrefix,
	})

	if cfg.SFTP.Host == "" {
		slog.Warn("SFTP_HOSTNAME not set; uploads and result downloads will fail")
	}
	if cfg.Email.SMTPHost == "" {
		slog.Warn("SMTP_HOST not set; emails are logged instead of sent")
	}

	return &App{Config: cfg, Service: svc, Metrics: reg}, nil
}

// Schedule returns the scheduler settings for the configured cron specs.
func (a *App) Schedule() core.ScheduleConfig {
	return core.ScheduleConfig{
		ExportSpec:    a.Config.Schedule.ExportCron,
		ReconcileSpec: a.Config.Schedule.ReconcileCron,
		Export: core.ExportRequest{
			Days:       1,
			SendEmail:  a.Config.Schedule.ExportEmail,
			SFTPUpload: a.Config.Schedule.ExportSFTP,
			Format:     core.FormatCSV,
		},
	}
}

func loadValueMaps(dir string) (*valuemap.Store, error) {
	if dir == "" {
		return valuemap.LoadDefault()
	}
	slog.Info("loading value maps", "dir", dir)
	return valuemap.Load(os.DirFS(dir))
}
