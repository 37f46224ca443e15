package core

// scheduler.go runs exports and reconciliations on cron schedules.
//
// The scheduler is long-running and context-aware for graceful shutdown.
// A failed or skipped run is logged; the next tick runs normally.

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleConfig holds the cron specs of the scheduled runs. An empty spec
// disables that run.
type ScheduleConfig struct {
	ExportSpec    string
	ReconcileSpec string
	Export        ExportRequest
}

// StartScheduler runs the configured jobs until ctx is cancelled. It
// returns immediately when no job is configured.
func (s *Service) StartScheduler(ctx context.Context, cfg ScheduleConfig) error {
	c := cron.New(cron.WithLocation(s.cfg.Location))

	if cfg.ExportSpec != "" {
		if _, err := c.AddFunc(cfg.ExportSpec, func() {
			s.runJob(ctx, "export", func(ctx context.Context) error {
				_, err := s.Export(ctx, cfg.Export)
				return err
			})
		}); err != nil {
			return err
		}
	}
	if cfg.ReconcileSpec != "" {
		if _, err := c.AddFunc(cfg.ReconcileSpec, func() {
			s.runJob(ctx, "reconcile", func(ctx context.Context) error {
				_, err := s.ProcessResults(ctx)
				return err
			})
		}); err != nil {
			return err
		}
	}

	if len(c.Entries()) == 0 {
		return nil
	}

	slog.Info("scheduler started",
		"export_schedule", cfg.ExportSpec,
		"reconcile_schedule", cfg.ReconcileSpec,
	)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("scheduler stopped")
	return nil
}

func (s *Service) runJob(ctx context.Context, name string, job func(context.Context) error) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	err := job(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		slog.Warn("scheduled run skipped, another run in progress", "job", name)
	case errors.Is(err, ErrResultFileMissing):
		slog.Info("scheduled run found no result file yet", "job", name)
	case err != nil:
		slog.Error("scheduled run failed", "job", name, "error", err, "code", MapError(err).Code)
	default:
		slog.Info("scheduled run completed", "job", name, "duration_ms", time.Since(start).Milliseconds())
	}
}
