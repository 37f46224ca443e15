// Package logging provides structured logging configuration using log/slog.
//
// Loggers obtained through FromContext carry the chi request ID of the
// HTTP request that triggered the work and, once a pipeline run has
// started, the run ID and run kind. Every anomaly, delivery attempt and
// status update of one export can be correlated through run_id.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type runKey struct{}

type runInfo struct {
	id   string
	kind string
}

// WithRun marks ctx as belonging to a new pipeline run of the given kind
// ("export", "reconcile") and returns the run-scoped context and logger.
func WithRun(ctx context.Context, kind string) (context.Context, *slog.Logger) {
	ctx = context.WithValue(ctx, runKey{}, runInfo{id: uuid.NewString(), kind: kind})
	return ctx, FromContext(ctx)
}

// RunID returns the ID of the run ctx belongs to, or "".
func RunID(ctx context.Context) string {
	info, _ := ctx.Value(runKey{}).(runInfo)
	return info.id
}

// FromContext returns a logger enriched with request and run context.
//
//	logger := logging.FromContext(r.Context())
//	logger.Info("export requested", "days", days)
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if info, ok := ctx.Value(runKey{}).(runInfo); ok {
		logger = logger.With("run_id", info.id, "run", info.kind)
	}

	return logger
}

// WithFields returns a logger with additional structured fields.
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
