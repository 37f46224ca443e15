package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/permits/internal/application"
	"github.com/JonMunkholm/permits/internal/config"
	"github.com/JonMunkholm/permits/internal/core"
	"github.com/JonMunkholm/permits/internal/logging"
)

// runner is the part of core.Service the commands drive.
type runner interface {
	Export(ctx context.Context, req core.ExportRequest) (core.ExportResult, error)
	ProcessResults(ctx context.Context) (core.ReconcileResult, error)
}

type runnerLoader func(envFile string, verbose bool) (runner, error)

// loadRunner reads the environment (and env file) and wires the service.
func loadRunner(envFile string, verbose bool) (runner, error) {
	if envFile != "" {
		err := godotenv.Overload(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logging.Setup(level, cfg.Logging.Format)

	app, err := application.New(cfg)
	if err != nil {
		return nil, err
	}
	return app.Service, nil
}

func newRootCmd(load runnerLoader) *cobra.Command {
	var (
		envFile string
		verbose bool
	)

	root := &cobra.Command{
		Use:           "permitctl",
		Short:         "Run permit submission exports and result reconciliation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file to load if present; empty to skip")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	connect := func() (runner, error) {
		return load(envFile, verbose)
	}

	root.AddCommand(newExportCmd(connect), newProcessResultsCmd(connect))
	return root
}

func newExportCmd(connect func() (runner, error)) *cobra.Command {
	var (
		req    core.ExportRequest
		format string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export submissions for a window and deliver the feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := core.ParseExportFormat(format)
			if err != nil {
				return err
			}
			req.Format = f

			r, err := connect()
			if err != nil {
				return err
			}
			res, err := r.Export(cmd.Context(), req)
			if err != nil {
				slog.Error("export failed", "code", core.MapError(err).Code, "error", err)
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&req.StartDate, "start-date", "", "first day of the window (YYYY-MM-DD); default yesterday")
	cmd.Flags().IntVar(&req.Days, "days", 1, "number of days in the window")
	cmd.Flags().BoolVar(&req.SendEmail, "email", false, "email the export to the export recipients")
	cmd.Flags().BoolVar(&req.SFTPUpload, "sftp", false, "upload the pipe-delimited feed over SFTP")
	cmd.Flags().StringVar(&format, "format", string(core.FormatCSV), "email attachment format: csv or xlsx")
	return cmd
}

func newProcessResultsCmd(connect func() (runner, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "process-results",
		Short: "Reconcile the permit system's result file for the last export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := connect()
			if err != nil {
				return err
			}
			res, err := r.ProcessResults(cmd.Context())
			if err != nil {
				slog.Error("reconcile failed", "code", core.MapError(err).Code, "error", err)
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
