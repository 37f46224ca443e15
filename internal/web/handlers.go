package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/permits/internal/core"
	"github.com/JonMunkholm/permits/internal/logging"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleExport runs one export.
//
// Query parameters: start_date (YYYY-MM-DD), days, send_email, sftp_upload
// and format (csv or xlsx).
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	req, err := parseExportRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("export requested",
		"start_date", req.StartDate,
		"days", req.Days,
		"send_email", req.SendEmail,
		"sftp_upload", req.SFTPUpload,
		"format", req.Format,
	)

	res, err := s.runner.Export(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondSuccess(w, SuccessData{Message: res.Message, Responses: res.Responses, RunID: res.RunID})
}

// handleProcessResultFile reconciles the permit system's result file.
func (s *Server) handleProcessResultFile(w http.ResponseWriter, r *http.Request) {
	res, err := s.runner.ProcessResults(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondSuccess(w, SuccessData{Message: res.Message, Responses: res.Responses, RunID: res.RunID})
}

func parseExportRequest(r *http.Request) (core.ExportRequest, error) {
	q := r.URL.Query()
	req := core.ExportRequest{
		StartDate: strings.TrimSpace(q.Get("start_date")),
		Days:      1,
	}

	if v := strings.TrimSpace(q.Get("days")); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 {
			return req, fmt.Errorf("%w: days %q", core.ErrInvalidRequest, v)
		}
		req.Days = days
	}

	var err error
	if req.SendEmail, err = flag(q.Get("send_email")); err != nil {
		return req, fmt.Errorf("send_email: %w", err)
	}
	if req.SFTPUpload, err = flag(q.Get("sftp_upload")); err != nil {
		return req, fmt.Errorf("sftp_upload: %w", err)
	}
	if req.Format, err = core.ParseExportFormat(q.Get("format")); err != nil {
		return req, err
	}

	return req, nil
}

// flag parses a trigger switch such as send_email=1.
func flag(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "", "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("%w: flag value %q", core.ErrInvalidRequest, v)
}
