package web

// errors.go provides the response envelopes for the trigger endpoints.
//
// Callers only ever see two messages: "Unauthorized" for a bad token and a
// generic "Bad Request" for everything else. The mapped error code from
// core.MapError is logged with the request ID so operators can correlate.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/permits/internal/core"
	"github.com/JonMunkholm/permits/internal/logging"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	messageUnauthorized = "Unauthorized"
	messageGeneric      = "Bad Request"
)

// SuccessResponse is the envelope of a completed run.
type SuccessResponse struct {
	Status string      `json:"status"`
	Data   SuccessData `json:"data"`
}

// SuccessData carries the run outcome.
type SuccessData struct {
	Message   string `json:"message"`
	Responses int    `json:"responses"`
	RunID     string `json:"run_id,omitempty"`
}

// ErrorResponse is the envelope of a failed or rejected request.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// respondError logs the technical error and writes the collapsed envelope.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	userMsg := core.MapError(err)
	status := statusFor(err)

	logging.FromContext(r.Context()).Error("request failed",
		"path", r.URL.Path,
		"status", status,
		"code", userMsg.Code,
		"error", err,
	)

	message := messageGeneric
	if status == http.StatusUnauthorized {
		message = messageUnauthorized
	}
	writeJSON(w, status, ErrorResponse{Status: statusError, Message: message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrRunInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// unauthorized is the token middleware's rejection handler.
func unauthorized(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, core.ErrUnauthorized)
}

func respondSuccess(w http.ResponseWriter, data SuccessData) {
	writeJSON(w, http.StatusOK, SuccessResponse{Status: statusSuccess, Data: data})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}
