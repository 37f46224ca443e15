package core

// # Error Codes Reference
//
// Errors returned by Service are wrapped around one of the sentinels below.
// MapError turns any error into a UserMessage carrying a code that support
// staff can look up here. HTTP callers only ever see "Unauthorized" or a
// generic message; the code goes to the logs.
//
//	AUTH001     - Caller token missing or wrong.
//	FETCH001    - The forms API could not be queried.
//	HANDOFF001  - Hand-off files between export and reconciliation unreadable or unwritable.
//	DELIVERY001 - SFTP upload, download or email send failed.
//	RESULT001   - The downstream result file has not been produced yet.
//	RUN001      - Another export or reconciliation run is in progress.
//	REQ001      - Request parameters invalid.
//	NET001      - Connection refused or reset talking to a remote system.
//	NET002      - A remote call timed out.
//	ERR000      - Anything else. Check the logs for the original error.
//
// Sentinels are matched with errors.Is first; the substring patterns only
// classify errors that arrive without a sentinel.

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrFetchFailed       = errors.New("fetch submissions failed")
	ErrHandoff           = errors.New("handoff state unavailable")
	ErrDelivery          = errors.New("delivery failed")
	ErrResultFileMissing = errors.New("result file not found")
	ErrRunInProgress     = errors.New("run already in progress")
	ErrInvalidRequest    = errors.New("invalid request")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

// Order matters: a delivery error wrapping a missing result file reports
// RESULT001.
var sentinelMessages = []sentinelMessage{
	{ErrUnauthorized, UserMessage{
		Message: "Unauthorized",
		Action:  "Supply a valid token",
		Code:    "AUTH001",
	}},
	{ErrRunInProgress, UserMessage{
		Message: "Another run is in progress",
		Action:  "Wait for the current run to finish and try again",
		Code:    "RUN001",
	}},
	{ErrResultFileMissing, UserMessage{
		Message: "The result file is not available yet",
		Action:  "Try again after the permit system has processed the export",
		Code:    "RESULT001",
	}},
	{ErrFetchFailed, UserMessage{
		Message: "Submissions could not be fetched",
		Action:  "Check the forms API credentials and availability",
		Code:    "FETCH001",
	}},
	{ErrHandoff, UserMessage{
		Message: "Export state could not be read or written",
		Action:  "Run an export before processing results; check the handoff directory",
		Code:    "HANDOFF001",
	}},
	{ErrDelivery, UserMessage{
		Message: "File transfer or email delivery failed",
		Action:  "Check SFTP and SMTP settings and try again",
		Code:    "DELIVERY001",
	}},
	{ErrInvalidRequest, UserMessage{
		Message: "Invalid request parameters",
		Action:  "Check start_date (YYYY-MM-DD), days and format",
		Code:    "REQ001",
	}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to a remote system",
			Action:  "Please try again in a few moments",
			Code:    "NET001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Connection was interrupted",
			Action:  "Please try again",
			Code:    "NET001",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a shorter export window or try again later",
			Code:    "NET002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a shorter export window or try again later",
			Code:    "NET002",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	msg := MapError(fmt.Errorf("%w: sftp: permission denied", ErrDelivery))
//	// msg.Code == "DELIVERY001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
