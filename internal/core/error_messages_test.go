package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "wrapped unauthorized",
			err:         fmt.Errorf("export: %w", ErrUnauthorized),
			wantCode:    "AUTH001",
			wantMessage: "Unauthorized",
		},
		{
			name:        "fetch failure",
			err:         fmt.Errorf("%w: status 502", ErrFetchFailed),
			wantCode:    "FETCH001",
			wantMessage: "Submissions could not be fetched",
		},
		{
			name:        "missing result file wins over delivery",
			err:         fmt.Errorf("%w: %w", ErrDelivery, ErrResultFileMissing),
			wantCode:    "RESULT001",
			wantMessage: "The result file is not available yet",
		},
		{
			name:        "run in progress",
			err:         ErrRunInProgress,
			wantCode:    "RUN001",
			wantMessage: "Another run is in progress",
		},
		{
			name:        "connection refused by pattern",
			err:         errors.New("dial tcp 10.0.0.1:22: connect: connection refused"),
			wantCode:    "NET001",
			wantMessage: "Unable to connect to a remote system",
		},
		{
			name:        "timeout by pattern",
			err:         errors.New("i/o TIMEOUT"),
			wantCode:    "NET002",
			wantMessage: "Operation timed out",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(fmt.Errorf("%w: smtp 550", ErrDelivery))

	expected := "File transfer or email delivery failed (Code: DELIVERY001). Check SFTP and SMTP settings and try again"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error is not user facing", err: nil, want: false},
		{name: "sentinel is user facing", err: ErrHandoff, want: true},
		{name: "unknown error is not user facing", err: errors.New("random internal error xyz"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}
