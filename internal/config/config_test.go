package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// env returns a lookup over the given variables plus the required ones.
func env(vars map[string]string) func(string) string {
	base := map[string]string{
		"EXPORT_TOKEN": "secret-token",
		"API_BASE_URL": "https://forms.example.org/project",
		"X_APIKEY":     "forms-key",
	}
	for k, v := range vars {
		base[k] = v
	}
	return func(k string) string { return base[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(env(nil))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Forms.SubmissionEndpoint != "applications" {
		t.Errorf("Forms.SubmissionEndpoint = %q, want %q", cfg.Forms.SubmissionEndpoint, "applications")
	}
	if cfg.Export.TimeZone != "America/Los_Angeles" {
		t.Errorf("Export.TimeZone = %q, want %q", cfg.Export.TimeZone, "America/Los_Angeles")
	}
	if cfg.Export.LimitPerDay != 2000 {
		t.Errorf("Export.LimitPerDay = %d, want %d", cfg.Export.LimitPerDay, 2000)
	}
	if !cfg.Export.StrictFetch {
		t.Error("Export.StrictFetch = false, want true")
	}
	if cfg.Export.FilePrefix != "DBI_permits_" {
		t.Errorf("Export.FilePrefix = %q, want %q", cfg.Export.FilePrefix, "DBI_permits_")
	}
	if cfg.SFTP.Port != 22 {
		t.Errorf("SFTP.Port = %d, want %d", cfg.SFTP.Port, 22)
	}
	if cfg.Handoff.Dir != "exported_data" {
		t.Errorf("Handoff.Dir = %q, want %q", cfg.Handoff.Dir, "exported_data")
	}
	if cfg.Schedule.ExportCron != "" {
		t.Errorf("Schedule.ExportCron = %q, want empty", cfg.Schedule.ExportCron)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("EXPORT_TOKEN", "from-env")
	t.Setenv("API_BASE_URL", "https://forms.example.org")
	t.Setenv("X_APIKEY", "k")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Security.ExportToken != "from-env" {
		t.Errorf("Security.ExportToken = %q, want %q", cfg.Security.ExportToken, "from-env")
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"SERVER_PORT":          "9090",
		"EXPORT_LIMIT_PER_DAY": "500",
		"STRICT_FETCH":         "false",
		"LOG_LEVEL":            "debug",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Export.LimitPerDay != 500 {
		t.Errorf("Export.LimitPerDay = %d, want %d", cfg.Export.LimitPerDay, 500)
	}
	if cfg.Export.StrictFetch {
		t.Error("Export.StrictFetch = true, want false")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"SFTP_HOST": "sftp.example.org",
		"SFTP_USER": "dbi",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.SFTP.Host != "sftp.example.org" {
		t.Errorf("SFTP.Host = %q, want %q", cfg.SFTP.Host, "sftp.example.org")
	}
	if cfg.SFTP.User != "dbi" {
		t.Errorf("SFTP.User = %q, want %q", cfg.SFTP.User, "dbi")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	for _, name := range []string{"EXPORT_TOKEN", "API_BASE_URL", "X_APIKEY"} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(env(map[string]string{name: ""}))
			if err == nil {
				t.Fatalf("LoadFrom() expected error for missing %s", name)
			}
			if !strings.Contains(err.Error(), name) {
				t.Errorf("error %q does not name %s", err, name)
			}
		})
	}
}

func TestLoad_Duration(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"SERVER_READ_TIMEOUT": "45s",
		"FORMS_TIMEOUT":       "1m30s",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want %v", cfg.Server.ReadTimeout, 45*time.Second)
	}
	if cfg.Forms.Timeout != 90*time.Second {
		t.Errorf("Forms.Timeout = %v, want %v", cfg.Forms.Timeout, 90*time.Second)
	}
}

func TestLoad_CommaSeparatedSlice(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"EXPORT_EMAIL_TO":  "a@example.org, b@example.org ,",
		"SUMMARY_EMAIL_CC": "ops@example.org",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	want := []string{"a@example.org", "b@example.org"}
	if !reflect.DeepEqual(cfg.Email.ExportTo, want) {
		t.Errorf("Email.ExportTo = %v, want %v", cfg.Email.ExportTo, want)
	}
	if len(cfg.Email.SummaryCc) != 1 {
		t.Errorf("Email.SummaryCc = %v, want one entry", cfg.Email.SummaryCc)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"bad integer", map[string]string{"SERVER_PORT": "eighty"}},
		{"bad duration", map[string]string{"FORMS_TIMEOUT": "soon"}},
		{"bad boolean", map[string]string{"STRICT_FETCH": "maybe"}},
		{"port out of range", map[string]string{"SERVER_PORT": "70000"}},
		{"unknown zone", map[string]string{"EXPORT_TIME_ZONE": "Mars/Olympus"}},
		{"zero limit", map[string]string{"EXPORT_LIMIT_PER_DAY": "0"}},
		{"bad cron", map[string]string{"SCHEDULE_EXPORT_CRON": "every day"}},
		{"bad base url", map[string]string{"API_BASE_URL": "forms.example.org"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}},
		{"smtp without sender", map[string]string{"SMTP_HOST": "smtp.example.org"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFrom(env(tt.vars)); err == nil {
				t.Error("LoadFrom() expected error")
			}
		})
	}
}

func TestLoad_ValidSchedules(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"SCHEDULE_EXPORT_CRON":    "0 6 * * *",
		"SCHEDULE_RECONCILE_CRON": "@every 1h",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Schedule.ExportCron != "0 6 * * *" {
		t.Errorf("Schedule.ExportCron = %q", cfg.Schedule.ExportCron)
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for zero config")
	}
	for _, want := range []string{"SERVER_PORT", "EXPORT_TOKEN", "API_BASE_URL", "LOG_LEVEL"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error missing %s: %v", want, err)
		}
	}
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"0.0.0.0", 8080, "0.0.0.0:8080"},
		{"", 9090, ":9090"},
		{"::1", 80, "[::1]:80"},
	}
	for _, tt := range tests {
		c := ServerConfig{Host: tt.host, Port: tt.port}
		if got := c.Addr(); got != tt.want {
			t.Errorf("Addr() = %q, want %q", got, tt.want)
		}
	}
}

func TestString_MasksSecrets(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"SFTP_PASSWORD": "hunter2",
		"SMTP_PASSWORD": "smtp-pass",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	s := cfg.String()
	for _, secret := range []string{"secret-token", "forms-key", "hunter2", "smtp-pass"} {
		if strings.Contains(s, secret) {
			t.Errorf("String() leaks %q: %s", secret, s)
		}
	}
	if !strings.Contains(s, "[MASKED]") {
		t.Errorf("String() = %s, want masked values", s)
	}
}

func TestMustLoad_PanicsOnError(t *testing.T) {
	t.Setenv("EXPORT_TOKEN", "")
	defer func() {
		if recover() == nil {
			t.Error("MustLoad() did not panic")
		}
	}()
	MustLoad()
}
