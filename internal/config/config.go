// Package config provides centralized configuration management for the permit
// export service. It loads configuration from environment variables with
// defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
	_ "time/tzdata"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Security SecurityConfig
	Forms    FormsConfig
	Export   ExportConfig
	SFTP     SFTPConfig
	Email    EmailConfig
	Storage  StorageConfig
	Handoff  HandoffConfig
	Schedule ScheduleConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"10m"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds a single export or reconcile run started over HTTP (default: 10m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"10m"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// ExportToken must be presented as the token query parameter (required)
	ExportToken string `env:"EXPORT_TOKEN" required:"true"`

	// AccessKey is an optional second accepted token
	AccessKey string `env:"ACCESS_KEY"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// FormsConfig holds the forms API settings.
type FormsConfig struct {
	BaseURL string `env:"API_BASE_URL" required:"true"`
	APIKey  string `env:"X_APIKEY" envAlt:"FORMS_API_KEY" required:"true"`

	SubmissionEndpoint string `env:"FORMS_SUBMISSION_ENDPOINT" default:"applications"`
	AddendaEndpoint    string `env:"FORMS_ADDENDA_ENDPOINT" default:"addenda"`

	Timeout time.Duration `env:"FORMS_TIMEOUT" default:"60s"`
}

// ExportConfig holds export window and feed settings.
type ExportConfig struct {
	// TimeZone is the IANA zone used for the export window and timestamps
	TimeZone string `env:"EXPORT_TIME_ZONE" default:"America/Los_Angeles"`

	// LimitPerDay is the forms query limit per day in the window (default: 2000)
	LimitPerDay int `env:"EXPORT_LIMIT_PER_DAY" default:"2000"`

	// StrictFetch turns an upstream fetch failure into a failed run (default: true)
	StrictFetch bool `env:"STRICT_FETCH" default:"true"`

	FilePrefix string `env:"EXPORT_FILE_PREFIX" default:"DBI_permits_"`

	// ValueMapDir overrides the embedded value-map reference files
	ValueMapDir string `env:"VALUE_MAP_DIR"`
}

// SFTPConfig holds the permit-system drop location.
type SFTPConfig struct {
	Host     string `env:"SFTP_HOSTNAME" envAlt:"SFTP_HOST"`
	Port     int    `env:"SFTP_PORT" default:"22"`
	User     string `env:"SFTP_USERNAME" envAlt:"SFTP_USER"`
	Password string `env:"SFTP_PASSWORD"`

	// HostKey is the server key in authorized_keys format; empty skips verification
	HostKey string `env:"SFTP_HOST_KEY"`

	RemoteDir string        `env:"SFTP_REMOTE_DIR"`
	Timeout   time.Duration `env:"SFTP_TIMEOUT" default:"30s"`
}

// EmailConfig holds SMTP and recipient settings.
type EmailConfig struct {
	// SMTPHost empty logs messages instead of sending them
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" default:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	From string `env:"EXPORT_EMAIL_FROM"`

	ExportTo  []string `env:"EXPORT_EMAIL_TO"`
	ExportCc  []string `env:"EXPORT_EMAIL_CC"`
	ExportBcc []string `env:"EXPORT_EMAIL_BCC"`

	SummaryTo  []string `env:"SUMMARY_EMAIL_TO"`
	SummaryCc  []string `env:"SUMMARY_EMAIL_CC"`
	SummaryBcc []string `env:"SUMMARY_EMAIL_BCC"`
}

// StorageConfig rewrites uploaded-file URLs in the tracker.
type StorageConfig struct {
	URLPrefix       string `env:"STORAGE_URL_PREFIX"`
	PublicURLPrefix string `env:"PUBLIC_URL_PREFIX"`
}

// HandoffConfig holds the local hand-off directory.
type HandoffConfig struct {
	Dir string `env:"HANDOFF_DIR" default:"exported_data"`
}

// ScheduleConfig holds optional in-process cron schedules.
// An empty spec disables that job.
type ScheduleConfig struct {
	ExportCron    string `env:"SCHEDULE_EXPORT_CRON"`
	ReconcileCron string `env:"SCHEDULE_RECONCILE_CRON"`

	// ExportEmail and ExportSFTP select delivery for scheduled exports
	ExportEmail bool `env:"SCHEDULE_EXPORT_EMAIL" default:"false"`
	ExportSFTP  bool `env:"SCHEDULE_EXPORT_SFTP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Location loads the export time zone.
func (c *ExportConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.TimeZone)
}
