package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with a custom variable lookup.
func LoadFrom(lookup func(string) string) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), lookup); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value, lookup func(string) string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal, lookup); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := strings.TrimSpace(lookup(envName))
		if value == "" && envAlt != "" {
			value = strings.TrimSpace(lookup(envAlt))
		}

		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Split comma-separated values, trim whitespace
			parts := strings.Split(value, ",")
			result := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					result = append(result, p)
				}
			}
			field.Set(reflect.ValueOf(result))
		} else {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "SERVER_REQUEST_TIMEOUT must be positive")
	}

	if c.Security.ExportToken == "" {
		errs = append(errs, "EXPORT_TOKEN is required")
	}

	// Forms validation
	if !strings.HasPrefix(c.Forms.BaseURL, "http://") && !strings.HasPrefix(c.Forms.BaseURL, "https://") {
		errs = append(errs, fmt.Sprintf("API_BASE_URL (%q) must be an http(s) URL", c.Forms.BaseURL))
	}
	if c.Forms.SubmissionEndpoint == "" {
		errs = append(errs, "FORMS_SUBMISSION_ENDPOINT must not be empty")
	}
	if c.Forms.Timeout <= 0 {
		errs = append(errs, "FORMS_TIMEOUT must be positive")
	}

	// Export validation
	if _, err := c.Export.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("EXPORT_TIME_ZONE (%q) is not a known zone", c.Export.TimeZone))
	}
	if c.Export.LimitPerDay <= 0 {
		errs = append(errs, "EXPORT_LIMIT_PER_DAY must be positive")
	}

	if c.SFTP.Port <= 0 || c.SFTP.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SFTP_PORT (%d) must be 1-65535", c.SFTP.Port))
	}
	if c.Email.SMTPPort <= 0 || c.Email.SMTPPort > 65535 {
		errs = append(errs, fmt.Sprintf("SMTP_PORT (%d) must be 1-65535", c.Email.SMTPPort))
	}
	if c.Email.SMTPHost != "" && c.Email.From == "" {
		errs = append(errs, "EXPORT_EMAIL_FROM is required when SMTP_HOST is set")
	}

	if c.Handoff.Dir == "" {
		errs = append(errs, "HANDOFF_DIR must not be empty")
	}

	// Schedule validation
	schedules := []struct{ name, spec string }{
		{"SCHEDULE_EXPORT_CRON", c.Schedule.ExportCron},
		{"SCHEDULE_RECONCILE_CRON", c.Schedule.ReconcileCron},
	}
	for _, s := range schedules {
		if s.spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(s.spec); err != nil {
			errs = append(errs, fmt.Sprintf("%s (%q) is not a valid cron spec: %v", s.name, s.spec, err))
		}
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Secrets are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Security: {ExportToken: %s, AccessKey: %s}, ",
		mask(c.Security.ExportToken), mask(c.Security.AccessKey)))
	b.WriteString(fmt.Sprintf("Forms: {BaseURL: %q, APIKey: %s, Endpoint: %q}, ",
		c.Forms.BaseURL, mask(c.Forms.APIKey), c.Forms.SubmissionEndpoint))
	b.WriteString(fmt.Sprintf("Export: {TimeZone: %q, LimitPerDay: %d, StrictFetch: %v}, ",
		c.Export.TimeZone, c.Export.LimitPerDay, c.Export.StrictFetch))
	b.WriteString(fmt.Sprintf("SFTP: {Host: %q, User: %q, Password: %s}, ",
		c.SFTP.Host, c.SFTP.User, mask(c.SFTP.Password)))
	b.WriteString(fmt.Sprintf("Email: {SMTPHost: %q, SMTPPassword: %s}, ",
		c.Email.SMTPHost, mask(c.Email.SMTPPassword)))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}

func mask(s string) string {
	if s == "" {
		return "[EMPTY]"
	}
	return "[MASKED]"
}
