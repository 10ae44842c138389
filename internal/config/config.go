// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingConfig is returned when a required environment variable is unset.
var ErrMissingConfig = errors.New("missing required configuration")

// Transport modes for the MCP server.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config holds all application configuration.
type Config struct {
	Odoo      OdooConfig
	Transport string
	Host      string
	Port      string
	LogLevel  slog.Level
	Audit     AuditConfig

	// CORSAllowedOrigins applies to the HTTP transport only. Requests that
	// carry an Origin outside this list are refused; empty refuses every
	// browser origin.
	CORSAllowedOrigins []string
}

// OdooConfig identifies the remote Odoo server and the account used to query it.
type OdooConfig struct {
	URL      string
	Database string
	Username string
	Password string // password or API key
	Timeout  time.Duration
}

// AuditConfig controls the SQLite tool-call audit log.
type AuditConfig struct {
	// DBPath is empty when auditing is disabled.
	DBPath        string
	Retention     time.Duration
	PruneInterval time.Duration
	ListLimitMax  int
}

// Enabled reports whether tool calls should be recorded.
func (a AuditConfig) Enabled() bool {
	return a.DBPath != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	password := getEnv("ODOO_PASSWORD", "")
	if password == "" {
		password = getEnv("ODOO_API_KEY", "")
	}

	transport := strings.ToLower(strings.TrimSpace(getEnv("MCP_TRANSPORT", "")))
	if transport == "" {
		transport = TransportStdio
	}

	cfg := &Config{
		Odoo: OdooConfig{
			URL:      strings.TrimSpace(getEnv("ODOO_URL", "")),
			Database: strings.TrimSpace(getEnv("ODOO_DB", "")),
			Username: strings.TrimSpace(getEnv("ODOO_USERNAME", "")),
			Password: password,
			Timeout:  getEnvDuration("ODOO_TIMEOUT", 30*time.Second),
		},
		Transport: transport,
		Host:      strings.TrimSpace(getEnv("HOST", "127.0.0.1")),
		Port:      getEnv("PORT", "8080"),
		LogLevel:  parseLevel(getEnv("LOG_LEVEL", "info")),
		Audit: AuditConfig{
			DBPath:        getEnv("AUDIT_DB_PATH", ""),
			Retention:     getEnvDuration("AUDIT_RETENTION", 7*24*time.Hour),
			PruneInterval: getEnvDuration("AUDIT_PRUNE_INTERVAL", 15*time.Minute),
			ListLimitMax:  getEnvInt("AUDIT_LIST_LIMIT_MAX", 500),
		},
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	var missing []string
	if c.Odoo.URL == "" {
		missing = append(missing, "ODOO_URL")
	}
	if c.Odoo.Database == "" {
		missing = append(missing, "ODOO_DB")
	}
	if c.Odoo.Username == "" {
		missing = append(missing, "ODOO_USERNAME")
	}
	if c.Odoo.Password == "" {
		missing = append(missing, "ODOO_PASSWORD or ODOO_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	if c.Odoo.Timeout <= 0 {
		return fmt.Errorf("ODOO_TIMEOUT must be > 0")
	}
	switch c.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("MCP_TRANSPORT must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Transport)
	}
	if c.Transport == TransportHTTP && c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Audit.Enabled() {
		if c.Audit.Retention <= 0 {
			return fmt.Errorf("AUDIT_RETENTION must be > 0")
		}
		if c.Audit.PruneInterval <= 0 {
			return fmt.Errorf("AUDIT_PRUNE_INTERVAL must be > 0")
		}
	}
	if c.Audit.ListLimitMax <= 0 {
		return fmt.Errorf("AUDIT_LIST_LIMIT_MAX must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func parseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
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

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
