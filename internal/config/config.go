package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting. Values come from built-in defaults,
// then an optional YAML file named by CONFIG_FILE, then the environment.
type Config struct {
	// HTTP Server
	Port string `yaml:"port"`

	// Backend selection: memory, sqlite or mongo
	DataBackend string `yaml:"data_backend"`
	SeedFile    string `yaml:"seed_file"`

	// Database
	SQLiteDBPath string `yaml:"sqlite_db_path"`
	MongoURI     string `yaml:"mongodb_uri"`
	MongoDBName  string `yaml:"mongodb_db_name"`

	// AMQP (optional)
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`
	AMQPQueue    string `yaml:"amqp_queue"`

	// Google Sheets export (optional)
	GoogleSpreadsheetID    string `yaml:"google_spreadsheet_id"`
	GoogleSheetName        string `yaml:"google_sheet_name"`
	GoogleReportsSheetName string `yaml:"google_reports_sheet_name"`

	// Reports
	ReportWeeklySchedule  string `yaml:"report_cron_schedule"`
	ReportMonthlySchedule string `yaml:"report_monthly_cron_schedule"`
	ReportTimezone        string `yaml:"report_timezone"`

	// Worker
	ExportBatchSize int           `yaml:"export_batch_size"`
	ExportInterval  time.Duration `yaml:"export_interval"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// HTTP limits
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`
	IdempotencyTTL     time.Duration `yaml:"idempotency_ttl"`
}

var validBackends = []string{"memory", "sqlite", "mongo"}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:                  "8081",
		DataBackend:           "memory",
		SQLiteDBPath:          "./data/agrotrack.db",
		MongoDBName:           "agrotrack",
		AMQPExchange:          "agrotrack",
		AMQPQueue:             "export_transactions",
		ReportWeeklySchedule:  "0 6 * * 1",
		ReportMonthlySchedule: "0 6 1 * *",
		ReportTimezone:        "UTC",
		ExportBatchSize:       50,
		ExportInterval:        5 * time.Minute,
		LogLevel:              "info",
		LogFormat:             "text",
		RateLimitPerMinute:    60,
		IdempotencyTTL:        24 * time.Hour,
	}
}

// Load builds the configuration. Only a missing or malformed CONFIG_FILE is an
// error; use Validate for semantic checks.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.overrideWithEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) overrideWithEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.SeedFile = getEnv("SEED_FILE", c.SeedFile)

	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.MongoURI = getEnv("MONGODB_URI", c.MongoURI)
	c.MongoDBName = getEnv("MONGODB_DB_NAME", c.MongoDBName)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", c.GoogleSheetName)
	c.GoogleReportsSheetName = getEnv("GOOGLE_REPORTS_SHEET_NAME", c.GoogleReportsSheetName)

	c.ReportWeeklySchedule = getEnv("REPORT_CRON_SCHEDULE", c.ReportWeeklySchedule)
	c.ReportMonthlySchedule = getEnv("REPORT_MONTHLY_CRON_SCHEDULE", c.ReportMonthlySchedule)
	c.ReportTimezone = getEnv("REPORT_TIMEZONE", c.ReportTimezone)

	c.ExportBatchSize = getEnvInt("EXPORT_BATCH_SIZE", c.ExportBatchSize)
	c.ExportInterval = getEnvDuration("EXPORT_INTERVAL", c.ExportInterval)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	c.IdempotencyTTL = getEnvDuration("IDEMPOTENCY_TTL", c.IdempotencyTTL)
}

// Location resolves ReportTimezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.ReportTimezone); err == nil {
		return loc
	}
	return time.UTC
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case "mongo":
		if c.MongoURI == "" {
			errors = append(errors, "MongoDB URI is required when using mongo backend")
		} else if u, err := url.Parse(c.MongoURI); err != nil || (u.Scheme != "mongodb" && u.Scheme != "mongodb+srv") {
			errors = append(errors, fmt.Sprintf("invalid MongoDB URI '%s': scheme must be 'mongodb' or 'mongodb+srv'", c.MongoURI))
		}
		if c.MongoDBName == "" {
			errors = append(errors, "MongoDB database name cannot be empty when using mongo backend")
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate report schedules (empty disables the job)
	for _, s := range []struct{ name, spec string }{
		{"REPORT_CRON_SCHEDULE", c.ReportWeeklySchedule},
		{"REPORT_MONTHLY_CRON_SCHEDULE", c.ReportMonthlySchedule},
	} {
		if s.spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(s.spec); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': %v", s.name, s.spec, err))
		}
	}
	if c.ReportTimezone != "" {
		if _, err := time.LoadLocation(c.ReportTimezone); err != nil {
			errors = append(errors, fmt.Sprintf("invalid report timezone '%s'", c.ReportTimezone))
		}
	}

	// Validate worker configuration
	if c.ExportBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid export batch size %d: must be at least 1", c.ExportBatchSize))
	} else if c.ExportBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid export batch size %d: must be at most 1000", c.ExportBatchSize))
	}

	if c.ExportInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at least 1 second", c.ExportInterval))
	} else if c.ExportInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at most 24 hours", c.ExportInterval))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}
	if c.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid idempotency TTL %v: must be positive", c.IdempotencyTTL))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
