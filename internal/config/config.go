package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the API server and the CLI.
type Config struct {
	// HTTP server
	Port           string
	MaxUploadBytes int64

	// Logging
	LogLevel string

	// Ledger database
	SQLiteDBPath string

	// Sessions and identity
	SessionCookie string
	SessionTTL    time.Duration
	AuthHeader    string

	// Statement import
	GeminiAPIKey string
	GeminiModel  string
	UploadBucket string
	UploadDir    string

	// Google Cloud
	CredentialsFile string
	BigQueryProject string
	BigQueryDataset string

	// Post-commit mirrors
	AMQPURL      string
	AMQPExchange string
	NotionToken  string
	NotionDBID   string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 20<<20),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),

		SessionCookie: getEnv("SESSION_COOKIE", "ledger_session"),
		SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),
		AuthHeader:    getEnv("AUTH_HEADER", "X-User-ID"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		UploadBucket: getEnv("UPLOAD_BUCKET", ""),
		UploadDir:    getEnv("UPLOAD_DIR", os.TempDir()),

		CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS_FILE", ""),
		BigQueryProject: getEnv("BIGQUERY_PROJECT", ""),
		BigQueryDataset: getEnv("BIGQUERY_DATASET", "finance"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		NotionToken:  getEnv("NOTION_TOKEN", ""),
		NotionDBID:   getEnv("NOTION_DB_ID", ""),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}

	if c.MaxUploadBytes < 1024 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be at least 1024 bytes", c.MaxUploadBytes))
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if c.SessionCookie == "" {
		errors = append(errors, "session cookie name cannot be empty")
	}
	if c.AuthHeader == "" {
		errors = append(errors, "auth header name cannot be empty")
	}

	if c.UploadBucket == "" && c.UploadDir == "" {
		errors = append(errors, "either UPLOAD_BUCKET or UPLOAD_DIR must be set")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if (c.NotionToken == "") != (c.NotionDBID == "") {
		errors = append(errors, "NOTION_TOKEN and NOTION_DB_ID must be set together")
	}

	if c.BigQueryProject != "" && c.BigQueryDataset == "" {
		errors = append(errors, "BigQuery dataset cannot be empty when BIGQUERY_PROJECT is set")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ImportEnabled reports whether an AI credential is configured. The import
// endpoints still work without it; every parse simply finds nothing.
func (c *Config) ImportEnabled() bool {
	return c.GeminiAPIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
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
