package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Logging: debug, info, warn or error
	LogLevel string

	// Public base URL used to build the OAuth redirect URI
	// (e.g. "https://receipts.example.com"). Defaults to localhost:PORT.
	BaseURL string

	// Identity provider (Facebook Graph API)
	FacebookClientID     string
	FacebookClientSecret string
	FacebookAPIVersion   string
	FacebookScope        string

	// Sessions
	SessionTTL    time.Duration
	SecureCookies bool

	// AMQP receipt events (optional; disabled when URL is empty)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export (worker only; optional)
	ExportSpreadsheetID string
	ExportSheetName     string
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "3000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		BaseURL:  getEnv("BASE_URL", ""),

		FacebookClientID:     getEnv("FACEBOOK_CLIENT_ID", ""),
		FacebookClientSecret: getEnv("FACEBOOK_CLIENT_SECRET", ""),
		FacebookAPIVersion:   getEnv("FACEBOOK_API_VERSION", "v12.0"),
		FacebookScope:        getEnv("FACEBOOK_SCOPE", "public_profile"),

		SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),
		SecureCookies: getEnvBool("SECURE_COOKIES", false),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "receipt"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "receipt_events"),

		ExportSpreadsheetID: getEnv("EXPORT_SPREADSHEET_ID", ""),
		ExportSheetName:     getEnv("EXPORT_SHEET_NAME", "Receipts"),
	}
}

// RedirectURI is the provider callback URL registered for this deployment.
func (c *Config) RedirectURI() string {
	base := c.BaseURL
	if base == "" {
		base = "http://localhost:" + c.Port
	}
	return strings.TrimRight(base, "/") + "/login/facebook"
}

// Validate checks the configuration and returns every problem found.
// Main treats any error here as fatal; nothing is recoverable at runtime.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.BaseURL != "" {
		if parsed, err := url.Parse(c.BaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errs = append(errs, fmt.Sprintf("invalid base URL '%s'", c.BaseURL))
		}
	}

	if c.FacebookClientID == "" {
		errs = append(errs, "FACEBOOK_CLIENT_ID is required")
	}
	if c.FacebookClientSecret == "" {
		errs = append(errs, "FACEBOOK_CLIENT_SECRET is required")
	}
	if c.FacebookAPIVersion == "" {
		errs = append(errs, "FACEBOOK_API_VERSION cannot be empty")
	} else if !strings.HasPrefix(c.FacebookAPIVersion, "v") {
		errs = append(errs, fmt.Sprintf("invalid Facebook API version '%s': expected e.g. 'v12.0'", c.FacebookAPIVersion))
	}
	if c.FacebookScope == "" {
		errs = append(errs, "FACEBOOK_SCOPE cannot be empty")
	}

	if c.SessionTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
