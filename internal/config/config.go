// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Fraud decision service
	FraudServiceURL string        // Base URL of the external decision service
	FraudTimeout    time.Duration // Bound on the single outbound /detect call

	// Fraud scoring policy
	SuspiciousAmount   float64  // Amount above which the amount factor kicks in
	HighRiskThreshold  float64  // Score at or above which a transaction is flagged
	HighRiskCategories []string // Category labels scored at the category cap

	// HTTP hardening
	AllowedOrigins     []string // CORS origins; empty allows any origin
	RateLimitPerMinute int      // Per-client request budget; 0 disables limiting

	// Tracing
	OTLPEndpoint string // OTLP gRPC endpoint; tracing disabled when empty
}

// Defaults
const (
	DefaultPort              = "8080"
	DefaultEnv               = "development"
	DefaultLogLevel          = "info"
	DefaultFraudTimeoutMS    = 2000
	DefaultSuspiciousAmount  = 10000.0
	DefaultHighRiskThreshold = 0.75

	// DefaultRateLimitPerMinute is the per-client request budget. Set
	// RATE_LIMIT_PER_MINUTE=0 to disable limiting entirely.
	DefaultRateLimitPerMinute = 120
)

// DefaultHighRiskCategories is the built-in high-risk category set, overridable
// via the HIGH_RISK_CATEGORIES env var (comma-separated).
var DefaultHighRiskCategories = []string{
	"Cryptocurrency",
	"Gambling",
	"Adult Services",
	"Cash Advance",
	"International Transfer",
	"Investment",
}

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", DefaultPort),
		Env:                getEnv("ENV", DefaultEnv),
		LogLevel:           getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:        os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		FraudServiceURL:    os.Getenv("FRAUD_SERVICE_URL"),
		FraudTimeout:       time.Duration(getEnvInt64("FRAUD_TIMEOUT_MS", DefaultFraudTimeoutMS)) * time.Millisecond,
		SuspiciousAmount:   getEnvFloat("SUSPICIOUS_AMOUNT", DefaultSuspiciousAmount),
		HighRiskThreshold:  getEnvFloat("HIGH_RISK_THRESHOLD", DefaultHighRiskThreshold),
		HighRiskCategories: getEnvList("HIGH_RISK_CATEGORIES", DefaultHighRiskCategories),
		AllowedOrigins:     getEnvList("ALLOWED_ORIGINS", nil),
		RateLimitPerMinute: int(getEnvInt64("RATE_LIMIT_PER_MINUTE", DefaultRateLimitPerMinute)),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is coherent
func (c *Config) Validate() error {
	if c.FraudTimeout <= 0 {
		return fmt.Errorf("FRAUD_TIMEOUT_MS must be positive")
	}

	if c.HighRiskThreshold < 0 || c.HighRiskThreshold > 1 {
		return fmt.Errorf("HIGH_RISK_THRESHOLD must be in [0, 1]")
	}

	if c.SuspiciousAmount <= 0 {
		return fmt.Errorf("SUSPICIOUS_AMOUNT must be positive")
	}

	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
