package config

import (
	"os"
	"strconv"
	"time"

	"github.com/boddenberg/statement-recon-go/internal/reconcile"
)

// Config holds all application configuration.
// Values come from defaults, an optional TOML file, then environment variables.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// External services
	StatementAPIURL    string
	StatementReport    string  // perfiosReportType sent to the statement service
	StatementRateLimit float64 // requests per second, 0 = unlimited
	ParserAPIURL       string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries       int
	InitialBackoff   time.Duration
	MaxConcurrency   int
	BatchConcurrency int

	// Cache
	CacheTTL time.Duration // 0 = entries never expire

	// Observability
	OTLPEndpoint string

	// Storage
	DatabaseDialect string
	DatabaseURL     string
	ReportDir       string
	DocumentRoot    string

	// JWT / Auth
	JWTSecret string

	// Engine
	TrailingWindowDays int
	CreditWindowDays   int
	CreditMonthDays    int
	EODLookbackMonths  int
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:     8080,
		LogLevel: "info",

		StatementAPIURL:    "http://localhost:8081/v1/statements",
		StatementReport:    "JSON",
		StatementRateLimit: 5,
		ParserAPIURL:       "http://localhost:8082",

		HTTPTimeout: 30 * time.Second,

		MaxRetries:       3,
		InitialBackoff:   200 * time.Millisecond,
		MaxConcurrency:   8,
		BatchConcurrency: 4,

		CacheTTL: 0,

		OTLPEndpoint: "",

		DatabaseDialect: "sqlite3",
		DatabaseURL:     "recon.db",
		ReportDir:       "reports",
		DocumentRoot:    ".",

		JWTSecret: "recon-default-dev-secret-change-me",

		TrailingWindowDays: reconcile.DefaultTrailingWindowDays,
		CreditWindowDays:   reconcile.DefaultCreditWindowDays,
		CreditMonthDays:    reconcile.DefaultCreditMonthDays,
		EODLookbackMonths:  reconcile.DefaultEODLookbackMonths,
	}
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// Engine returns the reconciliation engine options.
func (c *Config) Engine() reconcile.Options {
	return reconcile.Options{
		TrailingWindowDays: c.TrailingWindowDays,
		CreditWindowDays:   c.CreditWindowDays,
		CreditMonthDays:    c.CreditMonthDays,
		EODLookbackMonths:  c.EODLookbackMonths,
	}
}

func (c *Config) applyEnv() {
	c.Port = getEnvInt("PORT", c.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.StatementAPIURL = getEnv("STATEMENT_API_URL", c.StatementAPIURL)
	c.StatementReport = getEnv("STATEMENT_REPORT_TYPE", c.StatementReport)
	c.StatementRateLimit = getEnvFloat("STATEMENT_RATE_LIMIT", c.StatementRateLimit)
	c.ParserAPIURL = getEnv("PARSER_API_URL", c.ParserAPIURL)

	c.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", c.HTTPTimeout)

	c.MaxRetries = getEnvInt("MAX_RETRIES", c.MaxRetries)
	c.InitialBackoff = getEnvDuration("INITIAL_BACKOFF", c.InitialBackoff)
	c.MaxConcurrency = getEnvInt("MAX_CONCURRENCY", c.MaxConcurrency)
	c.BatchConcurrency = getEnvInt("BATCH_CONCURRENCY", c.BatchConcurrency)

	c.CacheTTL = getEnvDuration("CACHE_TTL", c.CacheTTL)

	c.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)

	c.DatabaseDialect = getEnv("DATABASE_DIALECT", c.DatabaseDialect)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.ReportDir = getEnv("REPORT_DIR", c.ReportDir)
	c.DocumentRoot = getEnv("DOCUMENT_ROOT", c.DocumentRoot)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)

	c.TrailingWindowDays = getEnvInt("TRAILING_WINDOW_DAYS", c.TrailingWindowDays)
	c.CreditWindowDays = getEnvInt("CREDIT_WINDOW_DAYS", c.CreditWindowDays)
	c.CreditMonthDays = getEnvInt("CREDIT_MONTH_DAYS", c.CreditMonthDays)
	c.EODLookbackMonths = getEnvInt("EOD_LOOKBACK_MONTHS", c.EODLookbackMonths)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
