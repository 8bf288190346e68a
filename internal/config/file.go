package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors Config in TOML form. Unset keys keep their defaults.
type fileConfig struct {
	Server struct {
		Port     int    `toml:"port"`
		LogLevel string `toml:"log_level"`
	} `toml:"server"`

	Statement struct {
		URL        string  `toml:"url"`
		ReportType string  `toml:"report_type"`
		RateLimit  float64 `toml:"rate_limit"`
	} `toml:"statement"`

	Parser struct {
		URL string `toml:"url"`
	} `toml:"parser"`

	HTTP struct {
		Timeout          string `toml:"timeout"`
		MaxRetries       int    `toml:"max_retries"`
		InitialBackoff   string `toml:"initial_backoff"`
		MaxConcurrency   int    `toml:"max_concurrency"`
		BatchConcurrency int    `toml:"batch_concurrency"`
	} `toml:"http"`

	Cache struct {
		TTL string `toml:"ttl"`
	} `toml:"cache"`

	Storage struct {
		Dialect      string `toml:"dialect"`
		URL          string `toml:"url"`
		ReportDir    string `toml:"report_dir"`
		DocumentRoot string `toml:"document_root"`
	} `toml:"storage"`

	Engine struct {
		TrailingWindowDays int `toml:"trailing_window_days"`
		CreditWindowDays   int `toml:"credit_window_days"`
		CreditMonthDays    int `toml:"credit_month_days"`
		EODLookbackMonths  int `toml:"eod_lookback_months"`
	} `toml:"engine"`

	OTLPEndpoint string `toml:"otlp_endpoint"`
}

// DefaultFile is read when RECON_CONFIG is unset.
const DefaultFile = "recon.toml"

// FilePath returns the config file named by RECON_CONFIG, or DefaultFile.
func FilePath() string {
	return getEnv("RECON_CONFIG", DefaultFile)
}

// LoadFile reads a TOML config file on top of the defaults, then applies
// environment overrides. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		var fc fileConfig
		if err := toml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := fc.apply(cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (fc *fileConfig) apply(c *Config) error {
	setInt(&c.Port, fc.Server.Port)
	setString(&c.LogLevel, fc.Server.LogLevel)

	setString(&c.StatementAPIURL, fc.Statement.URL)
	setString(&c.StatementReport, fc.Statement.ReportType)
	if fc.Statement.RateLimit > 0 {
		c.StatementRateLimit = fc.Statement.RateLimit
	}
	setString(&c.ParserAPIURL, fc.Parser.URL)

	setInt(&c.MaxRetries, fc.HTTP.MaxRetries)
	setInt(&c.MaxConcurrency, fc.HTTP.MaxConcurrency)
	setInt(&c.BatchConcurrency, fc.HTTP.BatchConcurrency)

	setString(&c.DatabaseDialect, fc.Storage.Dialect)
	setString(&c.DatabaseURL, fc.Storage.URL)
	setString(&c.ReportDir, fc.Storage.ReportDir)
	setString(&c.DocumentRoot, fc.Storage.DocumentRoot)

	setInt(&c.TrailingWindowDays, fc.Engine.TrailingWindowDays)
	setInt(&c.CreditWindowDays, fc.Engine.CreditWindowDays)
	setInt(&c.CreditMonthDays, fc.Engine.CreditMonthDays)
	setInt(&c.EODLookbackMonths, fc.Engine.EODLookbackMonths)

	setString(&c.OTLPEndpoint, fc.OTLPEndpoint)

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"http.timeout", fc.HTTP.Timeout, &c.HTTPTimeout},
		{"http.initial_backoff", fc.HTTP.InitialBackoff, &c.InitialBackoff},
		{"cache.ttl", fc.Cache.TTL, &c.CacheTTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
