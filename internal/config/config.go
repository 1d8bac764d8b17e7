// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/riskpulse/internal/clients/coingecko"
	"github.com/aristath/riskpulse/internal/domain"
	"github.com/aristath/riskpulse/internal/modules/analyzer"
	"github.com/aristath/riskpulse/pkg/formulas"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Report output formats for the batch command.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds application configuration
type Config struct {
	CoinGeckoAPIKey     string // Optional demo key
	CoinGeckoBaseURL    string
	CoinGeckoVsCurrency string
	LogLevel            string
	LogPretty           bool
	Port                int
	DevMode             bool
	AssetsFile          string // YAML portfolio; empty uses the built-in portfolio
	ReportFormat        string
	AnalysisSchedule    string // cron spec with seconds field; empty disables the periodic job

	Concurrency            int
	FetchTimeout           time.Duration
	RiskFreeRate           float64
	BenchmarkAssetID       string
	AlignmentBucketSeconds int64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		CoinGeckoAPIKey:        getEnv("COIN_GECKO_API_KEY", ""),
		CoinGeckoBaseURL:       getEnv("COIN_GECKO_BASE_URL", coingecko.DefaultBaseURL),
		CoinGeckoVsCurrency:    getEnv("COIN_GECKO_VS_CURRENCY", coingecko.DefaultVsCurrency),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogPretty:              getEnvAsBool("LOG_PRETTY", true),
		Port:                   getEnvAsInt("GO_PORT", 8001),
		DevMode:                getEnvAsBool("DEV_MODE", false),
		AssetsFile:             getEnv("ASSETS_FILE", ""),
		ReportFormat:           strings.ToLower(getEnv("REPORT_FORMAT", FormatText)),
		AnalysisSchedule:       getEnv("ANALYSIS_SCHEDULE", ""),
		Concurrency:            getEnvAsInt("ANALYSIS_CONCURRENCY", analyzer.DefaultConcurrency),
		FetchTimeout:           getEnvAsDuration("FETCH_TIMEOUT", analyzer.DefaultFetchTimeout),
		RiskFreeRate:           getEnvAsFloat("RISK_FREE_RATE", formulas.DefaultAnnualRiskFreeRate),
		BenchmarkAssetID:       getEnv("BENCHMARK_ASSET", ""),
		AlignmentBucketSeconds: int64(getEnvAsInt("ALIGNMENT_BUCKET_SECONDS", analyzer.DefaultAlignmentBucketSeconds)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks ranges and formats
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: GO_PORT must be in 1..65535, got %d", domain.ErrInvalidConfiguration, c.Port)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("%w: ANALYSIS_CONCURRENCY must be positive, got %d", domain.ErrInvalidConfiguration, c.Concurrency)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("%w: FETCH_TIMEOUT must be positive, got %s", domain.ErrInvalidConfiguration, c.FetchTimeout)
	}
	if c.AlignmentBucketSeconds <= 0 {
		return fmt.Errorf("%w: ALIGNMENT_BUCKET_SECONDS must be positive, got %d", domain.ErrInvalidConfiguration, c.AlignmentBucketSeconds)
	}
	if c.ReportFormat != FormatText && c.ReportFormat != FormatJSON {
		return fmt.Errorf("%w: REPORT_FORMAT must be %q or %q, got %q", domain.ErrInvalidConfiguration, FormatText, FormatJSON, c.ReportFormat)
	}
	if c.AnalysisSchedule != "" {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.AnalysisSchedule); err != nil {
			return fmt.Errorf("%w: ANALYSIS_SCHEDULE: %v", domain.ErrInvalidConfiguration, err)
		}
	}
	return nil
}

// AnalyzerConfig returns the analyzer settings.
func (c *Config) AnalyzerConfig() analyzer.Config {
	return analyzer.Config{
		Concurrency:            c.Concurrency,
		FetchTimeout:           c.FetchTimeout,
		RiskFreeRate:           c.RiskFreeRate,
		BenchmarkAssetID:       c.BenchmarkAssetID,
		AlignmentBucketSeconds: c.AlignmentBucketSeconds,
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("15s") or plain seconds ("15").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
