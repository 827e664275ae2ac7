// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration. It is built once at startup
// and injected into services; logic code never reads the environment.
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Provider settings
	EODHDAPIToken       string // Required for the primary quote/FX provider
	EODHDBaseURL        string
	ExchangeRateBaseURL string
	HTTPTimeout         time.Duration

	// Cache TTLs
	FxTTL    time.Duration // USD_EUR rate cache lifetime
	PriceTTL time.Duration // Per-symbol quote cache lifetime (short; prices move fast)

	// Backup settings (optional; backups disabled when endpoint is empty)
	Backup *BackupConfig
}

// BackupConfig holds S3-compatible backup storage configuration.
type BackupConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	RetentionDays   int
}

// Enabled reports whether backup credentials are fully configured.
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Endpoint != "" && b.AccessKeyID != "" && b.SecretAccessKey != "" && b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FOLIO_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:             absDataDir,
		Port:                getEnvAsInt("PORT", 8000),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		EODHDAPIToken:       getEnv("EODHD_API_TOKEN", ""),
		EODHDBaseURL:        getEnv("EODHD_BASE_URL", "https://eodhd.com/api/real-time"),
		ExchangeRateBaseURL: getEnv("EXCHANGERATE_BASE_URL", "https://api.exchangerate-api.com/v4/latest"),
		HTTPTimeout:         time.Duration(getEnvAsInt("HTTP_TIMEOUT_SEC", 10)) * time.Second,
		FxTTL:               time.Duration(getEnvAsInt("FX_TTL_SEC", 6*60*60)) * time.Second,
		PriceTTL:            time.Duration(getEnvAsInt("PRICE_TTL_SEC", 60)) * time.Second,
		Backup:              loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Endpoint:        getEnv("R2_ENDPOINT", ""),
		AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		Bucket:          getEnv("R2_BUCKET", ""),
		RetentionDays:   getEnvAsInt("R2_RETENTION_DAYS", 30),
	}
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	// EODHD token is optional at startup: a missing credential is
	// surfaced per-request as a provider failure, with fallback where
	// one exists.
	if c.FxTTL <= 0 || c.PriceTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
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
