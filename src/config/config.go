package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port         string
	DatabasePath string
	LogLevel     string

	// Migrations directory. Empty means <cwd>/db/migrations.
	MigrationsPath string

	// UsdReferenceRate selects which implied-dollar rate derives the USD leg
	// of ARS-primary assets: "ccl" or "mep".
	UsdReferenceRate string

	// External market-data endpoints. Overridable so tests can point them
	// at a local httptest server.
	DolarApiBaseURL string
	QuoteApiBaseURL string

	// Cache TTLs
	FxCacheTTL     time.Duration
	QuoteCacheTTL  time.Duration
	ReportCacheTTL time.Duration

	// CORS
	AllowedOrigins []string
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
// It centralizes all configuration logic for the application.
func LoadConfig() {
	// 1. Try loading from the current directory (standard behavior)
	errEnv := godotenv.Load()

	// 2. If not found, try loading from the parent directory (common when running from a subdir)
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found. Relying on OS environment variables (expected in production).")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	usdRate := strings.ToLower(getEnv("USD_REFERENCE_RATE", "ccl"))
	if usdRate != "ccl" && usdRate != "mep" {
		log.Printf("Warning: invalid USD_REFERENCE_RATE %q, falling back to \"ccl\"", usdRate)
		usdRate = "ccl"
	}

	Cfg = &AppConfig{
		Port:             getEnv("PORT", "8080"),
		DatabasePath:     getEnv("DATABASE_PATH", "./argfolio.db"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		MigrationsPath:   getEnv("MIGRATIONS_PATH", ""),
		UsdReferenceRate: usdRate,
		DolarApiBaseURL:  getEnv("DOLARAPI_BASE_URL", "https://dolarapi.com"),
		QuoteApiBaseURL:  getEnv("QUOTE_API_BASE_URL", "https://query1.finance.yahoo.com"),
		FxCacheTTL:       getEnvAsDuration("FX_CACHE_TTL", 5*time.Minute),
		QuoteCacheTTL:    getEnvAsDuration("QUOTE_CACHE_TTL", 5*time.Minute),
		ReportCacheTTL:   getEnvAsDuration("REPORT_CACHE_TTL", 15*time.Minute),
		AllowedOrigins:   getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	log.Printf("Configuration loaded. Port: %s, DB: %s, USD reference rate: %s",
		Cfg.Port, Cfg.DatabasePath, Cfg.UsdReferenceRate)
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvAsDuration reads an env var as a time.Duration (e.g. "15m") or returns a default.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	// Also accept plain seconds for convenience.
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Warning: invalid duration for %s: %q, using default %v", key, valueStr, fallback)
	return fallback
}

// getEnvAsSlice reads a comma-separated env var or returns a default.
func getEnvAsSlice(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
