package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data providers
	MarketData MarketDataConfig

	// Analytics defaults
	Analytics AnalyticsConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// MarketDataConfig holds price/FX provider configuration
type MarketDataConfig struct {
	StooqBaseURL   string
	ScrapeBaseURL  string
	RequestTimeout time.Duration
	RatePerSecond  float64 // provider request budget
	RateBurst      int
}

// AnalyticsConfig holds engine-wide analytics defaults
type AnalyticsConfig struct {
	RiskFreeRate     float64 // annual, decimal fraction
	MinBetaSamples   int
	MonteCarloIters  int
	MonteCarloSeed   int64 // 0 = non-deterministic
	CacheTTL         time.Duration
	BaseCurrency     string
	MaxHistoryPoints int
}

// Load reads configuration from environment variables.
// This function is the only caller of os.Getenv.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "folio"),
			User:            getEnv("DB_USER", "folio"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		MarketData: MarketDataConfig{
			StooqBaseURL:   getEnv("STOOQ_BASE_URL", "https://stooq.com"),
			ScrapeBaseURL:  getEnv("SCRAPE_BASE_URL", "https://finance.naver.com"),
			RequestTimeout: getEnvAsDuration("MARKETDATA_TIMEOUT", "15s"),
			RatePerSecond:  getEnvAsFloat("MARKETDATA_RATE_PER_SEC", 5),
			RateBurst:      getEnvAsInt("MARKETDATA_RATE_BURST", 10),
		},

		Analytics: AnalyticsConfig{
			RiskFreeRate:     getEnvAsFloat("RISK_FREE_RATE", 0.02),
			MinBetaSamples:   getEnvAsInt("MIN_BETA_SAMPLES", 20),
			MonteCarloIters:  getEnvAsInt("MONTE_CARLO_ITERATIONS", 1000),
			MonteCarloSeed:   int64(getEnvAsInt("MONTE_CARLO_SEED", 0)),
			CacheTTL:         getEnvAsDuration("ANALYTICS_CACHE_TTL", "10m"),
			BaseCurrency:     getEnv("BASE_CURRENCY", "USD"),
			MaxHistoryPoints: getEnvAsInt("MAX_HISTORY_POINTS", 400),
		},

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Analytics.MonteCarloIters < 1 {
		return fmt.Errorf("MONTE_CARLO_ITERATIONS must be positive")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		fallback, _ := time.ParseDuration(defaultValue)
		return fallback
	}
	return value
}
