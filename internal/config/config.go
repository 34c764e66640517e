package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the farm API
type Config struct {
	// Server configuration
	Port           string
	MetricsPort    string
	AllowedOrigins []string

	// Database configuration
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Redis configuration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	LeaderboardTTL time.Duration

	// Sweep configuration
	RewardSweepInterval time.Duration
	StatsSweepInterval  time.Duration

	// Ledger configuration
	SeedDevLedger bool
	DevAccounts   []string

	// Logging configuration
	LogLevel string
}

// Load reads configuration from environment variables and validates it
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		MetricsPort: getEnv("METRICS_PORT", "9100"),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", ""),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", ""),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "dogepump.db"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	cfg.AllowedOrigins = splitAndTrim(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,https://dogepump.io"))
	cfg.DevAccounts = splitAndTrim(getEnv("LEDGER_DEV_ACCOUNTS", ""))

	var err error
	cfg.RedisDB, err = parseIntEnv("REDIS_DB", 0)
	if err != nil {
		return cfg, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	leaderboardTTL, err := parseIntEnv("LEADERBOARD_CACHE_TTL_SECONDS", 30)
	if err != nil {
		return cfg, fmt.Errorf("invalid LEADERBOARD_CACHE_TTL_SECONDS: %w", err)
	}
	cfg.LeaderboardTTL = time.Duration(leaderboardTTL) * time.Second

	rewardInterval, err := parseIntEnv("REWARD_SWEEP_INTERVAL_SECONDS", 10)
	if err != nil {
		return cfg, fmt.Errorf("invalid REWARD_SWEEP_INTERVAL_SECONDS: %w", err)
	}
	cfg.RewardSweepInterval = time.Duration(rewardInterval) * time.Second

	statsInterval, err := parseIntEnv("STATS_SWEEP_INTERVAL_SECONDS", 60)
	if err != nil {
		return cfg, fmt.Errorf("invalid STATS_SWEEP_INTERVAL_SECONDS: %w", err)
	}
	cfg.StatsSweepInterval = time.Duration(statsInterval) * time.Second

	cfg.SeedDevLedger, err = parseBoolEnv("LEDGER_SEED_DEV", false)
	if err != nil {
		return cfg, fmt.Errorf("invalid LEDGER_SEED_DEV: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks that the configuration is valid
func (c Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.MetricsPort == c.Port {
		return fmt.Errorf("METRICS_PORT must differ from PORT")
	}

	switch c.DBDriver {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.DBName == "" {
			return fmt.Errorf("DB_NAME is required for the postgres driver")
		}
		if c.DBUser == "" {
			return fmt.Errorf("DB_USER is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want sqlite or postgres)", c.DBDriver)
	}

	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}

	if c.RewardSweepInterval <= 0 {
		return fmt.Errorf("REWARD_SWEEP_INTERVAL_SECONDS must be positive")
	}

	if c.StatsSweepInterval <= 0 {
		return fmt.Errorf("STATS_SWEEP_INTERVAL_SECONDS must be positive")
	}

	return nil
}

// DatabaseDSN builds the driver name and DSN for the configured database
func (c Config) DatabaseDSN() (string, string) {
	if c.DBDriver == "postgres" {
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
		return "postgres", dsn
	}
	return "sqlite", c.SQLitePath + "?_pragma=foreign_keys(1)"
}

// getEnv returns an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(str)
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return strconv.ParseBool(str)
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
