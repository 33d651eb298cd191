// Package config collects environment-driven settings for the server.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs to start.
type Config struct {
	Port         string
	Env          string
	LogLevel     slog.Level
	DatabasePath string
	DatabaseURL  string // when set, Postgres is used instead of SQLite
	RedisURL     string // when set, the change feed fans out over Redis
	JWTSecret    string
	AdminEmail   string // when set, this account is seeded as the first admin
	CookieSecure bool
	BcryptCost   int
}

// Load reads configuration from the environment, after loading a .env
// file if one exists. JWT_SECRET is required and must be long enough
// for HMAC-SHA256.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Port:         envOrDefault("PORT", "8080"),
		Env:          envOrDefault("ENV", "development"),
		DatabasePath: envOrDefault("DATABASE_PATH", "wealthforge.db"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		AdminEmail:   os.Getenv("ADMIN_EMAIL"),
		CookieSecure: os.Getenv("COOKIE_SECURE") != "false",
		BcryptCost:   12,
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security")
	}

	if v := os.Getenv("BCRYPT_COST"); v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
		}
		if cost < 4 || cost > 14 {
			return nil, fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", cost)
		}
		cfg.BcryptCost = cost
	}

	switch envOrDefault("LOG_LEVEL", "info") {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "info":
		cfg.LogLevel = slog.LevelInfo
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown LOG_LEVEL %q", os.Getenv("LOG_LEVEL"))
	}

	return cfg, nil
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
