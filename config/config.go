/*
config.go - Environment-based configuration

PURPOSE:
  Loads server configuration from environment variables, with a .env
  file picked up in development. Every value has a sensible default so
  the server runs with zero configuration.

VARIABLES:
  PORT               HTTP listen port          (default: 8080)
  DB_PATH            SQLite database file      (default: ./leave.db)
  SNAPSHOT_INTERVAL  Snapshot check interval   (default: 1h)
  SNAPSHOT_ENABLED   Run the snapshot job      (default: true)
  LOG_LEVEL          debug|info|warn|error     (default: info)
*/
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server settings.
type Config struct {
	Port             string
	DBPath           string
	SnapshotInterval time.Duration
	SnapshotEnabled  bool
	LogLevel         slog.Level
}

// Load reads configuration from the environment. A missing .env file is
// not an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:             getEnv("PORT", "8080"),
		DBPath:           getEnv("DB_PATH", "./leave.db"),
		SnapshotInterval: getDuration("SNAPSHOT_INTERVAL", time.Hour),
		SnapshotEnabled:  getBool("SNAPSHOT_ENABLED", true),
		LogLevel:         parseLogLevel(getEnv("LOG_LEVEL", "info")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
