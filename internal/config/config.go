package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"cashplan/internal/log"

	"github.com/shopspring/decimal"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// Backend selection
	DataBackend string

	// Storage
	SQLiteDBPath string
	DataDir      string

	// Logging
	LogLevel string

	// Matching
	MatchFuzzyThreshold  float64
	MatchAmountTolerance decimal.Decimal

	// Projection memo
	ProjectionCacheSize int
	ProjectionCacheTTL  time.Duration

	// Import
	ImportMaxFileBytes int64
}

func Load() *Config {
	return &Config{
		DataBackend:  getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/cashplan.db"),
		DataDir:      getEnv("DATA_DIR", "./data/workspaces"),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		MatchFuzzyThreshold:  getEnvFloat("MATCH_FUZZY_THRESHOLD", 0.4),
		MatchAmountTolerance: getEnvDecimal("MATCH_AMOUNT_TOLERANCE", decimal.New(1, -2)),

		ProjectionCacheSize: getEnvInt("PROJECTION_CACHE_SIZE", 64),
		ProjectionCacheTTL:  getEnvDuration("PROJECTION_CACHE_TTL", 10*time.Minute),

		ImportMaxFileBytes: int64(getEnvInt("IMPORT_MAX_FILE_BYTES", 10<<20)),
	}
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errors []string

	validBackends := []string{BackendMemory, BackendSQLite}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataDir != "" {
		if info, err := os.Stat(c.DataDir); err == nil && !info.IsDir() {
			errors = append(errors, fmt.Sprintf("data directory '%s' is not a directory", c.DataDir))
		}
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if c.MatchFuzzyThreshold <= 0 || c.MatchFuzzyThreshold > 1 {
		errors = append(errors, fmt.Sprintf("invalid fuzzy threshold %v: must be in (0, 1]", c.MatchFuzzyThreshold))
	}
	if !c.MatchAmountTolerance.IsPositive() {
		errors = append(errors, fmt.Sprintf("invalid amount tolerance %s: must be positive", c.MatchAmountTolerance))
	} else if c.MatchAmountTolerance.GreaterThan(decimal.NewFromInt(1)) {
		errors = append(errors, fmt.Sprintf("invalid amount tolerance %s: must be at most 1", c.MatchAmountTolerance))
	}

	if c.ProjectionCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid projection cache size %d: must be at least 1", c.ProjectionCacheSize))
	} else if c.ProjectionCacheSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid projection cache size %d: must be at most 10000", c.ProjectionCacheSize))
	}
	if c.ProjectionCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid projection cache TTL %v: must be at least 1 second", c.ProjectionCacheTTL))
	} else if c.ProjectionCacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid projection cache TTL %v: must be at most 24 hours", c.ProjectionCacheTTL))
	}

	if c.ImportMaxFileBytes < 1024 {
		errors = append(errors, fmt.Sprintf("invalid import size limit %d: must be at least 1024 bytes", c.ImportMaxFileBytes))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
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

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
