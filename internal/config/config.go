// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for the CLI and the HTTP API.
type Config struct {
	LogLevel     string // log level: debug, info, warn, error (default "info")
	DatasetsFile string // YAML dataset definitions (default "datasets.yaml")

	// Database connection
	Driver string // "duckdb" (default) or "sqlite3"
	DSN    string // driver DSN; empty opens an in-memory database
	// SeedFile is a SQL script run once at startup, e.g. to populate an
	// in-memory database.
	SeedFile string

	// Execution
	MaxWorkers         int           // concurrent statements per fetch (default 1)
	SlowQueryThreshold time.Duration // slow-query warning threshold (default 15s)
	MaxResultSet       int           // server-side row cap (default 200000)
	CacheSize          int           // LRU result cache entries; 0 disables
	QueryRate          float64       // statements per second to the database; 0 is unlimited

	// HTTP API
	ListenAddr         string   // HTTP listen address (default ":8080")
	JWTSecret          string   // HS256 secret; bearer auth is disabled when empty
	RateLimitRPS       float64  // sustained requests per second per client (default 50)
	RateLimitBurst     int      // burst capacity (default 100)
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AuthEnabled reports whether the API requires bearer tokens.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// LoadFromEnv loads configuration from environment variables. Malformed
// numeric values fall back to their defaults and are reported in Warnings.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel:     os.Getenv("LOG_LEVEL"),
		DatasetsFile: os.Getenv("FIREANT_DATASETS"),
		Driver:       strings.ToLower(strings.TrimSpace(os.Getenv("FIREANT_DRIVER"))),
		DSN:          os.Getenv("FIREANT_DSN"),
		SeedFile:     os.Getenv("FIREANT_SEED"),
		ListenAddr:   os.Getenv("LISTEN_ADDR"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
	}

	cfg.MaxWorkers = cfg.intEnv("FIREANT_MAX_WORKERS", 1)
	cfg.MaxResultSet = cfg.intEnv("FIREANT_MAX_RESULT_SET", 200000)
	cfg.CacheSize = cfg.intEnv("FIREANT_CACHE_SIZE", 0)
	cfg.QueryRate = cfg.floatEnv("FIREANT_QUERY_RATE", 0)
	cfg.RateLimitRPS = cfg.floatEnv("RATE_LIMIT_RPS", 50)
	cfg.RateLimitBurst = cfg.intEnv("RATE_LIMIT_BURST", 100)

	cfg.SlowQueryThreshold = 15 * time.Second
	if v := os.Getenv("FIREANT_SLOW_QUERY_THRESHOLD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SlowQueryThreshold = d
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("FIREANT_SLOW_QUERY_THRESHOLD=%q is not a positive duration; using 15s", v))
		}
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = compactNonEmpty(origins)
	}

	// Defaults
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.DatasetsFile == "" {
		cfg.DatasetsFile = "datasets.yaml"
	}
	if cfg.Driver == "" {
		cfg.Driver = "duckdb"
	}
	if cfg.Driver != "duckdb" && cfg.Driver != "sqlite3" {
		return nil, fmt.Errorf("FIREANT_DRIVER must be \"duckdb\" or \"sqlite3\", got %q", cfg.Driver)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.MaxWorkers < 1 {
		cfg.Warnings = append(cfg.Warnings, "FIREANT_MAX_WORKERS must be at least 1; using 1")
		cfg.MaxWorkers = 1
	}
	if cfg.DSN == "" && cfg.SeedFile == "" {
		cfg.Warnings = append(cfg.Warnings, "FIREANT_DSN not set; using an empty in-memory database")
	}
	if !cfg.AuthEnabled() {
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET not set; API authentication is disabled")
	}

	return cfg, nil
}

func (c *Config) intEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s=%q is not a non-negative integer; using %d", key, v, def))
		return def
	}
	return n
}

func (c *Config) floatEnv(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s=%q is not a non-negative number; using %g", key, v, def))
		return def
	}
	return f
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Environment variables take precedence.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes matching surrounding double or single quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
