package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the runtime configuration of the server and the db tool.
// Values come from the environment (optionally loaded from .env first) and
// an optional config file named by CONFIG_FILE.
type Config struct {
	Port           string
	DBPath         string
	DatabaseURL    string
	BinLayoutPath  string
	BinGridSeed    uint64
	TruckCapacity  int
	MaxCandidates  int
	RedisAddr      string
	IdempotencyTTL time.Duration
	LogLevel       string
	LogFormat      string
}

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_PATH", "data/app.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("BIN_LAYOUT_PATH", "")
	v.SetDefault("BIN_GRID_SEED", 1)
	v.SetDefault("TRUCK_CAPACITY", 2000)
	v.SetDefault("MAX_CANDIDATES", 24)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

// Load reads and validates the configuration.
func Load() (*Config, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("load config: read %q: %w", path, err)
		}
	}

	cfg := &Config{
		Port:           strings.TrimSpace(v.GetString("PORT")),
		DBPath:         strings.TrimSpace(v.GetString("DB_PATH")),
		DatabaseURL:    strings.TrimSpace(v.GetString("DATABASE_URL")),
		BinLayoutPath:  strings.TrimSpace(v.GetString("BIN_LAYOUT_PATH")),
		BinGridSeed:    v.GetUint64("BIN_GRID_SEED"),
		TruckCapacity:  v.GetInt("TRUCK_CAPACITY"),
		MaxCandidates:  v.GetInt("MAX_CANDIDATES"),
		RedisAddr:      strings.TrimSpace(v.GetString("REDIS_ADDR")),
		IdempotencyTTL: v.GetDuration("IDEMPOTENCY_TTL"),
		LogLevel:       strings.TrimSpace(v.GetString("LOG_LEVEL")),
		LogFormat:      strings.TrimSpace(v.GetString("LOG_FORMAT")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.DatabaseURL == "" && c.DBPath == "" {
		errs = append(errs, errors.New("one of DATABASE_URL or DB_PATH is required"))
	}
	if c.TruckCapacity <= 0 {
		errs = append(errs, fmt.Errorf("TRUCK_CAPACITY must be positive, got %d", c.TruckCapacity))
	}
	if c.MaxCandidates <= 0 || c.MaxCandidates > 40 {
		errs = append(errs, fmt.Errorf("MAX_CANDIDATES must be in 1..40, got %d", c.MaxCandidates))
	}
	if c.IdempotencyTTL <= 0 {
		errs = append(errs, fmt.Errorf("IDEMPOTENCY_TTL must be positive, got %s", c.IdempotencyTTL))
	}
	return errors.Join(errs...)
}

// UsePostgres reports whether the Postgres store is selected.
func (c *Config) UsePostgres() bool { return c.DatabaseURL != "" }

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
