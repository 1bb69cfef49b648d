package ledger

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the Postgres connection configuration, shaped like tarsy's
// pkg/database.Config (minus the ent-specific bits that no longer apply).
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// SearchPath, if set, scopes every pooled connection to a single schema —
	// used by tests to isolate parallel runs against one shared container.
	SearchPath string
}

// DefaultConfig returns sane pool defaults for a single-node deployment.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		SSLMode:         "disable",
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// LoadConfigFromEnv builds a Config from DB_* environment variables,
// falling back to DefaultConfig's pool tunables. Mirrors tarsy's
// database.LoadConfigFromEnv.
func LoadConfigFromEnv() (Config, error) {
	def := DefaultConfig()

	port, err := strconv.Atoi(getEnvOrDefault("DB_PORT", strconv.Itoa(def.Port)))
	if err != nil {
		return Config{}, fmt.Errorf("ledger: invalid DB_PORT: %w", err)
	}
	maxConns, err := strconv.Atoi(getEnvOrDefault("DB_MAX_CONNS", strconv.Itoa(int(def.MaxConns))))
	if err != nil {
		return Config{}, fmt.Errorf("ledger: invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := strconv.Atoi(getEnvOrDefault("DB_MIN_CONNS", strconv.Itoa(int(def.MinConns))))
	if err != nil {
		return Config{}, fmt.Errorf("ledger: invalid DB_MIN_CONNS: %w", err)
	}
	maxLifetime, err := time.ParseDuration(getEnvOrDefault("DB_CONN_MAX_LIFETIME", def.MaxConnLifetime.String()))
	if err != nil {
		return Config{}, fmt.Errorf("ledger: invalid DB_CONN_MAX_LIFETIME: %w", err)
	}
	maxIdleTime, err := time.ParseDuration(getEnvOrDefault("DB_CONN_MAX_IDLE_TIME", def.MaxConnIdleTime.String()))
	if err != nil {
		return Config{}, fmt.Errorf("ledger: invalid DB_CONN_MAX_IDLE_TIME: %w", err)
	}

	return Config{
		Host:            getEnvOrDefault("DB_HOST", def.Host),
		Port:            port,
		User:            getEnvOrDefault("DB_USER", "adspilot"),
		Password:        os.Getenv("DB_PASSWORD"),
		Database:        getEnvOrDefault("DB_NAME", "adspilot"),
		SSLMode:         getEnvOrDefault("DB_SSLMODE", def.SSLMode),
		MaxConns:        int32(maxConns),
		MinConns:        int32(minConns),
		MaxConnLifetime: maxLifetime,
		MaxConnIdleTime: maxIdleTime,
	}, nil
}

// DSN builds a libpq-style connection string from Config.
func (c Config) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
	if c.SearchPath != "" {
		dsn += fmt.Sprintf(" options='-c search_path=%s'", c.SearchPath)
	}
	return dsn
}
