package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for compare-engine
type Config struct {
	Server   ServerConfig
	Catalog  CatalogConfig
	Store    StoreConfig
	Redis    RedisConfig
	Region   RegionConfig
	I18n     I18nConfig
	Session  SessionConfig
	LogLevel slog.Level
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

// CatalogConfig holds where the product catalog is loaded from
type CatalogConfig struct {
	Source  string
	Timeout time.Duration
}

// Store backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendSQL      = "sql"
)

// StoreConfig selects and configures the preference store
type StoreConfig struct {
	Backend       string
	DSN           string
	Driver        string
	MigrationsDir string
	MaxOpenConns  int
	MaxIdleConns  int
	// PurgeOnStart drops every stored preference at startup (staging resets)
	PurgeOnStart  bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// RegionConfig holds the geolocation lookup settings
type RegionConfig struct {
	LookupURL     string
	Timeout       time.Duration
	PerMinute     int
	DefaultRegion string
}

// I18nConfig holds language settings
type I18nConfig struct {
	DefaultLanguage string
	Supported       []string
}

// SessionConfig holds client session expiry settings
type SessionConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

// Load loads configuration from a local .env file, if any, and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"*"}),
		},
		Catalog: CatalogConfig{
			Source:  getEnv("CATALOG_SOURCE", "./data/earbuds.json"),
			Timeout: getEnvAsDuration("CATALOG_TIMEOUT", 10*time.Second),
		},
		Store: StoreConfig{
			Backend:       strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
			DSN:           getEnv("DATABASE_DSN", ""),
			Driver:        getEnv("DATABASE_DRIVER", "postgres"),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
			MaxOpenConns:  getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:  getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 1),
			PurgeOnStart:  getEnvAsBool("STORE_PURGE_ON_START", false),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "prefs:"),
		},
		Region: RegionConfig{
			LookupURL:     getEnv("REGION_LOOKUP_URL", "http://ip-api.com/json/{ip}?fields=countryCode"),
			Timeout:       getEnvAsDuration("REGION_LOOKUP_TIMEOUT", 3*time.Second),
			PerMinute:     getEnvAsInt("REGION_LOOKUP_PER_MINUTE", 45),
			DefaultRegion: strings.ToUpper(getEnv("DEFAULT_REGION", "US")),
		},
		I18n: I18nConfig{
			DefaultLanguage: strings.ToLower(getEnv("DEFAULT_LANGUAGE", "en")),
			Supported:       getEnvAsList("SUPPORTED_LANGUAGES", []string{"en", "de", "fr"}),
		},
		Session: SessionConfig{
			TTL:             getEnvAsDuration("SESSION_TTL", 30*time.Minute),
			CleanupInterval: getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 5*time.Minute),
		},
		LogLevel: getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Catalog.Source == "" {
		return fmt.Errorf("catalog source is required")
	}

	switch c.Store.Backend {
	case BackendMemory, BackendRedis:
	case BackendPostgres, BackendSQLite, BackendSQL:
		if c.Store.DSN == "" {
			return fmt.Errorf("database DSN is required for store backend %q", c.Store.Backend)
		}
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}

	if len(c.Region.DefaultRegion) != 2 {
		return fmt.Errorf("invalid default region: %q", c.Region.DefaultRegion)
	}

	if c.Region.PerMinute < 1 {
		return fmt.Errorf("region lookup rate must be positive: %d", c.Region.PerMinute)
	}

	if c.Session.TTL <= 0 || c.Session.CleanupInterval <= 0 {
		return fmt.Errorf("session TTL and cleanup interval must be positive")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	if value, exists := os.LookupEnv(key); exists {
		var level slog.Level
		if err := level.UnmarshalText([]byte(value)); err == nil {
			return level
		}
	}
	return defaultValue
}
