package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadNormalizes(t *testing.T) {
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("DEFAULT_REGION", "us")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, BackendMemory, cfg.Store.Backend)
	require.Equal(t, "US", cfg.Region.DefaultRegion)
	require.Equal(t, slog.LevelDebug, cfg.LogLevel)
	require.Equal(t, 3*time.Second, cfg.Region.Timeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("DATABASE_DSN", "file:prefs.db")
	t.Setenv("DEFAULT_REGION", "de")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("SUPPORTED_LANGUAGES", "en, de ,")
	t.Setenv("LOG_LEVEL", "bogus")
	t.Setenv("STORE_PURGE_ON_START", "true")
	t.Setenv("REDIS_PREFIX", "cmp:")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, BackendSQLite, cfg.Store.Backend)
	require.Equal(t, "DE", cfg.Region.DefaultRegion)
	require.Equal(t, time.Hour, cfg.Session.TTL)
	require.Equal(t, []string{"en", "de"}, cfg.I18n.Supported)
	require.Equal(t, slog.LevelInfo, cfg.LogLevel)
	require.True(t, cfg.Store.PurgeOnStart)
	require.Equal(t, "cmp:", cfg.Redis.Prefix)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 8080},
			Catalog: CatalogConfig{Source: "./data/earbuds.json"},
			Store:   StoreConfig{Backend: BackendMemory},
			Region:  RegionConfig{DefaultRegion: "US", PerMinute: 45},
			Session: SessionConfig{TTL: time.Minute, CleanupInterval: time.Minute},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"no catalog", func(c *Config) { c.Catalog.Source = "" }, true},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = BackendPostgres }, true},
		{"postgres with dsn", func(c *Config) {
			c.Store.Backend = BackendPostgres
			c.Store.DSN = "postgres://localhost/prefs"
		}, false},
		{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }, true},
		{"bad region", func(c *Config) { c.Region.DefaultRegion = "USA" }, true},
		{"zero rate", func(c *Config) { c.Region.PerMinute = 0 }, true},
		{"zero ttl", func(c *Config) { c.Session.TTL = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
