package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/compare-engine/internal/config"
)

// exerciseStore runs the shared contract against any Store
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	client := uuid.NewString()
	other := uuid.NewString()

	_, ok, err := s.GetItem(ctx, client, "theme")
	require.NoError(t, err)
	require.False(t, ok, "absent key means unset")

	require.NoError(t, s.SetItem(ctx, client, "theme", "dark"))
	require.NoError(t, s.SetItem(ctx, client, "region", "DE"))
	require.NoError(t, s.SetItem(ctx, client, "theme", "light"))
	require.NoError(t, s.SetItem(ctx, other, "theme", "dark"))

	v, ok, err := s.GetItem(ctx, client, "theme")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "light", v)

	all, err := s.GetAll(ctx, client)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"theme": "light", "region": "DE"}, all)

	empty, err := s.GetAll(ctx, uuid.NewString())
	require.NoError(t, err)
	require.Empty(t, empty)

	require.ErrorIs(t, s.SetItem(ctx, "", "theme", "x"), ErrInvalidKey)
	_, _, err = s.GetItem(ctx, client, "")
	require.ErrorIs(t, err, ErrInvalidKey)

	require.NoError(t, s.Ping(ctx))
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	exerciseStore(t, s)
	require.NoError(t, s.Close())
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prefs.db")
	s, err := Open(context.Background(), config.StoreConfig{Backend: config.BackendSQLite, DSN: path}, config.RedisConfig{})
	require.NoError(t, err)

	exerciseStore(t, s)

	// reopening keeps the data and tolerates the existing table
	require.NoError(t, s.Close())
	s2, err := NewSQLStore(context.Background(), "sqlite3", path)
	require.NoError(t, err)
	defer s2.Close()
	require.NoError(t, s2.SetItem(context.Background(), "c", "lang", "fr"))
	v, ok, err := s2.GetItem(context.Background(), "c", "lang")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "fr", v)
}

func TestSQLStoreRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := NewSQLStore(context.Background(), "mysql", "whatever")
	require.Error(t, err)
}

func TestRebind(t *testing.T) {
	t.Parallel()

	pg := &SQLStore{driver: "postgres"}
	require.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))

	lite := &SQLStore{driver: "sqlite3"}
	require.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestOpenUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), config.StoreConfig{Backend: "etcd"}, config.RedisConfig{})
	require.Error(t, err)
}

func TestPurgeDropsAllClients(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.SetItem(ctx, "a", "theme", "dark"))
	require.NoError(t, s.SetItem(ctx, "b", "region", "DE"))

	require.NoError(t, purge(ctx, s, config.BackendMemory))
	all, err := s.GetAll(ctx, "a")
	require.NoError(t, err)
	require.Empty(t, all)

	// stores without Purge are left alone
	require.NoError(t, purge(ctx, struct{ Store }{s}, "custom"))
}

func TestOpenPurgeOnStart(t *testing.T) {
	t.Parallel()

	s, err := Open(context.Background(), config.StoreConfig{Backend: config.BackendMemory, PurgeOnStart: true}, config.RedisConfig{})
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDRESS not set")
	}

	ctx := context.Background()
	s, err := NewRedisStore(ctx, RedisConfig{Address: addr, Prefix: "test-prefs:" + uuid.NewString() + ":"})
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)

	n, err := s.Purge(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, config.StoreConfig{
		Backend:       config.BackendPostgres,
		DSN:           dsn,
		MigrationsDir: filepath.Join("..", "..", "migrations"),
	}, config.RedisConfig{})
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)

	// migrations are idempotent
	pg := s.(*PostgresStore)
	dir := filepath.Join("..", "..", "migrations")
	applied, err := pg.Migrate(ctx, dir)
	require.NoError(t, err)
	require.Empty(t, applied)

	pending, err := pg.PendingMigrations(ctx, dir)
	require.NoError(t, err)
	require.Empty(t, pending)

	extra := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(extra, "999_later.sql"), []byte("SELECT 1;"), 0o644))
	pending, err = pg.PendingMigrations(ctx, extra)
	require.NoError(t, err)
	require.Equal(t, []string{"999_later.sql"}, pending)
}

func TestSQLStorePostgresDriver(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	s, err := NewSQLStore(context.Background(), "postgres", dsn)
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}
