package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrationLockID serializes preference-schema migrations across replicas
// starting at the same time
const migrationLockID = 7_340_211

// migrationFiles lists the .sql files of dir in application order
// (lexical: 001_, 002_, ...)
func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// RunMigrations brings the preferences schema up to date and returns the
// names of the migrations it applied. Each migration runs in its own
// transaction under an advisory lock, so concurrent replicas apply it once.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, dir string) ([]string, error) {
	names, err := migrationFiles(dir)
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	var applied []string
	for _, name := range names {
		ok, err := applyMigration(ctx, pool, dir, name)
		if err != nil {
			return applied, err
		}
		if ok {
			applied = append(applied, name)
		}
	}

	slog.Info("preference schema up to date",
		"store", "postgres",
		"applied", applied,
		"total", len(names),
	)
	return applied, nil
}

// applyMigration runs one migration unless another replica already did.
// It reports whether this call applied it.
func applyMigration(ctx context.Context, pool *pgxpool.Pool, dir, name string) (bool, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction for %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockID); err != nil {
		return false, fmt.Errorf("failed to lock migrations: %w", err)
	}

	var done bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name,
	).Scan(&done); err != nil {
		return false, fmt.Errorf("failed to check migration %s: %w", name, err)
	}
	if done {
		return false, nil
	}

	content, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return false, fmt.Errorf("failed to read migration %s: %w", name, err)
	}

	slog.Info("applying preference migration", "migration", name)
	if _, err := tx.Exec(ctx, string(content)); err != nil {
		return false, fmt.Errorf("failed to execute migration %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
		return false, fmt.Errorf("failed to record migration %s: %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit migration %s: %w", name, err)
	}
	return true, nil
}

// Migrate applies the pending migrations through the store's own pool
func (s *PostgresStore) Migrate(ctx context.Context, dir string) ([]string, error) {
	return RunMigrations(ctx, s.pool, dir)
}

// PendingMigrations returns the migrations in dir that the database has not
// recorded. A non-empty result means preferences may be written to a schema
// older than the one this binary ships with.
func (s *PostgresStore) PendingMigrations(ctx context.Context, dir string) ([]string, error) {
	names, err := migrationFiles(dir)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var pending []string
	for _, name := range names {
		if !applied[name] {
			pending = append(pending, name)
		}
	}
	return pending, nil
}
