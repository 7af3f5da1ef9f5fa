package postgres

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	)`

// Migration is one embedded SQL file, versioned by its file name
type Migration struct {
	Version string
	SQL     string
}

// Migrations returns the embedded migrations in the order they must be applied
func Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	migrations := make([]Migration, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		body, err := migrationFiles.ReadFile(path.Join("migrations", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", e.Name(), err)
		}
		migrations = append(migrations, Migration{
			Version: strings.TrimSuffix(e.Name(), ".sql"),
			SQL:     string(body),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Migrate applies every embedded migration that has not run yet, each in its own transaction.
// With dryRun set the pending SQL is written to out and nothing is executed.
func (db *DB) Migrate(ctx context.Context, dryRun bool, out io.Writer) ([]string, error) {
	migrations, err := Migrations()
	if err != nil {
		return nil, err
	}

	applied, err := db.appliedVersions(ctx, dryRun)
	if err != nil {
		return nil, err
	}

	var ran []string
	for _, m := range pendingMigrations(migrations, applied) {
		if dryRun {
			fmt.Fprintf(out, "-- %s\n%s\n", m.Version, m.SQL)
			ran = append(ran, m.Version)
			continue
		}

		db.logger.Infow("applying migration", "version", m.Version)
		err := db.WithTx(ctx, func(ctx context.Context) error {
			q := db.GetQuerier(ctx)
			if _, err := q.ExecContext(ctx, m.SQL); err != nil {
				return err
			}
			_, err := q.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.Version)
			return err
		})
		if err != nil {
			return ran, fmt.Errorf("migration %s failed: %w", m.Version, err)
		}
		ran = append(ran, m.Version)
	}

	return ran, nil
}

// appliedVersions reads schema_migrations. A dry run only reads: when the table is missing
// nothing has been applied and it is not created.
func (db *DB) appliedVersions(ctx context.Context, dryRun bool) ([]string, error) {
	if dryRun {
		var exists bool
		if err := db.DB.GetContext(ctx, &exists, "SELECT to_regclass('schema_migrations') IS NOT NULL"); err != nil {
			return nil, fmt.Errorf("failed to check schema_migrations: %w", err)
		}
		if !exists {
			return nil, nil
		}
	} else if _, err := db.DB.ExecContext(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var applied []string
	if err := db.DB.SelectContext(ctx, &applied, "SELECT version FROM schema_migrations"); err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	return applied, nil
}

// pendingMigrations keeps the migrations whose version is not in applied, preserving order
func pendingMigrations(all []Migration, applied []string) []Migration {
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	pending := make([]Migration, 0, len(all))
	for _, m := range all {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}
