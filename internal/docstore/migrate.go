package docstore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at TIMESTAMP NOT NULL
)`

type migration struct {
	version string
	sql     string
}

// migrationsFor lists dialect's migrations in version order.
func migrationsFor(dialect string) ([]migration, error) {
	files, err := fs.Glob(migrationFS, fmt.Sprintf("migrations/%s/*.sql", dialect))
	if err != nil {
		return nil, fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(files)
	out := make([]migration, 0, len(files))
	for _, f := range files {
		b, err := migrationFS.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", f, err)
		}
		out = append(out, migration{version: path.Base(f), sql: string(b)})
	}
	return out, nil
}

// migrator is the small surface both SQL backends expose to runMigrations.
type migrator interface {
	exec(ctx context.Context, sql string, args ...any) error
	applied(ctx context.Context) (map[string]bool, error)
	// record runs the migration body and its bookkeeping row atomically.
	record(ctx context.Context, m migration) error
}

func runMigrations(ctx context.Context, dialect string, m migrator) error {
	if err := m.exec(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	done, err := m.applied(ctx)
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	list, err := migrationsFor(dialect)
	if err != nil {
		return err
	}
	for _, mig := range list {
		if done[mig.version] {
			continue
		}
		if err := m.record(ctx, mig); err != nil {
			return fmt.Errorf("apply migration %s: %w", mig.version, err)
		}
	}
	return nil
}
