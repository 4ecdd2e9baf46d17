package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	tern "github.com/jackc/tern/v2/migrate"
	"github.com/rs/zerolog"
)

// Migrations are embedded so the binary does not depend on the
// filesystem at runtime. Each dialect has its own directory with the
// same numbered files.
//
//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

// versionTable stores the applied migration version in both dialects.
const versionTable = "schema_version"

// migrationSeparator splits the up and down halves of a migration file.
const migrationSeparator = "---- create above / drop below ----"

// Migrate brings the schema up to the latest embedded version.
//
// Postgres migrations run through jackc/tern on a connection borrowed
// from the pool. SQLite uses the same files and version table, applied
// one transaction per file.
func Migrate(ctx context.Context, logger *zerolog.Logger, db *Database) error {
	var (
		from, to int
		err      error
	)

	switch db.dialect {
	case DialectPostgres:
		from, to, err = migratePostgres(ctx, db)
	case DialectSQLite:
		from, to, err = migrateSQLite(ctx, db.DB)
	default:
		return fmt.Errorf("unsupported database dialect %q", db.dialect)
	}
	if err != nil {
		return err
	}

	if from == to {
		logger.Info().Msgf("database schema up to date, version %d", to)
	} else {
		logger.Info().Msgf("migrated database schema, from %d to %d", from, to)
	}
	return nil
}

func migratePostgres(ctx context.Context, db *Database) (int, int, error) {
	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("acquiring migration connection: %w", err)
	}
	defer conn.Release()

	m, err := tern.NewMigrator(ctx, conn.Conn(), versionTable)
	if err != nil {
		return 0, 0, fmt.Errorf("constructing database migrator: %w", err)
	}

	subtree, err := fs.Sub(migrations, "migrations/postgres")
	if err != nil {
		return 0, 0, fmt.Errorf("retrieving database migrations subtree: %w", err)
	}

	if err := m.LoadMigrations(subtree); err != nil {
		return 0, 0, fmt.Errorf("loading database migrations: %w", err)
	}

	from, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("retrieving current database migration version: %w", err)
	}

	if err := m.Migrate(ctx); err != nil {
		return 0, 0, err
	}

	return int(from), len(m.Migrations), nil
}

type sqliteMigration struct {
	sequence int
	name     string
	up       string
}

func loadSQLiteMigrations() ([]sqliteMigration, error) {
	files, err := fs.Glob(migrations, "migrations/sqlite/*.sql")
	if err != nil {
		return nil, err
	}

	result := make([]sqliteMigration, 0, len(files))
	for _, file := range files {
		name := path.Base(file)
		prefix, _, _ := strings.Cut(name, "_")
		sequence, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s has no numeric prefix: %w", name, err)
		}

		body, err := migrations.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", name, err)
		}
		up, _, _ := strings.Cut(string(body), migrationSeparator)

		result = append(result, sqliteMigration{sequence: sequence, name: name, up: up})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].sequence < result[j].sequence })

	for i, m := range result {
		if m.sequence != i+1 {
			return nil, fmt.Errorf("migration %s is out of sequence, expected %d", m.name, i+1)
		}
	}
	return result, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) (int, int, error) {
	pending, err := loadSQLiteMigrations()
	if err != nil {
		return 0, 0, fmt.Errorf("loading database migrations: %w", err)
	}

	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS "+versionTable+" (version INTEGER NOT NULL)"); err != nil {
		return 0, 0, fmt.Errorf("creating %s: %w", versionTable, err)
	}

	var from int
	err = db.QueryRowContext(ctx, "SELECT version FROM "+versionTable+" LIMIT 1").Scan(&from)
	switch {
	case err == sql.ErrNoRows:
		if _, err := db.ExecContext(ctx, "INSERT INTO "+versionTable+" (version) VALUES (0)"); err != nil {
			return 0, 0, fmt.Errorf("seeding %s: %w", versionTable, err)
		}
	case err != nil:
		return 0, 0, fmt.Errorf("retrieving current database migration version: %w", err)
	}

	for _, m := range pending {
		if m.sequence <= from {
			continue
		}
		if err := applySQLiteMigration(ctx, db, m); err != nil {
			return from, 0, err
		}
	}

	return from, len(pending), nil
}

func applySQLiteMigration(ctx context.Context, db *sql.DB, m sqliteMigration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.up); err != nil {
		return fmt.Errorf("applying migration %s: %w", m.name, err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE "+versionTable+" SET version = $1", m.sequence); err != nil {
		return fmt.Errorf("recording migration %s: %w", m.name, err)
	}
	return tx.Commit()
}
