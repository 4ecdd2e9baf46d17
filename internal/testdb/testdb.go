// Package testdb provides utilities specifically for database testing.
//
// Every call to New opens a fresh, fully migrated in-memory SQLite
// database, so tests never share rows and need no external services.
package testdb

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/adoption-agency/internal/config"
	"github.com/deppfellow/adoption-agency/internal/database"
	"github.com/deppfellow/adoption-agency/internal/model"
	"github.com/deppfellow/adoption-agency/internal/server"
)

// TestTimeout bounds setup statements.
const TestTimeout = 5 * time.Second

// Config returns an in-memory SQLite configuration.
func Config() *config.Config {
	return &config.Config{
		Primary: config.Primary{Env: "test"},
		Server:  config.ServerConfig{Port: "0"},
		Database: config.DatabaseConfig{
			Driver: config.DriverSQLite,
			Path:   ":memory:",
		},
		Observability: config.DefaultObservabilityConfig(),
	}
}

// New opens and migrates a throwaway database. It is closed when t ends.
func New(t *testing.T) *database.Database {
	t.Helper()

	logger := zerolog.Nop()
	db, err := database.New(Config(), &logger, nil)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, database.Migrate(ctx, &logger, db), "failed to migrate test database")

	return db
}

// NewServer wraps New in an application container without an HTTP server.
func NewServer(t *testing.T) *server.Server {
	t.Helper()

	logger := zerolog.Nop()
	return &server.Server{
		Config: Config(),
		Logger: &logger,
		DB:     New(t),
	}
}

// InsertSpecies writes a row directly, bypassing every business rule.
func InsertSpecies(t *testing.T, db *database.Database, name string, active bool) int64 {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	row, err := db.Helper().FetchOne(ctx,
		`INSERT INTO species (name, "isActive") VALUES ($1, $2) RETURNING id`, name, active)
	require.NoError(t, err)
	require.NotNil(t, row)

	var inserted model.Species
	require.NoError(t, database.DecodeRow(row, &inserted))
	return inserted.ID
}

// SeedPairs inserts each name twice, active then inactive, the way the
// listing tests expect: ids 1,3,5... active and 2,4,6... inactive.
func SeedPairs(t *testing.T, db *database.Database, names ...string) {
	t.Helper()

	for _, name := range names {
		InsertSpecies(t, db, name, true)
		InsertSpecies(t, db, name, false)
	}
}

// AllSpecies reads the whole table ordered by id.
func AllSpecies(t *testing.T, db *database.Database) []model.Species {
	t.Helper()

	rows, err := db.Helper().FetchAll(context.Background(), `SELECT id, name, "isActive" FROM species ORDER BY id`)
	require.NoError(t, err)

	result := make([]model.Species, 0, len(rows))
	for _, row := range rows {
		var s model.Species
		require.NoError(t, database.DecodeRow(row, &s))
		result = append(result, s)
	}
	return result
}
