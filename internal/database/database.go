// Package database contains the logic for establishing
// connections to the database and executing statements against it.
//
// It handles:
//   - building a DSN from config
//   - creating a pgx connection pool (pgxpool) for Postgres, or opening
//     a modernc SQLite database for local runs and tests
//   - wiring query tracing/logging (pgx tracelog, New Relic nrpgx5)
//   - exposing both dialects through database/sql and SQLHelper
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	pgxzero "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/deppfellow/adoption-agency/internal/config"
	loggerConfig "github.com/deppfellow/adoption-agency/internal/logger"
)

// Dialect names the SQL flavour behind a Database.
type Dialect string

const (
	DialectPostgres Dialect = config.DriverPostgres
	DialectSQLite   Dialect = config.DriverSQLite
)

// DatabasePingTimeout is the number of seconds to wait for a ping
// before considering the database unreachable.
const DatabasePingTimeout = 10

// Database wraps the open handle, the dialect it speaks, and a logger.
//
// DB is usable for both dialects. pool is only set for Postgres.
type Database struct {
	DB      *sql.DB
	pool    *pgxpool.Pool
	dialect Dialect
	helper  *SQLHelper
	log     *zerolog.Logger
}

// multiTracer allows chaining multiple pgx tracers.
//
// pgx supports a single Tracer in ConnConfig; this adapter runs the
// New Relic tracer and the local tracelog tracer side by side.
type multiTracer struct {
	tracers []any
}

// TraceQueryStart implements pgx.QueryTracer.
func (mt *multiTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	for _, tracer := range mt.tracers {
		if t, ok := tracer.(interface {
			TraceQueryStart(context.Context, *pgx.Conn, pgx.TraceQueryStartData) context.Context
		}); ok {
			ctx = t.TraceQueryStart(ctx, conn, data)
		}
	}
	return ctx
}

// TraceQueryEnd implements pgx.QueryTracer.
func (mt *multiTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	for _, tracer := range mt.tracers {
		if t, ok := tracer.(interface {
			TraceQueryEnd(context.Context, *pgx.Conn, pgx.TraceQueryEndData)
		}); ok {
			t.TraceQueryEnd(ctx, conn, data)
		}
	}
}

// New opens the database configured in cfg.Database and pings it.
//
// loggerService may be nil; New Relic instrumentation is only attached
// when it carries an application.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerConfig.LoggerService) (*Database, error) {
	var (
		database *Database
		err      error
	)

	switch Dialect(cfg.Database.Driver) {
	case DialectPostgres:
		database, err = openPostgres(cfg, logger, loggerService)
	case DialectSQLite:
		database, err = openSQLite(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, err
	}

	var slowQueryThreshold time.Duration
	if cfg.Observability != nil {
		slowQueryThreshold = cfg.Observability.Logging.SlowQueryThreshold
	}
	database.helper = NewSQLHelper(database.DB, logger, cfg.Database.Debug, slowQueryThreshold)

	ctx, cancel := context.WithTimeout(context.Background(), DatabasePingTimeout*time.Second)
	defer cancel()
	if err := database.Ping(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().Str("dialect", string(database.dialect)).Msg("connected to the database")

	return database, nil
}

// PostgresDSN builds the postgres:// connection string for cfg.
func PostgresDSN(cfg *config.Config) string {
	hostPort := net.JoinHostPort(cfg.Database.Host, strconv.Itoa(cfg.Database.Port))

	// The password may contain URL metacharacters.
	encodedPassword := url.QueryEscape(cfg.Database.Password)

	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		cfg.Database.User,
		encodedPassword,
		hostPort,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

func openPostgres(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerConfig.LoggerService) (*Database, error) {
	pgxPoolConfig, err := pgxpool.ParseConfig(PostgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx pool config: %w", err)
	}

	if cfg.Database.MaxOpenConns > 0 {
		pgxPoolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		pgxPoolConfig.MaxConnLifetime = time.Duration(cfg.Database.ConnMaxLifetime) * time.Second
	}
	if cfg.Database.ConnMaxIdleTime > 0 {
		pgxPoolConfig.MaxConnIdleTime = time.Duration(cfg.Database.ConnMaxIdleTime) * time.Second
	}

	if loggerService.GetApplication() != nil {
		pgxPoolConfig.ConnConfig.Tracer = nrpgx5.NewTracer()
	}

	// SQL query logging is only enabled locally; it is very noisy.
	if cfg.IsLocal() {
		globalLevel := logger.GetLevel()
		pgxLogger := loggerConfig.NewPgxLogger(globalLevel)
		localTracer := &tracelog.TraceLog{
			Logger:   pgxzero.NewLogger(pgxLogger),
			LogLevel: loggerConfig.GetPgxTraceLogLevel(globalLevel),
		}

		if pgxPoolConfig.ConnConfig.Tracer != nil {
			pgxPoolConfig.ConnConfig.Tracer = &multiTracer{
				tracers: []any{pgxPoolConfig.ConnConfig.Tracer, localTracer},
			}
		} else {
			pgxPoolConfig.ConnConfig.Tracer = localTracer
		}
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), pgxPoolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	// database/sql keeps its own idle set on top of the pgx pool.
	sqlDB := stdlib.OpenDBFromPool(pool)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	return &Database{
		DB:      sqlDB,
		pool:    pool,
		dialect: DialectPostgres,
		log:     logger,
	}, nil
}

func openSQLite(cfg *config.Config, logger *zerolog.Logger) (*Database, error) {
	db, err := sql.Open("sqlite", cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite has a single writer, and every connection to ":memory:"
	// is a separate database.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	return &Database{
		DB:      db,
		dialect: DialectSQLite,
		log:     logger,
	}, nil
}

// Dialect reports which SQL flavour the database speaks.
func (db *Database) Dialect() Dialect {
	return db.dialect
}

// Helper returns the SQLHelper bound to this database.
func (db *Database) Helper() *SQLHelper {
	return db.helper
}

// Ping verifies the database is reachable.
func (db *Database) Ping(ctx context.Context) error {
	return db.DB.PingContext(ctx)
}

// Close closes the database handle (and the pgx pool behind it, if any).
func (db *Database) Close() error {
	db.log.Info().Msg("closing database connection")
	err := db.DB.Close()
	if db.pool != nil {
		db.pool.Close()
	}
	return err
}
