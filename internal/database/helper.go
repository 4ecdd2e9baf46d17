package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"

	loggerConfig "github.com/deppfellow/adoption-agency/internal/logger"
)

// DBTX is the subset of *sql.DB / *sql.Tx / *sql.Conn that SQLHelper needs.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Row is a single result row keyed by column name.
type Row map[string]any

// SQLHelper runs raw SQL statements and returns rows as maps.
//
// Each Exec commits on its own; there is no cross-statement transaction.
type SQLHelper struct {
	db                 DBTX
	log                *zerolog.Logger
	debug              bool
	slowQueryThreshold time.Duration
}

// NewSQLHelper wraps db. When debug is set every statement and its
// parameters are logged at debug level; statements slower than
// slowQueryThreshold (if > 0) are logged as warnings.
func NewSQLHelper(db DBTX, logger *zerolog.Logger, debug bool, slowQueryThreshold time.Duration) *SQLHelper {
	return &SQLHelper{
		db:                 db,
		log:                logger,
		debug:              debug,
		slowQueryThreshold: slowQueryThreshold,
	}
}

// Exec runs a statement that returns no rows.
func (h *SQLHelper) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	start := time.Now()
	res, err := h.db.ExecContext(ctx, query, args...)
	h.trace(ctx, query, args, start, err)
	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		// Not every driver reports it; the statement itself succeeded.
		return 0, nil
	}
	return affected, nil
}

// FetchAll runs query and returns every row. The slice is empty, never
// nil, when nothing matches.
func (h *SQLHelper) FetchAll(ctx context.Context, query string, args ...any) ([]Row, error) {
	start := time.Now()
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		h.trace(ctx, query, args, start, err)
		return nil, err
	}
	defer rows.Close()

	result, err := scanRows(rows)
	h.trace(ctx, query, args, start, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FetchOne runs query and returns its first row, or nil when there is none.
func (h *SQLHelper) FetchOne(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := h.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading result columns: %w", err)
	}

	result := make([]Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(Row, len(columns))
		for i, column := range columns {
			// Some drivers hand back TEXT as []byte.
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
				continue
			}
			row[column] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (h *SQLHelper) trace(ctx context.Context, query string, args []any, start time.Time, err error) {
	log := loggerConfig.FromContext(ctx, h.log)
	elapsed := time.Since(start)

	if h.debug {
		log.Debug().
			Str("sql", query).
			Interface("args", args).
			Dur("duration", elapsed).
			Err(err).
			Msg("executed statement")
	}

	if h.slowQueryThreshold > 0 && elapsed > h.slowQueryThreshold {
		log.Warn().
			Str("sql", query).
			Dur("duration", elapsed).
			Dur("threshold", h.slowQueryThreshold).
			Msg("slow query")
	}
}

// DecodeRow copies the columns of row into out, matching `db` struct tags.
//
// Input is weakly typed so that SQLite's 0/1 integers decode into bool
// fields and driver integer widths line up with int64.
func DecodeRow(row Row, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "db",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(map[string]any(row)); err != nil {
		return fmt.Errorf("decoding row: %w", err)
	}
	return nil
}
