// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/parley/retry"
	"github.com/poiesic/parley/storage"
)

// DB wraps a *sql.DB together with the dialect its queries are written
// for.
type DB struct {
	conn    *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var connectPolicy = retry.Policy{
	MaxAttempts: 5,
	BaseDelay:   200 * time.Millisecond,
	MaxDelay:    2 * time.Second,
}

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger the DB derives its component logger from.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *openOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open connects to a database and pings it, retrying while the server is
// unreachable. driver is "postgres" or "sqlite".
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*DB, error) {
	options := &openOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	if dialect == SQLite {
		dsn = sqliteDSN(dsn)
	}
	conn, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", dialect, err)
	}
	if dialect == SQLite {
		// One connection, so that :memory: databases are shared and
		// writers never see SQLITE_BUSY.
		conn.SetMaxOpenConns(1)
	}

	logger := options.logger.With("component", "sqlstore", "dialect", string(dialect))
	err = retry.WithBackoff(ctx, func() error {
		return conn.PingContext(ctx)
	}, connectPolicy)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to %s database: %w", dialect, err)
	}
	logger.Debug("database connected")

	return &DB{conn: conn, dialect: dialect, logger: logger}, nil
}

// sqliteDSN turns on foreign keys and a sortable time format unless the
// DSN already sets them.
func sqliteDSN(dsn string) string {
	var params []string
	if !strings.Contains(dsn, "_time_format=") {
		params = append(params, "_time_format=sqlite")
	}
	if !strings.Contains(dsn, "foreign_keys") {
		params = append(params, "_pragma=foreign_keys(1)")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// Close closes the connection pool.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Dialect returns the SQL dialect of the connection.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// WithTx runs fn in a transaction. The transaction is committed if fn
// returns nil and rolled back otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return db.mapError(err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				db.logger.Warn("rollback failed", "error", rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return db.mapError(tx.Commit())
}

func (db *DB) exec(ctx context.Context, q querier, query string, args ...any) error {
	_, err := q.ExecContext(ctx, db.dialect.Rebind(query), args...)
	return db.mapError(err)
}

// mapError translates driver errors into storage sentinels where one
// applies. Other errors are returned unchanged.
func (db *DB) mapError(err error) error {
	if err == nil {
		return nil
	}
	// database/sql does not export its closed-pool error.
	if errors.Is(err, sql.ErrConnDone) || err.Error() == "sql: database is closed" {
		return fmt.Errorf("%w: %w", storage.ErrStorageClosed, err)
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %w", storage.ErrDuplicateKey, err)
	}
	return err
}
