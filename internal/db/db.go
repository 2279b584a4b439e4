// Package db wraps a single MySQL connection behind the small executor
// surface the generation and grading passes need: run a statement, or run
// a query and fetch every row.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"sqlgrade/internal/config"
)

// Executor is the statement execution surface consumed by the oracle
// generator and the test runner. *DB implements it; tests substitute
// scripted fakes.
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) ([][]any, error)
}

// DB holds one live database connection. Statements run strictly
// sequentially; the pool is capped at a single connection so a generation
// or grading pass never interleaves.
type DB struct {
	sql *sql.DB
}

// Open connects to the database described by cfg and verifies the
// connection with a ping.
func Open(ctx context.Context, cfg config.DBConfig) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = cfg.Database
	mc.MultiStatements = false
	mc.Params = map[string]string{"charset": "utf8mb4"}

	conn, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, errors.Wrap(err, "open mysql connection")
	}
	conn.SetMaxOpenConns(1)
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "connect to %s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
	}
	return &DB{sql: conn}, nil
}

// Exec runs a statement, discarding any result rows.
func (d *DB) Exec(ctx context.Context, query string, args ...any) error {
	_, err := d.sql.ExecContext(ctx, query, args...)
	return err
}

// Query runs a query and fetches every row as raw scalars. Cells come
// back as driver values ([]byte, int64, nil, ...) to be stringified by
// compare.Normalize.
func (d *DB) Query(ctx context.Context, query string, args ...any) ([][]any, error) {
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out [][]any
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, cells)
	}
	return out, rows.Err()
}

// Close releases the connection.
func (d *DB) Close() error {
	return d.sql.Close()
}
