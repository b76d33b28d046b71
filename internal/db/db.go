// Package db is the Postgres store behind every durable piece of journal state.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("forest/db")

// DB wraps a PostgreSQL database connection
type DB struct {
	conn *sql.DB
}

// Connect opens a pgx-backed pool and checks it with a ping.
func Connect(dsn string) (*DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(50)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(20 * time.Minute)

	return &DB{conn: conn}, nil
}

// ConnectWithRetry calls Connect until it succeeds or ctx ends, waiting one
// second after the first failure and doubling up to ten seconds.
func ConnectWithRetry(ctx context.Context, dsn string) (*DB, error) {
	delay := time.Second
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("giving up connecting to database: %w", err)
		}
		db, err := Connect(dsn)
		if err == nil {
			return db, nil
		}
		slog.Warn("database not ready", "attempt", attempt, "retry_in", delay, "error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("giving up connecting to database after %d attempts: %w", attempt, err)
		case <-time.After(delay):
		}
		delay = min(delay*2, 10*time.Second)
	}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping is used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Exec executes a query without returning rows (for testing/migrations)
func (db *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, query, args...)
}

// QueryRow executes a query that returns at most one row (for testing)
func (db *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, query, args...)
}

// Conn returns the underlying *sql.DB, for migrations.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
