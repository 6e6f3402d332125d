package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jakechorley/daycare-scheduler/pkg/db"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultMaxTxRetries is used when NewDB is given a non-positive retry count
const DefaultMaxTxRetries = 3

// SQLSTATE codes a serializable transaction may fail with under contention
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// store implements db.Store on top of a querier
type store struct {
	q querier
}

// DB provides database operations using PostgreSQL
type DB struct {
	store
	pool         *pgxpool.Pool
	maxTxRetries int
	logger       *zap.Logger
}

var _ db.Database = (*DB)(nil)

// NewDB creates a new PostgreSQL database connection
func NewDB(ctx context.Context, connString string, maxTxRetries int, logger *zap.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if maxTxRetries <= 0 {
		maxTxRetries = DefaultMaxTxRetries
	}

	return &DB{
		store:        store{q: pool},
		pool:         pool,
		maxTxRetries: maxTxRetries,
		logger:       logger,
	}, nil
}

// Close closes the database connection pool
func (d *DB) Close() {
	d.pool.Close()
}

// InTx runs fn in a serializable transaction. Serialization failures and
// deadlocks roll back and rerun fn, up to maxTxRetries attempts in total.
func (d *DB) InTx(ctx context.Context, fn func(tx db.Store) error) error {
	var err error
	for attempt := 1; attempt <= d.maxTxRetries; attempt++ {
		err = d.runTx(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		d.logger.Debug("Retrying transaction after serialization failure",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", d.maxTxRetries, err)
}

func (d *DB) runTx(ctx context.Context, fn func(tx db.Store) error) error {
	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&store{q: tx}); err != nil {
		tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// isRetryable reports whether err is a serialization failure or deadlock
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}

// RunMigrations executes all pending SQL migration files in order.
// It tracks which migrations have been applied in a schema_migrations table.
func (d *DB) RunMigrations(ctx context.Context) ([]string, error) {
	_, err := d.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	rows, err := d.pool.Query(ctx, `SELECT filename FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	applied, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan migration filenames: %w", err)
	}

	pending, err := pendingMigrations(migrationsFS, applied)
	if err != nil {
		return nil, err
	}

	for _, filename := range pending {
		content, err := fs.ReadFile(migrationsFS, "migrations/"+filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		tx, err := d.pool.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction for %s: %w", filename, err)
		}

		if _, err := tx.Exec(ctx, string(content)); err != nil {
			tx.Rollback(ctx)
			return nil, fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}

		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, filename); err != nil {
			tx.Rollback(ctx)
			return nil, fmt.Errorf("failed to record migration %s: %w", filename, err)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit migration %s: %w", filename, err)
		}
		d.logger.Info("Applied migration", zap.String("filename", filename))
	}

	return pending, nil
}

// pendingMigrations lists the .sql files under migrations/ not yet applied, sorted by name
func pendingMigrations(fsys fs.FS, applied []string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	done := make(map[string]bool, len(applied))
	for _, f := range applied {
		done[f] = true
	}

	var pending []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") || done[entry.Name()] {
			continue
		}
		pending = append(pending, entry.Name())
	}
	sort.Strings(pending)
	return pending, nil
}
