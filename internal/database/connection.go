package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fieldcrew/crew-ledger/internal/config"
	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/sirupsen/logrus"
)

// Queryer is satisfied by both *sqlx.DB and *sqlx.Tx, so repositories run
// the same statements inside or outside a transaction
type Queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
}

// DB interface defines database operations
type DB interface {
	Queryer
	WithTx(ctx context.Context, fn func(tx Queryer) error) error
	PingContext(ctx context.Context) error
	Close() error
}

// PostgresDB implements the DB interface using sqlx
type PostgresDB struct {
	*sqlx.DB

	// MaxTxRetries bounds how many times WithTx runs fn when Postgres reports
	// a serialization failure, deadlock or unique race
	MaxTxRetries int
	RetryBackoff time.Duration
	Logger       *logrus.Logger
}

// NewConnection creates a new database connection
func NewConnection(cfg config.DatabaseConfig, logger *logrus.Logger) (*PostgresDB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sqlx.Connect("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{
		DB:           db,
		MaxTxRetries: cfg.MaxTxRetries,
		RetryBackoff: 25 * time.Millisecond,
		Logger:       logger,
	}, nil
}

// WithTx runs fn inside a read-committed transaction. The whole of fn is
// re-run when the transaction loses a race; after MaxTxRetries attempts the
// caller gets models.ErrTransactionConflict. Any other error rolls back and
// is returned unchanged.
func (db *PostgresDB) WithTx(ctx context.Context, fn func(tx Queryer) error) error {
	attempts := db.MaxTxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := db.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err

		if db.Logger != nil {
			db.Logger.WithFields(logrus.Fields{
				"attempt":  attempt,
				"attempts": attempts,
				"error":    err.Error(),
			}).Warn("Transaction conflict, retrying")
		}

		if attempt < attempts && db.RetryBackoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(db.RetryBackoff * time.Duration(attempt)):
			}
		}
	}

	return fmt.Errorf("%w: %v", models.ErrTransactionConflict, lastErr)
}

func (db *PostgresDB) runTx(ctx context.Context, fn func(tx Queryer) error) error {
	tx, err := db.DB.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping wraps sqlx.Ping
func (db *PostgresDB) Ping() error {
	return db.DB.Ping()
}

// Close wraps sqlx.Close
func (db *PostgresDB) Close() error {
	return db.DB.Close()
}

// notFound converts sql.ErrNoRows into a typed NotFoundError
func notFound(err error, entity string, id interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewNotFound(entity, id)
	}
	return err
}
