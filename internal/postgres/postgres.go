package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	"github.com/lexledger/lexledger/internal/config"
	"github.com/lexledger/lexledger/internal/logger"
	_ "github.com/lib/pq"
)

// IClient is what services need from the database: a transactional scope.
// Repositories share the transaction through the context passed to fn.
type IClient interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DB wraps sqlx.DB to provide transaction management
type DB struct {
	*sqlx.DB
	logger *logger.Logger
}

// Querier interface defines all database operations
// Both *sqlx.DB and *sqlx.Tx implement these methods
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// NewDB connects to postgres, retrying with exponential backoff while the database comes up
func NewDB(cfg *config.Configuration, logger *logger.Logger) (*DB, error) {
	dsn := cfg.Postgres.GetDSN()

	var conn *sqlx.DB
	connect := func() error {
		var err error
		conn, err = sqlx.Connect("postgres", dsn)
		if err != nil {
			logger.Warnw("postgres not reachable yet, retrying",
				"host", cfg.Postgres.Host,
				"port", cfg.Postgres.Port,
				"error", err,
			)
		}
		return err
	}

	expontentialBackoff := backoff.NewExponentialBackOff()
	expontentialBackoff.MaxInterval = 5 * time.Second
	expontentialBackoff.MaxElapsedTime = time.Duration(cfg.Postgres.ConnectTimeoutSeconds) * time.Second

	if err := backoff.Retry(connect, expontentialBackoff); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if cfg.Postgres.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	}
	if cfg.Postgres.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	}
	if cfg.Postgres.ConnMaxLifetimeMinutes > 0 {
		conn.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetimeMinutes) * time.Minute)
	}

	logger.Infow("connected to postgres",
		"host", cfg.Postgres.Host,
		"dbname", cfg.Postgres.DBName,
	)

	return &DB{DB: conn, logger: logger}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if err := db.DB.Close(); err != nil {
		db.logger.Errorw("error closing database", "error", err)
	}
}

// GetQuerier returns either the transaction from context or the base DB
func (db *DB) GetQuerier(ctx context.Context) Querier {
	if tx, ok := GetTx(ctx); ok {
		return NewTracedQuerier(tx.Tx, db.logger, tx.ID)
	}
	return NewTracedQuerier(db.DB, db.logger, "")
}

// NamedExecContext runs a named statement on the transaction in ctx, if any
func (db *DB) NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error) {
	return db.GetQuerier(ctx).NamedExecContext(ctx, query, arg)
}

// NamedQueryContext runs a named query on the transaction in ctx, if any
func (db *DB) NamedQueryContext(ctx context.Context, query string, arg interface{}) (*sqlx.Rows, error) {
	return sqlx.NamedQueryContext(ctx, db.GetQuerier(ctx), query, arg)
}

// GetContext scans a single row on the transaction in ctx, if any
func (db *DB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return db.GetQuerier(ctx).GetContext(ctx, dest, query, args...)
}

// SelectContext scans all rows on the transaction in ctx, if any
func (db *DB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return db.GetQuerier(ctx).SelectContext(ctx, dest, query, args...)
}
