package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/types"
)

// TxKey is the context key type for storing transaction
type TxKey struct{}

// Tx wraps sqlx.Tx. Nested WithTx calls reuse it through savepoints.
type Tx struct {
	*sqlx.Tx
	depth int
	ID    string
}

// GetTx retrieves a transaction from the context if it exists
func GetTx(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(TxKey{}).(*Tx)
	return tx, ok
}

// WithTx runs fn inside a READ COMMITTED transaction carried by the context.
// If ctx already holds a transaction, fn runs inside a savepoint of it instead.
// Any error from fn rolls back its level and is returned unchanged.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := GetTx(ctx); ok {
		return db.withSavepoint(ctx, tx, fn)
	}

	sqlxTx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Could not start a database transaction").
			Mark(ierr.ErrDatabase)
	}

	tx := &Tx{Tx: sqlxTx, ID: types.GenerateUUID()}
	txCtx := context.WithValue(ctx, TxKey{}, tx)

	db.logger.Debugw("starting new transaction", "tx_id", tx.ID)

	defer func() {
		if r := recover(); r != nil {
			db.logger.Errorw("panic in transaction", "tx_id", tx.ID, "panic", r)
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(txCtx); err != nil {
		db.logger.Debugw("rolling back transaction", "tx_id", tx.ID, "error", err)
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Errorw("failed to roll back transaction", "tx_id", tx.ID, "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return ierr.WithError(err).
			WithHint("Could not commit the database transaction").
			Mark(ierr.ErrDatabase)
	}

	db.logger.Debugw("committed transaction", "tx_id", tx.ID)
	return nil
}

func (db *DB) withSavepoint(ctx context.Context, tx *Tx, fn func(ctx context.Context) error) error {
	tx.depth++
	savepoint := fmt.Sprintf("sp_%d", tx.depth)
	defer func() { tx.depth-- }()

	db.logger.Debugw("creating savepoint", "tx_id", tx.ID, "savepoint", savepoint)

	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
		return ierr.WithError(err).
			WithHint("Could not create a savepoint").
			Mark(ierr.ErrDatabase)
	}

	if err := fn(ctx); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
			db.logger.Errorw("failed to roll back to savepoint", "tx_id", tx.ID, "savepoint", savepoint, "error", rbErr)
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
		return ierr.WithError(err).
			WithHint("Could not release a savepoint").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
