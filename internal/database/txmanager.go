package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type txKey struct{}

// Querier is the subset of *sql.DB and *sql.Tx the repositories use.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxManager runs a unit of work atomically. Registration relies on it to write the
// user row and its outbox event together.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type sqlTxManager struct {
	db *sql.DB
}

// NewTxManager returns a TxManager backed by db.
func NewTxManager(db *sql.DB) TxManager {
	return &sqlTxManager{db: db}
}

// WithTx commits when fn returns nil and rolls back otherwise, returning fn's error
// unchanged. A ctx already carrying a transaction joins it. A panic in fn rolls back
// before it propagates.
func (m *sqlTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("failed to rollback transaction: %w", rbErr))
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// GetTx returns the transaction carried by ctx, falling back to db.
func GetTx(ctx context.Context, db *sql.DB) Querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db
}
