// file: uow/uow.go

// Package uow provides the unit-of-work boundary for the identity core.
// An active transaction is carried as a context value rather than
// ambient per-goroutine state, so ownership of the transaction is
// visible at every call site that participates in it.
package uow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"staff-identity-api/logger"
)

var (
	// ErrActiveUnitOfWork is returned by Begin when the context already
	// carries a transaction. Nested units of work are a programming
	// error, not a supported feature.
	ErrActiveUnitOfWork = errors.New("a unit of work is already active on this context")

	// ErrNoUnitOfWork is returned by Commit/Rollback when no
	// transaction is bound to the context.
	ErrNoUnitOfWork = errors.New("no unit of work is active on this context")

	// ErrInfrastructure wraps every low-level database failure that
	// crosses the unit-of-work boundary. Callers may retry; they must
	// never see a driver error type directly.
	ErrInfrastructure = errors.New("infrastructure failure")
)

// Querier is the statement surface shared by *sql.DB and *sql.Tx.
// Repositories issue all statements through it; a *sql.Tx exposes no
// Close, so a caller holding the in-transaction view cannot end the
// shared transaction prematurely.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// Conn returns the transaction bound to ctx when a unit of work is
// active, otherwise the pool. Every repository statement goes through
// here so that sequential statements inside one logical operation share
// one connection and one atomic commit.
func Conn(ctx context.Context, database *sql.DB) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return database
}

// InTransaction reports whether ctx carries an active unit of work.
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sql.Tx)
	return ok
}

// Manager opens and closes units of work against a single database.
type Manager struct {
	db *sql.DB
}

func NewManager(database *sql.DB) *Manager {
	return &Manager{db: database}
}

// Begin opens a transaction and binds it into the returned context.
// The caller must finish the unit of work with exactly one of Commit or
// Rollback, and Rollback must be reachable from every error branch.
func (m *Manager) Begin(ctx context.Context) (context.Context, error) {
	if InTransaction(ctx) {
		return ctx, ErrActiveUnitOfWork
	}

	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		logger.Log.WithError(err).Error("Failed to begin unit of work")
		return ctx, fmt.Errorf("%w: begin: %v", ErrInfrastructure, err)
	}

	return context.WithValue(ctx, txKey{}, tx), nil
}

// Commit commits the transaction bound to ctx. The binding is spent
// afterwards regardless of outcome; the context must not be reused for
// further transactional work.
func (m *Manager) Commit(ctx context.Context) error {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	if !ok {
		return ErrNoUnitOfWork
	}

	if err := tx.Commit(); err != nil {
		logger.Log.WithError(err).Error("Failed to commit unit of work")
		return fmt.Errorf("%w: commit: %v", ErrInfrastructure, err)
	}
	return nil
}

// Rollback discards the transaction bound to ctx. Rolling back an
// already-finished transaction is tolerated so that deferred rollbacks
// after a successful commit stay silent.
func (m *Manager) Rollback(ctx context.Context) error {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	if !ok {
		return ErrNoUnitOfWork
	}

	if err := tx.Rollback(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return nil
		}
		logger.Log.WithError(err).Error("Failed to roll back unit of work")
		return fmt.Errorf("%w: rollback: %v", ErrInfrastructure, err)
	}
	return nil
}
