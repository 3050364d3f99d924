// file: uow/uow_test.go

package uow

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"staff-identity-api/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func TestManager_BeginCommit(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	dbMock.ExpectBegin()
	dbMock.ExpectCommit()

	m := NewManager(db)
	ctx, err := m.Begin(context.Background())
	assert.NoError(t, err)
	assert.True(t, InTransaction(ctx))

	assert.NoError(t, m.Commit(ctx))
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestManager_BeginIsNonReentrant(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	dbMock.ExpectBegin()
	dbMock.ExpectRollback()

	m := NewManager(db)
	ctx, err := m.Begin(context.Background())
	assert.NoError(t, err)

	// A second Begin on the same context is a programming error.
	_, err = m.Begin(ctx)
	assert.ErrorIs(t, err, ErrActiveUnitOfWork)

	assert.NoError(t, m.Rollback(ctx))
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestManager_CommitWithoutBegin(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	m := NewManager(db)
	assert.ErrorIs(t, m.Commit(context.Background()), ErrNoUnitOfWork)
	assert.ErrorIs(t, m.Rollback(context.Background()), ErrNoUnitOfWork)
}

func TestManager_CommitFailureIsInfrastructure(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	dbMock.ExpectBegin()
	dbMock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	m := NewManager(db)
	ctx, err := m.Begin(context.Background())
	assert.NoError(t, err)

	err = m.Commit(ctx)
	assert.ErrorIs(t, err, ErrInfrastructure)
	assert.NotContains(t, err.Error(), "sql.Tx")
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestManager_RollbackAfterCommitIsSilent(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	dbMock.ExpectBegin()
	dbMock.ExpectCommit()

	m := NewManager(db)
	ctx, err := m.Begin(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, m.Commit(ctx))

	// Deferred rollback after a successful commit must not error.
	assert.NoError(t, m.Rollback(ctx))
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestConn_ReturnsBoundTransaction(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	dbMock.ExpectBegin()
	dbMock.ExpectExec("UPDATE refresh_tokens").WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectRollback()

	m := NewManager(db)
	ctx, err := m.Begin(context.Background())
	assert.NoError(t, err)

	// The statement must run on the bound transaction, not the pool.
	q := Conn(ctx, db)
	_, err = q.ExecContext(ctx, "UPDATE refresh_tokens SET is_revoked = TRUE")
	assert.NoError(t, err)

	assert.NoError(t, m.Rollback(ctx))
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestConn_FallsBackToPool(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	dbMock.ExpectExec("SELECT 1").WillReturnResult(sqlmock.NewResult(0, 0))

	q := Conn(context.Background(), db)
	_, err = q.ExecContext(context.Background(), "SELECT 1")
	assert.NoError(t, err)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}
