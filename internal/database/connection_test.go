package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T, retries int) (*PostgresDB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &PostgresDB{DB: sqlx.NewDb(db, "sqlmock"), MaxTxRetries: retries}, mock
}

func TestWithTx(t *testing.T) {
	t.Run("Commits on success", func(t *testing.T) {
		db, mock := newMockDB(t, 3)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE jobs").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := db.WithTx(context.Background(), func(tx Queryer) error {
			_, err := tx.ExecContext(context.Background(), "UPDATE jobs SET status = 'on_hold' WHERE id = 1")
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Retries serialization failures", func(t *testing.T) {
		db, mock := newMockDB(t, 3)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE jobs").WillReturnError(&pq.Error{Code: "40001"})
		mock.ExpectRollback()
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE jobs").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		calls := 0
		err := db.WithTx(context.Background(), func(tx Queryer) error {
			calls++
			_, err := tx.ExecContext(context.Background(), "UPDATE jobs SET status = 'on_hold' WHERE id = 1")
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Gives up after max attempts", func(t *testing.T) {
		db, mock := newMockDB(t, 2)

		for i := 0; i < 2; i++ {
			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO schedule_assignments").WillReturnError(&pq.Error{Code: "23505"})
			mock.ExpectRollback()
		}

		err := db.WithTx(context.Background(), func(tx Queryer) error {
			_, err := tx.ExecContext(context.Background(), "INSERT INTO schedule_assignments DEFAULT VALUES")
			return err
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrTransactionConflict))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Business errors are not retried", func(t *testing.T) {
		db, mock := newMockDB(t, 3)

		mock.ExpectBegin()
		mock.ExpectRollback()

		calls := 0
		err := db.WithTx(context.Background(), func(tx Queryer) error {
			calls++
			return models.ErrForbidden
		})
		assert.Equal(t, models.ErrForbidden, err)
		assert.Equal(t, 1, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLockKeys_SortedAndDeduplicated(t *testing.T) {
	db, mock := newMockDB(t, 1)

	mock.ExpectExec("SELECT pg_advisory_xact_lock\\(hashtext").WithArgs("schedule:a:2024-12-02").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SELECT pg_advisory_xact_lock\\(hashtext").WithArgs("schedule:b:2024-12-01").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SELECT pg_advisory_xact_lock\\(hashtext").WithArgs("schedule:b:2024-12-02").WillReturnResult(sqlmock.NewResult(0, 0))

	err := LockKeys(context.Background(), db, []string{
		"schedule:b:2024-12-02", "schedule:a:2024-12-02", "schedule:b:2024-12-01", "schedule:b:2024-12-02",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "40001"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}
