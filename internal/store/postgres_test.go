package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectEnsureAndLock(mock sqlmock.Sqlmock, accountID, balance int64) {
	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(accountID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT balance FROM accounts WHERE id = \\$1 FOR UPDATE").
		WithArgs(accountID).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(balance))
}

func TestPostgresStore_Credit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresStore(db)

	mock.ExpectBegin()
	expectEnsureAndLock(mock, 42, 5)
	mock.ExpectExec("UPDATE accounts SET balance = \\$1").
		WithArgs(int64(15), sqlmock.AnyArg(), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO ledger_log").
		WithArgs(int64(42), int64(10), "no reason given", int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	after, err := s.Credit(context.Background(), 42, 10, "no reason given", 7)
	assert.NoError(t, err)
	assert.Equal(t, int64(15), after, "returns the balance the credit produced")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Debit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresStore(db)

	t.Run("sufficient balance", func(t *testing.T) {
		mock.ExpectBegin()
		expectEnsureAndLock(mock, 42, 20)
		mock.ExpectExec("UPDATE accounts SET balance = \\$1").
			WithArgs(int64(12), sqlmock.AnyArg(), int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO ledger_log").
			WithArgs(int64(42), int64(-8), "taken back", int64(7), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		after, err := s.Debit(context.Background(), 42, 8, "taken back", 7)
		assert.NoError(t, err)
		assert.Equal(t, int64(12), after, "returns the balance the debit produced")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient balance writes nothing", func(t *testing.T) {
		mock.ExpectBegin()
		expectEnsureAndLock(mock, 42, 5)
		mock.ExpectRollback()

		_, err := s.Debit(context.Background(), 42, 10, "taken back", 7)
		var insufficient *InsufficientBalanceError
		require.True(t, errors.As(err, &insufficient))
		assert.Equal(t, int64(5), insufficient.Balance)
		assert.Equal(t, int64(10), insufficient.Requested)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_Transfer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresStore(db)

	t.Run("locks accounts in id order", func(t *testing.T) {
		// Sender has the higher id, so the receiver locks first.
		mock.ExpectBegin()
		expectEnsureAndLock(mock, 2, 0)
		expectEnsureAndLock(mock, 9, 50)
		mock.ExpectExec("UPDATE accounts SET balance = \\$1").
			WithArgs(int64(30), sqlmock.AnyArg(), int64(9)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE accounts SET balance = \\$1").
			WithArgs(int64(20), sqlmock.AnyArg(), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO ledger_log").
			WithArgs(int64(9), int64(-20), "transfer abc", int64(9), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO ledger_log").
			WithArgs(int64(2), int64(20), "transfer abc", int64(9), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectCommit()

		err := s.Transfer(context.Background(), 9, 2, 20, "transfer abc", 9)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("self transfer fails before any query", func(t *testing.T) {
		err := s.Transfer(context.Background(), 9, 9, 20, "transfer abc", 9)
		assert.ErrorIs(t, err, ErrSameAccount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient funds rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		expectEnsureAndLock(mock, 2, 10)
		expectEnsureAndLock(mock, 9, 5)
		mock.ExpectRollback()

		err := s.Transfer(context.Background(), 9, 2, 20, "transfer abc", 9)
		var insufficient *InsufficientBalanceError
		require.True(t, errors.As(err, &insufficient))
		assert.Equal(t, int64(9), insufficient.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_ResetAllBalances(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, balance FROM accounts WHERE balance <> 0 FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance"}).
			AddRow(1, 30).
			AddRow(2, 12))
	mock.ExpectExec("INSERT INTO ledger_log").
		WithArgs(int64(1), int64(-30), "all pockets emptied", int64(99), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO ledger_log").
		WithArgs(int64(2), int64(-12), "all pockets emptied", int64(99), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("UPDATE accounts SET balance = 0").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err = s.ResetAllBalances(context.Background(), 99)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RolePreservesImage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresStore(db)

	t.Run("clear keeps image column untouched", func(t *testing.T) {
		mock.ExpectExec("UPDATE roles SET title = '', description = ''").
			WithArgs(int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.ClearRole(context.Background(), 42)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing role maps to ErrNoRole", func(t *testing.T) {
		mock.ExpectQuery("SELECT account_id, title, description, image_ref").
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"account_id", "title", "description", "image_ref"}))

		_, err := s.Role(context.Background(), 42)
		assert.ErrorIs(t, err, ErrNoRole)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_Purge(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM ledger_log").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM roles").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM accounts").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err = s.Purge(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
