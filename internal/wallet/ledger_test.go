package wallet

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/blackdru/arena-server/internal/apperrors"
)

func newMockLedger(t *testing.T) (*Ledger, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestCreditAppliesDeltaAndInsertsEntry(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallets")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(decimal.NewFromInt(10)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance")).
		WithArgs("u1", decimal.NewFromInt(20)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_entries")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := ledger.Credit(context.Background(), "u1", KindDeposit, decimal.NewFromInt(10), "test credit", nil)
	require.NoError(t, err)
	require.True(t, result.NewBalance.Equal(decimal.NewFromInt(20)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitInsufficientBalanceRollsBack(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallets")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(decimal.NewFromInt(5)))
	mock.ExpectRollback()

	_, err := ledger.Debit(context.Background(), "u1", KindGameEntry, decimal.NewFromInt(10), "entry fee", nil)
	require.ErrorIs(t, err, apperrors.ErrInsufficientBalance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditRejectsDebitKind(t *testing.T) {
	ledger, _ := newMockLedger(t)
	_, err := ledger.Credit(context.Background(), "u1", KindGameEntry, decimal.NewFromInt(10), "wrong kind", nil)
	require.Error(t, err)
}

func TestDebitTxParticipatesInCallersTransaction(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallets")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(decimal.NewFromInt(50)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance")).
		WithArgs("u1", decimal.NewFromInt(40)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_entries")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := ledger.db.Beginx()
	require.NoError(t, err)

	result, err := ledger.DebitTx(context.Background(), tx, "u1", KindGameEntry, decimal.NewFromInt(10), "matchmaking entry fee", nil)
	require.NoError(t, err)
	require.True(t, result.NewBalance.Equal(decimal.NewFromInt(40)))

	// DebitTx must not have committed or rolled back on its own — the caller
	// (the matchmaker's claim transaction) owns that decision.
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitTxInsufficientBalanceLeavesCommitToCaller(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallets")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(decimal.NewFromInt(5)))
	mock.ExpectRollback()

	tx, err := ledger.db.Beginx()
	require.NoError(t, err)

	_, err = ledger.DebitTx(context.Background(), tx, "u1", KindGameEntry, decimal.NewFromInt(10), "matchmaking entry fee", nil)
	require.ErrorIs(t, err, apperrors.ErrInsufficientBalance)

	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureWalletInsertsOnConflictDoNothing(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wallets")).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := ledger.EnsureWallet(context.Background(), "u1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceReturnsZeroForMissingWallet(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT balance FROM wallets")).
		WithArgs("newuser").
		WillReturnError(sql.ErrNoRows)

	bal, err := ledger.Balance(context.Background(), "newuser")
	require.NoError(t, err)
	require.True(t, bal.Equal(decimal.Zero))
	require.NoError(t, mock.ExpectationsWereMet())
}
