package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/blackdru/arena-server/internal/apperrors"
)

// Ledger is the durable wallet ledger service (C1). Every mutating method
// runs inside one SERIALIZABLE transaction spanning the ledger insert and
// the balance update, per spec §4.1.
//
// Grounded on the transactional-claim style of
// Byabasaija-playpool's matchmaker worker, generalized from a single
// SELECT...FOR UPDATE SKIP LOCKED claim to a full debit/credit/reserve state
// machine, and on AttaboyGO's idempotent command-params shape
// (ExternalTransactionID dedup keys -> our `receipt` unique index).
type Ledger struct {
	db *sqlx.DB
}

// New constructs a Ledger over the Postgres connection Nakama hands InitModule.
func New(db *sqlx.DB) *Ledger {
	return &Ledger{db: db}
}

var serializableOpts = &sql.TxOptions{Isolation: sql.LevelSerializable}

// Credit appends a positive-kind ledger entry and increases the balance.
func (l *Ledger) Credit(ctx context.Context, userID string, kind Kind, amount decimal.Decimal, memo string, gameRef *string) (Result, error) {
	if !kind.isCredit() {
		return Result{}, fmt.Errorf("%s is not a credit kind", kind)
	}
	if amount.Sign() <= 0 {
		return Result{}, apperrors.ErrInvalidAmount
	}
	return l.mutate(ctx, userID, kind, amount, StatusCompleted, memo, gameRef, nil, amount)
}

// Debit appends a negative-kind ledger entry and decreases the balance,
// failing with ErrInsufficientBalance if the balance would go negative.
func (l *Ledger) Debit(ctx context.Context, userID string, kind Kind, amount decimal.Decimal, memo string, gameRef *string) (Result, error) {
	if kind.isCredit() {
		return Result{}, fmt.Errorf("%s is not a debit kind", kind)
	}
	if amount.Sign() <= 0 {
		return Result{}, apperrors.ErrInvalidAmount
	}
	return l.mutate(ctx, userID, kind, amount, StatusCompleted, memo, gameRef, nil, amount.Neg())
}

// mutate is the single atomic primitive every standalone ledger operation
// funnels through: it opens its own SERIALIZABLE transaction and hands off to
// mutateInTx. Callers that already hold an open transaction (e.g. the
// matchmaker's claim transaction) must use DebitTx instead — nesting
// l.db.BeginTxx inside an outer tx would commit independently of it and
// break atomicity (spec §4.4).
func (l *Ledger) mutate(ctx context.Context, userID string, kind Kind, amount decimal.Decimal, status Status, memo string, gameRef, receipt *string, delta decimal.Decimal) (Result, error) {
	tx, err := l.db.BeginTxx(ctx, serializableOpts)
	if err != nil {
		return Result{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := mutateInTx(ctx, tx, userID, kind, amount, status, memo, gameRef, receipt, delta)
	if err != nil {
		return Result{}, err
	}

	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit: %w", err)
	}
	return result, nil
}

// mutateInTx is mutate's transaction body, factored out so it can run inside
// a transaction the caller already owns: insert one ledger row, apply `delta`
// to the wallet balance, reject with ErrInsufficientBalance if the resulting
// balance would be negative. Does not begin or commit/rollback tx.
func mutateInTx(ctx context.Context, tx *sqlx.Tx, userID string, kind Kind, amount decimal.Decimal, status Status, memo string, gameRef, receipt *string, delta decimal.Decimal) (Result, error) {
	newBalance, err := applyDelta(ctx, tx, userID, delta)
	if err != nil {
		return Result{}, err
	}

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, user_id, kind, amount, status, game_id, receipt, memo)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id, userID, string(kind), amount, string(status), gameRef, receipt, memo)
	if err != nil {
		if isUniqueViolation(err) {
			return Result{}, apperrors.ErrDuplicateReceipt
		}
		return Result{}, fmt.Errorf("insert ledger entry: %w", err)
	}

	return Result{NewBalance: newBalance, LedgerID: id}, nil
}

// DebitTx is Debit's transaction body, for callers that need the debit to
// commit atomically alongside other statements in a transaction they already
// opened (e.g. the matchmaker claiming a group and debiting every entrant's
// fee in one serializable transaction, per spec §4.4). The caller owns tx:
// it must commit or roll back itself.
func (l *Ledger) DebitTx(ctx context.Context, tx *sqlx.Tx, userID string, kind Kind, amount decimal.Decimal, memo string, gameRef *string) (Result, error) {
	if kind.isCredit() {
		return Result{}, fmt.Errorf("%s is not a debit kind", kind)
	}
	if amount.Sign() <= 0 {
		return Result{}, apperrors.ErrInvalidAmount
	}
	return mutateInTx(ctx, tx, userID, kind, amount, StatusCompleted, memo, gameRef, nil, amount.Neg())
}

// applyDelta upserts the wallet row and enforces balance >= 0 (spec §3
// invariant), returning the resulting balance. Must run inside the caller's
// open transaction.
func applyDelta(ctx context.Context, tx *sqlx.Tx, userID string, delta decimal.Decimal) (decimal.Decimal, error) {
	var current decimal.Decimal
	err := tx.QueryRowContext(ctx, `
		INSERT INTO wallets (user_id, balance) VALUES ($1, 0)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING balance
	`, userID).Scan(&current)
	if err != nil {
		return decimal.Zero, fmt.Errorf("lock wallet row: %w", err)
	}

	next := current.Add(delta)
	if next.Sign() < 0 {
		return decimal.Zero, apperrors.ErrInsufficientBalance
	}

	_, err = tx.ExecContext(ctx, `UPDATE wallets SET balance = $2, updated_at = now() WHERE user_id = $1`, userID, next)
	if err != nil {
		return decimal.Zero, fmt.Errorf("update balance: %w", err)
	}
	return next, nil
}

// ReserveDeposit creates a PENDING DEPOSIT row only; no balance change yet.
func (l *Ledger) ReserveDeposit(ctx context.Context, userID string, amount decimal.Decimal) (string, error) {
	if amount.Sign() <= 0 {
		return "", apperrors.ErrInvalidAmount
	}
	id := uuid.NewString()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, user_id, kind, amount, status, memo)
		VALUES ($1, $2, $3, $4, $5, '')
	`, id, userID, string(KindDeposit), amount, string(StatusPending))
	if err != nil {
		return "", fmt.Errorf("reserve deposit: %w", err)
	}
	return id, nil
}

// ConfirmDeposit verifies the gateway signature and, on success, transitions
// PENDING -> COMPLETED and credits the balance inside one transaction. On
// signature mismatch the entry is marked FAILED and ErrSignatureInvalid is
// returned.
func (l *Ledger) ConfirmDeposit(ctx context.Context, pendingLedgerID string, receipt Receipt, secret string) (Result, error) {
	if !receipt.Verify(secret) {
		_, _ = l.db.ExecContext(ctx, `UPDATE ledger_entries SET status = $2, updated_at = now() WHERE id = $1 AND status = $3`,
			pendingLedgerID, string(StatusFailed), string(StatusPending))
		return Result{}, apperrors.ErrSignatureInvalid
	}

	tx, err := l.db.BeginTxx(ctx, serializableOpts)
	if err != nil {
		return Result{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var userID string
	var amount decimal.Decimal
	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, amount, status FROM ledger_entries WHERE id = $1 FOR UPDATE
	`, pendingLedgerID).Scan(&userID, &amount, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, apperrors.ErrRoomNotFound
	}
	if err != nil {
		return Result{}, fmt.Errorf("load pending deposit: %w", err)
	}
	if status != string(StatusPending) {
		// Already resolved — conflict, silently succeed with current balance.
		var bal decimal.Decimal
		if err := tx.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&bal); err != nil {
			return Result{}, fmt.Errorf("load balance: %w", err)
		}
		return Result{NewBalance: bal, LedgerID: pendingLedgerID}, nil
	}

	newBalance, err := applyDelta(ctx, tx, userID, amount)
	if err != nil {
		return Result{}, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE ledger_entries SET status = $2, receipt = $3, updated_at = now() WHERE id = $1
	`, pendingLedgerID, string(StatusCompleted), receipt.idempotencyKey())
	if err != nil {
		if isUniqueViolation(err) {
			return Result{}, apperrors.ErrDuplicateReceipt
		}
		return Result{}, fmt.Errorf("complete deposit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit: %w", err)
	}
	return Result{NewBalance: newBalance, LedgerID: pendingLedgerID}, nil
}

// RequestWithdrawal debits the balance now (a hold) and creates a PENDING
// WITHDRAWAL row.
func (l *Ledger) RequestWithdrawal(ctx context.Context, userID string, amount decimal.Decimal, _ BankDetails) (string, error) {
	if amount.Sign() <= 0 {
		return "", apperrors.ErrInvalidAmount
	}
	// The row is inserted PENDING in the same transaction as the balance hold.
	res, err := l.mutate(ctx, userID, KindWithdrawal, amount, StatusPending, "withdrawal hold", nil, nil, amount.Neg())
	if err != nil {
		return "", err
	}
	return res.LedgerID, nil
}

// CompleteWithdrawal transitions a withdrawal PENDING -> COMPLETED after the
// external payout succeeds. No balance change (already held).
func (l *Ledger) CompleteWithdrawal(ctx context.Context, pendingLedgerID string) error {
	_, err := l.db.ExecContext(ctx, `
		UPDATE ledger_entries SET status = $2, updated_at = now() WHERE id = $1 AND status = $3
	`, pendingLedgerID, string(StatusCompleted), string(StatusPending))
	return err
}

// FailWithdrawal transitions a withdrawal PENDING -> FAILED and, inside the
// same transaction, appends a compensating REFUND entry crediting the held
// amount back.
func (l *Ledger) FailWithdrawal(ctx context.Context, pendingLedgerID, reason string) (Result, error) {
	tx, err := l.db.BeginTxx(ctx, serializableOpts)
	if err != nil {
		return Result{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var userID string
	var amount decimal.Decimal
	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, amount, status FROM ledger_entries WHERE id = $1 FOR UPDATE
	`, pendingLedgerID).Scan(&userID, &amount, &status)
	if err != nil {
		return Result{}, fmt.Errorf("load withdrawal: %w", err)
	}
	if status != string(StatusPending) {
		return Result{}, apperrors.ErrAlreadySettled
	}

	if _, err := tx.ExecContext(ctx, `UPDATE ledger_entries SET status = $2, updated_at = now() WHERE id = $1`,
		pendingLedgerID, string(StatusFailed)); err != nil {
		return Result{}, fmt.Errorf("mark failed: %w", err)
	}

	newBalance, err := applyDelta(ctx, tx, userID, amount)
	if err != nil {
		return Result{}, err
	}

	refundID := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, user_id, kind, amount, status, memo)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, refundID, userID, string(KindRefund), amount, string(StatusCompleted), reason); err != nil {
		return Result{}, fmt.Errorf("insert refund: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit: %w", err)
	}
	return Result{NewBalance: newBalance, LedgerID: refundID}, nil
}

// Refund makes a terminal PENDING -> CANCELLED transition with a
// compensating credit. Calling it again on a CANCELLED entry returns the
// current balance without a second credit; any other status is rejected
// with ErrAlreadySettled. (Room-cancellation entry-fee reversals go
// through Credit with KindRefund instead.)
func (l *Ledger) Refund(ctx context.Context, pendingLedgerID, reason string) (Result, error) {
	tx, err := l.db.BeginTxx(ctx, serializableOpts)
	if err != nil {
		return Result{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var userID string
	var amount decimal.Decimal
	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, amount, status FROM ledger_entries WHERE id = $1 FOR UPDATE
	`, pendingLedgerID).Scan(&userID, &amount, &status)
	if err != nil {
		return Result{}, fmt.Errorf("load entry: %w", err)
	}
	if status == string(StatusCancelled) {
		// Idempotent: already refunded.
		var bal decimal.Decimal
		if err := tx.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&bal); err != nil {
			return Result{}, fmt.Errorf("load balance: %w", err)
		}
		return Result{NewBalance: bal, LedgerID: pendingLedgerID}, nil
	}
	if status != string(StatusPending) {
		return Result{}, apperrors.ErrAlreadySettled
	}

	if _, err := tx.ExecContext(ctx, `UPDATE ledger_entries SET status = $2, updated_at = now() WHERE id = $1`,
		pendingLedgerID, string(StatusCancelled)); err != nil {
		return Result{}, fmt.Errorf("cancel entry: %w", err)
	}

	newBalance, err := applyDelta(ctx, tx, userID, amount)
	if err != nil {
		return Result{}, err
	}

	refundID := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, user_id, kind, amount, status, memo)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, refundID, userID, string(KindRefund), amount, string(StatusCompleted), reason); err != nil {
		return Result{}, fmt.Errorf("insert refund: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit: %w", err)
	}
	return Result{NewBalance: newBalance, LedgerID: refundID}, nil
}

// EnsureWallet creates a zero-balance wallet row for userID if one doesn't
// already exist. Called once at first authentication so Balance/Debit never
// have to special-case a missing row versus a genuinely empty one.
func (l *Ledger) EnsureWallet(ctx context.Context, userID string) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO wallets (user_id, balance) VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	return err
}

// Balance returns the user's current wallet balance (0 if no wallet row yet).
func (l *Ledger) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := l.db.GetContext(ctx, &bal, `SELECT balance FROM wallets WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	return bal, err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
