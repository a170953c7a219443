// Package wallet implements the Wallet Ledger (C1): append-only transactions
// plus balance mutation under a single serializable operation, credit/debit
// with idempotency keys, and refund-on-failure.
package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind mirrors spec §3 LedgerEntry.kind.
type Kind string

const (
	KindDeposit        Kind = "DEPOSIT"
	KindWithdrawal     Kind = "WITHDRAWAL"
	KindGameEntry      Kind = "GAME_ENTRY"
	KindGameWinning    Kind = "GAME_WINNING"
	KindRefund         Kind = "REFUND"
	KindReferralBonus  Kind = "REFERRAL_BONUS"
)

// Status mirrors spec §3 LedgerEntry.status. Transitions are terminal:
// PENDING -> {COMPLETED, FAILED, CANCELLED} only.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// isCredit reports whether amounts of this kind are signed positive.
func (k Kind) isCredit() bool {
	switch k {
	case KindDeposit, KindGameWinning, KindRefund, KindReferralBonus:
		return true
	default:
		return false
	}
}

// Entry is the durable, append-only ledger row (spec §3 LedgerEntry).
type Entry struct {
	ID        string
	UserID    string
	Kind      Kind
	Amount    decimal.Decimal // always positive magnitude; sign is implied by Kind
	Status    Status
	GameRef   *string
	Receipt   *string
	Memo      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Result is returned by every mutating ledger operation.
type Result struct {
	NewBalance decimal.Decimal
	LedgerID   string
}

// BankDetails is an opaque payout destination; validated by the (out of
// scope) payment-gateway integration, not by this package.
type BankDetails struct {
	AccountNumber string
	IFSC          string
	AccountName   string
}
