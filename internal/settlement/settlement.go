// Package settlement implements Settlement (C10): the idempotent winner
// payout that fires exactly once per room on entering FINISHED.
package settlement

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/blackdru/arena-server/internal/apperrors"
	"github.com/blackdru/arena-server/internal/wallet"
)

// Settler credits a room's prize pool to its winner exactly once, guarded
// by both an in-process idempotency set (covers the common case of a
// handler invoked twice within one process) and the ledger's own unique
// (gameRef, kind=GAME_WINNING) index (covers a restart mid-handler — spec
// §4.10's stronger durable guarantee).
type Settler struct {
	ledger *wallet.Ledger

	mu      sync.Mutex
	settled map[string]struct{}
}

// New constructs a Settler over the given ledger.
func New(ledger *wallet.Ledger) *Settler {
	return &Settler{ledger: ledger, settled: make(map[string]struct{})}
}

// Settle credits prizePool to winnerUserID for roomID, returning nil both
// when the credit succeeds and when the room was already settled
// (spec §4.10: "a set of settled room ids guards against double-credit").
func (s *Settler) Settle(ctx context.Context, roomID, winnerUserID string, prizePool decimal.Decimal) error {
	if winnerUserID == "" {
		return fmt.Errorf("settlement: room %s finished with no winner", roomID)
	}

	s.mu.Lock()
	if _, already := s.settled[roomID]; already {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	gameRef := roomID
	_, err := s.ledger.Credit(ctx, winnerUserID, wallet.KindGameWinning, prizePool, "prize pool settlement", &gameRef)
	if err != nil {
		if err == apperrors.ErrDuplicateReceipt {
			s.markSettled(roomID)
			return nil
		}
		return fmt.Errorf("settlement: credit winner: %w", err)
	}

	s.markSettled(roomID)
	return nil
}

func (s *Settler) markSettled(roomID string) {
	s.mu.Lock()
	s.settled[roomID] = struct{}{}
	s.mu.Unlock()
}
