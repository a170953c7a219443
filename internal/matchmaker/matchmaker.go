// Package matchmaker implements the Matchmaker (C4): a periodic sweep that
// groups queued players, claims and debits them transactionally, and hands
// off a formed Room to the room registry.
//
// Grounded on Byabasaija-playpool's StartMatchmakerWorker/tryMatchPair:
// same ticker-driven sweep shape and the same BeginTxx + SELECT ... FOR
// UPDATE SKIP LOCKED claim pattern, generalized from a fixed 2-player claim
// to the spec's variable-size group matching with entry-fee debits and
// seat/colour assignment.
package matchmaker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/blackdru/arena-server/internal/apperrors"
	"github.com/blackdru/arena-server/internal/obslog"
	"github.com/blackdru/arena-server/internal/storage"
	"github.com/blackdru/arena-server/internal/wallet"
)

var seatColors = []string{"red", "blue", "green", "yellow"}

// RoomHandoff is invoked once a room has been durably created, so the
// caller (wired to C5 in main.go) can spin up the Nakama match and emit
// matchFound to each participant.
type RoomHandoff func(ctx context.Context, room *storage.RoomRow, participants []storage.ParticipantRow)

// Sweeper runs the periodic matchmaking sweep.
type Sweeper struct {
	db      *sqlx.DB
	queue   *storage.QueueStore
	rooms   *storage.RoomStore
	ledger  *wallet.Ledger
	onRoom  RoomHandoff
}

// New constructs a Sweeper.
func New(db *sqlx.DB, queue *storage.QueueStore, rooms *storage.RoomStore, ledger *wallet.Ledger, onRoom RoomHandoff) *Sweeper {
	return &Sweeper{db: db, queue: queue, rooms: rooms, ledger: ledger, onRoom: onRoom}
}

// Run ticks every interval until ctx is cancelled, re-running immediately
// (spec §4.4: "plus immediate re-run when a sweep produces any match")
// whenever a sweep forms at least one room.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for s.sweep(ctx) {
			}
		}
	}
}

// sweep runs one pass over all matchable groups and reports whether it
// formed at least one room (signalling the caller to sweep again right away).
func (s *Sweeper) sweep(ctx context.Context) bool {
	groups, err := s.queue.GroupCounts(ctx)
	if err != nil {
		obslog.Background().Errorw("matchmaker: list group counts", "error", err)
		return false
	}
	if len(groups) == 0 {
		return false
	}

	// Largest-group priority (spec §4.4 tie-break).
	sortGroupsByCountDesc(groups)

	matched := false
	for _, g := range groups {
		if s.matchOneGroup(ctx, g) {
			matched = true
		}
	}
	return matched
}

func sortGroupsByCountDesc(groups []storage.GroupCount) {
	for i := 1; i < len(groups); i++ {
		for j := i; j > 0 && groups[j].Count > groups[j-1].Count; j-- {
			groups[j], groups[j-1] = groups[j-1], groups[j]
		}
	}
}

// matchOneGroup claims and seats one room's worth of entries from group g,
// retrying the claim after dropping a stale (insufficient-balance) entry.
func (s *Sweeper) matchOneGroup(ctx context.Context, g storage.GroupCount) bool {
	for attempt := 0; attempt < 5; attempt++ {
		formed, staleEntryID, err := s.tryClaim(ctx, g)
		if err != nil {
			obslog.Background().Errorw("matchmaker: claim group", "error", err,
				"gameType", g.GameType, "maxPlayers", g.MaxPlayers)
			return false
		}
		if staleEntryID != "" {
			// Transaction aborted; drop just the stale entry outside it and retry.
			if err := s.queue.DropEntry(ctx, staleEntryID); err != nil {
				obslog.Background().Errorw("matchmaker: drop stale entry", "error", err)
			}
			continue
		}
		return formed
	}
	return false
}

// tryClaim runs one serializable claim-and-debit transaction. A non-empty
// staleEntryID means the transaction aborted because that entry's debit
// failed with insufficient balance; the caller drops it and retries.
func (s *Sweeper) tryClaim(ctx context.Context, g storage.GroupCount) (formed bool, staleEntryID string, err error) {
	entryFee := g.EntryFee

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return false, "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	entries, err := storage.ClaimOldest(ctx, tx, g.GameType, g.MaxPlayers, entryFee.String(), g.MaxPlayers)
	if err != nil {
		return false, "", fmt.Errorf("claim oldest: %w", err)
	}
	if len(entries) < g.MaxPlayers {
		return false, "", nil
	}

	roomID := uuid.NewString()

	if entryFee.Sign() > 0 {
		for _, e := range entries {
			// DebitTx, not Debit: it must commit as part of this tx, not its
			// own, or an earlier entrant's debit survives a later entrant's
			// insufficient-balance abort (spec §4.4).
			if _, err := s.ledger.DebitTx(ctx, tx, e.UserID, wallet.KindGameEntry, entryFee, "matchmaking entry fee", &roomID); err != nil {
				if err == apperrors.ErrInsufficientBalance {
					return false, e.ID, nil
				}
				return false, "", fmt.Errorf("debit entry fee for %s: %w", e.UserID, err)
			}
		}
	}

	ids := make([]string, len(entries))
	participants := make([]storage.ParticipantRow, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		participants[i] = storage.ParticipantRow{
			RoomID: roomID,
			UserID: e.UserID,
			Seat:   i,
		}
		participants[i].Color.String = seatColors[i%len(seatColors)]
		participants[i].Color.Valid = true
	}

	room := &storage.RoomRow{
		ID:         roomID,
		GameType:   g.GameType,
		MaxPlayers: g.MaxPlayers,
		EntryFee:   entryFee,
		PrizePool:  storage.ComputePrizePool(entryFee, g.MaxPlayers),
		Status:     string(storage.RoomWaiting),
	}

	if err := createRoomInTx(ctx, tx, room, participants); err != nil {
		return false, "", fmt.Errorf("create room: %w", err)
	}
	if err := storage.DeleteEntries(ctx, tx, ids); err != nil {
		return false, "", fmt.Errorf("delete matched queue entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, "", fmt.Errorf("commit: %w", err)
	}

	if s.onRoom != nil {
		s.onRoom(ctx, room, participants)
	}
	return true, "", nil
}

// createRoomInTx inserts the room and its participants using the caller's
// open transaction (RoomStore.CreateRoom opens its own, which would
// deadlock nested inside this one, so the insert is duplicated here at
// statement level).
func createRoomInTx(ctx context.Context, tx *sqlx.Tx, room *storage.RoomRow, participants []storage.ParticipantRow) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO rooms (id, game_type, max_players, entry_fee, prize_pool, status, current_turn)
		VALUES (:id, :game_type, :max_players, :entry_fee, :prize_pool, :status, 0)
	`, room)
	if err != nil {
		return err
	}
	for _, p := range participants {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO participants (room_id, user_id, seat, color, score)
			VALUES (:room_id, :user_id, :seat, :color, :score)
		`, p); err != nil {
			return err
		}
	}
	return nil
}
