package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// QueueStore persists matchmaking queue entries (spec §3 QueueEntry, C4).
type QueueStore struct {
	db *sqlx.DB
}

func NewQueueStore(db *sqlx.DB) *QueueStore {
	return &QueueStore{db: db}
}

// Enqueue replaces any existing entry for the user (spec §4.4: "Duplicate
// enqueue by the same user replaces the prior entry (remove-then-insert)").
func (s *QueueStore) Enqueue(ctx context.Context, entry QueueEntryRow) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM queue_entries WHERE user_id = $1`, entry.UserID); err != nil {
		return fmt.Errorf("remove prior entry: %w", err)
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO queue_entries (id, user_id, game_type, max_players, entry_fee, enqueued_at)
		VALUES (:id, :user_id, :game_type, :max_players, :entry_fee, :enqueued_at)
	`, entry)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}

	return tx.Commit()
}

// Leave removes the user's queue entry, if any. No error if absent.
func (s *QueueStore) Leave(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM queue_entries WHERE user_id = $1`, userID)
	return err
}

// DropEntry removes one entry by id, used when the matchmaker finds a stale
// (insufficient-balance) entry and must drop just that one (spec §4.4).
func (s *QueueStore) DropEntry(ctx context.Context, entryID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM queue_entries WHERE id = $1`, entryID)
	return err
}

// GroupCounts returns, for every (gameType, maxPlayers, entryFee) group with
// at least maxPlayers waiting entries, the number of entries pending — the
// matchable groups, with counts used to break ties by largest pending count.
func (s *QueueStore) GroupCounts(ctx context.Context) ([]GroupCount, error) {
	var counts []GroupCount
	err := s.db.SelectContext(ctx, &counts, `
		SELECT game_type, max_players, entry_fee, COUNT(*) AS count
		FROM queue_entries
		GROUP BY game_type, max_players, entry_fee
		HAVING COUNT(*) >= max_players
	`)
	return counts, err
}

// GroupCount is one matchable queue bucket (count >= maxPlayers).
type GroupCount struct {
	GameType   string          `db:"game_type"`
	MaxPlayers int             `db:"max_players"`
	EntryFee   decimal.Decimal `db:"entry_fee"`
	Count      int             `db:"count"`
}

// ClaimOldest selects and locks (FOR UPDATE SKIP LOCKED) the oldest `limit`
// entries in a group within an already-open transaction, enforcing FIFO
// ordering with an id tie-break (spec §4.4).
func ClaimOldest(ctx context.Context, tx *sqlx.Tx, gameType string, maxPlayers int, entryFee string, limit int) ([]QueueEntryRow, error) {
	var rows []QueueEntryRow
	err := tx.SelectContext(ctx, &rows, `
		SELECT * FROM queue_entries
		WHERE game_type = $1 AND max_players = $2 AND entry_fee = $3
		ORDER BY enqueued_at ASC, id ASC
		LIMIT $4
		FOR UPDATE SKIP LOCKED
	`, gameType, maxPlayers, entryFee, limit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rows, err
}

// DeleteEntries removes the matched queue rows inside the caller's transaction.
func DeleteEntries(ctx context.Context, tx *sqlx.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM queue_entries WHERE id IN (?)`, ids)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(query), args...)
	return err
}
