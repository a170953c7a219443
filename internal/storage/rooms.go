package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// RoomStore persists rooms, participants, and their engine-state snapshots.
// Grounded on the teacher's items/storage_operations.go read/write helpers,
// generalized from Nakama storage-object blobs to sqlx rows.
type RoomStore struct {
	db *sqlx.DB
}

func NewRoomStore(db *sqlx.DB) *RoomStore {
	return &RoomStore{db: db}
}

// CreateRoom inserts a new WAITING room and its seated participants in one
// transaction of its own. (The matchmaker does not use it: it inserts the
// room inside its claim transaction.)
func (s *RoomStore) CreateRoom(ctx context.Context, room *RoomRow, participants []ParticipantRow) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO rooms (id, game_type, max_players, entry_fee, prize_pool, status, engine_state, current_turn, winner, created_at, started_at, finished_at)
		VALUES (:id, :game_type, :max_players, :entry_fee, :prize_pool, :status, :engine_state, :current_turn, :winner, :created_at, :started_at, :finished_at)
	`, room)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}

	for _, p := range participants {
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO participants (room_id, user_id, seat, color, score)
			VALUES (:room_id, :user_id, :seat, :color, :score)
		`, p)
		if err != nil {
			return fmt.Errorf("insert participant %s: %w", p.UserID, err)
		}
	}

	return tx.Commit()
}

// GetRoom loads the current room row, if any.
func (s *RoomStore) GetRoom(ctx context.Context, roomID string) (*RoomRow, error) {
	var row RoomRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM rooms WHERE id = $1`, roomID)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetParticipants loads every seated participant of a room, ordered by seat.
func (s *RoomStore) GetParticipants(ctx context.Context, roomID string) ([]ParticipantRow, error) {
	var rows []ParticipantRow
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM participants WHERE room_id = $1 ORDER BY seat`, roomID)
	return rows, err
}

// SaveSnapshot persists the room's status, engine state, and turn pointer.
// Called by the room worker after every accepted mutation (spec §4.5); this
// is a last-writer-wins update keyed by room id, always issued from that
// room's own single-writer goroutine, so no cross-row locking is needed.
func (s *RoomStore) SaveSnapshot(ctx context.Context, roomID string, status string, engineState []byte, currentTurn int, winner *string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE rooms SET status = $2, engine_state = $3, current_turn = $4, winner = $5
		WHERE id = $1
	`, roomID, status, engineState, currentTurn, winner)
	return err
}

// MarkStarted records the PLAYING transition's timestamp.
func (s *RoomStore) MarkStarted(ctx context.Context, roomID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE rooms SET started_at = now() WHERE id = $1 AND started_at IS NULL`, roomID)
	return err
}

// MarkFinished records the FINISHED/CANCELLED transition's timestamp.
func (s *RoomStore) MarkFinished(ctx context.Context, roomID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE rooms SET finished_at = now() WHERE id = $1 AND finished_at IS NULL`, roomID)
	return err
}

// UpdateParticipantScore persists a single participant's running score.
func (s *RoomStore) UpdateParticipantScore(ctx context.Context, roomID, userID string, score int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE participants SET score = $3 WHERE room_id = $1 AND user_id = $2`, roomID, userID, score)
	return err
}

// Cancel transitions a WAITING or PLAYING room to CANCELLED. Returns
// sql.ErrNoRows if the room is already terminal (FINISHED/CANCELLED) or
// absent, so the caller doesn't refund twice.
func (s *RoomStore) Cancel(ctx context.Context, roomID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rooms SET status = 'CANCELLED', finished_at = now()
		WHERE id = $1 AND status IN ('WAITING', 'PLAYING')
	`, roomID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ComputePrizePool returns 0.9 * entryFee * maxPlayers, truncated to two
// fractional digits (spec §4.1: truncate-toward-zero at settlement).
func ComputePrizePool(entryFee decimal.Decimal, maxPlayers int) decimal.Decimal {
	pool := entryFee.Mul(decimal.NewFromInt(int64(maxPlayers))).Mul(decimal.NewFromFloat(0.9))
	return pool.Truncate(2)
}
