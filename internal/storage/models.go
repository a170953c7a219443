// Package storage holds the sqlx-scanned rows for the custom tables this
// plugin owns (rooms, participants, queue, ledger/wallet), and the durable
// room-recovery reads/writes (C11).
package storage

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// RoomStatus mirrors spec §3's Room.status enum.
type RoomStatus string

const (
	RoomWaiting   RoomStatus = "WAITING"
	RoomPlaying   RoomStatus = "PLAYING"
	RoomFinished  RoomStatus = "FINISHED"
	RoomCancelled RoomStatus = "CANCELLED"
)

// GameType mirrors spec §3's Room.gameType enum.
type GameType string

const (
	GameClassicLudo    GameType = "CLASSIC_LUDO"
	GameFastLudo       GameType = "FAST_LUDO"
	GameMemory         GameType = "MEMORY"
	GameSnakesLadders  GameType = "SNAKES_LADDERS"
)

// RoomRow is the durable representation of a Room (spec §3).
type RoomRow struct {
	ID          string          `db:"id"`
	GameType    string          `db:"game_type"`
	MaxPlayers  int             `db:"max_players"`
	EntryFee    decimal.Decimal `db:"entry_fee"`
	PrizePool   decimal.Decimal `db:"prize_pool"`
	Status      string          `db:"status"`
	EngineState []byte          `db:"engine_state"`
	CurrentTurn int             `db:"current_turn"`
	Winner      sql.NullString  `db:"winner"`
	CreatedAt   time.Time       `db:"created_at"`
	StartedAt   sql.NullTime    `db:"started_at"`
	FinishedAt  sql.NullTime    `db:"finished_at"`
}

// ParticipantRow is the durable representation of a Participant (spec §3).
type ParticipantRow struct {
	RoomID string `db:"room_id"`
	UserID string `db:"user_id"`
	Seat   int    `db:"seat"`
	Color  sql.NullString `db:"color"`
	Score  int    `db:"score"`
}

// QueueEntryRow is the durable representation of a QueueEntry (spec §3).
type QueueEntryRow struct {
	ID         string          `db:"id"`
	UserID     string          `db:"user_id"`
	GameType   string          `db:"game_type"`
	MaxPlayers int             `db:"max_players"`
	EntryFee   decimal.Decimal `db:"entry_fee"`
	EnqueuedAt time.Time       `db:"enqueued_at"`
}
