package main

import (
	"context"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/jmoiron/sqlx"

	"github.com/blackdru/arena-server/internal/engine"
	"github.com/blackdru/arena-server/internal/matchmaker"
	"github.com/blackdru/arena-server/internal/notify"
	"github.com/blackdru/arena-server/internal/obslog"
	"github.com/blackdru/arena-server/internal/storage"
	"github.com/blackdru/arena-server/internal/wallet"
)

// matchmakerRunner bridges the storage-only matchmaker.Sweeper to the
// Nakama runtime: once a room is durably formed, it spins up the match via
// nk.MatchCreate and pushes a notification to each seated participant (they
// have no match socket yet, so matchFound can't travel through the room's
// own event stream).
type matchmakerRunner struct {
	sweeper *matchmaker.Sweeper
	nk      runtime.NakamaModule
}

func newMatchmakerRunner(db *sqlx.DB, queue *storage.QueueStore, rooms *storage.RoomStore, ledger *wallet.Ledger, nk runtime.NakamaModule) *matchmakerRunner {
	r := &matchmakerRunner{nk: nk}
	r.sweeper = matchmaker.New(db, queue, rooms, ledger, r.onRoomFormed)
	return r
}

func (r *matchmakerRunner) Run(ctx context.Context, interval time.Duration) {
	r.sweeper.Run(ctx, interval)
}

func (r *matchmakerRunner) onRoomFormed(ctx context.Context, roomRow *storage.RoomRow, participants []storage.ParticipantRow) {
	players := make([]engine.Player, 0, len(participants))
	for _, p := range participants {
		players = append(players, engine.Player{UserID: p.UserID, Seat: p.Seat, Color: p.Color.String})
	}

	matchID, err := r.nk.MatchCreate(ctx, matchModuleName, map[string]interface{}{
		"roomId":       roomRow.ID,
		"gameType":     roomRow.GameType,
		"maxPlayers":   roomRow.MaxPlayers,
		"entryFee":     roomRow.EntryFee.String(),
		"prizePool":    roomRow.PrizePool.String(),
		"participants": players,
	})
	if err != nil {
		obslog.Background().Errorw("matchmaker: match create failed", "room", roomRow.ID, "error", err)
		for _, p := range participants {
			_ = notify.MatchmakingError(ctx, r.nk, p.UserID, "room creation failed, entry fee refunded shortly")
		}
		return
	}

	for _, p := range participants {
		if err := notify.MatchFound(ctx, r.nk, p.UserID, matchID, roomRow.GameType); err != nil {
			obslog.Background().Warnw("matchmaker: notify failed", "user", p.UserID, "room", roomRow.ID, "error", err)
		}
	}
}
