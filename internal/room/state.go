package room

import (
	"github.com/shopspring/decimal"

	"github.com/blackdru/arena-server/internal/engine"
	"github.com/blackdru/arena-server/internal/storage"
	"github.com/blackdru/arena-server/internal/turnclock"
)

// matchState is the opaque state Nakama threads through every Match
// callback. Ownership: the room owns engineState and the turn clock (spec
// §3's ownership note); participants are referenced by user id only.
type matchState struct {
	roomID     string
	gameType   storage.GameType
	maxPlayers int
	entryFee   decimal.Decimal
	prizePool  decimal.Decimal
	status     storage.RoomStatus

	players []engine.Player // seat order, fixed at room creation

	joined    map[string]bool // userID -> ever joined
	connected map[string]int  // userID -> count of currently joined presences (multi-device)

	eng engine.Engine

	clock       *turnclock.Clock // per-turn / post-roll countdown, game-type specific
	globalClock *turnclock.Clock // Fast Ludo's single room-wide clock only; stays stopped otherwise

	settled bool

	waitingSinceTick int64 // tick of the first MatchJoin, for the auto-start join window
	graceUntilTick   int64 // after FINISHED, evict once past this tick
}

func (s *matchState) allSeatsOccupied() bool {
	for _, p := range s.players {
		if s.connected[p.UserID] == 0 {
			return false
		}
	}
	return true
}

func (s *matchState) userIDs() []string {
	ids := make([]string, len(s.players))
	for i, p := range s.players {
		ids[i] = p.UserID
	}
	return ids
}

func (s *matchState) isParticipant(userID string) bool {
	for _, p := range s.players {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func (s *matchState) activeCount() int {
	n := 0
	for _, p := range s.players {
		if s.connected[p.UserID] > 0 {
			n++
		}
	}
	return n
}
