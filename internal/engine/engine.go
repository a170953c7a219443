// Package engine defines the GameEngine capability (spec §10 Non-goals
// rationale: "Dynamic dispatch over game types") that every concrete game
// variant implements, and the small set of helpers ({Player}, seeding) they
// share. The room worker (internal/room) is engine-agnostic: it only calls
// through this interface.
package engine

import "github.com/blackdru/arena-server/internal/sessionbus"

// Player is a seated room participant as the engine sees it.
type Player struct {
	UserID string
	Seat   int
	Color  string
}

// Engine is the per-game pure-ish state machine transforming
// (state, action) -> (state', events). Implementations hold no I/O handles;
// all persistence and notification fan-out is the room worker's job.
type Engine interface {
	// Init seeds the engine's initial state for the given seated players and
	// returns the gameStarted event (and any engine-specific setup events).
	Init(seed int64, players []Player) []sessionbus.Event

	// Apply validates and executes one actor's action, returning the
	// resulting events or a rejection error (spec §7 Validation/Authorization
	// failures — no state change on error).
	Apply(actorUserID string, action sessionbus.Action) ([]sessionbus.Event, error)

	// OnTimeout executes the engine's turn- or game-clock expiry policy.
	OnTimeout() []sessionbus.Event

	// IsTerminal reports whether the game has ended and, if so, the winner.
	IsTerminal() (winnerUserID string, ok bool)

	// Snapshot serializes engine state for persistence (C11) and recovery.
	Snapshot() ([]byte, error)

	// Restore replaces engine state from a previously produced Snapshot.
	Restore(data []byte) error
}
