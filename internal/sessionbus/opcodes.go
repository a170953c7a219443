// Package sessionbus implements the Session Bus (C3): inbound action
// decoding/validation and outbound event encoding shared by every room
// worker. Dispatch ordering and authentication are provided for free by the
// Nakama match runtime (one MatchLoop goroutine per room, already
// authenticated participants) — this package supplies the payload schema
// and the audience-addressed envelope the teacher's RPC handlers lacked,
// generalized from the teacher's single-purpose item RPCs to a reusable
// opcode table.
package sessionbus

// OpCode identifies the shape of a realtime message's payload. Inbound
// actions use the 1-99 range; outbound events use 100+, one per spec §4.6
// "Outbound realtime events" entry.
type OpCode int64

const (
	// OpAction is the single inbound opcode: clients always send an Action
	// envelope discriminated by its Type field (spec §4.6 inbound events
	// joinMatchmaking/leaveMatchmaking/joinGameRoom are handled via RPC
	// instead, since they precede match membership).
	OpAction OpCode = 1
)

const (
	OpMatchFound       OpCode = 100
	OpGameStarted      OpCode = 101
	OpTurnChanged      OpCode = 102
	OpTurnTimer        OpCode = 103
	OpTimerUpdate      OpCode = 104
	OpDiceRolled       OpCode = 105
	OpPieceMoved       OpCode = 106
	OpCardRevealed     OpCode = 107
	OpCardsMatched     OpCode = 108
	OpCardsMismatched  OpCode = 109
	OpLifelineLost     OpCode = 110
	OpPlayerEliminated OpCode = 111
	OpGameEnded        OpCode = 112
	OpError            OpCode = 113
)
