// Package ludo implements the Ludo engine (C8) in its Classic and Fast
// variants.
//
// Grounded on the teacher's small-pure-function style (items/match_result.go
// computeTokensEarned/validateRounds): board math lives in free functions
// over plain structs, and the engine itself is a thin state machine calling
// them. The die is math/rand, same as the Memory engine's shuffle — no
// dedicated dice/RNG library appears anywhere in the pack.
package ludo

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/blackdru/arena-server/internal/engine"
	"github.com/blackdru/arena-server/internal/sessionbus"
)

// Variant selects Classic vs Fast Ludo rules (spec §4.8).
type Variant int

const (
	Classic Variant = iota
	Fast
)

const (
	ringSize        = 52
	homeStretchLen  = 6
	finishDistance  = ringSize - 1 + homeStretchLen // 56: last home-stretch cell
	killPoints      = 5
	killedPenalty   = 3
	finishToken     = 10
	noLegalMoveWait = 3 // seconds, auto-advance after a no-move roll (both variants)
)

var colorEntry = map[string]int{"red": 0, "blue": 13, "green": 26, "yellow": 39}

var safeCells = map[int]bool{0: true, 13: true, 26: true, 39: true, 8: true, 21: true, 34: true, 47: true}

type pieceLocation int

const (
	locHome pieceLocation = iota
	locBoard
	locFinished
)

type piece struct {
	Loc      pieceLocation `json:"loc"`
	Distance int           `json:"distance"` // meaningful only when Loc == locBoard; 0..finishDistance
}

type playerState struct {
	engine.Player
	Pieces   [4]piece `json:"pieces"`
	Score    int      `json:"score"`
	Captures int      `json:"captures"`
}

// Engine implements engine.Engine for both Ludo variants.
type Engine struct {
	variant    Variant
	players    []playerState
	turnIdx    int
	lastRoll   int
	rolledThisTurn bool
	globalClockSeconds int // Fast Ludo only; 0 for Classic
	elapsedSeconds     int
	winner     string
	done       bool
	rng        *rand.Rand
}

// New constructs a Ludo engine. globalClockSeconds is 0 for Classic, or
// 300/600 for Fast Ludo depending on player count (spec §4.8).
func New(variant Variant, globalClockSeconds int) *Engine {
	return &Engine{variant: variant, globalClockSeconds: globalClockSeconds}
}

func (e *Engine) Init(seed int64, players []engine.Player) []sessionbus.Event {
	e.rng = rand.New(rand.NewSource(seed))
	e.players = make([]playerState, len(players))
	for i, p := range players {
		ps := playerState{Player: p}
		if e.variant == Fast {
			// Fast Ludo: all pieces start on the board at the colour's entry
			// (distance 0 from entry, per the distance-from-entry encoding below).
			for j := range ps.Pieces {
				ps.Pieces[j] = piece{Loc: locBoard, Distance: 0}
			}
		}
		e.players[i] = ps
	}
	e.turnIdx = 0
	e.done = false
	e.winner = ""
	e.elapsedSeconds = 0

	return []sessionbus.Event{
		{
			OpCode:   sessionbus.OpGameStarted,
			Audience: sessionbus.AudienceRoom,
			Payload:  sessionbus.GameStartedPayload{InitialState: e.publicState()},
		},
		{
			OpCode:   sessionbus.OpTurnChanged,
			Audience: sessionbus.AudienceRoom,
			Payload:  sessionbus.TurnChangedPayload{CurrentPlayerID: e.current().UserID},
		},
	}
}

func (e *Engine) current() *playerState { return &e.players[e.turnIdx] }

func (e *Engine) Apply(actorUserID string, action sessionbus.Action) ([]sessionbus.Event, error) {
	if e.done {
		return nil, fmt.Errorf("ludo engine: game already finished")
	}
	if e.current().UserID != actorUserID {
		return nil, fmt.Errorf("ludo engine: not %s's turn", actorUserID)
	}
	switch action.Type {
	case "rollDice":
		return e.applyRoll(actorUserID)
	case "selectPiece":
		if action.PieceID == nil {
			return nil, fmt.Errorf("ludo engine: missing pieceId")
		}
		return e.applyMove(actorUserID, *action.PieceID)
	default:
		return nil, fmt.Errorf("ludo engine: unsupported action %q", action.Type)
	}
}

func (e *Engine) applyRoll(actorUserID string) ([]sessionbus.Event, error) {
	if e.rolledThisTurn {
		return nil, fmt.Errorf("ludo engine: already rolled this turn")
	}
	value := e.rng.Intn(6) + 1
	e.lastRoll = value
	e.rolledThisTurn = true

	movable := e.movablePieces(e.current(), value)
	events := []sessionbus.Event{{
		OpCode:   sessionbus.OpDiceRolled,
		Audience: sessionbus.AudienceRoom,
		Payload: sessionbus.DiceRolledPayload{
			PlayerID:      actorUserID,
			Value:         value,
			MovablePieces: movable,
		},
	}}

	if len(movable) > 0 {
		return events, nil
	}

	// No legal moves for this roll (spec §4.8 "Movable-piece computation").
	// A roll of 6 grants an extra turn in both variants (spec §4.8 Common
	// rules), so it re-rolls the same player rather than passing the turn.
	if value == 6 {
		e.rolledThisTurn = false
		return events, nil
	}
	// Any other no-move roll auto-advances the turn. The room worker
	// schedules this 3s later via the turn clock (spec §4.8/§4.9-style
	// animation delay); here we just report no movable pieces and let the
	// caller invoke OnTimeout after the delay, or advance immediately if it
	// chooses not to animate.
	return events, nil
}

// movablePieces returns the piece ids of actor that can legally move given
// a die value, per spec §4.8's movable-piece rules.
func (e *Engine) movablePieces(p *playerState, dice int) []int {
	var out []int
	for id, pc := range p.Pieces {
		if e.canMove(pc, dice) {
			out = append(out, id)
		}
	}
	return out
}

func (e *Engine) canMove(pc piece, dice int) bool {
	switch pc.Loc {
	case locHome:
		return e.variant == Classic && dice == 6
	case locBoard:
		return pc.Distance+dice <= finishDistance
	default:
		return false
	}
}

// applyMove executes moving pieceID by the last rolled die value.
func (e *Engine) applyMove(actorUserID string, pieceID int) ([]sessionbus.Event, error) {
	if !e.rolledThisTurn {
		return nil, fmt.Errorf("ludo engine: must roll before moving")
	}
	if pieceID < 0 || pieceID >= 4 {
		return nil, fmt.Errorf("ludo engine: invalid piece id")
	}
	actor := e.current()
	pc := actor.Pieces[pieceID]
	if !e.canMove(pc, e.lastRoll) {
		return nil, fmt.Errorf("ludo engine: illegal move")
	}

	var captured []int
	if pc.Loc == locHome {
		actor.Pieces[pieceID] = piece{Loc: locBoard, Distance: 0}
	} else {
		newDistance := pc.Distance + e.lastRoll
		actor.Pieces[pieceID].Distance = newDistance
		if newDistance == finishDistance {
			actor.Pieces[pieceID].Loc = locFinished
			actor.Score += finishToken
		} else if newDistance < ringSize-1 {
			// still on the open ring; check for a capture at the absolute cell
			abs := (colorEntry[actor.Color] + newDistance) % ringSize
			if !safeCells[abs] {
				captured = e.captureAt(actor, abs)
			}
		}
	}

	events := []sessionbus.Event{{
		OpCode:   sessionbus.OpPieceMoved,
		Audience: sessionbus.AudienceRoom,
		Payload: sessionbus.PieceMovedPayload{
			PlayerID:       actorUserID,
			PieceID:        pieceID,
			BoardAfter:     e.publicState(),
			CapturedPieces: captured,
			ExtraTurn:      e.lastRoll == 6,
		},
	}}

	if winner, ok := e.checkTerminal(); ok {
		e.finish(winner)
		events = append(events, e.gameEndedEvent())
		return events, nil
	}

	// A roll of 6 grants an extra turn in both variants (spec §4.8 Common rules).
	extraTurn := e.lastRoll == 6
	e.rolledThisTurn = false
	if !extraTurn {
		e.advanceTurn()
		events = append(events, sessionbus.Event{
			OpCode:   sessionbus.OpTurnChanged,
			Audience: sessionbus.AudienceRoom,
			Payload:  sessionbus.TurnChangedPayload{CurrentPlayerID: e.current().UserID},
		})
	}
	return events, nil
}

// captureAt sends any opposing piece occupying absolute ring cell abs back
// to locHome (Classic) or to its own entry cell (Fast Ludo), crediting the
// capturing player and penalising the captured one (spec §4.8).
func (e *Engine) captureAt(actor *playerState, abs int) []int {
	var captured []int
	for i := range e.players {
		if e.players[i].UserID == actor.UserID {
			continue
		}
		opp := &e.players[i]
		for pid, pc := range opp.Pieces {
			if pc.Loc != locBoard {
				continue
			}
			oppAbs := (colorEntry[opp.Color] + pc.Distance) % ringSize
			if oppAbs != abs {
				continue
			}
			if e.variant == Fast {
				opp.Pieces[pid] = piece{Loc: locBoard, Distance: 0}
			} else {
				opp.Pieces[pid] = piece{Loc: locHome}
			}
			opp.Score -= killedPenalty
			if opp.Score < 0 {
				opp.Score = 0
			}
			actor.Score += killPoints
			actor.Captures++
			captured = append(captured, pid)
		}
	}
	return captured
}

func (e *Engine) advanceTurn() {
	e.turnIdx = (e.turnIdx + 1) % len(e.players)
}

// checkTerminal implements spec §4.8's Classic/Fast terminal conditions
// (time-based expiry is driven externally via ExpireGlobalClock/OnTimeout).
func (e *Engine) checkTerminal() (string, bool) {
	for _, p := range e.players {
		if e.allFinished(p) {
			return p.UserID, true
		}
	}
	return "", false
}

func (e *Engine) allFinished(p playerState) bool {
	for _, pc := range p.Pieces {
		if pc.Loc != locFinished {
			return false
		}
	}
	return true
}

// OnTimeout advances a no-legal-move turn (both variants) and, for Fast
// Ludo, evaluates the global-clock expiry tie-break rule.
func (e *Engine) OnTimeout() []sessionbus.Event {
	if e.done {
		return nil
	}
	if e.variant == Fast {
		e.elapsedSeconds += noLegalMoveWait
		if e.globalClockSeconds > 0 && e.elapsedSeconds >= e.globalClockSeconds {
			winner := e.bestByScoreThenFinishedThenCaptures()
			e.finish(winner)
			return []sessionbus.Event{e.gameEndedEvent()}
		}
	}
	e.rolledThisTurn = false
	e.advanceTurn()
	return []sessionbus.Event{{
		OpCode:   sessionbus.OpTurnChanged,
		Audience: sessionbus.AudienceRoom,
		Payload:  sessionbus.TurnChangedPayload{CurrentPlayerID: e.current().UserID},
	}}
}

// ExpireGlobalClock is called by the room worker when Fast Ludo's single
// room-wide C6 clock (not a per-turn one) reaches zero.
func (e *Engine) ExpireGlobalClock() []sessionbus.Event {
	if e.done || e.variant != Fast {
		return nil
	}
	winner := e.bestByScoreThenFinishedThenCaptures()
	e.finish(winner)
	return []sessionbus.Event{e.gameEndedEvent()}
}

// bestByScoreThenFinishedThenCaptures implements Fast Ludo's timer-expiry
// tie-break: highest score, then most pieces finished, then most captures,
// then seat order (spec §4.8 plus the decided Open Question in DESIGN.md).
func (e *Engine) bestByScoreThenFinishedThenCaptures() string {
	best := e.players[0]
	for _, p := range e.players[1:] {
		if better(p, best) {
			best = p
		}
	}
	return best.UserID
}

func better(a, b playerState) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	af, bf := finishedCount(a), finishedCount(b)
	if af != bf {
		return af > bf
	}
	if a.Captures != b.Captures {
		return a.Captures > b.Captures
	}
	return a.Seat < b.Seat
}

func finishedCount(p playerState) int {
	n := 0
	for _, pc := range p.Pieces {
		if pc.Loc == locFinished {
			n++
		}
	}
	return n
}

func (e *Engine) finish(winner string) {
	e.done = true
	e.winner = winner
}

func (e *Engine) gameEndedEvent() sessionbus.Event {
	scores := make(map[string]int, len(e.players))
	for _, p := range e.players {
		scores[p.UserID] = p.Score
	}
	return sessionbus.Event{
		OpCode:   sessionbus.OpGameEnded,
		Audience: sessionbus.AudienceRoom,
		Payload:  sessionbus.GameEndedPayload{WinnerID: e.winner, FinalScores: scores},
	}
}

func (e *Engine) publicState() interface{} {
	return struct {
		Players []playerState `json:"players"`
		Turn    string        `json:"turn"`
	}{Players: e.players, Turn: e.current().UserID}
}

func (e *Engine) IsTerminal() (string, bool) { return e.winner, e.done }

type snapshot struct {
	Variant            Variant       `json:"variant"`
	Players            []playerState `json:"players"`
	TurnIdx            int           `json:"turnIdx"`
	LastRoll           int           `json:"lastRoll"`
	RolledThisTurn     bool          `json:"rolledThisTurn"`
	GlobalClockSeconds int           `json:"globalClockSeconds"`
	ElapsedSeconds     int           `json:"elapsedSeconds"`
	Winner             string        `json:"winner"`
	Done               bool          `json:"done"`
}

func (e *Engine) Snapshot() ([]byte, error) {
	return json.Marshal(snapshot{
		Variant: e.variant, Players: e.players, TurnIdx: e.turnIdx,
		LastRoll: e.lastRoll, RolledThisTurn: e.rolledThisTurn,
		GlobalClockSeconds: e.globalClockSeconds, ElapsedSeconds: e.elapsedSeconds,
		Winner: e.winner, Done: e.done,
	})
}

func (e *Engine) Restore(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	e.variant = s.Variant
	e.players = s.Players
	e.turnIdx = s.TurnIdx
	e.lastRoll = s.LastRoll
	e.rolledThisTurn = s.RolledThisTurn
	e.globalClockSeconds = s.GlobalClockSeconds
	e.elapsedSeconds = s.ElapsedSeconds
	e.winner = s.Winner
	e.done = s.Done
	return nil
}

// FastLudoClockSeconds returns the global clock duration for a Fast Ludo
// room of the given player count (spec §4.8: 300s for 2p, 600s for 3-4p).
func FastLudoClockSeconds(playerCount int) int {
	if playerCount <= 2 {
		return 300
	}
	return 600
}

// NoMoveWaitSeconds is the turn-advance delay after a roll with no legal
// moves, for either variant (spec §4.8/§4.9-style animation delay).
func NoMoveWaitSeconds() int { return noLegalMoveWait }
