// Package snakes implements the Snakes & Ladders engine (C9).
package snakes

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/blackdru/arena-server/internal/engine"
	"github.com/blackdru/arena-server/internal/sessionbus"
)

const (
	boardSize          = 100
	postRollAnimationS = 3
)

// DefaultSnakes and DefaultLadders are the fixed mappings from spec §4.9.
var (
	DefaultSnakes = map[int]int{99: 21, 95: 75, 87: 24, 62: 19, 54: 34, 49: 11, 46: 25, 17: 7}
	DefaultLadders = map[int]int{4: 14, 9: 31, 20: 38, 28: 84, 40: 59, 51: 67, 63: 81, 71: 91}
)

type playerState struct {
	engine.Player
	Position int `json:"position"`
}

// Engine implements engine.Engine for Snakes & Ladders.
type Engine struct {
	snakes  map[int]int
	ladders map[int]int
	players []playerState
	turnIdx int
	awaitingAnimation bool
	winner  string
	done    bool
	rng     *rand.Rand
}

// New constructs an Engine with the default snake/ladder mapping.
func New() *Engine {
	return &Engine{snakes: DefaultSnakes, ladders: DefaultLadders}
}

func (e *Engine) Init(seed int64, players []engine.Player) []sessionbus.Event {
	e.rng = rand.New(rand.NewSource(seed))
	e.players = make([]playerState, len(players))
	for i, p := range players {
		e.players[i] = playerState{Player: p, Position: 0}
	}
	e.turnIdx = 0
	e.done = false
	e.winner = ""
	e.awaitingAnimation = false

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
		return nil, fmt.Errorf("snakes engine: game already finished")
	}
	if action.Type != "rollDice" {
		return nil, fmt.Errorf("snakes engine: unsupported action %q", action.Type)
	}
	if e.current().UserID != actorUserID {
		return nil, fmt.Errorf("snakes engine: not %s's turn", actorUserID)
	}
	if e.awaitingAnimation {
		return nil, fmt.Errorf("snakes engine: roll rejected during animation window")
	}

	value := e.rng.Intn(6) + 1
	actor := e.current()

	landing := actor.Position + value
	if landing > boardSize {
		landing = actor.Position // stays in place on overshoot
	} else if dest, ok := e.snakes[landing]; ok {
		landing = dest
	} else if dest, ok := e.ladders[landing]; ok {
		landing = dest
	}
	actor.Position = landing

	events := []sessionbus.Event{{
		OpCode:   sessionbus.OpDiceRolled,
		Audience: sessionbus.AudienceRoom,
		Payload: sessionbus.DiceRolledPayload{
			PlayerID: actorUserID,
			Value:    value,
		},
	}}
	events = append(events, sessionbus.Event{
		OpCode:   sessionbus.OpPieceMoved,
		Audience: sessionbus.AudienceRoom,
		Payload: sessionbus.PieceMovedPayload{
			PlayerID:   actorUserID,
			BoardAfter: e.publicState(),
		},
	})

	if landing == boardSize {
		e.finish(actorUserID)
		events = append(events, e.gameEndedEvent())
		return events, nil
	}

	// Turns rotate strictly even on a 6 (spec §4.9); the 3s animation window
	// is enforced by rejecting rolls until the room worker's turn clock fires
	// OnTimeout, which performs the actual advance.
	e.awaitingAnimation = true
	return events, nil
}

// OnTimeout ends the post-roll animation window and advances the turn
// (spec §4.9: "after each roll the turn advances on a 3s timer").
func (e *Engine) OnTimeout() []sessionbus.Event {
	if e.done || !e.awaitingAnimation {
		return nil
	}
	e.awaitingAnimation = false
	e.turnIdx = (e.turnIdx + 1) % len(e.players)
	return []sessionbus.Event{{
		OpCode:   sessionbus.OpTurnChanged,
		Audience: sessionbus.AudienceRoom,
		Payload:  sessionbus.TurnChangedPayload{CurrentPlayerID: e.current().UserID},
	}}
}

func (e *Engine) finish(winner string) {
	e.done = true
	e.winner = winner
}

func (e *Engine) gameEndedEvent() sessionbus.Event {
	scores := make(map[string]int, len(e.players))
	for _, p := range e.players {
		scores[p.UserID] = p.Position
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
	}{Players: e.players}
}

func (e *Engine) IsTerminal() (string, bool) { return e.winner, e.done }

type snapshot struct {
	Players           []playerState `json:"players"`
	TurnIdx           int           `json:"turnIdx"`
	AwaitingAnimation bool          `json:"awaitingAnimation"`
	Winner            string        `json:"winner"`
	Done              bool          `json:"done"`
}

func (e *Engine) Snapshot() ([]byte, error) {
	return json.Marshal(snapshot{
		Players: e.players, TurnIdx: e.turnIdx,
		AwaitingAnimation: e.awaitingAnimation, Winner: e.winner, Done: e.done,
	})
}

func (e *Engine) Restore(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	e.players = s.Players
	e.turnIdx = s.TurnIdx
	e.awaitingAnimation = s.AwaitingAnimation
	e.winner = s.Winner
	e.done = s.Done
	if e.snakes == nil {
		e.snakes = DefaultSnakes
	}
	if e.ladders == nil {
		e.ladders = DefaultLadders
	}
	return nil
}

// AnimationSeconds is the fixed post-roll turn-advance delay.
func AnimationSeconds() int { return postRollAnimationS }
