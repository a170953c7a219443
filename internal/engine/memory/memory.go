// Package memory implements the Memory (card-matching) engine (C7).
//
// Grounded on the teacher's small pure-function style in
// items/match_result.go (validateRounds, computeTokensEarned): state is a
// plain struct, every rule is a small method, and the shuffle is the
// deterministic seeded Fisher-Yates the room-recovery contract requires
// (spec §4.7), built on math/rand rather than a shuffle library since
// nothing in the pack ships one (see DESIGN.md).
package memory

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/blackdru/arena-server/internal/engine"
	"github.com/blackdru/arena-server/internal/sessionbus"
)

const (
	lifelinesPerPlayer = 3
	turnSeconds        = 15
	scorePerMatch      = 10
)

// DefaultPairCount is the 30-card board's pair count (spec §4.7 default).
const DefaultPairCount = 15

type cardState int

const (
	hidden cardState = iota
	faceUp
	matched
)

type card struct {
	Symbol int       `json:"symbol"`
	State  cardState `json:"state"`
}

type playerState struct {
	engine.Player
	Score     int  `json:"score"`
	Lifelines int  `json:"lifelines"`
	Out       bool `json:"out"`
	ScoreSeq  int  `json:"scoreSeq"` // moveSeq at which Score last increased
}

// Engine implements engine.Engine for the Memory game.
type Engine struct {
	pairCount int
	board     []card
	players   []playerState
	turnIdx   int
	revealed  []int // positions currently face-up this turn (0, 1, or 2)
	moveSeq   int    // incremented every accepted selectCard, orders score changes
	winner    string
	done      bool
}

// New constructs a Memory engine for the given pair count (11 or 15 per
// spec §4.7; any positive value is accepted so tests can use small boards).
func New(pairCount int) *Engine {
	if pairCount <= 0 {
		pairCount = DefaultPairCount
	}
	return &Engine{pairCount: pairCount}
}

func (e *Engine) Init(seed int64, players []engine.Player) []sessionbus.Event {
	e.board = shuffledBoard(seed, e.pairCount)
	e.players = make([]playerState, len(players))
	for i, p := range players {
		e.players[i] = playerState{Player: p, Lifelines: lifelinesPerPlayer}
	}
	e.turnIdx = 0
	e.revealed = nil
	e.done = false
	e.winner = ""

	return []sessionbus.Event{
		{
			OpCode:   sessionbus.OpGameStarted,
			Audience: sessionbus.AudienceRoom,
			Payload:  sessionbus.GameStartedPayload{InitialState: e.publicBoard()},
		},
		{
			OpCode:   sessionbus.OpTurnChanged,
			Audience: sessionbus.AudienceRoom,
			Payload:  sessionbus.TurnChangedPayload{CurrentPlayerID: e.current().UserID},
		},
	}
}

// shuffledBoard builds a 2*pairCount deck and applies a deterministic
// three-pass seeded Fisher-Yates (spec §4.7).
func shuffledBoard(seed int64, pairCount int) []card {
	deck := make([]card, 0, pairCount*2)
	for symbol := 0; symbol < pairCount; symbol++ {
		deck = append(deck, card{Symbol: symbol}, card{Symbol: symbol})
	}
	r := rand.New(rand.NewSource(seed))
	for pass := 0; pass < 3; pass++ {
		for i := len(deck) - 1; i > 0; i-- {
			j := r.Intn(i + 1)
			deck[i], deck[j] = deck[j], deck[i]
		}
	}
	return deck
}

func (e *Engine) current() playerState {
	return e.players[e.turnIdx]
}

func (e *Engine) Apply(actorUserID string, action sessionbus.Action) ([]sessionbus.Event, error) {
	if action.Type != "selectCard" {
		return nil, fmt.Errorf("memory engine: unsupported action %q", action.Type)
	}
	if e.done {
		return nil, fmt.Errorf("memory engine: game already finished")
	}
	if e.current().UserID != actorUserID {
		return nil, fmt.Errorf("memory engine: not %s's turn", actorUserID)
	}
	if action.Position == nil {
		return nil, fmt.Errorf("memory engine: missing position")
	}
	pos := *action.Position
	if pos < 0 || pos >= len(e.board) {
		return nil, fmt.Errorf("memory engine: position out of range")
	}
	if e.board[pos].State != hidden {
		return nil, fmt.Errorf("memory engine: position already revealed or matched")
	}
	for _, r := range e.revealed {
		if r == pos {
			return nil, fmt.Errorf("memory engine: same position selected twice")
		}
	}
	if len(e.revealed) >= 2 {
		return nil, fmt.Errorf("memory engine: third card in one turn")
	}

	e.moveSeq++
	e.board[pos].State = faceUp
	e.revealed = append(e.revealed, pos)

	events := []sessionbus.Event{{
		OpCode:   sessionbus.OpCardRevealed,
		Audience: sessionbus.AudienceRoom,
		Payload: sessionbus.CardRevealedPayload{
			Position:   pos,
			Symbol:     fmt.Sprintf("%d", e.board[pos].Symbol),
			ByPlayerID: actorUserID,
		},
	}}

	if len(e.revealed) < 2 {
		return events, nil
	}

	a, b := e.revealed[0], e.revealed[1]
	e.revealed = nil

	if e.board[a].Symbol == e.board[b].Symbol {
		e.board[a].State = matched
		e.board[b].State = matched
		idx := e.turnIdx
		e.players[idx].Score += scorePerMatch
		e.players[idx].ScoreSeq = e.moveSeq

		events = append(events, sessionbus.Event{
			OpCode:   sessionbus.OpCardsMatched,
			Audience: sessionbus.AudienceRoom,
			Payload: sessionbus.CardsMatchedPayload{
				Positions:  []int{a, b},
				ByPlayerID: actorUserID,
				Scores:     e.scoresByUser(),
			},
		})

		if e.allMatched() {
			e.finish(e.highestScorer())
			events = append(events, e.gameEndedEvent())
			return events, nil
		}
		// Actor takes another turn (spec §4.7 step 4: match -> actor continues).
		return events, nil
	}

	e.board[a].State = hidden
	e.board[b].State = hidden
	e.advanceTurn()

	events = append(events, sessionbus.Event{
		OpCode:   sessionbus.OpCardsMismatched,
		Audience: sessionbus.AudienceRoom,
		Payload: sessionbus.CardsMismatchedPayload{
			Positions:    []int{a, b},
			NextPlayerID: e.current().UserID,
		},
	})
	events = append(events, sessionbus.Event{
		OpCode:   sessionbus.OpTurnChanged,
		Audience: sessionbus.AudienceRoom,
		Payload:  sessionbus.TurnChangedPayload{CurrentPlayerID: e.current().UserID},
	})
	return events, nil
}

// OnTimeout implements spec §4.7 step 5: flip any face-up cards back, the
// timed-out actor loses a lifeline, eliminate if it reaches zero, then
// advance the turn (unless that leaves a single survivor).
func (e *Engine) OnTimeout() []sessionbus.Event {
	if e.done {
		return nil
	}
	for _, pos := range e.revealed {
		e.board[pos].State = hidden
	}
	e.revealed = nil

	idx := e.turnIdx
	e.players[idx].Lifelines--
	var events []sessionbus.Event
	if e.players[idx].Lifelines <= 0 {
		e.players[idx].Out = true
		events = append(events, sessionbus.Event{
			OpCode:   sessionbus.OpPlayerEliminated,
			Audience: sessionbus.AudienceRoom,
			Payload:  sessionbus.PlayerEliminatedPayload{PlayerID: e.players[idx].UserID},
		})
	} else {
		events = append(events, sessionbus.Event{
			OpCode:   sessionbus.OpLifelineLost,
			Audience: sessionbus.AudienceRoom,
			Payload: sessionbus.LifelineLostPayload{
				PlayerID:  e.players[idx].UserID,
				Remaining: e.players[idx].Lifelines,
			},
		})
	}

	if survivor, onlyOne := e.onlySurvivor(); onlyOne {
		e.finish(survivor)
		events = append(events, e.gameEndedEvent())
		return events
	}

	e.advanceTurn()
	events = append(events, sessionbus.Event{
		OpCode:   sessionbus.OpTurnChanged,
		Audience: sessionbus.AudienceRoom,
		Payload:  sessionbus.TurnChangedPayload{CurrentPlayerID: e.current().UserID},
	})
	return events
}

func (e *Engine) advanceTurn() {
	n := len(e.players)
	for i := 1; i <= n; i++ {
		next := (e.turnIdx + i) % n
		if !e.players[next].Out {
			e.turnIdx = next
			return
		}
	}
}

func (e *Engine) onlySurvivor() (string, bool) {
	survivor := ""
	count := 0
	for _, p := range e.players {
		if !p.Out {
			count++
			survivor = p.UserID
		}
	}
	return survivor, count == 1
}

func (e *Engine) allMatched() bool {
	for _, c := range e.board {
		if c.State != matched {
			return false
		}
	}
	return true
}

// highestScorer breaks ties by whoever reached the max score first (spec
// §4.7 terminal rule): ScoreSeq records the moveSeq each player's score last
// increased at, so among players tied on Score the smaller ScoreSeq reached
// it earlier. Seat order only matters as the final tie-break when two
// players share both score and ScoreSeq (impossible in practice — a single
// match can only raise one player's score per moveSeq — but seat order keeps
// the comparison total).
func (e *Engine) highestScorer() string {
	best := e.players[0]
	for _, p := range e.players[1:] {
		if p.Score > best.Score || (p.Score == best.Score && p.ScoreSeq < best.ScoreSeq) {
			best = p
		}
	}
	return best.UserID
}

func (e *Engine) finish(winner string) {
	e.done = true
	e.winner = winner
}

func (e *Engine) gameEndedEvent() sessionbus.Event {
	return sessionbus.Event{
		OpCode:   sessionbus.OpGameEnded,
		Audience: sessionbus.AudienceRoom,
		Payload: sessionbus.GameEndedPayload{
			WinnerID:    e.winner,
			FinalScores: e.scoresByUser(),
		},
	}
}

func (e *Engine) scoresByUser() map[string]int {
	out := make(map[string]int, len(e.players))
	for _, p := range e.players {
		out[p.UserID] = p.Score
	}
	return out
}

func (e *Engine) publicBoard() interface{} {
	return struct {
		CardCount int `json:"cardCount"`
	}{CardCount: len(e.board)}
}

func (e *Engine) IsTerminal() (string, bool) {
	return e.winner, e.done
}

type snapshot struct {
	PairCount int           `json:"pairCount"`
	Board     []card        `json:"board"`
	Players   []playerState `json:"players"`
	TurnIdx   int           `json:"turnIdx"`
	Revealed  []int         `json:"revealed"`
	MoveSeq   int           `json:"moveSeq"`
	Winner    string        `json:"winner"`
	Done      bool          `json:"done"`
}

func (e *Engine) Snapshot() ([]byte, error) {
	return json.Marshal(snapshot{
		PairCount: e.pairCount,
		Board:     e.board,
		Players:   e.players,
		TurnIdx:   e.turnIdx,
		Revealed:  e.revealed,
		MoveSeq:   e.moveSeq,
		Winner:    e.winner,
		Done:      e.done,
	})
}

func (e *Engine) Restore(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	e.pairCount = s.PairCount
	e.board = s.Board
	e.players = s.Players
	e.turnIdx = s.TurnIdx
	e.revealed = s.Revealed
	e.moveSeq = s.MoveSeq
	e.winner = s.Winner
	e.done = s.Done
	return nil
}

// TurnSeconds is the fixed per-turn countdown (spec §4.7 step 2).
func TurnSeconds() int { return turnSeconds }
