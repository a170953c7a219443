// Package room implements the Room Registry & Lifecycle (C5) as a Nakama
// Match: the match runtime already gives every room its own single-writer
// goroutine draining one inbox in order (MatchLoop), which is exactly the
// actor discipline spec §5 asks for — no hand-rolled per-room hub is
// needed, unlike the goroutine-and-channel Hub the
// rias-glitch-telegram-webapp reference builds for the same problem.
package room

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/shopspring/decimal"

	"github.com/blackdru/arena-server/internal/connreg"
	"github.com/blackdru/arena-server/internal/engine"
	"github.com/blackdru/arena-server/internal/engine/ludo"
	"github.com/blackdru/arena-server/internal/engine/memory"
	"github.com/blackdru/arena-server/internal/engine/snakes"
	"github.com/blackdru/arena-server/internal/obslog"
	"github.com/blackdru/arena-server/internal/sessionbus"
	"github.com/blackdru/arena-server/internal/settlement"
	"github.com/blackdru/arena-server/internal/storage"
	"github.com/blackdru/arena-server/internal/turnclock"
)

// TickRate is the Nakama match loop frequency this module runs at.
const TickRate = 5

// joinWindowSeconds bounds how long a WAITING room waits for every seat to
// connect: once it has passed since the first join, the room auto-starts
// with whoever has joined, provided at least two participants have.
const joinWindowSeconds = 20

// graceSeconds is how long a FINISHED room is kept around in memory to
// serve late "current state" queries before Nakama evicts the match.
const graceSeconds = 30

// Deps bundles the process-wide collaborators every room needs. Built once
// in main.go and closed over by the RegisterMatchFn factory.
type Deps struct {
	Rooms    *storage.RoomStore
	Settler  *settlement.Settler
	Registry *connreg.Registry
	Bus      *sessionbus.Bus
}

// Match implements runtime.Match. One instance exists per live room.
type Match struct {
	deps Deps
}

// NewFactory returns the function Nakama's RegisterMatch expects.
func NewFactory(deps Deps) func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return &Match{deps: deps}, nil
	}
}

// matchInitParams is what the matchmaker hands to nk.MatchCreate.
type matchInitParams struct {
	RoomID       string
	GameType     storage.GameType
	MaxPlayers   int
	EntryFee     decimal.Decimal
	PrizePool    decimal.Decimal
	Participants []engine.Player
}

func (m *Match) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	p, err := parseInitParams(params)
	if err != nil {
		logger.Error("room match init: %v", err)
		return nil, TickRate, "{}"
	}

	state := &matchState{
		roomID:     p.RoomID,
		gameType:   p.GameType,
		maxPlayers: p.MaxPlayers,
		entryFee:   p.EntryFee,
		prizePool:  p.PrizePool,
		status:     storage.RoomWaiting,
		players:    p.Participants,
		joined:      make(map[string]bool),
		connected:   make(map[string]int),
		clock:       turnclock.NewClock(TickRate),
		globalClock: turnclock.NewClock(TickRate),
	}

	logger.Info("room %s initialised (gameType=%s, players=%d)", p.RoomID, p.GameType, len(p.Participants))
	return state, TickRate, string(p.GameType)
}

func (m *Match) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	s := state.(*matchState)
	if !s.isParticipant(presence.GetUserId()) {
		return s, false, "not a participant of this room"
	}
	return s, true, ""
}

func (m *Match) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	s := state.(*matchState)
	if s.waitingSinceTick == 0 {
		s.waitingSinceTick = tick
	}

	for _, pr := range presences {
		userID := pr.GetUserId()
		s.joined[userID] = true
		s.connected[userID]++
		m.deps.Registry.JoinRoom(userID, s.roomID)

		seat, color := seatAndColor(s.players, userID)
		m.emit(dispatcher, sessionbus.Event{
			OpCode:   sessionbus.OpMatchFound,
			Audience: sessionbus.AudienceUser,
			UserID:   userID,
			Payload: sessionbus.MatchFoundPayload{
				GameID:       s.roomID,
				Players:      s.userIDs(),
				YourPlayerID: userID,
				YourSeat:     seat,
				YourColor:    color,
			},
		}, []runtime.Presence{pr})

		if s.status == storage.RoomPlaying {
			// Reconnect during an in-progress game (spec §5 scenario 6): just
			// re-emit current state, don't touch the turn or the clock.
			m.emit(dispatcher, sessionbus.Event{
				OpCode:   sessionbus.OpGameStarted,
				Audience: sessionbus.AudienceUser,
				UserID:   userID,
				Payload:  sessionbus.GameStartedPayload{InitialState: s.snapshotOrNil()},
			}, []runtime.Presence{pr})
		}
	}

	if s.status == storage.RoomWaiting && s.allSeatsOccupied() {
		m.startGame(ctx, logger, nk, dispatcher, tick, s)
	}

	return s
}

func (m *Match) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	s := state.(*matchState)
	for _, pr := range presences {
		userID := pr.GetUserId()
		if s.connected[userID] > 0 {
			s.connected[userID]--
		}
		if s.connected[userID] == 0 {
			m.deps.Registry.LeaveRoom(userID, s.roomID)
		}
	}

	if s.status == storage.RoomPlaying && s.activeCount() == 1 {
		// All but one participant disconnected (spec §4.5): remaining player
		// wins, paid in full, no refund.
		var winner string
		for _, p := range s.players {
			if s.connected[p.UserID] > 0 {
				winner = p.UserID
			}
		}
		m.finish(ctx, logger, nk, dispatcher, tick, s, winner)
	}

	return s
}

func (m *Match) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	s := state.(*matchState)

	if s.status == storage.RoomWaiting {
		if tick-s.waitingSinceTick >= joinWindowSeconds*TickRate && s.joinedCount() >= 2 {
			m.startGame(ctx, logger, nk, dispatcher, tick, s)
		}
		return s
	}

	if s.status == storage.RoomFinished {
		if tick >= s.graceUntilTick {
			logger.Info("room %s evicted after grace period", s.roomID)
			return nil
		}
		return s
	}

	for _, msg := range messages {
		m.handleMessage(ctx, logger, nk, dispatcher, tick, s, msg)
		if s.status == storage.RoomFinished {
			return s
		}
	}

	if ev, expired := s.clock.Tick(tick); ev != nil {
		m.emit(dispatcher, *ev, nil)
	} else if expired {
		events := s.eng.OnTimeout()
		m.broadcastEngineEvents(dispatcher, s, events)
		m.armClock(dispatcher, tick, s, events)
		m.afterMutation(ctx, logger, nk, dispatcher, tick, s)
	}

	// globalClock only ever runs for Fast Ludo (armed once in startGame);
	// Tick is a no-op against a never-started clock for every other game.
	if s.status == storage.RoomPlaying {
		if ev, expired := s.globalClock.Tick(tick); ev != nil {
			m.emit(dispatcher, *ev, nil)
		} else if expired {
			if ludoEng, ok := s.eng.(*ludo.Engine); ok {
				events := ludoEng.ExpireGlobalClock()
				m.broadcastEngineEvents(dispatcher, s, events)
				m.afterMutation(ctx, logger, nk, dispatcher, tick, s)
			}
		}
	}

	return s
}

// armClock (re)starts s.clock when the just-broadcast events signal that a
// new countdown should begin, per game type (spec §4.7 step 2, §4.8
// no-legal-move auto-advance, §4.9 post-roll animation). Called after
// Init/Apply/OnTimeout, whichever just produced events.
func (m *Match) armClock(dispatcher runtime.MatchDispatcher, tick int64, s *matchState, events []sessionbus.Event) {
	switch s.gameType {
	case storage.GameMemory:
		for _, ev := range events {
			if ev.OpCode == sessionbus.OpTurnChanged {
				m.emit(dispatcher, s.clock.Reset(tick, memory.TurnSeconds()), nil)
				return
			}
		}
	case storage.GameSnakesLadders:
		for _, ev := range events {
			if ev.OpCode == sessionbus.OpDiceRolled {
				m.emit(dispatcher, s.clock.Start(tick, snakes.AnimationSeconds()), nil)
				return
			}
		}
	case storage.GameClassicLudo, storage.GameFastLudo:
		for _, ev := range events {
			if ev.OpCode != sessionbus.OpDiceRolled {
				continue
			}
			// A no-move 6 keeps the turn for a re-roll, so no auto-advance.
			if payload, ok := ev.Payload.(sessionbus.DiceRolledPayload); ok && len(payload.MovablePieces) == 0 && payload.Value != 6 {
				m.emit(dispatcher, s.clock.Start(tick, ludo.NoMoveWaitSeconds()), nil)
			}
			return
		}
	}
}

func (m *Match) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, data
}

func (m *Match) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	s := state.(*matchState)
	logger.Info("room %s terminating", s.roomID)
	return s
}

func (s *matchState) joinedCount() int {
	n := 0
	for range s.joined {
		n++
	}
	return n
}

func (s *matchState) snapshotOrNil() interface{} {
	if s.eng == nil {
		return nil
	}
	data, err := s.eng.Snapshot()
	if err != nil {
		return nil
	}
	return string(data)
}

func seatAndColor(players []engine.Player, userID string) (int, string) {
	for _, p := range players {
		if p.UserID == userID {
			return p.Seat, p.Color
		}
	}
	return -1, ""
}

func (m *Match) handleMessage(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, s *matchState, msg runtime.MatchData) {
	actorUserID := msg.GetUserId()
	if !s.isParticipant(actorUserID) {
		m.emitError(dispatcher, actorUserID, "not a participant of this room")
		return
	}
	if s.status != storage.RoomPlaying {
		m.emitError(dispatcher, actorUserID, "room is not in play")
		return
	}

	action, err := m.deps.Bus.DecodeAction(msg.GetData())
	if err != nil {
		m.emitError(dispatcher, actorUserID, "invalid action payload")
		return
	}

	events, err := s.eng.Apply(actorUserID, action)
	if err != nil {
		m.emitError(dispatcher, actorUserID, err.Error())
		return
	}

	m.broadcastEngineEvents(dispatcher, s, events)
	m.armClock(dispatcher, tick, s, events)
	m.afterMutation(ctx, logger, nk, dispatcher, tick, s)
}

// afterMutation persists the snapshot (spec §4.5: "after every accepted
// mutation") and, if the engine just reached a terminal state, runs
// settlement exactly once.
func (m *Match) afterMutation(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, s *matchState) {
	if winner, done := s.eng.IsTerminal(); done {
		m.finish(ctx, logger, nk, dispatcher, tick, s, winner)
		return
	}
	m.persistSnapshot(ctx, logger, s)
}

func (m *Match) persistSnapshot(ctx context.Context, logger runtime.Logger, s *matchState) {
	data, err := s.eng.Snapshot()
	if err != nil {
		logger.Error("room %s: snapshot engine state: %v", s.roomID, err)
		return
	}
	if err := m.deps.Rooms.SaveSnapshot(ctx, s.roomID, string(s.status), data, 0, nil); err != nil {
		logger.Error("room %s: persist snapshot: %v", s.roomID, err)
	}
}

func (m *Match) startGame(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, s *matchState) {
	eng, err := newEngine(s.gameType, s.maxPlayers)
	if err != nil {
		logger.Error("room %s: %v", s.roomID, err)
		return
	}
	s.eng = eng
	s.status = storage.RoomPlaying

	events := eng.Init(engineSeed(s.roomID), s.players)
	m.broadcastEngineEvents(dispatcher, s, events)
	m.armClock(dispatcher, tick, s, events)

	if s.gameType == storage.GameFastLudo {
		// The single room-wide clock (spec §4.8): started once, never reset
		// on turn change, expiry is a terminal event handled by
		// ludo.Engine.ExpireGlobalClock rather than the generic OnTimeout.
		m.emit(dispatcher, s.globalClock.Start(tick, ludo.FastLudoClockSeconds(s.maxPlayers)), nil)
	}

	if err := m.deps.Rooms.MarkStarted(ctx, s.roomID); err != nil {
		logger.Error("room %s: mark started: %v", s.roomID, err)
	}
	m.persistSnapshot(ctx, logger, s)
}

func (m *Match) finish(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, s *matchState, winner string) {
	if s.settled {
		return
	}
	s.settled = true
	s.status = storage.RoomFinished
	s.clock.Cancel()
	s.globalClock.Cancel()
	s.graceUntilTick = tick + graceSeconds*TickRate

	winnerPtr := &winner
	if err := m.deps.Rooms.SaveSnapshot(ctx, s.roomID, string(s.status), s.snapshotBytes(), 0, winnerPtr); err != nil {
		logger.Error("room %s: persist finished snapshot: %v", s.roomID, err)
	}
	if err := m.deps.Rooms.MarkFinished(ctx, s.roomID); err != nil {
		logger.Error("room %s: mark finished: %v", s.roomID, err)
	}

	if err := m.deps.Settler.Settle(ctx, s.roomID, winner, s.prizePool); err != nil {
		logger.Error("room %s: settlement: %v", s.roomID, err)
	}

	m.emit(dispatcher, sessionbus.Event{
		OpCode:   sessionbus.OpGameEnded,
		Audience: sessionbus.AudienceRoom,
		Payload: sessionbus.GameEndedPayload{
			WinnerID:  winner,
			PrizePool: s.prizePool.String(),
		},
	}, nil)
}

func (s *matchState) snapshotBytes() []byte {
	if s.eng == nil {
		return nil
	}
	data, err := s.eng.Snapshot()
	if err != nil {
		return nil
	}
	return data
}

func engineSeed(roomID string) int64 {
	return engine.SeedFromRoomID(roomID)
}

func (m *Match) emitError(dispatcher runtime.MatchDispatcher, userID, message string) {
	data, _ := sessionbus.EncodeEvent(sessionbus.ErrorPayload{Message: message})
	_ = dispatcher.BroadcastMessage(int64(sessionbus.OpError), data, nil, nil, true)
	obslog.Background().Warnw("room: action rejected", "user", userID, "reason", message)
}

// emit encodes one sessionbus.Event and dispatches it to its audience. The
// room worker resolves "audience" to Nakama presences; for AudienceRoom it
// broadcasts to everyone currently in the match (presences == nil).
func (m *Match) emit(dispatcher runtime.MatchDispatcher, ev sessionbus.Event, to []runtime.Presence) {
	data, err := sessionbus.EncodeEvent(ev.Payload)
	if err != nil {
		return
	}
	_ = dispatcher.BroadcastMessage(int64(ev.OpCode), data, to, nil, true)
}

func (m *Match) broadcastEngineEvents(dispatcher runtime.MatchDispatcher, s *matchState, events []sessionbus.Event) {
	for _, ev := range events {
		m.emit(dispatcher, ev, nil)
	}
}

func parseInitParams(params map[string]interface{}) (matchInitParams, error) {
	p := matchInitParams{}

	roomID, _ := params["roomId"].(string)
	if roomID == "" {
		return p, fmt.Errorf("missing roomId")
	}
	p.RoomID = roomID

	gameType, _ := params["gameType"].(string)
	p.GameType = storage.GameType(gameType)

	maxPlayers, _ := params["maxPlayers"].(int)
	p.MaxPlayers = maxPlayers

	if feeStr, ok := params["entryFee"].(string); ok {
		fee, err := decimal.NewFromString(feeStr)
		if err != nil {
			return p, fmt.Errorf("parse entryFee: %w", err)
		}
		p.EntryFee = fee
	}
	if poolStr, ok := params["prizePool"].(string); ok {
		pool, err := decimal.NewFromString(poolStr)
		if err != nil {
			return p, fmt.Errorf("parse prizePool: %w", err)
		}
		p.PrizePool = pool
	}

	participants, _ := params["participants"].([]engine.Player)
	p.Participants = participants

	return p, nil
}
