package snakes

import (
	"testing"

	"github.com/blackdru/arena-server/internal/engine"
	"github.com/blackdru/arena-server/internal/sessionbus"
)

func players() []engine.Player {
	return []engine.Player{
		{UserID: "u1", Seat: 0, Color: "red"},
		{UserID: "u2", Seat: 1, Color: "blue"},
	}
}

func TestOvershootKeepsPositionUnchanged(t *testing.T) {
	e := New()
	e.Init(1, players())
	e.current().Position = 98

	_, err := e.Apply(e.current().UserID, sessionbus.Action{Type: "rollDice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.current().Position != 98 && e.current().Position < 98 {
		t.Fatalf("position should never decrease on overshoot, got %d", e.current().Position)
	}
}

func TestSnakeRelocatesPiece(t *testing.T) {
	e := New()
	e.Init(1, players())
	e.current().Position = 93 // 93+6=99, a snake head -> 21

	// Force the roll deterministically by testing the table directly instead
	// of relying on RNG: verify the table lookup behavior via a direct call.
	landing := 99
	if dest, ok := e.snakes[landing]; !ok || dest != 21 {
		t.Fatalf("expected snake 99->21 in default table, got %d ok=%v", dest, ok)
	}
}

func TestLadderClimbsPiece(t *testing.T) {
	e := New()
	if dest, ok := e.ladders[4]; !ok || dest != 14 {
		t.Fatalf("expected ladder 4->14 in default table, got %d ok=%v", dest, ok)
	}
}

func TestRollRejectedDuringAnimationWindow(t *testing.T) {
	e := New()
	e.Init(2, players())
	actor := e.current().UserID
	if _, err := e.Apply(actor, sessionbus.Action{Type: "rollDice"}); err != nil {
		t.Fatalf("unexpected error on first roll: %v", err)
	}
	if _, err := e.Apply(actor, sessionbus.Action{Type: "rollDice"}); err == nil {
		t.Fatal("expected second roll to be rejected during the animation window")
	}
}

func TestTurnRotatesStrictlyEvenOnSix(t *testing.T) {
	e := New()
	e.Init(1, players()) // seed 1's first roll is a 6 (0 -> 6, no snake or ladder)
	first := e.current().UserID
	e.Apply(first, sessionbus.Action{Type: "rollDice"})
	e.OnTimeout()
	if e.current().UserID == first {
		t.Fatal("expected turn to rotate to the other player")
	}
}

func TestPositionAloneDoesNotEndGame(t *testing.T) {
	e := New()
	e.Init(5, players())
	e.current().Position = 100
	winner, done := e.IsTerminal()
	if done {
		t.Fatal("should not be terminal before a roll lands on 100")
	}
	_ = winner
}
