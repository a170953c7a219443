package room

import (
	"testing"

	"github.com/blackdru/arena-server/internal/engine"
)

func TestSeatAndColorFindsParticipant(t *testing.T) {
	players := []engine.Player{{UserID: "u1", Seat: 0, Color: "red"}, {UserID: "u2", Seat: 1, Color: "blue"}}
	seat, color := seatAndColor(players, "u2")
	if seat != 1 || color != "blue" {
		t.Fatalf("expected seat=1 color=blue, got seat=%d color=%q", seat, color)
	}
}

func TestSeatAndColorMissingParticipant(t *testing.T) {
	players := []engine.Player{{UserID: "u1", Seat: 0, Color: "red"}}
	seat, color := seatAndColor(players, "stranger")
	if seat != -1 || color != "" {
		t.Fatalf("expected sentinel for unknown participant, got seat=%d color=%q", seat, color)
	}
}

func TestParseInitParamsRequiresRoomID(t *testing.T) {
	_, err := parseInitParams(map[string]interface{}{})
	if err == nil {
		t.Fatal("expected error for missing roomId")
	}
}

func TestParseInitParamsParsesDecimals(t *testing.T) {
	p, err := parseInitParams(map[string]interface{}{
		"roomId":     "room-1",
		"gameType":   "MEMORY",
		"maxPlayers": 2,
		"entryFee":   "10.00",
		"prizePool":  "18.00",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.EntryFee.String() != "10" || p.PrizePool.String() != "18" {
		t.Fatalf("unexpected parsed amounts: %+v", p)
	}
}

func TestMatchStateAllSeatsOccupied(t *testing.T) {
	s := &matchState{
		players:   []engine.Player{{UserID: "u1"}, {UserID: "u2"}},
		connected: map[string]int{"u1": 1},
	}
	if s.allSeatsOccupied() {
		t.Fatal("expected not all seats occupied")
	}
	s.connected["u2"] = 1
	if !s.allSeatsOccupied() {
		t.Fatal("expected all seats occupied")
	}
}

func TestMatchStateActiveCount(t *testing.T) {
	s := &matchState{
		players:   []engine.Player{{UserID: "u1"}, {UserID: "u2"}},
		connected: map[string]int{"u1": 1, "u2": 0},
	}
	if s.activeCount() != 1 {
		t.Fatalf("expected 1 active participant, got %d", s.activeCount())
	}
}
