package turnclock

import (
	"testing"

	"github.com/blackdru/arena-server/internal/sessionbus"
)

const tps = int64(5) // 5 ticks per second, matching room.TickRate

func TestStartEmitsTurnTimer(t *testing.T) {
	c := NewClock(tps)
	ev := c.Start(0, 15)
	payload, ok := ev.Payload.(sessionbus.TurnTimerPayload)
	if !ok || payload.TotalSeconds != 15 {
		t.Fatalf("expected turnTimer payload with 15s, got %+v", ev.Payload)
	}
	if !c.Active {
		t.Fatal("expected clock active after start")
	}
}

func TestTickExpiresAtDeadline(t *testing.T) {
	c := NewClock(tps)
	c.Start(0, 2) // 2 seconds = 10 ticks

	for tick := int64(1); tick < 10; tick++ {
		_, expired := c.Tick(tick)
		if expired {
			t.Fatalf("expired too early at tick %d", tick)
		}
	}
	_, expired := c.Tick(10)
	if !expired {
		t.Fatal("expected expiry at deadline tick")
	}
	if c.Active {
		t.Fatal("expected clock inactive after expiry")
	}
}

func TestStartCancelsPreviousClock(t *testing.T) {
	c := NewClock(tps)
	c.Start(0, 100)
	c.Start(0, 1) // implicitly cancels the 100s countdown

	_, expired := c.Tick(tps) // one second later
	if !expired {
		t.Fatal("expected the second Start's shorter duration to win")
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	c := NewClock(tps)
	c.Start(0, 10)
	c.Cancel()
	c.Cancel()
	if c.Active {
		t.Fatal("expected clock inactive after cancel")
	}
	if _, expired := c.Tick(1000); expired {
		t.Fatal("a cancelled clock must never expire")
	}
}

func TestTickEmitsAtMostOncePerSecond(t *testing.T) {
	c := NewClock(tps)
	c.Start(0, 3)

	updates := 0
	for tick := int64(1); tick <= 15; tick++ {
		ev, _ := c.Tick(tick)
		if ev != nil {
			updates++
		}
	}
	// 3s = 15 ticks: updates when remaining drops to 2s (tick 5) and 1s
	// (tick 10); tick 15 is the expiry and carries no update.
	if updates != 2 {
		t.Fatalf("expected exactly 2 timerUpdate events, got %d", updates)
	}
}

func TestRemainingSecondsZeroWhenInactive(t *testing.T) {
	c := NewClock(tps)
	if got := c.RemainingSeconds(0); got != 0 {
		t.Fatalf("expected 0 remaining on inactive clock, got %d", got)
	}
}
