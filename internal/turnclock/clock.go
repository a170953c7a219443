// Package turnclock implements the Turn Clock (C6): start/cancel/reset of a
// single per-room countdown and its expiry.
//
// The teacher's runtime never embeds a ticking subsystem — Nakama's Match
// contract already ticks its MatchLoop at a fixed rate and expects all
// per-room state, including timers, to live in the returned match state
// rather than in a second goroutine. A Clock is therefore plain data
// embedded in the room's match state and advanced once per MatchLoop
// invocation; there is no timer library to ground here; that tick-counting
// shape is the idiomatic one for this runtime (see DESIGN.md).
package turnclock

import "github.com/blackdru/arena-server/internal/sessionbus"

// Clock tracks one room's active turn countdown in ticks. Zero value is a
// stopped clock.
type Clock struct {
	TicksPerSecond int64
	Active         bool
	DeadlineTick   int64
	TotalSeconds   int
	lastSecond     int
}

// NewClock returns a stopped clock ticking at the given match rate.
func NewClock(ticksPerSecond int64) *Clock {
	return &Clock{TicksPerSecond: ticksPerSecond}
}

// Start begins a countdown of durationSeconds, implicitly cancelling any
// previously running clock (spec §4.5: "a room may have at most one active
// clock; start implicitly cancels the previous"). Returns the turnTimer
// event to broadcast.
func (c *Clock) Start(nowTick int64, durationSeconds int) sessionbus.Event {
	c.Active = true
	c.TotalSeconds = durationSeconds
	c.DeadlineTick = nowTick + durationSeconds*int64(c.TicksPerSecond)
	c.lastSecond = durationSeconds
	return sessionbus.Event{
		OpCode:   sessionbus.OpTurnTimer,
		Audience: sessionbus.AudienceRoom,
		Payload:  sessionbus.TurnTimerPayload{TotalSeconds: durationSeconds},
	}
}

// Reset is Start under another name, kept distinct to mirror the spec's
// named contract (`start`/`cancel`/`reset`).
func (c *Clock) Reset(nowTick int64, durationSeconds int) sessionbus.Event {
	return c.Start(nowTick, durationSeconds)
}

// Cancel stops the clock. Idempotent.
func (c *Clock) Cancel() {
	c.Active = false
	c.DeadlineTick = 0
	c.lastSecond = 0
}

// Tick advances the clock by one MatchLoop invocation at tick nowTick.
// It returns a timerUpdate event at most once per elapsed second, and
// reports expired=true exactly once, the tick the deadline is reached or
// passed. Tick itself runs no expiry handling; the caller runs it after
// Tick returns, in the same MatchLoop call, once that tick's messages
// have been processed.
func (c *Clock) Tick(nowTick int64) (event *sessionbus.Event, expired bool) {
	if !c.Active {
		return nil, false
	}

	remainingTicks := c.DeadlineTick - nowTick
	if remainingTicks <= 0 {
		c.Active = false
		return nil, true
	}

	remainingSeconds := int(remainingTicks / c.TicksPerSecond)
	if remainingTicks%c.TicksPerSecond != 0 {
		remainingSeconds++
	}
	if remainingSeconds == c.lastSecond {
		return nil, false
	}
	c.lastSecond = remainingSeconds
	return &sessionbus.Event{
		OpCode:   sessionbus.OpTimerUpdate,
		Audience: sessionbus.AudienceRoom,
		Payload:  sessionbus.TimerUpdatePayload{Remaining: remainingSeconds},
	}, false
}

// RemainingSeconds reports the clock's remaining time in whole seconds,
// rounded up; 0 when the clock is stopped or past its deadline.
func (c *Clock) RemainingSeconds(nowTick int64) int {
	if !c.Active {
		return 0
	}
	remaining := c.DeadlineTick - nowTick
	if remaining <= 0 {
		return 0
	}
	secs := int(remaining / c.TicksPerSecond)
	if remaining%c.TicksPerSecond != 0 {
		secs++
	}
	return secs
}
