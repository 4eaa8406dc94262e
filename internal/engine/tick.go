// Package engine provides the tick-based simulation loop and the per-resident
// decision engine that runs inside it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Clock converts tick numbers into simulated calendar time. One tick is one
// minute; a day may be shorter than 1440 ticks when the night is skipped.
type Clock struct {
	MinutesPerDay int
	Offset        int // Wall-clock minute of tick 0 within a day
}

// MinuteOfDay returns the minute within the simulated day.
func (c Clock) MinuteOfDay(tick uint64) int {
	return int(tick % uint64(c.MinutesPerDay))
}

// WallMinute returns the wall-clock minute of the day, accounting for the
// skipped night.
func (c Clock) WallMinute(tick uint64) int {
	return c.MinuteOfDay(tick) + c.Offset
}

// Day returns the zero-based day number.
func (c Clock) Day(tick uint64) int {
	return int(tick / uint64(c.MinutesPerDay))
}

// DayOfWeek returns 1 (Monday) through 7 (Sunday).
func (c Clock) DayOfWeek(tick uint64) int {
	return c.Day(tick)%7 + 1
}

// IsWeekday reports Monday through Friday.
func (c Clock) IsWeekday(tick uint64) bool {
	return c.DayOfWeek(tick) <= 5
}

// IsSunday reports the seventh day of the week.
func (c Clock) IsSunday(tick uint64) bool {
	return c.DayOfWeek(tick) == 7
}

var dayNames = [...]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// SimTime returns a human-readable simulation time string from a tick number.
func (c Clock) SimTime(tick uint64) string {
	wall := c.WallMinute(tick)
	return fmt.Sprintf("Day %d (%s) %02d:%02d",
		c.Day(tick)+1, dayNames[c.DayOfWeek(tick)-1], wall/60%24, wall%60)
}

// Engine drives the simulation forward.
type Engine struct {
	Tick        uint64        // Next tick to run (monotonic, never resets)
	Horizon     uint64        // Stop once Tick reaches this value; 0 = run until stopped
	TicksPerDay uint64        // Ticks per simulated day
	Speed       float64       // Multiplier: 1.0 = one tick per Interval, 0 = paused
	Interval    time.Duration // Base tick interval; 0 = run unpaced
	running     atomic.Bool

	// Callbacks for each tick layer, populated during setup.
	OnTick func(tick uint64) // Every tick (sim-minute)
	OnDay  func(tick uint64) // After the last tick of each day
	OnWeek func(tick uint64) // After the last tick of each week
}

// NewEngine creates an unpaced engine for days of the given length.
func NewEngine(ticksPerDay int) *Engine {
	return &Engine{
		TicksPerDay: uint64(ticksPerDay),
		Speed:       1.0,
	}
}

// Run advances the simulation until the horizon is reached, Stop is called
// or ctx is canceled.
func (e *Engine) Run(ctx context.Context) {
	e.running.Store(true)
	slog.Info("simulation engine started", "tick", e.Tick, "horizon", e.Horizon, "speed", e.Speed)

	for e.running.Load() && (e.Horizon == 0 || e.Tick < e.Horizon) {
		if err := ctx.Err(); err != nil {
			break
		}
		if e.Speed <= 0 {
			// Paused: sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		e.step()

		if e.Interval > 0 {
			elapsed := time.Since(start)
			target := time.Duration(float64(e.Interval) / e.Speed)
			if elapsed < target {
				time.Sleep(target - elapsed)
			}
		}
	}

	e.running.Store(false)
	slog.Info("simulation engine stopped", "tick", e.Tick)
}

// Running reports whether Run is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Stop halts the simulation loop after the current tick.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// step runs one tick, then the day and week layers when the tick closed them.
func (e *Engine) step() {
	tick := e.Tick
	if e.OnTick != nil {
		e.OnTick(tick)
	}
	e.Tick++

	if e.TicksPerDay == 0 {
		return
	}
	if e.Tick%e.TicksPerDay == 0 && e.OnDay != nil {
		e.OnDay(tick)
	}
	if e.Tick%(7*e.TicksPerDay) == 0 && e.OnWeek != nil {
		e.OnWeek(tick)
	}
}
