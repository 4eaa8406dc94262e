package engine

import (
	"context"
	"testing"
)

func TestEngineLayers(t *testing.T) {
	e := NewEngine(10)
	e.Horizon = 140

	var ticks, days, weeks int
	var dayTicks []uint64
	e.OnTick = func(uint64) { ticks++ }
	e.OnDay = func(tick uint64) {
		days++
		dayTicks = append(dayTicks, tick)
	}
	e.OnWeek = func(uint64) { weeks++ }

	e.Run(context.Background())

	if ticks != 140 || days != 14 || weeks != 2 {
		t.Fatalf("ticks %d days %d weeks %d, want 140, 14, 2", ticks, days, weeks)
	}
	if dayTicks[0] != 9 || dayTicks[13] != 139 {
		t.Fatalf("day layer ran after ticks %v, want the last tick of each day", dayTicks)
	}
	if e.Tick != 140 || e.Running() {
		t.Fatalf("engine at tick %d running %v after the horizon", e.Tick, e.Running())
	}
}

func TestEngineStopsOnCancel(t *testing.T) {
	e := NewEngine(10)
	ctx, cancel := context.WithCancel(context.Background())
	e.OnTick = func(tick uint64) {
		if tick == 25 {
			cancel()
		}
	}
	e.Run(ctx)

	if e.Tick != 26 {
		t.Fatalf("stopped at tick %d, want 26", e.Tick)
	}
}

func TestClock(t *testing.T) {
	c := Clock{MinutesPerDay: 1020, Offset: 300}

	tests := []struct {
		tick    uint64
		want    string
		weekday bool
	}{
		{0, "Day 1 (Mon) 05:00", true},
		{1019, "Day 1 (Mon) 21:59", true},
		{1020, "Day 2 (Tue) 05:00", true},
		{5*1020 + 90, "Day 6 (Sat) 06:30", false},
		{6*1020 + 420, "Day 7 (Sun) 12:00", false},
		{7 * 1020, "Day 8 (Mon) 05:00", true},
	}
	for _, tt := range tests {
		if got := c.SimTime(tt.tick); got != tt.want {
			t.Errorf("SimTime(%d) = %q, want %q", tt.tick, got, tt.want)
		}
		if got := c.IsWeekday(tt.tick); got != tt.weekday {
			t.Errorf("IsWeekday(%d) = %v", tt.tick, got)
		}
	}

	if !c.IsSunday(6*1020) || c.IsSunday(5*1020) {
		t.Error("sunday is the seventh day")
	}
	if got := c.WallMinute(1019); got != 1319 {
		t.Errorf("WallMinute(1019) = %d, want 1319", got)
	}
}
