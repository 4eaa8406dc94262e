package engine

import (
	"math"
	"testing"

	"github.com/talgya/kibera-unrest/internal/agents"
)

func TestArrivalCreatesTieForRemainingMinutes(t *testing.T) {
	f := newFixture(t, 20, 20)
	a := f.resident(f.household(1, 1), 30)
	b := f.resident(f.household(2, 2), 30)
	s := f.sim(testParams())

	p := s.World.Get(5, 5)
	for _, r := range []*agents.Resident{a, b} {
		r.MoveTo(p)
		r.GoalLocation = p
		r.Goal = agents.GoalFindEmployment
	}

	const tick = 500
	a.StayUntil = tick + 60 // 100-minute stay with 60 minutes left

	s.performArrivalEffects(p, a, tick)

	want := 60.0 / 1440
	ab, ok := s.Graph.Weight(a.ID, b.ID)
	if !ok {
		t.Fatal("expected a new edge between co-located residents")
	}
	ba, _ := s.Graph.Weight(b.ID, a.ID)
	if math.Abs(ab-want) > 1e-12 || math.Abs(ba-want) > 1e-12 {
		t.Fatalf("weights = %v / %v, want %v on both sides", ab, ba, want)
	}
}

func TestArrivalSkipsResidentsAwayFromTheirGoal(t *testing.T) {
	f := newFixture(t, 20, 20)
	a := f.resident(f.household(1, 1), 30)
	b := f.resident(f.household(2, 2), 30)
	s := f.sim(testParams())

	p := s.World.Get(5, 5)
	a.MoveTo(p)
	a.GoalLocation = p
	a.Goal = agents.GoalFindEmployment
	b.MoveTo(p)
	b.GoalLocation = s.World.Get(9, 9) // passing through
	b.Goal = agents.GoalFindEmployment

	s.performArrivalEffects(p, a, 500)

	if _, ok := s.Graph.Weight(a.ID, b.ID); ok {
		t.Fatal("tie created with a resident who is only passing through")
	}
}

func TestWaterArrivalCreditsHome(t *testing.T) {
	f := newFixture(t, 20, 20)
	r := f.resident(f.household(1, 1), 30)
	s := f.sim(testParams())
	r.Goal = agents.GoalWater

	for _, prior := range []float64{0, 3.5, 40, 1000} {
		r.Household.RemainingWater = prior
		s.performArrivalEffects(s.World.Get(4, 4), r, 600)
		if got := r.Household.RemainingWater; got != prior+20 {
			t.Fatalf("prior %v: remaining water = %v, want %v", prior, got, prior+20)
		}
	}
}

func TestTieIncrementOnLastTickOfTruncatedDay(t *testing.T) {
	f := newFixture(t, 10, 10)
	r := f.resident(f.household(1, 1), 30)
	s := f.sim(testParams())

	mpd := s.Clock.MinutesPerDay
	tick := uint64(mpd - 1)
	r.StayUntil = tick + 300

	want := float64(1440-mpd) / 1440
	if got := s.tieIncrement(r, tick); math.Abs(got-want) > 1e-12 {
		t.Fatalf("increment = %v, want %v", got, want)
	}

	r.StayUntil = 0
	if got := s.tieIncrement(r, 10); got != 1.0/1440 {
		t.Fatalf("elapsed stay increment = %v, want one minute", got)
	}
}

func TestStayingPeriodRanges(t *testing.T) {
	f := newFixture(t, 10, 10)
	r := f.resident(f.household(1, 1), 30)
	s := f.sim(testParams())

	tests := []struct {
		goal     agents.Goal
		religion agents.Religion
		lo, hi   uint64
	}{
		{agents.GoalWork, agents.ReligionChristian, 360, 597},
		{agents.GoalFindEmployment, agents.ReligionChristian, 120, 237},
		{agents.GoalWater, agents.ReligionChristian, 10, 59},
		{agents.GoalEducation, agents.ReligionChristian, 420, 420},
		{agents.GoalSocialize, agents.ReligionChristian, 60, 117},
		{agents.GoalStayHome, agents.ReligionChristian, 1, 1},
		{agents.GoalReligion, agents.ReligionMuslim, 20, 199},
		{agents.GoalReligion, agents.ReligionChristian, 60, 119},
		{agents.GoalRebel, agents.ReligionChristian, 60, 419},
	}

	const tick = 1000
	for _, tt := range tests {
		r.Religion = tt.religion
		for i := 0; i < 500; i++ {
			d := s.stayingPeriod(r, tt.goal, tick) - tick
			if d < tt.lo || d > tt.hi {
				t.Fatalf("%s: period %d outside [%d,%d]", tt.goal, d, tt.lo, tt.hi)
			}
		}
	}
}

func TestStayHomeTiesHouseholdInTheEvening(t *testing.T) {
	f := newFixture(t, 10, 10)
	hh := f.household(3, 3)
	a := f.resident(hh, 30)
	b := f.resident(hh, 12)
	s := f.sim(testParams())

	// Wall-clock 17:30.
	tick := uint64(1050 - s.Clock.Offset)
	b.Goal = agents.GoalEducation // not a neighborhood goal, but family
	s.performArrivalEffects(a.Home(), a, tick)

	if _, ok := s.Graph.Weight(a.ID, b.ID); !ok {
		t.Fatal("evening at home should tie household members")
	}
}
