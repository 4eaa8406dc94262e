package engine

import (
	"math/rand"
	"testing"

	"github.com/talgya/kibera-unrest/internal/agents"
	"github.com/talgya/kibera-unrest/internal/world"
)

func TestNearestReturnsOnlyMinimalCandidates(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	m := world.NewMap(50, 50)

	for round := 0; round < 200; round++ {
		origin := m.Get(rng.Intn(50), rng.Intn(50))
		var cands []*world.Parcel
		for i := 0; i < 1+rng.Intn(12); i++ {
			cands = append(cands, m.Get(rng.Intn(50), rng.Intn(50)))
		}

		best := origin.DistanceTo(cands[0])
		for _, c := range cands {
			best = min(best, origin.DistanceTo(c))
		}

		got := nearest(origin, cands, rng)
		if got == nil {
			t.Fatal("nearest returned nil for a non-empty list")
		}
		if d := origin.DistanceTo(got); d != best {
			t.Fatalf("round %d: picked distance %v, minimum is %v", round, d, best)
		}
	}
}

func TestNearestSingleMinimumIsDeterministic(t *testing.T) {
	m := world.NewMap(20, 20)
	origin := m.Get(0, 0)
	cands := []*world.Parcel{m.Get(9, 9), m.Get(2, 1), m.Get(5, 0)}

	for seed := int64(0); seed < 20; seed++ {
		if got := nearest(origin, cands, rand.New(rand.NewSource(seed))); got != m.Get(2, 1) {
			t.Fatalf("seed %d: picked %s", seed, got)
		}
	}
	if nearest(origin, nil, rand.New(rand.NewSource(1))) != nil {
		t.Fatal("empty candidate list should give nil")
	}
}

func TestSocializeWithoutTiesReturnsHome(t *testing.T) {
	f := newFixture(t, 20, 20)
	r := f.resident(f.household(3, 3), 25)
	s := f.sim(testParams())

	if got := s.resolveDestination(r, agents.GoalSocialize, 600); got != r.Home() {
		t.Fatalf("destination = %s, want home %s", got, r.Home())
	}
	if !r.SocializedToday {
		t.Fatal("socializing should be recorded for the day")
	}
}

func TestSocializeNeverPicksHousemate(t *testing.T) {
	f := newFixture(t, 20, 20)
	hh := f.household(3, 3)
	r := f.resident(hh, 25)
	mate := f.resident(hh, 30)
	friend := f.resident(f.household(12, 12), 27)
	s := f.sim(testParams())

	s.Graph.Strengthen(r.ID, mate.ID, 5)
	s.Graph.Strengthen(r.ID, friend.ID, 0.1)

	for i := 0; i < 50; i++ {
		r.Friend = nil
		got := s.socializeDestination(r)
		if r.Friend == mate {
			t.Fatal("picked a member of the same household")
		}
		if got != friend.Home() || r.Friend != friend || friend.Friend != r {
			t.Fatalf("expected a mutual visit to %s, got %s", friend.Home(), got)
		}
	}
}

func TestSocializeAbortsWhenFriendIsOut(t *testing.T) {
	f := newFixture(t, 20, 20)
	r := f.resident(f.household(3, 3), 25)
	friend := f.resident(f.household(12, 12), 27)
	s := f.sim(testParams())

	s.Graph.Strengthen(r.ID, friend.ID, 1)
	friend.Goal = agents.GoalWork

	if got := s.socializeDestination(r); got != r.Home() {
		t.Fatalf("destination = %s, want own home", got)
	}
	if r.Friend != nil {
		t.Fatal("friend link set although the visit was aborted")
	}
}

func TestFullEmployerIsNeverAssigned(t *testing.T) {
	f := newFixture(t, 20, 20)
	r := f.resident(f.household(1, 1), 25)
	b := f.business(4, 4, 1)
	b.Employees.Add(999)
	s := f.sim(testParams())

	for i := 0; i < 20; i++ {
		got := s.employmentDestination(r, 100)
		if got != r.Home() {
			t.Fatalf("destination = %s, want home when nothing has room", got)
		}
		if r.IsEmployed() {
			t.Fatal("assigned to an employer at capacity")
		}
		if r.Employment != agents.EmploymentSearching {
			t.Fatalf("status = %s, want searching", r.Employment)
		}
	}
	if len(s.openPositions(b.Location(), false)) != 0 {
		t.Fatal("full business listed as an opening")
	}
}

func TestSearchingAdultFindsInformalWorkNextDay(t *testing.T) {
	f := newFixture(t, 20, 20)
	r := f.resident(f.household(1, 1), 25)
	b := f.business(4, 4, 3)
	s := f.sim(testParams())

	// Scored in the search window.
	for i := 0; i < 100; i++ {
		score := s.searchScore(r, 200, 0)
		if score < 0.8 || score > 1 {
			t.Fatalf("search score %v outside [0.8,1]", score)
		}
	}

	if got := s.employmentDestination(r, 200); got != b.Location() {
		t.Fatalf("destination = %s, want business parcel %s", got, b.Location())
	}
	if r.Placement.Kind != agents.PlacementBusiness || !b.Employees.Contains(r.ID) {
		t.Fatal("expected a business placement on the roster")
	}
	if r.Employment != agents.EmploymentSearching || r.DayFoundEmployment != 0 {
		t.Fatalf("status = %s, found day %d; the job should start tomorrow", r.Employment, r.DayFoundEmployment)
	}

	// Same day: still waiting.
	s.employmentDestination(r, 900)
	if r.Employment != agents.EmploymentSearching {
		t.Fatal("placement took effect on the day it was found")
	}

	nextDay := uint64(s.Clock.MinutesPerDay + 200)
	if got := s.employmentDestination(r, nextDay); got != b.Location() {
		t.Fatalf("destination = %s, want workplace", got)
	}
	if r.Employment != agents.EmploymentInformal {
		t.Fatalf("status = %s, want informal", r.Employment)
	}
	if r.DayFoundEmployment != -1 {
		t.Fatal("pending day not cleared")
	}

	// Informal incomes sample the curve below the informality index.
	x := s.Params.InformalityIndex
	ceiling := s.Params.MaxMonthlyIncome * (1.7148*x*x*x - 1.0446*x*x + 0.3259*x)
	if r.Income < 0 || r.Income >= ceiling {
		t.Fatalf("income %v outside [0,%v)", r.Income, ceiling)
	}
}

func TestFormalSearchPrefersFacilitiesOverBusinesses(t *testing.T) {
	f := newFixture(t, 20, 20)
	sc := f.school(4, 4, 100)
	f.business(4, 4, 3)
	s := f.sim(testParams())

	got := s.openPositions(sc.Location(), true)
	if len(got) != 1 || got[0].Kind != agents.PlacementSchool {
		t.Fatalf("openings = %+v, want only the school", got)
	}
	got = s.openPositions(sc.Location(), false)
	if len(got) != 1 || got[0].Kind != agents.PlacementBusiness {
		t.Fatalf("informal openings = %+v, want only the business", got)
	}
}

func TestSchoolDestinationEnrollsAtNearestSchool(t *testing.T) {
	f := newFixture(t, 40, 40)
	r := f.resident(f.household(5, 5), 10)
	r.SchoolEligible = true
	near := f.school(8, 5, 100)
	f.school(20, 20, 100)
	s := f.sim(testParams())

	got := s.resolveDestination(r, agents.GoalEducation, 120)
	if got != near.Location() {
		t.Fatalf("destination = %s, want nearest school %s", got, near.Location())
	}
	if r.School != near || r.Class == nil || !near.Students.Contains(r.ID) {
		t.Fatal("resident not enrolled at the nearest school")
	}
	if s.resolveDestination(r, agents.GoalEducation, 2000) != near.Location() {
		t.Fatal("enrolled student should keep going to the same school")
	}
}

func TestRebelDestinationJittersAroundCenter(t *testing.T) {
	f := newFixture(t, 60, 60)
	f.resident(f.household(1, 1), 30)
	p := testParams()
	p.RebelCenterX, p.RebelCenterY, p.RebelJitter = 30, 30, 5
	s := f.sim(p)
	center := s.World.Get(30, 30)

	seen := make(map[*world.Parcel]bool)
	for i := 0; i < 500; i++ {
		got := s.rebelDestination()
		if d := center.Chebyshev(got); d > 5 {
			t.Fatalf("rebel destination %s is %d from the center", got, d)
		}
		seen[got] = true
	}
	if len(seen) < 10 {
		t.Fatalf("only %d distinct destinations; jitter not applied", len(seen))
	}

	s.Params.RebelCenterX, s.Params.RebelCenterY = 100, 100
	if got := s.rebelDestination(); !s.World.InBounds(got.Coord.X, got.Coord.Y) {
		t.Fatalf("destination %s off the grid", got)
	}
}
