package engine

import (
	"context"
	"testing"

	"github.com/talgya/kibera-unrest/internal/agents"
	"github.com/talgya/kibera-unrest/internal/world"
)

// runSmall builds a small settlement and runs it for the given days.
func runSmall(t *testing.T, seed int64, days int) *Simulation {
	t.Helper()
	p := testParams()
	p.Seed = seed
	p.NumResidents = 150
	p.NumResidentsHearRumor = 20
	p.Features.CreateRebelsAtInitialization = true

	s := Build(p, world.SmallTestConfig())
	e := NewEngine(s.Clock.MinutesPerDay)
	e.Horizon = uint64(days * s.Clock.MinutesPerDay)
	s.Attach(e)
	e.Run(context.Background())
	return s
}

func TestRunKeepsInvariants(t *testing.T) {
	s := runSmall(t, 7, 2)

	if len(s.Residents) == 0 {
		t.Fatal("no residents spawned")
	}
	if s.Stats.Day != 1 {
		t.Fatalf("stats day = %d, want 1", s.Stats.Day)
	}

	for _, r := range s.Residents {
		if r.Energy < agents.MinEnergy || r.Energy > agents.MaxEnergy {
			t.Fatalf("resident %d energy %v out of range", r.ID, r.Energy)
		}
		if !contains(r.Position.Residents(), r.ID) {
			t.Fatalf("resident %d missing from its parcel", r.ID)
		}
		if r.IsEmployed() && !r.Placement.Employer.Staff().Contains(r.ID) {
			t.Fatalf("resident %d placed but not on the roster", r.ID)
		}
		if r.IsStudent() && (!r.School.Students.Contains(r.ID) || !r.SchoolEligible) {
			t.Fatalf("resident %d enrolled inconsistently", r.ID)
		}
		if r.Age < 6 && r.Identity != agents.IdentityDomestic && !r.IsStudent() {
			t.Fatalf("young child %d has identity %s", r.ID, r.Identity)
		}
	}

	m := s.World
	for _, b := range m.Businesses {
		checkRoster(t, "business", b.Employees)
	}
	for _, sc := range m.Schools {
		checkRoster(t, "school students", sc.Students)
		checkRoster(t, "school staff", sc.Employees)
	}
	for _, h := range m.Health {
		checkRoster(t, "health", h.Employees)
	}
	for _, f := range m.Religious {
		checkRoster(t, "religious", f.Employees)
	}
	checkRoster(t, "outside formal", m.Outside.For(world.SectorFormal).Employees)
	checkRoster(t, "outside informal", m.Outside.For(world.SectorInformal).Employees)

	if s.Graph.EdgeCount() == 0 {
		t.Fatal("two days of co-presence produced no ties")
	}
	for _, e := range s.Graph.Edges() {
		if e.A == e.B || e.Weight <= 0 {
			t.Fatalf("bad edge %+v", e)
		}
		ab, _ := s.Graph.Weight(e.A, e.B)
		ba, _ := s.Graph.Weight(e.B, e.A)
		if ab != ba {
			t.Fatalf("asymmetric tie %d-%d: %v vs %v", e.A, e.B, ab, ba)
		}
	}
}

func TestRunIsDeterministic(t *testing.T) {
	a := runSmall(t, 11, 1)
	b := runSmall(t, 11, 1)

	if a.Stats != b.Stats {
		t.Fatalf("stats differ:\n%+v\n%+v", a.Stats, b.Stats)
	}
	for i := range a.Residents {
		ra, rb := a.Residents[i], b.Residents[i]
		if ra.Energy != rb.Energy || ra.Goal != rb.Goal || ra.Position.Coord != rb.Position.Coord {
			t.Fatalf("resident %d diverged", ra.ID)
		}
	}
}

func TestInitialRebelsAreSeeded(t *testing.T) {
	f := newFixture(t, 10, 10)
	hh := f.household(1, 1)
	for i := 0; i < 30; i++ {
		f.resident(hh, 20+i)
	}
	p := testParams()
	p.NumResidentsHearRumor = 10
	p.NumResidentsHearNewRumor = 4
	p.ProportionInitialRebel = 0.25
	p.Features.CreateRebelsAtInitialization = true
	s := f.sim(p)

	heard, rebels, counter := 0, 0, 0
	for _, r := range s.Residents {
		if r.HeardRumor {
			heard++
		}
		if r.InitialRebel {
			rebels++
			if r.Identity != agents.IdentityRebel || r.Goal != agents.GoalRebel || !r.HeardRumor {
				t.Fatalf("initial rebel %d not on the streets", r.ID)
			}
		}
		if r.HeardNewRumor {
			counter++
		}
	}
	// int(0.25·10)+1 rebels.
	if heard != 10 || rebels != 3 || counter != 4 {
		t.Fatalf("heard %d rebels %d counter %d, want 10, 3, 4", heard, rebels, counter)
	}
}

func TestTickDayReportsStats(t *testing.T) {
	f := newFixture(t, 10, 10)
	hh := f.household(1, 1)
	f.resident(hh, 30)
	f.resident(hh, 4)
	s := f.sim(testParams())

	s.TickDay(uint64(s.Clock.MinutesPerDay - 1))
	if s.Stats.Population != 2 || s.Stats.Households != 1 {
		t.Fatalf("stats = %+v", s.Stats)
	}
	if s.Stats.Identities[agents.IdentityDomestic] != 2 {
		t.Fatalf("identities = %v", s.Stats.Identities)
	}
}

func checkRoster(t *testing.T, what string, r *world.Roster) {
	t.Helper()
	if r.Len() > r.Capacity() {
		t.Fatalf("%s roster holds %d, capacity %d", what, r.Len(), r.Capacity())
	}
}

func contains(ids []agents.ResidentID, id agents.ResidentID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
