package engine

import (
	"testing"

	"github.com/talgya/kibera-unrest/internal/agents"
	"github.com/talgya/kibera-unrest/internal/config"
	"github.com/talgya/kibera-unrest/internal/world"
)

// testParams is the default scenario without any rumor seeding, so that
// tests start from a quiet settlement.
func testParams() config.Params {
	p := config.Default()
	p.NumResidentsHearRumor = 0
	p.NumResidentsHearNewRumor = 0
	p.Features.CreateRebelsAtInitialization = false
	return p
}

// fixture builds small hand-made settlements.
type fixture struct {
	t          *testing.T
	m          *world.Map
	households []*agents.Household
	residents  []*agents.Resident
	nextID     agents.ResidentID
}

func newFixture(t *testing.T, width, height int) *fixture {
	t.Helper()
	m := world.NewMap(width, height)
	m.Outside = world.NewOutsideEmployment(0, 0)
	m.IndexClosestNodes()
	return &fixture{t: t, m: m, nextID: 1}
}

func (f *fixture) structureAt(x, y int) *world.Structure {
	p := f.m.Get(x, y)
	if p == nil {
		f.t.Fatalf("no parcel at (%d,%d)", x, y)
	}
	if len(p.Structures) > 0 {
		return p.Structures[0]
	}
	return f.m.AddStructure(p)
}

func (f *fixture) household(x, y int) *agents.Household {
	st := f.structureAt(x, y)
	home := &world.Home{ID: len(f.m.Homes) + 1, Structure: st, Occupied: true}
	st.Homes = append(st.Homes, home)
	f.m.Homes = append(f.m.Homes, home)

	hh := &agents.Household{ID: len(f.households) + 1, Home: home, Ethnicity: "luo"}
	f.households = append(f.households, hh)
	return hh
}

func (f *fixture) resident(hh *agents.Household, age int) *agents.Resident {
	home := hh.Home.Parcel()
	r := &agents.Resident{
		ID:                 f.nextID,
		Age:                age,
		Ethnicity:          hh.Ethnicity,
		Religion:           agents.ReligionChristian,
		AdultEquivalent:    1,
		Household:          hh,
		Employment:         agents.EmploymentSearching,
		Identity:           agents.IdentityDomestic,
		Goal:               agents.GoalStayHome,
		GoalLocation:       home,
		Energy:             100,
		AggressionRate:     0.6,
		DayFoundEmployment: -1,
	}
	f.nextID++
	r.MoveTo(home)
	hh.Members = append(hh.Members, r)
	f.residents = append(f.residents, r)
	return r
}

func (f *fixture) business(x, y, capacity int) *world.Business {
	st := f.structureAt(x, y)
	b := &world.Business{ID: len(f.m.Businesses) + 1, Structure: st, Employees: world.NewRoster(capacity)}
	st.Businesses = append(st.Businesses, b)
	f.m.Businesses = append(f.m.Businesses, b)
	return b
}

func (f *fixture) school(x, y, capacity int) *world.School {
	st := f.structureAt(x, y)
	sc := &world.School{
		ID:        len(f.m.Schools) + 1,
		Structure: st,
		Students:  world.NewRoster(capacity),
		Employees: world.NewRoster(10),
		ClassSize: 23,
	}
	st.Schools = append(st.Schools, sc)
	f.m.Schools = append(f.m.Schools, sc)
	return sc
}

func (f *fixture) sim(p config.Params) *Simulation {
	return NewSimulation(p, 42, f.m, f.households, f.residents)
}

// refreshNeighbors mirrors the start-of-day refresh of cached ties.
func refreshNeighbors(s *Simulation) {
	for _, r := range s.Residents {
		r.Neighbors = s.Graph.Neighbors(r.ID)
	}
}
