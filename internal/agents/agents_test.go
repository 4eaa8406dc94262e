package agents

import (
	"math"
	"math/rand"
	"testing"

	"github.com/talgya/kibera-unrest/internal/world"
)

func testHome(m *world.Map, x, y int) *world.Home {
	st := m.AddStructure(m.Get(x, y))
	h := &world.Home{ID: len(m.Homes) + 1, Structure: st}
	st.Homes = append(st.Homes, h)
	m.Homes = append(m.Homes, h)
	return h
}

func TestUpdateEnergyBounds(t *testing.T) {
	r := &Resident{Energy: 95}
	r.UpdateEnergy(true, 20)
	if r.Energy != MaxEnergy {
		t.Fatalf("energy = %v, want %v", r.Energy, MaxEnergy)
	}
	r.UpdateEnergy(false, 250)
	if r.Energy != MinEnergy {
		t.Fatalf("energy = %v, want %v", r.Energy, MinEnergy)
	}

	r.Energy = 50
	r.Identity = IdentityRebel
	r.UpdateEnergy(false, 10)
	if r.Energy != 50 {
		t.Fatalf("rebel energy changed to %v", r.Energy)
	}
}

func TestAggressionFallsWithEnergy(t *testing.T) {
	prev := 1.0
	for e := MaxEnergy; e >= MinEnergy; e -= 5 {
		a := Aggression(e, 0.6)
		if a < 0 || a > 1 || a > prev {
			t.Fatalf("aggression(%v) = %v after %v", e, a, prev)
		}
		prev = a
	}
	if a := Aggression(50, 0.6); math.Abs(a-0.5) > 1e-12 {
		t.Fatalf("aggression at mid energy = %v, want 0.5", a)
	}
}

func TestHappinessScaledRate(t *testing.T) {
	if HappinessScaledRate(0.6, 0) != 0.6 {
		t.Fatal("unhappy households keep the base rate")
	}
	if math.Abs(HappinessScaledRate(0.6, 1)-0.8) > 1e-12 {
		t.Fatal("happiness 1 scales by 4/3")
	}
	if math.Abs(HappinessScaledRate(0.6, 2)-1.0) > 1e-12 {
		t.Fatal("happiness 2 scales by 5/3")
	}
}

func TestDrawIncomeBySector(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const informality, maxIncome = 0.6, 14520.0
	x := informality
	split := maxIncome * (1.7148*x*x*x - 1.0446*x*x + 0.3259*x)

	for i := 0; i < 1000; i++ {
		in := DrawIncome(world.SectorInformal, informality, maxIncome, rng)
		if in < 0 || in >= split {
			t.Fatalf("informal income %v outside [0,%v)", in, split)
		}
		fo := DrawIncome(world.SectorFormal, informality, maxIncome, rng)
		if fo < split || fo > maxIncome+1e-9 {
			t.Fatalf("formal income %v outside [%v,%v]", fo, split, maxIncome)
		}
	}
}

func TestPlacementIsExclusive(t *testing.T) {
	m := world.NewMap(5, 5)
	st := m.AddStructure(m.Get(2, 2))
	b1 := &world.Business{ID: 1, Structure: st, Employees: world.NewRoster(1)}
	b2 := &world.Business{ID: 2, Structure: st, Employees: world.NewRoster(1)}
	outside := world.NewOutsideEmployment(1, 1)

	r := &Resident{ID: 1}
	if !r.Assign(AtBusiness(b1)) {
		t.Fatal("first placement refused")
	}
	if r.Assign(AtBusiness(b2)) || b2.Employees.Contains(1) {
		t.Fatal("second placement accepted")
	}
	if r.Placement.Status() != EmploymentInformal || r.Placement.Parcel() != st.Parcel {
		t.Fatal("business placement has the wrong sector or parcel")
	}

	other := &Resident{ID: 2}
	if other.Assign(AtBusiness(b1)) {
		t.Fatal("placed with a full employer")
	}

	r.Terminate()
	if r.IsEmployed() || b1.Employees.Contains(1) {
		t.Fatal("termination left the resident on the roster")
	}

	if !r.Assign(Outside(outside.Formal)) {
		t.Fatal("outside placement refused")
	}
	if r.Placement.Status() != EmploymentFormal || r.Placement.Parcel() != nil {
		t.Fatal("outside formal placement should be formal and off the grid")
	}
}

func TestHouseholdRecompute(t *testing.T) {
	m := world.NewMap(5, 5)
	home := testHome(m, 1, 1)
	home.Rent = 600
	home.HasWater = true
	home.HasSanitation = true

	hh := &Household{ID: 1, Home: home}
	worker := &Resident{ID: 1, Household: hh, AdultEquivalent: 1, Income: 9000, Identity: IdentityEmployer}
	child := &Resident{ID: 2, Household: hh, AdultEquivalent: 0.5, Identity: IdentityStudent}
	hh.Members = []*Resident{worker, child}

	costs := CostTable{FoodPerMeal: 10, Transport: 5}
	hh.Recompute(costs, rand.New(rand.NewSource(1)))

	// 300 a day in, 20 rent and 30+10 food out.
	if hh.DailyIncome != 300 {
		t.Fatalf("daily income = %v", hh.DailyIncome)
	}
	if math.Abs(hh.Expenditures-60) > 1e-9 {
		t.Fatalf("expenditures = %v, want 60", hh.Expenditures)
	}
	if hh.Discrepancy != 240 || hh.Happiness() != 2 {
		t.Fatalf("discrepancy %v happiness %d", hh.Discrepancy, hh.Happiness())
	}
}

func TestHouseholdCutsBackWhenShort(t *testing.T) {
	m := world.NewMap(5, 5)
	home := testHome(m, 1, 1)
	home.HasWater = true
	home.HasSanitation = true
	home.HasElectricity = true
	home.ElectricCost = 300

	hh := &Household{ID: 1, Home: home}
	hh.Members = []*Resident{{ID: 1, Household: hh, AdultEquivalent: 1, Income: 600, Identity: IdentityDomestic}}

	// 20 a day in; food 15 plus 10 electricity and 5 other.
	hh.Recompute(CostTable{FoodPerMeal: 5, Other: 5}, rand.New(rand.NewSource(1)))
	if hh.Adjusted != AdjustmentDecreased || hh.Costs.Electricity != 0 || hh.Costs.Other != 0 {
		t.Fatalf("household did not cut back: %+v", hh.Costs)
	}
	if hh.Discrepancy != 5 || hh.Happiness() != 1 {
		t.Fatalf("discrepancy %v happiness %d, want 5 and 1", hh.Discrepancy, hh.Happiness())
	}

	hh.Recompute(CostTable{FoodPerMeal: 50}, rand.New(rand.NewSource(1)))
	if hh.Discrepancy >= 0 || hh.Happiness() != 0 {
		t.Fatalf("discrepancy %v happiness %d, want a deficit", hh.Discrepancy, hh.Happiness())
	}
}

func TestHouseholdWater(t *testing.T) {
	m := world.NewMap(5, 5)
	hh := &Household{ID: 1, Home: testHome(m, 1, 1)}
	hh.Members = []*Resident{{ID: 1}, {ID: 2}}

	hh.RemainingWater = 30
	if !hh.NeedsWater(23) {
		t.Fatal("30 litres do not cover two people")
	}
	hh.AddWater(20)
	if hh.NeedsWater(23) {
		t.Fatal("50 litres cover two people")
	}
	hh.ConsumeWater(23)
	hh.ConsumeWater(23)
	hh.ConsumeWater(23)
	if hh.RemainingWater != 0 {
		t.Fatalf("remaining water = %v, want 0", hh.RemainingWater)
	}

	hh.Home.HasWater = true
	if hh.NeedsWater(23) {
		t.Fatal("a home with a tap never needs to fetch water")
	}
}

func TestSpawnPopulation(t *testing.T) {
	m := world.NewMap(20, 20)
	for i := 0; i < 60; i++ {
		testHome(m, i%20, i/20)
	}
	cfg := SpawnConfig{
		InitialEnergy:         100,
		AggressionRate:        0.6,
		UniformAggressionRate: true,
		WaterPerPerson:        23,
		AdultEquivUnder5:      0.24,
		AdultEquiv5to14:       0.65,
		AdultEquiv15AndOver:   1,
	}

	households, residents := NewSpawner(42, cfg).SpawnPopulation(100, m.Homes)
	if len(residents) < 100 {
		t.Fatalf("spawned %d residents, want at least 100", len(residents))
	}

	seen := make(map[*world.Home]bool)
	ids := make(map[ResidentID]bool)
	for _, hh := range households {
		if seen[hh.Home] || !hh.Home.Occupied {
			t.Fatalf("household %d home reused or not marked occupied", hh.ID)
		}
		seen[hh.Home] = true
		if len(hh.Members) == 0 || hh.Members[0].Age < 18 {
			t.Fatalf("household %d has no adult head", hh.ID)
		}
		if hh.RemainingWater != 23*float64(len(hh.Members)) {
			t.Fatalf("household %d starts with %v litres", hh.ID, hh.RemainingWater)
		}
		for _, r := range hh.Members {
			if r.Household != hh || r.Position != hh.Home.Parcel() || r.Religion != hh.Members[0].Religion {
				t.Fatalf("resident %d not settled with its household", r.ID)
			}
			if ids[r.ID] {
				t.Fatalf("duplicate id %d", r.ID)
			}
			ids[r.ID] = true
			if r.SchoolEligible != (r.Age >= 3 && r.Age <= 18) {
				t.Fatalf("resident %d age %d eligibility %v", r.ID, r.Age, r.SchoolEligible)
			}
			if r.Age < 6 && r.Employment != EmploymentInactive {
				t.Fatalf("child %d is %s", r.ID, r.Employment)
			}
		}
	}
}

func TestSpawnStopsWhenHomesRunOut(t *testing.T) {
	m := world.NewMap(5, 5)
	testHome(m, 1, 1)
	testHome(m, 2, 2)

	households, _ := NewSpawner(1, SpawnConfig{}).SpawnPopulation(10000, m.Homes)
	if len(households) != 2 {
		t.Fatalf("got %d households for 2 homes", len(households))
	}
}

func TestSpawnEmploymentStatus(t *testing.T) {
	m := world.NewMap(40, 40)
	for i := 0; i < 1600; i++ {
		testHome(m, i%40, i/40)
	}
	cfg := SpawnConfig{
		UseEmploymentStats: true,
		InformalityIndex:   0.6,
		PercentUnder6:      0.21,
	}

	_, residents := NewSpawner(42, cfg).SpawnPopulation(3000, m.Homes)

	var adults int
	var counts [NumEmployment]int
	for _, r := range residents {
		if r.Age <= 18 {
			if r.Employment != EmploymentInactive {
				t.Fatalf("resident %d aged %d starts %s", r.ID, r.Age, r.Employment)
			}
			continue
		}
		adults++
		counts[r.Employment]++
	}
	for e, n := range counts {
		if n == 0 {
			t.Fatalf("no adult starts %s", Employment(e))
		}
	}
	if counts[EmploymentInformal] <= counts[EmploymentFormal] {
		t.Fatalf("informal %d should outnumber formal %d at informality 0.6",
			counts[EmploymentInformal], counts[EmploymentFormal])
	}
	working := float64(counts[EmploymentFormal]+counts[EmploymentInformal]) / float64(adults)
	if working < 0.5 || working > 0.85 {
		t.Fatalf("working share %.2f outside [0.5,0.85]", working)
	}

	fresh := world.NewMap(10, 10)
	for i := 0; i < 100; i++ {
		testHome(fresh, i%10, i/10)
	}
	cfg.UseEmploymentStats = false
	_, residents = NewSpawner(42, cfg).SpawnPopulation(200, fresh.Homes)
	for _, r := range residents {
		want := EmploymentSearching
		if r.Age < 6 {
			want = EmploymentInactive
		}
		if r.Employment != want {
			t.Fatalf("without survey shares resident aged %d starts %s", r.Age, r.Employment)
		}
	}
}
