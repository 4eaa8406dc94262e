package engine

import (
	"log/slog"

	"github.com/talgya/kibera-unrest/internal/agents"
	"github.com/talgya/kibera-unrest/internal/config"
	"github.com/talgya/kibera-unrest/internal/entropy"
	"github.com/talgya/kibera-unrest/internal/world"
)

// GenConfigFor applies the run's capacities to a settlement layout.
func GenConfigFor(p config.Params, base world.GenConfig) world.GenConfig {
	cfg := base
	cfg.BusinessCapacity = p.BusinessCapacity
	cfg.SchoolCapacity = p.SchoolCapacity
	cfg.SchoolStaff = p.SchoolEmployeeCapacity
	cfg.ClassSize = p.ClassSize
	cfg.HealthStaff = p.HealthEmployeeCapacity
	cfg.ReligiousStaff = p.ReligiousEmployeeCap
	cfg.FormalOutsideCapacity = p.FormalOutsideCapacity
	cfg.InformalOutsideCapacity = p.InformalOutsideCapacity
	cfg.ElectricCost = p.ElectricCost
	return cfg
}

// SpawnConfigFor extracts the population settings from the run parameters.
func SpawnConfigFor(p config.Params) agents.SpawnConfig {
	return agents.SpawnConfig{
		InitialEnergy:         p.InitialEnergy,
		AggressionRate:        p.AggressionRate,
		UniformAggressionRate: p.UniformAggressionRate,
		WaterPerPerson:        p.WaterRequirement,
		UseEmploymentStats:    p.Features.UseEmploymentStats,
		InformalityIndex:      p.InformalityIndex,
		PercentUnder6:         p.PercentUnder6,
		AdultEquivUnder5:      p.AdultEquivUnder5,
		AdultEquiv5to14:       p.AdultEquiv5to14,
		AdultEquiv15AndOver:   p.AdultEquiv15AndOver,
	}
}

// Build generates a settlement on the given layout, spawns the population
// and returns a simulation ready to run. A zero seed in p draws a fresh one.
func Build(p config.Params, layout world.GenConfig) *Simulation {
	seed := entropy.Resolve(p.Seed)

	gen := GenConfigFor(p, layout)
	gen.Seed = seed
	m := world.Generate(gen)
	counts := world.Counts(m)
	slog.Info("settlement generated",
		"width", m.Width,
		"height", m.Height,
		"structures", counts["structures"],
		"homes", counts["homes"],
		"businesses", counts["businesses"],
		"schools", counts["schools"],
		"water_points", counts["water_points"],
	)

	households, residents := agents.NewSpawner(seed, SpawnConfigFor(p)).SpawnPopulation(p.NumResidents, m.Homes)
	if len(residents) < p.NumResidents {
		slog.Warn("ran out of homes before reaching the population target",
			"target", p.NumResidents, "spawned", len(residents))
	}
	slog.Info("population spawned", "households", len(households), "residents", len(residents))

	s := newSimulation(p, seed, m, households, residents)
	s.placeInitialPopulation()
	s.start()
	return s
}

// placeInitialPopulation hires the starting workforce at the nearest
// employer with room and enrolls school-eligible residents who are not
// working at the nearest school with room.
func (s *Simulation) placeInitialPopulation() {
	for _, r := range s.Residents {
		if r.Employment == agents.EmploymentFormal || r.Employment == agents.EmploymentInformal {
			s.hireAtStart(r)
		}
		if r.SchoolEligible && r.Employment != agents.EmploymentFormal && r.Employment != agents.EmploymentInformal {
			s.enrollAtStart(r)
		}
	}

	employed, students := 0, 0
	for _, r := range s.Residents {
		if r.IsEmployed() {
			employed++
		}
		if r.IsStudent() {
			students++
		}
	}
	slog.Info("initial placements", "employed", employed, "students", students)
}

// hireAtStart places a resident drawn as working. Workers without a free
// position anywhere start out searching.
func (s *Simulation) hireAtStart(r *agents.Resident) {
	home := r.Home()
	formal := r.Employment == agents.EmploymentFormal
	if p := nearest(home, s.employmentParcels(home, formal), s.rng); p != nil {
		if openings := s.openPositions(p, formal); len(openings) > 0 {
			r.Assign(openings[s.rng.Intn(len(openings))])
		}
	}
	if !r.IsEmployed() {
		r.Employment = agents.EmploymentSearching
		return
	}
	r.Employment = r.Placement.Status()
	r.Income = agents.DrawIncome(r.Placement.Sector(), s.Params.InformalityIndex, s.Params.MaxMonthlyIncome, s.rng)
	r.Identity = agents.IdentityEmployer
}

func (s *Simulation) enrollAtStart(r *agents.Resident) {
	p := nearest(r.Home(), s.findSchools(r), s.rng)
	if p == nil {
		return
	}
	var open []*world.School
	for _, st := range p.Structures {
		for _, sc := range st.Schools {
			if !sc.Students.CapacityReached() {
				open = append(open, sc)
			}
		}
	}
	if len(open) > 0 && r.EnrollIn(open[s.rng.Intn(len(open))], s.rng) {
		r.Identity = agents.IdentityStudent
	}
}

// Attach wires the simulation's tick layers into an engine.
func (s *Simulation) Attach(e *Engine) {
	e.OnTick = s.TickMinute
	e.OnDay = s.TickDay
	e.OnWeek = s.TickWeek
}
