// Destination resolution: where a resident goes to pursue a goal.
package engine

import (
	"math/rand"
	"sort"

	"github.com/talgya/kibera-unrest/internal/agents"
	"github.com/talgya/kibera-unrest/internal/world"
)

// resolveDestination returns the parcel a resident heads to for goal.
// Resolving can enroll the resident in a school, hire them, register them
// at a religious facility or link them with a friend.
func (s *Simulation) resolveDestination(r *agents.Resident, goal agents.Goal, tick uint64) *world.Parcel {
	home := r.Home()
	switch goal {
	case agents.GoalEducation:
		return s.schoolDestination(r, tick)
	case agents.GoalFindEmployment:
		return s.employmentDestination(r, tick)
	case agents.GoalWork:
		if p := r.Placement.Parcel(); p != nil {
			return p
		}
		return home // outside jobs are modeled as staying home
	case agents.GoalSocialize:
		r.SocializedToday = true
		return s.socializeDestination(r)
	case agents.GoalReligion:
		return s.religionDestination(r)
	case agents.GoalWater:
		var points []*world.Parcel
		for _, wp := range s.World.WaterPoints {
			points = append(points, wp.Parcel())
		}
		if p := nearest(home, points, s.rng); p != nil {
			return p
		}
		return home
	case agents.GoalRebel:
		return s.rebelDestination()
	}
	return home
}

// nearest picks uniformly among the candidates at minimal distance from
// origin. Duplicated candidates weigh proportionally. It returns nil for an
// empty candidate list.
func nearest(origin *world.Parcel, candidates []*world.Parcel, rng *rand.Rand) *world.Parcel {
	var best []*world.Parcel
	bestDist := 0.0
	for _, c := range candidates {
		d := origin.DistanceTo(c)
		switch {
		case len(best) == 0 || d < bestDist:
			bestDist = d
			best = append(best[:0], c)
		case d == bestDist:
			best = append(best, c)
		}
	}
	switch len(best) {
	case 0:
		return nil
	case 1:
		return best[0]
	}
	return best[rng.Intn(len(best))]
}

// findSchools lists the parcels within school vision of home that have a
// school with room, once per such school.
func (s *Simulation) findSchools(r *agents.Resident) []*world.Parcel {
	var out []*world.Parcel
	for _, p := range s.World.Within(r.Home(), s.Params.SchoolVision) {
		for _, st := range p.Structures {
			for _, sc := range st.Schools {
				if !sc.Students.CapacityReached() {
					out = append(out, p)
				}
			}
		}
	}
	r.SearchedForSchool = true
	return out
}

func (s *Simulation) schoolDestination(r *agents.Resident, tick uint64) *world.Parcel {
	if r.IsStudent() {
		return r.School.Location()
	}
	home := r.Home()
	p := nearest(home, s.findSchools(r), s.rng)
	if p == nil {
		return home
	}

	var open []*world.School
	for _, st := range p.Structures {
		for _, sc := range st.Schools {
			if !sc.Students.CapacityReached() {
				open = append(open, sc)
			}
		}
	}
	if len(open) == 0 {
		return home
	}
	sc := open[s.rng.Intn(len(open))]
	if r.EnrollIn(sc, s.rng) {
		s.EmitEvent(tick, "school", "resident %d enrolled at school %d", r.ID, sc.ID)
	}
	return p
}

// formalShare is the chance an adult searches the formal sector: the
// formal share of jobs corrected for the 6-18 year olds who can only work
// informally.
func (s *Simulation) formalShare() float64 {
	p := s.Params
	formal := 1 - p.InformalityIndex
	informal := p.InformalityIndex - (p.PercentUnder19 - p.PercentUnder6)
	if formal+informal <= 0 {
		return 0
	}
	return formal / (formal + informal)
}

func (s *Simulation) employmentDestination(r *agents.Resident, tick uint64) *world.Parcel {
	home := r.Home()
	day := s.Clock.Day(tick)

	if r.IsEmployed() {
		p := r.Placement.Parcel()
		if p == nil {
			p = home
		}
		// A new hire starts the day after being found.
		pending := r.DayFoundEmployment != -1 && day-r.DayFoundEmployment < 1
		employed := r.Employment == agents.EmploymentFormal || r.Employment == agents.EmploymentInformal
		if !employed && !pending {
			r.Employment = r.Placement.Status()
			r.Income = agents.DrawIncome(r.Placement.Sector(), s.Params.InformalityIndex, s.Params.MaxMonthlyIncome, s.rng)
			r.DayFoundEmployment = -1
			s.EmitEvent(tick, "employment", "resident %d started %s work (%s)", r.ID, r.Employment, r.Placement.Kind)
		}
		return p
	}

	formal := r.Age >= s.Params.MinAgeFormalEmployment && s.rng.Float64() < s.formalShare()
	p := nearest(home, s.employmentParcels(home, formal), s.rng)
	if p == nil {
		r.Employment = agents.EmploymentSearching
		return home
	}
	r.DayFoundEmployment = day

	if openings := s.openPositions(p, formal); len(openings) > 0 {
		r.LaidOff = false
		r.Assign(openings[s.rng.Intn(len(openings))])
	}
	return p
}

// employmentParcels lists candidate workplaces within employment vision of
// home, widening from formal in-settlement employers to informal outside
// jobs until something has room. Outside jobs are represented by home.
func (s *Simulation) employmentParcels(home *world.Parcel, formal bool) []*world.Parcel {
	area := s.World.Within(home, s.Params.EmploymentVision)
	outside := s.World.Outside

	var out []*world.Parcel
	if formal {
		for _, p := range area {
			for _, e := range formalEmployers(p) {
				if !e.Staff().CapacityReached() {
					out = append(out, p)
				}
			}
		}
		if len(out) == 0 && !outside.Formal.Employees.CapacityReached() {
			out = append(out, home)
		}
		if len(out) > 0 {
			return out
		}
	}

	for _, p := range area {
		for _, st := range p.Structures {
			for _, b := range st.Businesses {
				if !b.Employees.CapacityReached() {
					out = append(out, p)
				}
			}
		}
	}
	if len(out) == 0 && !outside.Informal.Employees.CapacityReached() {
		out = append(out, home)
	}
	return out
}

// openPositions lists the placements with room for a searcher who reached
// p, in priority order: formal in the settlement, formal outside, informal
// businesses, informal outside. Only the first non-empty tier is returned.
func (s *Simulation) openPositions(p *world.Parcel, formal bool) []agents.Placement {
	outside := s.World.Outside
	var out []agents.Placement

	if formal {
		for _, st := range p.Structures {
			for _, sc := range st.Schools {
				if !sc.Employees.CapacityReached() {
					out = append(out, agents.AtSchool(sc))
				}
			}
			for _, h := range st.Health {
				if !h.Employees.CapacityReached() {
					out = append(out, agents.AtHealth(h))
				}
			}
			for _, f := range st.Religious {
				if !f.Employees.CapacityReached() {
					out = append(out, agents.AtReligious(f))
				}
			}
		}
		if len(out) > 0 {
			return out
		}
		if !outside.Formal.Employees.CapacityReached() {
			return []agents.Placement{agents.Outside(outside.Formal)}
		}
	}

	for _, st := range p.Structures {
		for _, b := range st.Businesses {
			if !b.Employees.CapacityReached() {
				out = append(out, agents.AtBusiness(b))
			}
		}
	}
	if len(out) == 0 && !outside.Informal.Employees.CapacityReached() {
		out = append(out, agents.Outside(outside.Informal))
	}
	return out
}

func formalEmployers(p *world.Parcel) []world.Employer {
	var out []world.Employer
	for _, st := range p.Structures {
		for _, sc := range st.Schools {
			out = append(out, sc)
		}
		for _, h := range st.Health {
			out = append(out, h)
		}
		for _, f := range st.Religious {
			out = append(out, f)
		}
	}
	return out
}

type socialCandidate struct {
	friend *agents.Resident
	weight float64
	dist   float64
	score  float64
}

// socializeDestination ranks the resident's ties outside the household by
// tie strength and closeness to home and visits one of the top tenth. The
// visit only happens if that friend is at home; otherwise the resident
// stays home.
func (s *Simulation) socializeDestination(r *agents.Resident) *world.Parcel {
	home := r.Home()

	var cands []socialCandidate
	sumWeight, sumDist := 0.0, 0.0
	for _, e := range s.Graph.Ties(r.ID) {
		f := s.ResidentIndex[e.Other(r.ID)]
		if f == nil || f.Household == r.Household {
			continue
		}
		d := f.Position.DistanceTo(home)
		cands = append(cands, socialCandidate{friend: f, weight: e.Weight, dist: d})
		sumWeight += e.Weight
		sumDist += d
	}
	if len(cands) == 0 {
		return home
	}

	for i := range cands {
		c := &cands[i]
		if sumWeight > 0 {
			c.score = 0.5 * c.weight / sumWeight
		}
		if sumDist > 0 {
			c.score += 0.5 * (1 - c.dist/sumDist)
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].friend.ID < cands[j].friend.ID
	})

	pool := max(1, len(cands)/10)
	friend := cands[s.rng.Intn(pool)].friend
	if friend.Goal != agents.GoalStayHome {
		return home
	}
	agents.SetFriend(r, friend)
	return friend.Home()
}

// religionDestination returns the resident's facility, choosing the nearest
// one of their faith on first attendance.
func (s *Simulation) religionDestination(r *agents.Resident) *world.Parcel {
	if r.ReligiousFacility != nil {
		return r.ReligiousFacility.Location()
	}
	home := r.Home()

	var faith world.Faith
	switch r.Religion {
	case agents.ReligionChristian:
		faith = world.FaithChurch
	case agents.ReligionMuslim:
		faith = world.FaithMosque
	default:
		return home
	}

	var parcels []*world.Parcel
	for _, f := range s.World.Religious {
		if f.Faith == faith {
			parcels = append(parcels, f.Location())
		}
	}
	p := nearest(home, parcels, s.rng)
	if p == nil {
		return home
	}

	var here []*world.ReligiousFacility
	for _, st := range p.Structures {
		for _, f := range st.Religious {
			if f.Faith == faith {
				here = append(here, f)
			}
		}
	}
	f := here[s.rng.Intn(len(here))]
	r.ReligiousFacility = f
	f.Attend(r.ID)
	return p
}

// rebelDestination is the congregation point with a fresh jitter on each
// axis, kept on the grid.
func (s *Simulation) rebelDestination() *world.Parcel {
	j := s.Params.RebelJitter
	x, y := s.Params.RebelCenterX, s.Params.RebelCenterY
	if j > 0 {
		x += s.rng.Intn(2*j+1) - j
		y += s.rng.Intn(2*j+1) - j
	}
	return s.World.Clamp(x, y)
}
