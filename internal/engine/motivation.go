// Motivation: activity windows, per-goal scores and goal selection.
package engine

import (
	"github.com/talgya/kibera-unrest/internal/agents"
)

// windows records which activity windows are open for a resident at one
// tick. Work, search, school and socialize bounds are redrawn every call.
type windows struct {
	work      bool
	search    bool
	school    bool
	socialize bool
	church    bool
	mosque    bool
	water     bool
}

// Church services by slot, wall-clock minutes, open interval.
var churchServices = [4][2]int{{420, 480}, {540, 600}, {660, 720}, {1080, 1140}}

// Mosque prayer periods, wall-clock minutes, open intervals.
var mosquePrayers = [3][2]int{{300, 360}, {720, 840}, {900, 1020}}

func (s *Simulation) drawWindows(r *agents.Resident, tick uint64) windows {
	m := s.Clock.MinuteOfDay(tick)
	off := s.Clock.Offset
	weekday := s.Clock.IsWeekday(tick)
	var w windows

	// Work: informal any day, formal on weekdays only.
	start := 300 + s.rng.Intn(120) - off
	end := 600 + s.rng.Intn(120) - off
	if m >= start && m <= end {
		w.work = r.Employment == agents.EmploymentInformal ||
			(r.Employment == agents.EmploymentFormal && weekday)
	}

	start = 480 + s.rng.Intn(120) - off
	end = 960 + s.rng.Intn(120) - off
	w.search = m >= start && m <= end

	w.school = weekday && m == 420+s.rng.Intn(120)-off

	// Evening socializing for those busy during the day, otherwise any
	// time from mid-morning.
	busy := (r.IsStudent() && weekday) ||
		(r.Employment == agents.EmploymentFormal && weekday && r.Goal != agents.GoalWork) ||
		(r.Employment == agents.EmploymentInformal && r.Goal != agents.GoalWork)
	if busy {
		start = 1020 + s.rng.Intn(60) - off
	} else {
		start = 540 + s.rng.Intn(480) - off
	}
	end = 1140 + s.rng.Intn(60) - off
	w.socialize = m >= start && m <= end

	wall := m + off
	if r.ChurchSlot >= 0 && r.ChurchSlot < len(churchServices) {
		svc := churchServices[r.ChurchSlot]
		w.church = wall > svc[0] && wall < svc[1]
	}
	for _, pr := range mosquePrayers {
		if wall > pr[0] && wall < pr[1] {
			w.mosque = true
		}
	}
	w.water = wall >= 420 && wall <= 1080
	return w
}

// goalScores holds one score per goal. Every score is in [0,1].
type goalScores struct {
	Home      float64
	School    float64
	Work      float64
	Socialize float64
	Search    float64
	Religion  float64
	Water     float64
	Rebel     float64
}

// ordered returns the scores in goal declaration order.
func (g goalScores) ordered() [agents.NumGoals]float64 {
	return [agents.NumGoals]float64{
		agents.GoalStayHome:       g.Home,
		agents.GoalEducation:      g.School,
		agents.GoalWork:           g.Work,
		agents.GoalSocialize:      g.Socialize,
		agents.GoalFindEmployment: g.Search,
		agents.GoalReligion:       g.Religion,
		agents.GoalWater:          g.Water,
		agents.GoalRebel:          g.Rebel,
	}
}

// scoreGoals evaluates every goal for the resident. Some scoring rules
// change resident state as they go (layoffs, leaving school, becoming
// inactive); the order of evaluation is part of the model.
func (s *Simulation) scoreGoals(r *agents.Resident, tick uint64, w windows) goalScores {
	var g goalScores
	need := r.Household.Discrepancy

	if w.work {
		g.Work = s.workScore(r, tick)
	}
	if w.school {
		g.School = s.schoolScore(r, need)
	}
	if w.search && g.Work == 0 {
		g.Search = s.searchScore(r, tick, need)
	}
	if g.Work == 0 && g.Search == 0 {
		g.Religion = s.religionScore(r, tick, w)
	}
	g.Home = s.homeScore(r, g)
	if w.water && r.AtHome() && g.Home > 0 {
		g.Water = s.waterScore(r, w)
	}
	if w.socialize && g.Home > 0 {
		g.Socialize = s.socializeScore(r)
	}
	g.Rebel = s.rebelIntensity(r, tick)
	return g
}

// selectGoal scores the goals, weights each score by a shuffled uniform
// draw and picks the strict maximum, earlier goals winning ties.
func (s *Simulation) selectGoal(r *agents.Resident, tick uint64) agents.Goal {
	w := s.drawWindows(r, tick)
	scores := s.scoreGoals(r, tick, w).ordered()

	var activ [agents.NumGoals]float64
	for i := range activ {
		activ[i] = s.rng.Float64()
	}
	s.rng.Shuffle(len(activ), func(i, j int) { activ[i], activ[j] = activ[j], activ[i] })

	best := agents.GoalStayHome
	bestWeight := scores[0] * activ[0]
	for i := 1; i < agents.NumGoals; i++ {
		if wt := scores[i] * activ[i]; wt > bestWeight {
			best = agents.Goal(i)
			bestWeight = wt
		}
	}

	if best == agents.GoalFindEmployment {
		r.Employment = agents.EmploymentSearching
	}
	old := r.Goal
	r.Goal = best
	r.ChangedGoal = best != old
	return best
}

func (s *Simulation) workScore(r *agents.Resident, tick uint64) float64 {
	employed := r.Employment == agents.EmploymentFormal || r.Employment == agents.EmploymentInformal
	if !employed || !r.IsEmployed() {
		return 0
	}
	score := 0.8 + 0.2*s.rng.Float64()
	if s.rng.Float64() < s.Params.LayoffProbability && s.Params.Features.CanResidentsBeLaidOff {
		s.EmitEvent(tick, "layoff", "resident %d laid off by %s employer", r.ID, r.Placement.Kind)
		r.Terminate()
		r.Employment = agents.EmploymentSearching
		r.Income = 0
		r.LaidOff = true
		return 0
	}
	return score
}

func (s *Simulation) searchScore(r *agents.Resident, tick uint64, need float64) float64 {
	f := s.Params.Features
	employed := r.Employment == agents.EmploymentFormal || r.Employment == agents.EmploymentInformal
	// With the household-need switch off, need never gates a search.
	short := !f.HouseholdNeedImpactsBehavior || need < 0

	switch {
	case r.Employment == agents.EmploymentSearching, r.LaidOff:
		return 0.8 + 0.2*s.rng.Float64()

	case r.SchoolEligible && !employed && !r.IsStudent() && f.SchoolEligibleSearchForEmployment && r.Age > 5:
		if !short {
			return 0
		}
		return 0.8 + 0.2*s.rng.Float64()

	case r.Employment == agents.EmploymentInactive && !r.IsStudent() && r.Age > 5 && f.InactiveResidentsSearch:
		if !short {
			return 0
		}
		r.Household.RemovedFromInactive = true
		r.Household.LeftInactiveAt = tick
		return 0.8 + 0.2*s.rng.Float64()

	case r.IsStudent() && f.StudentsLeaveSchoolToSearch && r.Age > 5:
		if !short {
			return 0
		}
		s.EmitEvent(tick, "school", "resident %d left school %d to look for work", r.ID, r.School.ID)
		r.LeaveSchool()
		r.Household.RemovedFromSchool = true
		r.Household.LeftSchoolAt = tick
		return 0.8 + 0.2*s.rng.Float64()
	}
	return 0
}

func (s *Simulation) schoolScore(r *agents.Resident, need float64) float64 {
	if r.IsStudent() {
		return 0.8 + 0.2*s.rng.Float64()
	}
	f := s.Params.Features
	employed := r.Employment == agents.EmploymentFormal || r.Employment == agents.EmploymentInformal
	if !r.SchoolEligible || employed || !f.SchoolEligibleStudentsSearchForSchool {
		return 0
	}
	if f.HouseholdNeedImpactsBehavior && need <= 0 {
		return 0
	}
	if len(s.findSchools(r)) == 0 {
		return 0
	}
	r.Employment = agents.EmploymentInactive
	r.LaidOff = false
	r.Household.RemovedFromSchool = false
	r.SearchedForSchool = false
	return 0.8 + 0.2*s.rng.Float64()
}

func (s *Simulation) religionScore(r *agents.Resident, tick uint64, w windows) float64 {
	score := 0.0
	if s.rng.Float64() < s.Params.ChristianAttendanceChance && r.Religion == agents.ReligionChristian &&
		s.Clock.IsSunday(tick) && w.church && !r.AttendedReligiousFacility {
		score = 0.6 + 0.4*s.rng.Float64()
		r.AttendedReligiousFacility = true
	}
	// Muslims attend when the draw exceeds the cutoff.
	if r.Religion == agents.ReligionMuslim && s.rng.Float64() > s.Params.MuslimAttendanceCutoff &&
		!r.AttendedReligiousFacility && w.mosque {
		score = 0.6 + 0.4*s.rng.Float64()
		r.AttendedReligiousFacility = true
	}
	return score
}

func (s *Simulation) homeScore(r *agents.Resident, g goalScores) float64 {
	if r.Energy == 0 && r.Employment == agents.EmploymentSearching && r.Household.Discrepancy > 0 {
		r.Employment = agents.EmploymentInactive
		return 1
	}
	if g.School == 0 && g.Work == 0 && g.Socialize == 0 && g.Religion == 0 && g.Search == 0 {
		return 1
	}
	return 0
}

// waterScore sends a member for water when the home is short. Members free
// during the day go first; working or studying members go only outside
// their own hours, and only when nobody else at home is free.
func (s *Simulation) waterScore(r *agents.Resident, w windows) float64 {
	hh := r.Household
	if r.Age <= 15 || r.Goal != agents.GoalStayHome || !hh.NeedsWater(s.Params.WaterRequirement) {
		return 0
	}
	for _, m := range hh.Members {
		if m.Goal == agents.GoalWater {
			return 0
		}
	}
	if !r.IsEmployed() && !r.IsStudent() {
		return 1
	}
	for _, m := range hh.Members {
		if m != r && !m.IsEmployed() && !m.IsStudent() {
			return 0
		}
	}
	if r.IsEmployed() && !w.work {
		return 1
	}
	if r.IsStudent() && !w.school {
		return 1
	}
	return 0
}

func (s *Simulation) socializeScore(r *agents.Resident) float64 {
	if r.Age <= 5 {
		return 0
	}
	if s.rng.Float64() < 0.5 && r.Goal == agents.GoalStayHome && !r.SocializedToday {
		return 0.4 + 0.6*s.rng.Float64()
	}
	return 0
}
