package engine

import "github.com/talgya/kibera-unrest/internal/agents"

// stepResident runs one resident for one tick.
func (s *Simulation) stepResident(r *agents.Resident, tick uint64) {
	if s.Clock.MinuteOfDay(tick) == 0 {
		if r.AtHome() {
			r.Household.ConsumeWater(s.Params.WaterRequirement)
		}
		r.SocializedToday = false
		r.Neighbors = s.Graph.Neighbors(r.ID)
	}

	if r.ChangedGoal {
		r.TimeInGoal = tick - r.GoalStart
		r.GoalStart = tick
		if s.Params.Features.RumorSpreads {
			s.propagateRumor(r, tick)
		}
		met := s.evaluateIdentity(r, tick)
		s.updateEnergy(r, met)
		r.ChangedGoal = false
	}

	s.move(r, tick)

	if s.Clock.DayOfWeek(tick) == 1 {
		r.AttendedReligiousFacility = false
	}
}

// determineBehavior picks what to do next once an activity ends. Only at
// home does a resident choose a new goal; elsewhere they head home first.
func (s *Simulation) determineBehavior(r *agents.Resident, tick uint64) {
	home := r.Home()
	switch {
	case r.Position == home:
		goal := s.selectGoal(r, tick)
		r.GoalLocation = s.resolveDestination(r, goal, tick)
		r.StayUntil = s.stayingPeriod(r, goal, tick)
	case r.Position == r.GoalLocation:
		if r.Goal != agents.GoalStayHome {
			r.ChangedGoal = true
		}
		r.Goal = agents.GoalStayHome
		r.GoalLocation = home
		r.StayUntil = s.stayingPeriod(r, agents.GoalStayHome, tick)
	default:
		r.GoalLocation = home
	}
}
