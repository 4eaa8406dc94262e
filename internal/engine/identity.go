package engine

import "github.com/talgya/kibera-unrest/internal/agents"

// evaluateIdentity assigns the resident's identity from their current
// situation and reports whether its standard is met. The first matching
// rule wins.
func (s *Simulation) evaluateIdentity(r *agents.Resident, tick uint64) bool {
	prev := r.Identity
	id, met := s.identityFor(r)
	r.Identity = id
	if id == agents.IdentityRebel && prev != agents.IdentityRebel {
		s.EmitEvent(tick, "rebellion", "resident %d joined the rebellion", r.ID)
	}
	return met
}

func (s *Simulation) identityFor(r *agents.Resident) (agents.Identity, bool) {
	switch {
	case r.Age < 6 && !r.IsStudent():
		return agents.IdentityDomestic, true
	case r.InitialRebel && s.Params.RemainRebel:
		return agents.IdentityRebel, true
	case r.Goal == agents.GoalRebel:
		return agents.IdentityRebel, true
	case r.Employment == agents.EmploymentFormal || r.Employment == agents.EmploymentInformal:
		// A placement found today only counts once the job starts.
		return agents.IdentityEmployer, true
	case r.IsStudent():
		return agents.IdentityStudent, true
	case r.SearchedForSchool:
		// Looked for a school and found none.
		return agents.IdentityDomestic, false
	case r.Employment == agents.EmploymentSearching:
		return agents.IdentityDomestic, false
	case r.Employment == agents.EmploymentInactive:
		return agents.IdentityDomestic, r.Household.Discrepancy >= 0
	}
	return r.Identity, true
}

// updateEnergy applies the identity outcome for the time spent in the goal
// that just ended, at a rate scaled by household happiness.
func (s *Simulation) updateEnergy(r *agents.Resident, met bool) {
	rate := agents.HappinessScaledRate(s.Params.EnergyRateOfChange, r.Household.Happiness())
	r.UpdateEnergy(met, agents.EnergyDelta(rate, r.TimeInGoal, s.Clock.MinutesPerDay))
}
