package engine

import (
	"log/slog"

	"github.com/talgya/kibera-unrest/internal/agents"
)

// seedRumor lets a random set of residents hear the rumor at the start of
// the run. When initial rebels are enabled, the first hearers aged six or
// over take to the streets at once. A second random set hears the counter
// rumor, which only spreads once its time comes.
func (s *Simulation) seedRumor() {
	n := len(s.Residents)
	if n == 0 {
		return
	}
	p := s.Params

	rebels := 0
	if p.Features.CreateRebelsAtInitialization {
		rebels = int(p.ProportionInitialRebel*float64(p.NumResidentsHearRumor)) + 1
	}

	made := 0
	for _, i := range s.rng.Perm(n)[:min(p.NumResidentsHearRumor, n)] {
		r := s.Residents[i]
		r.HeardRumor = true
		if made >= rebels || r.Age < 6 {
			continue
		}
		r.InitialRebel = true
		r.Goal = agents.GoalRebel
		r.Identity = agents.IdentityRebel
		r.Employment = agents.EmploymentInactive
		r.Terminate()
		r.LeaveSchool()
		s.EmitEvent(0, "rebellion", "resident %d is an initial rebel", r.ID)
		made++
	}

	for _, i := range s.rng.Perm(n)[:min(p.NumResidentsHearNewRumor, n)] {
		s.Residents[i].HeardNewRumor = true
	}

	slog.Info("rumor seeded",
		"heard", min(p.NumResidentsHearRumor, n),
		"initial_rebels", made,
		"heard_counter_rumor", min(p.NumResidentsHearNewRumor, n),
	)
}

// propagateRumor passes whatever the resident has heard to random residents
// on the same parcel. The original rumor stops spreading once the counter
// rumor takes over, unless configured to continue.
func (s *Simulation) propagateRumor(r *agents.Resident, tick uint64) {
	if !r.HeardRumor && !r.HeardNewRumor {
		return
	}
	here := r.Position.Residents()
	if len(here) == 0 {
		return
	}
	p := s.Params
	tNew := p.TimeNewRumor()

	for i := 0; i < p.NumResidentsSpreadRumorTo; i++ {
		o := s.ResidentIndex[here[s.rng.Intn(len(here))]]
		if o == nil || o == r {
			continue
		}
		if r.HeardRumor && (tick <= tNew || !p.PropagateNewRumor || p.ContinuePropagateOriginalRumor) && !o.HeardRumor {
			o.HeardRumor = true
			s.EmitEvent(tick, "rumor", "resident %d heard the rumor from %d", o.ID, r.ID)
		}
		if r.HeardNewRumor && tick > tNew && p.PropagateNewRumor {
			o.HeardNewRumor = true
		}
	}
}
