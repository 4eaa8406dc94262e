package engine

import (
	"github.com/talgya/kibera-unrest/internal/agents"
	"github.com/talgya/kibera-unrest/internal/world"
)

// stayingPeriod returns the tick at which the resident will be done with
// goal, counting from tick.
func (s *Simulation) stayingPeriod(r *agents.Resident, goal agents.Goal, tick uint64) uint64 {
	var period int
	switch goal {
	case agents.GoalWork:
		period = 6*60 + s.rng.Intn(4*60-2)
	case agents.GoalFindEmployment:
		period = 120 + s.rng.Intn(2*60-2)
	case agents.GoalWater:
		period = 10 + s.rng.Intn(50)
	case agents.GoalEducation:
		period = 7 * 60
	case agents.GoalSocialize:
		period = 60 + s.rng.Intn(60-2)
	case agents.GoalStayHome:
		period = 1
	case agents.GoalReligion:
		if r.Religion == agents.ReligionMuslim {
			period = 20 + s.rng.Intn(180)
		} else {
			period = 60 + s.rng.Intn(60)
		}
	case agents.GoalRebel:
		period = 60 + s.rng.Intn(360)
	}
	return tick + uint64(period)
}

// performArrivalEffects runs when a resident's activity at parcel p ends.
// Ties are strengthened with everyone in the goal's contact pool who is
// also at p pursuing their own goal there.
func (s *Simulation) performArrivalEffects(p *world.Parcel, r *agents.Resident, tick uint64) {
	var pool []agents.ResidentID

	switch r.Goal {
	case agents.GoalEducation:
		if r.Class != nil {
			pool = r.Class.Classmates()
		}
	case agents.GoalWork:
		if r.Placement.Parcel() != nil {
			pool = r.Placement.Employer.Staff().Members()
		}
	case agents.GoalFindEmployment:
		pool = s.compatibleNeighbors(p)
	case agents.GoalSocialize:
		if r.Friend != nil {
			pool = s.socializeContacts(r, p)
		}
	case agents.GoalWater:
		r.Household.AddWater(s.Params.WaterPerTrip)
	case agents.GoalRebel:
		for _, id := range p.Residents() {
			if o := s.ResidentIndex[id]; o != nil && o.Goal == agents.GoalRebel {
				pool = append(pool, id)
			}
		}
	case agents.GoalReligion:
		if f := r.ReligiousFacility; f != nil && len(f.Attendees()) > 0 {
			att := f.Attendees()
			pool = []agents.ResidentID{att[s.rng.Intn(len(att))]}
		}
	case agents.GoalStayHome:
		if s.Clock.WallMinute(tick) > 1019 {
			for _, m := range r.Household.Members {
				pool = append(pool, m.ID)
			}
		} else {
			pool = s.compatibleNeighbors(p)
		}
	}
	if len(pool) == 0 {
		return
	}

	inc := s.tieIncrement(r, tick)
	for _, id := range pool {
		if id == r.ID {
			continue
		}
		o := s.ResidentIndex[id]
		if o == nil || o.GoalLocation != p || o.Position != p {
			continue
		}
		s.Graph.Strengthen(r.ID, o.ID, inc)
	}
}

// tieIncrement is the fraction of a full day left in the resident's
// current activity, at least one minute. On the last tick of a truncated
// day the skipped night counts instead.
func (s *Simulation) tieIncrement(r *agents.Resident, tick uint64) float64 {
	var remaining uint64
	if r.StayUntil > tick {
		remaining = r.StayUntil - tick
	}
	mpd := s.Clock.MinutesPerDay
	if s.Clock.MinuteOfDay(tick) == mpd-1 && mpd < 1440 {
		remaining = uint64(1440 - mpd)
	}
	return float64(max(1, remaining)) / 1440
}

// compatibleNeighbors lists the residents on p whose goal keeps them around
// the neighborhood.
func (s *Simulation) compatibleNeighbors(p *world.Parcel) []agents.ResidentID {
	var out []agents.ResidentID
	for _, id := range p.Residents() {
		o := s.ResidentIndex[id]
		if o == nil {
			continue
		}
		switch o.Goal {
		case agents.GoalFindEmployment, agents.GoalWork, agents.GoalStayHome,
			agents.GoalSocialize, agents.GoalRebel:
			out = append(out, id)
		}
	}
	return out
}

// socializeContacts is the friend being visited plus the friend's own ties
// who are present at p.
func (s *Simulation) socializeContacts(r *agents.Resident, p *world.Parcel) []agents.ResidentID {
	friend := r.Friend
	out := []agents.ResidentID{friend.ID}
	for _, id := range s.Graph.Neighbors(friend.ID) {
		if id == r.ID {
			continue
		}
		if o := s.ResidentIndex[id]; o != nil && o.Position == p {
			out = append(out, id)
		}
	}
	return out
}
