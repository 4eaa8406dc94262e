package engine

import (
	"github.com/talgya/kibera-unrest/internal/agents"
	"github.com/talgya/kibera-unrest/internal/world"
)

// Largest forward step per axis in one tick. Backward steps are one parcel.
const maxStride = 6

// move advances a resident one tick: idle while the current activity runs,
// pick the next goal when it ends, otherwise walk one step along the route.
func (s *Simulation) move(r *agents.Resident, tick uint64) {
	if r.GoalLocation == nil {
		return
	}

	if r.Position == r.GoalLocation {
		if tick < r.StayUntil {
			return
		}
		s.performArrivalEffects(r.GoalLocation, r, tick)
		s.determineBehavior(r, tick)
		r.Route = nil
	} else if len(r.Route) == 0 {
		r.Route = s.planRoute(r.Position, r.GoalLocation)
	}

	subgoal := r.GoalLocation
	if len(r.Route) > 0 {
		if r.Route[0] == r.Position {
			r.Route = r.Route[1:]
		}
		if len(r.Route) > 0 {
			subgoal = r.Route[0]
		}
	}
	if next := s.nextTile(r.Position, subgoal); next != r.Position {
		r.MoveTo(next)
	}
}

// planRoute returns the road route between the road nodes closest to from
// and to, followed by the destination itself.
func (s *Simulation) planRoute(from, to *world.Parcel) []*world.Parcel {
	roads := s.World.Roads
	route := roads.Route(roads.ClosestNode(from), roads.ClosestNode(to))
	return append(route, to)
}

// nextTile takes one axis-aligned step from pos toward subgoal, preferring
// a road parcel when both axes need to move.
func (s *Simulation) nextTile(pos, subgoal *world.Parcel) *world.Parcel {
	mx := stride(subgoal.Coord.X - pos.Coord.X)
	my := stride(subgoal.Coord.Y - pos.Coord.Y)

	xmove := s.World.Clamp(pos.Coord.X+mx, pos.Coord.Y)
	ymove := s.World.Clamp(pos.Coord.X, pos.Coord.Y+my)

	switch {
	case mx == 0:
		return ymove
	case my == 0:
		return xmove
	case xmove.Road == ymove.Road:
		if s.rng.Intn(2) == 0 {
			return xmove
		}
		return ymove
	case xmove.Road:
		return xmove
	}
	return ymove
}

func stride(d int) int {
	switch {
	case d < 0:
		return -1
	case d < maxStride:
		return d
	}
	return maxStride
}
