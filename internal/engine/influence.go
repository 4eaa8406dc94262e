// Social influence: whether a resident's network pulls them into rebellion.
// Opinions follow a one-step structural influence model where each tie's
// pull is its structural similarity to the resident, weighted by how
// susceptible the tie is given its degree.
package engine

import (
	"math"

	"github.com/talgya/kibera-unrest/internal/agents"
)

// rebelIntensity returns 1 when the resident is drawn to rebel this tick
// and 0 otherwise. It also refreshes the resident's aggression.
func (s *Simulation) rebelIntensity(r *agents.Resident, tick uint64) float64 {
	p := s.Params
	tNew := p.TimeNewRumor()
	newRegime := p.PropagateNewRumor && tick > tNew

	if r.InitialRebel && p.RemainRebel && (tick <= tNew || p.RemainRebelAfterNewRumor) {
		return 1
	}

	w := 0.0
	if r.HeardRumor && (!p.PropagateNewRumor || p.ContinuePropagateOriginalRumor || tick <= tNew) {
		rate := agents.HappinessScaledRate(r.AggressionRate, r.Household.Happiness())
		r.Aggression = agents.Aggression(r.Energy, rate)
		if r.Aggression < p.AggressionThreshold && r.Age >= 5 && s.hasRebelTie(r) {
			w = s.influence(r, newRegime)
		}
	}
	// The counter rumor can pull an existing rebel back.
	if newRegime && r.HeardNewRumor && r.Identity == agents.IdentityRebel && len(r.Neighbors) > 0 {
		w = s.influence(r, newRegime)
	}
	return w
}

func (s *Simulation) hasRebelTie(r *agents.Resident) bool {
	for _, id := range r.Neighbors {
		if n := s.ResidentIndex[id]; n != nil && n.Identity == agents.IdentityRebel {
			return true
		}
	}
	return false
}

// tieShares describes the make-up of someone's ties: the share held by each
// identity and the share sharing their ethnicity.
type tieShares struct {
	identity [agents.NumIdentities]float64
	ethnic   float64
}

func (s *Simulation) sharesOf(ethnicity string, ties []agents.ResidentID) tieShares {
	var sh tieShares
	n := 0
	for _, id := range ties {
		o := s.ResidentIndex[id]
		if o == nil {
			continue
		}
		n++
		sh.identity[o.Identity]++
		if o.Ethnicity == ethnicity {
			sh.ethnic++
		}
	}
	if n == 0 {
		return sh
	}
	for i := range sh.identity {
		sh.identity[i] /= float64(n)
	}
	sh.ethnic /= float64(n)
	return sh
}

// shareSimilarity is 1 − |a−b|/max(a,b), and 1 when both are zero.
func shareSimilarity(a, b float64) float64 {
	m := math.Max(a, b)
	if m == 0 {
		return 1
	}
	return 1 - math.Abs(a-b)/m
}

// structuralSimilarity weighs identity make-up and ethnic make-up equally.
func structuralSimilarity(a, b tieShares) float64 {
	ident := 0.0
	for i := range a.identity {
		ident += shareSimilarity(a.identity[i], b.identity[i])
	}
	ident /= float64(len(a.identity))
	return 0.5*ident + 0.5*shareSimilarity(a.ethnic, b.ethnic)
}

// susceptibility grows with degree relative to twice the network's mean.
func susceptibility(degree int, meanDegree float64) float64 {
	return math.Sqrt(1 - 1/(1+math.Exp(-(float64(degree)-2*meanDegree))))
}

// influence computes the resident's final opinion and checks which ties
// hold an opinion close to it. A close rebel who heard the rumor flips the
// outcome to 1; in the counter-rumor regime a close non-rebel who heard the
// counter rumor flips it to 0. Later ties override earlier ones.
func (s *Simulation) influence(r *agents.Resident, newRegime bool) float64 {
	ties := r.Neighbors
	if len(ties) == 0 {
		return 0
	}
	mean := s.Graph.MeanDegree()
	mine := s.sharesOf(r.Ethnicity, ties)

	sims := make([]float64, len(ties))
	weights := make([]float64, len(ties))
	total := 0.0
	for i, id := range ties {
		n := s.ResidentIndex[id]
		if n == nil {
			continue
		}
		theirs := s.Graph.Neighbors(id)
		sims[i] = structuralSimilarity(mine, s.sharesOf(n.Ethnicity, theirs))
		weights[i] = susceptibility(len(theirs), mean)
		total += weights[i]
	}

	self := susceptibility(len(ties), mean)
	opinion := 1 - self
	if total > 0 {
		for i := range ties {
			opinion += weights[i] / total * self * sims[i]
		}
	}

	out := 0.0
	for i, id := range ties {
		if math.Abs(opinion-sims[i]) > s.Params.OpinionThreshold {
			continue
		}
		n := s.ResidentIndex[id]
		if n == nil {
			continue
		}
		if n.HeardRumor && n.Identity == agents.IdentityRebel {
			out = 1
		}
		if newRegime && n.HeardNewRumor && n.Identity != agents.IdentityRebel {
			out = 0
		}
	}
	return out
}
