// Energy reservoir and aggression. Energy rises while a resident meets the
// standard of their identity and drains while they fail to; aggression is a
// logistic function of the remaining energy.
package agents

import (
	"math"
	"math/rand"

	"golang.org/x/exp/constraints"

	"github.com/talgya/kibera-unrest/internal/world"
)

const (
	MaxEnergy = 100.0
	MinEnergy = 0.0

	// aggressionSlope spreads the logistic curve over the energy range.
	aggressionSlope = 20.0 / (MaxEnergy - MinEnergy + 1)
)

// HappinessScaledRate adjusts a personal rate by household happiness:
// ×4/3 at happiness 1 and ×5/3 at happiness 2.
func HappinessScaledRate(rate float64, happiness int) float64 {
	switch happiness {
	case 1:
		return rate * 4 / 3
	case 2:
		return rate * 5 / 3
	}
	return rate
}

// EnergyDelta is the change in energy for minutes spent in the goal that
// just ended.
func EnergyDelta(rate float64, minutes uint64, minutesPerDay int) float64 {
	return rate * float64(minutes) / float64(minutesPerDay)
}

// UpdateEnergy moves the reservoir up when the identity standard was met
// and down when it was not. Rebels neither gain nor lose energy.
func (r *Resident) UpdateEnergy(met bool, delta float64) {
	if r.Identity == IdentityRebel {
		delta = 0
	}
	if met {
		r.Energy = clamp(r.Energy+delta, MinEnergy, MaxEnergy)
	} else {
		r.Energy = clamp(r.Energy-delta, MinEnergy, MaxEnergy)
	}
}

// Aggression maps energy to [0,1]: low energy gives a low value, which is
// the regime where rebellion becomes possible.
func Aggression(energy, rate float64) float64 {
	mid := (MaxEnergy-MinEnergy)/2 + MinEnergy
	x := aggressionSlope * (energy - mid)
	return 1 / (1 + math.Exp(-rate*x))
}

// DrawIncome samples a monthly income for a sector from the settlement's
// Lorenz curve. Informal earners sample the lower part of the curve.
func DrawIncome(sector world.Sector, informality, maxIncome float64, rng *rand.Rand) float64 {
	var x float64
	if sector == world.SectorInformal {
		x = rng.Float64() * informality
	} else {
		x = informality + rng.Float64()*(1-informality)
	}
	y := 1.7148*x*x*x - 1.0446*x*x + 0.3259*x
	return maxIncome * y
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
