// Population spawning: creates households with demographics drawn from
// survey shares and moves each into a free home.
package agents

import (
	"math"
	"math/rand"

	"github.com/talgya/kibera-unrest/internal/world"
)

// SpawnConfig controls initial population generation.
type SpawnConfig struct {
	InitialEnergy         float64
	AggressionRate        float64
	UniformAggressionRate bool // false = each resident draws a rate from U[0,1)
	WaterPerPerson        float64

	// Labor market at spawn. Without survey shares everyone six or over
	// starts out searching.
	UseEmploymentStats bool
	InformalityIndex   float64
	PercentUnder6      float64

	AdultEquivUnder5    float64
	AdultEquiv5to14     float64
	AdultEquiv15AndOver float64
}

// Survey shares used when drawing residents.
const (
	householdSizeMean = 3.55
	householdSizeSD   = 1.61
	shareAdult        = 0.25 // Of non-head members
	shareUnder6       = 0.32 // Of non-head members
	shareMale         = 0.613
	shareChristian    = 0.825
)

// Labor-force shares by gender: working, searching, inactive. The rest are
// unknown and count as searching.
var laborShares = [2][3]float64{
	GenderMale:   {0.6, 0.079, 0.271},
	GenderFemale: {0.41, 0.096, 0.431},
}

var (
	ethnicities = [...]string{
		"kikuyu", "luhya", "luo", "kalinjin", "kamba", "kisii",
		"meru", "mijikenda", "maasai", "turkana", "embu", "other",
	}
	ethnicShares = [...]float64{0.21, 0.14, 0.12, 0.12, 0.12, 0.06, 0.05, 0.05, 0.02, 0.01, 0.01, 0.09}
)

// Spawner creates households and residents for the simulation.
type Spawner struct {
	rng    *rand.Rand
	nextID ResidentID
	cfg    SpawnConfig
}

// NewSpawner creates a spawner with the given seed.
func NewSpawner(seed int64, cfg SpawnConfig) *Spawner {
	return &Spawner{
		rng:    rand.New(rand.NewSource(seed + 300)),
		nextID: 1,
		cfg:    cfg,
	}
}

// SpawnPopulation creates households until the resident target is reached
// or the homes run out. Households move into homes in random order.
func (s *Spawner) SpawnPopulation(target int, homes []*world.Home) ([]*Household, []*Resident) {
	var households []*Household
	var residents []*Resident

	order := s.rng.Perm(len(homes))
	next := 0

	for len(residents) < target {
		var home *world.Home
		for next < len(order) && home == nil {
			if h := homes[order[next]]; !h.Occupied {
				home = h
			}
			next++
		}
		if home == nil {
			break
		}
		home.Occupied = true

		hh := &Household{
			ID:        len(households) + 1,
			Home:      home,
			Ethnicity: s.ethnicity(),
		}
		religion := ReligionMuslim
		if s.rng.Float64() < shareChristian {
			religion = ReligionChristian
		}

		size := s.householdSize()
		for j := 0; j < size; j++ {
			r := s.spawnOne(hh, religion, j == 0)
			hh.Members = append(hh.Members, r)
			residents = append(residents, r)
		}
		hh.RemainingWater = s.cfg.WaterPerPerson * float64(len(hh.Members))
		households = append(households, hh)
	}

	return households, residents
}

func (s *Spawner) spawnOne(hh *Household, religion Religion, head bool) *Resident {
	id := s.nextID
	s.nextID++

	age := s.age(head)
	gender := GenderFemale
	if s.rng.Float64() < shareMale {
		gender = GenderMale
	}

	status := s.employmentStatus(age, gender)

	rate := s.cfg.AggressionRate
	if !s.cfg.UniformAggressionRate {
		rate = s.rng.Float64()
	}

	home := hh.Home.Parcel()
	r := &Resident{
		ID:                 id,
		Age:                age,
		Gender:             gender,
		Ethnicity:          hh.Ethnicity,
		Religion:           religion,
		ChurchSlot:         s.rng.Intn(4),
		AdultEquivalent:    s.adultEquivalent(age),
		Household:          hh,
		Employment:         status,
		Identity:           IdentityDomestic,
		Goal:               GoalStayHome,
		SchoolEligible:     age >= 3 && age <= 18,
		GoalLocation:       home,
		Energy:             s.cfg.InitialEnergy,
		AggressionRate:     rate,
		DayFoundEmployment: -1,
	}
	r.MoveTo(home)
	return r
}

// employmentStatus draws a starting status. With survey shares, school-age
// residents are inactive and look for a school first; adults split into
// working (formal or informal by the informality index), searching and
// inactive, with the inactive share reduced by the under-six share.
func (s *Spawner) employmentStatus(age int, gender Gender) Employment {
	if !s.cfg.UseEmploymentStats {
		if age < 6 {
			return EmploymentInactive
		}
		return EmploymentSearching
	}
	if age <= 18 {
		return EmploymentInactive
	}

	sh := laborShares[gender]
	working, searching := sh[0], sh[1]
	inactive := sh[2] - s.cfg.PercentUnder6
	total := 1 - s.cfg.PercentUnder6
	informal := working * s.cfg.InformalityIndex
	formal := working - informal

	rn := s.rng.Float64() * total
	switch {
	case rn < formal:
		return EmploymentFormal
	case rn < formal+informal:
		return EmploymentInformal
	case rn < formal+informal+searching:
		return EmploymentSearching
	case rn < formal+informal+searching+inactive:
		return EmploymentInactive
	}
	return EmploymentSearching
}

// householdSize draws from a lognormal fitted to the survey mean and
// deviation. Every household has at least one member.
func (s *Spawner) householdSize() int {
	m, sd := householdSizeMean, householdSizeSD
	mu := math.Log(m * m / math.Sqrt(sd*sd+m*m))
	sigma := math.Sqrt(math.Log(1 + sd*sd/(m*m)))
	return max(1, int(math.Exp(mu+sigma*s.rng.NormFloat64())))
}

func (s *Spawner) age(head bool) int {
	if head {
		return 18 + s.rng.Intn(42)
	}
	rn := s.rng.Float64()
	switch {
	case rn <= shareAdult:
		return 18 + s.rng.Intn(62)
	case rn <= shareAdult+shareUnder6:
		return s.rng.Intn(6)
	default:
		return 6 + s.rng.Intn(12)
	}
}

func (s *Spawner) ethnicity() string {
	rn := s.rng.Float64()
	cumulative := 0.0
	for i, share := range ethnicShares {
		cumulative += share
		if rn < cumulative {
			return ethnicities[i]
		}
	}
	return ethnicities[len(ethnicities)-1]
}

func (s *Spawner) adultEquivalent(age int) float64 {
	switch {
	case age < 5:
		return s.cfg.AdultEquivUnder5
	case age < 15:
		return s.cfg.AdultEquiv5to14
	default:
		return s.cfg.AdultEquiv15AndOver
	}
}
