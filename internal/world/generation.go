// Settlement generation using layered simplex noise.
// A density field decides where structures go; roads run on a regular grid
// and facilities are scattered over the built-up parcels.
package world

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds settlement generation parameters.
type GenConfig struct {
	Width       int
	Height      int
	Seed        int64 // 0 = random
	RoadSpacing int   // Parcels between parallel roads

	DensityThreshold float64 // Minimum density noise for a structure
	HomeChance       float64 // Chance a structure holds homes
	HomesPer         int
	BusinessChance   float64 // Chance a structure holds businesses
	BusinessesPer    int
	BusinessCapacity int

	Schools          int
	SchoolCapacity   int
	SchoolStaff      int
	ClassSize        int
	HealthFacilities int
	HealthStaff      int
	Churches         int
	Mosques          int
	ReligiousStaff   int
	WaterPoints      int

	FormalOutsideCapacity   int
	InformalOutsideCapacity int

	ProbElectricity float64
	ProbWater       float64
	ProbSanitation  float64
	ElectricCost    float64 // Monthly cost for connected homes
}

// Monthly rent bands and the share of homes in each band.
var (
	rentBands = [...]float64{
		117.14, 234.27, 351.41, 468.54, 585.68, 702.81, 819.95, 937.08, 1054.22, 1171.35,
		1288.49, 1405.62, 1522.76, 1639.89, 1757.03, 1874.17, 1991.30, 2108.44, 2225.57, 2342.71,
	}
	rentShares = [...]float64{
		0.0093, 0.0674, 0.1814, 0.1953, 0.2116, 0.1081, 0.0907, 0.0360, 0.0244, 0.0186,
		0.0140, 0.0093, 0.0070, 0.0023, 0.0128, 0.0035, 0.0012, 0.0035, 0.0012, 0.0023,
	}
)

// DefaultGenConfig returns a settlement roughly the size of the study area.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:       340,
		Height:      200,
		RoadSpacing: 12,

		DensityThreshold: 0.45,
		HomeChance:       0.86,
		HomesPer:         5,
		BusinessChance:   0.13,
		BusinessesPer:    3,
		BusinessCapacity: 3,

		Schools:          40,
		SchoolCapacity:   230,
		SchoolStaff:      10,
		ClassSize:        23,
		HealthFacilities: 12,
		HealthStaff:      8,
		Churches:         60,
		Mosques:          12,
		ReligiousStaff:   3,
		WaterPoints:      80,

		FormalOutsideCapacity:   11195,
		InformalOutsideCapacity: 5583,

		ProbElectricity: 0.6329,
		ProbWater:       0,
		ProbSanitation:  0.0274,
		ElectricCost:    286,
	}
}

// SmallTestConfig returns a tiny settlement for rapid iteration.
func SmallTestConfig() GenConfig {
	cfg := DefaultGenConfig()
	cfg.Width = 48
	cfg.Height = 36
	cfg.Seed = 42
	cfg.RoadSpacing = 8
	cfg.DensityThreshold = 0.3
	cfg.Schools = 3
	cfg.HealthFacilities = 2
	cfg.Churches = 4
	cfg.Mosques = 2
	cfg.WaterPoints = 5
	cfg.FormalOutsideCapacity = 40
	cfg.InformalOutsideCapacity = 20
	return cfg
}

// Generate creates a settlement with roads, structures, homes and facilities.
func Generate(cfg GenConfig) *Map {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed + 100))
	densityNoise := opensimplex.NewNormalized(seed)

	m := NewMap(cfg.Width, cfg.Height)
	m.Outside = NewOutsideEmployment(cfg.FormalOutsideCapacity, cfg.InformalOutsideCapacity)

	layRoads(m, cfg.RoadSpacing)

	for _, p := range m.parcels {
		p.Density = octaveNoise(densityNoise, float64(p.Coord.X), float64(p.Coord.Y), 3, 0.06, 0.5)
		if p.Road || p.Density < cfg.DensityThreshold {
			continue
		}

		s := m.AddStructure(p)
		if rng.Float64() < cfg.HomeChance {
			for i := 0; i < cfg.HomesPer; i++ {
				addHome(m, s, rng, cfg)
			}
		}
		if rng.Float64() < cfg.BusinessChance {
			for i := 0; i < cfg.BusinessesPer; i++ {
				b := &Business{ID: len(m.Businesses) + 1, Structure: s, Employees: NewRoster(cfg.BusinessCapacity)}
				s.Businesses = append(s.Businesses, b)
				m.Businesses = append(m.Businesses, b)
			}
		}
	}

	if len(m.Structures) == 0 {
		m.IndexClosestNodes()
		return m
	}

	for i := 0; i < cfg.Schools; i++ {
		s := m.Structures[rng.Intn(len(m.Structures))]
		sch := &School{
			ID:        len(m.Schools) + 1,
			Structure: s,
			Students:  NewRoster(cfg.SchoolCapacity),
			Employees: NewRoster(cfg.SchoolStaff),
			ClassSize: cfg.ClassSize,
		}
		s.Schools = append(s.Schools, sch)
		m.Schools = append(m.Schools, sch)
	}
	for i := 0; i < cfg.HealthFacilities; i++ {
		s := m.Structures[rng.Intn(len(m.Structures))]
		h := &HealthFacility{ID: len(m.Health) + 1, Structure: s, Employees: NewRoster(cfg.HealthStaff)}
		s.Health = append(s.Health, h)
		m.Health = append(m.Health, h)
	}
	for i := 0; i < cfg.Churches+cfg.Mosques; i++ {
		faith := FaithChurch
		if i >= cfg.Churches {
			faith = FaithMosque
		}
		s := m.Structures[rng.Intn(len(m.Structures))]
		f := &ReligiousFacility{ID: len(m.Religious) + 1, Faith: faith, Structure: s, Employees: NewRoster(cfg.ReligiousStaff)}
		s.Religious = append(s.Religious, f)
		m.Religious = append(m.Religious, f)
	}
	for i := 0; i < cfg.WaterPoints; i++ {
		s := m.Structures[rng.Intn(len(m.Structures))]
		if s.WaterPoint != nil {
			continue
		}
		w := &WaterPoint{ID: len(m.WaterPoints) + 1, Structure: s}
		s.WaterPoint = w
		m.WaterPoints = append(m.WaterPoints, w)
	}

	m.IndexClosestNodes()
	return m
}

// layRoads marks every spacing-th row and column as road, places a node at
// each crossing and at each road end, and links consecutive nodes.
func layRoads(m *Map, spacing int) {
	if spacing <= 0 {
		return
	}
	for _, p := range m.parcels {
		if p.Coord.X%spacing == 0 || p.Coord.Y%spacing == 0 {
			p.Road = true
		}
	}

	// Horizontal roads.
	for y := 0; y < m.Height; y += spacing {
		var prev *RoadNode
		for x := 0; x < m.Width; x++ {
			if x%spacing != 0 && x != m.Width-1 {
				continue
			}
			node := m.Roads.NodeAt(m.Get(x, y))
			if prev != nil {
				m.Roads.Connect(prev, node)
			}
			prev = node
		}
	}
	// Vertical roads.
	for x := 0; x < m.Width; x += spacing {
		var prev *RoadNode
		for y := 0; y < m.Height; y++ {
			if y%spacing != 0 && y != m.Height-1 {
				continue
			}
			node := m.Roads.NodeAt(m.Get(x, y))
			if prev != nil {
				m.Roads.Connect(prev, node)
			}
			prev = node
		}
	}
}

func addHome(m *Map, s *Structure, rng *rand.Rand, cfg GenConfig) {
	h := &Home{
		ID:             len(m.Homes) + 1,
		Structure:      s,
		Rent:           drawRent(rng),
		HasWater:       rng.Float64() < cfg.ProbWater,
		HasElectricity: rng.Float64() < cfg.ProbElectricity,
		HasSanitation:  rng.Float64() < cfg.ProbSanitation,
	}
	if h.HasElectricity {
		h.ElectricCost = cfg.ElectricCost
	}
	s.Homes = append(s.Homes, h)
	m.Homes = append(m.Homes, h)
}

func drawRent(rng *rand.Rand) float64 {
	rn := rng.Float64()
	cumulative := 0.0
	for i, share := range rentShares {
		cumulative += share
		if rn < cumulative {
			return rentBands[i]
		}
	}
	return rentBands[len(rentBands)-1]
}

// octaveNoise sums several noise octaves and normalizes back into the
// generator's range.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// Counts summarizes what was generated.
func Counts(m *Map) map[string]int {
	roads := 0
	for _, p := range m.parcels {
		if p.Road {
			roads++
		}
	}
	return map[string]int{
		"parcels":      len(m.parcels),
		"road_parcels": roads,
		"road_nodes":   len(m.Roads.Nodes),
		"structures":   len(m.Structures),
		"homes":        len(m.Homes),
		"businesses":   len(m.Businesses),
		"schools":      len(m.Schools),
		"health":       len(m.Health),
		"religious":    len(m.Religious),
		"water_points": len(m.WaterPoints),
	}
}
