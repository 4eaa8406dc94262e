// Simulation ties together the settlement, its residents and the social
// graph, and runs them each tick.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/kibera-unrest/internal/agents"
	"github.com/talgya/kibera-unrest/internal/config"
	"github.com/talgya/kibera-unrest/internal/entropy"
	"github.com/talgya/kibera-unrest/internal/social"
	"github.com/talgya/kibera-unrest/internal/world"
)

// Simulation holds the complete run state. Params, Clock and World layout are
// read-only once the run starts; rosters, occupancy, households and the
// graph are mutated only from inside TickMinute.
type Simulation struct {
	RunID  string
	Seed   int64
	Params config.Params
	Clock  Clock
	World  *world.Map

	Residents     []*agents.Resident
	ResidentIndex map[agents.ResidentID]*agents.Resident
	Households    []*agents.Household
	Graph         *social.Graph

	Events   []Event // Recent events, trimmed weekly
	LastTick uint64  // Most recent tick processed

	// Statistics collected at the end of each day.
	Stats SimStats

	rng   *rand.Rand
	costs agents.CostTable
	mu    sync.RWMutex
}

// Event is a notable occurrence in the settlement.
type Event struct {
	Tick        uint64 `json:"tick" db:"tick"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "rebellion", "employment", "layoff", "school", "rumor"
}

// SimStats tracks aggregate statistics for one day.
type SimStats struct {
	Day                 int                       `json:"day"`
	Tick                uint64                    `json:"tick"`
	Population          int                       `json:"population"`
	Households          int                       `json:"households"`
	Rebels              int                       `json:"rebels"`
	HeardRumor          int                       `json:"heard_rumor"`
	Students            int                       `json:"students"`
	Employment          [agents.NumEmployment]int `json:"employment"` // By agents.Employment
	Identities          [agents.NumIdentities]int `json:"identities"` // By agents.Identity
	Goals               [agents.NumGoals]int      `json:"goals"`      // By agents.Goal
	AvgEnergy           float64                   `json:"avg_energy"`
	AvgAggression       float64                   `json:"avg_aggression"`
	Edges               int                       `json:"edges"`
	MeanDegree          float64                   `json:"mean_degree"`
	HouseholdsInDeficit int                       `json:"households_in_deficit"`
	Happiness           [3]int                    `json:"happiness"` // Households by happiness level
}

// NewSimulation creates a run over a generated settlement and population,
// taking the residents' placements as given.
func NewSimulation(p config.Params, seed int64, m *world.Map, households []*agents.Household, residents []*agents.Resident) *Simulation {
	s := newSimulation(p, seed, m, households, residents)
	s.start()
	return s
}

func newSimulation(p config.Params, seed int64, m *world.Map, households []*agents.Household, residents []*agents.Resident) *Simulation {
	index := make(map[agents.ResidentID]*agents.Resident, len(residents))
	graph := social.NewGraph()
	for _, r := range residents {
		index[r.ID] = r
		graph.AddNode(r.ID)
	}

	s := &Simulation{
		RunID:         uuid.New().String(),
		Seed:          seed,
		Params:        p,
		Clock:         Clock{MinutesPerDay: p.MinutesPerDay(), Offset: p.WindowOffset()},
		World:         m,
		Residents:     residents,
		ResidentIndex: index,
		Households:    households,
		Graph:         graph,
		rng:           entropy.NewStream(seed),
		costs: agents.CostTable{
			FoodPerMeal:   p.FoodCostPerMeal,
			Transport:     p.TransportationCost,
			BarrelOfWater: p.BarrelOfWaterCost,
			Sanitation:    p.SanitationCost,
			Other:         p.OtherBasicCosts,
		},
	}
	return s
}

// start seeds the rumor and records the opening statistics.
func (s *Simulation) start() {
	s.seedRumor()
	s.updateStats(0)
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	return s.LastTick
}

// Read runs fn while no tick is in progress. Observers use it to take
// consistent snapshots from other goroutines.
func (s *Simulation) Read(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

// EmitEvent records a notable occurrence.
func (s *Simulation) EmitEvent(tick uint64, category, format string, args ...any) {
	s.Events = append(s.Events, Event{
		Tick:        tick,
		Description: fmt.Sprintf(format, args...),
		Category:    category,
	})
}

// TickMinute runs every tick: households recompute at the start of each day
// before any member reads them, then every resident steps once in ID order.
func (s *Simulation) TickMinute(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastTick = tick
	if s.Clock.MinuteOfDay(tick) == 0 {
		for _, hh := range s.Households {
			hh.Recompute(s.costs, entropy.SubStream(s.Seed, uint64(hh.ID), tick))
		}
	}
	for _, r := range s.Residents {
		s.stepResident(r, tick)
	}
}

// TickDay runs after the last tick of each day: statistics and daily report.
func (s *Simulation) TickDay(tick uint64) {
	s.mu.Lock()
	s.updateStats(tick)
	st := s.Stats
	counts := make(map[string]int)
	dayStart := tick + 1 - uint64(s.Clock.MinutesPerDay)
	for _, e := range s.Events {
		if e.Tick >= dayStart {
			counts[e.Category]++
		}
	}
	s.mu.Unlock()

	slog.Info("daily report",
		"day", st.Day,
		"time", s.Clock.SimTime(tick),
		"population", humanize.Comma(int64(st.Population)),
		"rebels", st.Rebels,
		"heard_rumor", humanize.Comma(int64(st.HeardRumor)),
		"formal", st.Employment[agents.EmploymentFormal],
		"informal", st.Employment[agents.EmploymentInformal],
		"searching", st.Employment[agents.EmploymentSearching],
		"inactive", st.Employment[agents.EmploymentInactive],
		"students", st.Students,
		"avg_energy", fmt.Sprintf("%.2f", st.AvgEnergy),
		"avg_aggression", fmt.Sprintf("%.3f", st.AvgAggression),
		"edges", humanize.Comma(int64(st.Edges)),
		"mean_degree", fmt.Sprintf("%.2f", st.MeanDegree),
		"households_in_deficit", st.HouseholdsInDeficit,
		"events_rebellion", counts["rebellion"],
		"events_employment", counts["employment"],
		"events_layoff", counts["layoff"],
	)
}

// TickWeek runs after the last tick of each week.
func (s *Simulation) TickWeek(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.Info("weekly summary",
		"week", s.Clock.Day(tick)/7+1,
		"time", s.Clock.SimTime(tick),
		"events_this_week", len(s.Events),
		"rebels", s.Stats.Rebels,
	)
	// Keep the last 1000 events.
	if len(s.Events) > 1000 {
		s.Events = s.Events[len(s.Events)-1000:]
	}
}

func (s *Simulation) updateStats(tick uint64) {
	st := SimStats{
		Day:        s.Clock.Day(tick),
		Tick:       tick,
		Population: len(s.Residents),
		Households: len(s.Households),
		Edges:      s.Graph.EdgeCount(),
		MeanDegree: s.Graph.MeanDegree(),
	}

	totalEnergy, totalAggression := 0.0, 0.0
	for _, r := range s.Residents {
		st.Employment[r.Employment]++
		st.Identities[r.Identity]++
		st.Goals[r.Goal]++
		if r.Identity == agents.IdentityRebel {
			st.Rebels++
		}
		if r.HeardRumor {
			st.HeardRumor++
		}
		if r.IsStudent() {
			st.Students++
		}
		totalEnergy += r.Energy
		totalAggression += r.Aggression
	}
	if n := len(s.Residents); n > 0 {
		st.AvgEnergy = totalEnergy / float64(n)
		st.AvgAggression = totalAggression / float64(n)
	}

	for _, hh := range s.Households {
		if hh.Discrepancy < 0 {
			st.HouseholdsInDeficit++
		}
		st.Happiness[hh.Happiness()]++
	}

	s.Stats = st
}
