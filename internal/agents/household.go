// Household ledger: daily income, expenditures and the water supply kept at
// home. Recomputed once per simulated day.
package agents

import (
	"math/rand"

	"github.com/talgya/kibera-unrest/internal/world"
)

// Adjustment records how the household changed its spending today.
type Adjustment uint8

const (
	AdjustmentSame Adjustment = iota
	AdjustmentDecreased
	AdjustmentIncreased
)

// Costs is one day of household spending by category.
type Costs struct {
	Rent        float64 `json:"rent"`
	Food        float64 `json:"food"`
	Water       float64 `json:"water"`
	Electricity float64 `json:"electricity"`
	Sanitation  float64 `json:"sanitation"`
	Transport   float64 `json:"transport"`
	Other       float64 `json:"other"`
}

// Total sums all categories.
func (c Costs) Total() float64 {
	return c.Rent + c.Food + c.Water + c.Electricity + c.Sanitation + c.Transport + c.Other
}

// CostTable holds the unit prices a household pays.
type CostTable struct {
	FoodPerMeal   float64
	Transport     float64 // Per employed or studying member per day
	BarrelOfWater float64 // Per adult equivalent per day when the home has no tap
	Sanitation    float64 // Per public latrine visit
	Other         float64
}

// Household is a group of residents sharing a home and a budget.
type Household struct {
	ID        int         `json:"id"`
	Members   []*Resident `json:"-"`
	Home      *world.Home `json:"-"`
	Ethnicity string      `json:"ethnicity"`

	RemainingWater float64 `json:"remaining_water"` // Litres at home

	Costs        Costs      `json:"costs"`
	DailyIncome  float64    `json:"daily_income"`
	Expenditures float64    `json:"expenditures"`
	Discrepancy  float64    `json:"discrepancy"` // DailyIncome − Expenditures
	Adjusted     Adjustment `json:"adjusted"`

	RemovedFromSchool   bool   `json:"removed_from_school"`
	LeftSchoolAt        uint64 `json:"left_school_at"`
	RemovedFromInactive bool   `json:"removed_from_inactive"`
	LeftInactiveAt      uint64 `json:"left_inactive_at"`
}

// MonthlyIncome sums the members' monthly income.
func (h *Household) MonthlyIncome() float64 {
	total := 0.0
	for _, m := range h.Members {
		total += m.Income
	}
	return total
}

// Recompute rebuilds the daily ledger. When the budget runs short the
// household drops discretionary spending (electricity, other) first.
func (h *Household) Recompute(t CostTable, rng *rand.Rand) {
	h.DailyIncome = max(1, h.MonthlyIncome()/30)

	c := Costs{Rent: h.Home.Rent / 30, Other: t.Other}
	if h.Home.HasElectricity {
		c.Electricity = h.Home.ElectricCost / 30
	}
	for _, m := range h.Members {
		meals := 3.0
		if m.Identity == IdentityStudent {
			meals = 2
		}
		c.Food += t.FoodPerMeal * m.AdultEquivalent * meals
		if !h.Home.HasWater {
			c.Water += t.BarrelOfWater * m.AdultEquivalent
		}
		if n := int(t.Sanitation) * 5; !h.Home.HasSanitation && n > 0 {
			c.Sanitation += float64(rng.Intn(n))
		}
		if m.IsEmployed() || m.IsStudent() {
			c.Transport += t.Transport * m.AdultEquivalent
		}
	}

	h.Adjusted = AdjustmentSame
	h.Costs = c
	h.Expenditures = c.Total()
	h.Discrepancy = float64(int(h.DailyIncome - h.Expenditures))

	if h.Discrepancy < 0 && (c.Electricity > 0 || c.Other > 0) {
		c.Electricity = 0
		c.Other = 0
		h.Costs = c
		h.Expenditures = c.Total()
		h.Discrepancy = float64(int(h.DailyIncome - h.Expenditures))
		h.Adjusted = AdjustmentDecreased
	}
}

// Happiness is 2 when the household covers its costs without cutting back,
// 1 when it covers them only after cutting back, and 0 otherwise.
func (h *Household) Happiness() int {
	if h.Discrepancy < 0 {
		return 0
	}
	if h.Adjusted == AdjustmentDecreased {
		return 1
	}
	return 2
}

// NeedsWater reports whether the stored water falls short of a day's use
// for every member and the home has no tap.
func (h *Household) NeedsWater(perPerson float64) bool {
	if h.Home.HasWater {
		return false
	}
	return perPerson*float64(len(h.Members)) > h.RemainingWater
}

// ConsumeWater draws up to amount litres from the home supply.
func (h *Household) ConsumeWater(amount float64) {
	h.RemainingWater -= min(amount, h.RemainingWater)
}

// AddWater stores litres at home.
func (h *Household) AddWater(amount float64) {
	h.RemainingWater += amount
}
