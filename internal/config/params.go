// Package config holds the calibration constants and behavior switches of a
// simulation run. Values are read-only once a run starts.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Params is the complete parameter set for one run.
type Params struct {
	Seed         int64 `json:"seed"`          // 0 = draw a seed from crypto/rand
	NumResidents int   `json:"num_residents"` // Population target for the spawner
	HorizonDays  int   `json:"horizon_days"`  // Run length in simulated days

	// Clock.
	RunFullDay          bool `json:"run_full_day"`           // false = skip the night hours
	TimeOfFirstActivity int  `json:"time_of_first_activity"` // Wall-clock minute the truncated day starts at
	NightHours          int  `json:"night_hours"`            // Hours dropped when RunFullDay is false

	// Search radii in parcels.
	SchoolVision     int `json:"school_vision"`
	EmploymentVision int `json:"employment_vision"`

	// Capacities.
	FormalOutsideCapacity   int `json:"formal_outside_capacity"`
	InformalOutsideCapacity int `json:"informal_outside_capacity"`
	BusinessCapacity        int `json:"business_capacity"`
	SchoolCapacity          int `json:"school_capacity"`
	SchoolEmployeeCapacity  int `json:"school_employee_capacity"`
	HealthEmployeeCapacity  int `json:"health_employee_capacity"`
	ReligiousEmployeeCap    int `json:"religious_employee_capacity"`
	ClassSize               int `json:"class_size"`

	// Labor market.
	InformalityIndex          float64 `json:"informality_index"`
	PercentUnder19            float64 `json:"percent_under_19"`
	PercentUnder6             float64 `json:"percent_under_6"`
	LayoffProbability         float64 `json:"layoff_probability"`
	MaxMonthlyIncome          float64 `json:"max_monthly_income"`
	MinAgeFormalEmployment    int     `json:"min_age_formal_employment"`
	MuslimAttendanceCutoff    float64 `json:"muslim_attendance_cutoff"`
	ChristianAttendanceChance float64 `json:"christian_attendance_chance"`

	// Identity and energy.
	InitialEnergy         float64 `json:"initial_energy"`
	EnergyRateOfChange    float64 `json:"energy_rate_of_change"`
	AggressionThreshold   float64 `json:"aggression_threshold"`
	AggressionRate        float64 `json:"aggression_rate"`
	UniformAggressionRate bool    `json:"uniform_aggression_rate"`

	// Rumor and opinion dynamics.
	OpinionThreshold               float64 `json:"opinion_threshold"`
	NumResidentsHearRumor          int     `json:"num_residents_hear_rumor"`
	ProportionInitialRebel         float64 `json:"proportion_initial_rebel"`
	NumResidentsHearNewRumor       int     `json:"num_residents_hear_new_rumor"`
	NumResidentsSpreadRumorTo      int     `json:"num_residents_spread_rumor_to"`
	NewRumorDay                    int     `json:"new_rumor_day"` // TimeNewRumor = NewRumorDay·MinutesPerDay
	PropagateNewRumor              bool    `json:"propagate_new_rumor"`
	ContinuePropagateOriginalRumor bool    `json:"continue_propagate_original_rumor"`
	RemainRebel                    bool    `json:"remain_rebel"`
	RemainRebelAfterNewRumor       bool    `json:"remain_rebel_after_new_rumor"`
	RebelCenterX                   int     `json:"rebel_center_x"`
	RebelCenterY                   int     `json:"rebel_center_y"`
	RebelJitter                    int     `json:"rebel_jitter"`

	// Household economy.
	WaterRequirement    float64 `json:"water_requirement"` // Litres per person per day
	WaterPerTrip        float64 `json:"water_per_trip"`
	BarrelOfWaterCost   float64 `json:"barrel_of_water_cost"`
	FoodCostPerMeal     float64 `json:"food_cost_per_meal"`
	TransportationCost  float64 `json:"transportation_cost"`
	ElectricCost        float64 `json:"electric_cost"` // Monthly
	SanitationCost      float64 `json:"sanitation_cost"`
	OtherBasicCosts     float64 `json:"other_basic_costs"`
	AdultEquivUnder5    float64 `json:"adult_equivalent_under_5"`
	AdultEquiv5to14     float64 `json:"adult_equivalent_5_to_14"`
	AdultEquiv15AndOver float64 `json:"adult_equivalent_15_and_over"`

	Features Features `json:"features"`
}

// Features gates optional behaviors.
type Features struct {
	CanResidentsBeLaidOff                 bool `json:"can_residents_be_laid_off"`
	SchoolEligibleSearchForEmployment     bool `json:"school_eligible_search_for_employment"`
	StudentsLeaveSchoolToSearch           bool `json:"students_leave_school_to_search"`
	InactiveResidentsSearch               bool `json:"inactive_residents_search"`
	SchoolEligibleStudentsSearchForSchool bool `json:"school_eligible_students_search_for_school"`
	HouseholdNeedImpactsBehavior          bool `json:"household_need_impacts_behavior"`
	RumorSpreads                          bool `json:"rumor_spreads"`
	CreateRebelsAtInitialization          bool `json:"create_rebels_at_initialization"`
	UseEmploymentStats                    bool `json:"use_employment_stats"` // Seed the labor market from survey shares
}

// Default returns the calibrated baseline scenario.
func Default() Params {
	return Params{
		Seed:         0,
		NumResidents: 2500,
		HorizonDays:  35,

		RunFullDay:          false,
		TimeOfFirstActivity: 300,
		NightHours:          7,

		SchoolVision:     35,
		EmploymentVision: 70,

		FormalOutsideCapacity:   11195,
		InformalOutsideCapacity: 5583,
		BusinessCapacity:        3,
		SchoolCapacity:          230,
		SchoolEmployeeCapacity:  10,
		HealthEmployeeCapacity:  8,
		ReligiousEmployeeCap:    3,
		ClassSize:               23,

		InformalityIndex:          0.6,
		PercentUnder19:            0.45,
		PercentUnder6:             0.21,
		LayoffProbability:         0.01,
		MaxMonthlyIncome:          14520,
		MinAgeFormalEmployment:    19,
		MuslimAttendanceCutoff:    0.91,
		ChristianAttendanceChance: 0.8,

		InitialEnergy:         100,
		EnergyRateOfChange:    50,
		AggressionThreshold:   0.6,
		AggressionRate:        0.6,
		UniformAggressionRate: true,

		OpinionThreshold:               0.1,
		NumResidentsHearRumor:          100,
		ProportionInitialRebel:         0.025,
		NumResidentsHearNewRumor:       10,
		NumResidentsSpreadRumorTo:      1,
		NewRumorDay:                    28,
		PropagateNewRumor:              false,
		ContinuePropagateOriginalRumor: true,
		RemainRebel:                    true,
		RemainRebelAfterNewRumor:       true,
		RebelCenterX:                   170,
		RebelCenterY:                   100,
		RebelJitter:                    20,

		WaterRequirement:    23,
		WaterPerTrip:        20,
		BarrelOfWaterCost:   2.5,
		FoodCostPerMeal:     14,
		TransportationCost:  9.68,
		ElectricCost:        286,
		SanitationCost:      5,
		OtherBasicCosts:     0,
		AdultEquivUnder5:    0.24,
		AdultEquiv5to14:     0.65,
		AdultEquiv15AndOver: 1,

		Features: Features{
			CanResidentsBeLaidOff:                 true,
			SchoolEligibleSearchForEmployment:     true,
			StudentsLeaveSchoolToSearch:           true,
			InactiveResidentsSearch:               true,
			SchoolEligibleStudentsSearchForSchool: true,
			HouseholdNeedImpactsBehavior:          true,
			RumorSpreads:                          true,
			CreateRebelsAtInitialization:          true,
			UseEmploymentStats:                    true,
		},
	}
}

// MinutesPerDay is the number of ticks in one simulated day.
func (p Params) MinutesPerDay() int {
	if p.RunFullDay {
		return 1440
	}
	return 1440 - p.NightHours*60
}

// TimeNewRumor is the tick at which the counter rumor becomes active.
func (p Params) TimeNewRumor() uint64 {
	return uint64(p.NewRumorDay * p.MinutesPerDay())
}

// WindowOffset is subtracted from wall-clock window bounds to map them onto
// the truncated day.
func (p Params) WindowOffset() int {
	if p.RunFullDay {
		return 0
	}
	return p.TimeOfFirstActivity
}

// Load reads a JSON file and overlays it on the defaults. Fields absent from
// the file keep their default values.
func Load(path string) (Params, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse config %s: %w", path, err)
	}
	return p, p.Validate()
}

// Validate reports every out-of-range value.
func (p Params) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(p.NumResidents > 0, "num_residents must be positive, got %d", p.NumResidents)
	check(p.HorizonDays > 0, "horizon_days must be positive, got %d", p.HorizonDays)
	check(p.NightHours >= 0 && p.NightHours < 24, "night_hours out of range: %d", p.NightHours)
	check(p.MinutesPerDay() > 0, "minutes per day must be positive")
	check(p.TimeOfFirstActivity >= 0 && p.TimeOfFirstActivity < 1440,
		"time_of_first_activity out of range: %d", p.TimeOfFirstActivity)
	check(p.SchoolVision >= 0, "school_vision must not be negative")
	check(p.EmploymentVision >= 0, "employment_vision must not be negative")
	check(inUnit(p.InformalityIndex), "informality_index must be in [0,1], got %g", p.InformalityIndex)
	check(inUnit(p.LayoffProbability), "layoff_probability must be in [0,1], got %g", p.LayoffProbability)
	check(inUnit(p.AggressionThreshold), "aggression_threshold must be in [0,1], got %g", p.AggressionThreshold)
	check(inUnit(p.ProportionInitialRebel), "proportion_initial_rebel must be in [0,1], got %g", p.ProportionInitialRebel)
	check(p.PercentUnder6 <= p.PercentUnder19, "percent_under_6 exceeds percent_under_19")
	check(p.InitialEnergy >= 0 && p.InitialEnergy <= 100, "initial_energy must be in [0,100], got %g", p.InitialEnergy)
	check(p.EnergyRateOfChange >= 0, "energy_rate_of_change must not be negative")
	check(p.OpinionThreshold >= 0, "opinion_threshold must not be negative")
	check(p.WaterRequirement >= 0 && p.WaterPerTrip >= 0, "water amounts must not be negative")
	check(p.ClassSize > 0, "class_size must be positive, got %d", p.ClassSize)

	return errors.Join(errs...)
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
