// Package agents provides the resident and household data model, the
// employment placement variant, population spawning and the energy and
// aggression dynamics of a resident's identity reservoir.
package agents

import (
	"math/rand"

	"github.com/talgya/kibera-unrest/internal/world"
)

// ResidentID is a unique identifier for a resident.
type ResidentID = world.ResidentID

// Gender represents gender for demographic simulation.
type Gender uint8

const (
	GenderMale   Gender = 0
	GenderFemale Gender = 1
)

// Religion determines which facility a resident attends and when.
type Religion uint8

const (
	ReligionChristian Religion = iota
	ReligionMuslim
	ReligionOther
)

// Employment is a resident's labor-market status.
type Employment uint8

const (
	EmploymentFormal Employment = iota
	EmploymentInformal
	EmploymentSearching
	EmploymentInactive
)

var employmentNames = [...]string{"formal", "informal", "searching", "inactive"}

func (e Employment) String() string { return employmentNames[e] }

// NumEmployment is the number of employment statuses.
const NumEmployment = 4

// Identity is the self-concept whose standard drives energy dynamics.
type Identity uint8

const (
	IdentityStudent  Identity = iota
	IdentityEmployer          // Provider for the household
	IdentityDomestic
	IdentityRebel
)

var identityNames = [...]string{"student", "employer", "domestic", "rebel"}

func (i Identity) String() string { return identityNames[i] }

// NumIdentities is the number of identities.
const NumIdentities = 4

// Goal is one of the mutually exclusive daily activities. The declaration
// order is the tie-break order used by goal selection.
type Goal uint8

const (
	GoalStayHome Goal = iota
	GoalEducation
	GoalWork
	GoalSocialize
	GoalFindEmployment
	GoalReligion
	GoalWater
	GoalRebel
)

var goalNames = [...]string{
	"stay_home", "education", "work", "socialize",
	"find_employment", "religion", "water", "rebel",
}

func (g Goal) String() string { return goalNames[g] }

// NumGoals is the number of goals.
const NumGoals = 8

// Resident is a person living in the settlement.
type Resident struct {
	ID              ResidentID `json:"id"`
	Age             int        `json:"age"`
	Gender          Gender     `json:"gender"`
	Ethnicity       string     `json:"ethnicity"`
	Religion        Religion   `json:"religion"`
	ChurchSlot      int        `json:"church_slot"`      // 0–3, which Sunday service
	AdultEquivalent float64    `json:"adult_equivalent"` // Cost weighting
	Household       *Household `json:"-"`

	Employment Employment `json:"employment"`
	Identity   Identity   `json:"identity"`
	Goal       Goal       `json:"goal"`
	Placement  Placement  `json:"-"`
	Income     float64    `json:"income"` // Monthly

	SchoolEligible    bool                     `json:"school_eligible"`
	School            *world.School            `json:"-"`
	Class             *world.SchoolClass       `json:"-"`
	ReligiousFacility *world.ReligiousFacility `json:"-"`
	Friend            *Resident                `json:"-"`

	// Movement.
	Position     *world.Parcel   `json:"-"`
	GoalLocation *world.Parcel   `json:"-"`
	Route        []*world.Parcel `json:"-"`
	StayUntil    uint64          `json:"stay_until"` // Tick the current activity ends

	// Identity reservoir.
	Energy         float64 `json:"energy"` // 0–100
	AggressionRate float64 `json:"aggression_rate"`
	Aggression     float64 `json:"aggression"`

	LaidOff                   bool `json:"laid_off"`
	HeardRumor                bool `json:"heard_rumor"`
	HeardNewRumor             bool `json:"heard_new_rumor"`
	InitialRebel              bool `json:"initial_rebel"`
	AttendedReligiousFacility bool `json:"attended_religious_facility"` // This week
	SocializedToday           bool `json:"socialized_today"`
	ChangedGoal               bool `json:"changed_goal"`
	SearchedForSchool         bool `json:"searched_for_school"`

	DayFoundEmployment int    `json:"day_found_employment"` // -1 when no pending placement
	GoalStart          uint64 `json:"goal_start"`
	TimeInGoal         uint64 `json:"time_in_goal"`

	// Social-graph neighbors, refreshed at the start of each day.
	Neighbors []ResidentID `json:"-"`
}

// Home returns the parcel of the resident's household home.
func (r *Resident) Home() *world.Parcel {
	return r.Household.Home.Parcel()
}

// AtHome reports whether the resident is on the home parcel.
func (r *Resident) AtHome() bool {
	return r.Position == r.Home()
}

// IsEmployed reports whether the resident holds a placement.
func (r *Resident) IsEmployed() bool {
	return r.Placement.Kind != PlacementNone
}

// IsStudent reports whether the resident is enrolled in a school.
func (r *Resident) IsStudent() bool {
	return r.School != nil
}

// MoveTo relocates the resident, keeping parcel occupancy in step.
func (r *Resident) MoveTo(p *world.Parcel) {
	if r.Position != nil {
		r.Position.RemoveResident(r.ID)
	}
	r.Position = p
	p.AddResident(r.ID)
}

// EnrollIn admits the resident to a school, reporting false when the
// school is full.
func (r *Resident) EnrollIn(s *world.School, rng *rand.Rand) bool {
	class := s.Enroll(r.ID, rng)
	if class == nil {
		return false
	}
	r.School = s
	r.Class = class
	return true
}

// LeaveSchool withdraws the resident from their school.
func (r *Resident) LeaveSchool() {
	if r.School == nil {
		return
	}
	r.School.Withdraw(r.ID, r.Class)
	r.School = nil
	r.Class = nil
}

// SetFriend links two residents as each other's current friend, replacing
// any previous link on either side.
func SetFriend(a, b *Resident) {
	a.Friend = b
	b.Friend = a
}
